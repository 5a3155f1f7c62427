package auth

import "errors"

var (
	// ErrInvalidInput is returned for missing or malformed required fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateIdentity is returned when an email is already registered
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrUnknownIdentity is returned when no identity matches the lookup
	ErrUnknownIdentity = errors.New("identity not found")

	// ErrBadCredentials is returned when password verification fails
	ErrBadCredentials = errors.New("bad credentials")

	// ErrUnauthenticated is returned for a missing, malformed, forged or expired token
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated identity lacks access
	ErrForbidden = errors.New("forbidden")
)

// IsCredentialError reports whether err is one of the login failures that
// must be indistinguishable to the caller.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownIdentity) ||
		errors.Is(err, ErrBadCredentials)
}

// ValidationError is an ErrInvalidInput carrying a message safe to show to
// the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return ErrInvalidInput.Error() + ": " + e.Message
}

// Is makes errors.Is(err, ErrInvalidInput) hold for validation errors
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvalidInput returns a ValidationError with message
func InvalidInput(message string) error {
	return &ValidationError{Message: message}
}

// ValidationMessage returns the caller-facing message of a validation error,
// or fallback when err carries none.
func ValidationMessage(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	return fallback
}
