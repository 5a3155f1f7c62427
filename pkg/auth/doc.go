// Package auth implements authentication and authorization for the tasklist
// service.
//
// # Overview
//
// Identities are stored through a CredentialStore with salted password
// hashes (bcrypt or argon2id). The Authenticator registers identities and
// exchanges email/password credentials for HS256 signed JWTs issued by the
// TokenManager. Tokens are stateless and live for eight hours.
//
// The Gate validates presented tokens, enforces route-level roles and
// applies the ownership-or-admin rule to owned resources:
//
//	claims, err := gate.Authorize(token, auth.RoleAdmin)
//	identity, err := gate.ResolveIdentity(ctx, claims)
//	if err := gate.CheckAccess(identity, todo.OwnerID); err != nil {
//		// ErrForbidden
//	}
//
// # Roles
//
// Exactly two roles exist: User and Admin. Admins may read and modify every
// identity's resources.
//
// # Errors
//
// Failures are reported through sentinel errors (ErrInvalidInput,
// ErrDuplicateIdentity, ErrUnknownIdentity, ErrBadCredentials,
// ErrUnauthenticated, ErrForbidden). Match them with errors.Is.
package auth
