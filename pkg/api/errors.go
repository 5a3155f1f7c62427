package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/httputil"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// Caller-facing messages
const (
	msgDuplicateEmail   = "This Email is already registered"
	msgBadCredentials   = "Wrong email or password, please try again"
	msgForbidden        = "you do not have access to this todo"
	msgTodoNotFound     = "todo not found"
	msgAuthRequired     = "authentication required"
	msgInvalidInput     = "invalid input"
	msgMethodNotAllowed = "method not allowed"
	msgRouteNotFound    = "not found"
)

// writeError maps an error kind to a status code. Internal detail is logged,
// never written.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		httputil.WriteBadRequest(w, auth.ValidationMessage(err, msgInvalidInput))
	case errors.Is(err, auth.ErrDuplicateIdentity):
		httputil.WriteBadRequest(w, msgDuplicateEmail)
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrUnknownIdentity):
		httputil.WriteUnauthorized(w, msgAuthRequired)
	case errors.Is(err, auth.ErrBadCredentials):
		httputil.WriteUnauthorized(w, msgBadCredentials)
	case errors.Is(err, auth.ErrForbidden):
		httputil.WriteForbidden(w, msgForbidden)
	case errors.Is(err, todo.ErrNotFound):
		httputil.WriteNotFound(w, msgTodoNotFound)
	default:
		observability.FromContext(r.Context()).
			WithError(err).
			WithField("path", r.URL.Path).
			Error("Request failed")
		httputil.WriteInternalError(w)
	}
}
