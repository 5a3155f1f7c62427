// Package httputil provides the JSON response helpers, request parsing and
// generic middleware shared by the tasklist HTTP API.
//
// Every error reply has the body {"error": "<message>"}:
//
//	httputil.WriteBadRequest(w, "Empty email")
//	httputil.WriteUnauthorized(w, "Invalid email or password")
//
// Middleware compose with Chain, outermost first:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil
