// Package audit records security-relevant events: logins and failed logins,
// registrations, rejected tokens, access denials and todo mutations.
//
// Events are written as JSON lines through a dedicated logrus logger so they
// can be shipped separately from the application log:
//
//	auditLog := audit.NewLogrusLogger(os.Stdout)
//	auditLog.LogAuthentication(ctx, audit.EventTypeAuthLogin, id, email, audit.EventStatusSuccess, "token issued")
//
// Loggers travel in the request context (WithLogger, FromContext). When none
// is set FromContext returns a no-op logger.
package audit
