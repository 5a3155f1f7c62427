// Package middleware provides the bearer-token authentication, role checks
// and rate limiting applied in front of the tasklist API.
//
// # Authentication
//
//	authMW := middleware.NewAuthMiddleware(gate, auditLog, metrics)
//	api := router.NewRoute().Subrouter()
//	api.Use(authMW.Handler)
//	api.Handle("/todo", middleware.RequireRole(auth.RoleAdmin, auditLog, metrics)(listAll))
//
// Handlers read the requester with GetIdentity(r) and the token claims with
// GetClaims(r).
//
// # Rate Limiting
//
// RateLimiter is an in-process token bucket; DistributedRateLimiter is a
// Redis fixed window shared by every instance. Both satisfy Limiter:
//
//	limiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
//	rl := middleware.NewRateLimitMiddleware("auth", limiter, middleware.KeyByClientIP, true, metrics)
//	authRoutes.Use(rl.Handler)
package middleware
