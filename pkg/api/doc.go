// Package api implements the tasklist HTTP surface.
//
// Routes:
//
//	POST   /auth/register   create an identity holding the User role
//	POST   /auth/login      exchange email and password for a bearer token
//	GET    /todo            every todo (Admin only)
//	GET    /todo/my         the caller's todos
//	GET    /todo/{id}       one todo (owner or Admin)
//	POST   /todo            create a todo owned by the caller
//	PUT    /todo/{id}       replace title, description and status (owner or Admin)
//	DELETE /todo/{id}       delete a todo (owner or Admin)
//
// Errors are returned as {"error": "<message>"}. Login failures share one
// status and message regardless of cause.
package api
