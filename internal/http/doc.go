// Package http exposes the event board over JSON.
//
// Public endpoints:
//   - GET /healthz, GET /metrics
//   - GET /auth/login redirects to the Microsoft sign-in page; GET /auth/callback
//     completes the login and sets the HttpOnly `session_token` cookie;
//     POST /auth/logout revokes it.
//   - GET /events?scope=upcoming|past&kind=admin|student&creatorId=&attendee=
//   - GET /events/{id}, GET /events.ics, GET /event-images
//
// Endpoints behind RequireSession (Bearer token or session cookie):
//   - GET /auth/me
//   - POST /events, PUT /events/{id}, DELETE /events/{id}
//   - POST /events/{id}/join, POST /events/{id}/remove
//   - GET /users?userId=, GET /users (admin), POST /users {"userId","isAdmin"} (admin)
//
// Errors are returned as {"error_code","message","errors"} with the message
// localized from Accept-Language.
package http
