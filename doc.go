// Package auth implements a small user authentication API: registration,
// JWT login and refresh, password change, and an emailed password reset flow.
//
// Tokens:
//   - TokenService issues HS256 access/refresh pairs. Access tokens are short
//     lived and carry a token_type claim so a refresh token can never be used
//     as a bearer credential and vice versa.
//   - Refresh does not rotate the refresh token; the presented token is echoed
//     back next to the new access token.
//
// Password reset:
//   - ResetTokenService signs a user id and issue time with a key derived from
//     the signing key and ResetTokenSalt. Tokens older than ResetTokenMaxAge
//     are rejected on the way back in.
//   - InitializePasswordResetHandler answers the same way whether or not the
//     email belongs to an account, and sends mail off the request path.
//
// Commands:
//   - RegisterUserHandler, ChangePasswordHandler and the two reset handlers
//     take a message, validate it with ozzo-validation and run inside a bun
//     transaction when they write.
//
// HTTP:
//   - AuthController mounts the routes on a go-router Router and NewErrorHandler
//     renders every failure as {"error": TEXT_CODE, "detail": ...}. Errors with
//     no public text code are reported as INTERNAL_ERROR.
//
// Activity sinks:
//   - ActivitySink receives login, refresh, registration and password events.
//     Sinks run best-effort (errors are logged). The activitymap package turns
//     events into a transport agnostic record for downstream systems.
package auth
