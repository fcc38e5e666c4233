// Package devapi is an in-memory stand-in for the FanPulse auth backend.
//
// It serves the /api/auth endpoints the client consumes, with the same
// request and response shapes, so the CLI and the end-to-end tests can run
// without the real service. Passwords are bcrypt-hashed, access tokens are
// HS256 JWTs, and one-time verification and reset tokens are written to the
// log instead of being emailed.
package devapi
