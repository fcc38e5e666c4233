// Package client is the typed HTTP client for the FanPulse backend's auth
// endpoints.
//
// # Overview
//
// Client is the transport-agnostic contract used by the session guard and
// the auth service. HTTPClient implements it over net/http with an
// otelhttp-instrumented transport; every request carries an X-Request-ID.
//
// # Error Handling
//
// Responses are mapped onto sentinel errors that callers match with
// errors.Is:
//
//   - ErrUnauthorized: 401 or 403, i.e. a missing, invalid or expired credential.
//   - ErrUnavailable: the request never got an answer, or the backend replied 502/503/504.
//   - ErrMalformedResponse: a 2xx whose body could not be decoded.
//
// Any other non-2xx status is returned as *APIError carrying the status and
// the backend's "detail" message. Context cancellation is returned as the
// context's own error and is never mapped to ErrUnavailable.
package client
