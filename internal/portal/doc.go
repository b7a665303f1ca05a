// Package portal provides the authenticated session to the golf club members' portal.
//
// A Session logs in with the member id and PIN form, keeps the session
// cookie in a jar and serves page fetches to the scrapers. Requests are
// paced with a rate limiter and transient failures (network errors, 5xx)
// are retried with exponential backoff; everything else is reported to the
// caller as a *TransportError.
package portal
