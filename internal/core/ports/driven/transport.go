package driven

import "context"

// Transport posts a request envelope and returns the raw response.
// Implementations own TLS and client-certificate mechanics; the core
// treats this purely as a function.
type Transport interface {
	// Post sends body to url and returns the HTTP status code and
	// response bytes. A non-nil error covers network failures and
	// non-2xx statuses; the status and body are still returned when
	// available so callers can log a preview.
	Post(ctx context.Context, url string, body []byte) (int, []byte, error)
}
