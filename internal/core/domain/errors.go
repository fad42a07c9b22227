package domain

import "errors"

// Domain errors represent the failure taxonomy of the sync engine.
// Session-level errors (transport, parse) stop a session but preserve
// everything already placed; document-level errors are isolated and
// never escalate.
var (
	// ErrUsage indicates invalid or missing configuration. Reported
	// before any I/O happens.
	ErrUsage = errors.New("invalid usage")

	// ErrTransport indicates a network/HTTP failure or a SOAP fault.
	// The session aborts without advancing the cursor.
	ErrTransport = errors.New("transport failure")

	// ErrParse indicates a malformed response or a missing mandatory
	// field. Handled like ErrTransport.
	ErrParse = errors.New("malformed response")

	// ErrDocument indicates a single container or file failed to
	// decode or yielded no derivable identity. The offending document
	// is skipped; the batch continues.
	ErrDocument = errors.New("document error")

	// ErrUnexpectedStatus indicates the provider answered with a
	// status code the sync loop does not handle. The session stops
	// cleanly and progress made so far is persisted.
	ErrUnexpectedStatus = errors.New("unexpected provider status")

	// ErrServiceBlocked indicates the provider rejected the query as
	// service misuse (cStat 656). The session stops and the cooldown
	// applies before any retry.
	ErrServiceBlocked = errors.New("provider blocked further queries")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
