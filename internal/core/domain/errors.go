package domain

import "errors"

// Domain errors represent the failure taxonomy of an export run.
// Per-item errors are recorded into the RunSummary and never abort the run;
// only ErrConfig is fatal, and only before any network call is made.
var (
	// ErrConfig indicates invalid configuration: an unreadable allow-list
	// or PID file, a malformed settings file, or a bad connection
	// descriptor. Fatal to the whole invocation.
	ErrConfig = errors.New("configuration error")

	// ErrNotFound indicates a requested PID or destination record does not
	// exist. Recorded per item, never fatal to the run.
	ErrNotFound = errors.New("not found")

	// ErrMapping indicates the schema mapper could not produce a valid
	// destination record, e.g. a required field has no source value.
	ErrMapping = errors.New("mapping error")

	// ErrTransient indicates a transport failure that is worth retrying:
	// timeouts, connection resets, 5xx responses.
	ErrTransient = errors.New("transient transport error")

	// ErrRejected indicates the destination refused the payload as
	// invalid. Not retried.
	ErrRejected = errors.New("rejected by destination")

	// ErrInvalidInput indicates malformed input to a core operation.
	ErrInvalidInput = errors.New("invalid input")
)
