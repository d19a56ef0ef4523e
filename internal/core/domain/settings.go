package domain

import "time"

// ConnectionKind selects the source catalogue transport.
type ConnectionKind string

// Supported source transports.
const (
	ConnectionRestful ConnectionKind = "restful"
	ConnectionThrift  ConnectionKind = "thrift"
)

// Default settings values. The original deployment throttles the
// destination to two requests per second and retries transient failures
// three times.
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
	DefaultBulkSize     = 100
	DefaultMaxWorkers   = 4
	DefaultRequestRate  = 2.0
	DefaultTimeout      = 30 * time.Second
)

// Settings is the process configuration, constructed once at startup and
// passed by value into component constructors. There is no ambient global
// configuration state.
type Settings struct {
	// DOAJAPIURL is the destination API base URL, e.g. "https://doaj.org/api/".
	DOAJAPIURL string

	// DOAJAPIKey authenticates write operations at the destination.
	DOAJAPIKey string

	// Connection selects the source transport.
	Connection ConnectionKind

	// Domain is the source service address. Empty selects the transport's
	// default endpoint.
	Domain string

	// StatePath is the directory holding the PID-mapping database.
	StatePath string

	// MaxRetries bounds retry attempts for transient transport errors.
	MaxRetries int

	// RetryBackoff is the initial backoff delay; it doubles per attempt.
	RetryBackoff time.Duration

	// BulkSize bounds the number of payloads per bulk request.
	BulkSize int

	// MaxWorkers bounds per-item dispatch parallelism.
	MaxWorkers int

	// RequestRate throttles destination requests (per second).
	RequestRate float64

	// Timeout applies per network operation, not per run.
	Timeout time.Duration
}

// DefaultSettings returns settings with all tunables at their defaults.
func DefaultSettings() Settings {
	return Settings{
		DOAJAPIURL:   "https://doaj.org/api/",
		Connection:   ConnectionRestful,
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
		BulkSize:     DefaultBulkSize,
		MaxWorkers:   DefaultMaxWorkers,
		RequestRate:  DefaultRequestRate,
		Timeout:      DefaultTimeout,
	}
}
