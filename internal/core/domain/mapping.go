package domain

import "time"

// Mapping joins a source PID to its destination identifier. Rows are
// created only by a successful Create, have their content hash refreshed by
// a successful Update, and are removed only by a successful Delete. The
// mapping is never inferred speculatively.
type Mapping struct {
	PID           string
	ISSN          string
	Collection    string
	DestinationID string

	// ContentHash is the hash of the destination payload at the last
	// successful sync. The decision engine compares against it to detect
	// unchanged documents.
	ContentHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}
