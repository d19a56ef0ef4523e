package domain

// Verb is one of the four commands the orchestrator executes.
type Verb string

// Supported verbs.
const (
	VerbExport Verb = "export"
	VerbUpdate Verb = "update"
	VerbGet    Verb = "get"
	VerbDelete Verb = "delete"
)

// ActionKind tags a SyncAction.
type ActionKind string

// Action kinds produced by the decision engine.
const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
	ActionGet    ActionKind = "get" // read-only lookup, no mutation
	ActionSkip   ActionKind = "skip"
)

// SkipReason explains why a PID was skipped.
type SkipReason string

// Skip reasons.
const (
	SkipUnmanaged    SkipReason = "unmanaged"     // journal ISSN outside the allow-list
	SkipUnchanged    SkipReason = "unchanged"     // content hash matches the last sync
	SkipUnseen       SkipReason = "unseen"        // update verb, no destination id recorded
	SkipNotPresent   SkipReason = "not-present"   // delete verb, no destination id recorded
	SkipMappingError SkipReason = "mapping-error" // mapper could not produce a payload
)

// SyncAction is the decision made for one PID. Exactly one of the payload
// and identifier fields is meaningful per kind: Create carries a Payload,
// Update carries both, Delete carries a DestinationID, Skip carries a
// Reason (and Err for mapping failures).
type SyncAction struct {
	Kind ActionKind
	PID  string

	// Payload is the mapped destination record for Create and Update.
	Payload *Article

	// DestinationID is the recorded destination identifier for Update and
	// Delete.
	DestinationID string

	// ContentHash is the payload hash to persist on a successful Create or
	// Update.
	ContentHash string

	// ISSN and Collection are carried through so a successful Create can
	// persist a complete mapping row.
	ISSN       string
	Collection string

	// Reason is set when Kind is ActionSkip.
	Reason SkipReason

	// Err carries the mapping failure for Skip(mapping-error).
	Err error
}
