package model

import "errors"

// Error kinds surfaced across the public operations. Callers classify
// with errors.Is; wrapping adds the operation context.
var (
	// ErrNotFound covers unknown ids, missing files, and absent sessions.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers malformed regexes, bad line ranges,
	// unknown strategies, and empty queries.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict covers mutation of a finalized session and duplicate
	// ids on insert.
	ErrConflict = errors.New("conflict")

	// ErrBusy means the database lock timeout was exceeded; the caller
	// may retry.
	ErrBusy = errors.New("database busy")

	// ErrIndexInconsistency means the FTS row count drifted from the
	// entries table. The store goes read-only until repaired.
	ErrIndexInconsistency = errors.New("full-text index inconsistent")

	// ErrExternal is a failure in a collaborator (the tagger LLM);
	// handled by falling back to keyword extraction.
	ErrExternal = errors.New("external service failure")
)
