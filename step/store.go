package step

import pipeline "github.com/rnwood/Fake4Dataverse-sub003"

// Store is the registration store interface. It owns every Registration
// for the process lifetime; registrations are removed only by explicit
// Unregister or Clear calls.
//
// Implementations must be safe for concurrent use. The canonical
// implementation is store/memory.Store.
type Store interface {
	// RegisterStep appends a registration. No uniqueness constraint is
	// enforced: multiple registrations may share one trigger.
	RegisterStep(reg *Registration) error

	// UnregisterStep removes the exact registration previously passed to
	// RegisterStep (pointer identity). Returns pipeline.ErrStepNotFound
	// if it was never registered or was already removed.
	UnregisterStep(reg *Registration) error

	// ClearSteps removes every registration and returns the removed count.
	ClearSteps() int

	// QuerySteps returns the registrations triggering for the given
	// message, entity, and stage — entity-specific and global matches —
	// sorted ascending by rank, stable on ties (insertion order).
	// Never returns nil; an empty slice means nothing matched.
	QuerySteps(message, entity string, stage pipeline.Stage) []*Registration

	// CountSteps returns the total number of registrations held.
	CountSteps() int
}
