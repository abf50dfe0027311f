package store

import (
	"github.com/rnwood/Fake4Dataverse-sub003/async"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
)

// Store is the aggregate persistence interface. A single backend
// implements every subsystem store.
type Store interface {
	step.Store
	async.Store

	// Reset removes all registrations and operations, returning the
	// store to its initial empty state.
	Reset()
}
