// Package store defines the aggregate persistence interface.
//
// Each subsystem (step registrations, async operations) defines its own
// store interface. The composite [Store] composes them all. A single
// backend need only implement Store to satisfy every subsystem's
// persistence contract.
//
// The composite interface:
//
//	type Store interface {
//	    step.Store
//	    async.Store
//
//	    Reset()
//	}
//
// # Available Backends
//
//   - store/memory — in-memory store, the canonical backend for an
//     in-process test double
//
// # Usage
//
//	s := memory.New()
//	eng := engine.New(engine.WithStore(s))
//
// Reset returns a store to its initial empty state, which lets a single
// store instance be shared across test cases.
package store
