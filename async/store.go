package async

import "github.com/rnwood/Fake4Dataverse-sub003/id"

// Filter selects operations by state and/or status. Zero values match
// everything.
type Filter struct {
	State  State
	Status Status
}

// Store holds async operations. The Queue layers execution, waiting, and
// auto-execute behaviour on top; all coordination flows through the Queue,
// the Store only guarantees atomicity of its individual methods.
//
// Implementations must be safe for concurrent use. The canonical
// implementation is store/memory.Store.
type Store interface {
	// AppendOperation stores a new Ready operation and assigns its
	// enqueue sequence number.
	AppendOperation(op *Operation) error

	// GetOperation returns a copy of the operation, or
	// pipeline.ErrOperationNotFound.
	GetOperation(opID id.AsyncID) (*Operation, error)

	// ClaimOperation atomically marks a Ready, unclaimed operation as
	// started (setting StartedAt) and returns a copy carrying the
	// captured runner. Returns pipeline.ErrOperationClaimed if another
	// caller already claimed it, pipeline.ErrOperationCompleted if it
	// already ran, or pipeline.ErrOperationNotFound.
	ClaimOperation(opID id.AsyncID) (*Operation, error)

	// CompleteOperation writes the terminal state of an executed
	// operation back to the store.
	CompleteOperation(op *Operation) error

	// ListOperations returns copies of matching operations in enqueue
	// (Seq) order. Never returns nil.
	ListOperations(f Filter) []*Operation

	// CountOperations returns the number of matching operations.
	CountOperations(f Filter) int

	// ClearCompletedOperations removes only Completed operations and
	// returns the removed count. Ready operations are untouched.
	ClearCompletedOperations() int
}
