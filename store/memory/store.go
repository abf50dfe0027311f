package memory

import (
	"sort"
	"sync"
	"time"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/async"
	"github.com/rnwood/Fake4Dataverse-sub003/id"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
	"github.com/rnwood/Fake4Dataverse-sub003/store"
)

// Ensure Store implements the composite interface at compile time.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Registrations are kept in insertion order;
// operations in enqueue order.
type Store struct {
	mu sync.RWMutex

	steps []*step.Registration

	ops     map[string]*async.Operation
	opOrder []string
	claimed map[string]struct{}
	seq     int
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		ops:     make(map[string]*async.Operation),
		claimed: make(map[string]struct{}),
	}
}

// Reset removes all registrations and operations.
func (m *Store) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = nil
	m.ops = make(map[string]*async.Operation)
	m.opOrder = nil
	m.claimed = make(map[string]struct{})
	m.seq = 0
}

// ──────────────────────────────────────────────────
// Step Store
// ──────────────────────────────────────────────────

// RegisterStep appends a registration. Duplicate triggers are allowed.
func (m *Store) RegisterStep(reg *step.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, reg)
	return nil
}

// UnregisterStep removes the exact registration previously registered.
func (m *Store) UnregisterStep(reg *step.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.steps {
		if r == reg {
			m.steps = append(m.steps[:i], m.steps[i+1:]...)
			return nil
		}
	}
	return pipeline.ErrStepNotFound
}

// ClearSteps removes every registration and returns the removed count.
func (m *Store) ClearSteps() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.steps)
	m.steps = nil
	return n
}

// QuerySteps returns matching registrations sorted ascending by rank,
// stable on ties so equal ranks keep registration order.
func (m *Store) QuerySteps(message, entity string, stage pipeline.Stage) []*step.Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*step.Registration, 0, len(m.steps))
	for _, r := range m.steps {
		if r.Matches(message, entity, stage) {
			result = append(result, r)
		}
	}

	sort.SliceStable(result, func(i, k int) bool {
		return result[i].Rank < result[k].Rank
	})

	return result
}

// CountSteps returns the number of registrations held.
func (m *Store) CountSteps() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.steps)
}

// ──────────────────────────────────────────────────
// Async Operation Store
// ──────────────────────────────────────────────────

// AppendOperation stores a Ready operation and assigns its sequence
// number.
func (m *Store) AppendOperation(op *async.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	op.Seq = m.seq

	key := op.ID.String()
	cp := *op
	m.ops[key] = &cp
	m.opOrder = append(m.opOrder, key)
	return nil
}

// GetOperation returns a copy of the operation.
func (m *Store) GetOperation(opID id.AsyncID) (*async.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, ok := m.ops[opID.String()]
	if !ok {
		return nil, pipeline.ErrOperationNotFound
	}
	cp := *op
	return &cp, nil
}

// ClaimOperation atomically marks a Ready, unclaimed operation as
// started and returns a copy carrying the captured runner.
func (m *Store) ClaimOperation(opID id.AsyncID) (*async.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := opID.String()
	op, ok := m.ops[key]
	if !ok {
		return nil, pipeline.ErrOperationNotFound
	}
	if op.IsCompleted() {
		return nil, pipeline.ErrOperationCompleted
	}
	if _, taken := m.claimed[key]; taken {
		return nil, pipeline.ErrOperationClaimed
	}

	m.claimed[key] = struct{}{}
	now := time.Now().UTC()
	op.StartedAt = &now

	cp := *op
	return &cp, nil
}

// CompleteOperation writes the terminal state of an executed operation
// back to the store.
func (m *Store) CompleteOperation(op *async.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := op.ID.String()
	if _, ok := m.ops[key]; !ok {
		return pipeline.ErrOperationNotFound
	}
	cp := *op
	m.ops[key] = &cp
	return nil
}

// ListOperations returns copies of matching operations in enqueue order.
func (m *Store) ListOperations(f async.Filter) []*async.Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*async.Operation, 0, len(m.opOrder))
	for _, key := range m.opOrder {
		op := m.ops[key]
		if !matches(f, op) {
			continue
		}
		cp := *op
		result = append(result, &cp)
	}
	return result
}

// CountOperations returns the number of matching operations.
func (m *Store) CountOperations(f async.Filter) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, op := range m.ops {
		if matches(f, op) {
			count++
		}
	}
	return count
}

// ClearCompletedOperations removes only Completed operations and returns
// the removed count. Ready operations are untouched.
func (m *Store) ClearCompletedOperations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	remaining := m.opOrder[:0]
	for _, key := range m.opOrder {
		op := m.ops[key]
		if op.IsCompleted() {
			delete(m.ops, key)
			delete(m.claimed, key)
			count++
			continue
		}
		remaining = append(remaining, key)
	}
	m.opOrder = remaining
	return count
}

func matches(f async.Filter, op *async.Operation) bool {
	if f.State != "" && op.State != f.State {
		return false
	}
	if f.Status != "" && op.Status != f.Status {
		return false
	}
	return true
}
