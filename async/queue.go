package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rnwood/Fake4Dataverse-sub003/id"
)

// Emitter receives queue lifecycle events. The engine adapts the
// extension registry to this interface; defining it here keeps the
// queue free of a dependency on the ext package.
type Emitter interface {
	EmitAsyncEnqueued(ctx context.Context, op *Operation)
	EmitAsyncCompleted(ctx context.Context, op *Operation, elapsed time.Duration)
	EmitAsyncFailed(ctx context.Context, op *Operation, err error)
}

// Queue is the deferred-execution queue for asynchronous steps. It owns
// every enqueued Operation until explicitly cleared, executes them on
// demand, and exposes inspection and waiting primitives.
//
// All mutating calls (Enqueue, Execute, ExecuteAll, ClearCompleted) are
// atomic with respect to each other; non-blocking drain and wait calls
// may run concurrently with new enqueues. A Ready operation can be
// executed or left pending, never withdrawn.
type Queue struct {
	store    Store
	emitter  Emitter
	logger   *slog.Logger
	throttle *Throttle

	mu          sync.Mutex
	autoExecute bool
	// change is closed and replaced on every state transition; waiters
	// hold the current channel and re-check their predicate when it
	// closes. This replaces busy polling.
	change chan struct{}
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLogger sets the structured logger for the queue.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = l }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) QueueOption {
	return func(q *Queue) { q.emitter = e }
}

// WithAutoExecute sets the initial auto-execute flag.
func WithAutoExecute(on bool) QueueOption {
	return func(q *Queue) { q.autoExecute = on }
}

// WithThrottle paces drain operations with a token bucket. Pacing delays
// execution but never reorders it.
func WithThrottle(t *Throttle) QueueOption {
	return func(q *Queue) { q.throttle = t }
}

// NewQueue creates a queue backed by the given operation store.
func NewQueue(store Store, opts ...QueueOption) *Queue {
	q := &Queue{
		store:  store,
		logger: slog.Default(),
		change: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// AutoExecute reports whether enqueues run their operation immediately.
func (q *Queue) AutoExecute() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.autoExecute
}

// SetAutoExecute toggles immediate execution on enqueue.
func (q *Queue) SetAutoExecute(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.autoExecute = on
}

// Enqueue accepts a deferred operation in Ready state. When auto-execute
// is on, the operation runs to completion before Enqueue returns — it is
// still recorded as a completed job, never as a no-op.
func (q *Queue) Enqueue(ctx context.Context, op *Operation) error {
	op.State = StateReady
	op.Status = StatusWaiting
	if op.ID.IsNil() {
		op.ID = id.NewAsyncID()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	if err := q.store.AppendOperation(op); err != nil {
		return err
	}

	if q.emitter != nil {
		q.emitter.EmitAsyncEnqueued(ctx, op)
	}
	q.logger.Debug("async operation enqueued",
		slog.String("operation_id", op.ID.String()),
		slog.String("name", op.Name),
	)
	q.broadcast()

	if q.AutoExecute() {
		return q.Execute(ctx, op.ID)
	}
	return nil
}

// Execute runs the captured invocation of one operation now, on the
// calling goroutine. StartedAt is set before the run and CompletedAt
// after; success sets StatusSucceeded, failure sets StatusFailed and
// records the error on the operation instead of raising it.
//
// The returned error reports queue-level problems only: an unknown ID,
// an operation already completed, or one being executed concurrently.
// Each operation's invocation runs exactly once.
func (q *Queue) Execute(ctx context.Context, opID id.AsyncID) error {
	op, err := q.store.ClaimOperation(opID)
	if err != nil {
		return err
	}

	var runErr error
	if op.run != nil {
		runErr = op.run(ctx)
	}

	now := time.Now().UTC()
	op.State = StateCompleted
	op.CompletedAt = &now
	if runErr != nil {
		op.Status = StatusFailed
		op.ErrorMessage = runErr.Error()
	} else {
		op.Status = StatusSucceeded
	}

	if completeErr := q.store.CompleteOperation(op); completeErr != nil {
		q.logger.Error("failed to record async operation completion",
			slog.String("operation_id", op.ID.String()),
			slog.String("error", completeErr.Error()),
		)
		return completeErr
	}

	elapsed := elapsedOf(op)
	if runErr != nil {
		if q.emitter != nil {
			q.emitter.EmitAsyncFailed(ctx, op, runErr)
		}
		q.logger.Warn("async operation failed",
			slog.String("operation_id", op.ID.String()),
			slog.String("name", op.Name),
			slog.String("error", runErr.Error()),
		)
	} else {
		if q.emitter != nil {
			q.emitter.EmitAsyncCompleted(ctx, op, elapsed)
		}
		q.logger.Debug("async operation completed",
			slog.String("operation_id", op.ID.String()),
			slog.String("name", op.Name),
			slog.Duration("elapsed", elapsed),
		)
	}

	q.broadcast()
	return nil
}

// ExecuteAll executes every operation that is Ready when the drain
// starts, in enqueue order, continuing past individual failures. It
// returns the number of operations processed. Operations enqueued while
// the drain is running are left for the next drain.
func (q *Queue) ExecuteAll(ctx context.Context) int {
	pending := q.store.ListOperations(Filter{State: StateReady})

	count := 0
	for _, op := range pending {
		if q.throttle != nil {
			if err := q.throttle.Wait(ctx); err != nil {
				break
			}
		}
		// A concurrent Execute may have claimed the operation already;
		// skip it rather than double-count.
		if err := q.Execute(ctx, op.ID); err != nil {
			continue
		}
		count++
	}
	return count
}

// ExecuteAllAsync starts a drain in the background and returns a channel
// that yields the processed count when the drain finishes. The channel
// is closed after the single send.
func (q *Queue) ExecuteAllAsync(ctx context.Context) <-chan int {
	done := make(chan int, 1)
	go func() {
		defer close(done)
		done <- q.ExecuteAll(ctx)
	}()
	return done
}

// WaitFor blocks until the identified operation completes, the timeout
// elapses, or ctx is cancelled. It reports whether the operation
// completed in time. An ID not yet enqueued simply waits; completion of
// an operation enqueued later under the same ID still counts.
func (q *Queue) WaitFor(ctx context.Context, opID id.AsyncID, timeout time.Duration) bool {
	return q.wait(ctx, timeout, func() bool {
		op, err := q.store.GetOperation(opID)
		return err == nil && op.IsCompleted()
	})
}

// WaitForAll blocks until no Ready operation remains, the timeout
// elapses, or ctx is cancelled. It reports whether the queue drained in
// time.
func (q *Queue) WaitForAll(ctx context.Context, timeout time.Duration) bool {
	return q.wait(ctx, timeout, func() bool {
		return q.store.CountOperations(Filter{State: StateReady}) == 0
	})
}

// wait re-checks done after every queue state transition, without
// busy polling.
func (q *Queue) wait(ctx context.Context, timeout time.Duration, done func() bool) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if done() {
			return true
		}
		ch := q.changeCh()
		// Re-check between snapshotting the channel and waiting: a
		// transition may have slipped in.
		if done() {
			return true
		}
		select {
		case <-ch:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// ──────────────────────────────────────────────────
// Read views
// ──────────────────────────────────────────────────

// Store returns the backing operation store.
func (q *Queue) Store() Store {
	return q.store
}

// Pending returns the Ready operations in enqueue order.
func (q *Queue) Pending() []*Operation {
	return q.store.ListOperations(Filter{State: StateReady})
}

// Completed returns the Completed operations in enqueue order.
func (q *Queue) Completed() []*Operation {
	return q.store.ListOperations(Filter{State: StateCompleted})
}

// Failed returns the operations that completed with a recorded error.
func (q *Queue) Failed() []*Operation {
	return q.store.ListOperations(Filter{Status: StatusFailed})
}

// All returns every operation held by the queue in enqueue order.
func (q *Queue) All() []*Operation {
	return q.store.ListOperations(Filter{})
}

// PendingCount returns the number of Ready operations.
func (q *Queue) PendingCount() int {
	return q.store.CountOperations(Filter{State: StateReady})
}

// CompletedCount returns the number of Completed operations.
func (q *Queue) CompletedCount() int {
	return q.store.CountOperations(Filter{State: StateCompleted})
}

// FailedCount returns the number of failed operations.
func (q *Queue) FailedCount() int {
	return q.store.CountOperations(Filter{Status: StatusFailed})
}

// ClearCompleted removes only Completed operations and returns the
// removed count. Ready operations are untouched.
func (q *Queue) ClearCompleted() int {
	return q.store.ClearCompletedOperations()
}

// ──────────────────────────────────────────────────
// Change notification
// ──────────────────────────────────────────────────

func (q *Queue) broadcast() {
	q.mu.Lock()
	defer q.mu.Unlock()
	close(q.change)
	q.change = make(chan struct{})
}

func (q *Queue) changeCh() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.change
}

func elapsedOf(op *Operation) time.Duration {
	if op.StartedAt == nil || op.CompletedAt == nil {
		return 0
	}
	return op.CompletedAt.Sub(*op.StartedAt)
}
