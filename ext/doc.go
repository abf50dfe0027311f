// Package ext defines the extension system for the pipeline.
//
// Extensions are notified of lifecycle events and can react to them —
// recording handler activity for assertions, writing audit entries,
// simulating downstream side effects, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type Recorder struct{ mu sync.Mutex; steps []string }
//
//	func (r *Recorder) Name() string { return "recorder" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (r *Recorder) OnStepCompleted(ctx context.Context, inv *pipeline.Invocation, elapsed time.Duration) error {
//	    r.mu.Lock()
//	    defer r.mu.Unlock()
//	    r.steps = append(r.steps, inv.StepName)
//	    return nil
//	}
//
// # Stage Lifecycle Hooks
//
//   - [StageStarted] — a stage dispatch began
//   - [StageCompleted] — every matched step of a stage call was dispatched
//
// # Step Lifecycle Hooks
//
//   - [StepStarted] — a step handler is about to run
//   - [StepCompleted] — a step handler returned successfully
//   - [StepFailed] — a step handler failed
//   - [StepSkipped] — a matched step was excluded by attribute filtering
//
// # Async Operation Hooks
//
//   - [AsyncEnqueued] — an operation was accepted by the queue
//   - [AsyncCompleted] — an operation executed successfully
//   - [AsyncFailed] — an operation's captured invocation failed
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
