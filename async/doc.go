// Package async provides the deferred-execution queue for steps
// registered with asynchronous mode.
//
// Each deferred invocation is tracked as an [Operation]: a job with a
// two-state lifecycle (Ready → Completed, terminal) whose outcome is
// refined by a status (waiting → succeeded | failed). The dispatcher
// captures the registration and assembled invocation in a closure and
// enqueues the operation; nothing runs until the queue is asked to
// execute, unless auto-execute is on.
//
// Failures of deferred invocations are recorded on the operation —
// they are never raised to the caller and never stop a drain. Callers
// observe them through the Failed view or the operation's IsFailed and
// ErrorMessage fields.
package async
