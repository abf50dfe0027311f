package pipeline

// DefaultMaxDepth is the recursion ceiling applied when none is configured.
// It matches the default of the platform being simulated.
const DefaultMaxDepth = 8

// Config holds configuration for the pipeline engine.
type Config struct {
	// MaxDepth is the maximum nested pipeline invocation depth. A stage
	// call arriving with a depth greater than this fails with
	// RecursionLimitError before any handler runs.
	MaxDepth int

	// AutoExecute makes every async enqueue run the operation to
	// completion synchronously before returning. The operation is still
	// recorded as a completed job, never as a no-op.
	AutoExecute bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    DefaultMaxDepth,
		AutoExecute: false,
	}
}
