package pipeline

// StepConfig carries the two opaque configuration strings attached to a
// step registration. The pipeline passes them through uninterpreted.
type StepConfig struct {
	Unsecure string `json:"unsecure,omitempty"`
	Secure   string `json:"secure,omitempty"`
}

// Invocation is the per-call payload handed to a step handler. One is
// assembled fresh for every handler invocation and discarded afterwards.
//
// Target is shared with the caller of ExecuteStage: mutations a handler
// makes to it are visible after the stage call returns (or, for an
// asynchronous step, after the queued operation executes).
type Invocation struct {
	// StepName is the display name of the registration being invoked.
	StepName string
	// Message is the platform message that triggered the pipeline.
	Message string
	// EntityName is the logical entity name of the target record.
	EntityName string
	// Stage is the pipeline stage being executed.
	Stage Stage
	// Mode is the execution mode of the registration.
	Mode Mode
	// Depth is the current nested pipeline invocation depth.
	Depth int
	// Target is the mutable record the core operation acts on.
	Target *Record
	// PreImages maps image spec names to filtered before-snapshots.
	PreImages map[string]*Record
	// PostImages maps image spec names to filtered after-snapshots.
	PostImages map[string]*Record
	// Config holds the registration's opaque configuration strings.
	Config StepConfig
	// CallerID is an opaque caller identity passed through from the
	// storage engine, never interpreted by the pipeline.
	CallerID string
}

// PreImage returns the named pre-image and whether it was built.
func (inv *Invocation) PreImage(name string) (*Record, bool) {
	img, ok := inv.PreImages[name]
	return img, ok
}

// PostImage returns the named post-image and whether it was built.
func (inv *Invocation) PostImage(name string) (*Record, bool) {
	img, ok := inv.PostImages[name]
	return img, ok
}

// StageRequest describes one (message, stage) boundary around a core
// record operation. The record storage engine builds one per boundary
// and passes it to ExecuteStage.
type StageRequest struct {
	// Message is the logical operation name (Create, Update, Delete, or
	// a custom message).
	Message string
	// EntityName is the logical entity name of the target record.
	EntityName string
	// Stage selects which registrations run.
	Stage Stage
	// Target is the mutable record of the core operation. Handlers see
	// and mutate this exact record.
	Target *Record
	// ModifiedAttributes lists the attribute names changed by the core
	// operation. Only meaningful for Update; attribute filtering is
	// ignored for every other message.
	ModifiedAttributes []string
	// Depth is the current nested invocation depth. The storage engine
	// increments it when a handler triggers a further operation.
	Depth int
	// PreSnapshot is the full record state before the core operation,
	// when one exists. Used for pre-image construction.
	PreSnapshot *Record
	// PostSnapshot is the full record state after the core operation,
	// when one exists. Used for post-image construction.
	PostSnapshot *Record
	// CallerID is an opaque caller identity, passed through.
	CallerID string
}
