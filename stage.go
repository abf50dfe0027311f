package pipeline

// Stage is a named point in a record operation's lifecycle where
// registered steps may run.
type Stage string

const (
	// StagePrevalidation runs before any validation of the core operation.
	StagePrevalidation Stage = "prevalidation"
	// StagePreoperation runs after validation, before the core operation.
	StagePreoperation Stage = "preoperation"
	// StagePostoperation runs after the core operation has been applied.
	StagePostoperation Stage = "postoperation"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StagePrevalidation, StagePreoperation, StagePostoperation:
		return true
	}
	return false
}

// Mode selects how a registered step is executed.
type Mode string

const (
	// ModeSynchronous runs the step inline on the calling goroutine, in
	// rank order. A failure aborts the stage call.
	ModeSynchronous Mode = "synchronous"
	// ModeAsynchronous defers the step into the async job queue. A failure
	// is recorded on the operation, never raised.
	ModeAsynchronous Mode = "asynchronous"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSynchronous || m == ModeAsynchronous
}

// Well-known platform messages. Any other string is a valid custom message;
// only these three carry special image and filtering semantics.
const (
	MessageCreate = "Create"
	MessageUpdate = "Update"
	MessageDelete = "Delete"
)

// ImageKind selects which snapshot an image spec is built from.
type ImageKind string

const (
	// ImagePre builds from the record state before the core operation.
	ImagePre ImageKind = "pre"
	// ImagePost builds from the record state after the core operation.
	ImagePost ImageKind = "post"
	// ImageBoth registers the spec under one name in both the pre and the
	// post image collections, each side subject to message availability.
	ImageBoth ImageKind = "both"
)

// Valid reports whether k is a known image kind.
func (k ImageKind) Valid() bool {
	switch k {
	case ImagePre, ImagePost, ImageBoth:
		return true
	}
	return false
}

// ImageSpec declares a named, attribute-filtered record snapshot a step
// wants to receive. An empty attribute list keeps all attributes.
type ImageSpec struct {
	Name       string    `json:"name"`
	Kind       ImageKind `json:"kind"`
	Attributes []string  `json:"attributes,omitempty"`
}
