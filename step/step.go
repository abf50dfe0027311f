package step

import (
	"fmt"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/id"
	"github.com/rnwood/Fake4Dataverse-sub003/plugin"
)

// Registration binds a plugin to a (message, entity, stage) trigger.
//
// Multiple registrations may share the same trigger; evaluation order is
// ascending Rank, with ties broken by registration insertion order.
// An empty EntityName makes the registration global: it matches every
// entity for its message and stage.
type Registration struct {
	ID id.StepID `json:"id"`

	// Name is a display name used in logs, errors, and async operation
	// names. Defaults to "<message>/<entity or *>/<stage>" when empty.
	Name string `json:"name"`

	// Message is the triggering operation name (Create, Update, Delete,
	// or a custom message). Required.
	Message string `json:"message"`

	// EntityName is the target entity logical name. Empty means global.
	EntityName string `json:"entity_name,omitempty"`

	// Stage selects the lifecycle point the step runs at.
	Stage pipeline.Stage `json:"stage"`

	// Mode selects synchronous (inline) or asynchronous (queued)
	// execution. Defaults to synchronous when empty.
	Mode pipeline.Mode `json:"mode"`

	// Rank orders registrations sharing a trigger; lower runs first.
	Rank int `json:"rank"`

	// FilteringAttributes restricts Update triggers to operations that
	// modified at least one of the listed attributes. Empty means
	// unfiltered. Ignored for every message other than Update.
	FilteringAttributes []string `json:"filtering_attributes,omitempty"`

	// Images declares the named record snapshots the step receives.
	Images []pipeline.ImageSpec `json:"images,omitempty"`

	// Config carries the registration's opaque configuration strings.
	Config pipeline.StepConfig `json:"config"`

	// Handler constructs the plugin instance for each invocation.
	Handler plugin.Factory `json:"-"`
}

// DisplayName returns Name, or a synthesized trigger description when
// Name is empty.
func (r *Registration) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	entity := r.EntityName
	if entity == "" {
		entity = "*"
	}
	return fmt.Sprintf("%s/%s/%s", r.Message, entity, r.Stage)
}

// Validate checks the registration for malformed fields. It is run at
// registration time so bad registrations surface immediately, not at
// dispatch time.
func (r *Registration) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil registration", pipeline.ErrInvalidRegistration)
	}
	if r.Message == "" {
		return fmt.Errorf("%w: empty message", pipeline.ErrInvalidRegistration)
	}
	if !r.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", pipeline.ErrInvalidRegistration, r.Stage)
	}
	if r.Mode != "" && !r.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", pipeline.ErrInvalidRegistration, r.Mode)
	}
	if r.Rank < 0 {
		return fmt.Errorf("%w: negative rank %d", pipeline.ErrInvalidRegistration, r.Rank)
	}
	if r.Handler == nil {
		return fmt.Errorf("%w: nil handler factory", pipeline.ErrInvalidRegistration)
	}
	for _, img := range r.Images {
		if img.Name == "" {
			return fmt.Errorf("%w: image spec with empty name", pipeline.ErrInvalidRegistration)
		}
		if !img.Kind.Valid() {
			return fmt.Errorf("%w: image %q has unknown kind %q", pipeline.ErrInvalidRegistration, img.Name, img.Kind)
		}
	}
	return nil
}

// Matches reports whether the registration triggers for the given
// message, entity, and stage. Message and stage must be equal; the
// entity matches when equal or when the registration is global.
func (r *Registration) Matches(message, entity string, stage pipeline.Stage) bool {
	if r.Message != message || r.Stage != stage {
		return false
	}
	return r.EntityName == "" || r.EntityName == entity
}

// AppliesTo reports whether the registration qualifies for execution
// given the modified attribute set of the triggering operation.
//
// Filtering only applies when the message is Update, the registration
// carries a non-empty filter set, and the operation reports a non-empty
// modified set. In every other case the registration always qualifies.
func (r *Registration) AppliesTo(message string, modified []string) bool {
	if message != pipeline.MessageUpdate {
		return true
	}
	if len(r.FilteringAttributes) == 0 || len(modified) == 0 {
		return true
	}
	modSet := make(map[string]struct{}, len(modified))
	for _, m := range modified {
		modSet[m] = struct{}{}
	}
	for _, f := range r.FilteringAttributes {
		if _, ok := modSet[f]; ok {
			return true
		}
	}
	return false
}
