// Package plugin defines the handler contract for pipeline steps.
//
// A Plugin is one unit of registered business logic. The host constructs
// a fresh instance through the registration's Factory for every
// invocation, so implementations must not rely on state surviving across
// calls; anything a test needs to observe should flow through the
// invocation or an injected recorder extension.
package plugin

import (
	"context"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
)

// Plugin is a registered unit of business logic tied to a
// (message, entity, stage) trigger.
type Plugin interface {
	// Execute runs the plugin against one invocation. Mutations to
	// inv.Target are visible to the pipeline caller. A returned error
	// fails the invocation; how the failure propagates depends on the
	// registration's mode.
	Execute(ctx context.Context, inv *pipeline.Invocation) error
}

// Factory constructs a plugin instance. The host calls it once per
// invocation; no instance is ever reused implicitly.
type Factory func() Plugin

// Func adapts an ordinary function to the Plugin interface.
type Func func(ctx context.Context, inv *pipeline.Invocation) error

// Execute implements Plugin.
func (f Func) Execute(ctx context.Context, inv *pipeline.Invocation) error {
	return f(ctx, inv)
}

// FromFunc wraps a function as a Factory. The function itself carries no
// per-invocation state, so returning the same adapter each time still
// satisfies the fresh-instance contract.
func FromFunc(f Func) Factory {
	return func() Plugin { return f }
}
