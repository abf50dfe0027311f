package engine_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/engine"
	"github.com/rnwood/Fake4Dataverse-sub003/plugin"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithLogger(testLogger())}, opts...)
	return engine.New(opts...)
}

// recorder observes step execution order across the whole pipeline.
type recorder struct {
	mu      sync.Mutex
	steps   []string
	skipped []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnStepCompleted(_ context.Context, inv *pipeline.Invocation, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, inv.StepName)
	return nil
}

func (r *recorder) OnStepSkipped(_ context.Context, reg *step.Registration, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, reg.DisplayName())
	return nil
}

func (r *recorder) executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

func noop() plugin.Plugin {
	return plugin.Func(func(_ context.Context, _ *pipeline.Invocation) error { return nil })
}

func createRequest(entity string, target *pipeline.Record) *pipeline.StageRequest {
	return &pipeline.StageRequest{
		Message:      pipeline.MessageCreate,
		EntityName:   entity,
		Stage:        pipeline.StagePreoperation,
		Target:       target,
		PostSnapshot: target,
	}
}

// ---------------------------------------------------------------------------
// Synchronous dispatch
// ---------------------------------------------------------------------------

func TestSyncStepMutatesTarget(t *testing.T) {
	eng := newEngine(t)

	err := eng.RegisterStep(&step.Registration{
		Name:       "set-number",
		Message:    pipeline.MessageCreate,
		EntityName: "account",
		Stage:      pipeline.StagePreoperation,
		Handler: func() plugin.Plugin {
			return plugin.Func(func(_ context.Context, inv *pipeline.Invocation) error {
				inv.Target.Set("accountnumber", "ACC-0001")
				return nil
			})
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	target := pipeline.NewRecord("account")
	target.Set("name", "Contoso")

	if err := eng.ExecuteStage(context.Background(), createRequest("account", target)); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	if got, _ := target.Get("accountnumber"); got != "ACC-0001" {
		t.Fatalf("handler mutation not visible on target: %v", got)
	}
}

func TestRankOrderAcrossRegistrations(t *testing.T) {
	rec := &recorder{}
	eng := newEngine(t, engine.WithExtension(rec))

	appendStep := func(name string, rank int) *step.Registration {
		return &step.Registration{
			Name:       name,
			Message:    pipeline.MessageCreate,
			EntityName: "account",
			Stage:      pipeline.StagePreoperation,
			Rank:       rank,
			Handler:    noop,
		}
	}

	// Registered out of order, with a rank tie between second-a and
	// second-b that must preserve registration order.
	regs := []*step.Registration{
		appendStep("third", 30),
		appendStep("second-a", 20),
		appendStep("first", 10),
		appendStep("second-b", 20),
	}
	if err := eng.RegisterSteps(regs...); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := eng.ExecuteStage(context.Background(), createRequest("account", pipeline.NewRecord("account"))); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	want := []string{"first", "second-a", "second-b", "third"}
	got := rec.executed()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestGlobalRegistrationMatchesEveryEntity(t *testing.T) {
	rec := &recorder{}
	eng := newEngine(t, engine.WithExtension(rec))

	err := eng.RegisterStep(&step.Registration{
		Name:    "audit-everything",
		Message: pipeline.MessageCreate,
		Stage:   pipeline.StagePreoperation,
		Handler: noop,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, entity := range []string{"account", "contact"} {
		if err := eng.ExecuteStage(context.Background(), createRequest(entity, pipeline.NewRecord(entity))); err != nil {
			t.Fatalf("execute stage for %s: %v", entity, err)
		}
	}

	if got := rec.executed(); len(got) != 2 {
		t.Fatalf("expected global step to run for both entities, got %v", got)
	}
}

func TestSyncFailureAbortsRemainingSteps(t *testing.T) {
	rec := &recorder{}
	eng := newEngine(t, engine.WithExtension(rec))

	handlerErr := errors.New("credit check failed")
	regs := []*step.Registration{
		{
			Name: "validate", Message: pipeline.MessageCreate, EntityName: "account",
			Stage: pipeline.StagePreoperation, Rank: 10,
			Handler: func() plugin.Plugin {
				return plugin.Func(func(_ context.Context, _ *pipeline.Invocation) error {
					return handlerErr
				})
			},
		},
		{
			Name: "never-runs", Message: pipeline.MessageCreate, EntityName: "account",
			Stage: pipeline.StagePreoperation, Rank: 20, Handler: noop,
		},
	}
	if err := eng.RegisterSteps(regs...); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := eng.ExecuteStage(context.Background(), createRequest("account", pipeline.NewRecord("account")))
	if err == nil {
		t.Fatal("expected stage call to fail")
	}

	var execErr *pipeline.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T: %v", err, err)
	}
	if execErr.StepName != "validate" {
		t.Fatalf("expected failing step %q, got %q", "validate", execErr.StepName)
	}
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	if got := rec.executed(); len(got) != 0 {
		t.Fatalf("expected no completed steps after abort, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Attribute filtering
// ---------------------------------------------------------------------------

func TestUpdateAttributeFiltering(t *testing.T) {
	rec := &recorder{}
	eng := newEngine(t, engine.WithExtension(rec))

	err := eng.RegisterStep(&step.Registration{
		Name:                "on-name-change",
		Message:             pipeline.MessageUpdate,
		EntityName:          "account",
		Stage:               pipeline.StagePostoperation,
		FilteringAttributes: []string{"name", "accountnumber"},
		Handler:             noop,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	update := func(modified ...string) *pipeline.StageRequest {
		return &pipeline.StageRequest{
			Message:            pipeline.MessageUpdate,
			EntityName:         "account",
			Stage:              pipeline.StagePostoperation,
			Target:             pipeline.NewRecord("account"),
			ModifiedAttributes: modified,
		}
	}

	tests := []struct {
		name     string
		modified []string
		wantRun  bool
	}{
		{"matching attribute", []string{"name"}, true},
		{"no overlap", []string{"telephone1"}, false},
		{"empty modified set runs", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(rec.executed())
			if err := eng.ExecuteStage(context.Background(), update(tt.modified...)); err != nil {
				t.Fatalf("execute stage: %v", err)
			}
			ran := len(rec.executed()) > before
			if ran != tt.wantRun {
				t.Fatalf("expected run=%v, got run=%v", tt.wantRun, ran)
			}
		})
	}
}

func TestFilteringIgnoredForNonUpdate(t *testing.T) {
	rec := &recorder{}
	eng := newEngine(t, engine.WithExtension(rec))

	// A filter on a Create registration must not suppress execution.
	err := eng.RegisterStep(&step.Registration{
		Name:                "filtered-create",
		Message:             pipeline.MessageCreate,
		EntityName:          "account",
		Stage:               pipeline.StagePreoperation,
		FilteringAttributes: []string{"name"},
		Handler:             noop,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := eng.ExecuteStage(context.Background(), createRequest("account", pipeline.NewRecord("account"))); err != nil {
		t.Fatalf("execute stage: %v", err)
	}
	if got := rec.executed(); len(got) != 1 {
		t.Fatalf("expected filtered Create registration to run, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

func TestImagesFollowMessageAvailability(t *testing.T) {
	eng := newEngine(t)

	var gotPre, gotPost map[string]*pipeline.Record
	err := eng.RegisterStep(&step.Registration{
		Name:       "image-probe",
		Message:    pipeline.MessageCreate,
		EntityName: "account",
		Stage:      pipeline.StagePostoperation,
		Images: []pipeline.ImageSpec{
			{Name: "snapshot", Kind: pipeline.ImageBoth, Attributes: []string{"name"}},
		},
		Handler: func() plugin.Plugin {
			return plugin.Func(func(_ context.Context, inv *pipeline.Invocation) error {
				gotPre = inv.PreImages
				gotPost = inv.PostImages
				return nil
			})
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	target := pipeline.NewRecord("account")
	target.Set("name", "Contoso")
	target.Set("telephone1", "555-0100")

	req := &pipeline.StageRequest{
		Message:      pipeline.MessageCreate,
		EntityName:   "account",
		Stage:        pipeline.StagePostoperation,
		Target:       target,
		PostSnapshot: target,
	}
	if err := eng.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	// Create has no prior state, so the Both spec contributes only a
	// post-image.
	if len(gotPre) != 0 {
		t.Fatalf("expected no pre-images for Create, got %v", gotPre)
	}
	post, ok := gotPost["snapshot"]
	if !ok {
		t.Fatal("expected post-image named snapshot")
	}
	if _, ok := post.Get("name"); !ok {
		t.Fatal("post-image missing requested attribute")
	}
	if _, ok := post.Get("telephone1"); ok {
		t.Fatal("post-image leaked an unrequested attribute")
	}
}

// ---------------------------------------------------------------------------
// Depth guard
// ---------------------------------------------------------------------------

func TestDepthLimit(t *testing.T) {
	eng := newEngine(t, engine.WithMaxDepth(3))

	if err := eng.RegisterStep(&step.Registration{
		Name: "probe", Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePreoperation, Handler: noop,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := func(depth int) *pipeline.StageRequest {
		r := createRequest("account", pipeline.NewRecord("account"))
		r.Depth = depth
		return r
	}

	// Depth equal to the limit still runs.
	if err := eng.ExecuteStage(context.Background(), req(3)); err != nil {
		t.Fatalf("depth at limit should pass: %v", err)
	}

	err := eng.ExecuteStage(context.Background(), req(4))
	var limitErr *pipeline.RecursionLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected RecursionLimitError, got %v", err)
	}
	if limitErr.Depth != 4 || limitErr.Limit != 3 {
		t.Fatalf("unexpected error fields: %+v", limitErr)
	}
}

func TestDepthLimitIndependentCalls(t *testing.T) {
	rec := &recorder{}
	eng := newEngine(t, engine.WithMaxDepth(2), engine.WithExtension(rec))

	if err := eng.RegisterStep(&step.Registration{
		Name: "probe", Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePreoperation, Handler: noop,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	deep := createRequest("account", pipeline.NewRecord("account"))
	deep.Depth = 5
	if err := eng.ExecuteStage(context.Background(), deep); err == nil {
		t.Fatal("expected deep call to fail")
	}

	// A fresh top-level call is unaffected by the rejected one.
	if err := eng.ExecuteStage(context.Background(), createRequest("account", pipeline.NewRecord("account"))); err != nil {
		t.Fatalf("independent call failed: %v", err)
	}
	if got := rec.executed(); len(got) != 1 {
		t.Fatalf("expected exactly one execution, got %v", got)
	}
}

func TestSetMaxDepth(t *testing.T) {
	eng := newEngine(t)

	if eng.MaxDepth() != pipeline.DefaultMaxDepth {
		t.Fatalf("expected default max depth %d, got %d", pipeline.DefaultMaxDepth, eng.MaxDepth())
	}

	eng.SetMaxDepth(2)
	if eng.MaxDepth() != 2 {
		t.Fatalf("expected max depth 2, got %d", eng.MaxDepth())
	}

	// Non-positive values are ignored.
	eng.SetMaxDepth(0)
	if eng.MaxDepth() != 2 {
		t.Fatalf("expected max depth unchanged, got %d", eng.MaxDepth())
	}
}

// ---------------------------------------------------------------------------
// Async dispatch
// ---------------------------------------------------------------------------

func asyncRegistration(name string, handler plugin.Factory) *step.Registration {
	return &step.Registration{
		Name:       name,
		Message:    pipeline.MessageCreate,
		EntityName: "account",
		Stage:      pipeline.StagePostoperation,
		Mode:       pipeline.ModeAsynchronous,
		Handler:    handler,
	}
}

func TestAsyncStepDeferred(t *testing.T) {
	eng := newEngine(t)

	ran := false
	if err := eng.RegisterStep(asyncRegistration("deferred", func() plugin.Plugin {
		return plugin.Func(func(_ context.Context, _ *pipeline.Invocation) error {
			ran = true
			return nil
		})
	})); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := eng.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	if ran {
		t.Fatal("async handler ran during the stage call")
	}
	if n := eng.Queue().PendingCount(); n != 1 {
		t.Fatalf("expected 1 pending operation, got %d", n)
	}

	if n := eng.Queue().ExecuteAll(context.Background()); n != 1 {
		t.Fatalf("expected drain to process 1 operation, got %d", n)
	}
	if !ran {
		t.Fatal("async handler did not run on drain")
	}
	if n := eng.Queue().CompletedCount(); n != 1 {
		t.Fatalf("expected 1 completed operation, got %d", n)
	}
}

func TestAsyncFailureRecordedNotRaised(t *testing.T) {
	eng := newEngine(t)

	if err := eng.RegisterStep(asyncRegistration("explodes", func() plugin.Plugin {
		return plugin.Func(func(_ context.Context, _ *pipeline.Invocation) error {
			return errors.New("downstream unavailable")
		})
	})); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := eng.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	// The drain itself reports success; the failure lives on the operation.
	if n := eng.Queue().ExecuteAll(context.Background()); n != 1 {
		t.Fatalf("expected drain to process 1 operation, got %d", n)
	}

	failed := eng.Queue().Failed()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed operation, got %d", len(failed))
	}
	op := failed[0]
	if !op.IsCompleted() || !op.IsFailed() {
		t.Fatalf("unexpected terminal state: %s/%s", op.State, op.Status)
	}
	if op.ErrorMessage != "downstream unavailable" {
		t.Fatalf("unexpected recorded error: %q", op.ErrorMessage)
	}
}

func TestSyncFailureKeepsEarlierAsyncEnqueued(t *testing.T) {
	eng := newEngine(t)

	asyncFirst := asyncRegistration("async-first", noop)
	asyncFirst.Rank = 10
	failing := &step.Registration{
		Name: "sync-fails", Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePostoperation, Rank: 20,
		Handler: func() plugin.Plugin {
			return plugin.Func(func(_ context.Context, _ *pipeline.Invocation) error {
				return errors.New("boom")
			})
		},
	}
	if err := eng.RegisterSteps(asyncFirst, failing); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := eng.ExecuteStage(context.Background(), req); err == nil {
		t.Fatal("expected stage call to fail")
	}

	// The operation enqueued before the failure stays queued. Whether the
	// caller discards it on rollback is the storage engine's decision.
	if n := eng.Queue().PendingCount(); n != 1 {
		t.Fatalf("expected earlier async operation to remain, got %d pending", n)
	}
}

func TestAutoExecute(t *testing.T) {
	eng := newEngine(t, engine.WithAutoExecute(true))

	ran := false
	if err := eng.RegisterStep(asyncRegistration("auto", func() plugin.Plugin {
		return plugin.Func(func(_ context.Context, _ *pipeline.Invocation) error {
			ran = true
			return nil
		})
	})); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := eng.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	if !ran {
		t.Fatal("auto-execute did not run the operation inline")
	}
	// Still recorded as a completed job, never a no-op.
	if n := eng.Queue().CompletedCount(); n != 1 {
		t.Fatalf("expected 1 completed operation, got %d", n)
	}
	if n := eng.Queue().PendingCount(); n != 0 {
		t.Fatalf("expected no pending operations, got %d", n)
	}
}

func TestWaitForAll(t *testing.T) {
	eng := newEngine(t)

	if err := eng.RegisterStep(asyncRegistration("slow", noop)); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := eng.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	done := eng.Queue().ExecuteAllAsync(context.Background())
	if ok := eng.Queue().WaitForAll(context.Background(), time.Second); !ok {
		t.Fatal("queue did not drain within the timeout")
	}
	if n := <-done; n != 1 {
		t.Fatalf("expected background drain to process 1 operation, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// Nested dispatch through a handler
// ---------------------------------------------------------------------------

func TestNestedDispatchStopsAtDepthLimit(t *testing.T) {
	eng := newEngine(t, engine.WithMaxDepth(3))

	var depths []int
	err := eng.RegisterStep(&step.Registration{
		Name: "cascading", Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePreoperation,
		Handler: func() plugin.Plugin {
			return plugin.Func(func(ctx context.Context, inv *pipeline.Invocation) error {
				depths = append(depths, inv.Depth)
				nested := createRequest("account", pipeline.NewRecord("account"))
				nested.Depth = inv.Depth + 1
				nestedErr := eng.ExecuteStage(ctx, nested)
				var limitErr *pipeline.RecursionLimitError
				if errors.As(nestedErr, &limitErr) {
					// The cascade stops here; the handler itself succeeds.
					return nil
				}
				return nestedErr
			})
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first := createRequest("account", pipeline.NewRecord("account"))
	first.Depth = 1
	if err := eng.ExecuteStage(context.Background(), first); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	// Depths 1, 2, 3 run; the call at depth 4 is rejected.
	want := []int{1, 2, 3}
	if len(depths) != len(want) {
		t.Fatalf("expected executions at depths %v, got %v", want, depths)
	}
	for i := range want {
		if depths[i] != want[i] {
			t.Fatalf("expected depths %v, got %v", want, depths)
		}
	}
}

// ---------------------------------------------------------------------------
// Registration management
// ---------------------------------------------------------------------------

func TestRegisterStepValidates(t *testing.T) {
	eng := newEngine(t)

	err := eng.RegisterStep(&step.Registration{
		Message: "", Stage: pipeline.StagePreoperation, Handler: noop,
	})
	if !errors.Is(err, pipeline.ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
	if eng.CountSteps() != 0 {
		t.Fatal("invalid registration was stored")
	}
}

func TestRegisterStepDefaultsIDAndName(t *testing.T) {
	eng := newEngine(t)

	reg := &step.Registration{
		Message:    pipeline.MessageDelete,
		EntityName: "contact",
		Stage:      pipeline.StagePrevalidation,
		Handler:    noop,
	}
	if err := eng.RegisterStep(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	if reg.ID.IsNil() {
		t.Fatal("expected a generated step ID")
	}
	if reg.Name != "Delete/contact/prevalidation" {
		t.Fatalf("unexpected defaulted name: %q", reg.Name)
	}
}

type describedPlugins struct {
	entities []string
}

func (d *describedPlugins) StepRegistrations() []*step.Registration {
	regs := make([]*step.Registration, 0, len(d.entities))
	for _, entity := range d.entities {
		regs = append(regs, &step.Registration{
			Name:       fmt.Sprintf("described-%s", entity),
			Message:    pipeline.MessageCreate,
			EntityName: entity,
			Stage:      pipeline.StagePreoperation,
			Handler:    noop,
		})
	}
	return regs
}

func TestRegisterSources(t *testing.T) {
	eng := newEngine(t)

	source := &describedPlugins{entities: []string{"account", "contact"}}
	if err := eng.RegisterSources([]any{source}); err != nil {
		t.Fatalf("register sources: %v", err)
	}
	if eng.CountSteps() != 2 {
		t.Fatalf("expected 2 registrations, got %d", eng.CountSteps())
	}

	// An unrecognized source fails the whole call.
	if err := eng.RegisterSources([]any{42}); !errors.Is(err, pipeline.ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration for unknown source, got %v", err)
	}
}

func TestUnregisterAndClear(t *testing.T) {
	eng := newEngine(t)

	reg := &step.Registration{
		Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePreoperation, Handler: noop,
	}
	other := &step.Registration{
		Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePreoperation, Handler: noop,
	}
	if err := eng.RegisterSteps(reg, other); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := eng.UnregisterStep(reg); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if eng.CountSteps() != 1 {
		t.Fatalf("expected 1 step left, got %d", eng.CountSteps())
	}

	if n := eng.ClearSteps(); n != 1 {
		t.Fatalf("expected 1 cleared, got %d", n)
	}
}

func TestReset(t *testing.T) {
	eng := newEngine(t)

	if err := eng.RegisterStep(asyncRegistration("op", noop)); err != nil {
		t.Fatalf("register: %v", err)
	}
	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := eng.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	eng.Reset()

	if eng.CountSteps() != 0 {
		t.Fatalf("expected no steps after reset, got %d", eng.CountSteps())
	}
	if n := eng.Queue().PendingCount(); n != 0 {
		t.Fatalf("expected empty queue after reset, got %d pending", n)
	}
}

// ---------------------------------------------------------------------------
// Isolation
// ---------------------------------------------------------------------------

func TestEnginesAreIsolated(t *testing.T) {
	a := newEngine(t)
	b := newEngine(t)

	if err := a.RegisterStep(&step.Registration{
		Message: pipeline.MessageCreate, EntityName: "account",
		Stage: pipeline.StagePreoperation, Handler: noop,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if b.CountSteps() != 0 {
		t.Fatalf("registration leaked between engines: %d", b.CountSteps())
	}

	if err := a.RegisterStep(asyncRegistration("queued", noop)); err != nil {
		t.Fatalf("register async: %v", err)
	}
	req := createRequest("account", pipeline.NewRecord("account"))
	req.Stage = pipeline.StagePostoperation
	if err := a.ExecuteStage(context.Background(), req); err != nil {
		t.Fatalf("execute stage: %v", err)
	}

	if b.Queue().PendingCount() != 0 {
		t.Fatal("async operation leaked between engines")
	}
}
