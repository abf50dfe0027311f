// Package engine wires all pipeline subsystems together and provides
// the primary application-level API: registering steps and dispatching
// stage calls around simulated record operations.
//
// # Building an Engine
//
//	eng := engine.New(
//	    engine.WithMaxDepth(8),
//	    engine.WithExtension(myRecorder),
//	    engine.WithMiddleware(mw.Metrics()),
//	)
//
// With no options the engine is fully self-contained: an in-memory
// store, the default logger, and the default configuration.
//
// # Registering Steps
//
//	err := eng.RegisterStep(&step.Registration{
//	    Message:    pipeline.MessageUpdate,
//	    EntityName: "account",
//	    Stage:      pipeline.StagePostoperation,
//	    Mode:       pipeline.ModeAsynchronous,
//	    Handler:    func() plugin.Plugin { return &FollowupPlugin{} },
//	})
//
// Sources that implement step.Describes can be registered declaratively
// through RegisterSources.
//
// # Dispatching
//
// The record storage engine calls ExecuteStage once per (message, stage)
// boundary of every core operation:
//
//	err := eng.ExecuteStage(ctx, &pipeline.StageRequest{
//	    Message:    pipeline.MessageCreate,
//	    EntityName: "account",
//	    Stage:      pipeline.StagePreoperation,
//	    Target:     rec,
//	})
//
// A synchronous step failure surfaces as *pipeline.ExecutionError and
// must abort the simulated operation. Asynchronous steps land in
// eng.Queue(), where tests drain and inspect them.
package engine
