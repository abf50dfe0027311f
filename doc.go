// Package pipeline provides an in-process simulation of a business-record
// platform's plugin execution pipeline. It models the staged dispatch of
// registered business-logic handlers ("steps") around Create/Update/Delete
// style record operations, including before/after record images, recursion
// depth guarding, and a deferred-execution queue for steps registered as
// asynchronous.
//
// The package is a test double: nothing is persisted, no network is
// involved, and all state lives for the process lifetime. The record
// storage engine under test calls ExecuteStage on an engine.Engine once
// per (message, stage) boundary; test authors register steps and inspect
// the async queue.
//
// # Quick Start
//
//	eng := engine.New(
//	    engine.WithStore(memory.New()),
//	    engine.WithMaxDepth(8),
//	)
//
// # Architecture
//
// This root package holds the shared vocabulary (Record, Stage, Mode,
// ImageSpec, Invocation, errors). Each subsystem lives in its own package:
// step (registrations), image (snapshot building), plugin and host
// (handler contract and invocation), async (the deferred job queue),
// middleware (cross-cutting invocation wrappers), ext (lifecycle hooks),
// and store/memory (the in-memory backend). The engine package wires
// them together.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package pipeline
