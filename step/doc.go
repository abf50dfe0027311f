// Package step defines step registrations — the binding of a plugin to a
// (message, entity, stage) trigger — along with their validation, the
// registration store interface, and declarative registration conversion.
//
// A registration carries everything the dispatcher needs to decide
// whether and how to run a plugin: rank for ordering, filtering
// attributes for Update triggers, image specs for snapshot construction,
// execution mode, and the opaque configuration strings handed to the
// handler.
package step
