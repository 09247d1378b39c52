// Package audit defines the audit-trail contract the governance engine
// writes to.
//
// The engine treats the trail as a sink: it emits an Event for every
// significant transition (action evaluated, rule triggered, approval
// requested or resolved, rate limit hit) carrying a correlation id that
// links every event produced while resolving one action. An external reader
// can reconstruct the full decision trail for an action from its
// correlation id alone.
//
// Subpackages:
//
//   - recorder: asynchronous Sink implementation that enqueues events and
//     drains them to a Store on a background worker, so the decision path
//     never blocks on persistence.
//   - storage: bounded in-memory and sqlite-backed stores.
//   - retention: scheduled pruning of old events.
package audit
