// Package approval implements the human-approval lifecycle for governed
// agent actions.
//
// A request is created pending and moves to exactly one of four terminal
// states: approved, denied, cancelled, or expired. Terminal states are
// absorbing. Expiry is checked at resolution time: approving or denying a
// request past its deadline forces it to expired instead, so a late approval
// never wins a race against the clock. Cancellation is explicit caller
// intent and takes effect regardless of expiry (see Manager.Cancel).
//
// The manager keeps pending and resolved requests in memory only. Resolved
// history is bounded; the oldest resolved requests are evicted once the cap
// is exceeded.
package approval
