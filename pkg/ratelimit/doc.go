// Package ratelimit implements fixed-window rate limiting keyed by scope.
//
// A scope key identifies what is being limited (typically rule id, agent id,
// and limit type joined together). Each scope holds one counter and one
// window start; when the window elapses the counter resets. Check performs
// the window reset, the increment, and the limit comparison as a single
// atomic step so concurrent callers on the same scope cannot race past the
// limit.
package ratelimit
