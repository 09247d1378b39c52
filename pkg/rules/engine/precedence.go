package engine

import (
	"warden-hq/warden/pkg/rules"
)

// precedence is the fixed ranking of action types used to pick one overall
// status when multiple rules match. It is independent of rule priority:
// priority orders the matched-rule list, precedence picks the status.
var precedence = []rules.ActionType{
	rules.ActionDeny,
	rules.ActionRequireApproval,
	rules.ActionRateLimit,
	rules.ActionEscalate,
	rules.ActionWarn,
	rules.ActionNotify,
	rules.ActionLog,
	rules.ActionAllow,
}

// resolveStatus picks the decision status from the union of action types
// present across matches.
//
// A present rate_limit action yields rate_limited only when a limiter
// check actually tripped (limitExceeded); a within-limit action falls
// through to the next action type in precedence.
func resolveStatus(present map[rules.ActionType]bool, limitExceeded bool) Status {
	for _, t := range precedence {
		if !present[t] {
			continue
		}
		switch t {
		case rules.ActionDeny:
			return StatusDenied
		case rules.ActionRequireApproval:
			return StatusPendingApproval
		case rules.ActionRateLimit:
			if limitExceeded {
				return StatusRateLimited
			}
			// Within limit: lower-precedence actions decide.
		case rules.ActionEscalate:
			return StatusRequiresReview
		default:
			// warn, notify, log, allow all let the action proceed.
			return StatusApproved
		}
	}
	return StatusApproved
}
