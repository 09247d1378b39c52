package engine

import (
	"strings"

	"warden-hq/warden/pkg/rules"
)

// resolveField resolves a dotted field path against the action's fields
// first, falling back to the context bag. The boolean distinguishes a
// present value (including a present falsy one) from an absent path.
func resolveField(path string, action *rules.AgentAction, bag map[string]interface{}) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")

	if action != nil {
		if v, ok := action.Field(parts[0]); ok {
			return walkPath(v, parts[1:])
		}
	}

	if bag != nil {
		if v, ok := bag[parts[0]]; ok {
			return walkPath(v, parts[1:])
		}
	}

	return nil, false
}

// walkPath descends the remaining path segments through nested maps.
// Any segment that does not resolve makes the whole path absent.
func walkPath(v interface{}, parts []string) (interface{}, bool) {
	for _, part := range parts {
		switch m := v.(type) {
		case map[string]interface{}:
			next, ok := m[part]
			if !ok {
				return nil, false
			}
			v = next
		case map[interface{}]interface{}:
			// YAML-decoded bags key on interface{}.
			next, ok := m[part]
			if !ok {
				return nil, false
			}
			v = next
		default:
			return nil, false
		}
	}
	return v, true
}
