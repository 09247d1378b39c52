package engine

import (
	"reflect"
	"strings"

	"warden-hq/warden/pkg/rules"
)

// matchRule evaluates a rule's conditions against the action and context
// bag under the rule's condition logic.
//
// The error return is non-nil only for an unrecognized operator; the
// caller excludes such a rule from matching entirely. Everything else is
// fail-open: a condition over an absent field simply evaluates per its
// operator's absence semantics.
func matchRule(rule *rules.BusinessRule, action *rules.AgentAction, bag map[string]interface{}) (bool, error) {
	switch rule.Logic() {
	case rules.LogicAny:
		// An empty condition list never matches under any.
		for _, cond := range rule.Conditions {
			ok, err := evaluateCondition(cond, action, bag)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	default:
		// An empty condition list matches unconditionally under all.
		for _, cond := range rule.Conditions {
			ok, err := evaluateCondition(cond, action, bag)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// evaluateCondition evaluates one field/operator/value test. Side-effect
// free, deterministic, and safe to run concurrently.
func evaluateCondition(cond rules.Condition, action *rules.AgentAction, bag map[string]interface{}) (bool, error) {
	value, present := resolveField(cond.Field, action, bag)

	switch cond.Operator {
	case rules.OperatorEquals:
		return present && valuesEqual(value, cond.Value), nil

	case rules.OperatorNotEquals:
		return !present || !valuesEqual(value, cond.Value), nil

	case rules.OperatorContains:
		if !present {
			return false, nil
		}
		return containsValue(value, cond.Value), nil

	case rules.OperatorIn:
		return present && memberOf(value, cond.Value), nil

	case rules.OperatorNotIn:
		return !present || !memberOf(value, cond.Value), nil

	case rules.OperatorExists:
		return present, nil

	case rules.OperatorNotExists:
		return !present, nil

	case rules.OperatorGreaterThan:
		if !present {
			return false, nil
		}
		a, b, ok := bothNumeric(value, cond.Value)
		return ok && a > b, nil

	case rules.OperatorLessThan:
		if !present {
			return false, nil
		}
		a, b, ok := bothNumeric(value, cond.Value)
		return ok && a < b, nil

	default:
		return false, &UnknownOperatorError{
			Field:    cond.Field,
			Operator: string(cond.Operator),
		}
	}
}

// valuesEqual compares two values, coercing numerics so an int from the
// caller equals a float64 from YAML.
func valuesEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	an, aok := toFloat64(a)
	bn, bok := toFloat64(b)
	if aok && bok {
		return an == bn
	}

	return reflect.DeepEqual(a, b)
}

// containsValue reports whether haystack is a string containing needle as
// a substring, or a list containing it as an element.
func containsValue(haystack, needle interface{}) bool {
	if s, ok := haystack.(string); ok {
		n, ok := needle.(string)
		return ok && strings.Contains(s, n)
	}

	v := reflect.ValueOf(haystack)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if valuesEqual(v.Index(i).Interface(), needle) {
			return true
		}
	}
	return false
}

// memberOf reports whether value is an element of the comparison list.
func memberOf(value, list interface{}) bool {
	v := reflect.ValueOf(list)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if valuesEqual(v.Index(i).Interface(), value) {
			return true
		}
	}
	return false
}

// bothNumeric converts both operands to float64 for ordering comparison.
func bothNumeric(a, b interface{}) (float64, float64, bool) {
	an, aok := toFloat64(a)
	bn, bok := toFloat64(b)
	return an, bn, aok && bok
}

// toFloat64 converts a numeric value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
