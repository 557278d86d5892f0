package steering

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// evalCondition resolves the condition's field against the context document
// and applies its operator. Coercion rules are explicit and total: comparisons
// on incompatible types are false rather than errors, and negative operators
// match vacuously when the field is absent.
func evalCondition(doc []byte, cond Condition) bool {
	result := gjson.GetBytes(doc, cond.Field)
	operator := strings.ToLower(strings.TrimSpace(cond.Operator))

	switch operator {
	case OpExists:
		return result.Exists()
	case OpNotExists:
		return !result.Exists()
	}

	if !result.Exists() {
		switch operator {
		case OpNotEquals, OpNotContains, OpNotIn:
			return true
		default:
			return false
		}
	}

	switch operator {
	case OpEquals:
		return deepEqual(result, cond.Value)
	case OpNotEquals:
		return !deepEqual(result, cond.Value)
	case OpContains:
		return stringContains(result, cond.Value)
	case OpNotContains:
		haystack, needle, ok := stringOperands(result, cond.Value)
		if !ok {
			return false
		}
		return !strings.Contains(haystack, needle)
	case OpRegex:
		pattern, ok := cond.Value.(string)
		if !ok || result.Type != gjson.String {
			return false
		}
		matched, errMatch := regexp.MatchString(pattern, result.String())
		return errMatch == nil && matched
	case OpGt, OpLt, OpGte, OpLte:
		return compareNumeric(result, cond.Value, operator)
	case OpIn:
		return listContains(result, cond.Value)
	case OpNotIn:
		list, ok := cond.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if deepEqual(result, item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// deepEqual compares a resolved document value with a rule operand after
// normalizing both through JSON decoding, so 5 and 5.0 compare equal.
func deepEqual(result gjson.Result, operand any) bool {
	return reflect.DeepEqual(result.Value(), normalize(operand))
}

// normalize round-trips an operand through JSON so its types match decoded
// document values (numbers become float64, nested structures become
// map[string]any / []any).
func normalize(operand any) any {
	encoded, errMarshal := json.Marshal(operand)
	if errMarshal != nil {
		return operand
	}
	var decoded any
	if errUnmarshal := json.Unmarshal(encoded, &decoded); errUnmarshal != nil {
		return operand
	}
	return decoded
}

// stringOperands extracts both sides as strings, reporting whether the
// operator applies at all.
func stringOperands(result gjson.Result, operand any) (string, string, bool) {
	needle, ok := operand.(string)
	if !ok || result.Type != gjson.String {
		return "", "", false
	}
	return result.String(), needle, true
}

// stringContains implements the contains operator: string operands only.
func stringContains(result gjson.Result, operand any) bool {
	haystack, needle, ok := stringOperands(result, operand)
	if !ok {
		return false
	}
	return strings.Contains(haystack, needle)
}

// compareNumeric implements gt/lt/gte/lte: numeric operands only.
func compareNumeric(result gjson.Result, operand any, operator string) bool {
	if result.Type != gjson.Number {
		return false
	}
	threshold, ok := toFloat(operand)
	if !ok {
		return false
	}
	value := result.Float()
	switch operator {
	case OpGt:
		return value > threshold
	case OpLt:
		return value < threshold
	case OpGte:
		return value >= threshold
	case OpLte:
		return value <= threshold
	default:
		return false
	}
}

// toFloat accepts the numeric Go types a decoded rule operand may carry.
func toFloat(operand any) (float64, bool) {
	switch v := operand.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, errParse := v.Float64()
		return parsed, errParse == nil
	default:
		return 0, false
	}
}

// listContains implements the in operator: membership in the operand list.
func listContains(result gjson.Result, operand any) bool {
	list, ok := operand.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if deepEqual(result, item) {
			return true
		}
	}
	return false
}
