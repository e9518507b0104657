package nl

import (
	"fmt"
	"strconv"
	"strings"
)

// checkValidatorRule verifies a rule string parses, so a malformed
// catalogue entry fails at load instead of silently skipping intents at
// request time.
func checkValidatorRule(rule string) error {
	switch {
	case rule == "required":
		return nil
	case strings.HasPrefix(rule, "gte:"):
		if _, err := strconv.ParseFloat(rule[len("gte:"):], 64); err != nil {
			return fmt.Errorf("invalid validator %q: %w", rule, err)
		}
		return nil
	case strings.HasPrefix(rule, "enum:"):
		if strings.TrimSpace(rule[len("enum:"):]) == "" {
			return fmt.Errorf("invalid validator %q: empty option set", rule)
		}
		return nil
	default:
		return fmt.Errorf("unknown validator %q", rule)
	}
}

// applyValidator runs one rule against an extracted value. A returned
// error is a skip signal for the owning intent, not a request failure.
func applyValidator(rule string, value any) error {
	switch {
	case rule == "required":
		if isEmptyValue(value) {
			return fmt.Errorf("required value missing")
		}
	case strings.HasPrefix(rule, "gte:"):
		if value == nil {
			return nil
		}
		threshold, _ := strconv.ParseFloat(rule[len("gte:"):], 64)
		n, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("value %v is not numeric", value)
		}
		if n < threshold {
			return fmt.Errorf("value %v below minimum %v", value, threshold)
		}
	case strings.HasPrefix(rule, "enum:"):
		if value == nil {
			return nil
		}
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("value %v is not a string", value)
		}
		// Exact comparison; extractors emit canonical casing and anything
		// else must skip the intent rather than silently widen the set.
		for _, opt := range strings.Split(rule[len("enum:"):], ",") {
			if strings.TrimSpace(opt) == s {
				return nil
			}
		}
		return fmt.Errorf("value %q outside allowed options", s)
	}
	return nil
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
