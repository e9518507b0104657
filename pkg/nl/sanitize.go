package nl

import "time"

// SanitizeSlots renders extracted slot values into JSON-friendly shapes:
// dates become YYYY-MM-DD strings and ranges become nested objects with
// their bounds rendered the same way.
func SanitizeSlots(slots map[string]any) map[string]any {
	out := make(map[string]any, len(slots))
	for name, value := range slots {
		out[name] = sanitizeValue(value)
	}
	return out
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format("2006-01-02")
	case Range:
		return map[string]any{
			"label":      v.Label,
			"start_date": v.StartDate.Format("2006-01-02"),
			"end_date":   v.EndDate.Format("2006-01-02"),
		}
	case map[string]any:
		nested := make(map[string]any, len(v))
		for k, inner := range v {
			nested[k] = sanitizeValue(inner)
		}
		return nested
	case []any:
		list := make([]any, len(v))
		for i, inner := range v {
			list[i] = sanitizeValue(inner)
		}
		return list
	default:
		return value
	}
}
