package nl

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SlotKind is the closed set of extractor kinds. New kinds are added by
// extending this enumeration and the dispatch table, never at runtime.
type SlotKind string

const (
	SlotDate          SlotKind = "date"
	SlotEnum          SlotKind = "enum"
	SlotRange         SlotKind = "range"
	SlotInt           SlotKind = "int"
	SlotLimit         SlotKind = "limit"
	SlotBufferQty     SlotKind = "buffer_qty"
	SlotMenuItemID    SlotKind = "menu_item_id"
	SlotCustomerQuery SlotKind = "customer_query"
	SlotItemName      SlotKind = "item_name"
	SlotString        SlotKind = "string"
)

// extractorFunc produces a slot value from the utterance, or nil when the
// slot yields no value. Extractors never fail; absence is expressed as nil
// and judged by the slot's validators.
type extractorFunc func(slot SlotSpec, u Utterance, shared *SharedResources, today time.Time) any

var slotExtractors = map[SlotKind]extractorFunc{
	SlotDate:          extractDate,
	SlotEnum:          extractEnum,
	SlotRange:         extractRange,
	SlotInt:           extractInt,
	SlotLimit:         extractLimit,
	SlotBufferQty:     extractBufferQty,
	SlotMenuItemID:    extractMenuItemID,
	SlotCustomerQuery: extractCustomerQuery,
	SlotItemName:      extractItemName,
	SlotString:        extractString,
}

// KnownSlotKind reports whether the kind has a registered extractor.
func KnownSlotKind(kind SlotKind) bool {
	_, ok := slotExtractors[kind]
	return ok
}

// extractSlots runs every slot of the intent through its extractor and
// validators. Any validator failure (or an unregistered extractor, which
// load-time validation should have caught) returns an error so the caller
// skips this intent and keeps scanning.
func extractSlots(def *IntentDefinition, u Utterance, shared *SharedResources, today time.Time) (map[string]any, error) {
	values := make(map[string]any, len(def.Slots))
	for _, slot := range def.Slots {
		fn, ok := slotExtractors[slot.Kind()]
		if !ok {
			return nil, fmt.Errorf("slot %s: no extractor for kind %q", slot.Name, slot.Kind())
		}
		value := fn(slot, u, shared, today)
		rules := slot.Validators
		if slot.Required && !containsRule(rules, "required") {
			rules = append([]string{"required"}, rules...)
		}
		for _, rule := range rules {
			if err := applyValidator(rule, value); err != nil {
				return nil, fmt.Errorf("slot %s: %w", slot.Name, err)
			}
		}
		if value != nil {
			values[slot.Name] = value
		}
	}
	return values, nil
}

func containsRule(rules []string, name string) bool {
	for _, r := range rules {
		if r == name || strings.HasPrefix(r, name+":") {
			return true
		}
	}
	return false
}

func extractDate(slot SlotSpec, u Utterance, _ *SharedResources, today time.Time) any {
	if d, ok := findExplicitDate(u.Text, today); ok {
		return d
	}
	if day, ok := findWeekday(u.Text); ok {
		return resolveWeekday(day, today)
	}
	if slot.Default != nil {
		return resolveDefaultDate(slot.Default, today)
	}
	return nil
}

func extractEnum(slot SlotSpec, u Utterance, shared *SharedResources, _ time.Time) any {
	if slot.Meta["enum"] == "meal" {
		for _, token := range u.Tokens {
			if meal := shared.MealFromToken(token); meal != "" {
				return meal
			}
		}
	}
	if slot.Default != nil {
		return slot.Default
	}
	return nil
}

func extractRange(slot SlotSpec, u Utterance, shared *SharedResources, today time.Time) any {
	// Aliases are pre-sorted longest first so "this month" wins over any
	// shorter alias embedded in it.
	for _, alias := range shared.RangeAliases() {
		if strings.Contains(u.Text, alias) {
			return BuildRange(shared.RangeFromAlias(alias), today)
		}
	}
	if label, ok := slot.Default.(string); ok && label != "" {
		return BuildRange(label, today)
	}
	return BuildRange(shared.DefaultRange(), today)
}

func extractInt(slot SlotSpec, u Utterance, _ *SharedResources, _ time.Time) any {
	if len(u.Numbers) == 0 {
		return slot.Default
	}
	return u.Numbers[0]
}

func extractLimit(slot SlotSpec, u Utterance, _ *SharedResources, _ time.Time) any {
	if len(u.Numbers) > 0 {
		return u.Numbers[len(u.Numbers)-1]
	}
	if n, ok := asInt(slot.Default); ok {
		return n
	}
	return 10
}

func extractBufferQty(_ SlotSpec, u Utterance, _ *SharedResources, _ time.Time) any {
	if len(u.Numbers) == 0 {
		return nil
	}
	return u.Numbers[len(u.Numbers)-1]
}

var menuItemIDPattern = regexp.MustCompile(`\b(?:id|item)\s*(\d+)\b`)

func extractMenuItemID(_ SlotSpec, u Utterance, _ *SharedResources, _ time.Time) any {
	if m := menuItemIDPattern.FindStringSubmatch(u.Text); m != nil {
		return atoi(m[1])
	}
	if len(u.Numbers) > 0 {
		return u.Numbers[0]
	}
	return nil
}

var (
	phonePattern     = regexp.MustCompile(`\b\d{9,}\b`)
	pureDigitPattern = regexp.MustCompile(`^\d+$`)

	customerStopwords = map[string]struct{}{
		"customer": {}, "customers": {}, "orders": {}, "order": {},
		"for": {}, "this": {}, "month": {}, "week": {},
		"address": {}, "addresses": {}, "show": {},
	}

	itemNameStopwords = map[string]struct{}{
		"update": {}, "set": {}, "buffer": {}, "for": {}, "to": {},
		"show": {}, "today": {}, "this": {}, "week": {}, "month": {},
		"breakfast": {}, "lunch": {}, "dinner": {}, "condiments": {},
	}
)

func extractCustomerQuery(slot SlotSpec, u Utterance, shared *SharedResources, _ time.Time) any {
	if m := phonePattern.FindString(u.Text); m != "" {
		return m
	}
	var remaining []string
	for _, token := range u.Tokens {
		if _, stop := customerStopwords[token]; stop {
			continue
		}
		if shared.MealFromToken(token) != "" {
			continue
		}
		if _, isWeekday := weekdayLookup[token]; isWeekday {
			continue
		}
		if pureDigitPattern.MatchString(token) {
			continue
		}
		remaining = append(remaining, token)
	}
	if len(remaining) > 0 {
		return strings.TrimSpace(strings.Join(remaining, " "))
	}
	return slot.Default
}

func extractItemName(slot SlotSpec, u Utterance, shared *SharedResources, _ time.Time) any {
	var filtered []string
	for _, token := range u.Tokens {
		if _, stop := itemNameStopwords[token]; stop {
			continue
		}
		if _, isWeekday := weekdayLookup[token]; isWeekday {
			continue
		}
		if shared.RangeFromAlias(token) != "" {
			continue
		}
		if shared.MealFromToken(token) != "" {
			continue
		}
		if pureDigitPattern.MatchString(token) {
			continue
		}
		filtered = append(filtered, token)
	}
	if len(filtered) > 0 {
		return strings.Join(filtered, " ")
	}
	return slot.Default
}

func extractString(slot SlotSpec, _ Utterance, _ *SharedResources, _ time.Time) any {
	return slot.Default
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
