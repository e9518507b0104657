package sqlguard

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// SlotInjectionResult reports a SQL injection pattern detected in an
// extracted slot value.
type SlotInjectionResult struct {
	Fingerprint string
	SlotName    string
	SlotValue   string
}

// CheckSlotValue runs libinjection over a slot value before it is bound
// into a deterministic template. Only strings are checked; numbers, dates,
// and ranges cannot carry injection patterns. Returns nil when clean.
func CheckSlotValue(slotName string, value any) *SlotInjectionResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}
	return &SlotInjectionResult{
		Fingerprint: string(fingerprint),
		SlotName:    slotName,
		SlotValue:   strValue,
	}
}

// CheckSlots screens every extracted slot value, returning one result per
// suspicious value. Values are always bound as statement parameters, so a
// hit is a signal to log, not a reason to fail the request.
func CheckSlots(slots map[string]any) []*SlotInjectionResult {
	var results []*SlotInjectionResult
	for name, value := range slots {
		if r := CheckSlotValue(name, value); r != nil {
			results = append(results, r)
		}
	}
	return results
}
