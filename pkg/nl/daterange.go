package nl

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is a resolved relative-time window. StartDate and EndDate are
// inclusive calendar days.
type Range struct {
	Label     string
	StartDate time.Time
	EndDate   time.Time
}

var monthLookup = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"sept": time.September, "oct": time.October, "nov": time.November,
	"dec": time.December,
}

// weekdayNames is scanned in declaration order so an utterance naming two
// weekdays always resolves to the same one.
var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday}, {"mon", time.Monday},
	{"tuesday", time.Tuesday}, {"tue", time.Tuesday},
	{"wednesday", time.Wednesday}, {"wed", time.Wednesday},
	{"thursday", time.Thursday}, {"thu", time.Thursday}, {"thurs", time.Thursday},
	{"friday", time.Friday}, {"fri", time.Friday},
	{"saturday", time.Saturday}, {"sat", time.Saturday},
	{"sunday", time.Sunday}, {"sun", time.Sunday},
}

var weekdayLookup = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, len(weekdayNames))
	for _, w := range weekdayNames {
		m[w.name] = w.day
	}
	return m
}()

var (
	isoDatePattern   = regexp.MustCompile(`\b(20\d{2})-(\d{1,2})-(\d{1,2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
	dashDatePattern  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(20\d{2})\b`)
	monthDayPattern  = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\s+(\d{1,2})(?:\s*,?\s*(\d{4}))?\b`)
	dayMonthPattern  = regexp.MustCompile(`\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*(?:\s+(\d{4}))?\b`)
)

// findExplicitDate scans text for an explicit date: ISO, DD/MM/YYYY,
// DD-MM-YYYY, then month-name forms, in that priority order. Invalid
// calendar dates are treated as non-matches, not errors.
func findExplicitDate(text string, today time.Time) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return safeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), today.Location())
	}
	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		return safeDate(atoi(m[3]), atoi(m[2]), atoi(m[1]), today.Location())
	}
	if m := dashDatePattern.FindStringSubmatch(text); m != nil {
		return safeDate(atoi(m[3]), atoi(m[2]), atoi(m[1]), today.Location())
	}
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		year := today.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		return safeDate(year, int(monthLookup[m[1]]), atoi(m[2]), today.Location())
	}
	if m := dayMonthPattern.FindStringSubmatch(text); m != nil {
		year := today.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		return safeDate(year, int(monthLookup[m[2]]), atoi(m[1]), today.Location())
	}
	return time.Time{}, false
}

// safeDate builds a calendar date, rejecting roll-over (e.g. Feb 31 would
// normalize to March; that is a non-match here).
func safeDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// findWeekday reports the earliest-declared weekday name present in the
// text, so "monday or tuesday" always resolves to Monday.
func findWeekday(text string) (time.Weekday, bool) {
	for _, w := range weekdayNames {
		if strings.Contains(text, w.name) {
			return w.day, true
		}
	}
	return time.Sunday, false
}

// resolveWeekday returns the next occurrence of the target weekday on or
// after today; today counts if it matches.
func resolveWeekday(target time.Weekday, today time.Time) time.Time {
	delta := (int(target) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, delta)
}

// BuildRange resolves a range label into a concrete window using calendar
// rules: today/yesterday are single-day; this_week is Monday-start, 7 days
// inclusive; this_month is the 1st through the last calendar day of the
// current month. Unrecognized labels default to today/today.
func BuildRange(label string, today time.Time) Range {
	start, end := today, today
	switch label {
	case "today":
	case "yesterday":
		start = today.AddDate(0, 0, -1)
		end = start
	case "this_week":
		// time.Weekday is Sunday-based; shift to a Monday start.
		offset := (int(today.Weekday()) + 6) % 7
		start = today.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 6)
	case "this_month":
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		end = start.AddDate(0, 1, -1)
	}
	return Range{Label: label, StartDate: start, EndDate: end}
}

// resolveDefaultDate interprets a date slot default: the labels "today" and
// "yesterday", or a literal ISO date. Anything else falls back to today.
func resolveDefaultDate(def any, today time.Time) time.Time {
	label, ok := def.(string)
	if !ok {
		return today
	}
	switch strings.ToLower(label) {
	case "today":
		return today
	case "yesterday":
		return today.AddDate(0, 0, -1)
	}
	if d, ok := findExplicitDate(strings.ToLower(label), today); ok {
		return d
	}
	return today
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
