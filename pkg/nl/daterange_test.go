package nl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, 2026-03-11.
var fixedToday = time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

func TestFindExplicitDate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"iso date", "menu for 2026-03-15 please", "2026-03-15", true},
		{"slash date is day first", "orders on 05/04/2026", "2026-04-05", true},
		{"dash date is day first", "orders on 05-04-2026", "2026-04-05", true},
		{"month name then day", "menu for mar 9", "2026-03-09", true},
		{"month name with year", "menu for march 9, 2027", "2027-03-09", true},
		{"day then month name", "menu for 9 march", "2026-03-09", true},
		{"iso wins over month name", "2026-03-15 or mar 9", "2026-03-15", true},
		{"invalid calendar date discarded", "menu for 2026-02-31", "", false},
		{"no date", "today's menu", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findExplicitDate(tt.text, fixedToday)
			require.Equal(t, tt.found, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestResolveWeekday(t *testing.T) {
	// fixedToday is a Wednesday; the next Friday is two days out, the
	// next Wednesday is today itself.
	assert.Equal(t, "2026-03-13", resolveWeekday(time.Friday, fixedToday).Format("2006-01-02"))
	assert.Equal(t, "2026-03-11", resolveWeekday(time.Wednesday, fixedToday).Format("2006-01-02"))
	assert.Equal(t, "2026-03-16", resolveWeekday(time.Monday, fixedToday).Format("2006-01-02"))
}

func TestFindWeekdayTwoNamesResolvesFirstDeclared(t *testing.T) {
	// Two different weekday names in one utterance must resolve the same
	// way on every call.
	for i := 0; i < 200; i++ {
		day, ok := findWeekday("menu for monday or tuesday")
		require.True(t, ok)
		require.Equal(t, time.Monday, day)
	}

	day, ok := findWeekday("friday then wed")
	require.True(t, ok)
	assert.Equal(t, time.Wednesday, day)
}

func TestBuildRange(t *testing.T) {
	tests := []struct {
		label     string
		wantStart string
		wantEnd   string
	}{
		{"today", "2026-03-11", "2026-03-11"},
		{"yesterday", "2026-03-10", "2026-03-10"},
		{"this_week", "2026-03-09", "2026-03-15"},
		{"this_month", "2026-03-01", "2026-03-31"},
		{"bogus", "2026-03-11", "2026-03-11"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			r := BuildRange(tt.label, fixedToday)
			assert.Equal(t, tt.label, r.Label)
			assert.Equal(t, tt.wantStart, r.StartDate.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, r.EndDate.Format("2006-01-02"))
		})
	}
}

func TestBuildRangeMonthEnd(t *testing.T) {
	// February in a leap year and a 30-day month both end on the true
	// last calendar day.
	feb := BuildRange("this_month", time.Date(2028, time.February, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2028-02-29", feb.EndDate.Format("2006-01-02"))

	april := BuildRange("this_month", time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-04-30", april.EndDate.Format("2006-01-02"))
}

func TestBuildRangeWeekStartsMonday(t *testing.T) {
	// A Sunday belongs to the week that began the previous Monday.
	sunday := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	r := BuildRange("this_week", sunday)
	assert.Equal(t, "2026-03-09", r.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-03-15", r.EndDate.Format("2006-01-02"))
}
