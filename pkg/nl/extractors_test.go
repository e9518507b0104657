package nl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utter(t *testing.T, query string) Utterance {
	t.Helper()
	return Normalize(query, testResources(t))
}

func TestExtractDate(t *testing.T) {
	shared := testResources(t)

	t.Run("explicit date wins", func(t *testing.T) {
		got := extractDate(SlotSpec{Default: "today"}, utter(t, "menu for 2026-03-15"), shared, fixedToday)
		require.IsType(t, time.Time{}, got)
		assert.Equal(t, "2026-03-15", got.(time.Time).Format("2006-01-02"))
	})

	t.Run("weekday resolves to next occurrence", func(t *testing.T) {
		got := extractDate(SlotSpec{Default: "today"}, utter(t, "menu for friday"), shared, fixedToday)
		assert.Equal(t, "2026-03-13", got.(time.Time).Format("2006-01-02"))
	})

	t.Run("default today", func(t *testing.T) {
		got := extractDate(SlotSpec{Default: "today"}, utter(t, "show the menu"), shared, fixedToday)
		assert.Equal(t, "2026-03-11", got.(time.Time).Format("2006-01-02"))
	})

	t.Run("no default yields nil", func(t *testing.T) {
		got := extractDate(SlotSpec{}, utter(t, "show the menu"), shared, fixedToday)
		assert.Nil(t, got)
	})
}

func TestExtractEnumMeal(t *testing.T) {
	shared := testResources(t)
	slot := SlotSpec{Meta: map[string]string{"enum": "meal"}}

	assert.Equal(t, "Lunch", extractEnum(slot, utter(t, "today's menu for lunch"), shared, fixedToday))
	assert.Equal(t, "Breakfast", extractEnum(slot, utter(t, "breakfast menu"), shared, fixedToday))
	assert.Nil(t, extractEnum(slot, utter(t, "today's menu"), shared, fixedToday))
	assert.Equal(t, "Dinner",
		extractEnum(SlotSpec{Meta: map[string]string{"enum": "meal"}, Default: "Dinner"},
			utter(t, "today's menu"), shared, fixedToday))
}

func TestExtractRange(t *testing.T) {
	shared := testResources(t)

	t.Run("phrase alias", func(t *testing.T) {
		got := extractRange(SlotSpec{}, utter(t, "top items this month"), shared, fixedToday)
		r, ok := got.(Range)
		require.True(t, ok)
		assert.Equal(t, "this_month", r.Label)
	})

	t.Run("slot default", func(t *testing.T) {
		got := extractRange(SlotSpec{Default: "this_week"}, utter(t, "show sales"), shared, fixedToday)
		assert.Equal(t, "this_week", got.(Range).Label)
	})

	t.Run("catalogue default", func(t *testing.T) {
		got := extractRange(SlotSpec{}, utter(t, "show sales"), shared, fixedToday)
		assert.Equal(t, "today", got.(Range).Label)
	})
}

func TestExtractLimit(t *testing.T) {
	shared := testResources(t)

	assert.Equal(t, 5, extractLimit(SlotSpec{}, utter(t, "top 5 items"), shared, fixedToday))
	// The last number is the limit when several appear.
	assert.Equal(t, 3, extractLimit(SlotSpec{}, utter(t, "top 10 no wait 3 items"), shared, fixedToday))
	assert.Equal(t, 5, extractLimit(SlotSpec{Default: 5}, utter(t, "top items"), shared, fixedToday))
	assert.Equal(t, 10, extractLimit(SlotSpec{}, utter(t, "top items"), shared, fixedToday))
}

func TestExtractBufferQty(t *testing.T) {
	shared := testResources(t)

	assert.Equal(t, 20, extractBufferQty(SlotSpec{}, utter(t, "set buffer for item 42 to 20"), shared, fixedToday))
	assert.Nil(t, extractBufferQty(SlotSpec{}, utter(t, "set buffer for rasam"), shared, fixedToday))
}

func TestExtractMenuItemID(t *testing.T) {
	shared := testResources(t)

	// An explicit id marker beats positional numbers.
	assert.Equal(t, 42, extractMenuItemID(SlotSpec{}, utter(t, "set buffer to 20 for id 42"), shared, fixedToday))
	assert.Equal(t, 42, extractMenuItemID(SlotSpec{}, utter(t, "update item 42 buffer to 20"), shared, fixedToday))
	assert.Equal(t, 7, extractMenuItemID(SlotSpec{}, utter(t, "buffer for 7"), shared, fixedToday))
	assert.Nil(t, extractMenuItemID(SlotSpec{}, utter(t, "buffer for rasam"), shared, fixedToday))
}

func TestExtractCustomerQuery(t *testing.T) {
	shared := testResources(t)

	t.Run("phone number preferred", func(t *testing.T) {
		got := extractCustomerQuery(SlotSpec{}, utter(t, "orders for 9876543210 this month"), shared, fixedToday)
		assert.Equal(t, "9876543210", got)
	})

	t.Run("name after stopword filtering", func(t *testing.T) {
		got := extractCustomerQuery(SlotSpec{}, utter(t, "show orders for ravi kumar this month"), shared, fixedToday)
		assert.Equal(t, "ravi kumar", got)
	})

	t.Run("nothing left falls to default", func(t *testing.T) {
		got := extractCustomerQuery(SlotSpec{}, utter(t, "show customer orders this month"), shared, fixedToday)
		assert.Nil(t, got)
	})
}

func TestExtractItemName(t *testing.T) {
	shared := testResources(t)

	tests := []struct {
		name  string
		query string
		want  any
	}{
		{"verbs and qty removed", "update buffer for rasam to 20", "rasam"},
		{"meal and date words removed", "set buffer for masala dosa to 15 for lunch today", "masala dosa"},
		{"nothing left", "update buffer to 20", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractItemName(SlotSpec{}, utter(t, tt.query), shared, fixedToday)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractSlotsValidation(t *testing.T) {
	shared := testResources(t)
	def := &IntentDefinition{
		ID: "set_menu_buffer_by_name",
		Slots: []SlotSpec{
			{Name: "item_name", Type: "item_name", Required: true},
			{Name: "buffer_qty", Type: "buffer_qty", Required: true, Validators: []string{"gte:0"}},
		},
	}

	t.Run("all slots extracted", func(t *testing.T) {
		slots, err := extractSlots(def, utter(t, "update buffer for rasam to 20"), shared, fixedToday)
		require.NoError(t, err)
		assert.Equal(t, "rasam", slots["item_name"])
		assert.Equal(t, 20, slots["buffer_qty"])
	})

	t.Run("missing required slot fails", func(t *testing.T) {
		_, err := extractSlots(def, utter(t, "update buffer for rasam"), shared, fixedToday)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "buffer_qty")
	})
}
