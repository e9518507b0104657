package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretUnknown(t *testing.T) {
	db := &fakeExecutor{}
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "sing me a song")
	assert.Equal(t, "UNKNOWN", result["intent"])
	assert.Contains(t, result["message"], "Try: '")

	examples, ok := result["examples"].([]string)
	require.True(t, ok)
	assert.Len(t, examples, 5)
	assert.Empty(t, db.queries)
}

func TestInterpretMenuFound(t *testing.T) {
	db := &fakeExecutor{}
	db.stub("FROM menu m", []map[string]any{
		{"date": "2026-03-11", "bld_type": "Lunch", "item_name": "rasam", "buffer_qty": int64(10)},
	})
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "today's menu for lunch")
	assert.Equal(t, "GET_MENU", result["intent"])
	assert.Equal(t, "Menu for the requested day.", result["note"])

	rows := result["data"].([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "rasam", rows[0]["item_name"])

	// Slots are echoed back in JSON-safe form.
	slots := result["slots"].(map[string]any)
	assert.Equal(t, "2026-03-11", slots["date"])
	assert.Equal(t, "Lunch", slots["bld_type"])

	// The meal binds as $2.
	require.Len(t, db.queries, 1)
	assert.Equal(t, "Lunch", db.queries[0].args[1])
}

func TestInterpretMenuNotFound(t *testing.T) {
	db := &fakeExecutor{}
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "menu for 2026-03-15")
	assert.Equal(t, "No menu found for that day.", result["message"])
	assert.Empty(t, result["data"])
}

func TestInterpretQueryFailure(t *testing.T) {
	db := &fakeExecutor{}
	db.stubErr("FROM menu m", errors.New("connection reset"))
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "today's menu")
	assert.Equal(t, genericQueryFailure, result["message"])
	// Driver errors never leak to the payload.
	for _, v := range result {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "connection reset")
		}
	}
}

func TestInterpretOrderCountZeroRow(t *testing.T) {
	db := &fakeExecutor{}
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "how many orders today")
	assert.Equal(t, "GET_ORDER_COUNT", result["intent"])
	assert.Equal(t, map[string]any{"order_count": int64(0)}, result["data"])
}

func TestInterpretOrderTotals(t *testing.T) {
	db := &fakeExecutor{}
	db.stub("SUM(o.total_price)", []map[string]any{
		{"total_sales": int64(4500), "total_orders": int64(12)},
	})
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "total sales this month")
	assert.Equal(t, "GET_ORDER_TOTALS", result["intent"])
	data := result["data"].(map[string]any)
	assert.Equal(t, int64(4500), data["total_sales"])

	// this_month binds as an inclusive window.
	require.Len(t, db.queries, 1)
	require.Len(t, db.queries[0].args, 2)
}

func TestInterpretTopItemsBindsLimit(t *testing.T) {
	db := &fakeExecutor{}
	svc := newTestNLService(t, db)

	svc.Interpret(context.Background(), "top 5 items this month")
	require.Len(t, db.queries, 1)
	args := db.queries[0].args
	require.Len(t, args, 3)
	assert.Equal(t, 5, args[2])
}

func TestInterpretCustomerOrders(t *testing.T) {
	db := &fakeExecutor{}
	db.stub("WHERE primary_mobile = $1", []map[string]any{
		{"customer_id": int64(7), "name": "Ravi Kumar", "primary_mobile": "9876543210"},
	})
	db.stub("FROM orders o", []map[string]any{
		{"order_id": int64(1), "status": "DELIVERED", "total_price": int64(250)},
	})
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "orders for customer 9876543210 this month")
	assert.Equal(t, "GET_CUSTOMER_ORDERS", result["intent"])

	rows := result["data"].([]map[string]any)
	require.Len(t, rows, 1)

	// The resolved identity rides along in the echoed slots.
	slots := result["slots"].(map[string]any)
	customer := slots["customer"].(map[string]any)
	assert.Equal(t, "Ravi Kumar", customer["name"])

	// The orders query binds the resolved customer_id, not the phone.
	require.Len(t, db.queries, 2)
	assert.Equal(t, int64(7), db.queries[1].args[0])
}

func TestInterpretCustomerNotFound(t *testing.T) {
	db := &fakeExecutor{}
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "addresses for customer 9876543210")
	assert.Equal(t, "GET_CUSTOMER_ADDRESSES", result["intent"])
	assert.Equal(t, "Customer not found.", result["message"])
	assert.Empty(t, result["data"])
}

func TestInterpretSetBufferByID(t *testing.T) {
	db := &fakeExecutor{}
	db.stub("WHERE mi.menu_item_id = $1", []map[string]any{
		{"menu_item_id": int64(42), "item_name": "rasam", "buffer_qty": int64(20)},
	})
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "set buffer for item 42 to 20")
	assert.Equal(t, "SET_MENU_BUFFER_BY_ID", result["intent"])
	assert.Equal(t, "Buffer quantity updated.", result["note"])

	// The write runs inside a transaction, then the follow-up read.
	require.Len(t, db.execs, 1)
	assert.Equal(t, 1, db.txExecs)
	assert.Equal(t, []any{20, 42}, db.execs[0].args)

	rows := result["data"].([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "rasam", rows[0]["item_name"])
}

func TestInterpretSetBufferByNameSingleMatch(t *testing.T) {
	db := &fakeExecutor{}
	db.stub("LOWER(i.name) = $3", []map[string]any{
		{"menu_item_id": int64(12), "item_name": "rasam", "bld_type": "Lunch"},
	})
	db.stub("WHERE mi.menu_item_id = $1", []map[string]any{
		{"menu_item_id": int64(12), "item_name": "rasam", "buffer_qty": int64(20)},
	})
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "update buffer for rasam to 20")
	assert.Equal(t, "SET_MENU_BUFFER_BY_NAME", result["intent"])
	assert.Equal(t, "Buffer quantity updated.", result["note"])

	require.Len(t, db.execs, 1)
	assert.Equal(t, 1, db.txExecs)
	assert.Equal(t, []any{float64(20), int64(12)}, db.execs[0].args)

	slots := result["slots"].(map[string]any)
	assert.Equal(t, int64(12), slots["resolved_menu_item_id"])
}

func TestInterpretSetBufferByNameAmbiguous(t *testing.T) {
	db := &fakeExecutor{}
	db.stub("LOWER(i.name) = $3", []map[string]any{
		{"menu_item_id": int64(12), "item_name": "rasam", "bld_type": "Lunch"},
		{"menu_item_id": int64(13), "item_name": "rasam", "bld_type": "Dinner"},
	})
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "update buffer for rasam to 20")
	assert.Equal(t,
		"Multiple menu items matched. Specify the meal or use the item id.",
		result["message"])

	candidates := result["data"].([]map[string]any)
	assert.Len(t, candidates, 2)
	// Ambiguity never writes.
	assert.Empty(t, db.execs)
}

func TestInterpretSetBufferByNameNoMatch(t *testing.T) {
	db := &fakeExecutor{}
	svc := newTestNLService(t, db)

	result := svc.Interpret(context.Background(), "update buffer for biryani to 20")
	assert.Equal(t, "No menu item matched that name for the requested day.", result["message"])
	assert.Empty(t, db.execs)

	// Every match tier was tried before giving up.
	assert.Len(t, db.queries, 4)
}
