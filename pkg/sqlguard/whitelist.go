// Package sqlguard constrains generated SQL to a whitelisted schema
// surface plus a single scoped write capability.
package sqlguard

import "strings"

// TableSchema pairs a whitelisted table with its permitted columns.
// Order is significant: prompt rendering walks this slice as-is.
type TableSchema struct {
	Name    string
	Columns []string
}

// AllowedTables is the entire schema surface the generative path may
// reference, in query and update modes alike.
var AllowedTables = []TableSchema{
	{"bld", []string{"bld_id", "bld_type"}},
	{"categories", []string{"category_id", "category_name"}},
	{"items", []string{
		"item_id", "name", "alias", "category_id", "bld_id",
		"breakfast_price", "lunch_price", "dinner_price", "condiments_price",
		"description", "hsn_code", "uom", "weight_factor", "weight_uom",
		"item_type", "factor", "quantity_portion", "buffer_percentage",
		"picture_url", "cgst", "sgst", "igst", "net_price",
	}},
	{"menu", []string{
		"menu_id", "date", "bld_id", "is_festival", "is_released",
		"period_type", "is_production_generated",
	}},
	{"menu_items", []string{
		"menu_item_id", "menu_id", "item_id", "category_id", "planned_qty",
		"rate", "is_default", "sort_order", "available_qty", "buffer_qty",
		"final_qty",
	}},
	{"orders", []string{
		"order_id", "customer_id", "address_id", "total_price", "status",
		"payment_method", "discount", "created_at", "order_type", "paid",
	}},
	{"order_items", []string{
		"order_item_id", "order_id", "item_id", "quantity", "price",
	}},
	{"customers", []string{
		"customer_id", "name", "primary_mobile", "email", "created_at",
	}},
	{"addresses", []string{
		"address_id", "customer_id", "written_address", "city", "pin_code",
		"latitude", "longitude", "address_type", "route_assignment",
		"is_default",
	}},
	{"admin_logs", []string{
		"log_id", "admin_id", "action_type", "entity_type", "entity_id",
		"description", "timestamp",
	}},
}

// The single write capability the validator actually enforces. The wider
// WritePolicies below are prompt guidance; everything outside this pair is
// rejected structurally.
const (
	WritableTable  = "menu_items"
	WritableColumn = "buffer_qty"
)

// WritePolicy describes, per writable table, the columns an UPDATE may SET
// and how the target row must be identified without a caller-supplied
// numeric id. IdentifyBy is injected verbatim into the system prompt.
type WritePolicy struct {
	Table      string
	Columns    []string
	IdentifyBy string
}

var WritePolicies = []WritePolicy{
	{
		Table: "menu_items",
		Columns: []string{
			"buffer_qty", "planned_qty", "available_qty", "final_qty",
			"rate", "is_default", "sort_order",
		},
		IdentifyBy: `Identify the single row via the menu for a given date and meal, and the item by name (or alias):
  - Resolve bld_id from bld.bld_type ('Breakfast'/'Lunch'/'Dinner'/'Condiments').
  - Find menu.menu_id by m.date = <date> and m.bld_id = b.bld_id.
  - Resolve items.item_id by LOWER(items.name) = LOWER('<name>') OR LOWER(items.alias) = LOWER('<name>').
  - Then pick the single menu_items row for that (menu_id, item_id).
If multiple rows match (e.g., same item across meals), prefer exact name match; otherwise return a SELECT of candidates instead of updating.
The WHERE must not depend on a literal menu_item_id from the user.`,
	},
	{
		Table:   "customers",
		Columns: []string{"name", "primary_mobile", "email"},
		IdentifyBy: `Identify the customer naturally:
  - Prefer customers.primary_mobile = '<phone>'
  - Else exact name: LOWER(customers.name) = LOWER('<name>')
Do not require the user to provide customer_id.
If multiple names match, return a SELECT of candidates instead of UPDATE.`,
	},
	{
		Table: "menu",
		Columns: []string{
			"is_festival", "is_released", "period_type",
			"is_production_generated",
		},
		IdentifyBy: `Identify the menu row for a specific day and meal:
  - Resolve bld_id from bld.bld_type
  - WHERE date = <date> AND bld_id = <resolved>
Do not require the user to provide menu_id.`,
	},
	{
		Table: "addresses",
		Columns: []string{
			"written_address", "city", "pin_code", "latitude", "longitude",
			"address_type", "route_assignment", "is_default",
		},
		IdentifyBy: `Identify address belonging to a customer (by phone or exact name). Prefer a precise locator:
  - customer via customers.primary_mobile = '<phone>' OR exact name match
  - then a specific address match, e.g., LOWER(written_address) = LOWER('<text>')
If ambiguous, return a SELECT of matching addresses for disambiguation.`,
	},
	{
		Table: "items",
		Columns: []string{
			"alias", "description", "category_id", "breakfast_price",
			"lunch_price", "dinner_price", "condiments_price", "cgst",
			"sgst", "igst", "net_price", "uom", "weight_factor",
			"weight_uom", "item_type", "factor", "quantity_portion",
			"buffer_percentage", "picture_url", "hsn_code",
		},
		IdentifyBy: `Identify items by LOWER(name) = LOWER('<name>') OR LOWER(alias) = LOWER('<name>').
If updating category_id by category name, resolve it as:
  category_id = (SELECT category_id FROM categories WHERE LOWER(category_name)=LOWER('<cat>') LIMIT 1)
If multiple items match the name, return a SELECT listing candidates instead of UPDATE.`,
	},
}

var (
	allowedTableSet  map[string]struct{}
	allowedColumnSet map[string]struct{}
)

func init() {
	allowedTableSet = make(map[string]struct{}, len(AllowedTables))
	allowedColumnSet = make(map[string]struct{})
	for _, t := range AllowedTables {
		allowedTableSet[t.Name] = struct{}{}
		for _, c := range t.Columns {
			allowedColumnSet[strings.ToLower(c)] = struct{}{}
		}
	}
}

// TableAllowed reports whether a table name is on the whitelist.
func TableAllowed(name string) bool {
	_, ok := allowedTableSet[strings.ToLower(name)]
	return ok
}

// ColumnAllowed reports whether a column name appears anywhere in the
// whitelist. The check is deliberately table-agnostic.
func ColumnAllowed(name string) bool {
	_, ok := allowedColumnSet[strings.ToLower(name)]
	return ok
}
