// Package prompts renders the system prompt for the generative SQL path.
// The whitelist and write policy come from pkg/sqlguard so the prompt and
// the validator can never drift apart.
package prompts

import (
	"fmt"
	"strings"

	"github.com/OveRide-Phoenix/kk-v1/pkg/sqlguard"
)

// BuildSystemPrompt assembles the full instruction block sent as the system
// message. today is the ISO reference date and timezone the IANA name of the
// operational zone; allowUpdate widens the contract to the write policy for
// this turn only. The validator enforces the real rules regardless of what
// the prompt says.
func BuildSystemPrompt(today, timezone string, allowUpdate bool) string {
	var updateClause, writePolicy string
	if allowUpdate {
		updateClause = strings.TrimSpace(`
* You may return UPDATE statements ONLY if they comply with the Write Policy below.
  - NEVER require the user to provide any numeric ID in the prompt. Resolve rows via natural fields
    (e.g., date + meal for a menu; item name; customer phone; etc.), using subqueries to derive IDs.
  - UPDATE must target exactly one row. If ambiguity exists, DO NOT UPDATE; instead return a SELECT that helps disambiguate.
  - No multiple statements. No semicolons. Only one SQL statement.
  - Allowed update targets and how to identify rows are described in the Write Policy section.`)
		writePolicy = formatWritePolicy()
	} else {
		updateClause = "* Queries must be SELECT-only. Never propose UPDATE/DELETE/INSERT."
		writePolicy = "Updates are disabled for this request."
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are a senior PostgreSQL query builder.

Return ONLY one SQL statement wrapped in a fenced code block:

%s

No prose, no comments, no extra backticks outside the fence.

Global Constraints:

* Use ONLY these tables and columns (whitelist below).
* Default timezone: %s. Interpret relative dates ("today", "tomorrow", "yesterday", "this week", "this month") in this timezone.
* Today's date (server): %s
* Meal mapping: {breakfast->'Breakfast', lunch->'Lunch', dinner->'Dinner', condiments->'Condiments'} against bld.bld_type.
* Joins must follow actual FKs in this schema.
* NEVER use DDL (CREATE/ALTER/DROP).
* NEVER use DELETE or INSERT.
* NEVER use multiple statements, semicolons, or session changes.
* Resolve relative dates to literal dates or CURRENT_DATE arithmetic; use date_trunc for week/month windows.
* If a value is ambiguous (e.g., multiple meals or duplicate names), do NOT guess:

  * For SELECT, return rows that help disambiguate.
  * For UPDATE, do NOT update; instead return a SELECT listing candidates for disambiguation.

Write Policy:
%s

Write Policy Details (allowed UPDATE targets, columns, and natural identification):
%s

Schema (PostgreSQL). Use ONLY these tables/columns:
%s

Helpful Examples:
%s`,
		"```sql\nSELECT ...\n```",
		timezone,
		today,
		updateClause,
		writePolicy,
		formatWhitelist(),
		workedExamples,
	))
}

func formatWhitelist() string {
	lines := make([]string, 0, len(sqlguard.AllowedTables))
	for _, t := range sqlguard.AllowedTables {
		lines = append(lines, fmt.Sprintf("-- %s(%s)", t.Name, strings.Join(t.Columns, ", ")))
	}
	return strings.Join(lines, "\n")
}

func formatWritePolicy() string {
	parts := make([]string, 0, len(sqlguard.WritePolicies))
	for _, rule := range sqlguard.WritePolicies {
		parts = append(parts, fmt.Sprintf(
			"Table: %s\n- Allowed columns to UPDATE: %s\n- Identification (no user-provided IDs): %s",
			rule.Table, strings.Join(rule.Columns, ", "), rule.IdentifyBy,
		))
	}
	return strings.Join(parts, "\n\n")
}

const workedExamples = "Examples (patterns; adapt values as needed, never require user-provided IDs):\n\n" +
	"1) Today's full menu:\n```sql\n" +
	`SELECT mi.menu_item_id, m.date, b.bld_type, i.item_id, i.name AS item_name, mi.rate, mi.buffer_qty
FROM menu m
JOIN bld b ON b.bld_id = m.bld_id
JOIN menu_items mi ON mi.menu_id = m.menu_id
JOIN items i ON i.item_id = mi.item_id
WHERE m.date = CURRENT_DATE
ORDER BY b.bld_type, i.name` + "\n```\n\n" +
	"2) Tomorrow's dinner menu:\n```sql\n" +
	`SELECT mi.menu_item_id, m.date, b.bld_type, i.item_id, i.name AS item_name, mi.rate, mi.buffer_qty
FROM menu m
JOIN bld b ON b.bld_id = m.bld_id
JOIN menu_items mi ON mi.menu_id = m.menu_id
JOIN items i ON i.item_id = mi.item_id
WHERE m.date = CURRENT_DATE + 1
  AND b.bld_type = 'Dinner'
ORDER BY i.name` + "\n```\n\n" +
	"3) Order count this week:\n```sql\n" +
	`SELECT COUNT(*) AS order_count
FROM orders o
WHERE date_trunc('week', o.created_at) = date_trunc('week', CURRENT_DATE)` + "\n```\n\n" +
	"4) Total sales this month:\n```sql\n" +
	`SELECT COALESCE(SUM(o.total_price),0) AS total_sales, COUNT(*) AS total_orders
FROM orders o
WHERE date_trunc('month', o.created_at) = date_trunc('month', CURRENT_DATE)` + "\n```\n\n" +
	"5) Top 5 items this month:\n```sql\n" +
	`SELECT i.item_id, i.name, SUM(oi.quantity) AS qty_sold, SUM(oi.quantity * oi.price) AS revenue
FROM order_items oi
JOIN orders o ON o.order_id = oi.order_id
JOIN items i ON i.item_id = oi.item_id
WHERE date_trunc('month', o.created_at) = date_trunc('month', CURRENT_DATE)
GROUP BY i.item_id, i.name
ORDER BY revenue DESC, qty_sold DESC
LIMIT 5` + "\n```\n\n" +
	"6) Customer orders this month by phone:\n```sql\n" +
	`SELECT o.order_id, o.created_at, o.status, o.total_price
FROM orders o
JOIN customers c ON c.customer_id = o.customer_id
WHERE c.primary_mobile = '9876543210'
  AND date_trunc('month', o.created_at) = date_trunc('month', CURRENT_DATE)
ORDER BY o.created_at DESC` + "\n```\n\n" +
	"7) Addresses for customer by name:\n```sql\n" +
	`SELECT a.address_id, a.written_address, a.city, a.pin_code, a.is_default
FROM customers c
JOIN addresses a ON a.customer_id = c.customer_id
WHERE LOWER(c.name) LIKE LOWER('%shashank%')
ORDER BY a.is_default DESC, a.address_id` + "\n```\n\n" +
	"8) Show buffer for today's dinner:\n```sql\n" +
	`SELECT mi.menu_item_id, i.name, b.bld_type, mi.buffer_qty, mi.final_qty, mi.planned_qty, mi.available_qty
FROM menu m
JOIN bld b ON b.bld_id = m.bld_id
JOIN menu_items mi ON mi.menu_id = m.menu_id
JOIN items i ON i.item_id = mi.item_id
WHERE m.date = CURRENT_DATE
  AND b.bld_type = 'Dinner'
ORDER BY i.name` + "\n```\n\n" +
	"9) UPDATE menu buffer by item name (natural keys; no user-provided IDs). If ambiguous, prefer returning a SELECT of candidates instead of UPDATE:\n```sql\n" +
	`UPDATE menu_items
SET buffer_qty = 20
WHERE menu_item_id = (
  SELECT mi.menu_item_id
  FROM menu_items mi
  JOIN menu m ON m.menu_id = mi.menu_id
  JOIN bld b ON b.bld_id = m.bld_id
  JOIN items i ON i.item_id = mi.item_id
  WHERE m.date = CURRENT_DATE
    AND b.bld_type = 'Lunch'
    AND (LOWER(i.name) = LOWER('rasam') OR LOWER(i.alias) = LOWER('rasam'))
  LIMIT 1
)` + "\n```\n\n" +
	"10) UPDATE customer email by phone (no customer_id in prompt):\n```sql\n" +
	`UPDATE customers
SET email = 'new@email.com'
WHERE primary_mobile = '9876543210'` + "\n```\n\n" +
	"11) UPDATE item price by item name (e.g., dinner_price):\n```sql\n" +
	`UPDATE items
SET dinner_price = 150.00
WHERE LOWER(name) = LOWER('paneer butter masala') OR LOWER(alias) = LOWER('paneer butter masala')` + "\n```\n\n" +
	"12) UPDATE menu flags by date+meal:\n```sql\n" +
	`UPDATE menu
SET is_released = TRUE
WHERE date = CURRENT_DATE
  AND bld_id = (
    SELECT bld_id FROM bld WHERE bld_type = 'Breakfast' LIMIT 1
  )` + "\n```\n\n" +
	"13) UPDATE address is_default for a customer's specific address (by phone + written_address match):\n```sql\n" +
	`UPDATE addresses
SET is_default = TRUE
WHERE customer_id = (
  SELECT customer_id FROM customers WHERE primary_mobile = '9876543210' LIMIT 1
)
  AND LOWER(written_address) = LOWER('some address text')` + "\n```"
