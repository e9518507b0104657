package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSQL(t *testing.T) {
	t.Run("fenced block", func(t *testing.T) {
		text := "Here you go:\n```sql\nSELECT m.date FROM menu m\n```\nAnything else?"
		got, err := ExtractSQL(text)
		require.NoError(t, err)
		assert.Equal(t, "SELECT m.date FROM menu m", got)
	})

	t.Run("uppercase fence tag", func(t *testing.T) {
		got, err := ExtractSQL("```SQL\nSELECT o.status FROM orders o\n```")
		require.NoError(t, err)
		assert.Equal(t, "SELECT o.status FROM orders o", got)
	})

	t.Run("missing fence", func(t *testing.T) {
		_, err := ExtractSQL("SELECT m.date FROM menu m")
		require.Error(t, err)
		assert.IsType(t, &ValidationError{}, err)
	})

	t.Run("empty block", func(t *testing.T) {
		_, err := ExtractSQL("```sql\n\n```")
		assert.Error(t, err)
	})
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "SELECT 1", StripFence("```sql\nSELECT 1\n```"))
	assert.Equal(t, "no fences here", StripFence("no fences here"))
}

func TestValidateSelect(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr string
	}{
		{
			name: "simple select passes",
			sql:  "SELECT m.date, b.bld_type FROM menu m JOIN bld b ON b.bld_id = m.bld_id",
		},
		{
			name: "trailing semicolon tolerated",
			sql:  "SELECT o.order_id FROM orders o;",
		},
		{
			name: "semicolon inside string literal passes",
			sql:  "SELECT c.name FROM customers c WHERE c.name = 'a;b'",
		},
		{
			name:    "embedded semicolon rejected",
			sql:     "SELECT o.order_id FROM orders o; DROP TABLE orders",
			wantErr: "semicolons",
		},
		{
			name:    "forbidden keyword rejected",
			sql:     "DROP TABLE menu",
			wantErr: "forbidden",
		},
		{
			name:    "delete rejected",
			sql:     "DELETE FROM orders WHERE order_id = 1",
			wantErr: "forbidden",
		},
		{
			name: "forbidden keyword inside literal passes",
			sql:  "SELECT c.name FROM customers c WHERE c.name = 'DROP TABLE x'",
		},
		{
			name: "forbidden keyword inside comment passes",
			sql:  "SELECT o.status FROM orders o -- drop what now",
		},
		{
			name:    "non-select rejected",
			sql:     "EXPLAIN SELECT o.order_id FROM orders o",
			wantErr: "only SELECT",
		},
		{
			name:    "unknown table rejected",
			sql:     "SELECT u.name FROM users u",
			wantErr: "table 'users'",
		},
		{
			name:    "unknown column rejected",
			sql:     "SELECT o.password FROM orders o",
			wantErr: "column 'password'",
		},
		{
			name:    "no table reference rejected",
			sql:     "SELECT 1",
			wantErr: "no recognizable tables",
		},
		{
			name:    "empty statement rejected",
			sql:     "   ;  ",
			wantErr: "empty",
		},
		{
			name: "aliased join with keyword qualifier skipped",
			sql: "SELECT i.name, oi.quantity FROM order_items oi " +
				"JOIN items i ON i.item_id = oi.item_id " +
				"GROUP BY i.item_id, i.name ORDER BY SUM(oi.quantity) DESC LIMIT 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(tt.sql, false)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, res.IsUpdate)
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	bufferUpdate := "UPDATE menu_items SET buffer_qty = 20 WHERE menu_item_id = 42"

	t.Run("rejected when updates not allowed", func(t *testing.T) {
		_, err := Validate(bufferUpdate, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not permitted")
	})

	t.Run("buffer update accepted", func(t *testing.T) {
		res, err := Validate(bufferUpdate, true)
		require.NoError(t, err)
		assert.True(t, res.IsUpdate)
		assert.Equal(t, bufferUpdate, res.SQL)
	})

	t.Run("subquery target accepted", func(t *testing.T) {
		sqlText := "UPDATE menu_items SET buffer_qty = 15 WHERE menu_item_id = (" +
			"SELECT mi.menu_item_id FROM menu_items mi " +
			"JOIN menu m ON m.menu_id = mi.menu_id " +
			"JOIN items i ON i.item_id = mi.item_id " +
			"WHERE m.date = CURRENT_DATE AND LOWER(i.name) = LOWER('Rasam') LIMIT 1)"
		res, err := Validate(sqlText, true)
		require.NoError(t, err)
		assert.True(t, res.IsUpdate)
	})

	t.Run("fractional literal accepted", func(t *testing.T) {
		_, err := Validate("UPDATE menu_items SET buffer_qty = 12.5 WHERE menu_item_id = 3", true)
		assert.NoError(t, err)
	})

	t.Run("other table rejected", func(t *testing.T) {
		_, err := Validate("UPDATE customers SET name = 'x' WHERE customer_id = 1", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "menu_items.buffer_qty")
	})

	t.Run("other column rejected", func(t *testing.T) {
		_, err := Validate("UPDATE menu_items SET rate = 99 WHERE menu_item_id = 1", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "menu_items.buffer_qty")
	})

	t.Run("extra column alongside buffer_qty rejected", func(t *testing.T) {
		_, err := Validate("UPDATE menu_items SET buffer_qty = 5, rate = 99 WHERE menu_item_id = 1", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed columns")
	})

	t.Run("non-literal assignment rejected", func(t *testing.T) {
		_, err := Validate("UPDATE menu_items SET buffer_qty = buffer_qty + 1 WHERE menu_item_id = 1", true)
		assert.Error(t, err)
	})
}
