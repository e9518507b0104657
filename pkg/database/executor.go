package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Executor runs parameterized SQL and returns rows as field-name-keyed
// records. Both *DB (pool-backed) and the transaction handle passed to InTx
// satisfy it.
type Executor interface {
	// QueryRows executes a query and collects all rows as maps keyed by
	// column name. Values are normalized for JSON rendering (dates as
	// ISO strings, numerics as int64/float64).
	QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error)

	// Exec executes a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// InTx runs fn inside a transaction, committing on nil return and
	// rolling back on error or panic.
	InTx(ctx context.Context, fn func(tx Executor) error) error
}

var _ Executor = (*DB)(nil)

// QueryRows implements Executor on the pool.
func (db *DB) QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return queryRows(ctx, db.pool, sql, args...)
}

// Exec implements Executor on the pool.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InTx implements Executor on the pool.
func (db *DB) InTx(ctx context.Context, fn func(tx Executor) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op when already committed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&txExecutor{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txExecutor adapts a pgx transaction to the Executor interface.
type txExecutor struct {
	tx pgxQuerier
}

func (t *txExecutor) QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return queryRows(ctx, t.tx, sql, args...)
}

func (t *txExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *txExecutor) InTx(ctx context.Context, fn func(tx Executor) error) error {
	// Statements inside InTx already share the outer transaction.
	return fn(t)
}

// queryRows executes a query and collects rows as normalized maps.
func queryRows(ctx context.Context, q pgxQuerier, sql string, args ...any) ([]map[string]any, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	names := make([]string, len(fieldDescs))
	dateCol := make([]bool, len(fieldDescs))
	for i, fd := range fieldDescs {
		names[i] = string(fd.Name)
		dateCol[i] = fd.DataTypeOID == pgtype.DateOID
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(names))
		for i, name := range names {
			rowMap[name] = NormalizeValue(values[i], dateCol[i])
		}
		result = append(result, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// NormalizeValue converts driver-level values into JSON-friendly Go types.
// DATE columns become "YYYY-MM-DD" strings, NUMERIC values become int64 when
// mathematically integral and float64 otherwise.
func NormalizeValue(v any, isDate bool) any {
	switch value := v.(type) {
	case time.Time:
		if isDate {
			return value.Format("2006-01-02")
		}
		return value
	case pgtype.Numeric:
		f, err := value.Float64Value()
		if err != nil || !f.Valid {
			return v
		}
		return normalizeFloat(f.Float64)
	case float64:
		return normalizeFloat(value)
	case float32:
		return normalizeFloat(float64(value))
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}

// AsInt64 coerces the integer-ish types QueryRows can hand back.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
