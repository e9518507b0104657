// Package repositories resolves domain rows by natural keys: phone
// numbers, names, and aliases instead of internal ids.
package repositories

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
)

// Customer is the resolved identity a customer-scoped intent runs under.
type Customer struct {
	CustomerID    int64
	Name          string
	PrimaryMobile string
}

type CustomerRepository struct {
	db     database.Executor
	logger *zap.Logger
}

func NewCustomerRepository(db database.Executor, logger *zap.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: logger.Named("customer_repository")}
}

var allDigits = regexp.MustCompile(`^\d+$`)

// Resolve finds a customer from free text: an all-digit query is treated
// as an exact phone match, anything else as a name substring search that
// prefers an exact (case-insensitive) name. Returns nil when nothing
// matches; that is a not-found signal, not an error.
func (r *CustomerRepository) Resolve(ctx context.Context, query string) (*Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if allDigits.MatchString(query) {
		rows, err := r.db.QueryRows(ctx, `
			SELECT customer_id, name, primary_mobile
			FROM customers
			WHERE primary_mobile = $1
			LIMIT 1`, query)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve customer by phone: %w", err)
		}
		if len(rows) > 0 {
			return customerFromRow(rows[0]), nil
		}
	}
	rows, err := r.db.QueryRows(ctx, `
		SELECT customer_id, name, primary_mobile
		FROM customers
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY
			CASE WHEN LOWER(name) = LOWER($1) THEN 0 ELSE 1 END,
			name
		LIMIT 1`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer by name: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return customerFromRow(rows[0]), nil
}

func customerFromRow(row map[string]any) *Customer {
	c := &Customer{}
	c.CustomerID, _ = database.AsInt64(row["customer_id"])
	c.Name, _ = row["name"].(string)
	c.PrimaryMobile, _ = row["primary_mobile"].(string)
	return c
}
