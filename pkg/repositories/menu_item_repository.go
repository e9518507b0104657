package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
)

type MenuItemRepository struct {
	db     database.Executor
	logger *zap.Logger
}

func NewMenuItemRepository(db database.Executor, logger *zap.Logger) *MenuItemRepository {
	return &MenuItemRepository{db: db, logger: logger.Named("menu_item_repository")}
}

const menuItemCandidateQuery = `
	SELECT
		mi.menu_item_id,
		i.item_id,
		i.name AS item_name,
		b.bld_type,
		mi.buffer_qty,
		mi.final_qty,
		mi.planned_qty,
		mi.available_qty
	FROM menu m
	JOIN bld b ON b.bld_id = m.bld_id
	JOIN menu_items mi ON mi.menu_id = m.menu_id
	JOIN items i ON i.item_id = mi.item_id
	WHERE m.date = $1
	  AND ($2::text IS NULL OR b.bld_type = $2)
	  AND %s
	ORDER BY b.bld_type, i.name
	LIMIT 5`

// Match tiers, strongest first. The first tier that yields rows wins;
// later tiers are never consulted.
var matchTiers = []string{
	"LOWER(i.name) = $3",
	"LOWER(i.alias) = $3",
	"LOWER(i.name) LIKE $3 || '%'",
	"LOWER(i.name) LIKE '%' || $3 || '%'",
}

// FindByName searches a day's menu for items matching a free-text name
// across four tiers: exact name, exact alias, name prefix, name substring.
// meal narrows the search when non-empty. Returns the winning tier's rows;
// the caller decides what more than one candidate means.
func (r *MenuItemRepository) FindByName(ctx context.Context, name string, date time.Time, meal string) ([]map[string]any, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return nil, nil
	}
	var mealParam any
	if meal != "" {
		mealParam = meal
	}
	for _, tier := range matchTiers {
		query := fmt.Sprintf(menuItemCandidateQuery, tier)
		rows, err := r.db.QueryRows(ctx, query, date, mealParam, lowered)
		if err != nil {
			return nil, fmt.Errorf("failed to search menu items: %w", err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

// Fetch returns the full display snapshot of one menu item, or nil when
// the id points at nothing.
func (r *MenuItemRepository) Fetch(ctx context.Context, menuItemID int64) (map[string]any, error) {
	rows, err := r.db.QueryRows(ctx, `
		SELECT
			mi.menu_item_id,
			m.date,
			b.bld_type,
			i.item_id,
			i.name AS item_name,
			mi.buffer_qty,
			mi.final_qty,
			mi.planned_qty,
			mi.available_qty
		FROM menu_items mi
		JOIN menu m ON m.menu_id = mi.menu_id
		JOIN bld b ON b.bld_id = m.bld_id
		JOIN items i ON i.item_id = mi.item_id
		WHERE mi.menu_item_id = $1`, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch menu item %d: %w", menuItemID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// SetBuffer assigns the buffer quantity on one menu item and reports the
// affected row count.
func (r *MenuItemRepository) SetBuffer(ctx context.Context, exec database.Executor, menuItemID int64, bufferQty float64) (int64, error) {
	affected, err := exec.Exec(ctx,
		`UPDATE menu_items SET buffer_qty = $1 WHERE menu_item_id = $2`,
		bufferQty, menuItemID)
	if err != nil {
		return 0, fmt.Errorf("failed to set buffer on menu item %d: %w", menuItemID, err)
	}
	return affected, nil
}
