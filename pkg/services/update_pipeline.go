package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/apperrors"
	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
	"github.com/OveRide-Phoenix/kk-v1/pkg/logging"
	"github.com/OveRide-Phoenix/kk-v1/pkg/repositories"
)

// PreparedUpdate is a fully resolved buffer mutation: the target row, the
// new value, and a snapshot of the current state. Built per attempt,
// consumed by Preview or Apply.
type PreparedUpdate struct {
	SQL        string
	BufferQty  float64
	MenuItemID int64
	CurrentRow map[string]any
}

// UpdatePipeline turns a validated buffer UPDATE into a two-phase
// operation: Prepare and Preview never write; Apply performs exactly one
// committed mutation.
type UpdatePipeline struct {
	db        database.Executor
	menuItems *repositories.MenuItemRepository
	logger    *zap.Logger
}

func NewUpdatePipeline(db database.Executor, menuItems *repositories.MenuItemRepository, logger *zap.Logger) *UpdatePipeline {
	return &UpdatePipeline{db: db, menuItems: menuItems, logger: logger.Named("update_pipeline")}
}

var (
	bufferQtyLiteral  = regexp.MustCompile(`(?i)SET\s+buffer_qty\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	directIDPattern   = regexp.MustCompile(`(?i)WHERE\s+(?:mi\.)?menu_item_id\s*=\s*(\d+)\b`)
	subqueryPattern   = regexp.MustCompile(`(?is)WHERE\s+(?:mi\.)?menu_item_id\s*=\s*\((.+)\)\s*$`)
)

// Prepare resolves the statement's target row and snapshots its current
// state. The target comes either from a literal menu_item_id or from a
// standalone SELECT subquery that must resolve to exactly one row.
func (p *UpdatePipeline) Prepare(ctx context.Context, sqlText string) (*PreparedUpdate, error) {
	qtyMatch := bufferQtyLiteral.FindStringSubmatch(sqlText)
	if qtyMatch == nil {
		return nil, fmt.Errorf("unable to resolve buffer quantity in generated SQL")
	}
	bufferQty, err := strconv.ParseFloat(qtyMatch[1], 64)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve buffer quantity in generated SQL")
	}

	menuItemID, err := p.resolveTarget(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	current, err := p.menuItems.Fetch(ctx, menuItemID)
	if err != nil {
		p.logger.Error("failed to snapshot update target",
			zap.Int64("menu_item_id", menuItemID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("failed to resolve menu item for buffer update")
	}
	var sanitized map[string]any
	if current != nil {
		sanitized = FilterRow(current)
	}
	return &PreparedUpdate{
		SQL:        sqlText,
		BufferQty:  bufferQty,
		MenuItemID: menuItemID,
		CurrentRow: sanitized,
	}, nil
}

func (p *UpdatePipeline) resolveTarget(ctx context.Context, sqlText string) (int64, error) {
	if m := directIDPattern.FindStringSubmatch(sqlText); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unable to resolve menu item for buffer update")
		}
		return id, nil
	}
	m := subqueryPattern.FindStringSubmatch(sqlText)
	if m == nil {
		return 0, fmt.Errorf("unable to resolve menu item for buffer update")
	}
	subquery := strings.TrimSpace(m[1])
	if strings.Contains(subquery, ";") {
		return 0, fmt.Errorf("unable to resolve menu item for buffer update")
	}
	if !strings.HasPrefix(strings.ToUpper(subquery), "SELECT") {
		return 0, fmt.Errorf("unable to resolve menu item for buffer update")
	}

	rows, err := p.db.QueryRows(ctx, subquery)
	if err != nil {
		p.logger.Error("failed to resolve update subquery",
			zap.String("error", logging.SanitizeError(err)))
		return 0, fmt.Errorf("failed to resolve menu item for buffer update")
	}
	if len(rows) == 0 {
		return 0, apperrors.ErrNoUpdateTarget
	}
	if len(rows) > 1 {
		return 0, apperrors.ErrAmbiguousUpdateTarget
	}
	// Prefer the named id column; a bare single-column row is accepted so
	// expressions like SELECT mi.menu_item_id AS id still resolve.
	row := rows[0]
	if id, ok := database.AsInt64(row["menu_item_id"]); ok {
		return id, nil
	}
	if len(row) == 1 {
		for _, value := range row {
			if id, ok := database.AsInt64(value); ok {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("buffer update target could not be resolved")
}

// Preview renders the pending change without touching the database.
func (p *UpdatePipeline) Preview(prepared *PreparedUpdate) map[string]any {
	var current any
	if prepared.CurrentRow != nil {
		current = prepared.CurrentRow["buffer_qty"]
	}
	return map[string]any{
		"intent":           "SET_MENU_BUFFER",
		"sql":              prepared.SQL,
		"confirm_required": true,
		"preview": map[string]any{
			"target": prepared.CurrentRow,
			"changes": map[string]any{
				"buffer_qty": map[string]any{
					"current": current,
					"new":     normalizeNumeric(prepared.BufferQty),
				},
			},
		},
	}
}

// Apply executes the mutation in one transaction, then re-reads the row.
// The re-read happens after commit; a failed write rolls back and returns
// a generic error payload with no partial state visible.
func (p *UpdatePipeline) Apply(ctx context.Context, prepared *PreparedUpdate) map[string]any {
	var affected int64
	err := p.db.InTx(ctx, func(tx database.Executor) error {
		n, execErr := p.menuItems.SetBuffer(ctx, tx, prepared.MenuItemID, prepared.BufferQty)
		if execErr != nil {
			return execErr
		}
		affected = n
		return nil
	})
	if err != nil {
		p.logger.Error("failed to apply buffer update",
			zap.Int64("menu_item_id", prepared.MenuItemID),
			zap.String("error", logging.SanitizeError(err)))
		return map[string]any{
			"error": "Failed to apply buffer update.",
			"sql":   prepared.SQL,
		}
	}

	var rowPayload map[string]any
	refreshed, err := p.menuItems.Fetch(ctx, prepared.MenuItemID)
	if err != nil {
		p.logger.Error("failed to re-read updated menu item",
			zap.Int64("menu_item_id", prepared.MenuItemID),
			zap.String("error", logging.SanitizeError(err)))
	} else if refreshed != nil {
		rowPayload = FilterRow(refreshed)
	}
	return map[string]any{
		"intent":   "SET_MENU_BUFFER",
		"sql":      prepared.SQL,
		"affected": affected,
		"row":      rowPayload,
		"previous": prepared.CurrentRow,
	}
}

// FilterRow strips identifier columns from an outward-facing row and
// renders integral decimals as integers.
func FilterRow(row map[string]any) map[string]any {
	filtered := make(map[string]any, len(row))
	for key, value := range row {
		lower := strings.ToLower(key)
		if lower == "id" || strings.HasSuffix(lower, "_id") {
			continue
		}
		if f, ok := value.(float64); ok {
			filtered[key] = normalizeNumeric(f)
			continue
		}
		filtered[key] = value
	}
	return filtered
}

func normalizeNumeric(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}
