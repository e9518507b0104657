// Package services holds the request-time orchestration: deterministic
// intent execution, generative SQL handling, and the buffer-update
// confirmation pipeline.
package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
	"github.com/OveRide-Phoenix/kk-v1/pkg/logging"
	"github.com/OveRide-Phoenix/kk-v1/pkg/nl"
	"github.com/OveRide-Phoenix/kk-v1/pkg/repositories"
	"github.com/OveRide-Phoenix/kk-v1/pkg/sqlguard"
)

const genericQueryFailure = "Failed to run that query. Please try again."

// NLService executes the deterministic path: match an intent, run its
// stored templates with bound parameters, shape the response.
type NLService struct {
	registry  *nl.Registry
	db        database.Executor
	customers *repositories.CustomerRepository
	menuItems *repositories.MenuItemRepository
	logger    *zap.Logger
}

func NewNLService(
	registry *nl.Registry,
	db database.Executor,
	customers *repositories.CustomerRepository,
	menuItems *repositories.MenuItemRepository,
	logger *zap.Logger,
) *NLService {
	return &NLService{
		registry:  registry,
		db:        db,
		customers: customers,
		menuItems: menuItems,
		logger:    logger.Named("nl_service"),
	}
}

// Interpret resolves a query to at most one intent and executes it. Every
// outcome, including no-match and execution failure, is a JSON-shaped map;
// nothing here surfaces as a transport error.
func (s *NLService) Interpret(ctx context.Context, query string) map[string]any {
	match, ok := s.registry.Match(query)
	if !ok {
		return s.unknownResponse()
	}
	for _, hit := range sqlguard.CheckSlots(match.Slots) {
		s.logger.Warn("slot value matched injection fingerprint",
			zap.String("intent", match.Intent.ID),
			zap.String("slot", hit.SlotName),
			zap.String("fingerprint", hit.Fingerprint))
	}

	var result map[string]any
	switch match.Intent.ID {
	case "GET_MENU", "GET_MENU_BUFFER":
		result = s.executeMenu(ctx, match)
	case "GET_ORDER_COUNT":
		result = s.executeAggregate(ctx, match, map[string]any{"order_count": int64(0)})
	case "GET_ORDER_TOTALS":
		result = s.executeAggregate(ctx, match, map[string]any{"total_sales": int64(0), "total_orders": int64(0)})
	case "GET_TOP_ITEMS", "GET_ADMIN_LOGS_RECENT":
		result = s.executeLimited(ctx, match)
	case "GET_CUSTOMER_ORDERS", "GET_CUSTOMER_ADDRESSES":
		result = s.executeCustomerScoped(ctx, match)
	case "SET_MENU_BUFFER_BY_ID":
		result = s.executeSetBufferByID(ctx, match)
	case "SET_MENU_BUFFER_BY_NAME":
		result = s.executeSetBufferByName(ctx, match)
	default:
		result = map[string]any{
			"intent":  match.Intent.ID,
			"message": "Intent configured but no executor available",
		}
	}
	if _, ok := result["intent"]; !ok {
		result["intent"] = match.Intent.ID
	}
	if _, ok := result["slots"]; !ok {
		result["slots"] = nl.SanitizeSlots(match.Slots)
	}
	return result
}

// Examples returns the guidance phrases shown on a no-match response.
func (s *NLService) Examples() []string {
	return s.registry.Examples(5)
}

func (s *NLService) unknownResponse() map[string]any {
	examples := s.Examples()
	message := "No matching intent"
	if len(examples) > 0 {
		quoted := make([]string, len(examples))
		for i, ex := range examples {
			quoted[i] = "'" + ex + "'"
		}
		message = "Try: " + strings.Join(quoted, ", ")
	}
	return map[string]any{
		"intent":   "UNKNOWN",
		"message":  message,
		"examples": examples,
	}
}

func (s *NLService) executeMenu(ctx context.Context, match *nl.IntentMatch) map[string]any {
	rows, err := s.db.QueryRows(ctx, match.Intent.SQL.Query, bindParams(match.Intent.SQL.Params, match.Slots)...)
	if err != nil {
		return s.queryFailure(match, err)
	}
	if len(rows) == 0 {
		return map[string]any{
			"data":    []map[string]any{},
			"message": match.Intent.Responses.NotFound,
		}
	}
	return map[string]any{
		"data": rows,
		"note": match.Intent.Responses.SuccessNote,
	}
}

func (s *NLService) executeAggregate(ctx context.Context, match *nl.IntentMatch, zero map[string]any) map[string]any {
	rows, err := s.db.QueryRows(ctx, match.Intent.SQL.Query, bindParams(match.Intent.SQL.Params, match.Slots)...)
	if err != nil {
		return s.queryFailure(match, err)
	}
	data := zero
	if len(rows) > 0 {
		data = rows[0]
	}
	result := map[string]any{"data": data}
	if note := match.Intent.Responses.SuccessNote; note != "" {
		result["note"] = note
	}
	return result
}

func (s *NLService) executeLimited(ctx context.Context, match *nl.IntentMatch) map[string]any {
	slots := withLimit(match)
	rows, err := s.db.QueryRows(ctx, match.Intent.SQL.Query, bindParams(match.Intent.SQL.Params, slots)...)
	if err != nil {
		return s.queryFailure(match, err)
	}
	return map[string]any{"data": rows}
}

func (s *NLService) executeCustomerScoped(ctx context.Context, match *nl.IntentMatch) map[string]any {
	queryText, _ := match.Slots["customer_query"].(string)
	customer, err := s.customers.Resolve(ctx, queryText)
	if err != nil {
		return s.queryFailure(match, err)
	}
	if customer == nil {
		message := match.Intent.Responses.NotFound
		if message == "" {
			message = "Customer not found"
		}
		return map[string]any{
			"data":    []map[string]any{},
			"message": message,
		}
	}
	slots := copySlots(match.Slots)
	slots["customer_id"] = customer.CustomerID
	rows, err := s.db.QueryRows(ctx, match.Intent.SQL.Query, bindParams(match.Intent.SQL.Params, slots)...)
	if err != nil {
		return s.queryFailure(match, err)
	}
	displaySlots := copySlots(match.Slots)
	displaySlots["customer"] = map[string]any{
		"customer_id":    customer.CustomerID,
		"name":           customer.Name,
		"primary_mobile": customer.PrimaryMobile,
	}
	return map[string]any{
		"data":  rows,
		"slots": nl.SanitizeSlots(displaySlots),
	}
}

func (s *NLService) executeSetBufferByID(ctx context.Context, match *nl.IntentMatch) map[string]any {
	err := s.db.InTx(ctx, func(tx database.Executor) error {
		_, execErr := tx.Exec(ctx, match.Intent.SQL.Query, bindParams(match.Intent.SQL.Params, match.Slots)...)
		return execErr
	})
	if err != nil {
		return s.queryFailure(match, err)
	}
	var data []map[string]any
	if follow := match.Intent.SQL.FollowUp; follow != "" {
		rows, err := s.db.QueryRows(ctx, follow, bindParams(match.Intent.SQL.FollowUpParams, match.Slots)...)
		if err != nil {
			return s.queryFailure(match, err)
		}
		data = rows
	}
	return map[string]any{
		"data": data,
		"note": match.Intent.Responses.SuccessNote,
	}
}

func (s *NLService) executeSetBufferByName(ctx context.Context, match *nl.IntentMatch) map[string]any {
	itemName, _ := match.Slots["item_name"].(string)
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return map[string]any{
			"data":    []map[string]any{},
			"message": match.Intent.Responses.NotFound,
		}
	}
	date, _ := match.Slots["date"].(time.Time)
	meal, _ := match.Slots["bld_type"].(string)

	candidates, err := s.menuItems.FindByName(ctx, itemName, date, meal)
	if err != nil {
		return s.queryFailure(match, err)
	}
	if len(candidates) == 0 {
		return map[string]any{
			"data":    []map[string]any{},
			"message": match.Intent.Responses.NotFound,
		}
	}
	if len(candidates) > 1 {
		message := match.Intent.Responses.Disambiguation
		if message == "" {
			message = "Multiple matches found"
		}
		return map[string]any{
			"data":    candidates,
			"message": message,
		}
	}

	menuItemID, _ := database.AsInt64(candidates[0]["menu_item_id"])
	qty, _ := asFloat(match.Slots["buffer_qty"])
	err = s.db.InTx(ctx, func(tx database.Executor) error {
		_, execErr := s.menuItems.SetBuffer(ctx, tx, menuItemID, qty)
		return execErr
	})
	if err != nil {
		return s.queryFailure(match, err)
	}

	refreshed, err := s.menuItems.Fetch(ctx, menuItemID)
	if err != nil {
		return s.queryFailure(match, err)
	}
	var data []map[string]any
	if refreshed != nil {
		data = append(data, refreshed)
	}
	slots := copySlots(match.Slots)
	slots["resolved_menu_item_id"] = menuItemID
	return map[string]any{
		"data":  data,
		"note":  match.Intent.Responses.SuccessNote,
		"slots": nl.SanitizeSlots(slots),
	}
}

func (s *NLService) queryFailure(match *nl.IntentMatch, err error) map[string]any {
	s.logger.Error("intent execution failed",
		zap.String("intent", match.Intent.ID),
		zap.String("error", logging.SanitizeError(err)))
	return map[string]any{
		"data":    []map[string]any{},
		"message": genericQueryFailure,
	}
}

// withLimit injects the limit parameter, falling back to the intent's
// configured default when the slot resolved to nothing.
func withLimit(match *nl.IntentMatch) map[string]any {
	slots := copySlots(match.Slots)
	if _, ok := slots["limit"]; !ok {
		limit := match.Intent.SQL.DefaultLimit
		if limit == 0 {
			limit = 10
		}
		slots["limit"] = limit
	}
	return slots
}

// bindParams resolves the template's ordered parameter names against the
// slot values. A dotted name ("range.start_date") reaches into a resolved
// range; an absent name binds NULL.
func bindParams(names []string, slots map[string]any) []any {
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = resolveParam(name, slots)
	}
	return args
}

func resolveParam(name string, slots map[string]any) any {
	if base, field, found := strings.Cut(name, "."); found {
		window, ok := slots[base].(nl.Range)
		if !ok {
			return nil
		}
		switch field {
		case "start_date":
			return window.StartDate
		case "end_date":
			return window.EndDate
		}
		return nil
	}
	value, ok := slots[name]
	if !ok {
		return nil
	}
	return value
}

func copySlots(slots map[string]any) map[string]any {
	out := make(map[string]any, len(slots)+2)
	for k, v := range slots {
		out[k] = v
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
