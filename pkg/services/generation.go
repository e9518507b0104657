package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/apperrors"
	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
	"github.com/OveRide-Phoenix/kk-v1/pkg/llm"
	"github.com/OveRide-Phoenix/kk-v1/pkg/logging"
	"github.com/OveRide-Phoenix/kk-v1/pkg/nl"
	"github.com/OveRide-Phoenix/kk-v1/pkg/prompts"
	"github.com/OveRide-Phoenix/kk-v1/pkg/sqlguard"
)

// SQLGenerationService drives the generative fallback: prompt, generate,
// extract, validate, then execute a SELECT or walk the update pipeline.
type SQLGenerationService struct {
	generator llm.SQLGenerator
	db        database.Executor
	pipeline  *UpdatePipeline
	clock     nl.Clock
	timeout   time.Duration
	logger    *zap.Logger
}

func NewSQLGenerationService(
	generator llm.SQLGenerator,
	db database.Executor,
	pipeline *UpdatePipeline,
	clock nl.Clock,
	timeout time.Duration,
	logger *zap.Logger,
) *SQLGenerationService {
	return &SQLGenerationService{
		generator: generator,
		db:        db,
		pipeline:  pipeline,
		clock:     clock,
		timeout:   timeout,
		logger:    logger.Named("sql_generation"),
	}
}

// HandleQuery runs one generative turn. A returned error means the
// external generation call itself failed and the caller should answer
// service-unavailable; every other outcome, rejections included, is a
// structured payload.
func (s *SQLGenerationService) HandleQuery(ctx context.Context, query string, confirm bool) (map[string]any, error) {
	allowUpdate := shouldAllowUpdate(strings.ToLower(query))
	systemPrompt := prompts.BuildSystemPrompt(s.clock.Today().Format("2006-01-02"), s.clock.Loc.String(), allowUpdate)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rawText, err := s.generator.GenerateSQL(genCtx, systemPrompt, query)
	if err != nil {
		s.logger.Error("SQL generation failed",
			zap.String("model", s.generator.Model()),
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("SQL generation failed: %w", err)
	}

	sqlText, err := sqlguard.ExtractSQL(rawText)
	if err != nil {
		return s.validationFailure(err, rawText), nil
	}
	validated, err := sqlguard.Validate(sqlText, allowUpdate)
	if err != nil {
		return s.validationFailure(err, rawText), nil
	}

	if validated.IsUpdate {
		return s.handleUpdate(ctx, validated.SQL, confirm), nil
	}
	return s.executeSelect(ctx, validated.SQL, query), nil
}

func (s *SQLGenerationService) validationFailure(err error, rawText string) map[string]any {
	s.logger.Warn("generated SQL rejected",
		zap.String("reason", err.Error()),
		zap.String("sql", logging.SanitizeQuery(rawText)))
	return map[string]any{
		"error":    err.Error(),
		"sql":      sqlguard.StripFence(rawText),
		"examples": fallbackExamples(),
	}
}

func (s *SQLGenerationService) executeSelect(ctx context.Context, sqlText, originalQuery string) map[string]any {
	rows, err := s.db.QueryRows(ctx, sqlText)
	if err != nil {
		s.logger.Error("failed to execute generated SELECT",
			zap.String("sql", logging.SanitizeQuery(sqlText)),
			zap.String("error", logging.SanitizeError(err)))
		return map[string]any{
			"error": "Failed to execute generated SQL.",
			"sql":   sqlText,
		}
	}
	display := make([]map[string]any, len(rows))
	for i, row := range rows {
		display[i] = FilterRow(row)
	}
	return map[string]any{
		"intent": inferIntent(sqlText, originalQuery),
		"sql":    sqlText,
		"rows":   display,
	}
}

func (s *SQLGenerationService) handleUpdate(ctx context.Context, sqlText string, confirm bool) map[string]any {
	prepared, err := s.pipeline.Prepare(ctx, sqlText)
	if err != nil {
		return map[string]any{
			"error": updateErrorMessage(err),
			"sql":   sqlText,
		}
	}
	if !confirm {
		return s.pipeline.Preview(prepared)
	}
	return s.pipeline.Apply(ctx, prepared)
}

func updateErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNoUpdateTarget):
		return "No matching menu item found for buffer update."
	case errors.Is(err, apperrors.ErrAmbiguousUpdateTarget):
		return "Multiple menu items matched that description. Please specify the meal."
	default:
		return err.Error()
	}
}

// shouldAllowUpdate is the cheap heuristic deciding what the generator is
// told it may do this turn. The validator is the real enforcement point.
func shouldAllowUpdate(query string) bool {
	return strings.Contains(query, "update") ||
		(strings.Contains(query, "set") && strings.Contains(query, "buffer"))
}

// inferIntent labels a generated SELECT by its shape so responses stay
// consistent with the deterministic path's vocabulary.
func inferIntent(sqlText, originalQuery string) string {
	upper := strings.ToUpper(sqlText)
	switch {
	case strings.Contains(upper, "FROM MENU") && strings.Contains(upper, "BUFFER_QTY"):
		return "GET_MENU_BUFFER"
	case strings.Contains(upper, "FROM MENU"):
		return "GET_MENU"
	case strings.Contains(upper, "FROM ORDERS") && strings.Contains(upper, "SUM"):
		return "GET_ORDER_TOTALS"
	case strings.Contains(upper, "FROM ORDERS") && strings.Contains(upper, "COUNT"):
		return "GET_ORDER_COUNT"
	case strings.Contains(upper, "FROM ORDER_ITEMS"):
		return "GET_TOP_ITEMS"
	case strings.Contains(upper, "FROM CUSTOMERS") && strings.Contains(upper, "ADDRESSES"):
		return "GET_CUSTOMER_ADDRESSES"
	case strings.Contains(upper, "FROM ORDERS") && strings.Contains(upper, "CUSTOMERS"):
		return "GET_CUSTOMER_ORDERS"
	case strings.Contains(upper, "FROM ADMIN_LOGS"):
		return "GET_ADMIN_LOGS_RECENT"
	case strings.Contains(strings.ToLower(originalQuery), "buffer"):
		return "GET_MENU_BUFFER"
	default:
		return "unknown"
	}
}

func fallbackExamples() []string {
	return []string{
		"what's today's menu?",
		"top items this month 5",
		"update buffer for rasam to 20",
		"orders for customer 9876543210 this month",
	}
}
