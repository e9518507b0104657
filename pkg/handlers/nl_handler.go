package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/logging"
	"github.com/OveRide-Phoenix/kk-v1/pkg/middleware"
)

const maxQueryLength = 500

// Interpreter runs the deterministic intent path.
type Interpreter interface {
	Interpret(ctx context.Context, query string) map[string]any
}

// SQLRouter runs the generative path. A returned error means the external
// generation call failed.
type SQLRouter interface {
	HandleQuery(ctx context.Context, query string, confirm bool) (map[string]any, error)
}

// NLHandler exposes the natural-language endpoints.
type NLHandler struct {
	interpreter Interpreter
	sqlRouter   SQLRouter
	limiter     *middleware.RateLimiter
	logger      *zap.Logger
}

func NewNLHandler(interpreter Interpreter, sqlRouter SQLRouter, limiter *middleware.RateLimiter, logger *zap.Logger) *NLHandler {
	return &NLHandler{
		interpreter: interpreter,
		sqlRouter:   sqlRouter,
		limiter:     limiter,
		logger:      logger.Named("nl_handler"),
	}
}

// RegisterRoutes registers the NL routes on the given mux.
func (h *NLHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/nl/route", h.Route)
	mux.HandleFunc("/api/nl/sql", h.SQL)
}

type nlRequest struct {
	Q       string `json:"q"`
	Confirm bool   `json:"confirm"`
}

// Route handles POST and GET /api/nl/route, the deterministic path.
func (h *NLHandler) Route(w http.ResponseWriter, r *http.Request) {
	var query string
	switch r.Method {
	case http.MethodGet:
		query = r.URL.Query().Get("q")
	case http.MethodPost:
		req, ok := h.decodeBody(w, r)
		if !ok {
			return
		}
		query = req.Q
	default:
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET or POST")
		return
	}
	if !h.admit(w, r) {
		return
	}
	query, ok := h.validQuery(w, query)
	if !ok {
		return
	}

	result := h.interpreter.Interpret(r.Context(), query)
	_ = WriteJSON(w, http.StatusOK, result)
}

// SQL handles POST /api/nl/sql, the generative path.
func (h *NLHandler) SQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST")
		return
	}
	req, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	if !h.admit(w, r) {
		return
	}
	query, ok := h.validQuery(w, req.Q)
	if !ok {
		return
	}

	result, err := h.sqlRouter.HandleQuery(r.Context(), query, req.Confirm)
	if err != nil {
		h.logger.Error("generative query failed",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "generation_failed", err.Error())
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *NLHandler) decodeBody(w http.ResponseWriter, r *http.Request) (nlRequest, bool) {
	var req nlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return nlRequest{}, false
	}
	return req, true
}

// admit applies the rate limit before any downstream work.
func (h *NLHandler) admit(w http.ResponseWriter, r *http.Request) bool {
	clientID := clientIdentity(r)
	if h.limiter.Allow(clientID) {
		return true
	}
	h.logger.Warn("rate limit exceeded", zap.String("client", clientID))
	_ = ErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down.")
	return false
}

func (h *NLHandler) validQuery(w http.ResponseWriter, query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Field 'q' is required")
		return "", false
	}
	if len(query) > maxQueryLength {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Query is too long")
		return "", false
	}
	return query, true
}

func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
