// Package llm wraps the external text-generation services behind a single
// interface. One request, one response, no streaming, no retries.
package llm

import "context"

// SQLGenerator produces free-form text for a system prompt plus user
// query. The caller imposes its own timeout through ctx and treats any
// failure as terminal for that request.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, systemPrompt, query string) (string, error)
	Model() string
}
