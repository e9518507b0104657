package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError is a safety-rule rejection. Handlers turn it into the
// structured error payload instead of an HTTP failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func rejection(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Result is a statement that passed every safety check.
type Result struct {
	SQL      string
	IsUpdate bool
}

var (
	fencePattern = regexp.MustCompile("(?is)```sql\\s*(.+?)\\s*```")
	fenceMarkers = regexp.MustCompile("(?i)```(?:sql)?")

	forbiddenKeywords = regexp.MustCompile(`(?i)\b(CREATE|ALTER|DROP|DELETE|INSERT|TRUNCATE|MERGE|REPLACE|UPSERT|GRANT|REVOKE)\b`)

	bufferUpdatePattern = regexp.MustCompile(`(?is)^\s*UPDATE\s+menu_items\s+SET\s+buffer_qty\s*=\s*[0-9]+(\.[0-9]+)?`)
	setClausePattern    = regexp.MustCompile(`(?is)\bSET\s+(.+?)(?:\bWHERE\b|$)`)

	tableRefPattern = regexp.MustCompile(`(?i)\b(FROM|JOIN|UPDATE)\s+([A-Za-z_]\w*)(?:\s+(?:AS\s+)?([A-Za-z_]\w*))?`)
	columnRefPattern = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)\b`)
)

// reserved words that a table-reference regex can mistake for an alias.
var nonAliasWords = map[string]struct{}{
	"on": {}, "set": {}, "where": {}, "join": {}, "inner": {}, "left": {},
	"right": {}, "full": {}, "outer": {}, "cross": {}, "group": {},
	"order": {}, "limit": {}, "having": {}, "union": {}, "using": {},
}

// ExtractSQL pulls the statement out of the single ```sql fenced block in
// the generated text.
func ExtractSQL(text string) (string, error) {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return "", rejection("model response missing ```sql fenced block")
	}
	sqlText := strings.TrimSpace(m[1])
	if sqlText == "" {
		return "", rejection("model returned an empty SQL block")
	}
	return sqlText, nil
}

// StripFence removes fence markers so rejected SQL can be echoed back in
// error payloads.
func StripFence(text string) string {
	return strings.TrimSpace(fenceMarkers.ReplaceAllString(text, ""))
}

// Validate applies every safety rule to a candidate statement. Each step
// is a hard rejection point; the scrubbed form (literals and comments
// blanked) is what keyword, table, and column scans run against, so quoted
// text can never smuggle a match in or out.
func Validate(sqlText string, allowUpdate bool) (Result, error) {
	sqlText = strings.TrimSpace(sqlText)
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSpace(strings.TrimSuffix(sqlText, ";"))
	}
	if sqlText == "" {
		return Result{}, rejection("empty SQL statement")
	}
	if hasSemicolon(sqlText) {
		return Result{}, rejection("multiple statements or semicolons are not allowed")
	}

	scrubbed := stripLiteralsAndComments(sqlText)
	if forbiddenKeywords.MatchString(scrubbed) {
		return Result{}, rejection("SQL contains a forbidden operation")
	}

	upper := strings.ToUpper(strings.TrimSpace(scrubbed))
	isUpdate := strings.HasPrefix(upper, "UPDATE")
	if isUpdate {
		if !allowUpdate {
			return Result{}, rejection("updates are not permitted for this query")
		}
		if err := validateBufferUpdate(sqlText, scrubbed); err != nil {
			return Result{}, err
		}
	} else if !strings.HasPrefix(upper, "SELECT") {
		return Result{}, rejection("only SELECT queries are permitted")
	}

	if err := validateTableRefs(scrubbed); err != nil {
		return Result{}, err
	}
	if err := validateColumnRefs(scrubbed); err != nil {
		return Result{}, err
	}
	return Result{SQL: sqlText, IsUpdate: isUpdate}, nil
}

// validateBufferUpdate enforces the single write capability: the statement
// must assign a numeric literal to menu_items.buffer_qty, and no SET clause
// anywhere in it may touch another column, even alongside buffer_qty.
func validateBufferUpdate(sqlText, scrubbed string) error {
	if !bufferUpdatePattern.MatchString(sqlText) {
		return rejection("only %s.%s updates are permitted", WritableTable, WritableColumn)
	}
	for _, m := range setClausePattern.FindAllStringSubmatch(scrubbed, -1) {
		for _, assignment := range strings.Split(m[1], ",") {
			assignment = strings.ToLower(strings.TrimSpace(assignment))
			if assignment != "" && !strings.HasPrefix(assignment, WritableColumn) {
				return rejection("UPDATE statement attempts to modify disallowed columns")
			}
		}
	}
	return nil
}

// validateTableRefs checks every FROM/JOIN/UPDATE table reference against
// the whitelist. Aliases are parsed but only the real table name is
// judged.
func validateTableRefs(scrubbed string) error {
	refs := tableRefPattern.FindAllStringSubmatch(scrubbed, -1)
	if len(refs) == 0 {
		return rejection("SQL references no recognizable tables")
	}
	for _, ref := range refs {
		table := strings.ToLower(ref[2])
		if !TableAllowed(table) {
			return rejection("table '%s' is not allowed", table)
		}
	}
	return nil
}

// validateColumnRefs checks every alias.column reference against the
// column union. Column-name-only on purpose: conservative, never accepts
// an unlisted name.
func validateColumnRefs(scrubbed string) error {
	for _, ref := range columnRefPattern.FindAllStringSubmatch(scrubbed, -1) {
		qualifier := strings.ToLower(ref[1])
		if _, reserved := nonAliasWords[qualifier]; reserved {
			continue
		}
		if !ColumnAllowed(ref[2]) {
			return rejection("column '%s' is not allowed", ref[2])
		}
	}
	return nil
}
