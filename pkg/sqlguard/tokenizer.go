package sqlguard

import "strings"

// stripLiteralsAndComments blanks string literals, quoted identifiers, and
// comments so keyword/table/column scans never match text inside them.
// Replaced characters become spaces, preserving all offsets outside the
// blanked regions.
func stripLiteralsAndComments(sqlText string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	runes := []rune(sqlText)
	out := make([]rune, len(runes))
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '\'':
				state = stateSingleQuote
				out[i] = ' '
			case ch == '"':
				state = stateDoubleQuote
				out[i] = ' '
			case ch == '-' && next == '-':
				state = stateLineComment
				out[i] = ' '
			case ch == '/' && next == '*':
				state = stateBlockComment
				out[i] = ' '
			default:
				out[i] = ch
			}
		case stateSingleQuote:
			out[i] = ' '
			if ch == '\'' {
				// Doubled quote is the SQL escape for a literal quote.
				if next == '\'' {
					i++
					out[i] = ' '
				} else {
					state = stateNormal
				}
			}
		case stateDoubleQuote:
			out[i] = ' '
			if ch == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if ch == '\n' {
				out[i] = ch
				state = stateNormal
			} else {
				out[i] = ' '
			}
		case stateBlockComment:
			out[i] = ' '
			if ch == '*' && next == '/' {
				i++
				out[i] = ' '
				state = stateNormal
			}
		}
	}

	return string(out)
}

// hasSemicolon reports a semicolon outside string literals and comments.
func hasSemicolon(sqlText string) bool {
	return strings.ContainsRune(stripLiteralsAndComments(sqlText), ';')
}
