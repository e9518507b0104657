package nl

import (
	"regexp"
	"strconv"
	"strings"
)

// Utterance is the normalized form of a user's free-text input. Created per
// query and discarded after matching.
type Utterance struct {
	Original string
	Text     string
	Tokens   []string
	// TokenSet holds every token plus its synonym-canonicalized form, so
	// both spellings are searchable during pattern matching.
	TokenSet map[string]struct{}
	// Numbers lists every maximal digit run in order of appearance.
	Numbers []int
}

var (
	nonTokenChars = regexp.MustCompile(`[^a-z0-9\s/:-]`)
	whitespace    = regexp.MustCompile(`\s+`)
	tokenPattern  = regexp.MustCompile(`[a-z0-9/:-]+`)
	digitRuns     = regexp.MustCompile(`\d+`)
)

// Normalize lowercases, strips non-essential punctuation, tokenizes, expands
// synonyms and extracts embedded integers. It always succeeds; empty input
// yields an empty token set.
func Normalize(query string, shared *SharedResources) Utterance {
	lowered := strings.ToLower(query)
	text := nonTokenChars.ReplaceAllString(lowered, " ")
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	tokens := tokenPattern.FindAllString(text, -1)
	tokenSet := make(map[string]struct{}, len(tokens)*2)
	for _, token := range tokens {
		tokenSet[token] = struct{}{}
		tokenSet[shared.NormalizeToken(token)] = struct{}{}
	}

	var numbers []int
	for _, run := range digitRuns.FindAllString(text, -1) {
		n, err := strconv.Atoi(run)
		if err != nil {
			// Digit runs longer than an int; skip rather than fail.
			continue
		}
		numbers = append(numbers, n)
	}

	return Utterance{
		Original: query,
		Text:     text,
		Tokens:   tokens,
		TokenSet: tokenSet,
		Numbers:  numbers,
	}
}

// HasToken reports whether the term is present in the utterance. Multi-word
// or slash-containing terms are matched as substrings of the normalized
// text; single tokens are matched against the token set.
func (u Utterance) HasToken(term string) bool {
	term = strings.ToLower(term)
	if strings.ContainsAny(term, " /") {
		return strings.Contains(u.Text, term)
	}
	_, ok := u.TokenSet[term]
	return ok
}
