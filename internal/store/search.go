package store

import "strings"

// tokenize splits a search query on whitespace and lowercases each token,
// matching SearchFragments' case-insensitive substring semantics.
func tokenize(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

// matchesAllTokens reports whether content contains every token as a
// case-insensitive substring. A query with no tokens matches everything.
func matchesAllTokens(content string, tokens []string) bool {
	lower := strings.ToLower(content)
	for _, t := range tokens {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	return true
}
