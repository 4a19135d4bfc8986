// Package extract finds candidate stock tickers in free text.
package extract

import (
	"sort"
	"strings"
)

const (
	minSymbolLen = 1
	maxSymbolLen = 5
)

// Extractor matches tokens against a known-symbol set with a blacklist of
// ambiguous common words. Cashtag-prefixed tokens ($GME) are always accepted,
// even when unknown, as long as they look like a symbol.
type Extractor struct {
	known     map[string]struct{}
	blacklist map[string]struct{}
}

// New builds an extractor from a known-symbol set and a blacklist.
func New(known, blacklist []string) *Extractor {
	e := &Extractor{
		known:     make(map[string]struct{}, len(known)),
		blacklist: make(map[string]struct{}, len(blacklist)),
	}
	for _, s := range known {
		e.known[s] = struct{}{}
	}
	for _, s := range blacklist {
		e.blacklist[s] = struct{}{}
	}
	return e
}

// Extract returns the deduplicated, sorted set of candidate symbols in text.
// Matching is case-sensitive and on exact token boundaries only; a ticker that
// is a substring of a longer token never matches.
func (e *Extractor) Extract(text string) []string {
	seen := make(map[string]struct{})

	for _, token := range strings.FieldsFunc(text, isTokenSeparator) {
		cashtag := false
		if strings.HasPrefix(token, "$") {
			cashtag = true
			token = token[1:]
		}

		if !validSymbol(token) {
			continue
		}

		if cashtag {
			seen[token] = struct{}{}
			continue
		}

		// Plain tokens must be known symbols and not ambiguous common words.
		if _, ok := e.known[token]; !ok {
			continue
		}
		if _, ok := e.blacklist[token]; ok {
			continue
		}
		seen[token] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// validSymbol enforces the 1-5 uppercase-alphanumeric shape.
func validSymbol(s string) bool {
	if len(s) < minSymbolLen || len(s) > maxSymbolLen {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// isTokenSeparator splits text on everything that cannot be part of a token.
// '$' is kept so cashtags survive tokenization.
func isTokenSeparator(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == '$':
		return false
	default:
		return true
	}
}
