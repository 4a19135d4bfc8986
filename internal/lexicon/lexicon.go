// Package lexicon scores free text with a bounded keyword-polarity heuristic.
// It is deliberately not a trained classifier: the score is the balance of
// positive vs. negative trading-slang hits, in [-1,1].
package lexicon

import "strings"

var positive = []string{
	"buy", "bullish", "moon", "rocket", "diamond", "hands", "hold", "hodl",
	"squeeze", "gain", "profit", "up", "rise", "call", "calls", "long",
	"pump", "rally", "breakout", "momentum", "strong", "support", "bull",
}

var negative = []string{
	"sell", "bearish", "crash", "drop", "fall", "puts", "put", "short",
	"dump", "loss", "down", "bear", "red", "baghold", "panic", "fear",
	"resistance", "weak", "dip", "correction", "bubble", "overvalued",
}

// Scorer computes polarity scores against fixed keyword sets.
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewScorer builds a scorer with the default trading lexicon.
func NewScorer() *Scorer {
	s := &Scorer{
		positive: make(map[string]struct{}, len(positive)),
		negative: make(map[string]struct{}, len(negative)),
	}
	for _, w := range positive {
		s.positive[w] = struct{}{}
	}
	for _, w := range negative {
		s.negative[w] = struct{}{}
	}
	return s
}

// Score returns (polarity, scored). Polarity is (pos-neg)/(pos+neg) in [-1,1].
// scored is false when the text contains no lexicon words at all, so callers
// can distinguish neutral-by-balance from no-signal.
func (s *Scorer) Score(text string) (float64, bool) {
	var pos, neg int
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		if _, ok := s.positive[word]; ok {
			pos++
			continue
		}
		if _, ok := s.negative[word]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return 0, false
	}
	return float64(pos-neg) / float64(total), true
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
}
