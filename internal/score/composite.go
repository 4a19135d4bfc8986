// Package score blends the per-signal sub-scores into the composite impact
// score and maintains the Bayesian meme-likelihood posterior.
package score

import (
	"math"

	"github.com/pscheid92/memepulse/internal/domain"
)

// neutral is the midpoint of the normalized sub-score scale.
const neutral = 50.0

// Composite blends the four sub-scores into an impact score in [0,100].
// It is a pure function of the signal set and weights.
//
// Missing sub-scores are excluded and the remaining contributions are scaled
// by totalWeight/availableWeight, so partial data does not silently deflate
// the score. Weights are not forced to sum to 1; keeping them proportionate
// is the caller's responsibility.
func Composite(w domain.Weights, s domain.SignalSet) float64 {
	total := w.Sum()
	if total <= 0 {
		return 0
	}

	var num, avail float64
	for _, pair := range []struct {
		weight float64
		sub    domain.SubScore
	}{
		{w.Volume, s.Volume},
		{w.Sentiment, s.Sentiment},
		{w.Momentum, s.Momentum},
		{w.ShortInterest, s.ShortInterest},
	} {
		if pair.sub.Missing {
			continue
		}
		num += pair.weight * pair.sub.Value
		avail += pair.weight
	}

	// With no sub-score observed at all the composite is the neutral
	// midpoint, not zero: a fresh ticker must not read as collapsing.
	if avail <= 0 {
		return neutral
	}

	return clip(num*(total/avail), 0, 100)
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
