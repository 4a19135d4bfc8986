package score

import (
	"math"

	"github.com/pscheid92/memepulse/internal/domain"
)

const (
	// likelihoodFloor and likelihoodCeil keep the posterior away from
	// absorbing states.
	likelihoodFloor = 0.01
	likelihoodCeil  = 0.99

	// likelihoodGain scales how strongly one cycle's deviation moves the
	// posterior odds.
	likelihoodGain = 1.5
)

// Estimator maintains the Bayesian posterior that a ticker is in a
// meme-driven trading regime.
type Estimator struct {
	prior float64
}

// NewEstimator creates an estimator with the given prior for fresh tickers.
func NewEstimator(prior float64) *Estimator {
	return &Estimator{prior: prior}
}

// Prior returns the configured prior, used when a ticker record is created
// (or re-created after eviction).
func (e *Estimator) Prior() float64 {
	return clip(e.prior, likelihoodFloor, likelihoodCeil)
}

// Update advances the posterior one cycle. deviation is the mean of the
// available volume/sentiment/momentum sub-scores, each already
// baseline-relative with 50 as neutral: the likelihood ratio
// exp(g·(d−50)/50) exceeds 1 exactly when the ticker runs hotter than its
// baselines, so the posterior is strictly monotonic in the deviation.
func (e *Estimator) Update(posterior, deviation float64) float64 {
	p := clip(posterior, likelihoodFloor, likelihoodCeil)

	ratio := math.Exp(likelihoodGain * (deviation - 50) / 50)
	odds := p / (1 - p) * ratio

	return clip(odds/(1+odds), likelihoodFloor, likelihoodCeil)
}

// Deviation reduces a signal set to the scalar driving Update: the mean of
// the volume, sentiment and momentum sub-scores. Missing signals contribute
// their neutral midpoint, so absent data never moves the posterior.
func Deviation(s domain.SignalSet) float64 {
	subs := []domain.SubScore{s.Volume, s.Sentiment, s.Momentum}

	var sum float64
	for _, sub := range subs {
		if sub.Missing {
			sum += 50
			continue
		}
		sum += sub.Value
	}
	return sum / float64(len(subs))
}
