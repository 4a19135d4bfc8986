// Package stage derives the discrete meme-stock lifecycle stage from score
// history. Transitions follow a fixed graph and move at most one forward edge
// per cycle; hysteresis counters prevent single-cycle flapping.
package stage

import (
	"time"

	"github.com/pscheid92/memepulse/internal/domain"
	"github.com/pscheid92/memepulse/internal/metrics"
)

// Thresholds parameterize the transition graph.
type Thresholds struct {
	// MinPosts gates the very first transition out of Start.
	MinPosts int
	// RiseCycles is how many consecutive cycles the impact trend must be
	// positive before Start yields to RisingInterest.
	RiseCycles int
	// MomentumLevel is the impact score needed for StockRising.
	MomentumLevel float64
	// PeakLevel is the impact score needed for WithinEstimatedPeak.
	PeakLevel float64
	// LikelihoodLevel is the meme likelihood needed for WithinEstimatedPeak.
	LikelihoodLevel float64
	// CrashSentiment marks a sharply negative sentiment sub-score.
	CrashSentiment float64
	// ElevatedLevel is the impact score above which a sentiment crash flags
	// deteriorating-but-hyped.
	ElevatedLevel float64
	// LowLevel is the impact score under which a ticker starts dropping.
	LowLevel float64
	// DropCycles is how many consecutive cycles the score must stay under
	// LowLevel before the Dropping transition fires.
	DropCycles int
}

// DefaultThresholds returns the stock transition levels.
func DefaultThresholds(minPosts int) Thresholds {
	return Thresholds{
		MinPosts:        minPosts,
		RiseCycles:      2,
		MomentumLevel:   60,
		PeakLevel:       80,
		LikelihoodLevel: 0.75,
		CrashSentiment:  35,
		ElevatedLevel:   60,
		LowLevel:        25,
		DropCycles:      2,
	}
}

// Inputs is one cycle's view of a ticker, as seen by the classifier.
type Inputs struct {
	ImpactScore     float64
	PrevImpactScore float64
	MentionsToday   int
	MemeLikelihood  float64
	Signals         domain.SignalSet
	// Valid is false when this cycle's inputs were malformed or missing; the
	// classifier then holds the previous stage untouched.
	Valid bool
}

// Result is the classifier's per-cycle outcome.
type Result struct {
	State       domain.StageState
	DeclineFlag bool
	Transition  bool
}

// Classifier evaluates the lifecycle state machine once per cycle.
type Classifier struct {
	thresholds Thresholds
}

// New creates a classifier with the given thresholds.
func New(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Step advances the state machine one cycle. declineFlag carries the previous
// flag value; it is set on transitions toward DoNotBuy or Dropping and cleared
// only on transitions back to RisingInterest or StockRising.
func (c *Classifier) Step(prev domain.StageState, declineFlag bool, in Inputs, now time.Time) Result {
	if !in.Valid {
		// Malformed cycle: hold the previous stage rather than transition.
		return Result{State: prev, DeclineFlag: declineFlag}
	}

	state := prev
	state.CyclesInStage++

	// Trend bookkeeping feeds the hysteresis rules below.
	if in.ImpactScore > in.PrevImpactScore {
		state.PositiveTrendCycles++
	} else {
		state.PositiveTrendCycles = 0
	}
	if in.ImpactScore < c.thresholds.LowLevel {
		state.BelowLowCycles++
	} else {
		state.BelowLowCycles = 0
	}

	next := c.nextStage(state, in)
	if next == state.Stage {
		return Result{State: state, DeclineFlag: declineFlag}
	}

	metrics.StageTransitionsTotal.WithLabelValues(string(state.Stage), string(next)).Inc()

	switch {
	case next.Negative():
		declineFlag = true
	case next == domain.StageRisingInterest || next == domain.StageStockRising:
		declineFlag = false
	}

	state.Stage = next
	state.ChangedAt = now
	state.CyclesInStage = 0
	return Result{State: state, DeclineFlag: declineFlag, Transition: true}
}

func (c *Classifier) nextStage(state domain.StageState, in Inputs) domain.Stage {
	t := c.thresholds

	// Dropping is terminal for the current activity window, and any live
	// stage falls into it once the score has stayed under the low threshold
	// long enough.
	if state.Stage == domain.StageDropping {
		return domain.StageDropping
	}
	if state.BelowLowCycles >= t.DropCycles {
		return domain.StageDropping
	}

	switch state.Stage {
	case domain.StageStart:
		if in.MentionsToday >= t.MinPosts && state.PositiveTrendCycles >= t.RiseCycles {
			return domain.StageRisingInterest
		}

	case domain.StageRisingInterest:
		if in.ImpactScore >= t.MomentumLevel && !in.Signals.Momentum.Missing && in.Signals.Momentum.Value > 50 {
			return domain.StageStockRising
		}

	case domain.StageStockRising:
		if in.ImpactScore >= t.PeakLevel && in.MemeLikelihood >= t.LikelihoodLevel {
			return domain.StageEstimatedPeak
		}

	case domain.StageEstimatedPeak:
		if !in.Signals.Sentiment.Missing && in.Signals.Sentiment.Value <= t.CrashSentiment && in.ImpactScore >= t.ElevatedLevel {
			return domain.StageDoNotBuy
		}
	}

	return state.Stage
}
