package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/memepulse/internal/domain"
)

func TestEstimator_Prior(t *testing.T) {
	assert.Equal(t, 0.5, NewEstimator(0.5).Prior())
	assert.Equal(t, 0.01, NewEstimator(0).Prior())
	assert.Equal(t, 0.99, NewEstimator(1).Prior())
}

func TestUpdate_NeutralDeviationHoldsPosterior(t *testing.T) {
	e := NewEstimator(0.5)

	assert.InDelta(t, 0.5, e.Update(0.5, 50), 1e-9)
	assert.InDelta(t, 0.3, e.Update(0.3, 50), 1e-9)
}

func TestUpdate_HotDeviationRaisesPosterior(t *testing.T) {
	e := NewEstimator(0.5)

	assert.Greater(t, e.Update(0.5, 80), 0.5)
}

func TestUpdate_ColdDeviationLowersPosterior(t *testing.T) {
	e := NewEstimator(0.5)

	assert.Less(t, e.Update(0.5, 20), 0.5)
}

func TestUpdate_MonotonicInDeviation(t *testing.T) {
	e := NewEstimator(0.5)

	prev := e.Update(0.5, 0)
	for d := 10.0; d <= 100; d += 10 {
		next := e.Update(0.5, d)
		assert.GreaterOrEqual(t, next, prev, "deviation %v", d)
		prev = next
	}
}

func TestUpdate_StaysWithinBounds(t *testing.T) {
	e := NewEstimator(0.5)

	p := 0.5
	for i := 0; i < 100; i++ {
		p = e.Update(p, 100)
	}
	assert.Equal(t, 0.99, p)

	p = 0.5
	for i := 0; i < 100; i++ {
		p = e.Update(p, 0)
	}
	assert.Equal(t, 0.01, p)
}

func TestUpdate_RecoversFromFloor(t *testing.T) {
	e := NewEstimator(0.5)

	// After being driven to the floor the posterior must still react to hot
	// cycles instead of sticking at an absorbing state.
	p := e.Update(0.01, 100)
	assert.Greater(t, p, 0.01)
}

func TestDeviation_MeansActivitySignals(t *testing.T) {
	s := domain.SignalSet{
		Volume:    domain.SubScore{Value: 80},
		Sentiment: domain.SubScore{Value: 60},
		Momentum:  domain.SubScore{Value: 40},
		// Short interest never feeds the likelihood update.
		ShortInterest: domain.SubScore{Value: 100},
	}
	assert.InDelta(t, 60, Deviation(s), 0.001)
}

func TestDeviation_MissingSignalsAreNeutral(t *testing.T) {
	s := domain.SignalSet{
		Volume:    domain.SubScore{Value: 80},
		Sentiment: domain.SubScore{Missing: true, Value: 50},
		Momentum:  domain.SubScore{Missing: true, Value: 50},
	}
	assert.InDelta(t, 60, Deviation(s), 0.001)

	allMissing := domain.SignalSet{
		Volume:    domain.SubScore{Missing: true},
		Sentiment: domain.SubScore{Missing: true},
		Momentum:  domain.SubScore{Missing: true},
	}
	assert.InDelta(t, 50, Deviation(allMissing), 0.001)
}
