package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/memepulse/internal/domain"
)

func mentionWindow(counts ...int) []domain.DailyAggregate {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	window := make([]domain.DailyAggregate, len(counts))
	for i, c := range counts {
		window[i] = domain.DailyAggregate{
			Day:          day.AddDate(0, 0, i),
			MentionCount: c,
		}
	}
	return window
}

func lastDay(window []domain.DailyAggregate) time.Time {
	return window[len(window)-1].Day
}

func TestVolume_SpikeOverFlatBaseline(t *testing.T) {
	// 29 days at 5 mentions then a day at 50 must read strongly positive.
	counts := make([]int, 30)
	for i := range counts[:29] {
		counts[i] = 5
	}
	counts[29] = 50

	w := mentionWindow(counts...)
	sub := Volume(w, lastDay(w))
	assert.False(t, sub.Missing)
	assert.Equal(t, 100.0, sub.Value)
}

func TestVolume_FlatBaselineFlatToday(t *testing.T) {
	counts := make([]int, 30)
	for i := range counts {
		counts[i] = 5
	}

	w := mentionWindow(counts...)
	sub := Volume(w, lastDay(w))
	assert.False(t, sub.Missing)
	assert.Equal(t, Neutral, sub.Value)
}

func TestVolume_InsufficientHistoryIsNeutralMissing(t *testing.T) {
	w := mentionWindow(3, 4, 5)
	sub := Volume(w, lastDay(w))
	assert.True(t, sub.Missing)
	assert.Equal(t, Neutral, sub.Value)
}

func TestVolume_ZScoreClipped(t *testing.T) {
	counts := []int{4, 6, 5, 4, 6, 5, 4, 6, 1000}

	w := mentionWindow(counts...)
	sub := Volume(w, lastDay(w))
	assert.False(t, sub.Missing)
	assert.Equal(t, 100.0, sub.Value)
}

func TestVolume_BelowBaseline(t *testing.T) {
	counts := []int{10, 12, 11, 10, 12, 11, 10, 12, 0}

	w := mentionWindow(counts...)
	sub := Volume(w, lastDay(w))
	assert.False(t, sub.Missing)
	assert.Less(t, sub.Value, Neutral)
}

func TestVolume_QuietDayScoresZeroMentions(t *testing.T) {
	// No aggregate for the current day means zero mentions today, not a
	// replay of the last active day.
	counts := make([]int, 30)
	for i := range counts {
		counts[i] = 5
	}
	w := mentionWindow(counts...)

	sub := Volume(w, lastDay(w).AddDate(0, 0, 1))
	assert.False(t, sub.Missing)
	assert.Equal(t, 0.0, sub.Value)
}

func TestSentiment_NoScoredPostsIsNeutral(t *testing.T) {
	sub := Sentiment(domain.DailyAggregate{MentionCount: 10})
	assert.True(t, sub.Missing)
	assert.Equal(t, Neutral, sub.Value)
}

func TestSentiment_Rescaling(t *testing.T) {
	tests := []struct {
		name string
		sum  float64
		n    int
		want float64
	}{
		{"all positive", 4, 4, 100},
		{"all negative", -4, 4, 0},
		{"balanced", 0, 4, 50},
		{"mildly positive", 2, 4, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Sentiment(domain.DailyAggregate{SentimentSum: tt.sum, SentimentCount: tt.n})
			assert.False(t, sub.Missing)
			assert.InDelta(t, tt.want, sub.Value, 0.001)
		})
	}
}

func priceWindow(closes ...float64) []domain.DailyAggregate {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	window := make([]domain.DailyAggregate, len(closes))
	for i, c := range closes {
		window[i] = domain.DailyAggregate{Day: day.AddDate(0, 0, i), ClosingPrice: c}
	}
	return window
}

func TestMomentum_TooFewPricedDaysIsNeutralMissing(t *testing.T) {
	sub := Momentum(priceWindow(10, 11))
	assert.True(t, sub.Missing)
	assert.Equal(t, Neutral, sub.Value)
}

func TestMomentum_RisingPrice(t *testing.T) {
	sub := Momentum(priceWindow(100, 100, 100, 105))
	assert.False(t, sub.Missing)
	assert.InDelta(t, 75, sub.Value, 0.001)
}

func TestMomentum_FallingPriceClipped(t *testing.T) {
	sub := Momentum(priceWindow(100, 100, 100, 80))
	assert.False(t, sub.Missing)
	assert.Equal(t, 0.0, sub.Value)
}

func TestMomentum_SkipsUnpricedDays(t *testing.T) {
	window := priceWindow(100, 100, 100, 110)
	window = append(window[:2], append([]domain.DailyAggregate{{Day: window[1].Day.AddDate(0, 0, 1)}}, window[2:]...)...)

	sub := Momentum(window)
	assert.False(t, sub.Missing)
	assert.Greater(t, sub.Value, Neutral)
}

func TestShortInterest_AbsentIsMissingZero(t *testing.T) {
	sub := ShortInterest(nil)
	assert.True(t, sub.Missing)
	assert.Zero(t, sub.Value)
}

func TestShortInterest_Clipped(t *testing.T) {
	sub := ShortInterest(&domain.ShortAvailability{ShortInterestPct: 140})
	assert.False(t, sub.Missing)
	assert.Equal(t, 100.0, sub.Value)
}

func TestCollect_BundlesAllSignals(t *testing.T) {
	window := mentionWindow(5, 5, 5, 5, 5, 5, 5, 5)
	window[len(window)-1].SentimentSum = 2
	window[len(window)-1].SentimentCount = 2

	set := Collect(window, &domain.ShortAvailability{ShortInterestPct: 20}, lastDay(window))
	assert.False(t, set.Volume.Missing)
	assert.False(t, set.Sentiment.Missing)
	assert.True(t, set.Momentum.Missing)
	assert.Equal(t, 20.0, set.ShortInterest.Value)
}

func TestCollect_QuietDayDropsStaleSentiment(t *testing.T) {
	window := mentionWindow(5, 5, 5, 5, 5, 5, 5, 5)
	window[len(window)-1].SentimentSum = 2
	window[len(window)-1].SentimentCount = 2

	set := Collect(window, nil, lastDay(window).AddDate(0, 0, 1))
	assert.True(t, set.Sentiment.Missing)
	assert.False(t, set.Volume.Missing)
	assert.Less(t, set.Volume.Value, Neutral)
}

func TestCollect_EmptyWindow(t *testing.T) {
	set := Collect(nil, nil, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, set.Volume.Missing)
	assert.True(t, set.Sentiment.Missing)
	assert.True(t, set.Momentum.Missing)
	assert.True(t, set.ShortInterest.Missing)
}
