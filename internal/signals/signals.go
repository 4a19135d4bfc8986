// Package signals computes the four per-ticker sub-scores and normalizes each
// onto a common [0,100] scale, neutral at 50, before composition.
package signals

import (
	"math"
	"time"

	"github.com/pscheid92/memepulse/internal/domain"
)

const (
	// Neutral is the midpoint of the normalized scale.
	Neutral = 50.0

	// VolumeWindowDays is the trailing baseline for the mention z-score.
	VolumeWindowDays = 30
	// minVolumeHistoryDays is the minimum baseline before a z-score is
	// meaningful; with less history the score is neutral, not extrapolated.
	minVolumeHistoryDays = 7
	// zClip bounds z-scores before rescaling.
	zClip = 3.0

	// momentumSpanDays is the trailing price-change horizon.
	momentumSpanDays = 3
	// momentumClipPct bounds the price change before rescaling.
	momentumClipPct = 10.0
)

// Collect computes the full signal set for one ticker from its trailing
// window (ascending by day) and short availability (nil when the collaborator
// had nothing for the ticker). day is the current calendar day; a window whose
// last aggregate predates it scores as a quiet day, not as a replay of the
// last active one.
func Collect(window []domain.DailyAggregate, short *domain.ShortAvailability, day time.Time) domain.SignalSet {
	var current domain.DailyAggregate
	if n := len(window); n > 0 && window[n-1].Day.Equal(day) {
		current = window[n-1]
	}
	return domain.SignalSet{
		Volume:        Volume(window, day),
		Sentiment:     Sentiment(current),
		Momentum:      Momentum(window),
		ShortInterest: ShortInterest(short),
	}
}

// Volume scores the day's mention count as a z-score against the trailing
// baseline, clipped to ±3 and rescaled to [0,100]. A day with no aggregate
// counts as zero mentions.
func Volume(window []domain.DailyAggregate, day time.Time) domain.SubScore {
	prior := window
	var current float64
	if n := len(window); n > 0 && window[n-1].Day.Equal(day) {
		current = float64(window[n-1].MentionCount)
		prior = window[:n-1]
	}
	if len(prior) > VolumeWindowDays {
		prior = prior[len(prior)-VolumeWindowDays:]
	}
	if len(prior) < minVolumeHistoryDays {
		return domain.SubScore{Value: Neutral, Missing: true}
	}

	var sum float64
	for _, a := range prior {
		sum += float64(a.MentionCount)
	}
	mean := sum / float64(len(prior))

	var sqSum float64
	for _, a := range prior {
		d := float64(a.MentionCount) - mean
		sqSum += d * d
	}
	std := math.Sqrt(sqSum / float64(len(prior)))

	var z float64
	switch {
	case std > 0:
		z = (current - mean) / std
	case current > mean:
		// Flat baseline with a spike is the strongest possible anomaly.
		z = zClip
	case current < mean:
		z = -zClip
	}

	z = clip(z, -zClip, zClip)
	return domain.SubScore{Value: (z + zClip) / (2 * zClip) * 100}
}

// Sentiment reports the day's running-mean polarity rescaled from [-1,1] to
// [0,100]. A day with no scored posts is neutral, not an error.
func Sentiment(today domain.DailyAggregate) domain.SubScore {
	if today.SentimentCount == 0 {
		return domain.SubScore{Value: Neutral, Missing: true}
	}
	mean := clip(today.MeanSentiment(), -1, 1)
	return domain.SubScore{Value: (mean + 1) / 2 * 100}
}

// Momentum scores the percentage price change over the trailing trading days
// with closing prices, clipped to ±10% and rescaled to [0,100]. Fewer than
// three priced days is undefined and reported neutral.
func Momentum(window []domain.DailyAggregate) domain.SubScore {
	var closes []float64
	for _, a := range window {
		if a.ClosingPrice > 0 {
			closes = append(closes, a.ClosingPrice)
		}
	}
	if len(closes) < momentumSpanDays {
		return domain.SubScore{Value: Neutral, Missing: true}
	}

	refIdx := len(closes) - 1 - momentumSpanDays
	if refIdx < 0 {
		refIdx = 0
	}
	ref := closes[refIdx]
	changePct := (closes[len(closes)-1] - ref) / ref * 100

	changePct = clip(changePct, -momentumClipPct, momentumClipPct)
	return domain.SubScore{Value: (changePct + momentumClipPct) / (2 * momentumClipPct) * 100}
}

// ShortInterest scores the shorted share of float directly on [0,100].
// Absent data is a zero contribution, not an error.
func ShortInterest(avail *domain.ShortAvailability) domain.SubScore {
	if avail == nil {
		return domain.SubScore{Value: 0, Missing: true}
	}
	return domain.SubScore{Value: clip(avail.ShortInterestPct, 0, 100)}
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
