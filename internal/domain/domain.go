package domain

import (
	"context"
	"time"
)

// --- Upstream data ---

// Post is a single social-media submission or comment after fetching.
// The engine never talks to Reddit itself; sources hand it ready-made posts.
type Post struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	Text      string    `json:"text"`
	Karma     int       `json:"karma"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceBar is one day of OHLCV market data for a ticker.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ShortAvailability reports whether a ticker can be shorted and what share of
// its float is currently short.
type ShortAvailability struct {
	Symbol           string  `json:"symbol"`
	Shortable        bool    `json:"shortable"`
	ShortInterestPct float64 `json:"short_interest_pct"`
}

// --- Historical model ---

// DailyAggregate accumulates per-ticker activity for one calendar day.
// Same-day updates merge additively; once the day rolls over the aggregate is
// immutable history.
type DailyAggregate struct {
	Day              time.Time `json:"day"` // midnight UTC
	MentionCount     int       `json:"mention_count"`
	SentimentSum     float64   `json:"sentiment_sum"`
	SentimentCount   int       `json:"sentiment_count"`
	ClosingPrice     float64   `json:"closing_price"`
	Volume           int64     `json:"volume"`
	ShortInterestPct float64   `json:"short_interest_pct"`
}

// MeanSentiment returns the running mean in [-1,1], or 0 when no scored posts
// exist for the day.
func (a DailyAggregate) MeanSentiment() float64 {
	if a.SentimentCount == 0 {
		return 0
	}
	return a.SentimentSum / float64(a.SentimentCount)
}

// StageState carries the classifier's per-ticker memory between cycles.
type StageState struct {
	Stage               Stage     `json:"stage"`
	ChangedAt           time.Time `json:"changed_at"`
	CyclesInStage       int       `json:"cycles_in_stage"`
	PositiveTrendCycles int       `json:"positive_trend_cycles"`
	BelowLowCycles      int       `json:"below_low_cycles"`
}

// TickerRecord is the engine's mutable per-ticker state. The poll coordinator
// is its sole writer; everything handed outward is a value copy.
type TickerRecord struct {
	Symbol     string
	Name       string
	FirstSeen  time.Time
	LastSeen   time.Time
	Aggregates []DailyAggregate // ascending by day

	ImpactScore     float64
	PrevImpactScore float64
	MemeLikelihood  float64
	StageState      StageState
	Shortable       bool
	DeclineFlag     bool
}

// DaysActive is the whole number of days since the ticker was first seen,
// never less than 1 for a live record.
func (r *TickerRecord) DaysActive(now time.Time) int {
	d := int(now.Sub(r.FirstSeen).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// --- Scoring ---

// SubScore is a normalized [0,100] signal value. Missing marks signals that
// could not be computed this cycle; the composite scorer renormalizes around
// them instead of letting them deflate the blend.
type SubScore struct {
	Value   float64
	Missing bool
}

// SignalSet bundles the four per-cycle sub-scores for one ticker.
type SignalSet struct {
	Volume        SubScore
	Sentiment     SubScore
	Momentum      SubScore
	ShortInterest SubScore
}

// Weights are the composite blend factors. They are not forced to sum to 1;
// keeping them proportionate is the caller's responsibility.
type Weights struct {
	Volume        float64 `json:"volume"`
	Sentiment     float64 `json:"sentiment"`
	Momentum      float64 `json:"momentum"`
	ShortInterest float64 `json:"short_interest"`
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Volume + w.Sentiment + w.Momentum + w.ShortInterest
}

// DefaultWeights mirrors the classic 40/30/20/10 split.
func DefaultWeights() Weights {
	return Weights{Volume: 0.40, Sentiment: 0.30, Momentum: 0.20, ShortInterest: 0.10}
}

// --- Published output ---

// TickerSnapshot is the immutable per-ticker view handed to presentation and
// automation layers at the end of a committed cycle.
type TickerSnapshot struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	ImpactScore    float64   `json:"impact_score"`
	MemeLikelihood float64   `json:"meme_likelihood"`
	Stage          Stage     `json:"stage"`
	Shortable      bool      `json:"shortable"`
	DeclineFlag    bool      `json:"decline_flag"`
	DaysActive     int       `json:"days_active"`
	VolumeScore    float64   `json:"volume_score"`
	SentimentScore float64   `json:"sentiment_score"`
	MomentumScore  float64   `json:"momentum_score"`
	ShortInterest  float64   `json:"short_interest"`
	MentionsToday  int       `json:"mentions_today"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CycleResult is the envelope published after each committed poll cycle.
type CycleResult struct {
	CycleID        string           `json:"cycle_id"`
	StartedAt      time.Time        `json:"started_at"`
	CommittedAt    time.Time        `json:"committed_at"`
	PostsProcessed int              `json:"posts_processed"`
	PostsSkipped   int              `json:"posts_skipped"`
	TotalMentions  int              `json:"total_mentions"`
	Subreddits     []string         `json:"subreddits"`
	Snapshots      []TickerSnapshot `json:"snapshots"`
}

// --- Collaborator interfaces ---

// PostSource delivers already-fetched posts for one subreddit.
type PostSource interface {
	Posts(ctx context.Context, subreddit string) ([]Post, error)
}

// BarSource delivers daily price bars for one ticker, most recent last.
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, days int) ([]PriceBar, error)
}

// ShortSource delivers short-availability data for one ticker.
type ShortSource interface {
	Availability(ctx context.Context, symbol string) (ShortAvailability, error)
}

// SnapshotPublisher pushes committed cycle results to external consumers.
type SnapshotPublisher interface {
	PublishCycle(ctx context.Context, result CycleResult) error
}

// HistoryRepository persists ticker records and daily aggregates across
// restarts. Implementations must tolerate Save being called once per cycle.
type HistoryRepository interface {
	LoadAll(ctx context.Context) ([]*TickerRecord, error)
	SaveAll(ctx context.Context, records []*TickerRecord) error
	DeleteSymbol(ctx context.Context, symbol string) error
	Clear(ctx context.Context) error
}
