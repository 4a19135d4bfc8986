// Package history holds the bounded per-ticker time series the scorers read.
// The poll coordinator is the sole writer; readers only ever see value copies.
package history

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/memepulse/internal/domain"
	"github.com/pscheid92/memepulse/internal/metrics"
)

// maxAggregateDays bounds the retained series per ticker. The volume window
// needs 30 days; the rest is slack for calendar gaps.
const maxAggregateDays = 45

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Store is the in-memory historical store. It is not internally synchronized:
// the coordinator owns all mutation, and snapshots are taken at commit time on
// the same goroutine.
type Store struct {
	clock   clockwork.Clock
	records map[string]*domain.TickerRecord
}

// NewStore creates an empty store.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:   clock,
		records: make(map[string]*domain.TickerRecord),
	}
}

// Restore replaces the store contents, used to reload persisted history at
// startup.
func (s *Store) Restore(records []*domain.TickerRecord) {
	s.records = make(map[string]*domain.TickerRecord, len(records))
	for _, r := range records {
		s.records[r.Symbol] = r
	}
	metrics.ActiveTickers.Set(float64(len(s.records)))
}

// Get returns the live record for symbol, or nil.
func (s *Store) Get(symbol string) *domain.TickerRecord {
	return s.records[symbol]
}

// Ensure returns the record for symbol, creating it on first qualifying
// mention. New records start in the Start stage with the given prior.
func (s *Store) Ensure(symbol, name string, prior float64) *domain.TickerRecord {
	if r, ok := s.records[symbol]; ok {
		return r
	}
	now := s.clock.Now()
	r := &domain.TickerRecord{
		Symbol:         symbol,
		Name:           name,
		FirstSeen:      now,
		LastSeen:       now,
		MemeLikelihood: prior,
		StageState: domain.StageState{
			Stage:     domain.StageStart,
			ChangedAt: now,
		},
	}
	s.records[symbol] = r
	metrics.ActiveTickers.Set(float64(len(s.records)))
	return r
}

// AddMentions merges mention and sentiment counts additively into the
// aggregate for day.
func (s *Store) AddMentions(symbol string, day time.Time, mentions int, sentimentSum float64, sentimentCount int) {
	r := s.records[symbol]
	if r == nil {
		return
	}
	agg := s.aggregateFor(r, day)
	agg.MentionCount += mentions
	agg.SentimentSum += sentimentSum
	agg.SentimentCount += sentimentCount
}

// SetMarket records closing price, volume and short interest for day. Unlike
// mentions these overwrite: market data for a day is a fact, not a tally.
func (s *Store) SetMarket(symbol string, day time.Time, closingPrice float64, volume int64, shortInterestPct float64) {
	r := s.records[symbol]
	if r == nil {
		return
	}
	agg := s.aggregateFor(r, day)
	if closingPrice > 0 {
		agg.ClosingPrice = closingPrice
	}
	if volume > 0 {
		agg.Volume = volume
	}
	if shortInterestPct > 0 {
		agg.ShortInterestPct = shortInterestPct
	}
}

// MentionsOn returns the mention tally recorded for symbol on day, zero when
// the symbol is untracked or the day has no aggregate.
func (s *Store) MentionsOn(symbol string, day time.Time) int {
	r := s.records[symbol]
	if r == nil {
		return 0
	}
	day = Day(day)
	for i := range r.Aggregates {
		if r.Aggregates[i].Day.Equal(day) {
			return r.Aggregates[i].MentionCount
		}
	}
	return 0
}

// Window returns up to n trailing daily aggregates for symbol, ascending by
// day, as value copies.
func (s *Store) Window(symbol string, n int) []domain.DailyAggregate {
	r := s.records[symbol]
	if r == nil {
		return nil
	}
	aggs := r.Aggregates
	if len(aggs) > n {
		aggs = aggs[len(aggs)-n:]
	}
	out := make([]domain.DailyAggregate, len(aggs))
	copy(out, aggs)
	return out
}

// Symbols returns all tracked symbols, sorted.
func (s *Store) Symbols() []string {
	out := make([]string, 0, len(s.records))
	for sym := range s.records {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Records returns the live records, for persistence at commit time.
func (s *Store) Records() []*domain.TickerRecord {
	out := make([]*domain.TickerRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// Len returns the number of tracked tickers.
func (s *Store) Len() int {
	return len(s.records)
}

// EvictInactive removes records whose last qualifying mention is older than
// window and returns the evicted symbols. An evicted ticker re-enters the
// lifecycle at Start if it is ever re-created.
func (s *Store) EvictInactive(window time.Duration) []string {
	now := s.clock.Now()
	var evicted []string
	for sym, r := range s.records {
		if now.Sub(r.LastSeen) > window {
			delete(s.records, sym)
			evicted = append(evicted, sym)
		}
	}
	if len(evicted) > 0 {
		metrics.TickersEvictedTotal.Add(float64(len(evicted)))
		metrics.ActiveTickers.Set(float64(len(s.records)))
		sort.Strings(evicted)
	}
	return evicted
}

// Clear purges every record.
func (s *Store) Clear() {
	s.records = make(map[string]*domain.TickerRecord)
	metrics.ActiveTickers.Set(0)
}

// aggregateFor finds or appends the aggregate for day, keeping the series
// sorted and bounded. Aggregates for past days are history and are only ever
// read; callers merge into the current day.
func (s *Store) aggregateFor(r *domain.TickerRecord, day time.Time) *domain.DailyAggregate {
	day = Day(day)
	for i := range r.Aggregates {
		if r.Aggregates[i].Day.Equal(day) {
			return &r.Aggregates[i]
		}
	}
	r.Aggregates = append(r.Aggregates, domain.DailyAggregate{Day: day})
	sort.Slice(r.Aggregates, func(i, j int) bool {
		return r.Aggregates[i].Day.Before(r.Aggregates[j].Day)
	})
	if len(r.Aggregates) > maxAggregateDays {
		r.Aggregates = r.Aggregates[len(r.Aggregates)-maxAggregateDays:]
	}
	for i := range r.Aggregates {
		if r.Aggregates[i].Day.Equal(day) {
			return &r.Aggregates[i]
		}
	}
	// Unreachable: the aggregate was just inserted.
	return &r.Aggregates[len(r.Aggregates)-1]
}
