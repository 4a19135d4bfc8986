// Package app is the application layer. The Coordinator owns the poll cycle
// and is the sole writer of historical state; the Service exposes the
// engine's operations to transport layers.
package app

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/memepulse/internal/correlation"
	"github.com/pscheid92/memepulse/internal/domain"
	"github.com/pscheid92/memepulse/internal/extract"
	"github.com/pscheid92/memepulse/internal/fetchcache"
	"github.com/pscheid92/memepulse/internal/history"
	"github.com/pscheid92/memepulse/internal/lexicon"
	"github.com/pscheid92/memepulse/internal/metrics"
	"github.com/pscheid92/memepulse/internal/score"
	"github.com/pscheid92/memepulse/internal/signals"
	"github.com/pscheid92/memepulse/internal/stage"
)

// barFetchDays covers the volume baseline plus slack for calendar gaps.
const barFetchDays = 45

// Sources bundles the upstream collaborators.
type Sources struct {
	Posts domain.PostSource
	Bars  domain.BarSource
	Short domain.ShortSource
}

// Options tune the coordinator's cycle.
type Options struct {
	Subreddits     []string
	UpdateInterval time.Duration
	CycleTimeout   time.Duration
	FetchTimeout   time.Duration
	MinPosts       int
	MinKarma       int
	EvictionWindow time.Duration
	MaxConcurrent  int
	Weights        domain.Weights
	PostsTTL       time.Duration
	BarsTTL        time.Duration
	ShortTTL       time.Duration
}

type request struct {
	symbol string // "" means a full cycle
	clear  bool
	done   chan error
}

// Coordinator runs the periodic poll cycle: fetch posts and market data,
// merge into history, recompute scores and stages, evict, persist, publish.
// All state mutation happens on the Run goroutine; cross-goroutine callers
// go through the request channel.
type Coordinator struct {
	clock      clockwork.Clock
	opts       Options
	cache      *fetchcache.Cache
	sources    Sources
	store      *history.Store
	repo       domain.HistoryRepository // may be nil
	publisher  domain.SnapshotPublisher // may be nil
	extractor  *extract.Extractor
	scorer     *lexicon.Scorer
	estimator  *score.Estimator
	classifier *stage.Classifier

	weightsMu sync.RWMutex
	weights   domain.Weights

	// seenPosts dedupes mentions across cycles: posts stay hot on Reddit for
	// hours, so the same submission shows up in many consecutive fetches.
	// Touched only on the Run goroutine.
	seenPosts map[string]time.Time

	lastCycle atomic.Pointer[domain.CycleResult]
	requests  chan request
}

// NewCoordinator wires the poll coordinator. repo and publisher may be nil
// for runs without persistence or fanout.
func NewCoordinator(
	clock clockwork.Clock,
	opts Options,
	cache *fetchcache.Cache,
	sources Sources,
	store *history.Store,
	repo domain.HistoryRepository,
	publisher domain.SnapshotPublisher,
	extractor *extract.Extractor,
	scorer *lexicon.Scorer,
	estimator *score.Estimator,
	classifier *stage.Classifier,
) *Coordinator {
	c := &Coordinator{
		clock:      clock,
		opts:       opts,
		cache:      cache,
		sources:    sources,
		store:      store,
		repo:       repo,
		publisher:  publisher,
		extractor:  extractor,
		scorer:     scorer,
		estimator:  estimator,
		classifier: classifier,
		weights:    opts.Weights,
		seenPosts:  make(map[string]time.Time),
		requests:   make(chan request),
	}
	c.lastCycle.Store(&domain.CycleResult{})
	return c
}

// Run executes the poll loop until ctx is cancelled. One cycle runs
// immediately on start.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.opts.UpdateInterval)
	defer ticker.Stop()

	c.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.runCycle(ctx)
		case req := <-c.requests:
			req.done <- c.handle(ctx, req)
		}
	}
}

// RefreshNow triggers an immediate refresh and waits for it to commit.
// An empty symbol runs a full cycle; a symbol refreshes just that ticker's
// market data and recomputes its scores, skipping post collection.
func (c *Coordinator) RefreshNow(ctx context.Context, symbol string) error {
	return c.submit(ctx, request{symbol: symbol})
}

// ClearHistory purges all historical state, in memory and persisted.
func (c *Coordinator) ClearHistory(ctx context.Context) error {
	return c.submit(ctx, request{clear: true})
}

func (c *Coordinator) submit(ctx context.Context, req request) error {
	req.done = make(chan error, 1)
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handle(ctx context.Context, req request) error {
	switch {
	case req.clear:
		return c.clearHistory(ctx)
	case req.symbol != "":
		return c.refreshSymbol(ctx, req.symbol)
	default:
		c.runCycle(ctx)
		return nil
	}
}

// SetWeights replaces the composite blend factors. The next cycle picks them
// up; callers validate beforehand.
func (c *Coordinator) SetWeights(w domain.Weights) {
	c.weightsMu.Lock()
	c.weights = w
	c.weightsMu.Unlock()
}

// Weights returns the current blend factors.
func (c *Coordinator) Weights() domain.Weights {
	c.weightsMu.RLock()
	defer c.weightsMu.RUnlock()
	return c.weights
}

// LastCycle returns the most recently committed cycle result.
func (c *Coordinator) LastCycle() *domain.CycleResult {
	return c.lastCycle.Load()
}

// --- cycle internals ---

// mentionAccum tallies one symbol's activity during the fetch phase.
type mentionAccum struct {
	mentions       int
	sentimentSum   float64
	sentimentCount int
}

// marketData carries one symbol's fetched market state into the commit phase.
type marketData struct {
	bars  []domain.PriceBar
	short *domain.ShortAvailability
}

// runCycle executes one full poll cycle: a cancellable fetch phase bounded by
// the cycle timeout, then a fast synchronous commit of whatever was gathered.
// A timed-out fetch phase still commits its partial results; only a shutdown
// discards them.
func (c *Coordinator) runCycle(ctx context.Context) {
	cycleID := correlation.NewID()
	ctx = correlation.WithID(ctx, cycleID)
	started := c.clock.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.CycleTimeout)
	defer cancel()

	pending, processed, skipped := c.collectPosts(fetchCtx)

	symbols := c.store.Symbols()
	for sym, acc := range pending {
		if c.store.Get(sym) == nil && acc.mentions >= c.opts.MinPosts {
			symbols = append(symbols, sym)
		}
	}
	market := c.fetchMarket(fetchCtx, symbols)

	if ctx.Err() != nil {
		slog.InfoContext(ctx, "Shutting down, discarding uncommitted cycle")
		return
	}

	result := c.commit(ctx, cycleID, started, pending, market, processed, skipped)
	c.lastCycle.Store(result)

	outcome := "ok"
	if fetchCtx.Err() != nil {
		outcome = "partial"
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(c.clock.Since(started).Seconds())

	slog.InfoContext(ctx, "Cycle committed",
		"outcome", outcome,
		"tickers", len(result.Snapshots),
		"posts", result.PostsProcessed,
		"mentions", result.TotalMentions,
		"duration", c.clock.Since(started))
}

// collectPosts fetches every configured subreddit, filters by karma, extracts
// ticker mentions and scores sentiment. It only reads shared state.
func (c *Coordinator) collectPosts(ctx context.Context) (map[string]*mentionAccum, int, int) {
	pending := make(map[string]*mentionAccum)
	processed, skipped := 0, 0

	for _, sub := range c.opts.Subreddits {
		posts, err := fetchcache.Get(ctx, c.cache, "reddit", "posts:"+sub, c.opts.PostsTTL,
			func(ctx context.Context) ([]domain.Post, error) {
				ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
				defer cancel()
				return c.sources.Posts.Posts(ctx, sub)
			})
		if err != nil {
			slog.WarnContext(ctx, "Post fetch failed", "subreddit", sub, "error", err)
			continue
		}

		for _, post := range posts {
			if post.Karma < c.opts.MinKarma {
				skipped++
				metrics.PostsSkippedTotal.WithLabelValues("low_karma").Inc()
				continue
			}
			if _, ok := c.seenPosts[post.ID]; ok {
				skipped++
				metrics.PostsSkippedTotal.WithLabelValues("duplicate").Inc()
				continue
			}
			c.seenPosts[post.ID] = c.clock.Now()

			syms := c.extractor.Extract(post.Text)
			if len(syms) == 0 {
				skipped++
				metrics.PostsSkippedTotal.WithLabelValues("no_ticker").Inc()
				continue
			}

			processed++
			metrics.PostsProcessedTotal.Inc()

			polarity, scored := c.scorer.Score(post.Text)
			for _, sym := range syms {
				acc := pending[sym]
				if acc == nil {
					acc = &mentionAccum{}
					pending[sym] = acc
				}
				acc.mentions++
				if scored {
					acc.sentimentSum += polarity
					acc.sentimentCount++
				}
			}
		}
	}

	return pending, processed, skipped
}

// fetchMarket gathers bars and short availability for all symbols with
// bounded concurrency. Failures leave the symbol's market entry empty; the
// commit phase scores around missing data.
func (c *Coordinator) fetchMarket(ctx context.Context, symbols []string) map[string]*marketData {
	market := make(map[string]*marketData, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrent)

	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			md := c.fetchSymbolMarket(gctx, sym)
			mu.Lock()
			market[sym] = md
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return market
}

func (c *Coordinator) fetchSymbolMarket(ctx context.Context, symbol string) *marketData {
	md := &marketData{}

	bars, err := fetchcache.Get(ctx, c.cache, "market", "bars:"+symbol, c.opts.BarsTTL,
		func(ctx context.Context) ([]domain.PriceBar, error) {
			ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
			defer cancel()
			return c.sources.Bars.DailyBars(ctx, symbol, barFetchDays)
		})
	if err != nil {
		slog.WarnContext(ctx, "Bar fetch failed", "ticker", symbol, "error", err)
	} else {
		md.bars = bars
	}

	short, err := fetchcache.Get(ctx, c.cache, "short", "short:"+symbol, c.opts.ShortTTL,
		func(ctx context.Context) (domain.ShortAvailability, error) {
			ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
			defer cancel()
			return c.sources.Short.Availability(ctx, symbol)
		})
	if err != nil {
		slog.DebugContext(ctx, "Short availability unavailable", "ticker", symbol, "error", err)
	} else {
		md.short = &short
	}

	return md
}

// commit applies the fetch phase's results to the store, recomputes scores
// and stages, evicts stale tickers, persists and publishes. It runs on the
// coordinator goroutine and never blocks on upstreams.
func (c *Coordinator) commit(
	ctx context.Context,
	cycleID string,
	started time.Time,
	pending map[string]*mentionAccum,
	market map[string]*marketData,
	processed, skipped int,
) *domain.CycleResult {
	now := c.clock.Now()
	today := history.Day(now)
	weights := c.Weights()

	for id, seenAt := range c.seenPosts {
		if now.Sub(seenAt) > 48*time.Hour {
			delete(c.seenPosts, id)
		}
	}

	totalMentions := 0
	for sym, acc := range pending {
		totalMentions += acc.mentions
		r := c.store.Get(sym)
		if r == nil {
			if acc.mentions < c.opts.MinPosts {
				slog.DebugContext(ctx, "Mentions below tracking threshold",
					"ticker", sym, "mentions", acc.mentions)
				continue
			}
			r = c.store.Ensure(sym, extract.DisplayName(sym), c.estimator.Prior())
		}
		c.store.AddMentions(sym, today, acc.mentions, acc.sentimentSum, acc.sentimentCount)
		// A trickle of sub-threshold mentions must not keep a ticker alive
		// through the eviction window.
		if c.store.MentionsOn(sym, today) >= c.opts.MinPosts {
			r.LastSeen = now
		}
	}

	for sym, md := range market {
		if c.store.Get(sym) == nil {
			continue
		}
		for _, bar := range md.bars {
			c.store.SetMarket(sym, bar.Date, bar.Close, bar.Volume, 0)
		}
		if md.short != nil {
			c.store.SetMarket(sym, today, 0, 0, md.short.ShortInterestPct)
			c.store.Get(sym).Shortable = md.short.Shortable
		}
	}

	var snapshots []domain.TickerSnapshot
	for _, sym := range c.store.Symbols() {
		snapshots = append(snapshots, c.rescore(sym, weights, market[sym], now, today))
	}
	sortByImpact(snapshots)

	if evicted := c.store.EvictInactive(c.opts.EvictionWindow); len(evicted) > 0 {
		slog.InfoContext(ctx, "Evicted inactive tickers", "tickers", evicted)
		c.deletePersisted(ctx, evicted)
		snapshots = filterEvicted(snapshots, evicted)
	}

	result := &domain.CycleResult{
		CycleID:        cycleID,
		StartedAt:      started,
		CommittedAt:    now,
		PostsProcessed: processed,
		PostsSkipped:   skipped,
		TotalMentions:  totalMentions,
		Subreddits:     c.opts.Subreddits,
		Snapshots:      snapshots,
	}

	c.persist(ctx)
	c.publish(ctx, result)

	return result
}

// rescore recomputes one ticker's signals, impact score, likelihood and
// stage, mutating its record, and returns the fresh snapshot.
func (c *Coordinator) rescore(symbol string, weights domain.Weights, md *marketData, now, today time.Time) domain.TickerSnapshot {
	r := c.store.Get(symbol)
	window := c.store.Window(symbol, barFetchDays)

	var short *domain.ShortAvailability
	if md != nil {
		short = md.short
	}
	sigs := signals.Collect(window, short, today)

	r.PrevImpactScore = r.ImpactScore
	r.ImpactScore = score.Composite(weights, sigs)
	r.MemeLikelihood = c.estimator.Update(r.MemeLikelihood, score.Deviation(sigs))

	mentionsToday := 0
	if len(window) > 0 && window[len(window)-1].Day.Equal(today) {
		mentionsToday = window[len(window)-1].MentionCount
	}

	res := c.classifier.Step(r.StageState, r.DeclineFlag, stage.Inputs{
		ImpactScore:     r.ImpactScore,
		PrevImpactScore: r.PrevImpactScore,
		MentionsToday:   mentionsToday,
		MemeLikelihood:  r.MemeLikelihood,
		Signals:         sigs,
		Valid:           len(window) > 0,
	}, now)
	r.StageState = res.State
	r.DeclineFlag = res.DeclineFlag

	return domain.TickerSnapshot{
		Symbol:         r.Symbol,
		Name:           r.Name,
		ImpactScore:    r.ImpactScore,
		MemeLikelihood: r.MemeLikelihood,
		Stage:          r.StageState.Stage,
		Shortable:      r.Shortable,
		DeclineFlag:    r.DeclineFlag,
		DaysActive:     r.DaysActive(now),
		VolumeScore:    sigs.Volume.Value,
		SentimentScore: sigs.Sentiment.Value,
		MomentumScore:  sigs.Momentum.Value,
		ShortInterest:  sigs.ShortInterest.Value,
		MentionsToday:  mentionsToday,
		UpdatedAt:      now,
	}
}

// refreshSymbol refreshes one ticker's market data and recomputes its scores,
// skipping post collection entirely.
func (c *Coordinator) refreshSymbol(ctx context.Context, symbol string) error {
	if c.store.Get(symbol) == nil {
		return domain.ErrTickerNotFound
	}

	c.cache.Invalidate("market:bars:" + symbol)
	c.cache.Invalidate("short:short:" + symbol)

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.CycleTimeout)
	defer cancel()
	md := c.fetchSymbolMarket(fetchCtx, symbol)

	now := c.clock.Now()
	today := history.Day(now)
	for _, bar := range md.bars {
		c.store.SetMarket(symbol, bar.Date, bar.Close, bar.Volume, 0)
	}
	if md.short != nil {
		c.store.SetMarket(symbol, today, 0, 0, md.short.ShortInterestPct)
		c.store.Get(symbol).Shortable = md.short.Shortable
	}

	snap := c.rescore(symbol, c.Weights(), md, now, today)

	// Splice the fresh snapshot into the published cycle result.
	last := c.lastCycle.Load()
	updated := *last
	updated.Snapshots = spliceSnapshot(last.Snapshots, snap)
	sortByImpact(updated.Snapshots)
	c.lastCycle.Store(&updated)

	c.persist(ctx)
	return nil
}

func (c *Coordinator) clearHistory(ctx context.Context) error {
	c.store.Clear()
	c.lastCycle.Store(&domain.CycleResult{})
	if c.repo != nil {
		if err := c.repo.Clear(ctx); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Historical data cleared")
	return nil
}

func (c *Coordinator) persist(ctx context.Context) {
	if c.repo == nil {
		return
	}
	if err := c.repo.SaveAll(ctx, c.store.Records()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist history", "error", err)
	}
}

func (c *Coordinator) deletePersisted(ctx context.Context, symbols []string) {
	if c.repo == nil {
		return
	}
	for _, sym := range symbols {
		if err := c.repo.DeleteSymbol(ctx, sym); err != nil {
			slog.WarnContext(ctx, "Failed to delete persisted ticker", "ticker", sym, "error", err)
		}
	}
}

func (c *Coordinator) publish(ctx context.Context, result *domain.CycleResult) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishCycle(ctx, *result); err != nil {
		slog.WarnContext(ctx, "Failed to publish cycle", "error", err)
	}
}

// sortByImpact orders snapshots hottest first, symbol as tie-break.
func sortByImpact(snapshots []domain.TickerSnapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].ImpactScore != snapshots[j].ImpactScore {
			return snapshots[i].ImpactScore > snapshots[j].ImpactScore
		}
		return snapshots[i].Symbol < snapshots[j].Symbol
	})
}

func filterEvicted(snapshots []domain.TickerSnapshot, evicted []string) []domain.TickerSnapshot {
	gone := make(map[string]struct{}, len(evicted))
	for _, sym := range evicted {
		gone[sym] = struct{}{}
	}
	kept := snapshots[:0]
	for _, s := range snapshots {
		if _, ok := gone[s.Symbol]; !ok {
			kept = append(kept, s)
		}
	}
	return kept
}

func spliceSnapshot(snapshots []domain.TickerSnapshot, snap domain.TickerSnapshot) []domain.TickerSnapshot {
	out := make([]domain.TickerSnapshot, len(snapshots))
	copy(out, snapshots)
	for i := range out {
		if out[i].Symbol == snap.Symbol {
			out[i] = snap
			return out
		}
	}
	return append(out, snap)
}
