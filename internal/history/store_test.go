package history

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/memepulse/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	return NewStore(clock), clock
}

func TestEnsure_CreatesRecordInStartStage(t *testing.T) {
	store, clock := newTestStore(t)

	r := store.Ensure("GME", "GameStop Corp", 0.5)
	assert.Equal(t, "GME", r.Symbol)
	assert.Equal(t, "GameStop Corp", r.Name)
	assert.Equal(t, domain.StageStart, r.StageState.Stage)
	assert.Equal(t, 0.5, r.MemeLikelihood)
	assert.Equal(t, clock.Now(), r.FirstSeen)
}

func TestEnsure_IsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	first := store.Ensure("GME", "GameStop Corp", 0.5)
	first.ImpactScore = 77

	again := store.Ensure("GME", "GameStop Corp", 0.5)
	assert.Same(t, first, again)
	assert.Equal(t, 1, store.Len())
}

func TestAddMentions_MergesSameDayAdditively(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)
	today := Day(clock.Now())

	store.AddMentions("GME", today, 3, 1.5, 2)
	store.AddMentions("GME", today, 2, -0.5, 1)

	window := store.Window("GME", 10)
	assert.Len(t, window, 1)
	assert.Equal(t, 5, window[0].MentionCount)
	assert.InDelta(t, 1.0, window[0].SentimentSum, 0.001)
	assert.Equal(t, 3, window[0].SentimentCount)
}

func TestAddMentions_NewDayStartsNewAggregate(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)

	store.AddMentions("GME", clock.Now(), 3, 0, 0)
	clock.Advance(24 * time.Hour)
	store.AddMentions("GME", clock.Now(), 7, 0, 0)

	window := store.Window("GME", 10)
	assert.Len(t, window, 2)
	assert.Equal(t, 3, window[0].MentionCount)
	assert.Equal(t, 7, window[1].MentionCount)
	assert.True(t, window[0].Day.Before(window[1].Day))
}

func TestMentionsOn_ReportsDayTally(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)

	day := Day(clock.Now())
	store.AddMentions("GME", day, 3, 0, 0)
	store.AddMentions("GME", day, 2, 0, 0)

	assert.Equal(t, 5, store.MentionsOn("GME", day))
	assert.Zero(t, store.MentionsOn("GME", day.AddDate(0, 0, 1)))
	assert.Zero(t, store.MentionsOn("AMC", day))
}

func TestSetMarket_OverwritesInsteadOfAccumulating(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)
	today := Day(clock.Now())

	store.SetMarket("GME", today, 100, 5000, 12)
	store.SetMarket("GME", today, 105, 6000, 14)

	window := store.Window("GME", 10)
	assert.Equal(t, 105.0, window[0].ClosingPrice)
	assert.Equal(t, int64(6000), window[0].Volume)
	assert.Equal(t, 14.0, window[0].ShortInterestPct)
}

func TestSetMarket_IgnoresZeroValues(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)
	today := Day(clock.Now())

	store.SetMarket("GME", today, 100, 5000, 12)
	store.SetMarket("GME", today, 0, 0, 0)

	window := store.Window("GME", 10)
	assert.Equal(t, 100.0, window[0].ClosingPrice)
	assert.Equal(t, int64(5000), window[0].Volume)
	assert.Equal(t, 12.0, window[0].ShortInterestPct)
}

func TestWindow_ReturnsValueCopies(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)
	store.AddMentions("GME", clock.Now(), 3, 0, 0)

	window := store.Window("GME", 10)
	window[0].MentionCount = 999

	assert.Equal(t, 3, store.Window("GME", 10)[0].MentionCount)
}

func TestWindow_TrailsToNDays(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)

	for i := 0; i < 10; i++ {
		store.AddMentions("GME", clock.Now(), i+1, 0, 0)
		clock.Advance(24 * time.Hour)
	}

	window := store.Window("GME", 3)
	assert.Len(t, window, 3)
	assert.Equal(t, 10, window[2].MentionCount)
}

func TestAggregates_BoundedRetention(t *testing.T) {
	store, clock := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)

	for i := 0; i < 60; i++ {
		store.AddMentions("GME", clock.Now(), 1, 0, 0)
		clock.Advance(24 * time.Hour)
	}

	assert.Len(t, store.Get("GME").Aggregates, maxAggregateDays)
}

func TestEvictInactive_RemovesStaleTickers(t *testing.T) {
	store, clock := newTestStore(t)

	stale := store.Ensure("OLD", "Old Corp", 0.5)
	stale.LastSeen = clock.Now()

	clock.Advance(8 * 24 * time.Hour)
	fresh := store.Ensure("NEW", "New Corp", 0.5)
	fresh.LastSeen = clock.Now()

	evicted := store.EvictInactive(7 * 24 * time.Hour)
	assert.Equal(t, []string{"OLD"}, evicted)
	assert.Nil(t, store.Get("OLD"))
	assert.NotNil(t, store.Get("NEW"))
}

func TestEvictInactive_RecreatedTickerRestartsLifecycle(t *testing.T) {
	store, clock := newTestStore(t)

	r := store.Ensure("GME", "GameStop Corp", 0.5)
	r.StageState.Stage = domain.StageEstimatedPeak
	r.MemeLikelihood = 0.95

	clock.Advance(8 * 24 * time.Hour)
	store.EvictInactive(7 * 24 * time.Hour)

	reborn := store.Ensure("GME", "GameStop Corp", 0.5)
	assert.Equal(t, domain.StageStart, reborn.StageState.Stage)
	assert.Equal(t, 0.5, reborn.MemeLikelihood)
}

func TestClear_PurgesEverything(t *testing.T) {
	store, _ := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)
	store.Ensure("AMC", "AMC Entertainment Holdings Inc", 0.5)

	store.Clear()
	assert.Zero(t, store.Len())
	assert.Empty(t, store.Symbols())
}

func TestRestore_ReplacesContents(t *testing.T) {
	store, _ := newTestStore(t)
	store.Ensure("GME", "GameStop Corp", 0.5)

	store.Restore([]*domain.TickerRecord{{Symbol: "AMC"}})
	assert.Nil(t, store.Get("GME"))
	assert.NotNil(t, store.Get("AMC"))
}

func TestDay_TruncatesToUTCMidnight(t *testing.T) {
	d := Day(time.Date(2026, 8, 15, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), d)
}
