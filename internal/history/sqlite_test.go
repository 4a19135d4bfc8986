package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/memepulse/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleRecord() *domain.TickerRecord {
	day := time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)
	return &domain.TickerRecord{
		Symbol:          "GME",
		Name:            "GameStop Corp",
		FirstSeen:       day.Add(10 * time.Hour),
		LastSeen:        day.Add(30 * time.Hour),
		ImpactScore:     72.5,
		PrevImpactScore: 68.1,
		MemeLikelihood:  0.83,
		Shortable:       true,
		DeclineFlag:     false,
		StageState: domain.StageState{
			Stage:               domain.StageStockRising,
			ChangedAt:           day.Add(12 * time.Hour),
			CyclesInStage:       4,
			PositiveTrendCycles: 2,
			BelowLowCycles:      0,
		},
		Aggregates: []domain.DailyAggregate{
			{Day: day, MentionCount: 12, SentimentSum: 4.5, SentimentCount: 9, ClosingPrice: 101.5, Volume: 55000, ShortInterestPct: 18},
			{Day: day.AddDate(0, 0, 1), MentionCount: 30, SentimentSum: 12, SentimentCount: 20, ClosingPrice: 120, Volume: 90000, ShortInterestPct: 19},
		},
	}
}

func TestSQLite_SaveAndLoadRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveAll(ctx, []*domain.TickerRecord{sampleRecord()}))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	want := sampleRecord()
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.FirstSeen, got.FirstSeen)
	assert.Equal(t, want.LastSeen, got.LastSeen)
	assert.Equal(t, want.ImpactScore, got.ImpactScore)
	assert.Equal(t, want.MemeLikelihood, got.MemeLikelihood)
	assert.Equal(t, want.StageState, got.StageState)
	assert.True(t, got.Shortable)
	require.Len(t, got.Aggregates, 2)
	assert.Equal(t, want.Aggregates, got.Aggregates)
}

func TestSQLite_SaveAllIsUpsert(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, repo.SaveAll(ctx, []*domain.TickerRecord{rec}))

	rec.ImpactScore = 90
	rec.Aggregates[1].MentionCount = 99
	require.NoError(t, repo.SaveAll(ctx, []*domain.TickerRecord{rec}))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90.0, records[0].ImpactScore)
	assert.Equal(t, 99, records[0].Aggregates[1].MentionCount)
}

func TestSQLite_DeleteSymbol(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	other := sampleRecord()
	other.Symbol = "AMC"
	require.NoError(t, repo.SaveAll(ctx, []*domain.TickerRecord{sampleRecord(), other}))

	require.NoError(t, repo.DeleteSymbol(ctx, "GME"))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AMC", records[0].Symbol)
	assert.Len(t, records[0].Aggregates, 2)
}

func TestSQLite_Clear(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveAll(ctx, []*domain.TickerRecord{sampleRecord()}))
	require.NoError(t, repo.Clear(ctx))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLite_LoadAllEmptyDatabase(t *testing.T) {
	repo := openTestRepo(t)

	records, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLite_RestoreIntoStoreKeepsWindows(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveAll(ctx, []*domain.TickerRecord{sampleRecord()}))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)

	store, _ := newTestStore(t)
	store.Restore(records)

	window := store.Window("GME", 30)
	require.Len(t, window, 2)
	assert.Equal(t, 12, window[0].MentionCount)
	assert.Equal(t, 30, window[1].MentionCount)
}
