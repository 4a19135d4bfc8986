package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pscheid92/memepulse/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS tickers (
	symbol            TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	first_seen        INTEGER NOT NULL,
	last_seen         INTEGER NOT NULL,
	impact_score      REAL NOT NULL,
	prev_impact_score REAL NOT NULL,
	meme_likelihood   REAL NOT NULL,
	stage             TEXT NOT NULL,
	stage_changed_at  INTEGER NOT NULL,
	cycles_in_stage   INTEGER NOT NULL,
	trend_cycles      INTEGER NOT NULL,
	below_low_cycles  INTEGER NOT NULL,
	shortable         INTEGER NOT NULL,
	decline_flag      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_aggregates (
	symbol             TEXT NOT NULL,
	day                INTEGER NOT NULL,
	mention_count      INTEGER NOT NULL,
	sentiment_sum      REAL NOT NULL,
	sentiment_count    INTEGER NOT NULL,
	closing_price      REAL NOT NULL,
	volume             INTEGER NOT NULL,
	short_interest_pct REAL NOT NULL,
	PRIMARY KEY (symbol, day)
);
`

// SQLiteRepository persists ticker history in a local SQLite database so the
// 30-day baselines survive restarts.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The store has a single writer; a second connection would only contend.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// LoadAll reads every persisted ticker record with its aggregates.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]*domain.TickerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, name, first_seen, last_seen, impact_score, prev_impact_score,
		       meme_likelihood, stage, stage_changed_at, cycles_in_stage,
		       trend_cycles, below_low_cycles, shortable, decline_flag
		FROM tickers`)
	if err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bySymbol := make(map[string]*domain.TickerRecord)
	var records []*domain.TickerRecord
	for rows.Next() {
		var (
			rec                            domain.TickerRecord
			firstSeen, lastSeen, changedAt int64
			shortable, declineFlag         int
		)
		if err := rows.Scan(&rec.Symbol, &rec.Name, &firstSeen, &lastSeen,
			&rec.ImpactScore, &rec.PrevImpactScore, &rec.MemeLikelihood,
			&rec.StageState.Stage, &changedAt, &rec.StageState.CyclesInStage,
			&rec.StageState.PositiveTrendCycles, &rec.StageState.BelowLowCycles,
			&shortable, &declineFlag); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		rec.FirstSeen = time.Unix(firstSeen, 0).UTC()
		rec.LastSeen = time.Unix(lastSeen, 0).UTC()
		rec.StageState.ChangedAt = time.Unix(changedAt, 0).UTC()
		rec.Shortable = shortable != 0
		rec.DeclineFlag = declineFlag != 0
		bySymbol[rec.Symbol] = &rec
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickers: %w", err)
	}

	aggRows, err := r.db.QueryContext(ctx, `
		SELECT symbol, day, mention_count, sentiment_sum, sentiment_count,
		       closing_price, volume, short_interest_pct
		FROM daily_aggregates ORDER BY symbol, day`)
	if err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}
	defer func() { _ = aggRows.Close() }()

	for aggRows.Next() {
		var (
			symbol string
			day    int64
			agg    domain.DailyAggregate
		)
		if err := aggRows.Scan(&symbol, &day, &agg.MentionCount, &agg.SentimentSum,
			&agg.SentimentCount, &agg.ClosingPrice, &agg.Volume, &agg.ShortInterestPct); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		agg.Day = time.Unix(day, 0).UTC()
		if rec, ok := bySymbol[symbol]; ok {
			rec.Aggregates = append(rec.Aggregates, agg)
		}
	}
	if err := aggRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", err)
	}

	return records, nil
}

// SaveAll upserts the given records and their aggregates in one transaction.
func (r *SQLiteRepository) SaveAll(ctx context.Context, records []*domain.TickerRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tickerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tickers (symbol, name, first_seen, last_seen, impact_score,
			prev_impact_score, meme_likelihood, stage, stage_changed_at,
			cycles_in_stage, trend_cycles, below_low_cycles, shortable, decline_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			last_seen = excluded.last_seen,
			impact_score = excluded.impact_score,
			prev_impact_score = excluded.prev_impact_score,
			meme_likelihood = excluded.meme_likelihood,
			stage = excluded.stage,
			stage_changed_at = excluded.stage_changed_at,
			cycles_in_stage = excluded.cycles_in_stage,
			trend_cycles = excluded.trend_cycles,
			below_low_cycles = excluded.below_low_cycles,
			shortable = excluded.shortable,
			decline_flag = excluded.decline_flag`)
	if err != nil {
		return fmt.Errorf("prepare ticker upsert: %w", err)
	}
	defer func() { _ = tickerStmt.Close() }()

	aggStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_aggregates (symbol, day, mention_count, sentiment_sum,
			sentiment_count, closing_price, volume, short_interest_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, day) DO UPDATE SET
			mention_count = excluded.mention_count,
			sentiment_sum = excluded.sentiment_sum,
			sentiment_count = excluded.sentiment_count,
			closing_price = excluded.closing_price,
			volume = excluded.volume,
			short_interest_pct = excluded.short_interest_pct`)
	if err != nil {
		return fmt.Errorf("prepare aggregate upsert: %w", err)
	}
	defer func() { _ = aggStmt.Close() }()

	for _, rec := range records {
		if _, err := tickerStmt.ExecContext(ctx,
			rec.Symbol, rec.Name, rec.FirstSeen.Unix(), rec.LastSeen.Unix(),
			rec.ImpactScore, rec.PrevImpactScore, rec.MemeLikelihood,
			string(rec.StageState.Stage), rec.StageState.ChangedAt.Unix(),
			rec.StageState.CyclesInStage, rec.StageState.PositiveTrendCycles,
			rec.StageState.BelowLowCycles, boolToInt(rec.Shortable),
			boolToInt(rec.DeclineFlag)); err != nil {
			return fmt.Errorf("upsert ticker %s: %w", rec.Symbol, err)
		}
		for _, agg := range rec.Aggregates {
			if _, err := aggStmt.ExecContext(ctx,
				rec.Symbol, agg.Day.Unix(), agg.MentionCount, agg.SentimentSum,
				agg.SentimentCount, agg.ClosingPrice, agg.Volume,
				agg.ShortInterestPct); err != nil {
				return fmt.Errorf("upsert aggregate %s/%s: %w", rec.Symbol, agg.Day.Format(time.DateOnly), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// DeleteSymbol removes one ticker and its aggregates.
func (r *SQLiteRepository) DeleteSymbol(ctx context.Context, symbol string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_aggregates WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("delete aggregates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickers WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("delete ticker: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Clear purges all persisted history.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM daily_aggregates`); err != nil {
		return fmt.Errorf("clear aggregates: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tickers`); err != nil {
		return fmt.Errorf("clear tickers: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
