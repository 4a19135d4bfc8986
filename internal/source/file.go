// Package source provides fixture-backed implementations of the upstream
// source interfaces for local runs and tests. Each collaborator reads JSON
// files from a directory; malformed entries are skipped and counted rather
// than failing the whole fetch.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pscheid92/memepulse/internal/domain"
	apperrors "github.com/pscheid92/memepulse/internal/errors"
	"github.com/pscheid92/memepulse/internal/metrics"
)

// FileSource serves posts, price bars and short availability from JSON
// fixtures under a base directory:
//
//	<dir>/posts/<subreddit>.json   []domain.Post
//	<dir>/bars/<symbol>.json       []domain.PriceBar
//	<dir>/short/<symbol>.json      domain.ShortAvailability
type FileSource struct {
	dir string
}

var (
	_ domain.PostSource  = (*FileSource)(nil)
	_ domain.BarSource   = (*FileSource)(nil)
	_ domain.ShortSource = (*FileSource)(nil)
)

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Posts returns the fixture posts for a subreddit. A missing file means an
// empty subreddit, not an error.
func (f *FileSource) Posts(ctx context.Context, subreddit string) ([]domain.Post, error) {
	path := filepath.Join(f.dir, "posts", subreddit+".json")

	var raw []json.RawMessage
	if err := readJSON(path, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	posts := make([]domain.Post, 0, len(raw))
	skipped := 0
	for _, msg := range raw {
		var p domain.Post
		if err := json.Unmarshal(msg, &p); err != nil || p.ID == "" {
			skipped++
			metrics.PostsSkippedTotal.WithLabelValues("parse_error").Inc()
			continue
		}
		posts = append(posts, p)
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped malformed fixture posts",
			"subreddit", subreddit, "skipped", skipped)
	}
	return posts, nil
}

// DailyBars returns up to days trailing bars for a symbol, most recent last.
func (f *FileSource) DailyBars(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error) {
	path := filepath.Join(f.dir, "bars", symbol+".json")

	var bars []domain.PriceBar
	if err := readJSON(path, &bars); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	valid := bars[:0]
	for _, b := range bars {
		if b.Date.IsZero() {
			continue
		}
		valid = append(valid, b)
	}
	if len(valid) > days {
		valid = valid[len(valid)-days:]
	}
	return valid, nil
}

// Availability returns the fixture short availability for a symbol. A missing
// file maps to not-found so callers treat the signal as absent.
func (f *FileSource) Availability(ctx context.Context, symbol string) (domain.ShortAvailability, error) {
	path := filepath.Join(f.dir, "short", symbol+".json")

	var av domain.ShortAvailability
	if err := readJSON(path, &av); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ShortAvailability{}, apperrors.NotFoundError(fmt.Sprintf("no short data for %s", symbol))
		}
		return domain.ShortAvailability{}, err
	}
	av.Symbol = symbol
	return av, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.ParseError(fmt.Sprintf("malformed fixture %s", filepath.Base(path)), err)
	}
	return nil
}
