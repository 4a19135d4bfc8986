package app

import (
	"context"
	"errors"

	"github.com/pscheid92/memepulse/internal/config"
	"github.com/pscheid92/memepulse/internal/domain"
	apperrors "github.com/pscheid92/memepulse/internal/errors"
	"github.com/pscheid92/memepulse/internal/fetchcache"
)

// Service exposes the engine's operations to transport layers. It never
// touches historical state directly; mutation goes through the coordinator's
// request channel, reads come from published value copies.
type Service struct {
	coordinator *Coordinator
	cache       *fetchcache.Cache
}

// NewService creates the application service.
func NewService(coordinator *Coordinator, cache *fetchcache.Cache) *Service {
	return &Service{coordinator: coordinator, cache: cache}
}

// Cycle returns the most recently committed cycle result with all ticker
// snapshots, hottest first.
func (s *Service) Cycle() *domain.CycleResult {
	return s.coordinator.LastCycle()
}

// Snapshots returns all current ticker snapshots, hottest first.
func (s *Service) Snapshots() []domain.TickerSnapshot {
	return s.coordinator.LastCycle().Snapshots
}

// Snapshot returns the snapshot for one ticker.
func (s *Service) Snapshot(symbol string) (domain.TickerSnapshot, error) {
	for _, snap := range s.Snapshots() {
		if snap.Symbol == symbol {
			return snap, nil
		}
	}
	return domain.TickerSnapshot{}, apperrors.NotFoundError("ticker " + symbol + " is not tracked")
}

// RefreshNow forces an immediate refresh, bypassing the regular interval.
// An empty symbol reruns the full cycle; a symbol refreshes only that
// ticker's market data.
func (s *Service) RefreshNow(ctx context.Context, symbol string) error {
	err := s.coordinator.RefreshNow(ctx, symbol)
	if errors.Is(err, domain.ErrTickerNotFound) {
		return apperrors.NotFoundError("ticker " + symbol + " is not tracked")
	}
	return err
}

// SetWeighting validates and installs new composite blend factors. Setting
// the current weights again is a no-op. The weights apply from the next
// recomputation; historical scores are not rewritten.
func (s *Service) SetWeighting(w domain.Weights) error {
	if err := config.ValidateWeights(w); err != nil {
		return err
	}
	s.coordinator.SetWeights(w)
	return nil
}

// Weighting returns the active blend factors.
func (s *Service) Weighting() domain.Weights {
	return s.coordinator.Weights()
}

// ForceUpdateCache drops every cached fetch and resets all source failure
// state, so the next cycle refetches everything.
func (s *Service) ForceUpdateCache() {
	s.cache.InvalidateAll()
}

// ClearHistoricalData purges all per-ticker history, in memory and persisted.
// Every ticker restarts its lifecycle from scratch on its next mention.
func (s *Service) ClearHistoricalData(ctx context.Context) error {
	return s.coordinator.ClearHistory(ctx)
}
