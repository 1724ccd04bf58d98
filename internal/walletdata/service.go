// Package walletdata layers wallet snapshot retrieval: cache first,
// then the snapshot repository, then the chain provider. Fresh fetches
// are written back to both layers so the provider is the last resort.
package walletdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
)

// Upstream is the chain provider the service falls back to.
type Upstream interface {
	Fetch(ctx context.Context, address string) (*domain.WalletSnapshot, error)
}

// Service implements domain.WalletFetcher over the three layers.
// Cache and repository are optional; a nil layer is skipped.
type Service struct {
	cache    domain.Cache
	repo     domain.Repository
	upstream Upstream
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService wires the snapshot layers. ttl bounds both cache entries
// and how old a persisted snapshot may be before it is refetched.
func NewService(cache domain.Cache, repo domain.Repository, upstream Upstream, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		cache:    cache,
		repo:     repo,
		upstream: upstream,
		ttl:      ttl,
		logger:   logger,
	}
}

// Fetch returns the snapshot for one wallet, preferring the cheapest
// fresh source.
func (s *Service) Fetch(ctx context.Context, address string) (*domain.WalletSnapshot, error) {
	addr := strings.ToLower(address)

	if s.cache != nil {
		snap, err := s.cache.GetSnapshot(ctx, addr)
		if err != nil {
			s.logger.Warn("snapshot cache read failed", "address", addr, "error", err)
		} else if snap != nil {
			metrics.SnapshotSource.WithLabelValues("cache").Inc()
			return snap, nil
		}
	}

	if s.repo != nil {
		snap, err := s.repo.GetSnapshot(ctx, addr)
		if err != nil {
			s.logger.Warn("snapshot repository read failed", "address", addr, "error", err)
		} else if snap != nil && time.Since(snap.FetchedAt) < s.ttl {
			metrics.SnapshotSource.WithLabelValues("repository").Inc()
			s.warmCache(ctx, snap)
			return snap, nil
		}
	}

	snap, err := s.upstream.Fetch(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch wallet %s: %w", addr, err)
	}
	metrics.SnapshotSource.WithLabelValues("provider").Inc()

	// Write-backs are best effort: a broken cache or database must not
	// block scoring.
	if s.repo != nil {
		if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Warn("snapshot persist failed", "address", addr, "error", err)
		}
	}
	s.warmCache(ctx, snap)

	return snap, nil
}

func (s *Service) warmCache(ctx context.Context, snap *domain.WalletSnapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetSnapshot(ctx, snap, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed", "address", snap.Address, "error", err)
	}
}
