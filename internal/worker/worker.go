// Package worker provides background maintenance for the snapshot store.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SnapshotPruner removes snapshots fetched before a cutoff.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)
}

// Worker periodically prunes stale wallet snapshots so the store does
// not grow without bound. Scoring always refetches snapshots older than
// the TTL, so pruned rows are never a correctness concern.
type Worker struct {
	pruner SnapshotPruner
	logger *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// Interval between pruning runs.
	Interval time.Duration

	// MaxSnapshotAge is how old a snapshot may get before it is pruned.
	MaxSnapshotAge time.Duration
}

// NewWorker creates a new maintenance worker.
func NewWorker(pruner SnapshotPruner, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		pruner: pruner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the pruning loop.
func (w *Worker) Start(cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MaxSnapshotAge <= 0 {
		cfg.MaxSnapshotAge = 24 * time.Hour
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.prune(cfg.MaxSnapshotAge)
			}
		}
	}()

	w.logger.Info("snapshot pruning worker started",
		"interval", cfg.Interval,
		"max_age", cfg.MaxSnapshotAge,
	)
}

func (w *Worker) prune(maxAge time.Duration) {
	ctx, cancel := context.WithTimeout(w.ctx, time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-maxAge)
	removed, err := w.pruner.PruneSnapshots(ctx, cutoff)
	if err != nil {
		w.logger.Error("snapshot pruning failed", "error", err)
		return
	}
	if removed > 0 {
		w.logger.Info("stale snapshots pruned",
			"removed", removed,
			"cutoff", cutoff,
		)
	}
}

// Stop halts the worker and waits for the in-flight run to finish.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}
