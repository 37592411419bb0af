package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chess-ranking/internal/config"
	"github.com/chess-ranking/internal/domain"
	"github.com/chess-ranking/internal/store"
)

// IndexRebuilder replaces the ranking index contents with the given players
type IndexRebuilder interface {
	Rebuild(ctx context.Context, players []domain.Player) error
}

// SyncWorker periodically rebuilds the ranking index from the player store
type SyncWorker struct {
	store   store.Store
	index   IndexRebuilder
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	st store.Store,
	index IndexRebuilder,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		store:  st,
		index:  index,
		config: cfg,
		logger: logger,
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if w.config.Interval <= 0 {
		return fmt.Errorf("invalid sync interval %s", w.config.Interval)
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx, w.stopCh, w.doneCh)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("ranking index sync failed", "error", err)
			}
		}
	}
}

// RunOnce rebuilds the ranking index from the current store snapshot
func (w *SyncWorker) RunOnce(ctx context.Context) error {
	startTime := time.Now()

	players, err := w.store.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("listing players for sync: %w", err)
	}

	if err := w.index.Rebuild(ctx, players); err != nil {
		return fmt.Errorf("rebuilding ranking index: %w", err)
	}

	w.logger.Info("ranking index synced",
		"duration", time.Since(startTime),
		"player_count", len(players),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
