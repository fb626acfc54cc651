// Package refresher implements the periodic background rescan that keeps
// previously-synced catalog tuples within their freshness windows.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coursepilot/coursepilot/internal/freshness"
	"github.com/coursepilot/coursepilot/internal/metrics"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// DefaultInterval is the rescan cadence when config leaves it unset.
const DefaultInterval = time.Hour

// Runner executes one refresh attempt for a tuple. Implemented by the
// orchestrator.
type Runner interface {
	Refresh(ctx context.Context, et types.EntityType, term, institution string) error
}

// Refresher periodically lists the sync metadata, finds stale tuples, and
// re-collects them. Each tuple is refreshed under a store lock so multiple
// instances never double-sync. Only tuples synced at least once are rescanned;
// new tuples enter the system through Fetch or an admin sync trigger.
type Refresher struct {
	store    store.Store
	runner   Runner
	policy   *freshness.Policy
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Refresher. A non-positive interval falls back to DefaultInterval.
func New(st store.Store, runner Runner, policy *freshness.Policy, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		store:    st,
		runner:   runner,
		policy:   policy,
		interval: interval,
		logger:   slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (r *Refresher) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Start begins the rescan loop. The first scan runs immediately.
func (r *Refresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Info("refresher started", "interval", r.interval)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.scan(ctx)
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("refresher stopping")
				return
			case <-ticker.C:
				r.scan(ctx)
			}
		}
	}()
}

// Stop shuts the loop down, waiting for an in-flight scan to finish or the
// context to expire.
func (r *Refresher) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("refresher stopped")
	case <-ctx.Done():
		r.logger.Warn("refresher stop timed out")
	}
}

// scan walks every known tuple and refreshes the stale ones.
func (r *Refresher) scan(ctx context.Context) {
	metrics.RefresherRuns.Add(1)

	metas, err := r.store.ListSyncMetadata(ctx, "")
	if err != nil {
		r.logger.Error("listing sync metadata failed", "error", err)
		return
	}

	now := time.Now()
	for _, meta := range metas {
		if ctx.Err() != nil {
			return
		}
		if meta.Status == types.SyncInProgress {
			continue
		}
		if !r.policy.IsStale(meta.EntityType, meta.LastSyncAt, now) {
			continue
		}
		r.refreshTuple(ctx, meta)
	}
}

func (r *Refresher) refreshTuple(ctx context.Context, meta types.SyncMetadata) {
	tuple := types.SyncTuple(meta.EntityType, meta.Term, meta.Institution)
	lockKey := "refresh:" + tuple

	acquired, err := r.store.AcquireLock(ctx, lockKey, 2*r.interval)
	if err != nil {
		r.logger.Error("acquiring refresh lock failed", "tuple", tuple, "error", err)
		return
	}
	if !acquired {
		return // another instance is handling this tuple
	}
	defer func() {
		if err := r.store.ReleaseLock(ctx, lockKey); err != nil {
			r.logger.Error("releasing refresh lock failed", "tuple", tuple, "error", err)
		}
	}()

	if err := r.runner.Refresh(ctx, meta.EntityType, meta.Term, meta.Institution); err != nil {
		r.logger.Warn("background refresh failed", "tuple", tuple, "error", err)
		return
	}
	r.logger.Info("background refresh complete", "tuple", tuple)
}
