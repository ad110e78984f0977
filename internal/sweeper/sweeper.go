// Package sweeper reclassifies scans orphaned in processing, typically
// after a crash or deploy killed their worker mid-run.
package sweeper

import (
	"context"
	"time"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/store"
)

// Sweeper periodically fails processing scans whose last update is older
// than the stale window.
type Sweeper struct {
	store  *store.Store
	cfg    config.SweeperConfig
	logger logging.Logger
}

func New(st *store.Store, cfg config.SweeperConfig, logger logging.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	return &Sweeper{
		store:  st,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "sweeper"}),
	}
}

// Run sweeps on the configured interval until the context is canceled.
// One sweep happens immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass and returns how many scans were failed.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.store.MarkStaleAsFailed(ctx, s.cfg.StaleAfter)
	if err != nil {
		s.logger.Warn("sweeping stale scans", logging.Field{Key: "error", Value: err.Error()})
		return 0
	}
	if n > 0 {
		s.logger.Info("stale scans reclassified as failed", logging.Field{Key: "count", Value: n})
	}
	return n
}
