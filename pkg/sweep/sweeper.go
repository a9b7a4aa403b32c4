// Package sweep drives the periodic maintenance of a pool registry. The
// registry deliberately never schedules its own upkeep; a Sweeper is the
// scheduling collaborator that invokes FlushMeters and Clean on a steady
// cadence so idle chunks drift back to the heap and cumulative statistics
// stay current.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mempool/pkg/config"
	"github.com/ajitpratap0/mempool/pkg/mempool"
)

// Sweeper periodically runs the reclamation sweep over one registry.
type Sweeper struct {
	reg      *mempool.Registry
	interval time.Duration
	maxAge   time.Duration
	log      *zap.Logger
}

// New returns a Sweeper for the registry using the config's sweep
// settings.
func New(reg *mempool.Registry, cfg config.SweepConfig, log *zap.Logger) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultSweepInterval
	}
	maxAge := cfg.MaxChunkAge
	if maxAge <= 0 {
		maxAge = config.DefaultMaxChunkAge
	}

	return &Sweeper{
		reg:      reg,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled. A pass that
// has started runs to completion; cancellation only stops scheduling of
// the next one.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("max_chunk_age", s.maxAge))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one maintenance pass immediately.
func (s *Sweeper) Sweep() {
	start := time.Now()
	reclaimed := s.reg.Clean(s.maxAge)

	s.log.Debug("sweep complete",
		zap.Int64("reclaimed_bytes", reclaimed),
		zap.Duration("took", time.Since(start)))
}
