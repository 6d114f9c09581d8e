package job

import (
	"context"
	"time"

	"crypto-checkout/internal/core/ports"

	"github.com/rs/zerolog"
)

// Sweeper periodically expires stale Pending orders and purges terminal
// orders past the retention horizon. It is a safety net on top of the
// lazy expiry check in Confirm: the sweep keeps listings honest even
// for orders nobody polls.
type Sweeper struct {
	engine            ports.OrderEngine
	sweepInterval     time.Duration
	retentionInterval time.Duration
	log               zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(engine ports.OrderEngine, sweepInterval, retentionInterval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		engine:            engine,
		sweepInterval:     sweepInterval,
		retentionInterval: retentionInterval,
		log:               log.With().Str("component", "sweeper").Logger(),
	}
}

// Run blocks until ctx is cancelled, sweeping and purging on their
// respective cadences. A failed pass is logged and retried on the next
// tick, never fatal.
func (s *Sweeper) Run(ctx context.Context) {
	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()
	purge := time.NewTicker(s.retentionInterval)
	defer purge.Stop()

	s.log.Info().
		Dur("sweep_interval", s.sweepInterval).
		Dur("retention_interval", s.retentionInterval).
		Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopped")
			return
		case <-sweep.C:
			if _, err := s.engine.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("sweep pass failed")
			}
		case <-purge.C:
			if _, err := s.engine.PurgeTerminal(ctx); err != nil {
				s.log.Error().Err(err).Msg("purge pass failed")
			}
		}
	}
}
