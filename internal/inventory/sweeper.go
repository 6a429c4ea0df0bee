package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SweepInterval is how often the TTL sweeper runs.
const SweepInterval = 60 * time.Second

// RunSweeper releases expired reservations on a fixed interval until
// the context is cancelled. Intended to run as a long-lived goroutine.
func RunSweeper(ctx context.Context, engine *Engine, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("reservation TTL sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reservation TTL sweeper stopped")
			return
		case <-ticker.C:
			engine.ReleaseExpired()
		}
	}
}
