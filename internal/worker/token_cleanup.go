package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/service/token"
)

// TokenCleanup periodically removes expired auth tokens. With a
// two-minute TTL the table churns fast; without the sweep it grows
// without bound.
type TokenCleanup struct {
	tokens   *token.Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewTokenCleanup(tokens *token.Service, interval time.Duration, logger zerolog.Logger) *TokenCleanup {
	return &TokenCleanup{
		tokens:   tokens,
		interval: interval,
		logger:   logger.With().Str("component", "token_cleanup").Logger(),
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Sweep failures are logged and the loop keeps going.
func (w *TokenCleanup) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("token cleanup started")
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			w.logger.Info().Msg("token cleanup stopped")
			return
		}
	}
}

func (w *TokenCleanup) sweep(ctx context.Context) {
	removed, err := w.tokens.Cleanup(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("cleanup sweep failed")
		return
	}
	if removed > 0 {
		w.logger.Debug().Int64("removed", removed).Msg("cleanup sweep done")
	}
}
