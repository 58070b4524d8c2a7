package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired tokens.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(svc *Service, interval time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run blocks until ctx is done. A non-positive interval returns immediately.
func (w *Sweeper) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}

	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context) {
	start := time.Now()
	n, err := w.svc.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Warn("session.sweep.fail", "err", err)
		return
	}
	if n > 0 {
		w.log.Info("session.sweep.done",
			"removed", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
