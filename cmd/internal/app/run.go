package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run is the `coldeye serve` entrypoint. It returns an error instead of
// calling os.Exit so deferred cleanup still runs.
func Run(ctx context.Context, cfg Config) error {
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("server.init.fail", "err", err)
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
