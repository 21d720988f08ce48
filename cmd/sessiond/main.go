// Command sessiond serves cookie-backed HTTP sessions stored in a
// key-value backend and expired by a session.ExpiryStore.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/sessionkv/pkg/logger"
	"github.com/dmitrymomot/sessionkv/pkg/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(nil)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Log, session.LogExtractor())
	defer logger.Flush(2 * time.Second)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("sessiond stopped with error", slog.Any("error", err))
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}
