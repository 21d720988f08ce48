package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sessionkv/pkg/session"
)

const readHeaderTimeout = 10 * time.Second

// app is the assembled service: backend, expiry store, sweeper and HTTP handler.
type app struct {
	cfg     Config
	log     *slog.Logger
	backend *backend
	store   *session.ExpiryStore
	sweeper *session.Sweeper
	handler http.Handler
}

func newApp(cfg Config, b *backend, log *slog.Logger) (*app, error) {
	managerOpts, err := cfg.managerOptions()
	if err != nil {
		return nil, err
	}

	store := session.NewExpiryStore(b.db, append(cfg.storeOptions(), session.WithLogger(log))...)
	manager := session.NewManager(store, append(managerOpts, session.WithManagerLogger(log))...)

	return &app{
		cfg:     cfg,
		log:     log,
		backend: b,
		store:   store,
		sweeper: session.NewSweeper(store, b.lister, session.WithSweeperLogger(log)),
		handler: newRouter(manager, b.checks, log),
	}, nil
}

// start schedules the sweeper unless it is disabled.
func (a *app) start() error {
	if !a.cfg.SweepEnabled {
		return nil
	}
	if err := a.sweeper.Start(a.cfg.SweepSchedule); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	a.log.Info("sweeper started", slog.String("schedule", a.cfg.SweepSchedule))
	return nil
}

// shutdown stops the sweeper, disarms every pending expiration timer and
// closes the backend. All steps run even if an earlier one fails.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	if err := a.sweeper.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop sweeper: %w", err))
	}

	a.store.Shutdown()

	if err := closeBackend(ctx, a.backend); err != nil {
		errs = append(errs, err)
		a.log.Error("shutdown hook failed", slog.Any("error", err))
	}

	return errors.Join(errs...)
}

func closeBackend(ctx context.Context, b *backend) error {
	var errs []error
	for _, hook := range b.shutdown {
		errs = append(errs, hook(ctx))
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	a, err := newApp(cfg, b, log)
	if err != nil {
		return errors.Join(err, closeBackend(context.Background(), b))
	}
	if err := a.start(); err != nil {
		return errors.Join(err, a.shutdown(context.Background()))
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return errors.Join(err, a.shutdown(context.Background()))
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			slog.String("address", ln.Addr().String()),
			slog.String("backend", cfg.Backend),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		return errors.Join(srv.Shutdown(shutdownCtx), a.shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed")
	return nil
}
