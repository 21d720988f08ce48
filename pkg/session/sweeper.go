package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/sessionkv/pkg/kv"
	"github.com/dmitrymomot/sessionkv/pkg/logger"
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned int
	Alive   int
	Expired int
	Failed  int
}

// Sweeper re-reads every stored session through ExpiryStore.Revalidate.
// Expired sessions are deleted; live ones get their cleanup timer armed.
// After a restart this restores proactive cleanup for sessions that were
// scheduled by the previous process.
type Sweeper struct {
	store   *ExpiryStore
	lister  kv.Lister
	logger  *slog.Logger
	cron    *cron.Cron
	running context.CancelFunc
	mu      sync.Mutex
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the logger for sweep results.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSweeper creates a Sweeper. lister must enumerate the same database
// the store writes to.
func NewSweeper(store *ExpiryStore, lister kv.Lister, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:  store,
		lister: lister,
		logger: logger.NewNope(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one pass. Per-session failures are counted and joined into
// the returned error; the pass continues past them.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	keys, err := s.lister.Keys(ctx, s.store.Prefix())
	if err != nil {
		return res, err
	}

	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		id, ok := s.store.idFromKey(key)
		if !ok {
			continue
		}
		res.Scanned++

		alive, err := s.store.Revalidate(ctx, id)
		switch {
		case err != nil:
			res.Failed++
			errs = append(errs, err)
		case alive:
			res.Alive++
		default:
			res.Expired++
		}
	}

	return res, errors.Join(errs...)
}

// Start runs Sweep on a standard 5-field cron schedule ("*/15 * * * *")
// or a descriptor such as "@every 10m". Overlapping runs are skipped.
func (s *Sweeper) Start(schedule string) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return errors.Join(ErrInvalidSchedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrSweeperRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() { s.run(ctx) }))
	c.Start()

	s.cron = c
	s.running = cancel
	return nil
}

// Stop cancels a running sweep and waits for it to return, or for ctx.
// Stop on a sweeper that was never started is a no-op.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.running
	s.cron, s.running = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	cancel()
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run(ctx context.Context) {
	res, err := s.Sweep(ctx)
	attrs := []any{
		slog.Int("scanned", res.Scanned),
		slog.Int("alive", res.Alive),
		slog.Int("expired", res.Expired),
		slog.Int("failed", res.Failed),
	}
	if err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "session sweep finished with errors", append(attrs, slog.Any("error", err))...)
		return
	}
	s.logger.InfoContext(ctx, "session sweep finished", attrs...)
}
