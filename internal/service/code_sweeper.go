package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/domain/repository"
	"github.com/spotsapp/spots-api/internal/metrics"
)

// DefaultSweepSchedule runs the expired code sweep every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// CodeSweeper periodically clears verification and reset codes whose expiry has
// passed, so that an expired code is never left behind on an account.
type CodeSweeper struct {
	accounts repository.AccountRepository
	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger
}

// SweeperOption customises the CodeSweeper.
type SweeperOption func(*CodeSweeper)

// WithSweepCron injects a preconfigured cron instance.
func WithSweepCron(c *cron.Cron) SweeperOption {
	return func(s *CodeSweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSweepClock overrides the clock used for expiry comparisons.
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *CodeSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepSchedule overrides the cron specification.
func WithSweepSchedule(schedule string) SweeperOption {
	return func(s *CodeSweeper) {
		if schedule != "" {
			s.schedule = schedule
		}
	}
}

// NewCodeSweeper constructs a sweeper over accounts.
func NewCodeSweeper(accounts repository.AccountRepository, log *zap.Logger, opts ...SweeperOption) (*CodeSweeper, error) {
	if accounts == nil {
		return nil, fmt.Errorf("AccountRepository is required for CodeSweeper")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &CodeSweeper{
		accounts: accounts,
		schedule: DefaultSweepSchedule,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s, nil
}

// Start registers the sweep job and launches the scheduler.
func (s *CodeSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("expired code sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once a running sweep finishes.
func (s *CodeSweeper) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce clears every code that expired before now and reports how many accounts changed.
func (s *CodeSweeper) RunOnce(ctx context.Context) (int64, error) {
	cleared, err := s.accounts.ClearExpiredCodes(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		metrics.ExpiredCodesCleared.Add(float64(cleared))
		s.log.Debug("expired codes cleared", zap.Int64("accounts", cleared))
	}
	return cleared, nil
}
