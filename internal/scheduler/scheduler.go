package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work. It owns its own error handling.
type Job func(ctx context.Context)

type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	logger     *zap.Logger
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// NewScheduler evaluates cron specs in loc. A run that is still going when
// its next tick fires makes that tick a no-op, so a job never overlaps
// itself. Recover sits inside the skip guard so a panicking run still
// releases it.
func NewScheduler(loc *time.Location, jobTimeout time.Duration, logger *zap.Logger) *Scheduler {
	logger = logger.Named("scheduler")
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		jobTimeout: jobTimeout,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Register adds job under spec (standard 5-field cron or descriptors such
// as "@every 1m").
func (s *Scheduler) Register(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := s.baseCtx
		if s.jobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
			defer cancel()
		}

		start := time.Now()
		job(ctx)
		s.logger.Debug("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("register job %s (%q): %w", name, spec, err)
	}

	s.logger.Info("job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs, cancels running jobs' contexts and waits for them
// to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, jobs still running")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
