package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"newsdigest/internal/domain"
)

// DigestCreator defines the interface for digest runs.
type DigestCreator interface {
	CreateDigest(ctx context.Context) (*domain.Digest, *domain.RunStats, error)
}

// SeenPurger removes expired seen markers from stores without native TTL.
type SeenPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type Config struct {
	Cron        string
	CleanupCron string
	RunOnStart  bool
	RunTimeout  time.Duration
	Location    *time.Location
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JobResult is the outcome of one scheduled digest run.
type JobResult struct {
	DigestID   int64  `json:"digest_id,omitempty"`
	DigestDate string `json:"digest_date,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type Scheduler struct {
	creator DigestCreator
	purger  SeenPurger
	cfg     Config
	cron    *cron.Cron
	digest  cron.EntryID
	logger  *slog.Logger

	// ctx is handed to cron jobs; Start replaces it so that shutdown
	// cancels a running job.
	ctx context.Context
}

// NewScheduler builds a cron scheduler. purger may be nil, in which case no
// cleanup job is registered.
func NewScheduler(creator DigestCreator, purger SeenPurger, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger = logger.With("component", "scheduler")

	s := &Scheduler{
		creator: creator,
		purger:  purger,
		cfg:     cfg,
		logger:  logger,
		ctx:     context.Background(),
	}

	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)

	id, err := s.cron.AddFunc(cfg.Cron, func() { s.RunDigest(s.ctx) })
	if err != nil {
		return nil, fmt.Errorf("add digest job %q: %w", cfg.Cron, err)
	}
	s.digest = id

	if purger != nil && cfg.CleanupCron != "" {
		if _, err := s.cron.AddFunc(cfg.CleanupCron, func() { s.RunCleanup(s.ctx) }); err != nil {
			return nil, fmt.Errorf("add cleanup job %q: %w", cfg.CleanupCron, err)
		}
	}

	return s, nil
}

// Start runs the cron loop until ctx is done. Running jobs are awaited
// before it returns.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"cron", s.cfg.Cron,
		"cleanup_cron", s.cfg.CleanupCron,
		"location", s.cfg.Location.String(),
	)

	if s.cfg.RunOnStart {
		s.RunDigest(ctx)
	}

	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// Next reports when the digest job fires next. Zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.digest).Next
}

// RunDigest creates one digest under the configured run timeout.
func (s *Scheduler) RunDigest(ctx context.Context) JobResult {
	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	digest, stats, err := s.creator.CreateDigest(runCtx)
	if err != nil {
		result := JobResult{Status: StatusError, Error: err.Error()}
		attrs := []any{"status", result.Status, "error", err}
		if stats != nil {
			attrs = append(attrs, "run_id", stats.RunID)
		}
		s.logger.Error("digest job failed", attrs...)
		return result
	}

	result := JobResult{
		DigestID:   digest.ID,
		DigestDate: digest.Date.Format(time.DateOnly),
		Status:     StatusSuccess,
	}
	s.logger.Info("digest job finished",
		"digest_id", result.DigestID,
		"digest_date", result.DigestDate,
		"status", result.Status,
		"run_id", stats.RunID,
	)
	return result
}

// RunCleanup deletes expired seen markers.
func (s *Scheduler) RunCleanup(ctx context.Context) {
	if s.purger == nil {
		return
	}

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	deleted, err := s.purger.DeleteExpired(runCtx)
	if err != nil {
		s.logger.Error("seen cleanup failed", "error", err)
		return
	}
	s.logger.Debug("seen cleanup finished", "deleted", deleted)
}

func (s *Scheduler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.RunTimeout)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
