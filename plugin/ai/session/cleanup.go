package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultRetention is how long an idle session is kept.
	DefaultRetention = 30 * 24 * time.Hour
	// DefaultCleanupSchedule is the cron spec for the sweep.
	DefaultCleanupSchedule = "@every 1h"
)

// CleanupConfig holds configuration for the cleanup job.
type CleanupConfig struct {
	Retention time.Duration // Idle time after which a session is removed (default: 30 days)
	Schedule  string        // Cron spec (default: @every 1h)
}

// DefaultCleanupConfig returns the default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Retention: DefaultRetention,
		Schedule:  DefaultCleanupSchedule,
	}
}

// CleanupJob periodically removes idle sessions.
type CleanupJob struct {
	sessionSvc SessionService
	config     CleanupConfig

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(svc SessionService, config CleanupConfig) *CleanupJob {
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	if config.Schedule == "" {
		config.Schedule = DefaultCleanupSchedule
	}

	return &CleanupJob{
		sessionSvc: svc,
		config:     config,
	}
}

// Start registers the sweep on the cron schedule. It does not block.
// Calling Start on a running job is a no-op.
func (j *CleanupJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		return nil
	}

	c := cron.New()
	j.baseCtx = ctx
	if _, err := c.AddFunc(j.config.Schedule, j.tick); err != nil {
		return errors.Wrapf(err, "invalid cleanup schedule %q", j.config.Schedule)
	}
	c.Start()
	j.cron = c

	slog.Info("session cleanup job started",
		"retention", j.config.Retention,
		"schedule", j.config.Schedule)
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single sweep immediately.
func (j *CleanupJob) RunOnce(ctx context.Context) (int64, error) {
	return j.sessionSvc.CleanupExpired(ctx, j.config.Retention)
}

// IsRunning returns whether the schedule is active.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cron != nil
}

func (j *CleanupJob) tick() {
	j.mu.Lock()
	ctx := j.baseCtx
	j.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	deleted, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error("session cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("session cleanup completed", "deleted", deleted)
	}
}
