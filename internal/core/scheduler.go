package core

// scheduler.go runs sync passes on a fixed interval.
//
// The scheduler is long-running and context-aware for graceful shutdown. A
// tick that finds a pass already running is skipped rather than queued. Pass
// failures are logged and never stop the scheduler.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ScheduleConfig holds configuration for the sync scheduler.
type ScheduleConfig struct {
	Interval     time.Duration // How often to run; zero disables the scheduler
	Timeout      time.Duration // Per-pass timeout (default: 10m)
	RunOnStartup bool          // Run once immediately before the first tick
}

// StartScheduler runs passes every cfg.Interval until ctx is cancelled.
// It returns immediately when the interval is zero.
func (s *Service) StartScheduler(ctx context.Context, cfg ScheduleConfig) {
	if cfg.Interval <= 0 {
		slog.Debug("sync scheduler disabled")
		return
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}

	slog.Info("sync scheduler started",
		"interval", cfg.Interval.String(),
		"timeout", cfg.Timeout.String(),
	)

	if cfg.RunOnStartup {
		s.runScheduledPass(ctx, cfg)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduledPass(ctx, cfg)
		}
	}
}

// runScheduledPass performs one pass, skipping if another is running.
func (s *Service) runScheduledPass(ctx context.Context, cfg ScheduleConfig) {
	passCtx, cancel := context.WithTimeout(ContextWithTrigger(ctx, "schedule"), cfg.Timeout)
	defer cancel()

	start := time.Now()
	report, err := s.TrySync(passCtx)
	switch {
	case errors.Is(err, ErrPassInProgress):
		slog.Info("scheduled sync skipped, pass already running")
	case err != nil:
		slog.Error("scheduled sync failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	default:
		slog.Info("scheduled sync completed",
			"pass_id", report.PassID,
			"upserted", report.Upserted(),
			"deleted", report.Deleted,
			"failed", report.Failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
