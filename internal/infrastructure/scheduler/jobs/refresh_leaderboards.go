// Package jobs contains the scheduled jobs of the ranking service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH LEADERBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// Renderer renders boards through the read path, so the rendered result
// lands in the cache. *ranking.Manager satisfies it.
type Renderer interface {
	GetLeaderboard(ctx context.Context, t leaderboard.Type, limit int) (*leaderboard.Board, error)
	GetLeaderboardStats(ctx context.Context, t leaderboard.Type) (*leaderboard.Stats, error)
}

// Invalidator drops cached boards. *redis.LeaderboardCache satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, types ...leaderboard.Type) (int, error)
}

// RefreshLeaderboardsConfig contains configuration for the refresh job.
type RefreshLeaderboardsConfig struct {
	// Types to refresh. Empty means every type.
	Types []leaderboard.Type

	// Limit is the board size to pre-render; 0 uses the read path's default.
	Limit int

	// Timeout bounds a whole run.
	Timeout time.Duration
}

// DefaultRefreshLeaderboardsConfig returns sensible defaults.
func DefaultRefreshLeaderboardsConfig() RefreshLeaderboardsConfig {
	return RefreshLeaderboardsConfig{
		Types:   leaderboard.Types(),
		Timeout: time.Minute,
	}
}

// RefreshLeaderboardsJob drops and re-renders cached leaderboards so that
// user-facing reads keep hitting a warm cache.
type RefreshLeaderboardsJob struct {
	renderer Renderer
	cache    Invalidator
	logger   *slog.Logger
	config   RefreshLeaderboardsConfig
}

// NewRefreshLeaderboardsJob creates the job. cache may be nil, then the
// job only renders.
func NewRefreshLeaderboardsJob(renderer Renderer, cache Invalidator, logger *slog.Logger, config RefreshLeaderboardsConfig) *RefreshLeaderboardsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Types) == 0 {
		config.Types = leaderboard.Types()
	}
	return &RefreshLeaderboardsJob{
		renderer: renderer,
		cache:    cache,
		logger:   logger.With("job", "refresh_leaderboards"),
		config:   config,
	}
}

// Name returns the job name.
func (j *RefreshLeaderboardsJob) Name() string {
	return "refresh_leaderboards"
}

// Run refreshes every configured board type. A failing type does not stop
// the others; all failures are returned joined.
func (j *RefreshLeaderboardsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	var errs []error
	if j.cache != nil {
		n, err := j.cache.Invalidate(ctx, j.config.Types...)
		if err != nil {
			// stale entries still expire by TTL; rendering goes on
			errs = append(errs, fmt.Errorf("invalidate: %w", err))
		}
		j.logger.Debug("cache invalidated", "keys", n)
	}

	refreshed := 0
	for _, t := range j.config.Types {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		board, err := j.renderer.GetLeaderboard(ctx, t, j.config.Limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", t, err))
			continue
		}
		if _, err := j.renderer.GetLeaderboardStats(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("stats %s: %w", t, err))
			continue
		}

		refreshed++
		j.logger.Debug("leaderboard refreshed", "type", t, "entries", len(board.Entries))
	}

	j.logger.Info("leaderboards refreshed",
		"refreshed", refreshed,
		"failed", len(errs),
	)
	return errors.Join(errs...)
}
