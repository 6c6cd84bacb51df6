package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aau-confessions/confession-hub/internal/application/command"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/persistence/postgres"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/scheduler"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/aau-confessions/confession-hub/internal/interface/http"
	"github.com/aau-confessions/confession-hub/internal/interface/presenter"
	"github.com/aau-confessions/confession-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVE
// ══════════════════════════════════════════════════════════════════════════════

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the REST API and background leaderboard refresh",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "demo-users",
				Usage: "with --memory, seed this many fake users with random activity",
			},
			&cli.Int64Flag{
				Name:  "demo-seed",
				Usage: "random seed for --demo-users",
				Value: 42,
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, log, c.Bool("memory"))
	if err != nil {
		return err
	}
	defer rt.Close()

	if n := c.Int("demo-users"); n > 0 {
		if rt.store == nil {
			return errors.New("--demo-users requires --memory")
		}
		if err := seedDemo(ctx, rt, n, c.Int64("demo-seed")); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Background jobs
	// ─────────────────────────────────────────────────────────────────────────

	sched := scheduler.New(scheduler.Config{
		Logger:     log,
		Recorder:   rt.metrics,
		RunOnStart: true,
	})
	// без кеша перерисовка ничего не даёт
	if cfg.Ranking.RefreshEnabled && rt.cache != nil {
		job := jobs.NewRefreshLeaderboardsJob(rt.manager, rt.cache, log, jobs.RefreshLeaderboardsConfig{
			Types:   leaderboard.Types(),
			Limit:   cfg.Ranking.LeaderboardDefaultLimit,
			Timeout: cfg.Ranking.RefreshInterval,
		})
		if err := sched.Register(job, scheduler.Every(cfg.Ranking.RefreshInterval)); err != nil {
			return err
		}
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP
	// ─────────────────────────────────────────────────────────────────────────

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.APIKeys = cfg.HTTP.APIKeys
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Ranking:       rt.manager,
		Logger:        logger.FromSlog(log),
		HealthChecker: rt.health,
		Metrics:       rt.metrics.Handler(),
		Recorder:      rt.metrics,
	})

	log.Info("confession hub started",
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
		"memory", rt.store != nil,
		"cache", rt.cache != nil,
	)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-server.StartAsync():
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
		log.Error("scheduler shutdown failed", "error", err)
	}

	log.Info("confession hub stopped")
	return serveErr
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE
// ══════════════════════════════════════════════════════════════════════════════

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the PostgreSQL schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(ctx context.Context, c *cli.Context, m *postgres.Migrator) error {
					if err := m.Migrate(ctx); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "migrations applied")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the last migration",
				Action: withMigrator(func(ctx context.Context, c *cli.Context, m *postgres.Migrator) error {
					if err := m.Rollback(ctx); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "last migration rolled back")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "list migrations and whether they are applied",
				Action: withMigrator(func(ctx context.Context, c *cli.Context, m *postgres.Migrator) error {
					status, err := m.Status(ctx)
					if err != nil {
						return err
					}
					for _, mig := range status {
						state := "pending"
						if mig.IsApplied {
							state = "applied " + mig.AppliedAt.Format(time.RFC3339)
						}
						fmt.Fprintf(c.App.Writer, "%4d  %-32s %s\n", mig.Version, mig.Name, state)
					}
					return nil
				}),
			},
		},
	}
}

func withMigrator(fn func(ctx context.Context, c *cli.Context, m *postgres.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Bool("memory") {
			return errors.New("migrate needs PostgreSQL, drop --memory")
		}
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		conn, err := connectPostgres(c.Context, cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(c.Context, c, postgres.NewMigrator(conn))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATOR COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func awardCommand() *cli.Command {
	return &cli.Command{
		Name:      "award",
		Usage:     "Submit a scoring event for a user",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Usage: "user id", Required: true},
			&cli.StringFlag{Name: "event", Usage: "event type, e.g. confession_approved", Required: true},
			&cli.Int64Flag{Name: "content-length", Usage: "confession length in characters"},
			&cli.Int64Flag{Name: "quality", Usage: "moderator quality score 0-100"},
			&cli.Int64Flag{Name: "likes", Usage: "like count of the liked content"},
			&cli.Int64Flag{Name: "days", Usage: "consecutive active days"},
			&cli.StringFlag{Name: "category", Usage: "confession category"},
			&cli.StringFlag{Name: "correlation-id", Usage: "id to trace the event through logs"},
		},
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			res, err := rt.manager.Award(ctx, command.AwardPointsCommand{
				UserID:    c.Int64("user"),
				EventType: points.EventType(c.String("event")),
				Metadata: points.Metadata{
					ContentLength:   c.Int64("content-length"),
					QualityScore:    c.Int64("quality"),
					LikeCount:       c.Int64("likes"),
					ConsecutiveDays: c.Int64("days"),
					Category:        c.String("category"),
				},
				CorrelationID: c.String("correlation-id"),
			})
			if err != nil {
				return err
			}

			text := presenter.Award(res)
			if text == "" {
				text = "No points for this event.\n"
			}
			return emit(c, res, text)
		}),
	}
}

func rankCommand() *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "Show a user's rank",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Usage: "user id", Required: true},
			&cli.BoolFlag{Name: "ladder", Usage: "show the whole rank ladder"},
		},
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			if c.Bool("ladder") {
				view, err := rt.manager.GetRankLadder(ctx, c.Int64("user"))
				if err != nil {
					return err
				}
				return emit(c, view, presenter.Ladder(*view))
			}

			st, err := rt.manager.GetUserRank(ctx, c.Int64("user"))
			if err != nil {
				return err
			}
			return emit(c, st, presenter.RankCard(*st))
		}),
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "Render a leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "weekly, monthly, seasonal, all_time, most_improved, most_consistent", Value: string(leaderboard.TypeWeekly)},
			&cli.IntFlag{Name: "limit", Usage: "number of rows (0 = default)"},
			&cli.Int64Flag{Name: "viewer", Usage: "mark this user's row"},
			&cli.BoolFlag{Name: "stats", Usage: "show the summary instead of the rows"},
		},
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			t, err := leaderboard.ParseType(c.String("type"))
			if err != nil {
				return err
			}

			if c.Bool("stats") {
				st, err := rt.manager.GetLeaderboardStats(ctx, t)
				if err != nil {
					return err
				}
				return emit(c, st, presenter.LeaderboardStats(st))
			}

			board, err := rt.manager.GetLeaderboard(ctx, t, c.Int("limit"))
			if err != nil {
				return err
			}
			return emit(c, board, presenter.Leaderboard(board, c.Int64("viewer")))
		}),
	}
}

func achievementsCommand() *cli.Command {
	return &cli.Command{
		Name:  "achievements",
		Usage: "List the achievement catalog, optionally as seen by a user",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Usage: "user id"},
		},
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			if c.IsSet("user") {
				res, err := rt.manager.GetUserAchievements(ctx, c.Int64("user"))
				if err != nil {
					return err
				}
				return emit(c, res, presenter.Achievements(res.Achievements))
			}

			public := rt.manager.Catalog().ForUser(nil)
			return emit(c, rt.manager.GetAllAchievements(), presenter.Achievements(public))
		}),
	}
}

func pointsCommand() *cli.Command {
	return &cli.Command{
		Name:  "points",
		Usage: "Show the base point table",
		Action: func(c *cli.Context) error {
			table := points.Table()
			return emit(c, table, presenter.PointGuide(table))
		},
	}
}

// withRuntime собирает движок на время одной операторской команды.
func withRuntime(fn func(ctx context.Context, c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		rt, err := buildRuntime(c.Context, cfg, log, c.Bool("memory"))
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(c.Context, c, rt)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ══════════════════════════════════════════════════════════════════════════════

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// plainText превращает сообщение в разметке Telegram HTML в текст для терминала.
func plainText(s string) string {
	return html.UnescapeString(htmlTag.ReplaceAllString(s, ""))
}

// emit печатает v как JSON при --json, иначе текст сообщения.
func emit(c *cli.Context, v any, text string) error {
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprint(c.App.Writer, plainText(text))
	return err
}
