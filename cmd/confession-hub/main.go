// Package main - точка входа сервиса рейтинга Confession Hub.
//
// Один бинарник, несколько команд:
//   - serve        - REST API, фоновое обновление лидербордов
//   - migrate      - миграции PostgreSQL
//   - award, rank, leaderboard, achievements, points - операторские команды
//
// Флаг --memory запускает всё на хранилище в памяти: для локальной
// разработки и демонстраций без PostgreSQL и Redis.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/aau-confessions/confession-hub/config"
	"github.com/aau-confessions/confession-hub/pkg/logger"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "confession-hub",
		Usage:   "Ranking and gamification engine of the confession bot",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "memory",
				Usage:   "use in-memory storage instead of PostgreSQL and Redis",
				EnvVars: []string{"RANKING_MEMORY"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON instead of text",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			awardCommand(),
			rankCommand(),
			leaderboardCommand(),
			achievementsCommand(),
			pointsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig читает конфигурацию и настраивает логгер.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if Version != "dev" {
		cfg.App.Version = Version
	}
	return cfg, setupLogger(cfg), nil
}

// setupLogger настраивает структурированный логгер.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	// Логи идут в stderr: stdout занят выводом команд.
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name)
	slog.SetDefault(log)

	return log
}
