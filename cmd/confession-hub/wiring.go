package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aau-confessions/confession-hub/config"
	"github.com/aau-confessions/confession-hub/internal/application/eventhandler"
	"github.com/aau-confessions/confession-hub/internal/application/query"
	"github.com/aau-confessions/confession-hub/internal/application/ranking"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/messaging"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/metrics"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/persistence/memory"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/persistence/postgres"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/persistence/redis"
	"github.com/aau-confessions/confession-hub/internal/interface/http/handlers"
	"github.com/aau-confessions/confession-hub/pkg/circuitbreaker"
	"github.com/aau-confessions/confession-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUNTIME
// ══════════════════════════════════════════════════════════════════════════════

// runtime - собранный граф зависимостей одной команды.
type runtime struct {
	cfg     *config.Config
	log     *slog.Logger
	manager *ranking.Manager
	metrics *metrics.Metrics
	health  *handlers.CompositeHealthChecker
	bus     *messaging.InMemoryEventBus

	// nil без Redis
	cache *redis.LeaderboardCache
	// nil без --memory
	store *memory.Store

	closers []func()
}

// Close освобождает ресурсы в обратном порядке.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildRuntime собирает движок рейтинга поверх PostgreSQL и Redis
// либо, с useMemory, поверх хранилища в памяти.
func buildRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger, useMemory bool) (*runtime, error) {
	ladder, catalog, err := loadCatalogs(cfg.Ranking)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		health:  handlers.NewCompositeHealthChecker(cfg.App.Version),
	}

	deps := ranking.Dependencies{
		Ladder:  ladder,
		Catalog: catalog,
		Logger:  log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Storage
	// ─────────────────────────────────────────────────────────────────────────

	if useMemory {
		rt.store = memory.NewStore(memory.WithLocation(cfg.Ranking.Location))
		deps.Ledger = rt.store
		deps.Achievements = rt.store
		deps.Stats = rt.store
		deps.Scores = rt.store
		log.Warn("using in-memory storage, data is lost on exit")
	} else {
		conn, err := connectPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, conn.Close)
		rt.health.AddCheck("postgres", handlers.NewReportCheck(conn.Health))

		if cfg.Database.AutoMigrate {
			if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
				rt.Close()
				return nil, err
			}
			log.Info("migrations applied")
		}

		deps.Ledger = postgres.NewLedgerRepository(conn)
		deps.Achievements = postgres.NewAchievementRepository(conn)
		deps.Stats = postgres.NewStatsRepository(conn, cfg.Ranking.Location)
		deps.Scores = postgres.NewLeaderboardRepository(conn)

		rt.cache = connectRedis(cfg, log, rt.metrics)
		if rt.cache != nil {
			rt.health.AddCheck("redis", handlers.NewPingCheck(rt.cache))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Events
	// ─────────────────────────────────────────────────────────────────────────

	rt.bus = messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
		Logger:         log,
		EnableMetrics:  true,
	})
	rt.closers = append(rt.closers, func() { _ = rt.bus.Close() })
	deps.Events = rt.bus

	if rt.cache != nil {
		// присваивание только ненулевого указателя: nil *LeaderboardCache
		// в интерфейсе не равен nil
		deps.Cache = rt.cache
		onRank := eventhandler.NewOnRankChangedHandler(rt.cache, log, eventhandler.DefaultRankChangedConfig())
		if err := onRank.Register(rt.bus); err != nil {
			rt.Close()
			return nil, fmt.Errorf("register rank handler: %w", err)
		}
	}

	deps.Recorder = rt.metrics

	rt.manager = ranking.NewManager(deps, ranking.Config{
		Leaderboard: query.LeaderboardConfig{
			DefaultLimit: cfg.Ranking.LeaderboardDefaultLimit,
			MaxLimit:     cfg.Ranking.LeaderboardMaxLimit,
			Location:     cfg.Ranking.Location,
		},
		SpecialSlots: cfg.Ranking.SpecialSlots,
	})

	return rt, nil
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*postgres.Connection, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set (use --memory to run without PostgreSQL)")
	}

	pg := postgres.DefaultConfig()
	pg.URL = cfg.URL
	pg.MaxConns = int32(cfg.MaxConns)
	pg.MinConns = int32(cfg.MinConns)
	pg.MaxConnLifetime = cfg.ConnMaxLifetime
	pg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	pg.ConnectTimeout = cfg.ConnectTimeout

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	return postgres.NewConnection(ctx, pg)
}

// connectRedis возвращает nil, если кеш выключен или недоступен:
// лидерборды тогда читаются прямо из леджера.
func connectRedis(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *redis.LeaderboardCache {
	if cfg.Redis.Disabled {
		log.Info("redis disabled, leaderboards are served without cache")
		return nil
	}

	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout

	cache, err := redis.NewCache(rc)
	if err != nil {
		log.Warn("redis unavailable, leaderboards are served without cache",
			"addr", rc.Addr(),
			"error", err,
		)
		return nil
	}

	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
		m.ObserveBreaker(name, to.String())
	}, redis.IsFailure)

	cache = cache.WithBreaker(breaker).WithRetrier(retry.CacheRetrier())
	return redis.NewLeaderboardCache(cache, cfg.Ranking.LeaderboardCacheTTL)
}

// loadCatalogs возвращает встроенные лестницу и каталог или их
// YAML-замены из файлов конфигурации.
func loadCatalogs(cfg config.RankingConfig) (*rank.Ladder, *achievement.Catalog, error) {
	ladder := rank.Default()
	if cfg.LadderFile != "" {
		data, err := os.ReadFile(cfg.LadderFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read rank ladder: %w", err)
		}
		if ladder, err = rank.Parse(data); err != nil {
			return nil, nil, fmt.Errorf("parse rank ladder %s: %w", cfg.LadderFile, err)
		}
	}

	catalog := achievement.Default()
	if cfg.CatalogFile != "" {
		data, err := os.ReadFile(cfg.CatalogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read achievement catalog: %w", err)
		}
		if catalog, err = achievement.Parse(data); err != nil {
			return nil, nil, fmt.Errorf("parse achievement catalog %s: %w", cfg.CatalogFile, err)
		}
	}

	return ladder, catalog, nil
}
