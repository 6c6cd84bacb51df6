// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Строит анонимный лидерборд: окно → очки из источника → порядок →
// псевдонимы. Готовые доски кешируются; одновременные промахи кеша
// схлопываются в один запрос к источнику.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Type - вид лидерборда.
	Type leaderboard.Type

	// Limit - количество записей (0 = значение по умолчанию).
	Limit int
}

// Validate проверяет вид лидерборда и нормализует лимит.
func (q *GetLeaderboardQuery) Validate(cfg LeaderboardConfig) error {
	if !q.Type.IsValid() {
		return fmt.Errorf("%w: %q", shared.ErrUnknownLeaderboard, q.Type)
	}
	if q.Limit <= 0 {
		q.Limit = cfg.DefaultLimit
	}
	if q.Limit > cfg.MaxLimit {
		q.Limit = cfg.MaxLimit
	}
	return nil
}

// LeaderboardConfig содержит настройки лидербордов.
type LeaderboardConfig struct {
	// DefaultLimit - размер доски, если лимит не задан.
	DefaultLimit int

	// MaxLimit - верхняя граница лимита.
	MaxLimit int

	// Location - часовой пояс границ недель, месяцев и дней.
	Location *time.Location

	// RenderTimeout ограничивает общий расчёт доски: он не отменяется
	// вместе с запросом, который его начал.
	RenderTimeout time.Duration
}

// DefaultLeaderboardConfig возвращает конфигурацию по умолчанию.
func DefaultLeaderboardConfig() LeaderboardConfig {
	return LeaderboardConfig{
		DefaultLimit: 10,
		MaxLimit:      100,
		Location:      time.UTC,
		RenderTimeout: 10 * time.Second,
	}
}

// LeaderboardCache - кеш готовых досок и сводок.
// Любая ошибка, включая промах, трактуется как отсутствие записи.
type LeaderboardCache interface {
	GetBoard(ctx context.Context, t leaderboard.Type, windowStart time.Time, limit int) (*leaderboard.Board, error)
	SetBoard(ctx context.Context, board *leaderboard.Board, limit int) error
	GetStats(ctx context.Context, t leaderboard.Type, windowStart time.Time) (*leaderboard.Stats, error)
	SetStats(ctx context.Context, st *leaderboard.Stats) error
}

// LeaderboardRecorder принимает метрики лидербордов.
type LeaderboardRecorder interface {
	ObserveLeaderboard(boardType, source string)
	ObserveLeaderboardFailure(boardType string)
}

const (
	sourceCache   = "cache"
	sourceStorage = "storage"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardHandler обрабатывает запросы лидербордов и их сводок.
type GetLeaderboardHandler struct {
	source   leaderboard.Source
	cache    LeaderboardCache
	names    *leaderboard.Anonymizer
	recorder LeaderboardRecorder
	logger   *slog.Logger
	config   LeaderboardConfig

	group singleflight.Group
	now   func() time.Time
}

// NewGetLeaderboardHandler создаёт обработчик. cache и recorder могут быть nil.
func NewGetLeaderboardHandler(
	source leaderboard.Source,
	cache LeaderboardCache,
	names *leaderboard.Anonymizer,
	recorder LeaderboardRecorder,
	logger *slog.Logger,
	config LeaderboardConfig,
) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if names == nil {
		names = leaderboard.NewAnonymizer(leaderboard.DefaultSpecialSlots)
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.RenderTimeout <= 0 {
		config.RenderTimeout = DefaultLeaderboardConfig().RenderTimeout
	}
	return &GetLeaderboardHandler{
		source:   source,
		cache:    cache,
		names:    names,
		recorder: recorder,
		logger:   logger.With("query", "get_leaderboard"),
		config:   config,
		now:      time.Now,
	}
}

// Handle возвращает лидерборд. Сбой источника не является ошибкой:
// возвращается пустая доска, а сбой логируется. Каждый вызывающий
// получает собственную копию доски.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*leaderboard.Board, error) {
	if err := query.Validate(h.config); err != nil {
		return nil, err
	}

	now := h.now()
	q, err := leaderboard.Plan(query.Type, now, h.config.Location)
	if err != nil {
		return nil, err
	}
	q.Limit = query.Limit

	if board := h.cachedBoard(ctx, q); board != nil {
		h.observe(q.Type, sourceCache)
		return board, nil
	}

	key := fmt.Sprintf("board:%s:%d:%d", q.Type, q.WindowStart().Unix(), q.Limit)
	v, _, dup := h.group.Do(key, func() (interface{}, error) {
		ctx, cancel := h.renderContext(ctx)
		defer cancel()

		scores, err := h.source.Scores(ctx, q)
		if err != nil {
			h.fail(q.Type, err)
			return leaderboard.Empty(q, now), nil
		}

		board := leaderboard.Build(q, scores, h.names, q.Limit, now)
		if h.cache != nil {
			if err := h.cache.SetBoard(ctx, board, q.Limit); err != nil {
				h.logger.Warn("failed to cache leaderboard", "type", q.Type, "error", err)
			}
		}
		h.observe(q.Type, sourceStorage)
		return board, nil
	})

	board := v.(*leaderboard.Board)
	if dup {
		board = board.Clone()
	}
	return board, nil
}

// HandleStats возвращает сводку по всем участникам доски.
// Сбой источника даёт пустую сводку.
func (h *GetLeaderboardHandler) HandleStats(ctx context.Context, t leaderboard.Type) (*leaderboard.Stats, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownLeaderboard, t)
	}

	q, err := leaderboard.Plan(t, h.now(), h.config.Location)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if st, err := h.cache.GetStats(ctx, t, q.WindowStart()); err == nil && st != nil {
			return st, nil
		}
	}

	key := fmt.Sprintf("stats:%s:%d", t, q.WindowStart().Unix())
	v, _, dup := h.group.Do(key, func() (interface{}, error) {
		ctx, cancel := h.renderContext(ctx)
		defer cancel()

		scores, err := h.source.Scores(ctx, q)
		if err != nil {
			h.fail(t, err)
			return leaderboard.Summarize(q, nil), nil
		}

		st := leaderboard.Summarize(q, scores)
		if h.cache != nil {
			if err := h.cache.SetStats(ctx, st); err != nil {
				h.logger.Warn("failed to cache leaderboard stats", "type", t, "error", err)
			}
		}
		return st, nil
	})

	st := v.(*leaderboard.Stats)
	if dup {
		cp := *st
		st = &cp
	}
	return st, nil
}

// renderContext отвязывает общий расчёт от отмены исходного запроса,
// сохраняя его значения, и ограничивает его по времени.
func (h *GetLeaderboardHandler) renderContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), h.config.RenderTimeout)
}

func (h *GetLeaderboardHandler) cachedBoard(ctx context.Context, q leaderboard.Query) *leaderboard.Board {
	if h.cache == nil {
		return nil
	}
	board, err := h.cache.GetBoard(ctx, q.Type, q.WindowStart(), q.Limit)
	if err != nil || board == nil {
		return nil
	}
	return board
}

func (h *GetLeaderboardHandler) fail(t leaderboard.Type, err error) {
	h.logger.Error("leaderboard source failed",
		"type", t,
		"error", err,
	)
	if h.recorder != nil {
		h.recorder.ObserveLeaderboardFailure(string(t))
	}
}

func (h *GetLeaderboardHandler) observe(t leaderboard.Type, source string) {
	if h.recorder != nil {
		h.recorder.ObserveLeaderboard(string(t), source)
	}
}
