// Package eventhandler содержит обработчики доменных событий.
// Эти обработчики реализуют event-driven архитектуру и связывают
// различные части системы через асинхронные события.
//
// Обработчики событий - "реактивная" часть системы: они запускают
// побочные эффекты вроде сброса кешей, но никогда не меняют леджер.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON RANK CHANGED HANDLER
// Обрабатывает переход пользователя на другой тир.
// Закешированные доски могут отставать на TTL; смена тира - заметное
// событие, поэтому доски сбрасываются сразу.
// ═══════════════════════════════════════════════════════════════════════════

// CacheInvalidator сбрасывает закешированные доски указанных видов.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, types ...leaderboard.Type) (int, error)
}

// OnRankChangedHandler обрабатывает событие изменения ранга.
type OnRankChangedHandler struct {
	cache  CacheInvalidator
	logger *slog.Logger
	config RankChangedConfig
}

// RankChangedConfig содержит конфигурацию обработчика.
type RankChangedConfig struct {
	// InvalidateTypes - какие доски сбрасывать (пусто = все).
	InvalidateTypes []leaderboard.Type

	// Timeout - предел на обращение к кешу.
	Timeout time.Duration
}

// DefaultRankChangedConfig возвращает конфигурацию по умолчанию.
func DefaultRankChangedConfig() RankChangedConfig {
	return RankChangedConfig{
		InvalidateTypes: leaderboard.Types(),
		Timeout:         2 * time.Second,
	}
}

// NewOnRankChangedHandler создаёт новый обработчик. cache может быть nil.
func NewOnRankChangedHandler(cache CacheInvalidator, logger *slog.Logger, config RankChangedConfig) *OnRankChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.InvalidateTypes) == 0 {
		config.InvalidateTypes = leaderboard.Types()
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	return &OnRankChangedHandler{
		cache:  cache,
		logger: logger.With("handler", "on_rank_changed"),
		config: config,
	}
}

// Handle обрабатывает событие изменения ранга.
// Реализует интерфейс shared.EventHandler.
func (h *OnRankChangedHandler) Handle(event shared.Event) error {
	rankEvent, ok := event.(shared.RankChangedEvent)
	if !ok {
		h.logger.Warn("received non-RankChangedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	direction := "demotion"
	if rankEvent.IsPromotion() {
		direction = "promotion"
	}
	h.logger.Info("rank changed",
		"user_id", rankEvent.UserID,
		"previous_rank", rankEvent.PreviousRank,
		"new_rank", rankEvent.NewRank,
		"total_points", rankEvent.TotalPoints,
		"direction", direction,
	)

	if h.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	removed, err := h.cache.Invalidate(ctx, h.config.InvalidateTypes...)
	if err != nil {
		// Кеш сам истечёт по TTL; событие не считается проваленным.
		h.logger.Warn("failed to invalidate leaderboard cache",
			"user_id", rankEvent.UserID,
			"error", err,
		)
		return nil
	}

	h.logger.Debug("leaderboard cache invalidated", "keys", removed)
	return nil
}

// Register подписывает обработчик на шину событий.
func (h *OnRankChangedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventRankChanged, h.Handle)
}
