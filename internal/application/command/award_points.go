// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/aau-confessions/confession-hub/internal/application/saga"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD POINTS COMMAND
// Начисляет очки за событие: расчёт → запись в леджер → ранг →
// достижения (разблокировка → награда → ранг)* → события.
// Все шаги для одного пользователя выполняются в одной критической секции.
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsCommand содержит данные скорингового события.
type AwardPointsCommand struct {
	// UserID - пользователь, которому начисляются очки.
	UserID int64

	// EventType - тип события. Неизвестный тип даёт 0 очков, это не ошибка.
	EventType points.EventType

	// Metadata - необязательные параметры события.
	Metadata points.Metadata

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет команду.
func (c AwardPointsCommand) Validate() error {
	if c.UserID <= 0 {
		return shared.ErrInvalidUserID
	}
	return nil
}

// AwardPointsResult - результат начисления (AwardResult).
type AwardPointsResult struct {
	Success bool

	UserID    int64
	EventType points.EventType

	// PointsDelta - дельта самого события, без наград за достижения.
	PointsDelta int64

	// AchievementPoints - сумма наград за открытые в этом вызове достижения.
	AchievementPoints int64

	// NewTotal - сумма леджера после всех записей этого вызова.
	NewTotal int64

	PreviousRank rank.Definition
	Rank         rank.Definition

	// RankChanged - тир до события отличается от тира после всех наград.
	RankChanged bool

	AchievementsUnlocked []achievement.Definition

	// TransactionID пуст, если событие дало 0 очков и ничего не записано.
	TransactionID string

	// AchievementsDeferred - очки записаны, но оценка достижений не
	// завершилась; она будет повторена при следующем событии пользователя.
	AchievementsDeferred bool

	// Events - опубликованные доменные события.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// AchievementEvaluator оценивает достижения пользователя до неподвижной точки.
type AchievementEvaluator interface {
	EvaluateAll(ctx context.Context, userID int64) (*saga.EvaluationResult, error)
}

// AwardRecorder принимает метрики начислений. *metrics.Metrics его реализует.
type AwardRecorder interface {
	ObserveAward(eventType string, delta int64, took time.Duration, err error)
	ObserveUnlock(category string, reward int64)
	ObserveRankChange(promotion bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAward(string, int64, time.Duration, error) {}
func (noopRecorder) ObserveUnlock(string, int64) {}
func (noopRecorder) ObserveRankChange(bool) {}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsHandler обрабатывает AwardPointsCommand.
type AwardPointsHandler struct {
	ledger         ledger.Repository
	ladder         *rank.Ladder
	evaluator      AchievementEvaluator
	eventPublisher shared.EventPublisher
	recorder       AwardRecorder
	logger         *slog.Logger

	// locks - мьютекс на пользователя. Хранилище сериализует каждую запись
	// отдельно, а этот замок держится на весь вызов, чтобы "ранг до" и
	// оценка достижений видели только собственные записи вызова.
	locks *xsync.MapOf[int64, *sync.Mutex]

	now func() time.Time
}

// NewAwardPointsHandler создаёт обработчик. publisher и recorder могут быть nil.
func NewAwardPointsHandler(
	ledgerRepo ledger.Repository,
	ladder *rank.Ladder,
	evaluator AchievementEvaluator,
	eventPublisher shared.EventPublisher,
	recorder AwardRecorder,
	logger *slog.Logger,
) *AwardPointsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &AwardPointsHandler{
		ledger:         ledgerRepo,
		ladder:         ladder,
		evaluator:      evaluator,
		eventPublisher: eventPublisher,
		recorder:       recorder,
		logger:         logger.With("command", "award_points"),
		locks:          xsync.NewMapOf[int64, *sync.Mutex](),
		now:            time.Now,
	}
}

func (h *AwardPointsHandler) lock(userID int64) func() {
	mu, _ := h.locks.LoadOrCompute(userID, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}

// Handle выполняет начисление.
//
// Ошибка возвращается только если не удалось записать само событие: тогда
// в леджере ничего не изменилось. Сбой оценки достижений после записи не
// отменяет начисление и отражается флагом AchievementsDeferred.
func (h *AwardPointsHandler) Handle(ctx context.Context, cmd AwardPointsCommand) (result *AwardPointsResult, err error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	started := h.now()
	delta := points.Calculate(cmd.EventType, cmd.Metadata)
	defer func() {
		h.recorder.ObserveAward(string(cmd.EventType), delta, h.now().Sub(started), err)
	}()

	unlock := h.lock(cmd.UserID)
	defer unlock()

	result = &AwardPointsResult{
		UserID:      cmd.UserID,
		EventType:   cmd.EventType,
		PointsDelta: delta,
	}

	// 1. Запись события. Нулевая дельта не пишется, но сумма нужна для ранга.
	var before int64
	at := started
	if delta != 0 {
		receipt, err := h.ledger.Append(ctx, ledger.Entry{
			UserID:    cmd.UserID,
			EventType: string(cmd.EventType),
			Delta:     delta,
		})
		if err != nil {
			h.logger.Error("failed to append points",
				"user_id", cmd.UserID,
				"event_type", cmd.EventType,
				"delta", delta,
				"error", err,
			)
			return nil, shared.StorageError("AwardPoints", err)
		}
		before = receipt.PreviousTotal()
		result.NewTotal = receipt.Total
		result.TransactionID = receipt.Transaction.ID.String()
		at = receipt.Transaction.CreatedAt
	} else {
		total, err := h.ledger.SumFor(ctx, cmd.UserID, ledger.AllTime)
		if err != nil {
			return nil, shared.StorageError("AwardPoints", err)
		}
		before = total
		result.NewTotal = total
	}
	result.PreviousRank = h.ladder.Resolve(before)

	// 2. Достижения: каждая награда - отдельная запись леджера.
	h.evaluateAchievements(ctx, cmd.UserID, result)

	// 3. Ранг по итоговой сумме.
	result.Rank = h.ladder.Resolve(result.NewTotal)
	result.RankChanged = result.PreviousRank.ID != result.Rank.ID
	result.Success = true

	// 4. События.
	h.publishEvents(cmd, result, at)

	h.logger.Info("points awarded",
		"user_id", cmd.UserID,
		"event_type", cmd.EventType,
		"delta", delta,
		"achievement_points", result.AchievementPoints,
		"new_total", result.NewTotal,
		"rank", result.Rank.ID,
		"rank_changed", result.RankChanged,
	)

	return result, nil
}

// evaluateAchievements запускает оценку и переносит её итог в результат.
func (h *AwardPointsHandler) evaluateAchievements(ctx context.Context, userID int64, result *AwardPointsResult) {
	if h.evaluator == nil {
		return
	}

	eval, err := h.evaluator.EvaluateAll(ctx, userID)
	if err != nil {
		result.AchievementsDeferred = true
		h.logger.Warn("achievement evaluation deferred",
			"user_id", userID,
			"error", err,
		)
	}
	if eval == nil {
		return
	}

	for _, u := range eval.Unlocked {
		result.AchievementsUnlocked = append(result.AchievementsUnlocked, u.Definition)
		h.recorder.ObserveUnlock(string(u.Definition.Category), u.Definition.PointsAwarded)
	}
	result.AchievementPoints = eval.RewardPoints()
	if total, ok := eval.FinalTotal(); ok {
		result.NewTotal = total
	}
}

// publishEvents публикует события начисления. Ошибки публикации не
// влияют на результат: данные уже записаны.
func (h *AwardPointsHandler) publishEvents(cmd AwardPointsCommand, result *AwardPointsResult, at time.Time) {
	if result.PointsDelta != 0 {
		e := shared.NewPointsAwardedEvent(
			cmd.UserID,
			string(cmd.EventType),
			result.PointsDelta,
			result.NewTotal,
			result.TransactionID,
			at,
		)
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, e)
	}

	for _, def := range result.AchievementsUnlocked {
		e := shared.NewAchievementUnlockedEvent(cmd.UserID, def.ID, def.Name, def.PointsAwarded, def.IsHidden, at)
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, e)
	}

	if result.RankChanged {
		e := shared.NewRankChangedEvent(
			cmd.UserID,
			result.PreviousRank.ID,
			result.PreviousRank.Level,
			result.Rank.ID,
			result.Rank.Level,
			result.NewTotal,
			at,
		)
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, e)
		h.recorder.ObserveRankChange(e.IsPromotion())
	}

	if h.eventPublisher == nil {
		return
	}
	for _, e := range result.Events {
		if err := h.eventPublisher.Publish(e); err != nil {
			h.logger.Warn("failed to publish event",
				"event_type", e.EventType(),
				"user_id", cmd.UserID,
				"error", fmt.Errorf("publish: %w", err),
			)
		}
	}
}
