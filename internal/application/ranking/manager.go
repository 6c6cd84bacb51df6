// Package ranking собирает команды и запросы движка рейтинга в один фасад,
// которым пользуются HTTP-интерфейс, CLI и бот.
package ranking

import (
	"context"
	"log/slog"

	"github.com/aau-confessions/confession-hub/internal/application/command"
	"github.com/aau-confessions/confession-hub/internal/application/query"
	"github.com/aau-confessions/confession-hub/internal/application/saga"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies - хранилища и адаптеры, на которых работает Manager.
// Ledger, Achievements, Stats и Scores обязательны, остальное - нет.
type Dependencies struct {
	Ledger       ledger.Repository
	Achievements achievement.Repository
	Stats        achievement.StatsProvider
	Scores       leaderboard.Source

	Cache    query.LeaderboardCache
	Events   shared.EventPublisher
	Recorder Recorder

	Ladder  *rank.Ladder
	Catalog *achievement.Catalog
	Logger  *slog.Logger
}

// Recorder объединяет метрики начислений и лидербордов.
type Recorder interface {
	command.AwardRecorder
	query.LeaderboardRecorder
}

// Config - настройки фасада.
type Config struct {
	Leaderboard  query.LeaderboardConfig
	SpecialSlots int
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		Leaderboard:  query.DefaultLeaderboardConfig(),
		SpecialSlots: leaderboard.DefaultSpecialSlots,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MANAGER
// ══════════════════════════════════════════════════════════════════════════════

// Manager - единая точка входа в движок рейтинга.
type Manager struct {
	ladder  *rank.Ladder
	catalog *achievement.Catalog

	award        *command.AwardPointsHandler
	achievements *saga.AchievementFlowSaga
	rank         *query.GetUserRankHandler
	boards       *query.GetLeaderboardHandler
	catalogView  *query.GetAchievementsHandler
	history      *query.GetPointHistoryHandler
}

// NewManager собирает фасад.
func NewManager(deps Dependencies, cfg Config) *Manager {
	if deps.Ladder == nil {
		deps.Ladder = rank.Default()
	}
	if deps.Catalog == nil {
		deps.Catalog = achievement.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	var (
		awardRecorder command.AwardRecorder
		boardRecorder query.LeaderboardRecorder
	)
	if deps.Recorder != nil {
		awardRecorder = deps.Recorder
		boardRecorder = deps.Recorder
	}

	flow := saga.NewAchievementFlowSaga(deps.Catalog, deps.Ladder, deps.Stats, deps.Achievements, deps.Logger)

	return &Manager{
		ladder:       deps.Ladder,
		catalog:      deps.Catalog,
		achievements: flow,
		award: command.NewAwardPointsHandler(
			deps.Ledger, deps.Ladder, flow, deps.Events, awardRecorder, deps.Logger,
		),
		rank: query.NewGetUserRankHandler(deps.Ledger, deps.Ladder),
		boards: query.NewGetLeaderboardHandler(
			deps.Scores,
			deps.Cache,
			leaderboard.NewAnonymizer(cfg.SpecialSlots),
			boardRecorder,
			deps.Logger,
			cfg.Leaderboard,
		),
		catalogView: query.NewGetAchievementsHandler(deps.Catalog, deps.Achievements),
		history:     query.NewGetPointHistoryHandler(deps.Ledger),
	}
}

// Ladder возвращает каталог рангов.
func (m *Manager) Ladder() *rank.Ladder {
	return m.ladder
}

// Catalog возвращает каталог достижений.
func (m *Manager) Catalog() *achievement.Catalog {
	return m.catalog
}

// AwardPoints начисляет очки за скоринговое событие.
func (m *Manager) AwardPoints(ctx context.Context, userID int64, eventType points.EventType, md points.Metadata) (*command.AwardPointsResult, error) {
	return m.award.Handle(ctx, command.AwardPointsCommand{
		UserID:    userID,
		EventType: eventType,
		Metadata:  md,
	})
}

// Award выполняет готовую команду начисления.
func (m *Manager) Award(ctx context.Context, cmd command.AwardPointsCommand) (*command.AwardPointsResult, error) {
	return m.award.Handle(ctx, cmd)
}

// GetUserRank возвращает ранг пользователя.
func (m *Manager) GetUserRank(ctx context.Context, userID int64) (*rank.State, error) {
	return m.rank.Handle(ctx, query.GetUserRankQuery{UserID: userID})
}

// GetRankLadder возвращает лестницу рангов с позицией пользователя.
func (m *Manager) GetRankLadder(ctx context.Context, userID int64) (*rank.View, error) {
	return m.rank.HandleLadder(ctx, query.GetUserRankQuery{UserID: userID})
}

// GetLeaderboard возвращает анонимный лидерборд.
func (m *Manager) GetLeaderboard(ctx context.Context, t leaderboard.Type, limit int) (*leaderboard.Board, error) {
	return m.boards.Handle(ctx, query.GetLeaderboardQuery{Type: t, Limit: limit})
}

// GetLeaderboardStats возвращает сводку лидерборда.
func (m *Manager) GetLeaderboardStats(ctx context.Context, t leaderboard.Type) (*leaderboard.Stats, error) {
	return m.boards.HandleStats(ctx, t)
}

// GetAllAchievements возвращает публичный каталог достижений.
func (m *Manager) GetAllAchievements() []achievement.Definition {
	return m.catalogView.All()
}

// GetUserAchievements возвращает каталог пользователя.
func (m *Manager) GetUserAchievements(ctx context.Context, userID int64) (*query.UserAchievementsResult, error) {
	return m.catalogView.ForUser(ctx, userID)
}

// GetPointHistory возвращает последние транзакции пользователя.
func (m *Manager) GetPointHistory(ctx context.Context, userID int64, limit int) ([]ledger.Transaction, error) {
	return m.history.Handle(ctx, query.GetPointHistoryQuery{UserID: userID, Limit: limit})
}

// CheckQualification проверяет условие достижения без разблокировки.
func (m *Manager) CheckQualification(ctx context.Context, userID int64, achievementID string) (bool, error) {
	return m.achievements.CheckQualification(ctx, userID, achievementID)
}

// EvaluateAchievements разблокирует всё, на что пользователь уже имеет право.
// Используется для догоняющей оценки после AchievementsDeferred.
func (m *Manager) EvaluateAchievements(ctx context.Context, userID int64) (*saga.EvaluationResult, error) {
	return m.achievements.EvaluateAll(ctx, userID)
}
