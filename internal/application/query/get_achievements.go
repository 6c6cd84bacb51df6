package query

import (
	"context"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Публичный каталог не содержит скрытых достижений. Каталог пользователя
// показывает и скрытые, но только уже открытые им.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsHandler отдаёт каталог достижений.
type GetAchievementsHandler struct {
	catalog *achievement.Catalog
	repo    achievement.Repository
}

// NewGetAchievementsHandler создаёт новый обработчик.
func NewGetAchievementsHandler(catalog *achievement.Catalog, repo achievement.Repository) *GetAchievementsHandler {
	return &GetAchievementsHandler{catalog: catalog, repo: repo}
}

// All возвращает публичный каталог.
func (h *GetAchievementsHandler) All() []achievement.Definition {
	return h.catalog.Public()
}

// UserAchievementsResult - каталог глазами пользователя.
type UserAchievementsResult struct {
	UserID       int64                  `json:"user_id"`
	Achievements []achievement.Progress `json:"achievements"`
	Unlocked     int                    `json:"unlocked"`

	// Total - сколько достижений пользователь видит в каталоге.
	Total int `json:"total"`
}

// ForUser возвращает каталог пользователя, открытые достижения первыми.
func (h *GetAchievementsHandler) ForUser(ctx context.Context, userID int64) (*UserAchievementsResult, error) {
	if userID <= 0 {
		return nil, shared.ErrInvalidUserID
	}
	unlocks, err := h.repo.UnlockedBy(ctx, userID)
	if err != nil {
		return nil, shared.StorageError("GetUserAchievements", err)
	}

	progress := h.catalog.ForUser(unlocks)
	return &UserAchievementsResult{
		UserID:       userID,
		Achievements: progress,
		Unlocked:     len(unlocks),
		Total:        len(progress),
	}, nil
}
