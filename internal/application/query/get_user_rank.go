package query

import (
	"context"

	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// Ранг не хранится: он всегда выводится из суммы леджера.
// Пользователь без транзакций получает 0 очков и нижний тир.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery содержит параметры запроса ранга.
type GetUserRankQuery struct {
	UserID int64
}

// Validate проверяет запрос.
func (q GetUserRankQuery) Validate() error {
	if q.UserID <= 0 {
		return shared.ErrInvalidUserID
	}
	return nil
}

// GetUserRankHandler отдаёт состояние ранга и лестницу рангов.
type GetUserRankHandler struct {
	ledger ledger.Repository
	ladder *rank.Ladder
}

// NewGetUserRankHandler создаёт новый обработчик.
func NewGetUserRankHandler(ledgerRepo ledger.Repository, ladder *rank.Ladder) *GetUserRankHandler {
	return &GetUserRankHandler{ledger: ledgerRepo, ladder: ladder}
}

func (h *GetUserRankHandler) total(ctx context.Context, userID int64) (int64, error) {
	total, err := h.ledger.SumFor(ctx, userID, ledger.AllTime)
	if err != nil {
		return 0, shared.StorageError("GetUserRank", err)
	}
	return total, nil
}

// Handle возвращает текущий ранг пользователя.
func (h *GetUserRankHandler) Handle(ctx context.Context, query GetUserRankQuery) (*rank.State, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	total, err := h.total(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	st := h.ladder.State(query.UserID, total)
	return &st, nil
}

// HandleLadder возвращает всю лестницу рангов с отмеченной позицией пользователя.
func (h *GetUserRankHandler) HandleLadder(ctx context.Context, query GetUserRankQuery) (*rank.View, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	total, err := h.total(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	view := h.ladder.View(query.UserID, total)
	return &view, nil
}
