package query

import (
	"context"

	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// GetPointHistoryQuery - последние транзакции пользователя.
type GetPointHistoryQuery struct {
	UserID int64

	// Limit по умолчанию 20, максимум 100.
	Limit int
}

// Validate проверяет запрос и нормализует лимит.
func (q *GetPointHistoryQuery) Validate() error {
	if q.UserID <= 0 {
		return shared.ErrInvalidUserID
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// GetPointHistoryHandler читает журнал очков.
type GetPointHistoryHandler struct {
	ledger ledger.Repository
}

// NewGetPointHistoryHandler создаёт новый обработчик.
func NewGetPointHistoryHandler(ledgerRepo ledger.Repository) *GetPointHistoryHandler {
	return &GetPointHistoryHandler{ledger: ledgerRepo}
}

// Handle возвращает транзакции, новые первыми.
func (h *GetPointHistoryHandler) Handle(ctx context.Context, query GetPointHistoryQuery) ([]ledger.Transaction, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	txs, err := h.ledger.History(ctx, query.UserID, query.Limit)
	if err != nil {
		return nil, shared.StorageError("GetPointHistory", err)
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return txs, nil
}
