// Package ledger содержит модель журнала очков: неизменяемые транзакции,
// только добавление. Сумма пользователя - всегда свёртка его транзакций,
// никакой отдельный счётчик не считается источником истины.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transaction - неизменяемая запись журнала (PointTransaction).
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	EventType string    `json:"event_type"`
	Delta     int64     `json:"points_delta"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry - то, что добавляется в журнал.
type Entry struct {
	UserID    int64
	EventType string
	Delta     int64

	// Reason - необязательная пояснительная метка, например id достижения.
	Reason string
}

// Receipt - результат добавления: записанная транзакция и сумма
// пользователя сразу после неё, посчитанная в той же критической секции.
type Receipt struct {
	Transaction Transaction
	Total       int64
}

// PreviousTotal возвращает сумму до этой транзакции.
func (r Receipt) PreviousTotal() int64 {
	return r.Total - r.Transaction.Delta
}

// ══════════════════════════════════════════════════════════════════════════════
// WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// Window - полуоткрытый интервал [From, To). Нулевая граница - без ограничения.
type Window struct {
	From time.Time
	To   time.Time
}

// AllTime - окно без границ.
var AllTime = Window{}

// Since возвращает окно [from, +∞).
func Since(from time.Time) Window {
	return Window{From: from}
}

// Between возвращает окно [from, to).
func Between(from, to time.Time) Window {
	return Window{From: from, To: to}
}

// Contains проверяет, попадает ли момент в окно.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// IsUnbounded возвращает true для окна без границ.
func (w Window) IsUnbounded() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository - хранилище журнала.
//
// Append - единственная мутация. Добавления одного пользователя сериализуются:
// Receipt.Total всегда учитывает все предыдущие добавления этого пользователя.
// Неудачное добавление не оставляет следов.
type Repository interface {
	Append(ctx context.Context, entry Entry) (Receipt, error)
	SumFor(ctx context.Context, userID int64, window Window) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]Transaction, error)
}
