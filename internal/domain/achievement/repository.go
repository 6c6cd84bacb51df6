package achievement

import (
	"context"

	"github.com/google/uuid"
)

// StatsProvider возвращает агрегированную статистику пользователя.
// Снимок должен отражать все уже зафиксированные транзакции леджера.
type StatsProvider interface {
	UserStats(ctx context.Context, userID int64) (*Stats, error)
}

// UnlockResult - результат попытки разблокировки.
type UnlockResult struct {
	// Unlocked == false означает, что пара (user, achievement) уже записана:
	// ни строки, ни награды не добавлено.
	Unlocked bool

	Unlock        Unlock
	TransactionID uuid.UUID

	// NewTotal - сумма леджера после начисления награды.
	NewTotal int64
}

// Repository хранит записи о разблокировках.
//
// Unlock атомарно вставляет запись UserAchievement и транзакцию награды
// в леджер под той же пользовательской блокировкой, что и обычные начисления.
// Проверка "уже открыто" выполняется на границе записи, а не вызывающим кодом.
type Repository interface {
	Unlock(ctx context.Context, userID int64, def Definition) (UnlockResult, error)
	UnlockedBy(ctx context.Context, userID int64) ([]Unlock, error)
}

// UnlockedSet превращает список разблокировок в множество идентификаторов.
func UnlockedSet(unlocks []Unlock) map[string]bool {
	set := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		set[u.AchievementID] = true
	}
	return set
}
