package rank

// State - производное состояние ранга пользователя.
// Не хранится: строится из суммы леджера при каждом запросе.
type State struct {
	UserID      int64      `json:"user_id"`
	TotalPoints int64      `json:"total_points"`
	Rank        Definition `json:"rank"`

	// NextRank == nil на верхнем тире.
	NextRank *Definition `json:"next_rank,omitempty"`

	// PointsToNext - сколько очков не хватает до следующего тира.
	PointsToNext int64 `json:"points_to_next"`

	// Progress - прогресс внутри текущего тира, 0..100.
	Progress int `json:"progress"`
}

// NextThreshold возвращает MinPoints следующего тира или nil.
func (s State) NextThreshold() *int64 {
	if s.NextRank == nil {
		return nil
	}
	v := s.NextRank.MinPoints
	return &v
}

// State строит состояние ранга для суммы очков.
// Пользователь без транзакций получает сумму 0 и нижний тир.
func (l *Ladder) State(userID, total int64) State {
	current := l.Resolve(total)
	st := State{
		UserID:      userID,
		TotalPoints: total,
		Rank:        current,
	}

	next, ok := l.Next(current)
	if !ok {
		st.Progress = 100
		return st
	}

	st.NextRank = &next
	st.PointsToNext = next.MinPoints - total

	// отрицательная сумма даёт нулевой прогресс, но не сокращает путь
	effective := total
	if effective < current.MinPoints {
		effective = current.MinPoints
	}

	span := next.MinPoints - current.MinPoints
	if span > 0 {
		st.Progress = int((effective - current.MinPoints) * 100 / span)
	}
	return st
}

// ══════════════════════════════════════════════════════════════════════════════
// LADDER VIEW
// ══════════════════════════════════════════════════════════════════════════════

// Step - строка лестницы рангов для отображения.
type Step struct {
	Definition Definition `json:"definition"`
	Current    bool       `json:"current"`
	Reached    bool       `json:"reached"`
}

// View - лестница рангов с отмеченной позицией пользователя.
type View struct {
	State State  `json:"state"`
	Steps []Step `json:"steps"`
}

// View строит представление лестницы для пользователя.
func (l *Ladder) View(userID, total int64) View {
	st := l.State(userID, total)
	steps := make([]Step, len(l.tiers))
	for i, t := range l.tiers {
		steps[i] = Step{
			Definition: t,
			Current:    t.ID == st.Rank.ID,
			Reached:    t.Level <= st.Rank.Level,
		}
	}
	return View{State: st, Steps: steps}
}
