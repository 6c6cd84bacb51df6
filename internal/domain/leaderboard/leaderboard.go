// Package leaderboard содержит доменную модель анонимных лидербордов:
// окна, порядок, сводную статистику и детерминированные псевдонимы.
// Лидерборд только читает журнал очков, никогда не пишет в него.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
	"github.com/aau-confessions/confession-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Type - вид лидерборда.
type Type string

const (
	TypeWeekly         Type = "weekly"
	TypeMonthly        Type = "monthly"
	TypeSeasonal       Type = "seasonal"
	TypeAllTime        Type = "all_time"
	TypeMostImproved   Type = "most_improved"
	TypeMostConsistent Type = "most_consistent"
)

// Types возвращает все виды в порядке показа.
func Types() []Type {
	return []Type{TypeWeekly, TypeMonthly, TypeSeasonal, TypeAllTime, TypeMostImproved, TypeMostConsistent}
}

// IsValid проверяет, что вид известен.
func (t Type) IsValid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Title возвращает заголовок для отображения.
func (t Type) Title() string {
	switch t {
	case TypeWeekly:
		return "Weekly Leaders"
	case TypeMonthly:
		return "Monthly Leaders"
	case TypeSeasonal:
		return "Season Leaders"
	case TypeAllTime:
		return "Hall of Fame"
	case TypeMostImproved:
		return "Most Improved"
	case TypeMostConsistent:
		return "Most Consistent"
	default:
		return string(t)
	}
}

// ParseType разбирает вид лидерборда из строки.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", shared.WrapError("leaderboard", "ParseType", shared.ErrUnknownLeaderboard,
			fmt.Sprintf("unknown leaderboard type %q", s), nil)
	}
	return t, nil
}

// Metric - что именно суммирует источник.
type Metric int

const (
	// MetricPoints - сумма очков в окне.
	MetricPoints Metric = iota
	// MetricImprovement - сумма в окне минус сумма в базовом окне.
	MetricImprovement
	// MetricActiveDays - число различных дней с транзакциями в окне.
	MetricActiveDays
)

// ConsistencyDays - длина скользящего окна для most_consistent.
const ConsistencyDays = 30

// ══════════════════════════════════════════════════════════════════════════════
// QUERY PLANNING
// ══════════════════════════════════════════════════════════════════════════════

// Query - запрос к источнику очков.
type Query struct {
	Type   Type
	Metric Metric
	Window ledger.Window

	// Baseline используется только MetricImprovement.
	Baseline ledger.Window

	// Location - часовой пояс, в котором считаются дни (MetricActiveDays).
	Location *time.Location

	// Limit ограничивает число строк; 0 - без ограничения.
	Limit int
}

// WindowStart возвращает начало окна, участвующее в seed псевдонимов.
// Для all_time это нулевое время.
func (q Query) WindowStart() time.Time {
	return q.Window.From
}

// Plan строит запрос для вида лидерборда на момент now.
// Границы окон считаются в часовом поясе loc.
func Plan(t Type, now time.Time, loc *time.Location) (Query, error) {
	if loc == nil {
		loc = time.UTC
	}
	q := Query{Type: t, Metric: MetricPoints, Location: loc}

	switch t {
	case TypeWeekly:
		from := timeutil.StartOfWeek(now, loc)
		q.Window = ledger.Between(from, from.AddDate(0, 0, 7))
	case TypeMonthly:
		from := timeutil.StartOfMonth(now, loc)
		q.Window = ledger.Between(from, from.AddDate(0, 1, 0))
	case TypeSeasonal:
		from := timeutil.StartOfQuarter(now, loc)
		q.Window = ledger.Between(from, from.AddDate(0, 3, 0))
	case TypeAllTime:
		q.Window = ledger.AllTime
	case TypeMostImproved:
		from := timeutil.StartOfWeek(now, loc)
		q.Metric = MetricImprovement
		q.Window = ledger.Between(from, from.AddDate(0, 0, 7))
		q.Baseline = ledger.Between(from.AddDate(0, 0, -7), from)
	case TypeMostConsistent:
		today := timeutil.StartOfDay(now, loc)
		q.Metric = MetricActiveDays
		q.Window = ledger.Between(today.AddDate(0, 0, 1-ConsistencyDays), today.AddDate(0, 0, 1))
	default:
		return Query{}, shared.WrapError("leaderboard", "Plan", shared.ErrUnknownLeaderboard,
			fmt.Sprintf("unknown leaderboard type %q", t), nil)
	}
	return q, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// Score - значение метрики пользователя в окне.
type Score struct {
	UserID int64
	Value  int64

	// ReachedAt - момент последней транзакции пользователя в окне.
	// При равенстве очков выше тот, кто достиг результата раньше.
	ReachedAt time.Time
}

// Source - источник очков для лидербордов.
//
// Один вызов Scores - одно согласованное чтение: в выдаче не смешиваются
// состояния до и после добавления для одного пользователя.
// Возвращаются только пользователи с положительным значением.
type Source interface {
	Scores(ctx context.Context, q Query) ([]Score, error)
}

// Order сортирует очки: значение по убыванию, затем ReachedAt по возрастанию,
// затем UserID по возрастанию. Порядок полный, ничьих не остаётся.
func Order(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if !a.ReachedAt.Equal(b.ReachedAt) {
			return a.ReachedAt.Before(b.ReachedAt)
		}
		return a.UserID < b.UserID
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// BOARD
// ══════════════════════════════════════════════════════════════════════════════

// Position - место в лидерборде, начиная с 1.
type Position int

// IsPodium возвращает true для первых трёх мест.
func (p Position) IsPodium() bool {
	return p >= 1 && p <= 3
}

// Medal возвращает эмодзи медали для пьедестала.
func (p Position) Medal() string {
	switch p {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// Entry - строка лидерборда.
type Entry struct {
	Position    Position `json:"position"`
	DisplayName string   `json:"display_name"`
	Score       int64    `json:"score"`
	IsSpecial   bool     `json:"is_special"`

	// UserID не покидает сервер.
	UserID int64 `json:"-"`
}

// Board - отрисованный лидерборд.
type Board struct {
	Type        Type      `json:"type"`
	WindowStart time.Time `json:"window_start,omitempty"`
	WindowEnd   time.Time `json:"window_end,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Entries     []Entry   `json:"entries"`
}

// IsEmpty возвращает true, если в лидерборде нет строк.
func (b *Board) IsEmpty() bool {
	return b == nil || len(b.Entries) == 0
}

// Clone возвращает копию доски с собственным срезом строк.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	c := *b
	c.Entries = make([]Entry, len(b.Entries))
	copy(c.Entries, b.Entries)
	return &c
}

// EntryFor возвращает строку пользователя или nil.
func (b *Board) EntryFor(userID int64) *Entry {
	if b == nil {
		return nil
	}
	for i := range b.Entries {
		if b.Entries[i].UserID == userID {
			return &b.Entries[i]
		}
	}
	return nil
}

// Empty возвращает пустой лидерборд для запроса.
func Empty(q Query, now time.Time) *Board {
	return &Board{
		Type:        q.Type,
		WindowStart: q.Window.From,
		WindowEnd:   q.Window.To,
		GeneratedAt: now,
		Entries:     []Entry{},
	}
}

// Build упорядочивает очки, обрезает по limit и раздаёт псевдонимы.
// scores изменяется на месте.
func Build(q Query, scores []Score, names *Anonymizer, limit int, now time.Time) *Board {
	board := Empty(q, now)

	Order(scores)
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}

	draw := names.NewDraw()
	for i, s := range scores {
		pos := Position(i + 1)
		name, special := draw.Name(pos, Seed(s.UserID, q.Type, q.WindowStart()))
		board.Entries = append(board.Entries, Entry{
			Position:    pos,
			DisplayName: name,
			Score:       s.Value,
			IsSpecial:   special,
			UserID:      s.UserID,
		})
	}
	return board
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// Stats - сводка по лидерборду.
type Stats struct {
	Type         Type      `json:"type"`
	Participants int       `json:"participants"`
	TotalScore   int64     `json:"total_score"`
	AverageScore float64   `json:"average_score"`
	MedianScore  float64   `json:"median_score"`
	TopScore     int64     `json:"top_score"`
	WindowStart  time.Time `json:"window_start,omitempty"`
	WindowEnd    time.Time `json:"window_end,omitempty"`
}

// Summarize считает сводку по полному списку очков.
func Summarize(q Query, scores []Score) *Stats {
	st := &Stats{
		Type:        q.Type,
		WindowStart: q.Window.From,
		WindowEnd:   q.Window.To,
	}
	if len(scores) == 0 {
		return st
	}

	values := make([]int64, len(scores))
	for i, s := range scores {
		values[i] = s.Value
		st.TotalScore += s.Value
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	n := len(values)
	st.Participants = n
	st.TopScore = values[n-1]
	st.AverageScore = float64(st.TotalScore) / float64(n)
	if n%2 == 1 {
		st.MedianScore = float64(values[n/2])
	} else {
		st.MedianScore = float64(values[n/2-1]+values[n/2]) / 2
	}
	return st
}
