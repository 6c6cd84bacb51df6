// Package points содержит калькулятор очков: чистую функцию
// (тип события, метаданные) → знаковая дельта очков.
// Калькулятор не хранит состояние и никогда не возвращает ошибку:
// неизвестные события дают 0, некорректные метаданные обнуляются.
package points

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// EVENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// EventType - тип оценочного события (scoring event).
type EventType string

const (
	EventConfessionSubmitted  EventType = "confession_submitted"
	EventConfessionApproved   EventType = "confession_approved"
	EventConfessionFeatured   EventType = "confession_featured"
	EventCommentPosted        EventType = "comment_posted"
	EventCommentReceived      EventType = "comment_received"
	EventCommentLiked         EventType = "comment_liked"
	EventConfessionLiked      EventType = "confession_liked"
	EventReactionGiven        EventType = "reaction_given"
	EventDailyLogin           EventType = "daily_login"
	EventConsecutiveDaysBonus EventType = "consecutive_days_bonus"
	EventWeeklyActive         EventType = "weekly_active"
	EventContentRejected      EventType = "content_rejected"
	EventContentReported      EventType = "content_reported"
	EventAchievementUnlocked  EventType = "achievement_unlocked"
)

// String возвращает строковое представление типа.
func (t EventType) String() string {
	return string(t)
}

// IsKnown возвращает true, если тип есть в таблице базовых очков.
func (t EventType) IsKnown() bool {
	_, ok := baseValues[t]
	return ok
}

// baseValues - таблица базовых очков. Единственный источник истины для дельт.
var baseValues = map[EventType]int64{
	EventConfessionSubmitted:  0,
	EventConfessionApproved:   50,
	EventConfessionFeatured:   75,
	EventCommentPosted:        8,
	EventCommentReceived:      4,
	EventCommentLiked:         2,
	EventConfessionLiked:      3,
	EventReactionGiven:        1,
	EventDailyLogin:           5,
	EventConsecutiveDaysBonus: 10,
	EventWeeklyActive:         20,
	EventContentRejected:      -3,
	EventContentReported:      -10,
	EventAchievementUnlocked:  0,
}

// BaseValue возвращает базовые очки события (0 для неизвестных).
func BaseValue(t EventType) int64 {
	return baseValues[t]
}

// TableEntry - строка таблицы очков для справки "как заработать очки".
type TableEntry struct {
	Event  EventType `json:"event"`
	Points int64     `json:"points"`
}

// Table возвращает таблицу базовых очков, отсортированную по убыванию очков.
func Table() []TableEntry {
	out := make([]TableEntry, 0, len(baseValues))
	for ev, p := range baseValues {
		out = append(out, TableEntry{Event: ev, Points: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Event < out[j].Event
	})
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// METADATA
// ══════════════════════════════════════════════════════════════════════════════

// Metadata - необязательные числовые параметры события.
// Нулевое значение означает "не передано".
type Metadata struct {
	ContentLength   int64  `json:"content_length,omitempty"`
	QualityScore    int64  `json:"quality_score,omitempty"`
	LikeCount       int64  `json:"like_count,omitempty"`
	ConsecutiveDays int64  `json:"consecutive_days,omitempty"`
	Category        string `json:"category,omitempty"`
}

// Sanitized возвращает копию с отрицательными значениями, приведёнными к нулю.
func (m Metadata) Sanitized() Metadata {
	m.ContentLength = clampNonNegative(m.ContentLength)
	m.QualityScore = clampNonNegative(m.QualityScore)
	m.LikeCount = clampNonNegative(m.LikeCount)
	m.ConsecutiveDays = clampNonNegative(m.ConsecutiveDays)
	return m
}

// ══════════════════════════════════════════════════════════════════════════════
// MULTIPLIER TABLES
// ══════════════════════════════════════════════════════════════════════════════

// Множители хранятся в десятых долях, чтобы округление было точным
// целочисленным (15 = 1.5×).

// band - ступень таблицы: применяется, если значение < below.
// Последняя ступень открыта сверху (below = 0).
type band struct {
	below int64
	value int64
}

func lookup(bands []band, v int64) int64 {
	for _, b := range bands {
		if b.below == 0 || v < b.below {
			return b.value
		}
	}
	return bands[len(bands)-1].value
}

// streakMultiplier: <30 → 1.5×, <90 → 2×, <365 → 3×, ≥365 → 5×.
var streakMultiplier = []band{
	{below: 30, value: 15},
	{below: 90, value: 20},
	{below: 365, value: 30},
	{below: 0, value: 50},
}

// likeMultiplier: <10 → 1×, <100 → 3×, ≥100 → 4×.
var likeMultiplier = []band{
	{below: 10, value: 10},
	{below: 100, value: 30},
	{below: 0, value: 40},
}

// lengthBonus - надбавка к базе одобрения по длине текста.
var lengthBonus = []band{
	{below: 50, value: 0},
	{below: 200, value: 5},
	{below: 500, value: 10},
	{below: 0, value: 20},
}

// MaxQualityScore - верхняя граница оценки качества.
const MaxQualityScore = 5

// ══════════════════════════════════════════════════════════════════════════════
// CALCULATION
// ══════════════════════════════════════════════════════════════════════════════

// Calculate возвращает дельту очков для события.
// Функция чистая: одинаковые входы всегда дают одинаковый результат.
func Calculate(eventType EventType, md Metadata) int64 {
	base, ok := baseValues[eventType]
	if !ok {
		return 0
	}
	md = md.Sanitized()

	switch eventType {
	case EventConsecutiveDaysBonus:
		return roundTenths(base * lookup(streakMultiplier, md.ConsecutiveDays))

	case EventConfessionLiked:
		return roundTenths(base * lookup(likeMultiplier, md.LikeCount))

	case EventConfessionApproved:
		quality := md.QualityScore
		if quality > MaxQualityScore {
			quality = MaxQualityScore
		}
		withLength := base + lookup(lengthBonus, md.ContentLength)
		return roundTenths(withLength * (10 + quality))

	default:
		return base
	}
}

// roundTenths делит на 10 с округлением половины вверх (floor(x/10 + 0.5)).
func roundTenths(tenths int64) int64 {
	if tenths >= 0 {
		return (tenths + 5) / 10
	}
	// floor для отрицательных: -15 → -1, -16 → -2
	return -((-tenths - 5 + 9) / 10)
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
