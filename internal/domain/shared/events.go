package shared

import (
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted by the ranking engine.
const (
	EventPointsAwarded       EventType = "ranking.points_awarded"
	EventRankChanged         EventType = "ranking.rank_changed"
	EventAchievementUnlocked EventType = "ranking.achievement_unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event for a user aggregate.
func NewBaseEvent(eventType EventType, userID int64, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: strconv.FormatInt(userID, 10),
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Ranking Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted after a scoring event changed a ledger total.
type PointsAwardedEvent struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	ScoringEvent  string `json:"scoring_event"`
	PointsDelta   int64  `json:"points_delta"`
	NewTotal      int64  `json:"new_total"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"scoring_event":  e.ScoringEvent,
		"points_delta":   e.PointsDelta,
		"new_total":      e.NewTotal,
		"transaction_id": e.TransactionID,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(userID int64, scoringEvent string, delta, total int64, txID string, at time.Time) PointsAwardedEvent {
	return PointsAwardedEvent{
		BaseEvent:     NewBaseEvent(EventPointsAwarded, userID, at),
		UserID:        userID,
		ScoringEvent:  scoringEvent,
		PointsDelta:   delta,
		NewTotal:      total,
		TransactionID: txID,
	}
}

// RankChangedEvent is emitted once per award that moved the user to another tier.
type RankChangedEvent struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	PreviousRank  string `json:"previous_rank"`
	PreviousLevel int    `json:"previous_level"`
	NewRank       string `json:"new_rank"`
	NewLevel      int    `json:"new_level"`
	TotalPoints   int64  `json:"total_points"`
}

// Payload implements Event interface.
func (e RankChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"previous_rank":  e.PreviousRank,
		"previous_level": e.PreviousLevel,
		"new_rank":       e.NewRank,
		"new_level":      e.NewLevel,
		"total_points":   e.TotalPoints,
	}
}

// IsPromotion returns true when the user moved up the ladder.
func (e RankChangedEvent) IsPromotion() bool {
	return e.NewLevel > e.PreviousLevel
}

// NewRankChangedEvent creates a new RankChangedEvent.
func NewRankChangedEvent(userID int64, previous string, previousLevel int, next string, level int, total int64, at time.Time) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent:     NewBaseEvent(EventRankChanged, userID, at),
		UserID:        userID,
		PreviousRank:  previous,
		PreviousLevel: previousLevel,
		NewRank:       next,
		NewLevel:      level,
		TotalPoints:   total,
	}
}

// AchievementUnlockedEvent is emitted for each newly recorded unlock.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	PointsAwarded int64  `json:"points_awarded"`
	Hidden        bool   `json:"hidden"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"points_awarded": e.PointsAwarded,
		"hidden":         e.Hidden,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID int64, id, name string, points int64, hidden bool, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID, at),
		UserID:        userID,
		AchievementID: id,
		Name:          name,
		PointsAwarded: points,
		Hidden:        hidden,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber registers handlers for domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
