package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate_BaseValues(t *testing.T) {
	tests := []struct {
		event EventType
		want  int64
	}{
		{EventConfessionSubmitted, 0},
		{EventConfessionApproved, 50},
		{EventCommentPosted, 8},
		{EventDailyLogin, 5},
		{EventContentRejected, -3},
		{EventContentReported, -10},
		{EventConfessionLiked, 3},
		{EventAchievementUnlocked, 0},
		{EventType("definitely_not_an_event"), 0},
		{EventType(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			assert.Equal(t, tt.want, Calculate(tt.event, Metadata{}))
		})
	}
}

func TestCalculate_StreakMultiplier(t *testing.T) {
	tests := []struct {
		days int64
		want int64
	}{
		{0, 15},
		{7, 15},
		{29, 15},
		{30, 20},
		{89, 20},
		{90, 30},
		{364, 30},
		{365, 50},
		{1000, 50},
		{-12, 15},
	}

	for _, tt := range tests {
		got := Calculate(EventConsecutiveDaysBonus, Metadata{ConsecutiveDays: tt.days})
		assert.Equal(t, tt.want, got, "consecutive_days=%d", tt.days)
	}
}

func TestCalculate_EngagementMultiplier(t *testing.T) {
	tests := []struct {
		likes int64
		want  int64
	}{
		{5, 3},
		{9, 3},
		{10, 9},
		{50, 9},
		{99, 9},
		{100, 12},
		{150, 12},
		{-40, 3},
	}

	for _, tt := range tests {
		got := Calculate(EventConfessionLiked, Metadata{LikeCount: tt.likes})
		assert.Equal(t, tt.want, got, "like_count=%d", tt.likes)
	}
}

func TestCalculate_QualityBonus(t *testing.T) {
	short := Calculate(EventConfessionApproved, Metadata{ContentLength: 100})
	medium := Calculate(EventConfessionApproved, Metadata{ContentLength: 300})
	long := Calculate(EventConfessionApproved, Metadata{ContentLength: 600})

	assert.Equal(t, int64(55), short)
	assert.Equal(t, int64(60), medium)
	assert.Equal(t, int64(70), long)
	assert.Less(t, short, medium)
	assert.Less(t, medium, long)

	assert.Greater(t, Calculate(EventConfessionApproved, Metadata{QualityScore: 4}), int64(50))
}

func TestCalculate_RoundHalfUp(t *testing.T) {
	// (50 + 5) * 1.3 = 71.5 → 72
	assert.Equal(t, int64(72), Calculate(EventConfessionApproved, Metadata{ContentLength: 60, QualityScore: 3}))
	// (50 + 0) * 1.1 = 55
	assert.Equal(t, int64(55), Calculate(EventConfessionApproved, Metadata{ContentLength: 10, QualityScore: 1}))
	// (50 + 5) * 1.1 = 60.5 → 61
	assert.Equal(t, int64(61), Calculate(EventConfessionApproved, Metadata{ContentLength: 199, QualityScore: 1}))
}

func TestCalculate_QualityClamped(t *testing.T) {
	capped := Calculate(EventConfessionApproved, Metadata{QualityScore: 5})
	assert.Equal(t, capped, Calculate(EventConfessionApproved, Metadata{QualityScore: 50}))
	assert.Equal(t, int64(50), Calculate(EventConfessionApproved, Metadata{QualityScore: -3, ContentLength: -100}))
}

func TestCalculate_NeverBelowApprovalBase(t *testing.T) {
	for length := int64(-10); length < 1200; length += 37 {
		for q := int64(-2); q <= 7; q++ {
			got := Calculate(EventConfessionApproved, Metadata{ContentLength: length, QualityScore: q})
			assert.GreaterOrEqual(t, got, int64(50))
		}
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	md := Metadata{ContentLength: 321, QualityScore: 2, LikeCount: 77, ConsecutiveDays: 45}
	for _, ev := range []EventType{EventConfessionApproved, EventConfessionLiked, EventConsecutiveDaysBonus} {
		assert.Equal(t, Calculate(ev, md), Calculate(ev, md))
	}
}

func TestRoundTenths(t *testing.T) {
	assert.Equal(t, int64(2), roundTenths(15))
	assert.Equal(t, int64(1), roundTenths(14))
	assert.Equal(t, int64(-1), roundTenths(-15))
	assert.Equal(t, int64(-2), roundTenths(-16))
	assert.Equal(t, int64(0), roundTenths(-5))
}

func TestTable(t *testing.T) {
	table := Table()
	assert.Len(t, table, len(baseValues))
	assert.Equal(t, EventConfessionFeatured, table[0].Event)
	assert.Equal(t, EventContentReported, table[len(table)-1].Event)
	assert.True(t, EventDailyLogin.IsKnown())
	assert.False(t, EventType("nope").IsKnown())
}
