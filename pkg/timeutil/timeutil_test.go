package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var eat = time.FixedZone("EAT", 3*60*60)

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", time.Date(2025, 3, 10, 15, 0, 0, 0, eat), time.Date(2025, 3, 10, 0, 0, 0, 0, eat)},
		{"sunday", time.Date(2025, 3, 16, 23, 59, 0, 0, eat), time.Date(2025, 3, 10, 0, 0, 0, 0, eat)},
		{"utc late sunday is monday locally", time.Date(2025, 3, 16, 22, 30, 0, 0, time.UTC), time.Date(2025, 3, 17, 0, 0, 0, 0, eat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(StartOfWeek(tt.in, eat)), "got %v", StartOfWeek(tt.in, eat))
		})
	}
}

func TestStartOfQuarter(t *testing.T) {
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, eat), StartOfQuarter(time.Date(2025, 3, 31, 12, 0, 0, 0, eat), eat))
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, eat), StartOfQuarter(time.Date(2025, 4, 1, 0, 0, 0, 0, eat), eat))
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, eat), StartOfQuarter(time.Date(2025, 12, 31, 23, 0, 0, 0, eat), eat))
	assert.Equal(t, 4, Quarter(time.Date(2025, 12, 31, 23, 0, 0, 0, eat), eat))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 10, 23, 0, 0, 0, eat)
	b := time.Date(2025, 3, 11, 1, 0, 0, 0, eat)

	assert.Equal(t, 1, DaysBetween(a, b, eat))
	assert.Equal(t, -1, DaysBetween(b, a, eat))
	assert.True(t, IsConsecutiveDay(a, b, eat))
	assert.False(t, IsSameDay(a, b, eat))
	assert.Equal(t, "2025-03-11", FormatDate(b, eat))
}

func TestLoadLocationFallback(t *testing.T) {
	loc, err := LoadLocation("Not/AZone")
	assert.Error(t, err)
	assert.NotNil(t, loc)
}
