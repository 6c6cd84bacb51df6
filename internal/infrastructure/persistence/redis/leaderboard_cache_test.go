package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
)

func TestKeys(t *testing.T) {
	start := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "ranking:leaderboard:weekly:1750032000:10", BoardKey(leaderboard.TypeWeekly, start, 10))
	assert.Equal(t, "ranking:leaderboard:all_time:all:0", BoardKey(leaderboard.TypeAllTime, time.Time{}, 0))
	assert.Equal(t, "ranking:lbstats:monthly:1750032000", StatsKey(leaderboard.TypeMonthly, start))

	// a new window never shares a key with the previous one
	assert.NotEqual(t,
		BoardKey(leaderboard.TypeWeekly, start, 10),
		BoardKey(leaderboard.TypeWeekly, start.AddDate(0, 0, 7), 10))
}

func TestNewLeaderboardCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, TTLLeaderboardCache, NewLeaderboardCache(nil, 0).TTL())
	assert.Equal(t, time.Minute, NewLeaderboardCache(nil, time.Minute).TTL())
}
