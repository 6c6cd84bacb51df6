//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
)

func startRedis(t *testing.T) *Cache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cache := NewCacheFromClient(goredis.NewClient(&goredis.Options{Addr: endpoint}))
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Ping(ctx))
	return cache
}

func TestLeaderboardCache_RoundTripKeepsUserIDs(t *testing.T) {
	ctx := context.Background()
	lc := NewLeaderboardCache(startRedis(t), time.Minute)
	start := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	_, err := lc.GetBoard(ctx, leaderboard.TypeWeekly, start, 10)
	assert.ErrorIs(t, err, ErrCacheMiss)

	board := &leaderboard.Board{
		Type:        leaderboard.TypeWeekly,
		WindowStart: start,
		WindowEnd:   start.AddDate(0, 0, 7),
		GeneratedAt: start.Add(time.Hour),
		Entries: []leaderboard.Entry{
			{Position: 1, DisplayName: "Legendary Phoenix", Score: 120, IsSpecial: true, UserID: 42},
			{Position: 2, DisplayName: "Shy Otter #17", Score: 80, UserID: 7},
		},
	}
	require.NoError(t, lc.SetBoard(ctx, board, 10))

	got, err := lc.GetBoard(ctx, leaderboard.TypeWeekly, start, 10)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, int64(42), got.Entries[0].UserID)
	assert.Equal(t, "Shy Otter #17", got.Entries[1].DisplayName)
	assert.True(t, start.Equal(got.WindowStart))

	require.NoError(t, lc.SetStats(ctx, &leaderboard.Stats{Type: leaderboard.TypeWeekly, WindowStart: start, Participants: 2}))

	n, err := lc.Invalidate(ctx, leaderboard.TypeWeekly)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = lc.GetStats(ctx, leaderboard.TypeWeekly, start)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
