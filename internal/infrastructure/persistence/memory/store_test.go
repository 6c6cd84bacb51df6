package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newStore(t *testing.T, start time.Time) (*Store, *clock) {
	t.Helper()
	c := &clock{now: start}
	return NewStore(WithClock(c.Now), WithLocation(time.UTC)), c
}

var monday = time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)

func TestStore_LedgerTotalEquivalence(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, monday)
	faker := gofakeit.New(7)

	want := make(map[int64]int64)
	for i := 0; i < 500; i++ {
		user := int64(faker.Number(1, 20))
		delta := int64(faker.Number(-10, 80))
		_, err := s.Append(ctx, ledger.Entry{UserID: user, EventType: "confession_liked", Delta: delta})
		require.NoError(t, err)
		want[user] += delta
	}

	for user, total := range want {
		got, err := s.SumFor(ctx, user, ledger.AllTime)
		require.NoError(t, err)
		assert.Equal(t, total, got, "user %d", user)

		history, err := s.History(ctx, user, 0)
		require.NoError(t, err)
		var replay int64
		for _, tx := range history {
			replay += tx.Delta
		}
		assert.Equal(t, total, replay)
	}
}

func TestStore_ConcurrentAppendsSerialize(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, monday)

	const n = 200
	totals := make(chan int64, n)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r, err := s.Append(ctx, ledger.Entry{UserID: 1, EventType: "reaction_given", Delta: 1})
			if err != nil {
				return err
			}
			totals <- r.Total
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(totals)

	seen := make(map[int64]bool, n)
	for total := range totals {
		assert.False(t, seen[total], "two appends observed total %d", total)
		seen[total] = true
	}
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "no append observed total %d", i)
	}
}

func TestStore_AppendRejectsBadUser(t *testing.T) {
	s, _ := newStore(t, monday)
	_, err := s.Append(context.Background(), ledger.Entry{UserID: 0, Delta: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

func TestStore_HistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, monday)

	for i := 1; i <= 5; i++ {
		c.Set(monday.Add(time.Duration(i) * time.Minute))
		_, err := s.Append(ctx, ledger.Entry{UserID: 3, EventType: "comment_posted", Delta: int64(i)})
		require.NoError(t, err)
	}

	history, err := s.History(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(5), history[0].Delta)
	assert.Equal(t, int64(4), history[1].Delta)
}

func TestStore_SumForWindow(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, monday.AddDate(0, 0, -7))

	_, err := s.Append(ctx, ledger.Entry{UserID: 1, Delta: 30})
	require.NoError(t, err)
	c.Set(monday)
	_, err = s.Append(ctx, ledger.Entry{UserID: 1, Delta: 12})
	require.NoError(t, err)

	week, err := s.SumFor(ctx, 1, ledger.Since(monday))
	require.NoError(t, err)
	assert.Equal(t, int64(12), week)

	all, err := s.SumFor(ctx, 1, ledger.AllTime)
	require.NoError(t, err)
	assert.Equal(t, int64(42), all)
}

func TestStore_UnlockIsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, monday)
	def, err := achievement.Default().Get("first_confession")
	require.NoError(t, err)

	first, err := s.Unlock(ctx, 9, def)
	require.NoError(t, err)
	assert.True(t, first.Unlocked)
	assert.Equal(t, def.PointsAwarded, first.NewTotal)

	second, err := s.Unlock(ctx, 9, def)
	require.NoError(t, err)
	assert.False(t, second.Unlocked)
	assert.Equal(t, first.NewTotal, second.NewTotal)

	unlocks, err := s.UnlockedBy(ctx, 9)
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, def.ID, unlocks[0].AchievementID)

	history, err := s.History(ctx, 9, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(points.EventAchievementUnlocked), history[0].EventType)
	assert.Equal(t, def.ID, history[0].Reason)
}

func TestStore_UserStats(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, monday)

	s.SetActivity(4, achievement.Activity{ConfessionsSubmitted: 3, LikesReceived: 20})
	for d := 0; d < 3; d++ {
		c.Set(monday.AddDate(0, 0, d))
		_, err := s.Append(ctx, ledger.Entry{UserID: 4, EventType: string(points.EventDailyLogin), Delta: 5})
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, ledger.Entry{UserID: 4, EventType: string(points.EventConfessionFeatured), Delta: 75})
	require.NoError(t, err)

	st, err := s.UserStats(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.ConfessionsSubmitted)
	assert.Equal(t, int64(20), st.LikesReceived)
	assert.Equal(t, int64(3), st.DailyLogins)
	assert.Equal(t, int64(1), st.ConfessionsFeatured)
	assert.Equal(t, int64(90), st.TotalPoints)
	assert.Equal(t, int64(3), st.CurrentStreak)
	assert.Equal(t, int64(3), st.BestStreak)
}

func TestStore_Scores(t *testing.T) {
	ctx := context.Background()
	s, c := newStore(t, monday.AddDate(0, 0, -7))

	// last week
	_, _ = s.Append(ctx, ledger.Entry{UserID: 1, Delta: 100})
	_, _ = s.Append(ctx, ledger.Entry{UserID: 2, Delta: 10})

	// this week
	c.Set(monday.Add(time.Hour))
	_, _ = s.Append(ctx, ledger.Entry{UserID: 1, Delta: 40})
	_, _ = s.Append(ctx, ledger.Entry{UserID: 2, Delta: 40})
	c.Set(monday.AddDate(0, 0, 1))
	_, _ = s.Append(ctx, ledger.Entry{UserID: 3, Delta: 40})
	_, _ = s.Append(ctx, ledger.Entry{UserID: 2, Delta: -3})

	now := monday.AddDate(0, 0, 2)

	weekly, err := leaderboard.Plan(leaderboard.TypeWeekly, now, time.UTC)
	require.NoError(t, err)
	scores, err := s.Scores(ctx, weekly)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, []int64{1, 3, 2}, userIDs(scores))

	improved, err := leaderboard.Plan(leaderboard.TypeMostImproved, now, time.UTC)
	require.NoError(t, err)
	scores, err = s.Scores(ctx, improved)
	require.NoError(t, err)
	// user 1 dropped from 100 to 40 and is not listed
	assert.Equal(t, []int64{3, 2}, userIDs(scores))
	assert.Equal(t, int64(27), scores[1].Value)

	consistent, err := leaderboard.Plan(leaderboard.TypeMostConsistent, now, time.UTC)
	require.NoError(t, err)
	scores, err = s.Scores(ctx, consistent)
	require.NoError(t, err)
	require.NotEmpty(t, scores)
	assert.Equal(t, int64(2), scores[0].UserID)
	assert.Equal(t, int64(3), scores[0].Value)

	weekly.Limit = 1
	scores, err = s.Scores(ctx, weekly)
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestStore_FailOn(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, monday)
	boom := errors.New("disk on fire")

	s.FailOn(OpAppend, boom)
	_, err := s.Append(ctx, ledger.Entry{UserID: 1, Delta: 5})
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	assert.ErrorIs(t, err, boom)

	total, err := s.SumFor(ctx, 1, ledger.AllTime)
	require.NoError(t, err)
	assert.Zero(t, total, "failed append must leave no trace")

	s.FailOn(OpAppend, nil)
	_, err = s.Append(ctx, ledger.Entry{UserID: 1, Delta: 5})
	assert.NoError(t, err)
}

func userIDs(scores []leaderboard.Score) []int64 {
	out := make([]int64, len(scores))
	for i, sc := range scores {
		out[i] = sc.UserID
	}
	return out
}
