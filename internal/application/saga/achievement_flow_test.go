package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
	"github.com/aau-confessions/confession-hub/internal/infrastructure/persistence/memory"
)

func newSaga(t *testing.T) (*AchievementFlowSaga, *memory.Store) {
	t.Helper()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	s := NewAchievementFlowSaga(achievement.Default(), rank.Default(), store, store, nil)
	return s, store
}

// busyWriter qualifies for twelve achievements in one snapshot.
var busyWriter = achievement.Activity{
	ConfessionsSubmitted: 1,
	ConfessionsApproved:  5,
	CommentsPosted:       10,
	LikesReceived:        10,
	ReactionsGiven:       50,
	RepliesPosted:        25,
	DistinctCategories:   3,
	HolidayPosts:         1,
	NightPosts:           5,
	EarlyPosts:           5,
}

func ids(unlocked []UnlockedAchievement) []string {
	out := make([]string, len(unlocked))
	for i, u := range unlocked {
		out[i] = u.Definition.ID
	}
	return out
}

func TestEvaluateAll_NothingToUnlock(t *testing.T) {
	s, _ := newSaga(t)

	res, err := s.EvaluateAll(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, res.Unlocked)
	assert.Equal(t, 1, res.Rounds)

	_, ok := res.FinalTotal()
	assert.False(t, ok)
}

func TestEvaluateAll_ReachesFixpoint(t *testing.T) {
	s, store := newSaga(t)
	ctx := context.Background()
	store.SetActivity(7, busyWriter)

	res, err := s.EvaluateAll(ctx, 7)
	require.NoError(t, err)

	got := ids(res.Unlocked)
	require.Len(t, got, 13)
	// collector depends on the twelve unlocks of the first round
	assert.Equal(t, "collector", got[len(got)-1])
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, int64(450), res.RewardPoints())

	final, ok := res.FinalTotal()
	require.True(t, ok)
	assert.Equal(t, int64(450), final)

	total, err := store.SumFor(ctx, 7, ledger.AllTime)
	require.NoError(t, err)
	assert.Equal(t, final, total)
}

func TestEvaluateAll_Idempotent(t *testing.T) {
	s, store := newSaga(t)
	ctx := context.Background()
	store.SetActivity(7, busyWriter)

	_, err := s.EvaluateAll(ctx, 7)
	require.NoError(t, err)
	before, err := store.SumFor(ctx, 7, ledger.AllTime)
	require.NoError(t, err)

	again, err := s.EvaluateAll(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, again.Unlocked)

	after, err := store.SumFor(ctx, 7, ledger.AllTime)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	unlocks, err := store.UnlockedBy(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, unlocks, 13)
}

func TestEvaluateAll_RewardsCrossPointThreshold(t *testing.T) {
	s, store := newSaga(t)
	ctx := context.Background()

	_, err := store.Append(ctx, ledger.Entry{UserID: 9, EventType: "confession_featured", Delta: 480})
	require.NoError(t, err)

	res, err := s.EvaluateAll(ctx, 9)
	require.NoError(t, err)

	// featured_author (+50) lifts the total to 530, which then qualifies point_collector
	assert.Equal(t, []string{"featured_author", "point_collector"}, ids(res.Unlocked))
	final, _ := res.FinalTotal()
	assert.Equal(t, int64(580), final)
}

func TestEvaluateAll_StorageFailure(t *testing.T) {
	s, store := newSaga(t)
	ctx := context.Background()
	store.SetActivity(7, busyWriter)
	store.FailOn(memory.OpUnlock, errors.New("connection reset"))

	res, err := s.EvaluateAll(ctx, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	assert.Empty(t, res.Unlocked)

	total, err := store.SumFor(ctx, 7, ledger.AllTime)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEvaluateAll_InvalidUser(t *testing.T) {
	s, _ := newSaga(t)
	_, err := s.EvaluateAll(context.Background(), 0)
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

func TestCheckQualification(t *testing.T) {
	s, store := newSaga(t)
	ctx := context.Background()

	ok, err := s.CheckQualification(ctx, 7, "first_confession")
	require.NoError(t, err)
	assert.False(t, ok)

	store.SetActivity(7, achievement.Activity{ConfessionsSubmitted: 1})
	ok, err = s.CheckQualification(ctx, 7, "first_confession")
	require.NoError(t, err)
	assert.True(t, ok)

	// checking never unlocks
	unlocks, err := store.UnlockedBy(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, unlocks)

	_, err = s.CheckQualification(ctx, 7, "does_not_exist")
	assert.True(t, shared.IsNotFound(err))
}

func TestCheckQualification_RankLevel(t *testing.T) {
	s, store := newSaga(t)
	ctx := context.Background()

	_, err := store.Append(ctx, ledger.Entry{UserID: 3, EventType: "confession_approved", Delta: 5000})
	require.NoError(t, err)

	ok, err := s.CheckQualification(ctx, 3, "legend_status")
	require.NoError(t, err)
	assert.True(t, ok)
}
