package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
)

type fakeRenderer struct {
	boards   []leaderboard.Type
	stats    []leaderboard.Type
	failType leaderboard.Type
}

func (f *fakeRenderer) GetLeaderboard(_ context.Context, t leaderboard.Type, _ int) (*leaderboard.Board, error) {
	if t == f.failType {
		return nil, errors.New("render failed")
	}
	f.boards = append(f.boards, t)
	return &leaderboard.Board{Type: t}, nil
}

func (f *fakeRenderer) GetLeaderboardStats(_ context.Context, t leaderboard.Type) (*leaderboard.Stats, error) {
	f.stats = append(f.stats, t)
	return &leaderboard.Stats{Type: t}, nil
}

type fakeInvalidator struct {
	types []leaderboard.Type
	err   error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, types ...leaderboard.Type) (int, error) {
	f.types = append(f.types, types...)
	return len(types), f.err
}

func TestRefreshLeaderboardsJob_RefreshesEveryType(t *testing.T) {
	renderer := &fakeRenderer{}
	cache := &fakeInvalidator{}
	job := NewRefreshLeaderboardsJob(renderer, cache, nil, RefreshLeaderboardsConfig{})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "refresh_leaderboards", job.Name())
	assert.Equal(t, leaderboard.Types(), cache.types)
	assert.Equal(t, leaderboard.Types(), renderer.boards)
	assert.Equal(t, leaderboard.Types(), renderer.stats)
}

func TestRefreshLeaderboardsJob_KeepsGoingOnFailure(t *testing.T) {
	renderer := &fakeRenderer{failType: leaderboard.TypeMonthly}
	cache := &fakeInvalidator{err: errors.New("redis down")}
	job := NewRefreshLeaderboardsJob(renderer, cache, nil, RefreshLeaderboardsConfig{
		Types: []leaderboard.Type{leaderboard.TypeWeekly, leaderboard.TypeMonthly, leaderboard.TypeAllTime},
	})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalidate: redis down")
	assert.ErrorContains(t, err, "render monthly")
	assert.Equal(t, []leaderboard.Type{leaderboard.TypeWeekly, leaderboard.TypeAllTime}, renderer.boards)
}

func TestRefreshLeaderboardsJob_NoCache(t *testing.T) {
	renderer := &fakeRenderer{}
	job := NewRefreshLeaderboardsJob(renderer, nil, nil, DefaultRefreshLeaderboardsConfig())
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, renderer.boards, len(leaderboard.Types()))
}
