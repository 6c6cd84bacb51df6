package rank

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

func TestDefault_SevenTiers(t *testing.T) {
	l := Default()
	tiers := l.Tiers()

	require.Len(t, tiers, 7)
	names := make([]string, len(tiers))
	for i, tier := range tiers {
		names[i] = tier.Name
		assert.Equal(t, i+1, tier.Level)
	}
	assert.Equal(t, []string{"Freshman", "Sophomore", "Junior", "Senior", "Graduate", "Master", "Legend"}, names)
	assert.True(t, tiers[6].IsTop())
	assert.True(t, tiers[5].IsSpecial)
	assert.Equal(t, true, tiers[6].Perks["legend_badge"])
}

func TestResolve_Boundaries(t *testing.T) {
	l := Default()

	tests := []struct {
		total int64
		want  string
	}{
		{-500, "freshman"},
		{-1, "freshman"},
		{0, "freshman"},
		{99, "freshman"},
		{100, "sophomore"},
		{249, "sophomore"},
		{250, "junior"},
		{499, "junior"},
		{500, "senior"},
		{999, "senior"},
		{1000, "graduate"},
		{1999, "graduate"},
		{2000, "master"},
		{4999, "master"},
		{5000, "legend"},
		{1 << 40, "legend"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, l.Resolve(tt.total).ID, "total=%d", tt.total)
	}
}

func TestResolve_TotalFunction(t *testing.T) {
	l := Default()
	tiers := l.Tiers()

	for total := int64(0); total <= 6000; total++ {
		matches := 0
		for _, tier := range tiers {
			if tier.Contains(total) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "total=%d", total)
		require.True(t, l.Resolve(total).Contains(total))
	}
}

func TestChanged(t *testing.T) {
	l := Default()
	assert.False(t, l.Changed(0, 50))
	assert.True(t, l.Changed(50, 100))
	assert.False(t, l.Changed(-20, 0))
	assert.True(t, l.Changed(120, 95))
}

func TestState(t *testing.T) {
	l := Default()

	st := l.State(7, 0)
	assert.Equal(t, "freshman", st.Rank.ID)
	require.NotNil(t, st.NextThreshold())
	assert.Equal(t, int64(100), *st.NextThreshold())
	assert.Equal(t, int64(100), st.PointsToNext)
	assert.Equal(t, 0, st.Progress)

	st = l.State(7, 175)
	assert.Equal(t, "sophomore", st.Rank.ID)
	assert.Equal(t, int64(75), st.PointsToNext)
	assert.Equal(t, 50, st.Progress)

	st = l.State(7, -30)
	assert.Equal(t, "freshman", st.Rank.ID)
	assert.Equal(t, int64(130), st.PointsToNext)
	assert.Equal(t, 0, st.Progress)

	st = l.State(1, -10)
	assert.Equal(t, int64(110), st.PointsToNext)
	assert.Equal(t, int64(100), *st.NextThreshold())

	st = l.State(7, 9000)
	assert.Equal(t, "legend", st.Rank.ID)
	assert.Nil(t, st.NextThreshold())
	assert.Zero(t, st.PointsToNext)
	assert.Equal(t, 100, st.Progress)
}

func TestView(t *testing.T) {
	v := Default().View(1, 300)

	current := 0
	for _, s := range v.Steps {
		if s.Current {
			current++
			assert.Equal(t, "junior", s.Definition.ID)
		}
	}
	assert.Equal(t, 1, current)
	assert.True(t, v.Steps[0].Reached)
	assert.True(t, v.Steps[2].Reached)
	assert.False(t, v.Steps[3].Reached)
}

func ptr(v int64) *int64 { return &v }

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		tiers []Definition
	}{
		{"empty", nil},
		{"not starting at zero", []Definition{{ID: "a", MinPoints: 10}}},
		{"gap", []Definition{{ID: "a", MinPoints: 0, MaxPoints: ptr(50)}, {ID: "b", MinPoints: 60}}},
		{"overlap", []Definition{{ID: "a", MinPoints: 0, MaxPoints: ptr(70)}, {ID: "b", MinPoints: 60}}},
		{"closed top", []Definition{{ID: "a", MinPoints: 0, MaxPoints: ptr(9)}, {ID: "b", MinPoints: 10, MaxPoints: ptr(20)}}},
		{"open middle", []Definition{{ID: "a", MinPoints: 0}, {ID: "b", MinPoints: 10}}},
		{"duplicate id", []Definition{{ID: "a", MinPoints: 0, MaxPoints: ptr(9)}, {ID: "a", MinPoints: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tiers)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrRankCatalogInvalid))
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("ranks: [this is: not valid"))
	assert.ErrorIs(t, err, shared.ErrRankCatalogInvalid)
}
