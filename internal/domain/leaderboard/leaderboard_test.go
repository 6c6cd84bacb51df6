package leaderboard

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

var wednesday = time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC)

func TestPlan_Windows(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		typ      Type
		metric   Metric
		from, to time.Time
	}{
		{TypeWeekly, MetricPoints, day(6, 16), day(6, 23)},
		{TypeMonthly, MetricPoints, day(6, 1), day(7, 1)},
		{TypeSeasonal, MetricPoints, day(4, 1), day(7, 1)},
		{TypeAllTime, MetricPoints, time.Time{}, time.Time{}},
		{TypeMostImproved, MetricImprovement, day(6, 16), day(6, 23)},
		{TypeMostConsistent, MetricActiveDays, day(5, 20), day(6, 19)},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			q, err := Plan(tt.typ, wednesday, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.metric, q.Metric)
			assert.True(t, tt.from.Equal(q.Window.From), "from %v", q.Window.From)
			assert.True(t, tt.to.Equal(q.Window.To), "to %v", q.Window.To)
		})
	}

	q, err := Plan(TypeMostImproved, wednesday, time.UTC)
	require.NoError(t, err)
	assert.True(t, day(6, 9).Equal(q.Baseline.From))
	assert.True(t, day(6, 16).Equal(q.Baseline.To))
}

func TestPlan_UsesLocation(t *testing.T) {
	loc := time.FixedZone("EAT", 3*3600)
	// воскресенье 22:30 UTC - это уже понедельник в UTC+3
	sunday := time.Date(2025, 6, 22, 22, 30, 0, 0, time.UTC)

	q, err := Plan(TypeWeekly, sunday, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 23, 0, 0, 0, 0, loc).Unix(), q.WindowStart().Unix())
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, err := ParseType(string(typ))
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	_, err := ParseType("daily")
	assert.ErrorIs(t, err, shared.ErrUnknownLeaderboard)

	_, err = Plan("daily", wednesday, time.UTC)
	assert.ErrorIs(t, err, shared.ErrUnknownLeaderboard)
}

func TestOrder_TieBreaks(t *testing.T) {
	early := wednesday.Add(-2 * time.Hour)
	late := wednesday.Add(-time.Hour)

	scores := []Score{
		{UserID: 4, Value: 50, ReachedAt: late},
		{UserID: 3, Value: 50, ReachedAt: early},
		{UserID: 9, Value: 80, ReachedAt: late},
		{UserID: 2, Value: 50, ReachedAt: early},
	}
	Order(scores)

	want := []Score{
		{UserID: 9, Value: 80, ReachedAt: late},
		{UserID: 2, Value: 50, ReachedAt: early},
		{UserID: 3, Value: 50, ReachedAt: early},
		{UserID: 4, Value: 50, ReachedAt: late},
	}
	if diff := cmp.Diff(want, scores); diff != "" {
		t.Errorf("Order() mismatch (-want +got):\n%s", diff)
	}
}

func fakeScores(t *testing.T, n int) []Score {
	t.Helper()
	faker := gofakeit.New(42)

	seen := make(map[int64]bool, n)
	scores := make([]Score, 0, n)
	for len(scores) < n {
		id := int64(faker.Number(1, 1_000_000))
		if seen[id] {
			continue
		}
		seen[id] = true
		scores = append(scores, Score{
			UserID:    id,
			Value:     int64(faker.Number(1, 500)),
			ReachedAt: faker.DateRange(wednesday.AddDate(0, 0, -2), wednesday),
		})
	}
	return scores
}

func TestBuild_PositionsAndSpecialNames(t *testing.T) {
	q, err := Plan(TypeWeekly, wednesday, time.UTC)
	require.NoError(t, err)

	board := Build(q, fakeScores(t, 25), NewAnonymizer(DefaultSpecialSlots), 10, wednesday)
	require.Len(t, board.Entries, 10)

	titles := make(map[string]bool)
	for i, e := range board.Entries {
		assert.Equal(t, Position(i+1), e.Position)
		if i > 0 {
			assert.LessOrEqual(t, e.Score, board.Entries[i-1].Score)
		}

		if e.Position.IsPodium() {
			require.True(t, e.IsSpecial, e.DisplayName)
			title := strings.Fields(e.DisplayName)[0]
			assert.Contains(t, honorifics, title)
			assert.False(t, titles[title], "honorific %s drawn twice", title)
			titles[title] = true
		} else {
			assert.False(t, e.IsSpecial)
			assert.Regexp(t, regexp.MustCompile(`^\w+ \w+ #\d{2}$`), e.DisplayName)
		}
	}
}

func TestBuild_NamesAreDeterministicPerWindow(t *testing.T) {
	scores := fakeScores(t, 40)
	names := NewAnonymizer(DefaultSpecialSlots)

	this, err := Plan(TypeWeekly, wednesday, time.UTC)
	require.NoError(t, err)
	next, err := Plan(TypeWeekly, wednesday.AddDate(0, 0, 7), time.UTC)
	require.NoError(t, err)

	first := Build(this, append([]Score(nil), scores...), names, 0, wednesday)
	second := Build(this, append([]Score(nil), scores...), names, 0, wednesday.Add(time.Hour))
	other := Build(next, append([]Score(nil), scores...), names, 0, wednesday)

	require.Len(t, first.Entries, 40)
	if diff := cmp.Diff(first.Entries, second.Entries); diff != "" {
		t.Errorf("names changed between renders (-first +second):\n%s", diff)
	}

	changed := 0
	for i := range first.Entries {
		if first.Entries[i].DisplayName != other.Entries[i].DisplayName {
			changed++
		}
	}
	assert.Greater(t, changed, 30, "a new window should reshuffle almost every name")
}

func TestSeed(t *testing.T) {
	assert.Equal(t, Seed(7, TypeWeekly, wednesday), Seed(7, TypeWeekly, wednesday))
	assert.NotEqual(t, Seed(7, TypeWeekly, wednesday), Seed(8, TypeWeekly, wednesday))
	assert.NotEqual(t, Seed(7, TypeWeekly, wednesday), Seed(7, TypeMonthly, wednesday))
	assert.NotEqual(t, Seed(7, TypeWeekly, wednesday), Seed(7, TypeWeekly, wednesday.AddDate(0, 0, 7)))

	assert.Equal(t, Name(Seed(7, TypeAllTime, time.Time{})), Name(Seed(7, TypeAllTime, time.Time{})))
}

func TestDraw_PoolExhausted(t *testing.T) {
	draw := NewAnonymizer(99).NewDraw()

	for pos := Position(1); pos <= Position(len(honorifics)); pos++ {
		_, special := draw.Name(pos, uint64(pos))
		assert.True(t, special)
	}
	_, special := draw.Name(Position(len(honorifics)+1), 1)
	assert.False(t, special)

	_, special = NewAnonymizer(0).NewDraw().Name(1, 1)
	assert.False(t, special)
}

func TestSummarize(t *testing.T) {
	q := Query{Type: TypeAllTime}

	empty := Summarize(q, nil)
	assert.Zero(t, empty.Participants)
	assert.Zero(t, empty.MedianScore)

	odd := Summarize(q, []Score{{Value: 10}, {Value: 40}, {Value: 20}})
	assert.Equal(t, 3, odd.Participants)
	assert.Equal(t, int64(70), odd.TotalScore)
	assert.Equal(t, int64(40), odd.TopScore)
	assert.Equal(t, 20.0, odd.MedianScore)
	assert.InDelta(t, 23.33, odd.AverageScore, 0.01)

	even := Summarize(q, []Score{{Value: 10}, {Value: 40}, {Value: 20}, {Value: 30}})
	assert.Equal(t, 25.0, even.MedianScore)
}

func TestBoard_EntryFor(t *testing.T) {
	b := &Board{Entries: []Entry{{Position: 1, UserID: 5}, {Position: 2, UserID: 6}}}
	require.NotNil(t, b.EntryFor(6))
	assert.Equal(t, Position(2), b.EntryFor(6).Position)
	assert.Nil(t, b.EntryFor(7))

	var nilBoard *Board
	assert.True(t, nilBoard.IsEmpty())
}

func TestBoard_Clone(t *testing.T) {
	b := &Board{Type: TypeWeekly, Entries: []Entry{{Position: 1, DisplayName: "Elite Owl #3", UserID: 5}}}

	c := b.Clone()
	require.NotSame(t, b, c)
	assert.True(t, cmp.Equal(b, c))

	c.Entries[0].DisplayName = "changed"
	assert.Equal(t, "Elite Owl #3", b.Entries[0].DisplayName)

	var nilBoard *Board
	assert.Nil(t, nilBoard.Clone())
	assert.NotNil(t, Empty(Query{Type: TypeWeekly}, time.Now()).Clone().Entries)
}
