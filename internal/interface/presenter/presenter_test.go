package presenter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aau-confessions/confession-hub/internal/application/command"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
)

func weeklyBoard() *leaderboard.Board {
	start := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	return &leaderboard.Board{
		Type:        leaderboard.TypeWeekly,
		WindowStart: start,
		WindowEnd:   start.AddDate(0, 0, 7),
		Entries: []leaderboard.Entry{
			{Position: 1, DisplayName: "Supreme Phoenix", Score: 120, IsSpecial: true, UserID: 10},
			{Position: 2, DisplayName: "Elite Kraken", Score: 90, IsSpecial: true, UserID: 11},
			{Position: 3, DisplayName: "Master Griffin", Score: 80, IsSpecial: true, UserID: 12},
			{Position: 4, DisplayName: "Quiet <Otter> #42", Score: 30, UserID: 13},
		},
	}
}

func TestLeaderboard(t *testing.T) {
	out := Leaderboard(weeklyBoard(), 13)

	assert.Contains(t, out, "<b>Weekly Leaders</b>")
	assert.Contains(t, out, "Jun 16 – Jun 22")
	assert.Contains(t, out, "🥇 <b>Supreme Phoenix</b> · 120 pts")
	assert.Contains(t, out, "Quiet &lt;Otter&gt; #42 · 30 pts ← <i>you</i>")
	assert.NotContains(t, out, "not on this board")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 7)
}

func TestLeaderboard_ViewerAbsentAndEmpty(t *testing.T) {
	out := Leaderboard(weeklyBoard(), 99)
	assert.Contains(t, out, "not on this board yet")
	assert.NotContains(t, out, "← <i>you</i>")

	empty := Leaderboard(&leaderboard.Board{Type: leaderboard.TypeAllTime}, 0)
	assert.Contains(t, empty, "Hall of Fame")
	assert.Contains(t, empty, "All time")
	assert.Contains(t, empty, "No one here yet")
}

func TestLeaderboard_ConsistencyUnit(t *testing.T) {
	b := &leaderboard.Board{
		Type:    leaderboard.TypeMostConsistent,
		Entries: []leaderboard.Entry{{Position: 1, DisplayName: "Legendary Sphinx", Score: 12, IsSpecial: true}},
	}
	assert.Contains(t, Leaderboard(b, 0), "12 days")
}

func TestRankCard(t *testing.T) {
	ladder := rank.Default()

	card := RankCard(ladder.State(1, 175))
	assert.Contains(t, card, "<b>Sophomore</b>")
	assert.Contains(t, card, "Total: <b>175</b>")
	assert.Contains(t, card, "▰▰▰▰▰▱▱▱▱▱ 50%")
	assert.Contains(t, card, "<b>75</b> points to")

	top := RankCard(ladder.State(1, 9000))
	assert.Contains(t, top, "top rank")
}

func TestLadder(t *testing.T) {
	out := Ladder(rank.Default().View(1, 260))

	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 7)
	// highest tier first
	assert.Contains(t, lines[2], "Legend")
	assert.Contains(t, out, "<b>👉")
	assert.Contains(t, out, "Junior")
	assert.Contains(t, out, "5000+")
	assert.Contains(t, out, "You have <b>260</b> points, 240 to go.")
	assert.Equal(t, 2, strings.Count(out, "✅"))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▱▱▱▱", ProgressBar(-5, 4))
	assert.Equal(t, "▰▰▱▱", ProgressBar(50, 4))
	assert.Equal(t, "▰▰▰▰", ProgressBar(140, 4))
}

func TestAward(t *testing.T) {
	ladder := rank.Default()
	assert.Empty(t, Award(nil))
	assert.Empty(t, Award(&command.AwardPointsResult{Success: true}))

	res := &command.AwardPointsResult{
		Success:      true,
		PointsDelta:  50,
		NewTotal:     115,
		PreviousRank: ladder.Resolve(50),
		Rank:         ladder.Resolve(115),
		RankChanged:  true,
		AchievementsUnlocked: []achievement.Definition{
			{ID: "first_approval", Name: "Approved!", Emoji: "✅", PointsAwarded: 15},
		},
	}
	out := Award(res)
	assert.Contains(t, out, "+50 points · total <b>115</b>")
	assert.Contains(t, out, "Achievement unlocked: ✅ <b>Approved!</b> (+15)")
	assert.Contains(t, out, "Promoted to")

	res.Rank, res.PreviousRank = res.PreviousRank, res.Rank
	res.PointsDelta = -10
	assert.Contains(t, Award(res), "Rank is now")
}

func TestAchievements(t *testing.T) {
	assert.Contains(t, Achievements(nil), "No achievements yet")

	c := achievement.Default()
	out := Achievements(c.ForUser([]achievement.Unlock{{AchievementID: "first_confession", UnlockedAt: time.Now()}}))
	assert.Contains(t, out, "· 1/")
	assert.Contains(t, out, "MILESTONE")
	assert.Contains(t, out, "🔒")
}

func TestPointGuide(t *testing.T) {
	out := PointGuide(points.Table())
	assert.Contains(t, out, "confession approved")
	assert.Contains(t, out, "content reported")
	assert.NotContains(t, out, "achievement unlocked")
	assert.NotContains(t, out, "confession submitted")
}
