// Package presenter formats ranking data for Telegram display.
// All output uses Telegram's HTML parse mode; user-controlled text is escaped.
package presenter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aau-confessions/confession-hub/internal/application/command"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
)

// ParseMode - режим разметки всех сообщений пакета.
const ParseMode = "HTML"

const progressBarWidth = 10

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// boardEmoji - эмодзи заголовка для каждого вида доски.
var boardEmoji = map[leaderboard.Type]string{
	leaderboard.TypeWeekly:         "📅",
	leaderboard.TypeMonthly:        "🗓",
	leaderboard.TypeSeasonal:       "🍂",
	leaderboard.TypeAllTime:        "🏛",
	leaderboard.TypeMostImproved:   "📈",
	leaderboard.TypeMostConsistent: "🔥",
}

// scoreUnit - в чём измеряется очко доски.
func scoreUnit(t leaderboard.Type) string {
	if t == leaderboard.TypeMostConsistent {
		return "days"
	}
	return "pts"
}

// Leaderboard форматирует доску. viewerID > 0 помечает строку зрителя;
// сам идентификатор никогда не выводится.
func Leaderboard(board *leaderboard.Board, viewerID int64) string {
	var sb strings.Builder

	emoji := boardEmoji[board.Type]
	if emoji == "" {
		emoji = "🏆"
	}
	fmt.Fprintf(&sb, "%s <b>%s</b>\n", emoji, html.EscapeString(board.Type.Title()))
	if period := formatPeriod(board.WindowStart, board.WindowEnd); period != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", period)
	}
	sb.WriteString("\n")

	if board.IsEmpty() {
		sb.WriteString("📭 <i>No one here yet. Be the first!</i>\n")
		return sb.String()
	}

	unit := scoreUnit(board.Type)
	for _, e := range board.Entries {
		sb.WriteString(formatPosition(e.Position))
		sb.WriteString(" ")

		name := html.EscapeString(e.DisplayName)
		if e.IsSpecial {
			name = "<b>" + name + "</b>"
		}
		sb.WriteString(name)
		fmt.Fprintf(&sb, " · %d %s", e.Score, unit)

		if viewerID > 0 && e.UserID == viewerID {
			sb.WriteString(" ← <i>you</i>")
		}
		sb.WriteString("\n")
	}

	if viewerID > 0 && board.EntryFor(viewerID) == nil {
		sb.WriteString("\n<i>You're not on this board yet. Keep going!</i>\n")
	}
	return sb.String()
}

// LeaderboardStats форматирует сводку доски.
func LeaderboardStats(st *leaderboard.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>%s · stats</b>\n\n", html.EscapeString(st.Type.Title()))
	fmt.Fprintf(&sb, "Participants: <b>%d</b>\n", st.Participants)
	if st.Participants == 0 {
		return sb.String()
	}
	unit := scoreUnit(st.Type)
	fmt.Fprintf(&sb, "Top score: <b>%d %s</b>\n", st.TopScore, unit)
	fmt.Fprintf(&sb, "Average: %.1f %s\n", st.AverageScore, unit)
	fmt.Fprintf(&sb, "Median: %.1f %s\n", st.MedianScore, unit)
	return sb.String()
}

func formatPosition(p leaderboard.Position) string {
	if m := p.Medal(); m != "" {
		return m
	}
	return fmt.Sprintf("<code>%2d.</code>", int(p))
}

func formatPeriod(from, to time.Time) string {
	switch {
	case from.IsZero() && to.IsZero():
		return "All time"
	case to.IsZero():
		return "Since " + from.Format("Jan 2")
	default:
		// окно полуоткрытое: последний день - to минус сутки
		return from.Format("Jan 2") + " – " + to.AddDate(0, 0, -1).Format("Jan 2")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK CARD & LADDER
// ══════════════════════════════════════════════════════════════════════════════

// RankCard форматирует карточку ранга пользователя.
func RankCard(st rank.State) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s <b>%s</b>\n", st.Rank.Emoji, html.EscapeString(st.Rank.Name))
	fmt.Fprintf(&sb, "Total: <b>%d</b> points\n\n", st.TotalPoints)

	if st.NextRank == nil {
		sb.WriteString("🌟 <i>You've reached the top rank!</i>\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "%s %d%%\n", ProgressBar(st.Progress, progressBarWidth), st.Progress)
	fmt.Fprintf(&sb, "<b>%d</b> points to %s %s\n",
		st.PointsToNext, st.NextRank.Emoji, html.EscapeString(st.NextRank.Name))
	return sb.String()
}

// Ladder форматирует всю лестницу рангов с позицией пользователя.
func Ladder(view rank.View) string {
	var sb strings.Builder
	sb.WriteString("🪜 <b>Rank ladder</b>\n\n")

	for i := len(view.Steps) - 1; i >= 0; i-- {
		step := view.Steps[i]
		d := step.Definition

		marker := "▫️"
		switch {
		case step.Current:
			marker = "👉"
		case step.Reached:
			marker = "✅"
		}

		line := fmt.Sprintf("%s %s %s · %s", marker, d.Emoji, html.EscapeString(d.Name), tierRange(d))
		if step.Current {
			line = "<b>" + line + "</b>"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	st := view.State
	fmt.Fprintf(&sb, "\nYou have <b>%d</b> points", st.TotalPoints)
	if st.NextRank != nil {
		fmt.Fprintf(&sb, ", %d to go", st.PointsToNext)
	}
	sb.WriteString(".\n")
	return sb.String()
}

func tierRange(d rank.Definition) string {
	if d.MaxPoints == nil {
		return fmt.Sprintf("%d+", d.MinPoints)
	}
	return fmt.Sprintf("%d–%d", d.MinPoints, *d.MaxPoints)
}

// ProgressBar рисует полосу из width клеток для процента 0..100.
func ProgressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARDS & ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Award форматирует уведомление о начислении. Пустая строка означает,
// что сообщать нечего.
func Award(res *command.AwardPointsResult) string {
	if res == nil || (res.PointsDelta == 0 && len(res.AchievementsUnlocked) == 0 && !res.RankChanged) {
		return ""
	}

	var sb strings.Builder
	if res.PointsDelta != 0 {
		fmt.Fprintf(&sb, "%+d points · total <b>%d</b>\n", res.PointsDelta, res.NewTotal)
	}

	for _, def := range res.AchievementsUnlocked {
		fmt.Fprintf(&sb, "🏅 Achievement unlocked: %s <b>%s</b> (+%d)\n",
			def.Emoji, html.EscapeString(def.Name), def.PointsAwarded)
	}

	if res.RankChanged {
		if res.Rank.Level > res.PreviousRank.Level {
			fmt.Fprintf(&sb, "🎉 Promoted to %s <b>%s</b>!\n", res.Rank.Emoji, html.EscapeString(res.Rank.Name))
		} else {
			fmt.Fprintf(&sb, "Rank is now %s <b>%s</b>.\n", res.Rank.Emoji, html.EscapeString(res.Rank.Name))
		}
	}
	return sb.String()
}

// Achievements форматирует каталог пользователя по категориям.
func Achievements(progress []achievement.Progress) string {
	if len(progress) == 0 {
		return "🏅 <i>No achievements yet.</i>\n"
	}

	unlocked := 0
	byCategory := make(map[achievement.Category][]achievement.Progress)
	for _, p := range progress {
		if p.Unlocked {
			unlocked++
		}
		byCategory[p.Definition.Category] = append(byCategory[p.Definition.Category], p)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏅 <b>Achievements</b> · %d/%d\n", unlocked, len(progress))
	for _, cat := range achievement.Categories() {
		items := byCategory[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n<b>%s</b>\n", strings.ToUpper(string(cat)))
		for _, p := range items {
			mark := "🔒"
			if p.Unlocked {
				mark = p.Definition.Emoji
			}
			fmt.Fprintf(&sb, "%s %s <i>%s</i>\n",
				mark, html.EscapeString(p.Definition.Name), html.EscapeString(p.Definition.Description))
		}
	}
	return sb.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// HOW TO EARN POINTS
// ══════════════════════════════════════════════════════════════════════════════

// PointGuide форматирует таблицу базовых очков. Служебные события без
// собственных очков не выводятся.
func PointGuide(table []points.TableEntry) string {
	var sb strings.Builder
	sb.WriteString("💡 <b>How to earn points</b>\n\n")
	for _, e := range table {
		if e.Points == 0 {
			continue
		}
		label := strings.ReplaceAll(string(e.Event), "_", " ")
		fmt.Fprintf(&sb, "<code>%+4d</code> %s\n", e.Points, label)
	}
	sb.WriteString("\n<i>Approved confessions earn more for length and quality; streaks and popular posts multiply.</i>\n")
	return sb.String()
}
