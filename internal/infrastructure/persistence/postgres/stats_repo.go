package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// StatsRepository implements achievement.StatsProvider.
//
// Content aggregates are read from the bot tables (users, posts, comments,
// reactions), which this service never writes. Ledger-backed fields come
// from point_transactions and user_achievements. Both reads share one
// repeatable-read snapshot.
type StatsRepository struct {
	conn *Connection
	loc  *time.Location
	now  func() time.Time
}

// NewStatsRepository creates a stats provider. Local hours, weekdays and
// streak days are computed in loc.
func NewStatsRepository(conn *Connection, loc *time.Location) *StatsRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsRepository{conn: conn, loc: loc, now: time.Now}
}

const activityQuery = `
WITH p AS (
    SELECT content, category, likes, approved,
           (timestamp AT TIME ZONE $2) AS local_ts
    FROM posts
    WHERE user_id = $1
)
SELECT
    (SELECT COUNT(*) FROM p),
    (SELECT COUNT(*) FROM p WHERE approved = 1),
    (SELECT COUNT(*) FROM p WHERE approved = 1 AND LENGTH(COALESCE(content, '')) >= $3),
    (SELECT COALESCE(SUM(likes), 0) FROM p WHERE approved = 1),
    (SELECT COALESCE(MAX(likes), 0) FROM p WHERE approved = 1),
    (SELECT COUNT(DISTINCT category) FROM p WHERE approved = 1),
    (SELECT COUNT(*) FROM p WHERE EXTRACT(HOUR FROM local_ts) < 5),
    (SELECT COUNT(*) FROM p WHERE EXTRACT(HOUR FROM local_ts) >= 5 AND EXTRACT(HOUR FROM local_ts) < 7),
    (SELECT COUNT(*) FROM p WHERE EXTRACT(ISODOW FROM local_ts) >= 6),
    (SELECT COUNT(*) FROM p WHERE TO_CHAR(local_ts, 'MM-DD') IN ('01-01', '02-14', '10-31', '12-25')),
    (SELECT COUNT(DISTINCT TO_CHAR(local_ts, 'YYYY-Q')) FROM p WHERE local_ts IS NOT NULL),
    (SELECT COUNT(*) FROM comments WHERE user_id = $1),
    (SELECT COUNT(*) FROM comments WHERE user_id = $1 AND parent_comment_id IS NOT NULL),
    (SELECT COUNT(DISTINCT post_id) FROM comments WHERE user_id = $1),
    (SELECT COUNT(*) FROM comments c JOIN posts op ON op.post_id = c.post_id
        WHERE op.user_id = $1 AND c.user_id <> $1),
    (SELECT COUNT(*) FROM reactions WHERE user_id = $1),
    COALESCE((SELECT EXTRACT(DAY FROM NOW() - join_date)::bigint FROM users WHERE user_id = $1), 0)
`

const ledgerStatsQuery = `
SELECT
    COALESCE(SUM(points_delta), 0)::bigint,
    COUNT(*) FILTER (WHERE event_type = $2),
    COUNT(*) FILTER (WHERE event_type = $3),
    COUNT(*) FILTER (WHERE event_type = $4),
    (SELECT COUNT(*) FROM user_achievements WHERE user_id = $1)
FROM point_transactions
WHERE user_id = $1
`

const activeDaysQuery = `
SELECT DISTINCT (created_at AT TIME ZONE $2)::date
FROM point_transactions
WHERE user_id = $1 AND event_type <> $3
`

// UserStats implements achievement.StatsProvider. RankLevel is left for
// the caller, which owns the rank ladder.
func (r *StatsRepository) UserStats(ctx context.Context, userID int64) (*achievement.Stats, error) {
	st := &achievement.Stats{UserID: userID}
	tz := pgTimezone(r.loc)

	err := r.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		a := &st.Activity
		if err := tx.QueryRow(ctx, activityQuery, userID, tz, achievement.LongConfessionLength).Scan(
			&a.ConfessionsSubmitted, &a.ConfessionsApproved, &a.LongConfessions,
			&a.LikesReceived, &a.MaxLikesSingle, &a.DistinctCategories,
			&a.NightPosts, &a.EarlyPosts, &a.WeekendPosts, &a.HolidayPosts, &a.ActiveSeasons,
			&a.CommentsPosted, &a.RepliesPosted, &a.PostsCommented, &a.CommentsReceived,
			&a.ReactionsGiven, &a.AccountAgeDays,
		); err != nil {
			return fmt.Errorf("activity aggregates: %w", err)
		}

		if err := tx.QueryRow(ctx, ledgerStatsQuery, userID,
			string(points.EventConfessionFeatured),
			string(points.EventDailyLogin),
			string(points.EventWeeklyActive),
		).Scan(
			&st.TotalPoints, &st.ConfessionsFeatured, &st.DailyLogins, &st.WeeklyActive,
			&st.AchievementsUnlocked,
		); err != nil {
			return fmt.Errorf("ledger aggregates: %w", err)
		}

		rows, err := tx.Query(ctx, activeDaysQuery, userID, tz, string(points.EventAchievementUnlocked))
		if err != nil {
			return fmt.Errorf("active days: %w", err)
		}
		dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
		if err != nil {
			return fmt.Errorf("active days: %w", err)
		}

		days := make([]time.Time, len(dates))
		for i, d := range dates {
			days[i] = time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, r.loc)
		}
		st.CurrentStreak, st.BestStreak = achievement.Streaks(days, r.now(), r.loc)
		return nil
	})
	if err != nil {
		return nil, shared.StorageError("UserStats", err)
	}
	return st, nil
}

// pgTimezone returns a zone name PostgreSQL understands.
func pgTimezone(loc *time.Location) string {
	if loc == nil || loc == time.Local {
		return "UTC"
	}
	return loc.String()
}

var _ achievement.StatsProvider = (*StatsRepository)(nil)
