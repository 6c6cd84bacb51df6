package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// LeaderboardRepository implements leaderboard.Source over point_transactions.
// Each metric is a single statement, so one render reads one snapshot.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a leaderboard source.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

const pointsScoresQuery = `
SELECT user_id, SUM(points_delta)::bigint AS score, MAX(created_at) AS reached_at
FROM point_transactions
WHERE ($1::timestamptz IS NULL OR created_at >= $1)
  AND ($2::timestamptz IS NULL OR created_at < $2)
GROUP BY user_id
HAVING SUM(points_delta) > 0
ORDER BY score DESC, reached_at ASC, user_id ASC
LIMIT $3::bigint
`

const improvementScoresQuery = `
SELECT user_id, score, reached_at FROM (
    SELECT user_id,
           (COALESCE(SUM(points_delta) FILTER (WHERE created_at >= $1 AND created_at < $2), 0)
            - COALESCE(SUM(points_delta) FILTER (WHERE created_at >= $3 AND created_at < $4), 0))::bigint AS score,
           MAX(created_at) FILTER (WHERE created_at >= $1 AND created_at < $2) AS reached_at
    FROM point_transactions
    WHERE created_at >= LEAST($1::timestamptz, $3::timestamptz)
      AND created_at < GREATEST($2::timestamptz, $4::timestamptz)
    GROUP BY user_id
) s
WHERE score > 0 AND reached_at IS NOT NULL
ORDER BY score DESC, reached_at ASC, user_id ASC
LIMIT $5::bigint
`

const activeDaysScoresQuery = `
SELECT user_id,
       COUNT(DISTINCT (created_at AT TIME ZONE $3)::date)::bigint AS score,
       MAX(created_at) AS reached_at
FROM point_transactions
WHERE created_at >= $1 AND created_at < $2 AND event_type <> $4
GROUP BY user_id
ORDER BY score DESC, reached_at ASC, user_id ASC
LIMIT $5::bigint
`

// Scores implements leaderboard.Source.
func (r *LeaderboardRepository) Scores(ctx context.Context, q leaderboard.Query) ([]leaderboard.Score, error) {
	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}

	var (
		rows pgx.Rows
		err  error
	)
	switch q.Metric {
	case leaderboard.MetricPoints:
		rows, err = r.conn.Query(ctx, pointsScoresQuery, bound(q.Window.From), bound(q.Window.To), limit)
	case leaderboard.MetricImprovement:
		rows, err = r.conn.Query(ctx, improvementScoresQuery,
			q.Window.From, q.Window.To, q.Baseline.From, q.Baseline.To, limit)
	case leaderboard.MetricActiveDays:
		rows, err = r.conn.Query(ctx, activeDaysScoresQuery,
			q.Window.From, q.Window.To, pgTimezone(q.Location),
			string(points.EventAchievementUnlocked), limit)
	default:
		return nil, fmt.Errorf("postgres: unsupported leaderboard metric %d", q.Metric)
	}
	if err != nil {
		return nil, shared.StorageError("Scores", err)
	}

	scores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (leaderboard.Score, error) {
		var s leaderboard.Score
		err := row.Scan(&s.UserID, &s.Value, &s.ReachedAt)
		return s, err
	})
	if err != nil {
		return nil, shared.StorageError("Scores", err)
	}
	return scores, nil
}

var _ leaderboard.Source = (*LeaderboardRepository)(nil)
