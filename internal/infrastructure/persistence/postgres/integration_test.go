//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
)

// botSchema mirrors the content tables owned by the confession bot.
const botSchema = `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY,
    username TEXT,
    join_date TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS posts (
    post_id SERIAL PRIMARY KEY,
    content TEXT,
    category TEXT NOT NULL,
    timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    approved INTEGER DEFAULT NULL,
    likes INTEGER DEFAULT 0
);
CREATE TABLE IF NOT EXISTS comments (
    comment_id SERIAL PRIMARY KEY,
    post_id INTEGER NOT NULL REFERENCES posts(post_id),
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    content TEXT NOT NULL,
    parent_comment_id INTEGER,
    timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS reactions (
    reaction_id SERIAL PRIMARY KEY,
    target_type TEXT NOT NULL,
    target_id INTEGER NOT NULL,
    user_id BIGINT NOT NULL,
    reaction_type TEXT NOT NULL,
    timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (target_type, target_id, user_id)
);
`

var testConn *Connection

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("confessions"),
		tcpostgres.WithUsername("ranking"),
		tcpostgres.WithPassword("ranking"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}

	code := func() int {
		defer func() { _ = testcontainers.TerminateContainer(container) }()

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
			return 1
		}
		testConn, err = NewConnectionFromURL(ctx, dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect: %v\n", err)
			return 1
		}
		defer testConn.Close()

		if _, err := testConn.Exec(ctx, botSchema); err != nil {
			fmt.Fprintf(os.Stderr, "bot schema: %v\n", err)
			return 1
		}
		if err := NewMigrator(testConn).Migrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

// userSeq hands out fresh user ids so tests do not see each other's rows.
var userSeq = struct {
	sync.Mutex
	next int64
}{next: 1000}

func newUser(t *testing.T) int64 {
	t.Helper()
	userSeq.Lock()
	defer userSeq.Unlock()
	userSeq.next++
	return userSeq.next
}

func TestMigrator_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMigrator(testConn)
	require.NoError(t, m.Migrate(ctx))

	status, err := m.Status(ctx)
	require.NoError(t, err)
	for _, mig := range status {
		assert.True(t, mig.IsApplied, mig.Name)
	}
}

func TestConnection_Health(t *testing.T) {
	st, err := testConn.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy)
	assert.NoError(t, st.Err())
	assert.Positive(t, st.MaxConns)
	assert.GreaterOrEqual(t, st.LedgerRows, int64(0))
}

func TestLedger_AppendAndSum(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(testConn)
	user := newUser(t)

	first, err := repo.Append(ctx, ledger.Entry{UserID: user, EventType: "confession_approved", Delta: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(50), first.Total)
	assert.Equal(t, int64(0), first.PreviousTotal())

	second, err := repo.Append(ctx, ledger.Entry{UserID: user, EventType: "content_rejected", Delta: -3})
	require.NoError(t, err)
	assert.Equal(t, int64(47), second.Total)

	total, err := repo.SumFor(ctx, user, ledger.AllTime)
	require.NoError(t, err)
	assert.Equal(t, int64(47), total)

	future, err := repo.SumFor(ctx, user, ledger.Since(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Zero(t, future)

	history, err := repo.History(ctx, user, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, second.Transaction.ID, history[0].ID)
}

func TestLedger_AppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(testConn)
	user := newUser(t)

	r, err := repo.Append(ctx, ledger.Entry{UserID: user, EventType: "daily_login", Delta: 5})
	require.NoError(t, err)

	_, err = testConn.Exec(ctx, `UPDATE point_transactions SET points_delta = 500 WHERE id = $1`, r.Transaction.ID)
	assert.Error(t, err)
	_, err = testConn.Exec(ctx, `DELETE FROM point_transactions WHERE id = $1`, r.Transaction.ID)
	assert.Error(t, err)
}

func TestLedger_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(testConn)
	user := newUser(t)

	const n = 40
	var (
		mu     sync.Mutex
		totals = make(map[int64]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r, err := repo.Append(gctx, ledger.Entry{UserID: user, EventType: "reaction_given", Delta: 1})
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			totals[r.Total] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, totals, n, "every append must observe a distinct running total")
}

func TestAchievements_UnlockOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAchievementRepository(testConn)
	user := newUser(t)
	def, err := achievement.Default().Get("first_comment")
	require.NoError(t, err)

	first, err := repo.Unlock(ctx, user, def)
	require.NoError(t, err)
	assert.True(t, first.Unlocked)
	assert.Equal(t, def.PointsAwarded, first.NewTotal)

	second, err := repo.Unlock(ctx, user, def)
	require.NoError(t, err)
	assert.False(t, second.Unlocked)
	assert.Equal(t, first.NewTotal, second.NewTotal)

	unlocks, err := repo.UnlockedBy(ctx, user)
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, def.ID, unlocks[0].AchievementID)
}

func TestStats_ReadsBotTables(t *testing.T) {
	ctx := context.Background()
	user := newUser(t)
	other := newUser(t)

	_, err := testConn.Exec(ctx, `INSERT INTO users (user_id, join_date) VALUES ($1, NOW() - INTERVAL '40 days'), ($2, NOW())`, user, other)
	require.NoError(t, err)

	var postID int64
	require.NoError(t, testConn.QueryRow(ctx, `
		INSERT INTO posts (content, category, user_id, approved, likes) VALUES ($1, 'Academics', $2, 1, 12)
		RETURNING post_id`, strings.Repeat("a", 600), user).Scan(&postID))
	_, err = testConn.Exec(ctx, `INSERT INTO posts (content, category, user_id, approved, likes) VALUES ('short', 'Love', $1, 1, 3)`, user)
	require.NoError(t, err)
	_, err = testConn.Exec(ctx, `INSERT INTO posts (content, category, user_id, approved) VALUES ('pending', 'Love', $1, NULL)`, user)
	require.NoError(t, err)
	_, err = testConn.Exec(ctx, `INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, 'nice'), ($1, $2, 'again')`, postID, other)
	require.NoError(t, err)
	_, err = testConn.Exec(ctx, `INSERT INTO reactions (target_type, target_id, user_id, reaction_type) VALUES ('post', $1, $2, 'like')`, postID, user)
	require.NoError(t, err)

	_, err = NewLedgerRepository(testConn).Append(ctx, ledger.Entry{UserID: user, EventType: string(points.EventDailyLogin), Delta: 5})
	require.NoError(t, err)

	st, err := NewStatsRepository(testConn, time.UTC).UserStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.ConfessionsSubmitted)
	assert.Equal(t, int64(2), st.ConfessionsApproved)
	assert.Equal(t, int64(1), st.LongConfessions)
	assert.Equal(t, int64(15), st.LikesReceived)
	assert.Equal(t, int64(12), st.MaxLikesSingle)
	assert.Equal(t, int64(2), st.DistinctCategories)
	assert.Equal(t, int64(2), st.CommentsReceived)
	assert.Equal(t, int64(1), st.ReactionsGiven)
	assert.Equal(t, int64(40), st.AccountAgeDays)
	assert.Equal(t, int64(1), st.DailyLogins)
	assert.Equal(t, int64(5), st.TotalPoints)
	assert.Equal(t, int64(1), st.CurrentStreak)
}

func TestLeaderboard_Scores(t *testing.T) {
	ctx := context.Background()
	ledgerRepo := NewLedgerRepository(testConn)
	source := NewLeaderboardRepository(testConn)

	a, b := newUser(t), newUser(t)
	_, err := ledgerRepo.Append(ctx, ledger.Entry{UserID: a, EventType: "confession_approved", Delta: 900000})
	require.NoError(t, err)
	_, err = ledgerRepo.Append(ctx, ledger.Entry{UserID: b, EventType: "confession_approved", Delta: 900000})
	require.NoError(t, err)

	q, err := leaderboard.Plan(leaderboard.TypeAllTime, time.Now(), time.UTC)
	require.NoError(t, err)
	q.Limit = 2

	scores, err := source.Scores(ctx, q)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	// equal scores: the earlier achiever ranks first
	assert.Equal(t, a, scores[0].UserID)
	assert.Equal(t, b, scores[1].UserID)

	for _, typ := range leaderboard.Types() {
		q, err := leaderboard.Plan(typ, time.Now(), time.UTC)
		require.NoError(t, err)
		_, err = source.Scores(ctx, q)
		assert.NoError(t, err, typ)
	}
}
