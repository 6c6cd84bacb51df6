// Package memory provides in-process implementations of the ranking
// repositories. It backs the CLI --memory mode and the application tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
	"github.com/aau-confessions/confession-hub/pkg/timeutil"
)

// Op names a store operation for failure injection.
type Op string

const (
	OpAppend  Op = "append"
	OpSum     Op = "sum"
	OpHistory Op = "history"
	OpUnlock  Op = "unlock"
	OpUnlocks Op = "unlocked_by"
	OpStats   Op = "stats"
	OpScores  Op = "scores"
)

// Store keeps the ledger, unlock records and external activity aggregates
// in memory. A single RWMutex guards everything, so every read is one
// consistent pass and every write is serialized.
type Store struct {
	mu       sync.RWMutex
	txs      map[int64][]ledger.Transaction
	unlocks  map[int64]map[string]achievement.Unlock
	activity map[int64]achievement.Activity
	failures map[Op]error

	now func() time.Time
	loc *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the timezone used for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		txs:      make(map[int64][]ledger.Transaction),
		unlocks:  make(map[int64]map[string]achievement.Unlock),
		activity: make(map[int64]achievement.Activity),
		failures: make(map[Op]error),
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetActivity replaces the external content aggregates for a user.
func (s *Store) SetActivity(userID int64, a achievement.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[userID] = a
}

// FailOn makes every call of op return err until cleared with a nil err.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op Op) error {
	if err, ok := s.failures[op]; ok {
		return shared.StorageError(string(op), err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Append implements ledger.Repository.
func (s *Store) Append(ctx context.Context, e ledger.Entry) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	if e.UserID <= 0 {
		return ledger.Receipt{}, shared.ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpAppend); err != nil {
		return ledger.Receipt{}, err
	}
	tx := s.appendLocked(e)
	return ledger.Receipt{Transaction: tx, Total: s.sumLocked(e.UserID, ledger.AllTime)}, nil
}

func (s *Store) appendLocked(e ledger.Entry) ledger.Transaction {
	tx := ledger.Transaction{
		ID:        uuid.New(),
		UserID:    e.UserID,
		EventType: e.EventType,
		Delta:     e.Delta,
		Reason:    e.Reason,
		CreatedAt: s.now(),
	}
	s.txs[e.UserID] = append(s.txs[e.UserID], tx)
	return tx
}

// SumFor implements ledger.Repository.
func (s *Store) SumFor(ctx context.Context, userID int64, w ledger.Window) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure(OpSum); err != nil {
		return 0, err
	}
	return s.sumLocked(userID, w), nil
}

func (s *Store) sumLocked(userID int64, w ledger.Window) int64 {
	var total int64
	for _, tx := range s.txs[userID] {
		if w.Contains(tx.CreatedAt) {
			total += tx.Delta
		}
	}
	return total
}

// History implements ledger.Repository. Newest first; limit <= 0 returns all.
func (s *Store) History(ctx context.Context, userID int64, limit int) ([]ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure(OpHistory); err != nil {
		return nil, err
	}

	txs := s.txs[userID]
	n := len(txs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ledger.Transaction, 0, n)
	for i := len(txs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Unlock implements achievement.Repository. The unlock row and the reward
// transaction are written under the same write lock.
func (s *Store) Unlock(ctx context.Context, userID int64, def achievement.Definition) (achievement.UnlockResult, error) {
	if err := ctx.Err(); err != nil {
		return achievement.UnlockResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpUnlock); err != nil {
		return achievement.UnlockResult{}, err
	}

	if existing, ok := s.unlocks[userID][def.ID]; ok {
		return achievement.UnlockResult{
			Unlock:   existing,
			NewTotal: s.sumLocked(userID, ledger.AllTime),
		}, nil
	}

	tx := s.appendLocked(ledger.Entry{
		UserID:    userID,
		EventType: string(points.EventAchievementUnlocked),
		Delta:     def.PointsAwarded,
		Reason:    def.ID,
	})
	u := achievement.Unlock{UserID: userID, AchievementID: def.ID, UnlockedAt: tx.CreatedAt}
	if s.unlocks[userID] == nil {
		s.unlocks[userID] = make(map[string]achievement.Unlock)
	}
	s.unlocks[userID][def.ID] = u

	return achievement.UnlockResult{
		Unlocked:      true,
		Unlock:        u,
		TransactionID: tx.ID,
		NewTotal:      s.sumLocked(userID, ledger.AllTime),
	}, nil
}

// UnlockedBy implements achievement.Repository, oldest first.
func (s *Store) UnlockedBy(ctx context.Context, userID int64) ([]achievement.Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure(OpUnlocks); err != nil {
		return nil, err
	}

	out := make([]achievement.Unlock, 0, len(s.unlocks[userID]))
	for _, u := range s.unlocks[userID] {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].AchievementID < out[j].AchievementID
	})
	return out, nil
}

// UserStats implements achievement.StatsProvider. Activity comes from
// SetActivity; the remaining fields are derived from the ledger.
// RankLevel is left for the caller to resolve.
func (s *Store) UserStats(ctx context.Context, userID int64) (*achievement.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure(OpStats); err != nil {
		return nil, err
	}

	st := &achievement.Stats{
		UserID:               userID,
		Activity:             s.activity[userID],
		AchievementsUnlocked: int64(len(s.unlocks[userID])),
	}

	var days []time.Time
	for _, tx := range s.txs[userID] {
		st.TotalPoints += tx.Delta
		switch points.EventType(tx.EventType) {
		case points.EventConfessionFeatured:
			st.ConfessionsFeatured++
		case points.EventDailyLogin:
			st.DailyLogins++
		case points.EventWeeklyActive:
			st.WeeklyActive++
		case points.EventAchievementUnlocked:
			continue
		}
		days = append(days, tx.CreatedAt)
	}
	st.CurrentStreak, st.BestStreak = achievement.Streaks(days, s.now(), s.loc)
	return st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// Scores implements leaderboard.Source in one read-locked pass.
func (s *Store) Scores(ctx context.Context, q leaderboard.Query) ([]leaderboard.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure(OpScores); err != nil {
		return nil, err
	}

	loc := q.Location
	if loc == nil {
		loc = s.loc
	}

	var out []leaderboard.Score
	for userID, txs := range s.txs {
		var (
			value   int64
			reached time.Time
			days    = make(map[string]struct{})
		)
		for _, tx := range txs {
			if q.Metric == leaderboard.MetricImprovement && q.Baseline.Contains(tx.CreatedAt) {
				value -= tx.Delta
				continue
			}
			if !q.Window.Contains(tx.CreatedAt) {
				continue
			}
			if q.Metric == leaderboard.MetricActiveDays && tx.EventType == string(points.EventAchievementUnlocked) {
				continue
			}
			if tx.CreatedAt.After(reached) {
				reached = tx.CreatedAt
			}
			if q.Metric == leaderboard.MetricActiveDays {
				days[timeutil.FormatDate(tx.CreatedAt, loc)] = struct{}{}
				continue
			}
			value += tx.Delta
		}
		if q.Metric == leaderboard.MetricActiveDays {
			value = int64(len(days))
		}
		if value > 0 && !reached.IsZero() {
			out = append(out, leaderboard.Score{UserID: userID, Value: value, ReachedAt: reached})
		}
	}

	leaderboard.Order(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

var (
	_ ledger.Repository         = (*Store)(nil)
	_ achievement.Repository    = (*Store)(nil)
	_ achievement.StatsProvider = (*Store)(nil)
	_ leaderboard.Source        = (*Store)(nil)
)
