// Package saga contains complex business processes that orchestrate
// multiple domain operations in a coordinated manner.
package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT FLOW SAGA
// Complex business process: achievement evaluation after a ledger change.
// Flow: Load Stats → Resolve Rank Level → Select Pending →
//
//	Unlock + Reward (atomic in storage) → Reload Stats → ... until fixpoint
//
// Rewards move the total, and the total feeds points, rank and meta
// criteria, so one award may cascade into several unlocks.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockedAchievement is one achievement granted during an evaluation.
type UnlockedAchievement struct {
	Definition    achievement.Definition
	Unlock        achievement.Unlock
	TransactionID string

	// NewTotal is the ledger total right after the reward transaction.
	NewTotal int64
}

// EvaluationResult contains the outcome of EvaluateAll.
type EvaluationResult struct {
	UserID   int64
	Unlocked []UnlockedAchievement

	// Rounds is how many stats snapshots were evaluated.
	Rounds int
}

// RewardPoints returns the sum of rewards granted in this evaluation.
func (r *EvaluationResult) RewardPoints() int64 {
	var sum int64
	for _, u := range r.Unlocked {
		sum += u.Definition.PointsAwarded
	}
	return sum
}

// FinalTotal returns the total after the last reward, if any was granted.
func (r *EvaluationResult) FinalTotal() (int64, bool) {
	if len(r.Unlocked) == 0 {
		return 0, false
	}
	return r.Unlocked[len(r.Unlocked)-1].NewTotal, true
}

// AchievementFlowSaga orchestrates achievement evaluation.
type AchievementFlowSaga struct {
	catalog *achievement.Catalog
	ladder  *rank.Ladder
	stats   achievement.StatsProvider
	repo    achievement.Repository
	logger  *slog.Logger
}

// NewAchievementFlowSaga creates a new achievement flow saga.
func NewAchievementFlowSaga(
	catalog *achievement.Catalog,
	ladder *rank.Ladder,
	stats achievement.StatsProvider,
	repo achievement.Repository,
	logger *slog.Logger,
) *AchievementFlowSaga {
	if logger == nil {
		logger = slog.Default()
	}
	return &AchievementFlowSaga{
		catalog: catalog,
		ladder:  ladder,
		stats:   stats,
		repo:    repo,
		logger:  logger.With("saga", "achievement_flow"),
	}
}

// snapshot loads the user's stats and fills in the rank level.
func (s *AchievementFlowSaga) snapshot(ctx context.Context, userID int64) (*achievement.Stats, error) {
	st, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, shared.StorageError("UserStats", err)
	}
	st.RankLevel = int64(s.ladder.Resolve(st.TotalPoints).Level)
	return st, nil
}

// CheckQualification reports whether the user currently meets the
// achievement's criterion. Whether it is already unlocked does not matter.
func (s *AchievementFlowSaga) CheckQualification(ctx context.Context, userID int64, achievementID string) (bool, error) {
	if userID <= 0 {
		return false, shared.ErrInvalidUserID
	}
	def, err := s.catalog.Get(achievementID)
	if err != nil {
		return false, err
	}
	st, err := s.snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return achievement.Qualifies(def, st), nil
}

// EvaluateAll unlocks every achievement the user qualifies for and is not
// yet holding. It repeats on fresh stats until a round grants nothing, so
// the result is a fixpoint. Each round unlocks at least one new id, which
// bounds the loop by the catalog size.
//
// On error the achievements unlocked so far are still committed and
// returned alongside the error.
func (s *AchievementFlowSaga) EvaluateAll(ctx context.Context, userID int64) (*EvaluationResult, error) {
	if userID <= 0 {
		return nil, shared.ErrInvalidUserID
	}

	result := &EvaluationResult{UserID: userID}

	unlocks, err := s.repo.UnlockedBy(ctx, userID)
	if err != nil {
		return result, shared.StorageError("UnlockedBy", err)
	}
	held := achievement.UnlockedSet(unlocks)

	for result.Rounds <= s.catalog.Len() {
		st, err := s.snapshot(ctx, userID)
		if err != nil {
			return result, err
		}
		result.Rounds++

		pending := s.catalog.Pending(st, held)
		if len(pending) == 0 {
			break
		}

		for _, def := range pending {
			res, err := s.repo.Unlock(ctx, userID, def)
			if err != nil {
				return result, shared.StorageError("Unlock", fmt.Errorf("%s: %w", def.ID, err))
			}
			held[def.ID] = true

			if !res.Unlocked {
				// Recorded concurrently by another award; no reward twice.
				continue
			}

			result.Unlocked = append(result.Unlocked, UnlockedAchievement{
				Definition:    def,
				Unlock:        res.Unlock,
				TransactionID: res.TransactionID.String(),
				NewTotal:      res.NewTotal,
			})

			s.logger.Info("achievement unlocked",
				"user_id", userID,
				"achievement_id", def.ID,
				"reward", def.PointsAwarded,
				"new_total", res.NewTotal,
			)
		}
	}

	return result, nil
}
