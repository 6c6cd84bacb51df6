package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
	"github.com/aau-confessions/confession-hub/pkg/retry"
)

// errAlreadyUnlocked rolls back the reward insert when the unlock row exists.
var errAlreadyUnlocked = errors.New("achievement already unlocked")

// AchievementRepository implements achievement.Repository.
type AchievementRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewAchievementRepository creates an achievement repository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn, retrier: DatabaseRetrier()}
}

// Unlock implements achievement.Repository.
//
// Under the user's advisory lock: the existing row is checked, the reward
// transaction is appended and the unlock row references it. A duplicate
// returns Unlocked=false and leaves the ledger untouched.
func (r *AchievementRepository) Unlock(ctx context.Context, userID int64, def achievement.Definition) (achievement.UnlockResult, error) {
	if userID <= 0 {
		return achievement.UnlockResult{}, shared.ErrInvalidUserID
	}

	res, err := retry.DoWithData(ctx, r.retrier, func(ctx context.Context) (achievement.UnlockResult, error) {
		var res achievement.UnlockResult
		err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if err := lockUser(ctx, tx, userID); err != nil {
				return err
			}

			var existing time.Time
			err := tx.QueryRow(ctx,
				`SELECT unlocked_at FROM user_achievements WHERE user_id = $1 AND achievement_id = $2`,
				userID, def.ID,
			).Scan(&existing)
			switch {
			case err == nil:
				res.Unlock = achievement.Unlock{UserID: userID, AchievementID: def.ID, UnlockedAt: existing}
				res.NewTotal, err = sumFor(ctx, tx, userID, ledger.AllTime)
				return err
			case !IsNoRows(err):
				return fmt.Errorf("check unlock: %w", err)
			}

			t, err := insertTransaction(ctx, tx, ledger.Entry{
				UserID:    userID,
				EventType: string(points.EventAchievementUnlocked),
				Delta:     def.PointsAwarded,
				Reason:    def.ID,
			})
			if err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `
				INSERT INTO user_achievements (user_id, achievement_id, unlocked_at, transaction_id)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, achievement_id) DO NOTHING
			`, userID, def.ID, t.CreatedAt, t.ID)
			if err != nil {
				return fmt.Errorf("insert unlock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return errAlreadyUnlocked
			}

			total, err := sumFor(ctx, tx, userID, ledger.AllTime)
			if err != nil {
				return err
			}

			res = achievement.UnlockResult{
				Unlocked:      true,
				Unlock:        achievement.Unlock{UserID: userID, AchievementID: def.ID, UnlockedAt: t.CreatedAt},
				TransactionID: t.ID,
				NewTotal:      total,
			}
			return nil
		})
		return res, err
	})
	if errors.Is(err, errAlreadyUnlocked) {
		total, sumErr := sumFor(ctx, r.conn, userID, ledger.AllTime)
		if sumErr != nil {
			return achievement.UnlockResult{}, shared.StorageError("Unlock", sumErr)
		}
		return achievement.UnlockResult{
			Unlock:   achievement.Unlock{UserID: userID, AchievementID: def.ID},
			NewTotal: total,
		}, nil
	}
	if err != nil {
		return achievement.UnlockResult{}, shared.StorageError("Unlock", err)
	}
	return res, nil
}

// UnlockedBy implements achievement.Repository, oldest first.
func (r *AchievementRepository) UnlockedBy(ctx context.Context, userID int64) ([]achievement.Unlock, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at, achievement_id
	`, userID)
	if err != nil {
		return nil, shared.StorageError("UnlockedBy", err)
	}

	unlocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (achievement.Unlock, error) {
		var u achievement.Unlock
		err := row.Scan(&u.UserID, &u.AchievementID, &u.UnlockedAt)
		return u, err
	})
	if err != nil {
		return nil, shared.StorageError("UnlockedBy", err)
	}
	return unlocks, nil
}

var _ achievement.Repository = (*AchievementRepository)(nil)
