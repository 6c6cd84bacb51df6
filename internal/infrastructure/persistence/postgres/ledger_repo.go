package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aau-confessions/confession-hub/internal/domain/ledger"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
	"github.com/aau-confessions/confession-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Repository.
//
// Appends for one user are serialized with a transaction-scoped advisory lock
// keyed by user id, so the total read back after the insert always includes
// every earlier append of that user. Different users never contend.
type LedgerRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewLedgerRepository creates a ledger repository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{
		conn:    conn,
		retrier: DatabaseRetrier(),
	}
}

// DatabaseRetrier retries serialization conflicts and dropped connections.
func DatabaseRetrier() *retry.Retrier {
	return retry.DatabaseRetrier().With(retry.WithRetryIf(isTransient))
}

// Append implements ledger.Repository.
func (r *LedgerRepository) Append(ctx context.Context, e ledger.Entry) (ledger.Receipt, error) {
	if e.UserID <= 0 {
		return ledger.Receipt{}, shared.ErrInvalidUserID
	}

	receipt, err := retry.DoWithData(ctx, r.retrier, func(ctx context.Context) (ledger.Receipt, error) {
		var rec ledger.Receipt
		err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if err := lockUser(ctx, tx, e.UserID); err != nil {
				return err
			}

			t, err := insertTransaction(ctx, tx, e)
			if err != nil {
				return err
			}

			total, err := sumFor(ctx, tx, e.UserID, ledger.AllTime)
			if err != nil {
				return err
			}

			rec = ledger.Receipt{Transaction: t, Total: total}
			return nil
		})
		return rec, err
	})
	if err != nil {
		return ledger.Receipt{}, shared.StorageError("Append", err)
	}
	return receipt, nil
}

// SumFor implements ledger.Repository.
func (r *LedgerRepository) SumFor(ctx context.Context, userID int64, w ledger.Window) (int64, error) {
	total, err := retry.DoWithData(ctx, r.retrier, func(ctx context.Context) (int64, error) {
		return sumFor(ctx, r.conn, userID, w)
	})
	if err != nil {
		return 0, shared.StorageError("SumFor", err)
	}
	return total, nil
}

// History implements ledger.Repository. Newest first; limit <= 0 returns all.
func (r *LedgerRepository) History(ctx context.Context, userID int64, limit int) ([]ledger.Transaction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, event_type, points_delta, reason, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2::bigint
	`, userID, lim)
	if err != nil {
		return nil, shared.StorageError("History", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.EventType, &t.Delta, &t.Reason, &t.CreatedAt); err != nil {
			return nil, shared.StorageError("History", fmt.Errorf("scan transaction: %w", err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("History", err)
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers shared with the achievement repository
// ──────────────────────────────────────────────────────────────────────────────

// lockUser takes the per-user advisory lock for the rest of the transaction.
func lockUser(ctx context.Context, q Querier, userID int64) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("advisory lock user %d: %w", userID, err)
	}
	return nil
}

func insertTransaction(ctx context.Context, q Querier, e ledger.Entry) (ledger.Transaction, error) {
	t := ledger.Transaction{
		ID:        uuid.New(),
		UserID:    e.UserID,
		EventType: e.EventType,
		Delta:     e.Delta,
		Reason:    e.Reason,
	}

	err := q.QueryRow(ctx, `
		INSERT INTO point_transactions (id, user_id, event_type, points_delta, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t.ID, t.UserID, t.EventType, t.Delta, t.Reason).Scan(&t.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func sumFor(ctx context.Context, q Querier, userID int64, w ledger.Window) (int64, error) {
	var total int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(points_delta), 0)::bigint
		FROM point_transactions
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
	`, userID, bound(w.From), bound(w.To)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

// bound maps an open window edge to SQL NULL.
func bound(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ ledger.Repository = (*LedgerRepository)(nil)
