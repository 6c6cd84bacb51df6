package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_point_ledger",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_user_achievements",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// 001: point ledger
// ──────────────────────────────────────────────────────────────────────────────

const migration001Up = `
CREATE TABLE IF NOT EXISTS point_transactions (
    id UUID PRIMARY KEY,
    user_id BIGINT NOT NULL CHECK (user_id > 0),
    event_type VARCHAR(64) NOT NULL,
    points_delta BIGINT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT clock_timestamp()
);

CREATE INDEX IF NOT EXISTS idx_point_transactions_user_time
    ON point_transactions (user_id, created_at);

CREATE INDEX IF NOT EXISTS idx_point_transactions_time
    ON point_transactions (created_at);

-- The ledger is append-only: totals are always a reduction over these rows.
CREATE OR REPLACE FUNCTION point_transactions_append_only()
RETURNS TRIGGER AS $$
BEGIN
    RAISE EXCEPTION 'point_transactions is append-only (% rejected)', TG_OP;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_point_transactions_append_only ON point_transactions;
CREATE TRIGGER trg_point_transactions_append_only
    BEFORE UPDATE OR DELETE ON point_transactions
    FOR EACH ROW EXECUTE FUNCTION point_transactions_append_only();
`

const migration001Down = `
DROP TRIGGER IF EXISTS trg_point_transactions_append_only ON point_transactions;
DROP FUNCTION IF EXISTS point_transactions_append_only();
DROP TABLE IF EXISTS point_transactions;
`

// ──────────────────────────────────────────────────────────────────────────────
// 002: achievement unlocks
// ──────────────────────────────────────────────────────────────────────────────

const migration002Up = `
CREATE TABLE IF NOT EXISTS user_achievements (
    user_id BIGINT NOT NULL,
    achievement_id VARCHAR(64) NOT NULL,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL,
    transaction_id UUID NOT NULL REFERENCES point_transactions (id),
    PRIMARY KEY (user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_achievement
    ON user_achievements (achievement_id);
`

const migration002Down = `
DROP TABLE IF EXISTS user_achievements;
`
