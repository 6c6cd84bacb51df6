package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache stores rendered boards and summaries.
//
// Keys:
//   - "ranking:leaderboard:{type}:{window_start_unix}:{limit}" - rendered board
//   - "ranking:lbstats:{type}:{window_start_unix}" - summary
//
// The window start is part of the key, so a new week never serves last
// week's board even before the TTL runs out.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a leaderboard cache. ttl <= 0 uses TTLLeaderboardCache.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// TTL returns the lifetime of cached entries.
func (lc *LeaderboardCache) TTL() time.Duration {
	return lc.ttl
}

// Ping checks the underlying Redis connection, bypassing the breaker.
func (lc *LeaderboardCache) Ping(ctx context.Context) error {
	return lc.cache.Ping(ctx)
}

// BoardKey returns the cache key for a rendered board.
func BoardKey(t leaderboard.Type, windowStart time.Time, limit int) string {
	return fmt.Sprintf("%s%s:%s:%d", PrefixLeaderboard, t, windowKey(windowStart), limit)
}

// StatsKey returns the cache key for a board summary.
func StatsKey(t leaderboard.Type, windowStart time.Time) string {
	return fmt.Sprintf("%s%s:%s", PrefixLeaderboardStats, t, windowKey(windowStart))
}

func windowKey(start time.Time) string {
	if start.IsZero() {
		return "all"
	}
	return strconv.FormatInt(start.Unix(), 10)
}

// cachedEntry keeps the user id that leaderboard.Entry hides from JSON.
type cachedEntry struct {
	leaderboard.Entry
	UserID int64 `json:"user_id"`
}

type cachedBoard struct {
	Type        leaderboard.Type `json:"type"`
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
	GeneratedAt time.Time        `json:"generated_at"`
	Entries     []cachedEntry    `json:"entries"`
}

// GetBoard returns a cached board or ErrCacheMiss.
func (lc *LeaderboardCache) GetBoard(ctx context.Context, t leaderboard.Type, windowStart time.Time, limit int) (*leaderboard.Board, error) {
	var cb cachedBoard
	if err := lc.cache.Get(ctx, BoardKey(t, windowStart, limit), &cb); err != nil {
		return nil, err
	}

	board := &leaderboard.Board{
		Type:        cb.Type,
		WindowStart: cb.WindowStart,
		WindowEnd:   cb.WindowEnd,
		GeneratedAt: cb.GeneratedAt,
		Entries:     make([]leaderboard.Entry, len(cb.Entries)),
	}
	for i, e := range cb.Entries {
		board.Entries[i] = e.Entry
		board.Entries[i].UserID = e.UserID
	}
	return board, nil
}

// SetBoard caches a rendered board.
func (lc *LeaderboardCache) SetBoard(ctx context.Context, board *leaderboard.Board, limit int) error {
	if board == nil {
		return ErrCacheNilValue
	}

	cb := cachedBoard{
		Type:        board.Type,
		WindowStart: board.WindowStart,
		WindowEnd:   board.WindowEnd,
		GeneratedAt: board.GeneratedAt,
		Entries:     make([]cachedEntry, len(board.Entries)),
	}
	for i, e := range board.Entries {
		cb.Entries[i] = cachedEntry{Entry: e, UserID: e.UserID}
	}
	return lc.cache.Set(ctx, BoardKey(board.Type, board.WindowStart, limit), cb, lc.ttl)
}

// GetStats returns a cached summary or ErrCacheMiss.
func (lc *LeaderboardCache) GetStats(ctx context.Context, t leaderboard.Type, windowStart time.Time) (*leaderboard.Stats, error) {
	var st leaderboard.Stats
	if err := lc.cache.Get(ctx, StatsKey(t, windowStart), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetStats caches a summary.
func (lc *LeaderboardCache) SetStats(ctx context.Context, st *leaderboard.Stats) error {
	if st == nil {
		return ErrCacheNilValue
	}
	return lc.cache.Set(ctx, StatsKey(st.Type, st.WindowStart), st, lc.ttl)
}

// Invalidate drops cached boards and summaries of the given types,
// or of every type when none are given. Returns the number of removed keys.
func (lc *LeaderboardCache) Invalidate(ctx context.Context, types ...leaderboard.Type) (int, error) {
	patterns := []string{PrefixLeaderboard + "*", PrefixLeaderboardStats + "*"}
	if len(types) > 0 {
		patterns = patterns[:0]
		for _, t := range types {
			patterns = append(patterns,
				fmt.Sprintf("%s%s:*", PrefixLeaderboard, t),
				fmt.Sprintf("%s%s:*", PrefixLeaderboardStats, t),
			)
		}
	}

	var total int
	for _, p := range patterns {
		n, err := lc.cache.DeleteByPattern(ctx, p)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
