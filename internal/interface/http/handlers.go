package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aau-confessions/confession-hub/internal/application/command"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/leaderboard"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
	"github.com/aau-confessions/confession-hub/internal/domain/rank"
	"github.com/aau-confessions/confession-hub/internal/domain/shared"
	"github.com/aau-confessions/confession-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Confession Hub Ranking API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":       "/health",
			"achievements": "/api/v1/achievements",
			"ranks":        "/api/v1/ranks",
			"points":       "/api/v1/points",
			"leaderboard":  "/api/v1/leaderboards/{type}",
			"user_rank":    "/api/v1/users/{id}/rank",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// AwardRequest is the body of POST /api/v1/users/{id}/events.
type AwardRequest struct {
	EventType     string          `json:"event_type"`
	Metadata      points.Metadata `json:"metadata"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// AchievementDTO is an unlocked achievement in an award response.
type AchievementDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	Points int64  `json:"points"`
	Hidden bool   `json:"hidden"`
}

// AwardResponse mirrors command.AwardPointsResult for the wire.
type AwardResponse struct {
	Success              bool             `json:"success"`
	PointsDelta          int64            `json:"points_delta"`
	AchievementPoints    int64            `json:"achievement_points"`
	NewTotal             int64            `json:"new_total"`
	PreviousRank         string           `json:"previous_rank"`
	Rank                 rank.Definition  `json:"rank"`
	RankChanged          bool             `json:"rank_changed"`
	AchievementsUnlocked []AchievementDTO `json:"achievements_unlocked"`
	TransactionID        string           `json:"transaction_id,omitempty"`
	AchievementsDeferred bool             `json:"achievements_deferred,omitempty"`
}

func toAwardResponse(res *command.AwardPointsResult) AwardResponse {
	out := AwardResponse{
		Success:              res.Success,
		PointsDelta:          res.PointsDelta,
		AchievementPoints:    res.AchievementPoints,
		NewTotal:             res.NewTotal,
		PreviousRank:         res.PreviousRank.ID,
		Rank:                 res.Rank,
		RankChanged:          res.RankChanged,
		AchievementsUnlocked: make([]AchievementDTO, 0, len(res.AchievementsUnlocked)),
		TransactionID:        res.TransactionID,
		AchievementsDeferred: res.AchievementsDeferred,
	}
	for _, d := range res.AchievementsUnlocked {
		out.AchievementsUnlocked = append(out.AchievementsUnlocked, AchievementDTO{
			ID:     d.ID,
			Name:   d.Name,
			Emoji:  d.Emoji,
			Points: d.PointsAwarded,
			Hidden: d.IsHidden,
		})
	}
	return out
}

// handleAwardPoints handles POST /api/v1/users/{id}/events
func (s *Server) handleAwardPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON scoring event")
		return
	}
	if req.EventType == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "event_type is required")
		return
	}

	res, err := s.deps.Ranking.Award(r.Context(), command.AwardPointsCommand{
		UserID:        userID,
		EventType:     points.EventType(req.EventType),
		Metadata:      req.Metadata,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		s.writeDomainError(w, r, "award points", err)
		return
	}

	writeJSON(w, http.StatusOK, toAwardResponse(res))
}

// handleGetPointTable handles GET /api/v1/points
func (s *Server) handleGetPointTable(w http.ResponseWriter, r *http.Request) {
	table := points.Table()
	writeJSONWithMeta(w, http.StatusOK, table, &ResponseMeta{TotalCount: len(table)})
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetUserRank handles GET /api/v1/users/{id}/rank
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	st, err := s.deps.Ranking.GetUserRank(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, "get user rank", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleGetRankLadder handles GET /api/v1/users/{id}/ladder
func (s *Server) handleGetRankLadder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	view, err := s.deps.Ranking.GetRankLadder(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, "get rank ladder", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetUserAchievements handles GET /api/v1/users/{id}/achievements
func (s *Server) handleGetUserAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Ranking.GetUserAchievements(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, "get user achievements", err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, res, &ResponseMeta{TotalCount: res.Total})
}

// handleGetTransactions handles GET /api/v1/users/{id}/transactions
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	txs, err := s.deps.Ranking.GetPointHistory(r.Context(), userID, queryInt(r, "limit", 20))
	if err != nil {
		s.writeDomainError(w, r, "get transactions", err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, txs, &ResponseMeta{TotalCount: len(txs)})
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetAchievements handles GET /api/v1/achievements
func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	defs := s.deps.Ranking.GetAllAchievements()
	if c := r.URL.Query().Get("category"); c != "" {
		filtered := make([]achievement.Definition, 0, len(defs))
		for _, d := range defs {
			if string(d.Category) == c {
				filtered = append(filtered, d)
			}
		}
		defs = filtered
	}
	writeJSONWithMeta(w, http.StatusOK, defs, &ResponseMeta{TotalCount: len(defs)})
}

// handleGetRanks handles GET /api/v1/ranks
func (s *Server) handleGetRanks(w http.ResponseWriter, r *http.Request) {
	tiers := s.deps.Ranking.Ladder().Tiers()
	writeJSONWithMeta(w, http.StatusOK, tiers, &ResponseMeta{TotalCount: len(tiers)})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboards/{type}
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	t, ok := s.boardType(w, r)
	if !ok {
		return
	}
	board, err := s.deps.Ranking.GetLeaderboard(r.Context(), t, queryInt(r, "limit", 0))
	if err != nil {
		s.writeDomainError(w, r, "get leaderboard", err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, board, &ResponseMeta{TotalCount: len(board.Entries)})
}

// handleGetLeaderboardStats handles GET /api/v1/leaderboards/{type}/stats
func (s *Server) handleGetLeaderboardStats(w http.ResponseWriter, r *http.Request) {
	t, ok := s.boardType(w, r)
	if !ok {
		return
	}
	st, err := s.deps.Ranking.GetLeaderboardStats(r.Context(), t)
	if err != nil {
		s.writeDomainError(w, r, "get leaderboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// userID parses the {id} path parameter and writes 400 on failure.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_user_id", "User id must be a positive integer")
		return 0, false
	}
	return id, true
}

// boardType parses the {type} path parameter and writes 404 for unknown boards.
func (s *Server) boardType(w http.ResponseWriter, r *http.Request) (leaderboard.Type, bool) {
	t, err := leaderboard.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "unknown_leaderboard", err.Error())
		return "", false
	}
	return t, true
}

// writeDomainError maps the ranking error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrUnknownLeaderboard):
		writeJSONError(w, http.StatusNotFound, "unknown_leaderboard", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsUnavailable(err):
		logger.FromContext(r.Context()).Error("storage unavailable", logger.Operation(op), logger.Err(err))
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Ranking storage is unavailable, retry later")
	default:
		logger.FromContext(r.Context()).Error("request failed", logger.Operation(op), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to "+op)
	}
}

// queryInt extracts an integer query parameter with a default value.
func queryInt(r *http.Request, key string, defaultValue int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return defaultValue
	}
	return v
}
