package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/teamer/internal/domain/ranking"
	"github.com/okian/teamer/internal/domain/types"
	"github.com/okian/teamer/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) ([]types.LeaderboardEntry, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, l logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, logger: l}
}

// HandleGetLeaderboard handles GET /api/leaderboard[?played=true] requests
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	played := false
	if v := r.URL.Query().Get("played"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, err))
			return
		}
		played = b
	}

	entries, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if played {
		entries = ranking.Played(entries)
	}
	if entries == nil {
		entries = []types.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
