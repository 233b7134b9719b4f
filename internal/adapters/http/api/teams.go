package api

import (
	"context"
	"net/http"

	"github.com/okian/teamer/internal/domain/types"
	"github.com/okian/teamer/pkg/logger"
)

// TeamsDependencies defines the interface for next-event matchmaking.
type TeamsDependencies interface {
	NextEvent(ctx context.Context) (types.NextEvent, error)
}

// TeamsHandler handles candidate-team requests.
type TeamsHandler struct {
	deps   TeamsDependencies
	logger logger.Logger
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamsDependencies, l logger.Logger) *TeamsHandler {
	return &TeamsHandler{deps: deps, logger: l}
}

// HandleGetTeams handles GET /api/teams requests.
func (h *TeamsHandler) HandleGetTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_teams"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	next, err := h.deps.NextEvent(r.Context())
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// allowMethod writes 405 and returns false unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethod)
	return false
}
