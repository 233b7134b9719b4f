package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/internal/domain/types"
	"github.com/okian/teamer/pkg/logger"
)

// EventsDependencies defines the interface for past-event reads.
type EventsDependencies interface {
	RecentEvents(ctx context.Context) ([]model.Event, error)
	EventDetails(ctx context.Context, eventID string) (types.EventDetails, error)
}

// EventsHandler handles event history requests.
type EventsHandler struct {
	deps   EventsDependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventsDependencies, l logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: l}
}

// HandleGetRecent handles GET /api/recent requests.
func (h *EventsHandler) HandleGetRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recent"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	events, err := h.deps.RecentEvents(r.Context())
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGetEvent handles GET /api/event/{id} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/event/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", WrapKind(op, ErrBadRequest, errMissingEventID))
		return
	}
	details, err := h.deps.EventDetails(r.Context(), id)
	if err != nil {
		fail(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if details.EventPlayers == nil {
		details.EventPlayers = []model.Member{}
	}
	writeJSON(w, http.StatusOK, details)
}
