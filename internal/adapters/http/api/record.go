package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/pkg/logger"
)

// maxRecordBody bounds the POST /api/record payload.
const maxRecordBody = 64 << 10

var errMissingEventID = errors.New("missing event id")

// RecordDependencies defines the interface for recording results.
type RecordDependencies interface {
	RecordMatch(ctx context.Context, eventID string, winners, losers []model.PlayerID) error
}

// RecordHandler handles match result submissions.
type RecordHandler struct {
	deps   RecordDependencies
	logger logger.Logger
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(deps RecordDependencies, l logger.Logger) *RecordHandler {
	return &RecordHandler{deps: deps, logger: l}
}

// HandlePostRecord handles POST /api/record requests. The reply is sent
// after the result is durable.
func (h *RecordHandler) HandlePostRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_record"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req recordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	if err := dec.Decode(&req); err != nil {
		fail(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, err))
		return
	}

	times := 1
	if req.Double {
		times = 2
	}
	for i := 0; i < times; i++ {
		if err := h.deps.RecordMatch(r.Context(), req.ID, req.Winners, req.Losers); err != nil {
			fail(r.Context(), w, h.logger, Wrap(op, err))
			return
		}
	}
	h.logger.Info(r.Context(), "result recorded",
		logger.String("event", req.ID),
		logger.Bool("double", req.Double),
	)
	writeJSON(w, http.StatusOK, struct{}{})
}
