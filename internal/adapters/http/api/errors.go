package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/teamer/internal/app"
	"github.com/okian/teamer/internal/adapters/mq/queue"
	"github.com/okian/teamer/internal/adapters/repository"
	"github.com/okian/teamer/internal/adapters/roster"
	"github.com/okian/teamer/internal/domain/rating"
	"github.com/okian/teamer/internal/domain/teams"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrMethod     = errors.New("method not allowed")
)

// opError tags an error with the handler operation that produced it.
type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

// Wrap attaches op to err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind attaches op to err and marks it as kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, err: fmt.Errorf("%w: %w", kind, err)}
}

// statusFor classifies err into an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMethod):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidMatch),
		errors.Is(err, repository.ErrInvalidID):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, teams.ErrRosterTooLarge),
		errors.Is(err, teams.ErrDuplicateMember):
		return http.StatusUnprocessableEntity, "roster_rejected"
	case errors.Is(err, roster.ErrUnknownEvent):
		return http.StatusNotFound, "unknown_event"
	case errors.Is(err, roster.ErrNoEvents):
		return http.StatusNotFound, "no_events"
	case errors.Is(err, queue.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, roster.ErrUpstream), errors.Is(err, rating.ErrRatingShape):
		return http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, repository.ErrMalformed):
		return http.StatusInternalServerError, "malformed_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
