// Package roster fetches events and the people attending them.
package roster

import (
	"context"
	"errors"

	"github.com/okian/teamer/internal/domain/model"
)

// Sentinel errors for roster sources.
var (
	// ErrUpstream wraps transport failures, non-200 replies and bodies that
	// do not decode.
	ErrUpstream = errors.New("roster source failed")
	// ErrNoEvents means no upcoming event is scheduled.
	ErrNoEvents = errors.New("no upcoming event")
	// ErrUnknownEvent means the source has no such event.
	ErrUnknownEvent = errors.New("unknown event")
)

// Source is the external roster and attendance collaborator.
type Source interface {
	// NextEvent returns the next scheduled event and the members who
	// answered "yes", in RSVP order.
	NextEvent(ctx context.Context) (model.Event, []model.Member, error)
	// RecentEvents returns past events, most recent first.
	RecentEvents(ctx context.Context) ([]model.Event, error)
	// RSVPs returns the members who answered "yes" for an event.
	RSVPs(ctx context.Context, eventID string) ([]model.Member, error)
	// Attendance returns the members who attended an event with a "yes" RSVP.
	Attendance(ctx context.Context, eventID string) ([]model.Member, error)
}
