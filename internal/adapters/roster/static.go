package roster

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/teamer/internal/domain/model"
)

const maxRecentEvents = 10

// StaticEvent is one event in a roster file.
type StaticEvent struct {
	model.Event `yaml:",inline"`
	RSVPs       []model.Member `yaml:"rsvps"`
	Attendees   []model.Member `yaml:"attendance"`
}

type staticFile struct {
	Events []StaticEvent `yaml:"events"`
}

// StaticSource serves events from a fixed list. Events whose time is at or
// after the clock are upcoming; the rest are past.
type StaticSource struct {
	events []StaticEvent
	now    func() time.Time
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource builds a source from events already in memory.
func NewStaticSource(events []StaticEvent, now func() time.Time) *StaticSource {
	if now == nil {
		now = time.Now
	}
	cp := make([]StaticEvent, len(events))
	copy(cp, events)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Time < cp[j].Time })
	return &StaticSource{events: cp, now: now}
}

// LoadStaticSource reads a YAML (or JSON) roster file.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUpstream, path, err)
	}
	for _, e := range f.Events {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: %s: event without id", ErrUpstream, path)
		}
	}
	return NewStaticSource(f.Events, nil), nil
}

func (s *StaticSource) NextEvent(ctx context.Context) (model.Event, []model.Member, error) {
	cutoff := s.now().UnixMilli()
	for _, e := range s.events {
		if e.Time >= cutoff {
			return e.Event, copyMembers(e.RSVPs), nil
		}
	}
	return model.Event{}, nil, ErrNoEvents
}

func (s *StaticSource) RecentEvents(ctx context.Context) ([]model.Event, error) {
	cutoff := s.now().UnixMilli()
	out := make([]model.Event, 0, maxRecentEvents)
	for i := len(s.events) - 1; i >= 0 && len(out) < maxRecentEvents; i-- {
		if s.events[i].Time < cutoff {
			out = append(out, s.events[i].Event)
		}
	}
	return out, nil
}

func (s *StaticSource) RSVPs(ctx context.Context, eventID string) ([]model.Member, error) {
	e, err := s.find(eventID)
	if err != nil {
		return nil, err
	}
	return copyMembers(e.RSVPs), nil
}

func (s *StaticSource) Attendance(ctx context.Context, eventID string) ([]model.Member, error) {
	e, err := s.find(eventID)
	if err != nil {
		return nil, err
	}
	return copyMembers(e.Attendees), nil
}

func (s *StaticSource) find(id string) (StaticEvent, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return StaticEvent{}, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
}

func copyMembers(in []model.Member) []model.Member {
	out := make([]model.Member, len(in))
	copy(out, in)
	return out
}
