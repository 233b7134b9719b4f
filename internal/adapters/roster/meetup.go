package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/pkg/logger"
	"github.com/okian/teamer/pkg/metrics"
)

const (
	defaultBaseURL           = "https://api.meetup.com"
	defaultRequestsPerMinute = 30
	defaultTimeout           = 10 * time.Second
	recentEventsPage         = "10"
	maxErrorBody             = 200
)

// MeetupClient reads a group's events and RSVPs from the Meetup REST API.
type MeetupClient struct {
	httpClient *http.Client
	timeout    time.Duration
	baseURL    string
	group      string
	apiKey     string
	limiter    *rate.Limiter
	logger     logger.Logger
}

var _ Source = (*MeetupClient)(nil)

// MeetupOption configures a MeetupClient.
type MeetupOption func(*MeetupClient)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) MeetupOption {
	return func(c *MeetupClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRequestsPerMinute sets the token bucket refill rate.
func WithRequestsPerMinute(n int) MeetupOption {
	return func(c *MeetupClient) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		}
	}
}

// WithTimeout bounds every HTTP call.
func WithTimeout(d time.Duration) MeetupOption {
	return func(c *MeetupClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client. Its timeout is kept unless
// WithTimeout is also given.
func WithHTTPClient(hc *http.Client) MeetupOption {
	return func(c *MeetupClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMeetupLogger sets the client logger.
func WithMeetupLogger(l logger.Logger) MeetupOption {
	return func(c *MeetupClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewMeetupClient creates a rate-limited client for one group.
func NewMeetupClient(group, apiKey string, opts ...MeetupOption) *MeetupClient {
	c := &MeetupClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		group:      group,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(float64(defaultRequestsPerMinute)/60.0), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("meetup")
	}
	return c
}

type meetupMember struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
}

type meetupRSVP struct {
	Response string       `json:"response"`
	Member   meetupMember `json:"member"`
}

type meetupAttendance struct {
	RSVP struct {
		Response string `json:"response"`
	} `json:"rsvp"`
	Member meetupMember `json:"member"`
}

// NextEvent returns the first listed upcoming event and its yes RSVPs.
func (c *MeetupClient) NextEvent(ctx context.Context) (model.Event, []model.Member, error) {
	var events []model.Event
	if err := c.get(ctx, "events", c.groupPath("events"), nil, &events); err != nil {
		return model.Event{}, nil, err
	}
	if len(events) == 0 {
		return model.Event{}, nil, ErrNoEvents
	}
	next := events[0]
	members, err := c.RSVPs(ctx, next.ID)
	if err != nil {
		return model.Event{}, nil, err
	}
	return next, members, nil
}

// RecentEvents returns up to ten past events, newest first.
func (c *MeetupClient) RecentEvents(ctx context.Context) ([]model.Event, error) {
	q := url.Values{}
	q.Set("has_ended", "true")
	q.Set("desc", "true")
	q.Set("page", recentEventsPage)
	q.Set("status", "past")

	var events []model.Event
	if err := c.get(ctx, "recent", c.groupPath("events"), q, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// RSVPs returns members who answered "yes".
func (c *MeetupClient) RSVPs(ctx context.Context, eventID string) ([]model.Member, error) {
	var rsvps []meetupRSVP
	if err := c.get(ctx, "rsvps", c.groupPath("events", eventID, "rsvps"), nil, &rsvps); err != nil {
		return nil, err
	}
	out := make([]model.Member, 0, len(rsvps))
	for _, r := range rsvps {
		if r.Response == "yes" {
			out = append(out, model.Member{ID: r.Member.ID, Name: r.Member.Name})
		}
	}
	return out, nil
}

// Attendance returns attendees whose RSVP was "yes".
func (c *MeetupClient) Attendance(ctx context.Context, eventID string) ([]model.Member, error) {
	var rows []meetupAttendance
	if err := c.get(ctx, "attendance", c.groupPath("events", eventID, "attendance"), nil, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Member, 0, len(rows))
	for _, r := range rows {
		if r.RSVP.Response == "yes" {
			out = append(out, model.Member{ID: r.Member.ID, Name: r.Member.Name})
		}
	}
	return out, nil
}

func (c *MeetupClient) groupPath(parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, url.PathEscape(c.group))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return "/" + strings.Join(segs, "/")
}

// get performs one rate-limited GET and decodes the JSON body into out.
func (c *MeetupClient) get(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("key", c.apiKey)

	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.RecordRosterRequest(endpoint, outcome, float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "meetup request failed", logger.String("endpoint", endpoint), logger.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrUpstream, endpoint, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, path)
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn(ctx, "meetup returned an error",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, endpoint, resp.StatusCode, truncate(body, maxErrorBody))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, endpoint, err)
	}
	outcome = "ok"
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
