package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/teamer/internal/adapters/http/api"
	"github.com/okian/teamer/internal/adapters/mq/queue"
	"github.com/okian/teamer/internal/adapters/repository"
	"github.com/okian/teamer/internal/adapters/roster"
	service "github.com/okian/teamer/internal/app"
	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/internal/domain/types"
	"github.com/okian/teamer/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

type recordCall struct {
	id              string
	winners, losers []model.PlayerID
}

// mockDependencies implements api.Dependencies with canned replies.
type mockDependencies struct {
	mu        sync.Mutex
	next      types.NextEvent
	nextErr   error
	recent    []model.Event
	details   types.EventDetails
	detailErr error
	recordErr error
	records   []recordCall
	board     []types.LeaderboardEntry
	boardErr  error
}

func (m *mockDependencies) NextEvent(context.Context) (types.NextEvent, error) {
	return m.next, m.nextErr
}

func (m *mockDependencies) RecentEvents(context.Context) ([]model.Event, error) {
	return m.recent, nil
}

func (m *mockDependencies) EventDetails(_ context.Context, id string) (types.EventDetails, error) {
	if m.detailErr != nil {
		return types.EventDetails{}, m.detailErr
	}
	return m.details, nil
}

func (m *mockDependencies) RecordMatch(_ context.Context, id string, winners, losers []model.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, recordCall{id: id, winners: winners, losers: losers})
	return nil
}

func (m *mockDependencies) Leaderboard(context.Context) ([]types.LeaderboardEntry, error) {
	return m.board, m.boardErr
}

func (m *mockDependencies) Stats(context.Context) types.Stats {
	return types.Stats{Started: true, Players: 3}
}

func newMux(deps api.Dependencies) http.Handler {
	server := api.NewServer(deps, api.WithAllowedOrigins([]string{"http://ui.example"}))
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return server.Handler(mux)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server over mock dependencies", t, func() {
		deps := &mockDependencies{
			next: types.NextEvent{
				NextEvent:     model.Event{ID: "e9", Name: "Friday"},
				PossibleTeams: []types.Matchup{{Teams: [2][]string{{"Ana"}, {"Bo"}}, Rating: 0.5}},
			},
			recent:  []model.Event{{ID: "e8"}, {ID: "e7"}},
			details: types.EventDetails{EventPlayers: []model.Member{{ID: "1", Name: "Ana"}}},
			board: []types.LeaderboardEntry{
				{Rank: 1, Player: model.Player{ID: "1", Games: 2}, Rating: 3},
				{Rank: 2, Player: model.Player{ID: "2"}, Rating: 0},
			},
		}
		h := newMux(deps)

		Convey("When requesting the next event's teams", func() {
			w := do(h, http.MethodGet, "/api/teams", "")

			Convey("Then the event and candidates are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.NextEvent
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.NextEvent.ID, ShouldEqual, "e9")
				So(got.PossibleTeams, ShouldHaveLength, 1)
			})
		})

		Convey("When requesting recent events", func() {
			w := do(h, http.MethodGet, "/api/recent", "")

			Convey("Then they are returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []model.Event
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got[0].ID, ShouldEqual, "e8")
			})
		})

		Convey("When requesting an event without a record", func() {
			w := do(h, http.MethodGet, "/api/event/e8", "")

			Convey("Then record is null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var raw map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &raw), ShouldBeNil)
				So(raw, ShouldContainKey, "record")
				So(raw["record"], ShouldBeNil)
				So(raw["eventPlayers"], ShouldHaveLength, 1)
			})
		})

		Convey("When requesting an event with an empty id", func() {
			w := do(h, http.MethodGet, "/api/event/", "")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When requesting the leaderboard", func() {
			all := do(h, http.MethodGet, "/api/leaderboard", "")
			played := do(h, http.MethodGet, "/api/leaderboard?played=true", "")
			bad := do(h, http.MethodGet, "/api/leaderboard?played=maybe", "")

			Convey("Then the played filter drops players without games", func() {
				var a, p []types.LeaderboardEntry
				So(json.Unmarshal(all.Body.Bytes(), &a), ShouldBeNil)
				So(json.Unmarshal(played.Body.Bytes(), &p), ShouldBeNil)
				So(a, ShouldHaveLength, 2)
				So(p, ShouldHaveLength, 1)
				So(p[0].ID, ShouldEqual, model.PlayerID("1"))
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a result", func() {
			w := do(h, http.MethodPost, "/api/record", `{"id":"e8","winners":[1,"2"],"losers":[3,4]}`)

			Convey("Then it is recorded once with numeric ids decoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "{}")
				So(deps.records, ShouldHaveLength, 1)
				So(deps.records[0].winners, ShouldResemble, model.IDs("1", "2"))
			})
		})

		Convey("When posting a double result", func() {
			w := do(h, http.MethodPost, "/api/record", `{"id":"e8","winners":["1"],"losers":["2"],"double":true}`)

			Convey("Then it is recorded twice", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.records, ShouldHaveLength, 2)
			})
		})

		Convey("When posting malformed JSON", func() {
			w := do(h, http.MethodPost, "/api/record", `{"id":`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.records, ShouldBeEmpty)
			})
		})

		Convey("When using the wrong method", func() {
			w := do(h, http.MethodGet, "/api/record", "")

			Convey("Then it is rejected with the allowed method", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			})
		})

		Convey("When probing health and stats", func() {
			health := do(h, http.MethodGet, "/healthz", "")
			stats := do(h, http.MethodGet, "/stats", "")

			Convey("Then metrics and stats are served", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, "teamer_")
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"players":3`)
			})
		})

		Convey("When a browser sends a preflight from the allowed origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/record", http.NoBody)
			req.Header.Set("Origin", "http://ui.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then CORS headers allow it", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://ui.example")
			})
		})
	})
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("wrap: %w", service.ErrInvalidMatch), http.StatusBadRequest, "invalid_request"},
			{queue.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
			{fmt.Errorf("rsvps: %w", roster.ErrUpstream), http.StatusBadGateway, "upstream_failure"},
			{roster.ErrUnknownEvent, http.StatusNotFound, "unknown_event"},
			{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
			{repository.ErrMalformed, http.StatusInternalServerError, "malformed_state"},
		}
		for _, tc := range cases {
			Convey(fmt.Sprintf("When recording fails with %v", tc.err), func() {
				h := newMux(&mockDependencies{recordErr: tc.err})
				w := do(h, http.MethodPost, "/api/record", `{"id":"e1","winners":["1"],"losers":["2"]}`)

				Convey("Then the status and code reflect the kind", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(errorCode(w), ShouldEqual, tc.code)
				})
			})
		}

		Convey("When the next event cannot be fetched", func() {
			h := newMux(&mockDependencies{nextErr: roster.ErrNoEvents})
			w := do(h, http.MethodGet, "/api/teams", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "no_events")
			})
		})
	})
}

func TestServer_EndToEnd(t *testing.T) {
	Convey("Given the API over a real service", t, func() {
		now := time.UnixMilli(1_700_000_000_000)
		src := roster.NewStaticSource([]roster.StaticEvent{
			{
				Event:     model.Event{ID: "past", Time: now.UnixMilli() - 1000},
				RSVPs:     []model.Member{{ID: "1", Name: "Ana"}, {ID: "2", Name: "Bo"}},
				Attendees: []model.Member{{ID: "1", Name: "Ana"}, {ID: "2", Name: "Bo"}},
			},
			{
				Event: model.Event{ID: "next", Time: now.UnixMilli() + 1000},
				RSVPs: []model.Member{{ID: "1", Name: "Ana"}, {ID: "2", Name: "Bo"}},
			},
		}, func() time.Time { return now })
		svc := service.New(repository.NewMemoryStore(), src)
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = svc.Stop(ctx)
		})
		h := newMux(svc)

		Convey("When a result is posted and the event is read back", func() {
			rec := do(h, http.MethodPost, "/api/record", `{"id":"past","winners":[1],"losers":[2]}`)
			ev := do(h, http.MethodGet, "/api/event/past", "")
			board := do(h, http.MethodGet, "/api/leaderboard?played=true", "")

			Convey("Then the record and leaderboard reflect it", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var d types.EventDetails
				So(json.Unmarshal(ev.Body.Bytes(), &d), ShouldBeNil)
				So(d.Record, ShouldNotBeNil)
				So(d.Record.WinningTeam, ShouldResemble, model.IDs("1"))

				var entries []types.LeaderboardEntry
				So(json.Unmarshal(board.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].ID, ShouldEqual, model.PlayerID("1"))
				So(entries[0].Name, ShouldEqual, "Ana")
			})
		})

		Convey("When a result puts a player on both teams", func() {
			w := do(h, http.MethodPost, "/api/record", `{"id":"past","winners":[1],"losers":[1]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
