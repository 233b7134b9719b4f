package roster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/teamer/internal/domain/model"
)

const rosterYAML = `
events:
  - id: "e2"
    name: Next Sunday
    time: 2000
    rsvps:
      - {id: "1", name: Ana}
      - {id: "2", name: Ben}
  - id: "e1"
    name: Last Sunday
    time: 1000
    rsvps:
      - {id: "1", name: Ana}
      - {id: "3", name: Cai}
    attendance:
      - {id: "1", name: Ana}
`

func TestStaticSource(t *testing.T) {
	Convey("Given a roster file", t, func() {
		path := filepath.Join(t.TempDir(), "roster.yaml")
		So(os.WriteFile(path, []byte(rosterYAML), 0o600), ShouldBeNil)
		loaded, err := LoadStaticSource(path)
		So(err, ShouldBeNil)
		src := NewStaticSource(loaded.events, func() time.Time { return time.UnixMilli(1500) })
		ctx := context.Background()

		Convey("NextEvent is the earliest event not yet started", func() {
			ev, members, err := src.NextEvent(ctx)
			So(err, ShouldBeNil)
			So(ev.ID, ShouldEqual, "e2")
			So(model.MemberIDs(members), ShouldResemble, model.IDs("1", "2"))
		})

		Convey("RecentEvents lists past events newest first", func() {
			events, err := src.RecentEvents(ctx)
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 1)
			So(events[0].Name, ShouldEqual, "Last Sunday")
		})

		Convey("Attendance and RSVPs come from the event entry", func() {
			att, err := src.Attendance(ctx, "e1")
			So(err, ShouldBeNil)
			So(model.MemberIDs(att), ShouldResemble, model.IDs("1"))

			rsvps, err := src.RSVPs(ctx, "e1")
			So(err, ShouldBeNil)
			So(len(rsvps), ShouldEqual, 2)
		})

		Convey("Unknown events are reported", func() {
			_, err := src.Attendance(ctx, "nope")
			So(errors.Is(err, ErrUnknownEvent), ShouldBeTrue)
		})

		Convey("Returned members do not alias the source", func() {
			_, members, _ := src.NextEvent(ctx)
			members[0].Name = "changed"
			_, again, _ := src.NextEvent(ctx)
			So(again[0].Name, ShouldEqual, "Ana")
		})

		Convey("With every event in the past there is no next event", func() {
			late := NewStaticSource(loaded.events, func() time.Time { return time.UnixMilli(5000) })
			_, _, err := late.NextEvent(ctx)
			So(errors.Is(err, ErrNoEvents), ShouldBeTrue)
		})
	})

	Convey("Given a broken roster file", t, func() {
		path := filepath.Join(t.TempDir(), "roster.yaml")

		Convey("Unparsable content is an upstream failure", func() {
			So(os.WriteFile(path, []byte("events: [\n"), 0o600), ShouldBeNil)
			_, err := LoadStaticSource(path)
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
		})

		Convey("An event without an id is rejected", func() {
			So(os.WriteFile(path, []byte("events:\n  - name: x\n"), 0o600), ShouldBeNil)
			_, err := LoadStaticSource(path)
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
		})
	})
}
