package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/teamer/internal/domain/model"
	types "github.com/okian/teamer/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLeaderboardEntry_JSON(t *testing.T) {
	Convey("Given a leaderboard entry", t, func() {
		e := types.LeaderboardEntry{
			Rank:   1,
			Player: model.NewPlayer("42", "Ana", model.Skill{Mu: 25, Sigma: 8}),
			Rating: 1.5,
		}

		Convey("When encoding it", func() {
			b, err := json.Marshal(e)
			var raw map[string]any
			So(err, ShouldBeNil)
			So(json.Unmarshal(b, &raw), ShouldBeNil)

			Convey("Then player fields are flattened next to rank and rating", func() {
				So(raw["id"], ShouldEqual, "42")
				So(raw["name"], ShouldEqual, "Ana")
				So(raw["rank"], ShouldEqual, 1.0)
				So(raw["rating"], ShouldEqual, 1.5)
				So(raw, ShouldContainKey, "history")
			})
		})
	})
}

func TestEventDetails_JSON(t *testing.T) {
	Convey("Given event details without a recorded game", t, func() {
		d := types.EventDetails{EventPlayers: []model.Member{{ID: "1", Name: "Ana"}}}

		Convey("Then record encodes as null", func() {
			b, err := json.Marshal(d)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"record":null`)
		})
	})
}
