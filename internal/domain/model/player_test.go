package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/teamer/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPlayerID(t *testing.T) {
	convey.Convey("Given JSON player ids", t, func() {
		convey.Convey("When decoding numbers and strings", func() {
			var ids []model.PlayerID
			err := json.Unmarshal([]byte(`[12345, "678", " 9 "]`), &ids)

			convey.Convey("Then both forms become strings", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ids, convey.ShouldResemble, model.IDs("12345", "678", "9"))
			})
		})

		convey.Convey("When decoding null", func() {
			var id model.PlayerID
			err := json.Unmarshal([]byte(`null`), &id)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When decoding an object", func() {
			var id model.PlayerID
			err := json.Unmarshal([]byte(`{"id":1}`), &id)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestPlayer_Apply(t *testing.T) {
	convey.Convey("Given a fresh player", t, func() {
		p := model.NewPlayer("1", "Ana", model.Skill{Mu: 25, Sigma: 8.333})

		convey.Convey("When applying a win then a loss", func() {
			first := p.Apply(model.Skill{Mu: 27, Sigma: 7.9}, true)
			second := first.Apply(model.Skill{Mu: 26, Sigma: 7.5}, false)

			convey.Convey("Then the counters add up", func() {
				convey.So(second.Games, convey.ShouldEqual, 2)
				convey.So(second.Wins, convey.ShouldEqual, 1)
				convey.So(second.Loses, convey.ShouldEqual, 1)
				convey.So(second.Wins+second.Loses, convey.ShouldEqual, second.Games)
				convey.So(second.Mu, convey.ShouldEqual, 26)
				convey.So(second.Sigma, convey.ShouldEqual, 7.5)
			})

			convey.Convey("Then history is most recent first", func() {
				convey.So(second.History, convey.ShouldHaveLength, 2)
				convey.So(second.History[0], convey.ShouldResemble, model.PlayerStats{Mu: 27, Sigma: 7.9, Games: 1, Wins: 1})
				convey.So(second.History[1], convey.ShouldResemble, model.PlayerStats{Mu: 25, Sigma: 8.333})
			})

			convey.Convey("Then the original values are untouched", func() {
				convey.So(p.Games, convey.ShouldEqual, 0)
				convey.So(p.History, convey.ShouldBeEmpty)
				convey.So(first.History, convey.ShouldHaveLength, 1)
			})
		})
	})
}

func TestPlayer_JSONLayout(t *testing.T) {
	convey.Convey("Given a player with history", t, func() {
		p := model.NewPlayer("7", "Bo", model.Skill{Mu: 25, Sigma: 8}).Apply(model.Skill{Mu: 24, Sigma: 7}, false)

		convey.Convey("When encoding it", func() {
			b, err := json.Marshal(p)
			var raw map[string]any
			convey.So(err, convey.ShouldBeNil)
			convey.So(json.Unmarshal(b, &raw), convey.ShouldBeNil)

			convey.Convey("Then history entries carry no identity fields", func() {
				hist := raw["history"].([]any)
				entry := hist[0].(map[string]any)
				convey.So(entry, convey.ShouldNotContainKey, "id")
				convey.So(entry, convey.ShouldNotContainKey, "name")
				convey.So(entry, convey.ShouldContainKey, "mu")
				convey.So(raw["loses"], convey.ShouldEqual, 1.0)
			})
		})
	})
}

func TestGame(t *testing.T) {
	convey.Convey("Given a recording time", t, func() {
		at := time.UnixMilli(1_700_000_000_123)
		winners := model.IDs("1", "2")
		g := model.NewGame("e1", winners, model.IDs("3", "4"), at)

		convey.Convey("Then the game is stamped and detached from its inputs", func() {
			winners[0] = "x"
			convey.So(g.Date, convey.ShouldEqual, int64(1_700_000_000_123))
			convey.So(g.RecordedAt().Equal(at), convey.ShouldBeTrue)
			convey.So(g.WinningTeam[0], convey.ShouldEqual, model.PlayerID("1"))
			convey.So(model.GameKey("e1"), convey.ShouldEqual, "game-e1")
		})
	})
}
