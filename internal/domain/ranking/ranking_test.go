package ranking_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/internal/domain/ranking"
	"github.com/okian/teamer/internal/domain/rating"
	"github.com/okian/teamer/internal/domain/teams"
	. "github.com/smartystreets/goconvey/convey"
)

// muExposer exposes the mean only, which keeps expected sums readable.
type muExposer struct{}

func (muExposer) Expose(s model.Skill) float64 { return s.Mu }

func playersByID(mus map[string]float64) map[model.PlayerID]model.Player {
	out := make(map[model.PlayerID]model.Player, len(mus))
	for id, mu := range mus {
		out[model.PlayerID(id)] = model.NewPlayer(model.PlayerID(id), "p"+id, model.Skill{Mu: mu, Sigma: 1})
	}
	return out
}

func TestRanker_Rank(t *testing.T) {
	Convey("Given four players with known skill", t, func() {
		players := playersByID(map[string]float64{"1": 10, "2": 20, "3": 30, "4": 40})
		matchups, err := teams.NewGenerator().Split(model.IDs("1", "2", "3", "4"))
		So(err, ShouldBeNil)
		r := ranking.NewRanker(muExposer{})

		Convey("When ranking the three splits", func() {
			got, err := r.Rank(matchups, players)

			Convey("Then the most balanced split comes first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				// {1,4} vs {2,3}: 50 vs 50
				So(got[0].IDs[0], ShouldResemble, model.IDs("1", "4"))
				So(got[0].Rating, ShouldEqual, 0.0)
				So(got[0].Teams[0], ShouldResemble, []string{"p1", "p4"})
				So(got[0].Exposure, ShouldResemble, [2]float64{50, 50})
				// {1,3} vs {2,4}: 40 vs 60, {1,2} vs {3,4}: 30 vs 70
				So(got[1].Rating, ShouldEqual, 20.0)
				So(got[2].Rating, ShouldEqual, 40.0)
			})
		})

		Convey("When a player is missing", func() {
			delete(players, "3")
			_, err := r.Rank(matchups, players)

			Convey("Then it fails with ErrUnknownPlayer", func() {
				So(errors.Is(err, ranking.ErrUnknownPlayer), ShouldBeTrue)
			})
		})
	})

	Convey("Given ten players", t, func() {
		mus := map[string]float64{}
		ids := make([]model.PlayerID, 10)
		for i := 0; i < 10; i++ {
			id := fmt.Sprint(i)
			mus[id] = float64(i * i)
			ids[i] = model.PlayerID(id)
		}
		players := playersByID(mus)
		matchups, err := teams.NewGenerator().Split(ids)
		So(err, ShouldBeNil)

		Convey("Then at most five come back, non-decreasing", func() {
			got, err := ranking.NewRanker(muExposer{}).Rank(matchups, players)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 5)
			for i := 1; i < len(got); i++ {
				So(got[i].Rating, ShouldBeGreaterThanOrEqualTo, got[i-1].Rating)
			}
		})

		Convey("Then the limit is configurable", func() {
			got, err := ranking.NewRanker(muExposer{}, ranking.WithLimit(2)).Rank(matchups, players)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})
	})

	Convey("Given identical players", t, func() {
		players := playersByID(map[string]float64{"1": 5, "2": 5, "3": 5, "4": 5})
		matchups, _ := teams.NewGenerator().Split(model.IDs("1", "2", "3", "4"))

		Convey("Then ties keep enumeration order", func() {
			got, err := ranking.NewRanker(muExposer{}).Rank(matchups, players)
			So(err, ShouldBeNil)
			So(got[0].IDs[0], ShouldResemble, model.IDs("1", "2"))
			So(got[1].IDs[0], ShouldResemble, model.IDs("1", "3"))
			So(got[2].IDs[0], ShouldResemble, model.IDs("1", "4"))
		})
	})
}

func TestRanker_Leaderboard(t *testing.T) {
	Convey("Given players with different certainty", t, func() {
		r := ranking.NewRanker(rating.NewOpenSkillRater())
		p1 := model.Player{ID: "p1", Name: "One", Mu: 30, Sigma: 2, Games: 3, Wins: 2, Loses: 1}
		p2 := model.Player{ID: "p2", Name: "Two", Mu: 25, Sigma: 1, Games: 1, Wins: 1}
		fresh := model.NewPlayer("p3", "Three", model.Skill{Mu: 25, Sigma: 25.0 / 3.0})

		Convey("When building the leaderboard", func() {
			got := r.Leaderboard([]model.Player{fresh, p2, p1})

			Convey("Then players are ordered by exposure, descending", func() {
				So(got, ShouldHaveLength, 3)
				So(got[0].ID, ShouldEqual, model.PlayerID("p1"))
				So(got[1].ID, ShouldEqual, model.PlayerID("p2"))
				So(got[2].ID, ShouldEqual, model.PlayerID("p3"))
				So(got[0].Rating, ShouldBeGreaterThan, got[1].Rating)
				So(got[0].Rank, ShouldEqual, 1)
				So(got[2].Rank, ShouldEqual, 3)
			})

			Convey("Then zero-game players are included until filtered", func() {
				So(ranking.Played(got), ShouldHaveLength, 2)
			})
		})

		Convey("When exposures tie", func() {
			a := model.Player{ID: "b", Mu: 10, Sigma: 1}
			b := model.Player{ID: "a", Mu: 10, Sigma: 1}
			got := r.Leaderboard([]model.Player{a, b})

			Convey("Then ids break the tie", func() {
				So(got[0].ID, ShouldEqual, model.PlayerID("a"))
				So(got[1].ID, ShouldEqual, model.PlayerID("b"))
			})
		})
	})
}
