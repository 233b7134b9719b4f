// Package ranking orders candidate matchups by balance and players by skill.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/internal/domain/teams"
	"github.com/okian/teamer/internal/domain/types"
)

const defaultLimit = 5

// Exposer turns a skill distribution into a comparable number.
type Exposer interface {
	Expose(s model.Skill) float64
}

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithLimit sets how many of the most balanced matchups Rank returns.
func WithLimit(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.limit = n
		}
	}
}

// Ranker scores matchups and builds leaderboards.
type Ranker struct {
	exposer Exposer
	limit   int
}

// NewRanker creates a ranker backed by exposer.
func NewRanker(exposer Exposer, opts ...Option) *Ranker {
	r := &Ranker{exposer: exposer, limit: defaultLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every matchup by the absolute difference of its teams'
// summed exposures and returns the most balanced ones, ascending. Ties
// keep enumeration order.
func (r *Ranker) Rank(matchups []teams.Matchup, players map[model.PlayerID]model.Player) ([]types.Matchup, error) {
	scored := make([]types.Matchup, 0, len(matchups))
	for _, m := range matchups {
		left, err := r.teamSide(m.Left, players)
		if err != nil {
			return nil, err
		}
		right, err := r.teamSide(m.Right, players)
		if err != nil {
			return nil, err
		}
		scored = append(scored, types.Matchup{
			Teams:    [2][]string{left.names, right.names},
			IDs:      [2][]model.PlayerID{append([]model.PlayerID(nil), m.Left...), append([]model.PlayerID(nil), m.Right...)},
			Exposure: [2]float64{left.exposure, right.exposure},
			Rating:   math.Abs(left.exposure - right.exposure),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Rating < scored[j].Rating
	})
	if len(scored) > r.limit {
		scored = scored[:r.limit]
	}
	return scored, nil
}

type side struct {
	names    []string
	exposure float64
}

func (r *Ranker) teamSide(team teams.Team, players map[model.PlayerID]model.Player) (side, error) {
	s := side{names: make([]string, 0, len(team))}
	for _, id := range team {
		p, ok := players[id]
		if !ok {
			return side{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
		s.names = append(s.names, p.Name)
		s.exposure += r.exposer.Expose(p.Skill())
	}
	return s, nil
}

// Leaderboard ranks every player by exposure, highest first. Equal
// exposures are ordered by id so the listing is a total order.
func (r *Ranker) Leaderboard(players []model.Player) []types.LeaderboardEntry {
	entries := make([]types.LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = types.LeaderboardEntry{Player: p.Clone(), Rating: r.exposer.Expose(p.Skill())}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].ID < entries[j].ID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Played drops players who have not finished a game yet.
func Played(entries []types.LeaderboardEntry) []types.LeaderboardEntry {
	return lo.Filter(entries, func(e types.LeaderboardEntry, _ int) bool { return e.Games > 0 })
}
