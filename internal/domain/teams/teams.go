package teams

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/okian/teamer/internal/domain/model"
)

// defaultMaxRoster keeps enumeration tractable: C(16, 8)/2 = 6435 matchups.
const defaultMaxRoster = 16

// Team is an ordered list of player ids.
type Team []model.PlayerID

// Matchup is one way to split a roster into two disjoint, equal-size teams.
// Left always holds the roster's first member.
type Matchup struct {
	Left  Team
	Right Team
}

// Players returns both teams' ids, left first.
func (m Matchup) Players() []model.PlayerID {
	return append(append(make([]model.PlayerID, 0, len(m.Left)+len(m.Right)), m.Left...), m.Right...)
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithMaxRoster caps the roster size accepted by Split.
func WithMaxRoster(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxRoster = n
		}
	}
}

// Generator splits rosters into candidate matchups.
type Generator struct {
	maxRoster int
}

// NewGenerator creates a generator with configuration options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{maxRoster: defaultMaxRoster}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Split returns every distinct pairing of two teams of len(roster)/2 that
// together exhaust the roster, C(N, N/2)/2 of them, in lexicographic order
// of the left team's roster positions.
func (g *Generator) Split(roster []model.PlayerID) ([]Matchup, error) {
	if err := g.validate(roster); err != nil {
		return nil, err
	}

	n := len(roster)
	half := n / 2
	out := make([]Matchup, 0, Count(n, half)/2)

	// The left team is the one holding roster[0]; enumerating only those
	// subsets visits each split exactly once.
	it := NewCombinations(n-1, half-1)
	for it.Next() {
		inLeft := make([]bool, n)
		inLeft[0] = true
		for _, i := range it.Indices() {
			inLeft[i+1] = true
		}

		left := make(Team, 0, half)
		right := make(Team, 0, half)
		for i, id := range roster {
			if inLeft[i] {
				left = append(left, id)
			} else {
				right = append(right, id)
			}
		}
		out = append(out, Matchup{Left: left, Right: right})
	}
	return out, nil
}

func (g *Generator) validate(roster []model.PlayerID) error {
	switch {
	case len(roster) == 0:
		return ErrEmptyRoster
	case len(roster)%2 != 0:
		return fmt.Errorf("%w: %d players", ErrOddRoster, len(roster))
	case len(roster) > g.maxRoster:
		return fmt.Errorf("%w: %d players, limit %d", ErrRosterTooLarge, len(roster), g.maxRoster)
	}
	if dups := lo.FindDuplicates(roster); len(dups) > 0 {
		return fmt.Errorf("%w: %v", ErrDuplicateMember, dups)
	}
	return nil
}

// Bench drops the last member of an odd roster and returns the rest and
// the benched id. Even rosters are returned unchanged with an empty id.
func Bench(roster []model.PlayerID) ([]model.PlayerID, model.PlayerID) {
	if len(roster)%2 == 0 {
		return roster, ""
	}
	last := len(roster) - 1
	return roster[:last:last], roster[last]
}
