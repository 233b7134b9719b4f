// Package rating adapts the Bayesian team rating model used to update player
// skill after a match and to derive a sortable exposure from a skill.
package rating

import (
	"fmt"

	"github.com/intinig/go-openskill/rating"
	"github.com/intinig/go-openskill/types"

	"github.com/okian/teamer/internal/domain/model"
)

// Default prior, matching the model's own defaults.
const (
	defaultMu    = 25.0
	defaultSigma = 25.0 / 3.0
)

// Rater is the two-team rating primitive.
type Rater interface {
	// Rate returns updated skills for both teams, assuming winners beat
	// losers. Results keep the per-player order of the inputs.
	Rate(winners, losers []model.Skill) ([]model.Skill, []model.Skill, error)
	// Expose returns a single conservative, comparable skill number.
	Expose(s model.Skill) float64
	// Default returns the prior for a brand-new player.
	Default() model.Skill
}

// Option applies a configuration option to the OpenSkillRater.
type Option func(*OpenSkillRater)

// WithPrior sets the default distribution for new players.
func WithPrior(mu, sigma float64) Option {
	return func(r *OpenSkillRater) {
		if sigma > 0 {
			r.mu = mu
			r.sigma = sigma
		}
	}
}

// WithTau sets the additive dynamics factor that keeps sigma from collapsing.
func WithTau(tau float64) Option {
	return func(r *OpenSkillRater) {
		if tau > 0 {
			r.tau = tau
		}
	}
}

// OpenSkillRater implements Rater on the Weng-Lin (OpenSkill) model.
type OpenSkillRater struct {
	mu    float64
	sigma float64
	tau   float64
}

// NewOpenSkillRater creates a rater with configuration options.
func NewOpenSkillRater(opts ...Option) *OpenSkillRater {
	r := &OpenSkillRater{
		mu:    defaultMu,
		sigma: defaultSigma,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *OpenSkillRater) options() *types.OpenSkillOptions {
	mu, sigma := r.mu, r.sigma
	o := &types.OpenSkillOptions{
		Mu:    &mu,
		Sigma: &sigma,
	}
	if r.tau > 0 {
		tau := r.tau
		o.Tau = &tau
	}
	return o
}

// Rate applies one win of winners over losers.
func (r *OpenSkillRater) Rate(winners, losers []model.Skill) ([]model.Skill, []model.Skill, error) {
	if len(winners) == 0 || len(losers) == 0 {
		return nil, nil, ErrEmptyTeam
	}

	// Team order is the finishing order: index 0 won.
	teams := []types.Team{toTeam(winners), toTeam(losers)}
	rated := rating.Rate(teams, r.options())

	if len(rated) != 2 || len(rated[0]) != len(winners) || len(rated[1]) != len(losers) {
		return nil, nil, fmt.Errorf("%w: got %d teams for %d+%d players", ErrRatingShape, len(rated), len(winners), len(losers))
	}
	return fromTeam(rated[0]), fromTeam(rated[1]), nil
}

// Expose returns mu minus three sigmas.
func (r *OpenSkillRater) Expose(s model.Skill) float64 {
	return rating.Ordinal(types.Rating{Mu: s.Mu, Sigma: s.Sigma})
}

// Default returns the configured prior.
func (r *OpenSkillRater) Default() model.Skill {
	d := rating.NewWithOptions(r.options())
	return model.Skill{Mu: d.Mu, Sigma: d.Sigma}
}

func toTeam(skills []model.Skill) types.Team {
	team := make(types.Team, len(skills))
	for i, s := range skills {
		team[i] = types.Rating{Mu: s.Mu, Sigma: s.Sigma}
	}
	return team
}

func fromTeam(team types.Team) []model.Skill {
	out := make([]model.Skill, len(team))
	for i, r := range team {
		out[i] = model.Skill{Mu: r.Mu, Sigma: r.Sigma}
	}
	return out
}
