package model

// Skill is a (mu, sigma) skill distribution. Lower sigma means more certainty.
type Skill struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// PlayerStats is the skill and counter part of a player record. History
// entries are PlayerStats snapshots taken before an update.
type PlayerStats struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Games int     `json:"games"`
	Wins  int     `json:"wins"`
	Loses int     `json:"loses"`
}

// Player is the durable per-player record.
type Player struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Mu    float64  `json:"mu"`
	Sigma float64  `json:"sigma"`
	Games int      `json:"games"`
	Wins  int      `json:"wins"`
	Loses int      `json:"loses"`
	// History is most-recent first.
	History []PlayerStats `json:"history"`
}

// NewPlayer builds a zero-stat player with the given prior.
func NewPlayer(id PlayerID, name string, prior Skill) Player {
	return Player{
		ID:      id,
		Name:    name,
		Mu:      prior.Mu,
		Sigma:   prior.Sigma,
		History: []PlayerStats{},
	}
}

// Skill returns the player's current distribution.
func (p Player) Skill() Skill {
	return Skill{Mu: p.Mu, Sigma: p.Sigma}
}

// Stats returns the player's skill and counters without identity fields.
func (p Player) Stats() PlayerStats {
	return PlayerStats{Mu: p.Mu, Sigma: p.Sigma, Games: p.Games, Wins: p.Wins, Loses: p.Loses}
}

// Clone returns a deep copy so callers never share the history slice.
func (p Player) Clone() Player {
	c := p
	c.History = make([]PlayerStats, len(p.History))
	copy(c.History, p.History)
	return c
}

// Apply returns the player after one match: counters bumped, the new skill
// set and the pre-update stats prepended to the history.
func (p Player) Apply(next Skill, won bool) Player {
	out := p.Clone()
	out.History = append([]PlayerStats{p.Stats()}, out.History...)
	out.Games++
	if won {
		out.Wins++
	} else {
		out.Loses++
	}
	out.Mu = next.Mu
	out.Sigma = next.Sigma
	return out
}
