// Package types contains the read shapes returned to API callers.
package types

import "github.com/okian/teamer/internal/domain/model"

// Matchup is a ranked candidate split for presentation.
type Matchup struct {
	// Teams holds player names, left team first.
	Teams [2][]string `json:"teams"`
	// IDs holds the same players by id.
	IDs [2][]model.PlayerID `json:"ids"`
	// Exposure is each team's summed exposure.
	Exposure [2]float64 `json:"exposure"`
	// Rating is the imbalance score; lower is more balanced.
	Rating float64 `json:"rating"`
}

// LeaderboardEntry is a stored player with its exposure and rank.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	model.Player
	Rating float64 `json:"rating"`
}

// NextEvent is the next scheduled event with its best candidate matchups.
type NextEvent struct {
	NextEvent     model.Event    `json:"nextEvent"`
	PossibleTeams []Matchup      `json:"possibleTeams"`
	Benched       []model.Member `json:"benched,omitempty"`
}

// EventDetails pairs an event's attendance with its recorded result, if any.
type EventDetails struct {
	EventPlayers []model.Member `json:"eventPlayers"`
	Record       *model.Game    `json:"record"`
}

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started       bool `json:"started"`
	Players       int  `json:"players"`
	Snapshots     int  `json:"snapshots"`
	QueueLength   int  `json:"queueLength"`
	QueueCapacity int  `json:"queueCapacity"`
	MaxRoster     int  `json:"maxRoster"`
	TopMatchups   int  `json:"topMatchups"`
}
