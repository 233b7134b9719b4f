package model

import "time"

// Game is the recorded result of one event.
type Game struct {
	ID          string     `json:"id"`
	WinningTeam []PlayerID `json:"winningTeam"`
	LosingTeam  []PlayerID `json:"losingTeam"`
	// Date is Unix milliseconds at recording time.
	Date int64 `json:"date"`
}

// NewGame stamps a game with the recording time.
func NewGame(id string, winners, losers []PlayerID, at time.Time) Game {
	w := make([]PlayerID, len(winners))
	copy(w, winners)
	l := make([]PlayerID, len(losers))
	copy(l, losers)
	return Game{ID: id, WinningTeam: w, LosingTeam: l, Date: at.UnixMilli()}
}

// RecordedAt returns the recording time.
func (g Game) RecordedAt() time.Time {
	return time.UnixMilli(g.Date)
}

// GameKey is the store key of a game record.
func GameKey(eventID string) string {
	return "game-" + eventID
}

// MatchResult is a reported outcome waiting to be applied.
type MatchResult struct {
	EventID string
	Winners []PlayerID
	Losers  []PlayerID
}
