package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrEmptyTeam   = errors.New("team has no players")
	ErrRatingShape = errors.New("rating result does not match teams")
)
