package teams

import "errors"

// Sentinel kinds for team generation errors.
var (
	ErrEmptyRoster     = errors.New("roster is empty")
	ErrOddRoster       = errors.New("roster has an odd number of players")
	ErrRosterTooLarge  = errors.New("roster too large to enumerate")
	ErrDuplicateMember = errors.New("roster lists a player more than once")
)
