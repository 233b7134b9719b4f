package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrUnknownPlayer = errors.New("player has no stored rating")
)
