// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PlayerID is the stable external identifier of a player. Roster sources
// hand out numeric ids, so JSON decoding accepts a number or a string.
type PlayerID string

// UnmarshalJSON decodes a JSON string or number into a PlayerID.
func (id *PlayerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("player id: empty value")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("player id: %w", err)
		}
		*id = PlayerID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	*id = PlayerID(n.String())
	return nil
}

// String returns the id as a plain string.
func (id PlayerID) String() string { return string(id) }

// IDs converts plain strings into player ids.
func IDs(ss ...string) []PlayerID {
	out := make([]PlayerID, len(ss))
	for i, s := range ss {
		out[i] = PlayerID(s)
	}
	return out
}
