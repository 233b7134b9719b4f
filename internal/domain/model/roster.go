package model

// Event is a scheduled or past meetup as described by the roster source.
type Event struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Time         int64  `json:"time" yaml:"time"`
	LocalDate    string `json:"local_date,omitempty" yaml:"local_date"`
	LocalTime    string `json:"local_time,omitempty" yaml:"local_time"`
	YesRSVPCount int    `json:"yes_rsvp_count,omitempty" yaml:"yes_rsvp_count"`
}

// Member is a roster entry: someone who RSVP'd or attended.
type Member struct {
	ID   PlayerID `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
}

// MemberIDs returns the ids of members in roster order.
func MemberIDs(members []Member) []PlayerID {
	ids := make([]PlayerID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}
