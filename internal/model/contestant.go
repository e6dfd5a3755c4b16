package model

import "time"

// Contestant is a performer that can receive votes.
type Contestant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Talent    string `json:"talent"`
	ImageURL  string `json:"imageUrl"`
	VoteCount int    `json:"voteCount"`
	IsActive  bool   `json:"isActive"`
}

// VotingWindow is the time range during which votes are accepted.
type VotingWindow struct {
	IsOpen    bool      `json:"isOpen"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Snapshot is one successfully fetched view of contestants and window status.
// Each successful poll replaces the previous snapshot wholesale.
type Snapshot struct {
	Contestants  []Contestant `json:"contestants"`
	VotingWindow VotingWindow `json:"votingWindow"`
	FetchedAt    time.Time    `json:"fetchedAt"`
}

// Clone returns a deep copy so callers never share the contestant slice.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Contestants = make([]Contestant, len(s.Contestants))
	copy(out.Contestants, s.Contestants)
	return &out
}

// Contestant looks up a contestant by ID.
func (s *Snapshot) Contestant(id string) (Contestant, bool) {
	if s == nil {
		return Contestant{}, false
	}
	for _, c := range s.Contestants {
		if c.ID == id {
			return c, true
		}
	}
	return Contestant{}, false
}
