package model

import "time"

// VoteRecord is the single persisted proof of which contestant this client voted for.
type VoteRecord struct {
	ContestantID string `json:"contestantId"`
	HasVoted     bool   `json:"hasVoted"`
	Timestamp    int64  `json:"timestamp"` // epoch milliseconds
}

// NewVoteRecord builds the record written after an accepted vote.
func NewVoteRecord(contestantID string, at time.Time) *VoteRecord {
	return &VoteRecord{
		ContestantID: contestantID,
		HasVoted:     true,
		Timestamp:    at.UnixMilli(),
	}
}

// Valid reports whether a decoded record can be trusted as a cast vote.
func (r *VoteRecord) Valid() bool {
	return r != nil && r.HasVoted && r.ContestantID != "" && r.Timestamp > 0
}

// VoteStatus is the contestant-scoped view of the global vote record.
type VoteStatus struct {
	ContestantID      string      `json:"contestantId"`
	HasVoted          bool        `json:"hasVoted"`
	VotedForThis      bool        `json:"votedForThis"`
	VotedContestantID string      `json:"votedContestantId,omitempty"`
	IsSubmitting      bool        `json:"isSubmitting"`
	Error             *ErrorState `json:"error,omitempty"`
	HasVotedForOther  bool        `json:"hasVotedForOther"`
}

// VoteResponse is the API response after an accepted vote.
type VoteResponse struct {
	Success bool        `json:"success"`
	Record  *VoteRecord `json:"record"`
}
