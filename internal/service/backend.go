package service

import (
	"context"

	"github.com/pixelrelay/vote-system/internal/model"
)

// Backend is the API the core talks to. The Simulator is the in-process
// implementation; tests inject scripted ones.
type Backend interface {
	// FetchSnapshot returns the current contestants and voting window.
	FetchSnapshot(ctx context.Context) (*model.Snapshot, error)
	// SubmitVote registers one vote for contestantID.
	SubmitVote(ctx context.Context, contestantID string) error
}
