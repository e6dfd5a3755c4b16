package service

import (
	"context"
	"errors"

	"github.com/pixelrelay/vote-system/internal/model"
	"github.com/pixelrelay/vote-system/internal/repository"
)

var (
	// ErrNetwork is a transient backend failure; always retryable.
	ErrNetwork = errors.New("network error")
	// ErrAlreadyVoted means this client already holds a vote record.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrWindowClosed means the voting window is not accepting votes.
	ErrWindowClosed = errors.New("voting window closed")
	// ErrSubmitInProgress rejects a submission while another is outstanding.
	ErrSubmitInProgress = errors.New("vote submission already in progress")
	// ErrResetDisabled is returned by ResetVote unless reset was explicitly enabled.
	ErrResetDisabled = errors.New("vote reset disabled")
	// ErrNothingToRetry means there is no retryable error for the contestant.
	ErrNothingToRetry = errors.New("nothing to retry")
	// ErrUnknownContestant means the backend does not know an active contestant with that ID.
	ErrUnknownContestant = errors.New("unknown contestant")
	// ErrFetchInFlight means a snapshot fetch is already outstanding.
	ErrFetchInFlight = errors.New("snapshot fetch already in flight")
	// ErrUnexpected wraps a recovered panic from a collaborator.
	ErrUnexpected = errors.New("unexpected failure")
)

// Error codes shared by ErrorState and the API error envelope.
const (
	CodeAlreadyVoted      = "ALREADY_VOTED"
	CodeWindowClosed      = "WINDOW_CLOSED"
	CodeSubmitInProgress  = "SUBMIT_IN_PROGRESS"
	CodeNetworkError      = "NETWORK_ERROR"
	CodeStorageError      = "STORAGE_ERROR"
	CodeUnknownContestant = "UNKNOWN_CONTESTANT"
	CodeResetDisabled     = "RESET_DISABLED"
	CodeNothingToRetry    = "NOTHING_TO_RETRY"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorCode maps an error onto its API code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		return CodeAlreadyVoted
	case errors.Is(err, ErrWindowClosed):
		return CodeWindowClosed
	case errors.Is(err, ErrSubmitInProgress), errors.Is(err, ErrFetchInFlight):
		return CodeSubmitInProgress
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return CodeNetworkError
	case errors.Is(err, repository.ErrStorage):
		return CodeStorageError
	case errors.Is(err, ErrUnknownContestant):
		return CodeUnknownContestant
	case errors.Is(err, ErrResetDisabled):
		return CodeResetDisabled
	case errors.Is(err, ErrNothingToRetry):
		return CodeNothingToRetry
	default:
		return CodeInternal
	}
}

// ErrorKind classifies err as a business-rule or transient failure.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrWindowClosed),
		errors.Is(err, ErrUnknownContestant):
		return model.ErrorKindBusiness
	default:
		return model.ErrorKindTransient
	}
}

// UserMessage is the text surfaced in an ErrorState and in API error bodies.
func UserMessage(err error) string {
	switch ErrorCode(err) {
	case CodeAlreadyVoted:
		return "You have already voted."
	case CodeWindowClosed:
		return "Voting is closed."
	case CodeNetworkError:
		return "Network error, please try again."
	case CodeStorageError:
		return "Could not save your vote on this device, please try again."
	case CodeUnknownContestant:
		return "This contestant is not accepting votes."
	default:
		return err.Error()
	}
}
