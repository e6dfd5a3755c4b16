package model

import (
	"context"
	"time"
)

// Error kinds carried by ErrorState.
const (
	ErrorKindTransient = "transient"
	ErrorKindBusiness  = "business"
)

// ErrorState is a surfaced failure owned by a single subsystem.
// Transient errors clear themselves after a fixed delay or on the next success.
type ErrorState struct {
	HasError  bool                            `json:"hasError"`
	Message   string                          `json:"message"`
	Kind      string                          `json:"kind"`
	Code      string                          `json:"code,omitempty"`
	AttemptID string                          `json:"attemptId,omitempty"`
	SetAt     time.Time                       `json:"setAt"`
	Retry     func(ctx context.Context) error `json:"-"`
}

// Retryable reports whether the error carries a retry operation.
func (e *ErrorState) Retryable() bool {
	return e != nil && e.HasError && e.Retry != nil
}

// RefreshState is what the refresh loop publishes to consumers.
type RefreshState struct {
	Snapshot *Snapshot   `json:"snapshot"`
	Error    *ErrorState `json:"error,omitempty"`
	Loading  bool        `json:"loading"`
	Fetching bool        `json:"fetching"`
	Live     bool        `json:"live"`
}
