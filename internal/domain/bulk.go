package domain

import "fmt"

// FailureReason classifies why a single target was not transitioned.
type FailureReason string

const (
	ReasonNotFound          FailureReason = "NOT_FOUND"
	ReasonOutOfScope        FailureReason = "OUT_OF_SCOPE"
	ReasonInvalidTransition FailureReason = "INVALID_TRANSITION"
	ReasonBackendError      FailureReason = "BACKEND_ERROR"
)

// TransitionFailure records one target that could not be transitioned.
type TransitionFailure struct {
	UserID  string
	Reason  FailureReason
	Message string
}

// TransitionChange records a target whose stored state changed.
type TransitionChange struct {
	UserID string
	From   AccountState
	To     AccountState
}

// BulkResult aggregates the outcome of a bulk transition.
type BulkResult struct {
	Transition Transition
	Requested  int
	Succeeded  int
	Failed     int
	Failures   []TransitionFailure
	Changed    []TransitionChange
}

// Summary renders the caller-facing message.
func (r BulkResult) Summary() string {
	if r.Failed > 0 {
		return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
	}
	return fmt.Sprintf("%s %d user(s)", r.Transition.PastTense(), r.Succeeded)
}
