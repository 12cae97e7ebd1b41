package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Transition is a named state change applied to a target account.
type Transition string

const (
	TransitionApprove    Transition = "approve"
	TransitionReject     Transition = "reject"
	TransitionActivate   Transition = "activate"
	TransitionDeactivate Transition = "deactivate"
)

// ErrTransitionNotAllowed is returned by Next when the transition does not
// apply to the current state.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// ParseTransition accepts the lower-case wire names.
func ParseTransition(raw string) (Transition, error) {
	t := Transition(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transition %q", raw)
	}
	return t, nil
}

// Valid reports whether t is a known transition.
func (t Transition) Valid() bool {
	switch t {
	case TransitionApprove, TransitionReject, TransitionActivate, TransitionDeactivate:
		return true
	}
	return false
}

// PastTense is used in user-facing summaries.
func (t Transition) PastTense() string {
	switch t {
	case TransitionApprove:
		return "Approved"
	case TransitionReject:
		return "Rejected"
	case TransitionActivate:
		return "Activated"
	case TransitionDeactivate:
		return "Deactivated"
	}
	return string(t)
}

// Next computes the state reached by applying t to from.
//
//	pending:  approve→approved, deactivate→pending, reject→rejected
//	approved: approve→approved, activate→active, deactivate→approved
//	active:   approve→active, activate→active, deactivate→approved
//
// Every other combination yields ErrTransitionNotAllowed.
func (t Transition) Next(from AccountState) (AccountState, error) {
	switch t {
	case TransitionApprove:
		switch from {
		case StatePending:
			return StateApproved, nil
		case StateApproved, StateActive:
			return from, nil
		}
	case TransitionActivate:
		switch from {
		case StateApproved, StateActive:
			return StateActive, nil
		}
	case TransitionDeactivate:
		switch from {
		case StatePending:
			return StatePending, nil
		case StateApproved, StateActive:
			return StateApproved, nil
		}
	case TransitionReject:
		if from == StatePending {
			return StateRejected, nil
		}
	}
	return from, fmt.Errorf("%w: %s from %s", ErrTransitionNotAllowed, t, from)
}
