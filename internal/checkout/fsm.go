// Package checkout drives an unpersisted booking draft through payment and
// booking creation.
package checkout

import "errors"

// State is the checkout step.
type State string

const (
	StateDrafting        State = "drafting"
	StateAwaitingPayment State = "awaiting_payment"
	StateVerifying       State = "verifying"
	StateBookingCreating State = "booking_creating"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var ErrInvalidTransition = errors.New("invalid checkout transition")

// FSM holds the allowed checkout transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the checkout FSM. Every non-terminal step may fail.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateDrafting:        {StateAwaitingPayment, StateFailed},
			StateAwaitingPayment: {StateVerifying, StateFailed},
			StateVerifying:       {StateBookingCreating, StateFailed},
			StateBookingCreating: {StateSucceeded, StateFailed},
			StateSucceeded:       {},
			StateFailed:          {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
