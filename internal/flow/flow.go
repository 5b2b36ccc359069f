// Package flow models the lifecycle of one interactive action (booking a task,
// sending a first message) so every transition is explicit.
package flow

import "fmt"

// Phase is the state of an interactive flow.
type Phase string

const (
	Idle       Phase = "idle"
	Confirming Phase = "confirming"
	Sending    Phase = "sending"
	Succeeded  Phase = "succeeded"
	Failed     Phase = "failed"
)

var transitions = map[Phase][]Phase{
	Idle:       {Confirming, Sending},
	Confirming: {Idle, Sending},
	Sending:    {Succeeded, Failed},
	Succeeded:  {Idle},
	Failed:     {Idle, Confirming, Sending},
}

// State is a flow phase plus the failure reason when Failed.
type State struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

// New returns an Idle flow.
func New() State {
	return State{Phase: Idle}
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

func (s State) move(to Phase, reason string) (State, error) {
	if !CanTransition(s.Phase, to) {
		return s, fmt.Errorf("flow: %s -> %s not allowed", s.Phase, to)
	}
	return State{Phase: to, Reason: reason}, nil
}

// Confirm asks the user to confirm the action.
func (s State) Confirm() (State, error) { return s.move(Confirming, "") }

// Cancel returns to Idle.
func (s State) Cancel() (State, error) { return s.move(Idle, "") }

// Send marks the request as in flight. Actions are disabled while Sending.
func (s State) Send() (State, error) { return s.move(Sending, "") }

// Succeed completes an in-flight request.
func (s State) Succeed() (State, error) { return s.move(Succeeded, "") }

// Fail completes an in-flight request with reason.
func (s State) Fail(reason string) (State, error) { return s.move(Failed, reason) }

// Busy reports whether user actions must be disabled.
func (s State) Busy() bool {
	return s.Phase == Sending
}
