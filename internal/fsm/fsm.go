// Package fsm defines the overlay animation lifecycle states and their legal transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

const (
	EventTrigger Event = "trigger"
	EventElapsed Event = "elapsed"
)

// Transition returns the state reached from current by event.
//
// A trigger is accepted in every state so that a trigger while active restarts
// the countdown instead of being rejected.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventTrigger:
			return StateActive, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateActive:
		switch event {
		case EventTrigger:
			return StateActive, nil
		case EventElapsed:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
