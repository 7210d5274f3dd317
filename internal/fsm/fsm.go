// Package fsm defines the load lifecycle shared by the property-inspector pickers.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateRetrying State = "retrying"
	StateClosed   State = "closed"
)

const (
	EventLoad   Event = "load"
	EventLoaded Event = "loaded"
	EventFail   Event = "fail"
	EventClose  Event = "close"
)

// Transition returns the next state, or the current state plus an error when
// the event is not allowed. A load while already loading is rejected, which is
// how overlapping loads are coalesced.
func Transition(current State, event Event) (State, error) {
	if event == EventClose {
		return StateClosed, nil
	}

	switch current {
	case StateIdle, StateReady, StateRetrying:
		switch event {
		case EventLoad:
			return StateLoading, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateLoading:
		switch event {
		case EventLoaded:
			return StateReady, nil
		case EventFail:
			return StateRetrying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateClosed:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
