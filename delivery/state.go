package delivery

import "fmt"

/* State represents the delivery state machine for one job
 * Follows: Created -> InFlight -> Success/RetryScheduled/TerminalFailure
 */
type State int

const (
	Created State = iota + 1
	InFlight
	Success
	RetryScheduled
	TerminalFailure
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case InFlight:
		return "in_flight"
	case Success:
		return "success"
	case RetryScheduled:
		return "retry_scheduled"
	case TerminalFailure:
		return "terminal_failure"
	default:
		return "unknown"
	}
}

// Validate checks if the state is valid
func (s State) Validate() error {
	if s < Created || s > TerminalFailure {
		return fmt.Errorf("invalid state: %d", s)
	}
	return nil
}

// IsFinal returns true if the state is a terminal state
func (s State) IsFinal() bool {
	return s == Success || s == TerminalFailure
}
