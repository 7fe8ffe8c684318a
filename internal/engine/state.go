package engine

import (
	"fmt"
	"log/slog"
)

// State is a step of the expense workflow.
type State string

// Workflow states.
const (
	StateStart                 State = "start"
	StateParsing               State = "parsing"
	StateValidating            State = "validating"
	StateSaving                State = "saving"
	StateClarifying            State = "clarifying"
	StateSuccess               State = "success"
	StateClarificationReturned State = "clarification_returned"
	StateFailed                State = "failed"
)

// transitions is the closed set of allowed moves. Terminal states have no entry.
var transitions = map[State][]State{
	StateStart:      {StateParsing, StateFailed},
	StateParsing:    {StateValidating, StateClarifying, StateFailed},
	StateValidating: {StateSaving, StateClarifying},
	StateSaving:     {StateSuccess, StateFailed},
	StateClarifying: {StateClarificationReturned, StateFailed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks one run through the workflow.
type machine struct {
	logger *slog.Logger
	state  State
	trace  []State
}

func newMachine(logger *slog.Logger) *machine {
	return &machine{
		logger: logger,
		state:  StateStart,
		trace:  []State{StateStart},
	}
}

// to moves the machine to next. An illegal move leaves the state unchanged.
func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("illegal transition %s -> %s", m.state, next)
	}
	m.logger.Debug("state transition", "from", m.state, "to", next)
	m.state = next
	m.trace = append(m.trace, next)
	return nil
}
