package dispatch

import (
	"fmt"
	"sync"
)

// State is one linter's position in the per-run lifecycle: declared in
// the config, then acquiring its module, then ready once its contract is
// decoded, then filtered once the candidate file set has been matched
// against it, then dispatching invocations, and finally done. Acquiring,
// ready, filtered and dispatching can each fall into failed instead of
// progressing (declared cannot); filtered can also short-circuit straight
// to done when nothing matched.
type State int

const (
	StateDeclared State = iota
	StateAcquiring
	StateReady
	StateFiltered
	StateDispatching
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateFiltered:
		return "filtered"
	case StateDispatching:
		return "dispatching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var legalMoves = map[State]map[State]bool{
	StateDeclared:    {StateAcquiring: true},
	StateAcquiring:   {StateReady: true, StateFailed: true},
	StateReady:       {StateFiltered: true, StateFailed: true},
	StateFiltered:    {StateDispatching: true, StateDone: true, StateFailed: true},
	StateDispatching: {StateDone: true, StateFailed: true},
}

// Machine guards one linter's state transitions with a mutex so the
// resolver goroutine and the dispatch goroutine can both report progress
// without racing.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns a Machine starting in StateDeclared.
func NewMachine() *Machine {
	return &Machine{state: StateDeclared}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to "to", rejecting any move legalMoves doesn't list.
// StateFailed and StateDone are terminal: once reached, further
// transitions are rejected rather than silently ignored, since a caller
// attempting one is a bug worth surfacing.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDone || m.state == StateFailed {
		return fmt.Errorf("DISPATCH_STATE: cannot move from terminal state %s to %s", m.state, to)
	}
	if !legalMoves[m.state][to] {
		return fmt.Errorf("DISPATCH_STATE: illegal transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}
