package dispatch

import "testing"

func TestStateMachineHappyPath(t *testing.T) {
	m := NewMachine()
	for _, to := range []State{StateAcquiring, StateReady, StateFiltered, StateDispatching, StateDone} {
		if err := m.Transition(to); err != nil {
			t.Fatalf("Transition(%s): %v", to, err)
		}
	}
	if m.State() != StateDone {
		t.Fatalf("expected final state done, got %s", m.State())
	}
}

func TestStateMachineRejectsIllegalMove(t *testing.T) {
	m := NewMachine()
	if err := m.Transition(StateDispatching); err == nil {
		t.Fatalf("expected declared -> dispatching to be rejected")
	}
}

func TestStateMachineTerminalIsSticky(t *testing.T) {
	m := NewMachine()
	_ = m.Transition(StateAcquiring)
	_ = m.Transition(StateFailed)
	if err := m.Transition(StateReady); err == nil {
		t.Fatalf("expected no transitions out of a terminal state")
	}
}

func TestStateMachineFilteredCanShortCircuitToDone(t *testing.T) {
	m := NewMachine()
	_ = m.Transition(StateAcquiring)
	_ = m.Transition(StateReady)
	_ = m.Transition(StateFiltered)
	if err := m.Transition(StateDone); err != nil {
		t.Fatalf("expected filtered -> done (empty match) to be legal: %v", err)
	}
}
