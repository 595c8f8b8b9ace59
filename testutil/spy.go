package testutil

import (
	"sync"

	"github.com/comalice/avssm"
)

// Call is one action invocation seen by a SpyRunner.
type Call struct {
	Action avssm.ActionID
	// State is the connection's state at the moment the action ran.
	State   avssm.State
	Payload any
}

// SpyRunner is an avssm.ActionRunner that records every action it is asked
// to run. It is safe for use from the manager's executor goroutines.
type SpyRunner struct {
	mu    sync.Mutex
	calls []Call
	// Hook, when set, runs after the call is recorded.
	Hook func(c *avssm.Connection, id avssm.ActionID, payload any)
}

// NewSpyRunner returns an empty SpyRunner.
func NewSpyRunner() *SpyRunner {
	return &SpyRunner{}
}

func (s *SpyRunner) Run(c *avssm.Connection, id avssm.ActionID, payload any) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Action: id, State: c.State(), Payload: payload})
	hook := s.Hook
	s.mu.Unlock()
	if hook != nil {
		hook(c, id, payload)
	}
}

// Calls returns a copy of the recorded calls.
func (s *SpyRunner) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Actions returns the recorded action identifiers in invocation order.
func (s *SpyRunner) Actions() []avssm.ActionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]avssm.ActionID, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Action
	}
	return out
}

// Reset forgets every recorded call.
func (s *SpyRunner) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// EqualActions reports whether a and b hold the same actions in the same order.
func EqualActions(a, b []avssm.ActionID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Peer is a fixed address for tests.
var Peer = avssm.Address{0x00, 0x1a, 0x7d, 0xda, 0x71, 0x13}
