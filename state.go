package avssm

import "fmt"

// State is the stream state of one connection.
type State uint8

const (
	Init State = iota
	Incoming
	Opening
	Open
	Reconfiguring
	Closing

	// NumStates is the number of rows in the transition table.
	NumStates = 6
)

var stateNames = [NumStates]string{
	Init:          "INIT",
	Incoming:      "INCOMING",
	Opening:       "OPENING",
	Open:          "OPEN",
	Reconfiguring: "RCFG",
	Closing:       "CLOSING",
}

// Valid reports whether s is one of the six stream states.
func (s State) Valid() bool {
	return s < NumStates
}

func (s State) String() string {
	return StateName(s)
}

// StateName returns the trace label of s, or "unknown" for anything that is
// not a stream state.
func StateName(s State) string {
	if !s.Valid() {
		return "unknown"
	}
	return stateNames[s]
}

// ParseState is the inverse of StateName.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Init, fmt.Errorf("%w: %q", ErrInvalidState, name)
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidState, uint8(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
