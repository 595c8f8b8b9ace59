package avssm

import (
	"fmt"
	"net"
)

// Handle identifies a registered stream endpoint.
type Handle uint8

// Address is a Bluetooth device address.
type Address [6]byte

// ParseAddress parses "aa:bb:cc:dd:ee:ff" (or '-' separated) notation.
func ParseAddress(s string) (Address, error) {
	var a Address
	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(hw) != len(a) {
		return a, fmt.Errorf("parse address %q: want %d bytes, got %d", s, len(a), len(hw))
	}
	copy(a[:], hw)
	return a, nil
}

func (a Address) String() string {
	return net.HardwareAddr(a[:]).String()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Transition describes one completed dispatch.
type Transition struct {
	Event   Event
	From    State
	To      State
	Actions []ActionID
}

// Observer is told about every completed dispatch, after the last action of
// the dispatch has returned. Overrides are not reported.
type Observer interface {
	OnTransition(c *Connection, t Transition)
}

// Connection is the control block of one stream endpoint. Its state changes
// only through Execute, ForceInit and ForceIncoming.
type Connection struct {
	handle   Handle
	peer     Address
	state    State
	runner   ActionRunner
	observer Observer
}

// ConnOption configures a Connection at construction.
type ConnOption func(*Connection)

// WithInitialState starts the connection in s instead of Init. It is meant
// for restoring a persisted endpoint; invalid states are ignored.
func WithInitialState(s State) ConnOption {
	return func(c *Connection) {
		if s.Valid() {
			c.state = s
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) ConnOption {
	return func(c *Connection) {
		c.observer = o
	}
}

// NewConnection creates a connection in Init whose actions are executed by
// runner.
func NewConnection(handle Handle, peer Address, runner ActionRunner, opts ...ConnOption) *Connection {
	c := &Connection{
		handle: handle,
		peer:   peer,
		runner: runner,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) Handle() Handle { return c.handle }
func (c *Connection) Peer() Address  { return c.peer }

// State returns the current stream state.
func (c *Connection) State() State { return c.state }

func (c *Connection) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s/0x%02x", c.peer, uint8(c.handle))
}
