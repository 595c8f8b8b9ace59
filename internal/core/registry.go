// Package core runs stream connections: it owns the registry of endpoints
// and gives each one its own serializing executor, so events for one
// connection are dispatched strictly in order and run to completion.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/primitives"
)

var (
	ErrNotFound  = errors.New("stream endpoint not registered")
	ErrExists    = errors.New("stream endpoint already registered")
	ErrClosed    = errors.New("stream manager closed")
	ErrQueueFull = errors.New("event queue full (backpressure)")
)

// Publisher receives a record of every completed dispatch.
type Publisher interface {
	Publish(ctx context.Context, rec primitives.TransitionRecord) error
	Close() error
}

// Persister stores the last known state of each endpoint.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
}

// EventSource feeds events from outside the signaling layer, timers for
// example, into the manager.
type EventSource interface {
	Events() <-chan Delivery
}

// Delivery is one event addressed to one endpoint.
type Delivery struct {
	Handle  avssm.Handle
	Event   avssm.Event
	Payload any
}

// Snapshot is the persisted state of one endpoint.
type Snapshot struct {
	Handle       uint8         `json:"handle" yaml:"handle"`
	Peer         avssm.Address `json:"peer" yaml:"peer"`
	SessionID    string        `json:"sessionID" yaml:"sessionID"`
	State        avssm.State   `json:"state" yaml:"state"`
	TableVersion string        `json:"tableVersion" yaml:"tableVersion"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
}

// Key identifies the snapshot in a Persister.
func (s Snapshot) Key() string {
	return SnapshotKey(s.Peer, avssm.Handle(s.Handle))
}

// SnapshotKey is "<peer without colons>-<handle hex>", safe as a file name.
func SnapshotKey(peer avssm.Address, handle avssm.Handle) string {
	return fmt.Sprintf("%s-%02x", strings.ReplaceAll(peer.String(), ":", ""), uint8(handle))
}
