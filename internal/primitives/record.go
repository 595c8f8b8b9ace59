package primitives

import (
	"time"

	"github.com/google/uuid"

	"github.com/comalice/avssm"
)

// TransitionRecord is the serializable account of one completed dispatch.
// Records are immutable once built; publishers must not modify them.
type TransitionRecord struct {
	ID           string        `json:"id" yaml:"id"`
	SessionID    string        `json:"sessionID" yaml:"sessionID"`
	Handle       uint8         `json:"handle" yaml:"handle"`
	Peer         avssm.Address `json:"peer" yaml:"peer"`
	Event        string        `json:"event" yaml:"event"`
	From         avssm.State   `json:"from" yaml:"from"`
	To           avssm.State   `json:"to" yaml:"to"`
	Actions      []string      `json:"actions,omitempty" yaml:"actions,omitempty"`
	TableVersion string        `json:"tableVersion" yaml:"tableVersion"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
}

// NewTransitionRecord describes t as it happened on c within session.
func NewTransitionRecord(session string, c *avssm.Connection, t avssm.Transition) TransitionRecord {
	rec := TransitionRecord{
		ID:           uuid.NewString(),
		SessionID:    session,
		Handle:       uint8(c.Handle()),
		Peer:         c.Peer(),
		Event:        t.Event.String(),
		From:         t.From,
		To:           t.To,
		TableVersion: StreamTableVersion(),
		Timestamp:    time.Now(),
	}
	for _, id := range t.Actions {
		rec.Actions = append(rec.Actions, id.String())
	}
	return rec
}

// Changed reports whether the dispatch moved the connection.
func (r TransitionRecord) Changed() bool {
	return r.From != r.To
}
