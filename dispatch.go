package avssm

import (
	"context"
	"log/slog"
)

// Logger receives the dispatcher's trace output. Replace it before any
// connection is in use.
var Logger = slog.Default()

// Execute runs one event against c: it looks up the row for c's current
// state, commits the row's next state and then runs the row's actions in
// order, so every action already observes the new state.
//
// A nil c is a no-op; the signaling layer may report events for endpoints
// that are not registered. An event or state outside the table is logged
// and dropped without touching c.
//
// Execute must not be called concurrently for the same connection, and
// action handlers must not call it synchronously for their own connection.
func Execute(c *Connection, e Event, payload any) {
	if c == nil {
		Logger.Debug("stream not registered", "event", e)
		return
	}

	from := c.state
	row, err := streamTable.Lookup(from, e)
	if err != nil {
		Logger.Error("dropping stream event", "conn", c, "event", e, "state", from, "err", err)
		return
	}

	c.state = row.next
	if Logger.Enabled(context.Background(), slog.LevelDebug) {
		Logger.Debug("stream event",
			"peer", c.peer,
			"handle", uint8(c.handle),
			"event", e,
			"state", from,
			"next", row.next,
		)
	}

	for i := 0; i < row.Len(); i++ {
		id := row.actions[i]
		if c.runner == nil {
			Logger.Error("no action runner", "conn", c, "action", id)
			break
		}
		c.runner.Run(c, id, payload)
	}

	if c.observer != nil {
		c.observer.OnTransition(c, Transition{
			Event:   e,
			From:    from,
			To:      row.next,
			Actions: row.Actions(),
		})
	}
}

// IsInit reports whether c is registered and in Init.
func IsInit(c *Connection) bool {
	return c != nil && c.state == Init
}

// IsOpening reports whether c is registered and in Opening.
func IsOpening(c *Connection) bool {
	return c != nil && c.state == Opening
}

// IsIncoming reports whether c is registered and in Incoming.
func IsIncoming(c *Connection) bool {
	return c != nil && c.state == Incoming
}

// ForceInit moves c to Init outside the table. No action runs and no
// observer is told. Used by cleanup paths that must not re-trigger
// signaling.
func ForceInit(c *Connection) {
	force(c, Init)
}

// ForceIncoming moves c to Incoming outside the table, like ForceInit.
func ForceIncoming(c *Connection) {
	force(c, Incoming)
}

func force(c *Connection, s State) {
	if c == nil {
		return
	}
	Logger.Debug("stream state override", "conn", c, "state", c.state, "next", s)
	c.state = s
}
