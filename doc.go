// Package avssm implements the stream state machine that sequences the
// lifecycle of one A2DP/AVDTP streaming endpoint.
//
// The machine is a fixed table indexed by (State, Event). Every row names the
// next state and up to two actions. Execute commits the next state first and
// then runs the row's actions, in order, through the ActionRunner the owning
// connection manager supplied:
//
//	conn := avssm.NewConnection(1, peer, handlers)
//	avssm.Execute(conn, avssm.EvAPIOpen, nil) // Init -> Opening, runs ActStartDiscovery
//
// The table is immutable and shared by every connection. A Connection is not
// safe for concurrent use: callers serialize event delivery per connection
// (see internal/core.Manager for the executor this module ships with).
package avssm
