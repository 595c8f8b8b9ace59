// Package primitives holds the plain data shared by the stream manager and
// its adapters: configuration, transition records and the serializable view
// of the transition table.
//
// Nothing here runs the state machine; see the root avssm package for the
// table and dispatcher and internal/core for the per-connection executor.
package primitives
