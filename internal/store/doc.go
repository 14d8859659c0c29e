// Package store holds the snapshot state for a watched table.
//
// This package is internal to TablePulse and manages the in-memory pair of
// (last-good rows, last error) that the rendered view is derived from. It
// implements a publish-subscribe pattern for pushing view updates to
// connected clients.
//
// The main components are:
//
//   - [SnapshotStore]: Interface defining snapshot and subscription operations
//   - [MemoryStore]: In-memory implementation with pub/sub
//   - [Snapshot]: Immutable view of the current state
//
// The store is where the system's core invariants live:
//
//   - rows are replaced wholesale by a successful fetch and left untouched
//     by a failed one; there is no partial overwrite
//   - the last error is cleared only by a subsequent successful fetch,
//     never merely by starting a new one
//   - "never loaded" is distinct from "loaded with zero rows"
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
package store
