package store

import (
	"time"

	"github.com/jpalmerr/tablepulse/internal/poller"
)

// View states derived from a [Snapshot]. Exactly one applies at any instant.
// These are plain strings so they serialize cleanly and can be compared in
// templates without imports.
const (
	// StatusInitialLoading: no fetch has ever completed since the watcher
	// started (success or failure).
	StatusInitialLoading = "initial_loading"

	// StatusReady: rows are current and no fetch is in flight.
	StatusReady = "ready"

	// StatusRefreshing: rows are current and a background fetch is in flight.
	StatusRefreshing = "refreshing"

	// StatusStaleError: the most recent completed fetch failed, but earlier
	// rows are still available to show.
	StatusStaleError = "stale_error"

	// StatusFailed: the most recent completed fetch failed and there are no
	// rows to fall back on.
	StatusFailed = "failed"
)

// Snapshot is an immutable view of the store at one instant.
//
// The JSON shape is the wire contract of the /api/snapshot endpoint and the
// SSE stream.
type Snapshot struct {
	// Rows is the payload of the most recent successful fetch. A non-nil
	// empty slice means the table was fetched and is empty; nil means no
	// fetch has succeeded yet.
	Rows []poller.Record `json:"rows"`

	// Loaded reports whether any fetch has completed, successfully or not.
	Loaded bool `json:"loaded"`

	// InFlight reports whether at least one fetch is currently in flight.
	InFlight bool `json:"in_flight"`

	// Err is the message of the most recent completed fetch's failure, or
	// "" when that fetch succeeded.
	Err string `json:"error,omitempty"`

	// UpdatedAt is the completion time of the most recent successful fetch.
	// Zero if none has succeeded.
	UpdatedAt time.Time `json:"updated_at"`

	// Version increments on every state change, so push consumers can
	// detect staleness without diffing payloads.
	Version uint64 `json:"version"`
}

// Status derives the single active view state from the snapshot's flags.
// The ordering encodes the rendering policy: a blocking condition always
// wins over a cosmetic one.
func (s Snapshot) Status() string {
	switch {
	case !s.Loaded:
		return StatusInitialLoading
	case s.Err != "" && len(s.Rows) == 0:
		return StatusFailed
	case s.Err != "":
		return StatusStaleError
	case s.InFlight:
		return StatusRefreshing
	default:
		return StatusReady
	}
}

// SnapshotStore defines the operations the watch loop and the HTTP layer
// need from snapshot storage.
//
// Implementations must be safe for concurrent access. The pub/sub mechanism
// allows real-time updates to be pushed to connected clients (e.g., via
// Server-Sent Events).
type SnapshotStore interface {
	// BeginFetch marks one fetch as in flight. It never touches rows or
	// the error; in particular a prior error stays visible until a new
	// fetch actually resolves.
	BeginFetch()

	// AbandonFetch unwinds one BeginFetch whose result will never arrive
	// (the watcher stopped while the fetch was in flight). Rows and the
	// error are untouched; only the in-flight accounting changes.
	AbandonFetch()

	// ApplyResult applies a completed fetch and returns the resulting
	// snapshot. Success replaces the rows wholesale and clears the error;
	// failure records the error and leaves the rows untouched. Results
	// are applied in arrival order: when fetches overlap, the last one to
	// complete wins.
	ApplyResult(result poller.FetchResult) Snapshot

	// View returns the current snapshot. The returned value is a copy;
	// modifications do not affect the store.
	View() Snapshot

	// Reset returns the store to its never-loaded state. Used when the
	// watched table changes identity.
	Reset()

	// Subscribe returns a channel that receives a snapshot after every
	// state change. The channel is buffered; slow consumers may miss
	// updates. Caller must call Unsubscribe when done.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
