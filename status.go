package tablepulse

import (
	"context"
	"time"
)

// PollStatus is the derived view state of the poller.
//
// Exactly one status is active at any instant. It is never stored directly;
// it is computed from three independent facts (has any fetch ever completed,
// is a fetch in flight, did the most recent completed fetch fail) plus
// whether any rows are available to fall back on.
type PollStatus string

const (
	// StatusInitialLoading indicates no fetch has ever completed since the
	// viewer started, successfully or otherwise.
	StatusInitialLoading PollStatus = "initial_loading"

	// StatusReady indicates the snapshot is current and nothing is in flight.
	StatusReady PollStatus = "ready"

	// StatusRefreshing indicates the snapshot is current and a background
	// fetch is in flight.
	StatusRefreshing PollStatus = "refreshing"

	// StatusStaleError indicates the most recent completed fetch failed but
	// earlier rows are still shown.
	StatusStaleError PollStatus = "stale_error"

	// StatusFailed indicates the most recent completed fetch failed and
	// there are no rows to fall back on.
	StatusFailed PollStatus = "failed"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s PollStatus) String() string {
	return string(s)
}

// Record is a single row of the watched table as seen by the public API.
//
// The table's schema is not known statically, so a row is an open mapping
// from field name to JSON-compatible value. The "uuid" field, when present,
// identifies the row across refreshes.
type Record map[string]any

// RowFetcher is the query contract a custom fetch implementation satisfies.
//
// Installed via [WithFetcher], it replaces the built-in REST client: each
// poll calls FetchRows with the currently watched [Table] and expects either
// the full row set (possibly empty) or a single message-bearing error, never
// both. Implementations must honor ctx cancellation. With a fetcher
// installed the service credentials are not consulted.
type RowFetcher interface {
	FetchRows(ctx context.Context, table Table) ([]Record, error)
}

// SnapshotEvent describes one completed fetch and the snapshot it produced.
//
// SnapshotEvent is handed to callbacks registered via [WithSnapshotCallback]
// after the store has been updated. The Rows field is a defensive copy;
// callbacks may hold or mutate it freely.
type SnapshotEvent struct {
	// Table is the watched table's name.
	Table string

	// Status is the view state after this fetch was applied.
	Status PollStatus

	// Rows is the current snapshot: the payload of the most recent
	// successful fetch, which is this fetch's payload only when Err is nil.
	Rows []Record

	// Err is the fetch's failure, or nil on success.
	Err error

	// Latency is the time the fetch took.
	Latency time.Duration

	// CheckedAt is when the fetch completed.
	CheckedAt time.Time

	// UpdatedAt is when the snapshot last changed through a successful
	// fetch. Zero if none has succeeded yet.
	UpdatedAt time.Time
}
