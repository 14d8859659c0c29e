package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/jpalmerr/tablepulse/internal/poller"
	"github.com/jpalmerr/tablepulse/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Field is one displayed key/value pair of a record.
type Field struct {
	// Label is the field name prepared for display: underscores become
	// spaces. This is presentation only; the underlying data is unchanged.
	Label string

	// Value is the field value as compact JSON, so strings keep their
	// quotes and nested structures stay readable.
	Value string
}

// Row is one record prepared for display.
type Row struct {
	// Key is the record's uuid, or a generated fallback when the record
	// lacks one. Used as the DOM element id.
	Key string

	// Fields are the record's entries, uuid first, the rest sorted by name.
	Fields []Field
}

// ViewModel carries everything the view template needs for one render.
type ViewModel struct {
	// Title is the page title.
	Title string

	// Table is the watched table's name, interpolated into the loading,
	// empty, and error messages.
	Table string

	// Status is the active view state, one of the store.Status constants.
	Status string

	// Rows is the record list, present only when there is data to show.
	Rows []Row

	// Err is the last error message, shown as a blocking panel (no data)
	// or a warning banner (stale data).
	Err string

	// Refreshing reports an in-flight background fetch.
	Refreshing bool

	// HasUpdated reports whether any fetch has succeeded yet.
	HasUpdated bool

	// UpdatedAt is the absolute time of the last successful fetch.
	UpdatedAt string

	// UpdatedAgo is the same instant, humanized ("12 seconds ago").
	UpdatedAgo string

	// Version is the snapshot version, embedded so the page script can
	// tell whether an SSE event carries anything new.
	Version uint64
}

// BuildViewModel derives the render inputs from a snapshot.
//
// The Status field carries the one active view state; the remaining fields
// feed the non-blocking decorations (refresh indicator, last-updated line,
// stale-data warning) that render alongside the list.
func BuildViewModel(title, table string, snap store.Snapshot) ViewModel {
	vm := ViewModel{
		Title:      title,
		Table:      table,
		Status:     snap.Status(),
		Err:        snap.Err,
		Refreshing: snap.InFlight,
		Version:    snap.Version,
	}

	if !snap.UpdatedAt.IsZero() {
		vm.HasUpdated = true
		vm.UpdatedAt = snap.UpdatedAt.Format(time.RFC3339)
		vm.UpdatedAgo = humanize.Time(snap.UpdatedAt)
	}

	vm.Rows = make([]Row, 0, len(snap.Rows))
	for _, rec := range snap.Rows {
		vm.Rows = append(vm.Rows, buildRow(rec))
	}
	return vm
}

// buildRow formats one record for display: every key rendered as
// "key: <JSON value>", uuid first, remaining fields sorted by name.
func buildRow(rec poller.Record) Row {
	key := rec.Key()
	if key == "" {
		// record without a uuid still needs a unique DOM id
		key = uuid.NewString()
	}

	names := make([]string, 0, len(rec))
	for name := range rec {
		if name != "uuid" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := rec["uuid"]; ok {
		names = append([]string{"uuid"}, names...)
	}

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, Field{
			Label: strings.ReplaceAll(name, "_", " "),
			Value: formatValue(rec[name]),
		})
	}
	return Row{Key: key, Fields: fields}
}

// formatValue renders a field value as compact JSON. Values that cannot be
// marshalled (which would take a deliberately hostile fetcher) fall back to
// a plain string.
func formatValue(v any) string {
	out, err := json.MarshalToString(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}
