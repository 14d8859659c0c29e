package store

import (
	"sync"
	"time"

	"github.com/jpalmerr/tablepulse/internal/poller"
)

// subscriberBuffer is the per-subscriber channel capacity. Updates beyond a
// full buffer are dropped for that subscriber rather than blocking the
// fetch loop.
const subscriberBuffer = 16

// MemoryStore is the in-memory implementation of [SnapshotStore].
//
// State is mutated only from fetch lifecycle calls (BeginFetch/ApplyResult)
// and guarded by a single mutex, so interleaved completions from overlapping
// fetches apply atomically in arrival order.
type MemoryStore struct {
	mu        sync.RWMutex
	rows      []poller.Record
	loaded    bool
	inFlight  int
	errMsg    string
	updatedAt time.Time
	version   uint64

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

// NewMemoryStore creates an empty [MemoryStore] in the never-loaded state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// BeginFetch marks one fetch as in flight and notifies subscribers so the
// view can show a background-refresh indicator. Rows and the last error are
// deliberately untouched.
func (m *MemoryStore) BeginFetch() {
	m.mu.Lock()
	m.inFlight++
	m.version++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// AbandonFetch unwinds one BeginFetch whose result was dropped. Without it,
// a fetch in flight when its watcher stops would pin the refresh indicator
// on forever.
func (m *MemoryStore) AbandonFetch() {
	m.mu.Lock()
	if m.inFlight > 0 {
		m.inFlight--
	}
	m.version++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// ApplyResult applies a completed fetch.
//
// On success the rows are replaced wholesale (an empty result is stored as
// an empty, non-nil slice), the error is cleared, and the updated-at
// timestamp advances. On failure only the error message changes; the
// previous rows and timestamp survive so the view can keep showing stale
// data. Either way the store counts as loaded afterwards.
func (m *MemoryStore) ApplyResult(result poller.FetchResult) Snapshot {
	m.mu.Lock()
	if m.inFlight > 0 {
		m.inFlight--
	}
	m.loaded = true
	if result.Err != nil {
		m.errMsg = result.Err.Error()
	} else {
		rows := make([]poller.Record, len(result.Rows))
		copy(rows, result.Rows)
		m.rows = rows
		m.errMsg = ""
		if !result.CheckedAt.IsZero() {
			m.updatedAt = result.CheckedAt
		} else {
			m.updatedAt = time.Now()
		}
	}
	m.version++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
	return snap
}

// View returns a copy of the current snapshot.
func (m *MemoryStore) View() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Reset returns the store to the never-loaded state and notifies
// subscribers. In-flight accounting is cleared too: results from a
// superseded watcher never reach this store, so a stale count must not
// leak a permanent "refreshing" indicator.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	m.rows = nil
	m.loaded = false
	m.inFlight = 0
	m.errMsg = ""
	m.updatedAt = time.Time{}
	m.version++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// Subscribe creates a new subscription and returns its channel.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// snapshotLocked builds a Snapshot copy. Caller must hold m.mu.
func (m *MemoryStore) snapshotLocked() Snapshot {
	var rows []poller.Record
	if m.rows != nil {
		rows = make([]poller.Record, len(m.rows))
		copy(rows, m.rows)
	}
	return Snapshot{
		Rows:      rows,
		Loaded:    m.loaded,
		InFlight:  m.inFlight > 0,
		Err:       m.errMsg,
		UpdatedAt: m.updatedAt,
		Version:   m.version,
	}
}

// notifySubscribers sends the snapshot to all active subscribers without
// blocking; a full buffer means that subscriber misses this update.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the message
		}
	}
}
