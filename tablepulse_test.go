package tablepulse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fetcherFunc adapts an ordinary function to the RowFetcher interface.
type fetcherFunc func(ctx context.Context, table Table) ([]Record, error)

func (f fetcherFunc) FetchRows(ctx context.Context, table Table) ([]Record, error) {
	return f(ctx, table)
}

// staticFetcher returns the same rows on every fetch and counts attempts.
type staticFetcher struct {
	count atomic.Int64
	rows  []Record
	err   error
}

func (f *staticFetcher) FetchRows(ctx context.Context, table Table) ([]Record, error) {
	f.count.Add(1)
	return f.rows, f.err
}

// waitForServer polls until the given port answers or the deadline passes.
func waitForServer(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	url := fmt.Sprintf("http://localhost:%d/healthz", port)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server on port %d did not come up within 3s", port)
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s body: %v", url, err)
	}
	return resp.StatusCode, string(body)
}

func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	const port = 19001
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{rows: []Record{{"uuid": "a"}}}),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()

	waitForServer(t, port)

	select {
	case err := <-done:
		t.Fatalf("Start() returned %v before cancellation", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil on graceful shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
}

func TestStart_ContextAlreadyCancelled(t *testing.T) {
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{}),
		WithPort(19002),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start() did not return with a cancelled context")
	}
}

func TestStart_PortInUse(t *testing.T) {
	const port = 19003
	first, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{}),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = first.Start(ctx) }()
	waitForServer(t, port)

	second, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{}),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	secondCtx, secondCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer secondCancel()
	if err := second.Start(secondCtx); err == nil {
		t.Error("Start() error = nil on an occupied port, want bind error")
	}
}

func TestStart_UnconfiguredServesSetupAndNeverFetches(t *testing.T) {
	const port = 19004
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithService(ServiceConfig{URL: PlaceholderServiceURL, Key: PlaceholderServiceKey}),
		WithPollInterval(10*time.Millisecond),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	waitForServer(t, port)

	status, body := getBody(t, fmt.Sprintf("http://localhost:%d/", port))
	if status != http.StatusOK {
		t.Errorf("GET / status = %d, want %d", status, http.StatusOK)
	}
	if !strings.Contains(body, "Configuration needed") {
		t.Error("unconfigured instance did not serve setup instructions")
	}

	status, _ = getBody(t, fmt.Sprintf("http://localhost:%d/api/snapshot", port))
	if status != http.StatusServiceUnavailable {
		t.Errorf("GET /api/snapshot status = %d, want %d (no viewer mounted)", status, http.StatusServiceUnavailable)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
}

func TestStart_ServesRowsFromFetcher(t *testing.T) {
	const port = 19005
	fetcher := &staticFetcher{rows: []Record{{"uuid": "a1", "status": "open"}}}
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(fetcher),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithTitle("Tickets"),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tp.Start(ctx) }()
	waitForServer(t, port)

	// wait for the immediate fetch to land in the store
	deadline := time.Now().Add(2 * time.Second)
	var body string
	for time.Now().Before(deadline) {
		_, body = getBody(t, fmt.Sprintf("http://localhost:%d/", port))
		if strings.Contains(body, `id="record-a1"`) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(body, `id="record-a1"`) {
		t.Fatalf("view never showed the fetched record; last body:\n%s", body)
	}
	if !strings.Contains(body, "Tickets") {
		t.Error("view missing configured title")
	}
	if got := fetcher.count.Load(); got != 1 {
		t.Errorf("fetch count = %d with a 1h interval, want 1", got)
	}
}

func TestStart_SnapshotCallbacks(t *testing.T) {
	const port = 19006
	var mu sync.Mutex
	var events []SnapshotEvent

	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{rows: []Record{{"uuid": "a"}}}),
		WithPollInterval(30*time.Millisecond),
		WithPort(port),
		WithLogger(testLogger()),
		WithSnapshotCallback(func(ev SnapshotEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}),
		WithSnapshotCallback(func(ev SnapshotEvent) {
			panic("callback exploded") // must not break polling
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	waitForServer(t, port)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("got %d callback events, want >= 2 (panicking sibling must not stop polling)", len(events))
	}
	ev := events[0]
	if ev.Table != "tickets" {
		t.Errorf("event.Table = %q, want %q", ev.Table, "tickets")
	}
	if ev.Status != StatusReady {
		t.Errorf("event.Status = %q, want %q", ev.Status, StatusReady)
	}
	if len(ev.Rows) != 1 {
		t.Errorf("event.Rows = %d, want 1", len(ev.Rows))
	}
	if ev.Err != nil {
		t.Errorf("event.Err = %v, want nil", ev.Err)
	}
}

func TestStart_FailedFetchSurfacesInView(t *testing.T) {
	const port = 19007
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{err: errors.New("connection refused")}),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tp.Start(ctx) }()
	waitForServer(t, port)

	deadline := time.Now().Add(2 * time.Second)
	var body string
	for time.Now().Before(deadline) {
		_, body = getBody(t, fmt.Sprintf("http://localhost:%d/", port))
		if strings.Contains(body, "Failed to load data from") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(body, "connection refused") {
		t.Errorf("view missing the fetch error; last body:\n%s", body)
	}
}

func TestRestart_NotPolling(t *testing.T) {
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{}),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := tp.Restart(mustTable(t, "orders"), time.Second); err == nil {
		t.Error("Restart() error = nil before Start, want error")
	}
}

func TestRestart_RejectsZeroValueTable(t *testing.T) {
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(&staticFetcher{}),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := tp.Restart(Table{}, time.Second); err == nil {
		t.Error("Restart() error = nil for a zero-value table, want error")
	}
}

func TestRestart_RebindsTableAndInterval(t *testing.T) {
	const port = 19008
	var gotTables sync.Map
	fetcher := fetcherFunc(func(ctx context.Context, table Table) ([]Record, error) {
		gotTables.Store(table.Name(), true)
		return []Record{{"uuid": table.Name()}}, nil
	})

	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(fetcher),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	waitForServer(t, port)

	if err := tp.Restart(mustTable(t, "orders"), time.Hour); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	if got := tp.Table().Name(); got != "orders" {
		t.Errorf("Table().Name() = %q after Restart, want %q", got, "orders")
	}
	if got := tp.PollInterval(); got != time.Hour {
		t.Errorf("PollInterval() = %v after Restart, want 1h", got)
	}

	// the rebound watcher fetches the new table immediately
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := gotTables.Load("orders"); ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, ok := gotTables.Load("orders"); !ok {
		t.Error("no fetch against the rebound table")
	}

	// the view reflects the new table name
	_, body := getBody(t, fmt.Sprintf("http://localhost:%d/", port))
	if !strings.Contains(body, "orders") {
		t.Error("view not reflecting the rebound table name")
	}

	cancel()
	<-done
}

func TestRestart_IntervalOnlyWithFetchInFlight(t *testing.T) {
	const port = 19011
	var calls atomic.Int64
	secondStarted := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, table Table) ([]Record, error) {
		if calls.Add(1) == 2 {
			// hold the second fetch until its watcher is torn down
			close(secondStarted)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []Record{{"uuid": "a"}}, nil
	})

	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(fetcher),
		WithPollInterval(30*time.Millisecond),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	waitForServer(t, port)
	<-secondStarted

	// same table, new interval: the snapshot survives, the blocked fetch is
	// abandoned, and its in-flight accounting must be unwound
	if err := tp.Restart(mustTable(t, "tickets"), time.Hour); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	// wait for the rebound watcher's immediate fetch to apply
	deadline := time.Now().Add(2 * time.Second)
	var snap = tp.store.View()
	for time.Now().Before(deadline) {
		snap = tp.store.View()
		if snap.Loaded && !snap.InFlight {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.InFlight {
		t.Error("InFlight = true with no fetch in flight; abandoned fetch left the counter unbalanced")
	}
	if got := snap.Status(); got != string(StatusReady) {
		t.Errorf("Status() = %q after the rebound fetch settled, want %q", got, StatusReady)
	}

	cancel()
	<-done
}

func TestStart_CustomFetcherReceivesTable(t *testing.T) {
	const port = 19012
	got := make(chan Table, 1)
	fetcher := fetcherFunc(func(ctx context.Context, table Table) ([]Record, error) {
		select {
		case got <- table:
		default:
		}
		return []Record{}, nil
	})

	tp, err := New(
		WithTable(mustTable(t, "tickets", WithOrderBy("created_at.desc"))),
		WithFetcher(fetcher),
		WithPollInterval(0), // one-shot
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tp.Start(ctx) }()

	select {
	case tbl := <-got:
		if tbl.Name() != "tickets" {
			t.Errorf("fetcher saw table %q, want %q", tbl.Name(), "tickets")
		}
		if tbl.OrderBy() != "created_at.desc" {
			t.Errorf("fetcher saw order by %q, want %q", tbl.OrderBy(), "created_at.desc")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("custom fetcher never invoked")
	}
}

func TestRestart_SameTableKeepsSnapshot(t *testing.T) {
	const port = 19009
	fetcher := &staticFetcher{rows: []Record{{"uuid": "a"}}}
	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(fetcher),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	waitForServer(t, port)

	// wait for the first fetch to land
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fetcher.count.Load() >= 1 && tp.store.View().Loaded {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := tp.Restart(mustTable(t, "tickets"), 30*time.Minute); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	// an interval-only change keeps the loaded snapshot visible
	if snap := tp.store.View(); !snap.Loaded {
		t.Error("snapshot reset on an interval-only Restart, want it preserved")
	}

	cancel()
	<-done
}

func TestRestart_TableChangeResetsSnapshot(t *testing.T) {
	const port = 19010
	block := make(chan struct{})
	var firstFetch sync.Once
	first := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, table Table) ([]Record, error) {
		if table.Name() == "tickets" {
			firstFetch.Do(func() { close(first) })
			return []Record{{"uuid": "a"}}, nil
		}
		// keep the new table's first fetch pending so the reset is observable
		select {
		case <-block:
		case <-ctx.Done():
		}
		return []Record{}, nil
	})

	tp, err := New(
		WithTable(mustTable(t, "tickets")),
		WithFetcher(fetcher),
		WithPollInterval(time.Hour),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Start(ctx) }()
	waitForServer(t, port)
	<-first

	// let the first result reach the store
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tp.store.View().Loaded {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := tp.Restart(mustTable(t, "orders"), time.Hour); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	snap := tp.store.View()
	if snap.Loaded {
		t.Error("snapshot still loaded after switching tables, want never-loaded state")
	}
	if len(snap.Rows) != 0 {
		t.Errorf("snapshot has %d rows from the old table, want 0", len(snap.Rows))
	}

	close(block)
	cancel()
	<-done
}
