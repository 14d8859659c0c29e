package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FetchResult holds the outcome of a single fetch attempt against the table.
//
// Exactly one of Rows/Err is meaningful: a successful fetch carries the full
// row set (possibly empty) and a nil Err; a failed fetch carries a nil Rows
// and a non-nil Err.
type FetchResult struct {
	// Rows is the complete row set returned by a successful fetch.
	Rows []Record

	// Err is the failure, if any. All failure classes collapse to one
	// message-bearing error.
	Err error

	// Latency is the time taken by the fetch.
	Latency time.Duration

	// CheckedAt is the timestamp when the fetch completed.
	CheckedAt time.Time
}

// Config holds the inputs for a [Watcher].
type Config struct {
	// Table identifies what to fetch.
	Table TableInfo

	// Interval is the tick period. Zero or negative means one-shot: the
	// watcher fetches once and never arms a timer.
	Interval time.Duration

	// Fetcher executes the query. Required.
	Fetcher RowFetcher

	// OnFetchStart, if set, is called just before each fetch is issued.
	// It runs on the fetch goroutine; keep it cheap.
	OnFetchStart func()

	// OnFetchAbandoned, if set, is called for each fetch whose result is
	// dropped because the watcher stopped while it was in flight. Every
	// OnFetchStart is balanced by either a delivered result or exactly one
	// OnFetchAbandoned call.
	OnFetchAbandoned func()

	// Logger receives watcher events (panic recovery, tick errors).
	// Defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// Watcher runs the timer-driven fetch lifecycle for one (table, interval)
// pair.
//
// On [Watcher.Start] the watcher fetches immediately, then - when the
// interval is positive - arms a repeating ticker at that period. Each
// completed attempt is emitted as a [FetchResult] on [Watcher.Results].
// A non-positive interval arms no ticker; only the one immediate fetch
// occurs.
//
// Ticks are never skipped because a previous fetch is still in flight: each
// fetch runs on its own goroutine, so a round trip longer than the interval
// produces overlapping fetches. No ordering is imposed between them; the
// consumer applies results in completion order (last-write-wins).
//
// Stop cancels the watcher's derived context, which tears down the ticker on
// every exit path and abandons in-flight fetches: a result that completes
// after Stop is dropped, never delivered. Exactly one Start/Stop cycle per
// watcher; changing the table or interval means stopping this watcher and
// creating a new one.
//
// All lifecycle methods are safe for concurrent use.
type Watcher struct {
	table            TableInfo
	interval         time.Duration
	fetcher          RowFetcher
	onFetchStart     func()
	onFetchAbandoned func()
	logger           *slog.Logger
	results          chan FetchResult

	ctx    context.Context
	cancel context.CancelFunc
	loopWg sync.WaitGroup

	mu        sync.Mutex
	fetchWg   sync.WaitGroup
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewWatcher creates a [Watcher] from cfg. The watcher does nothing until
// [Watcher.Start] is called.
func NewWatcher(cfg Config) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		table:            cfg.Table,
		interval:         cfg.Interval,
		fetcher:          cfg.Fetcher,
		onFetchStart:     cfg.OnFetchStart,
		onFetchAbandoned: cfg.OnFetchAbandoned,
		logger:           logger,
		// room for a few overlapping completions before the consumer catches up
		results: make(chan FetchResult, 4),
	}
}

// Results returns a receive-only channel that emits one [FetchResult] per
// completed fetch. The channel is closed when the watcher stops; consumers
// should read until it is closed.
func (w *Watcher) Results() <-chan FetchResult {
	return w.results
}

// Start begins the fetch loop in a background goroutine.
//
// Start is non-blocking. The watcher fetches once immediately; if the
// configured interval is positive it then ticks at that period until
// [Watcher.Stop] is called or the context is cancelled.
//
// If ctx is nil, context.Background() is used. Start is idempotent;
// subsequent calls after the first are no-ops, as is Start after Stop.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return
	}
	w.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	watchCtx := w.ctx // capture under lock to avoid race
	w.loopWg.Add(1)
	w.mu.Unlock()

	go w.run(watchCtx)
}

// Stop halts the watcher and waits for all goroutines to complete.
//
// Stop cancels the watcher's context and blocks until the tick loop has
// exited, in-flight fetches have returned, and the results channel is
// closed. Results that complete after cancellation are dropped.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		if w.cancel != nil {
			w.cancel()
		}
	}
	w.mu.Unlock()

	w.loopWg.Wait()

	// ensure channel is closed even if Start() was never called
	w.closeOnce.Do(func() { close(w.results) })
}

// run is the tick loop. It owns the ticker and guarantees the results
// channel closes after the loop and all fetch goroutines have finished.
func (w *Watcher) run(ctx context.Context) {
	defer w.loopWg.Done()
	defer func() {
		w.fetchWg.Wait()
		w.closeOnce.Do(func() { close(w.results) })
	}()

	w.spawnFetch(ctx)

	if w.interval <= 0 {
		// one-shot mode: no timer is ever armed
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.spawnFetch(ctx)
		}
	}
}

// spawnFetch issues one fetch attempt on its own goroutine so a slow round
// trip never blocks the tick loop.
func (w *Watcher) spawnFetch(ctx context.Context) {
	w.fetchWg.Add(1)
	go func() {
		defer w.fetchWg.Done()

		result := w.fetch(ctx)
		if ctx.Err() != nil {
			// superseded: the watcher stopped while this fetch was in
			// flight, so its result must not reach the store
			w.abandon()
			return
		}
		select {
		case w.results <- result:
		case <-ctx.Done():
			w.abandon()
		}
	}()
}

// abandon reports a dropped result so OnFetchStart side effects can be
// unwound; without it a stopped fetch would leave in-flight accounting
// stuck high.
func (w *Watcher) abandon() {
	if w.onFetchAbandoned != nil {
		w.onFetchAbandoned()
	}
}

// fetch performs a single attempt with panic recovery.
//
// The fetcher may be user-supplied via the public API, so a panicking
// implementation is converted into a failed result with a correlation ID;
// the full stack trace is logged server-side.
func (w *Watcher) fetch(ctx context.Context) (result FetchResult) {
	if w.onFetchStart != nil {
		w.onFetchStart()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			w.logger.Error("fetcher panic",
				"correlation_id", correlationID,
				"table", w.table.Name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			result = FetchResult{
				Err:       fmt.Errorf("fetcher panic (correlation_id: %s)", correlationID),
				Latency:   time.Since(start),
				CheckedAt: time.Now(),
			}
		}
	}()

	rows, err := w.fetcher.FetchRows(ctx, w.table)
	return FetchResult{
		Rows:      rows,
		Err:       err,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
}
