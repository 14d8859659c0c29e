package tablepulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/tablepulse/dashboard"
	"github.com/jpalmerr/tablepulse/internal/poller"
	"github.com/jpalmerr/tablepulse/internal/render"
	"github.com/jpalmerr/tablepulse/internal/server"
	"github.com/jpalmerr/tablepulse/internal/store"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPort         = 8080
)

// TablePulse is the main orchestrator for table polling and view serving.
//
// TablePulse watches exactly one hosted table: it fetches the full row set
// immediately on start and then on a fixed timer, keeps the most recent
// successful snapshot plus the most recent error in an in-memory store, and
// serves the rendered view over HTTP. It is created using [New] with
// functional options and started with [TablePulse.Start].
//
// The typical lifecycle is:
//
//	tbl, _ := tablepulse.NewTable("tickets")
//	tp, err := tablepulse.New(tablepulse.WithTable(tbl))
//	if err != nil {
//	    slog.Error("failed to create tablepulse", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	tp.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type TablePulse struct {
	title             string
	port              int
	service           ServiceConfig
	fetcher           RowFetcher
	logger            *slog.Logger
	snapshotCallbacks []func(SnapshotEvent)

	// runtime state; table and pollInterval can change via Restart
	mu           sync.Mutex
	table        Table
	pollInterval time.Duration
	runCtx       context.Context
	runFetcher   poller.RowFetcher
	store        *store.MemoryStore
	watcher      *poller.Watcher
	consumerWg   *sync.WaitGroup
}

// New creates a new [TablePulse] instance with the given options.
//
// A table must be configured via [WithTable]. Other options have sensible
// defaults:
//   - Poll interval: 5 seconds
//   - Port: 8080
//
// If neither [WithService] nor [WithFetcher] is supplied, the service
// configuration is resolved from the environment (see [ServiceFromEnv]).
// An unconfigured service is not an error here: [TablePulse.Start] serves
// setup instructions instead of polling.
//
// Returns an error if no table is configured or if any option is invalid.
func New(opts ...Option) (*TablePulse, error) {
	cfg := &tpConfig{
		pollInterval: defaultPollInterval,
		port:         defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if !cfg.tableSet {
		return nil, errors.New("a table is required")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	service := cfg.service
	if !cfg.serviceSet && cfg.fetcher == nil {
		service = ServiceFromEnv()
	}

	return &TablePulse{
		title:             cfg.title,
		table:             cfg.table,
		pollInterval:      cfg.pollInterval,
		port:              cfg.port,
		service:           service,
		fetcher:           cfg.fetcher,
		logger:            logger,
		snapshotCallbacks: cfg.snapshotCallbacks,
	}, nil
}

// Start begins polling the table and serving the view.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - The table is fetched immediately, then at the configured interval
//     (a non-positive interval means the immediate fetch is the only one)
//   - The HTTP server starts on the configured port
//   - Fetch results are logged
//   - The view is available at http://localhost:<port>
//
// When the service configuration is missing or still carries placeholder
// values (and no custom fetcher is installed), nothing is ever fetched;
// the server renders setup instructions until the context is cancelled.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// fails to start.
func (tp *TablePulse) Start(ctx context.Context) error {
	tp.mu.Lock()
	tableName := tp.table.Name()
	interval := tp.pollInterval
	tp.mu.Unlock()

	tp.logger.Info("tablepulse starting", "table", tableName, "poll_interval", interval.String())
	tp.logger.Info("view available", "url", fmt.Sprintf("http://localhost:%d", tp.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	renderer, err := render.NewRenderer(dashboard.Assets)
	if err != nil {
		return err
	}

	setup := render.SetupModel{
		EnvURL:         EnvServiceURL,
		EnvKey:         EnvServiceKey,
		PlaceholderURL: PlaceholderServiceURL,
		PlaceholderKey: PlaceholderServiceKey,
	}

	// with neither usable credentials nor an injected fetcher, the viewer
	// is never mounted and zero fetches occur
	if tp.fetcher == nil && !tp.service.Configured() {
		tp.logger.Warn("service not configured; serving setup instructions",
			"env_url", EnvServiceURL,
			"env_key", EnvServiceKey,
		)
		srv := server.NewServer(nil, renderer, tp.port, tp.title, tp.currentTableName, setup, tp.logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		<-ctx.Done()
		tp.logger.Info("tablepulse stopped")
		return nil
	}

	// a custom fetcher is adapted per-watcher in startWatcherLocked so each
	// rebind hands it the table being watched at that moment
	var runFetcher poller.RowFetcher
	if tp.fetcher == nil {
		client := poller.NewClient(tp.service.URL, tp.service.Key)
		defer client.Close()
		runFetcher = client
	}

	st := store.NewMemoryStore()

	tp.mu.Lock()
	tp.runCtx = ctx
	tp.runFetcher = runFetcher
	tp.store = st
	tp.startWatcherLocked()
	tp.mu.Unlock()

	srv := server.NewServer(st, renderer, tp.port, tp.title, tp.currentTableName, setup, tp.logger)
	if err := srv.Start(ctx); err != nil {
		tp.stopWatcher()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	tp.stopWatcher()
	tp.logger.Info("tablepulse stopped")
	return nil
}

// Restart rebinds a running instance to a new (table, pollInterval) pair.
//
// The old timer is torn down - and its in-flight results abandoned - before
// the new one is armed, so at most one watcher exists at any time. When the
// table's name changes, the snapshot is reset to the never-loaded state;
// an interval-only change keeps the current snapshot.
//
// Returns an error if the instance is not currently polling (not started,
// already stopped, or serving setup instructions). Must not be called from
// a snapshot callback.
func (tp *TablePulse) Restart(tbl Table, pollInterval time.Duration) error {
	if tbl.Name() == "" {
		return errors.New("table must be created with NewTable")
	}

	tp.mu.Lock()
	if tp.watcher == nil {
		tp.mu.Unlock()
		return errors.New("tablepulse is not polling")
	}
	old := tp.watcher
	oldWg := tp.consumerWg
	tp.watcher = nil
	tp.consumerWg = nil
	tableChanged := tbl.Name() != tp.table.Name()
	tp.mu.Unlock()

	// old timer released on this path before the new one is acquired
	old.Stop()
	oldWg.Wait()

	tp.mu.Lock()
	defer tp.mu.Unlock()

	tp.table = tbl
	tp.pollInterval = pollInterval
	if tableChanged {
		tp.store.Reset()
	}
	if tp.runCtx.Err() != nil {
		// shutdown raced us; leave the watcher stopped
		return nil
	}
	tp.startWatcherLocked()
	tp.logger.Info("watch parameters changed",
		"table", tbl.Name(),
		"poll_interval", pollInterval.String(),
	)
	return nil
}

// startWatcherLocked arms a watcher for the current (table, interval) pair
// and starts its result consumer. Caller must hold tp.mu.
func (tp *TablePulse) startWatcherLocked() {
	fetcher := tp.runFetcher
	if tp.fetcher != nil {
		fetcher = customFetcher{fetcher: tp.fetcher, table: tp.table}
	}
	w := poller.NewWatcher(poller.Config{
		Table:            tp.table.toPollerTable(),
		Interval:         tp.pollInterval,
		Fetcher:          fetcher,
		OnFetchStart:     tp.store.BeginFetch,
		OnFetchAbandoned: tp.store.AbandonFetch,
		Logger:           tp.logger,
	})
	w.Start(tp.runCtx)
	tp.watcher = w

	wg := &sync.WaitGroup{}
	wg.Add(1)
	tp.consumerWg = wg

	tableName := tp.table.Name()
	st := tp.store
	go func() {
		defer wg.Done()
		for result := range w.Results() {
			// store update first (callbacks fire after data is persisted)
			snap := st.ApplyResult(result)

			if len(tp.snapshotCallbacks) > 0 {
				event := buildSnapshotEvent(tableName, result, snap)
				for _, cb := range tp.snapshotCallbacks {
					invokeCallbackSafe(cb, event, tp.logger)
				}
			}

			// log fetch results (DEBUG level for success to reduce noise)
			logAttrs := []any{
				"table", tableName,
				"status", snap.Status(),
				"rows", len(snap.Rows),
				"latency_ms", result.Latency.Milliseconds(),
			}
			if result.Err != nil {
				tp.logger.Warn("fetch completed with error", append(logAttrs, "error", result.Err.Error())...)
			} else {
				tp.logger.Debug("fetch completed", logAttrs...)
			}
		}
	}()
}

// stopWatcher tears down the active watcher, if any, and waits for its
// consumer to drain.
func (tp *TablePulse) stopWatcher() {
	tp.mu.Lock()
	w := tp.watcher
	wg := tp.consumerWg
	tp.watcher = nil
	tp.consumerWg = nil
	tp.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	if wg != nil {
		wg.Wait()
	}
}

// currentTableName reports the name of the table being watched right now;
// the server reads it per request so Restart is reflected immediately.
func (tp *TablePulse) currentTableName() string {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.table.Name()
}

// Table returns the configured table. The returned value is immutable.
func (tp *TablePulse) Table() Table {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.table
}

// PollInterval returns the configured interval between fetches.
func (tp *TablePulse) PollInterval() time.Duration {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.pollInterval
}

// Port returns the configured HTTP port for the view server.
func (tp *TablePulse) Port() int {
	return tp.port
}

// customFetcher bridges a user-supplied [RowFetcher] into the watch loop.
// It carries the public Table the watcher was armed with, so the user
// implementation always sees the table being watched right now.
type customFetcher struct {
	fetcher RowFetcher
	table   Table
}

func (c customFetcher) FetchRows(ctx context.Context, _ poller.TableInfo) ([]poller.Record, error) {
	rows, err := c.fetcher.FetchRows(ctx, c.table)
	if err != nil {
		return nil, err
	}
	out := make([]poller.Record, len(rows))
	for i, r := range rows {
		out[i] = poller.Record(r)
	}
	return out, nil
}

// toPollerTable converts the public Table to the poller's representation.
func (t Table) toPollerTable() poller.TableInfo {
	return poller.TableInfo{
		Name:    t.name,
		OrderBy: t.orderBy,
		Headers: copyMap(t.headers),
		Timeout: t.timeout,
	}
}

// buildSnapshotEvent converts internal types to the public API type.
// Creates defensive copies of mutable data to prevent data races.
func buildSnapshotEvent(table string, result poller.FetchResult, snap store.Snapshot) SnapshotEvent {
	rows := make([]Record, len(snap.Rows))
	for i, rec := range snap.Rows {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		rows[i] = cp
	}
	return SnapshotEvent{
		Table:     table,
		Status:    PollStatus(snap.Status()),
		Rows:      rows,
		Err:       result.Err,
		Latency:   result.Latency,
		CheckedAt: result.CheckedAt,
		UpdatedAt: snap.UpdatedAt,
	}
}

// invokeCallbackSafe calls a snapshot callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(SnapshotEvent), event SnapshotEvent, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot callback panicked",
				"panic", r,
				"table", event.Table,
			)
		}
	}()
	cb(event)
}
