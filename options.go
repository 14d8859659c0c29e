package tablepulse

import (
	"errors"
	"log/slog"
	"time"
)

// tpConfig holds mutable state during TablePulse construction.
type tpConfig struct {
	title             string
	table             Table
	tableSet          bool
	pollInterval      time.Duration
	port              int
	service           ServiceConfig
	serviceSet        bool
	fetcher           RowFetcher
	logger            *slog.Logger
	snapshotCallbacks []func(SnapshotEvent)
}

// Option is a function that configures a [TablePulse] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithTable], [WithPollInterval], [WithPort],
// [WithTitle], [WithService], [WithLogger], [WithSnapshotCallback].
type Option func(*tpConfig) error

// WithTable sets the table to watch. Exactly one table is watched per
// instance; calling WithTable twice keeps the last value.
//
// Example:
//
//	tbl, _ := tablepulse.NewTable("tickets")
//	tp, err := tablepulse.New(tablepulse.WithTable(tbl))
func WithTable(t Table) Option {
	return func(cfg *tpConfig) error {
		if t.Name() == "" {
			return errors.New("table must be created with NewTable")
		}
		cfg.table = t
		cfg.tableSet = true
		return nil
	}
}

// WithPollInterval sets the period between fetches.
//
// A positive interval arms a repeating timer at that period after the
// immediate first fetch. Zero or negative means one-shot: the immediate
// fetch happens and no timer is ever armed. Defaults to 5 seconds.
//
// Example:
//
//	tp, err := tablepulse.New(
//	    tablepulse.WithTable(tbl),
//	    tablepulse.WithPollInterval(30 * time.Second),
//	)
func WithPollInterval(d time.Duration) Option {
	return func(cfg *tpConfig) error {
		cfg.pollInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the view server.
//
// The view and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *tpConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the page title shown in the rendered view.
// Defaults to "TablePulse" when empty.
func WithTitle(title string) Option {
	return func(cfg *tpConfig) error {
		cfg.title = title
		return nil
	}
}

// WithService supplies the hosted service configuration explicitly instead
// of resolving it from the environment.
//
// Passing an unconfigured or placeholder [ServiceConfig] is allowed: the
// instance starts in setup mode and never fetches, exactly as with missing
// environment variables.
func WithService(sc ServiceConfig) Option {
	return func(cfg *tpConfig) error {
		cfg.service = sc
		cfg.serviceSet = true
		return nil
	}
}

// WithFetcher replaces the built-in REST client with a custom fetch
// implementation.
//
// The fetcher satisfies the same contract as the real client: return the
// full row set or a single error, never both. With a fetcher installed the
// service configuration is not required, which is how tests substitute
// fakes.
func WithFetcher(f RowFetcher) Option {
	return func(cfg *tpConfig) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		cfg.fetcher = f
		return nil
	}
}

// WithLogger sets the logger for TablePulse events.
//
// Defaults to slog.Default() if not specified.
//
// Returns an error if the logger is nil (omit the option instead).
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *tpConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSnapshotCallback registers a callback invoked after every completed
// fetch, once the store has been updated.
//
// Callbacks run on the poll consumer goroutine; keep them fast or hand off
// to your own goroutine. A panicking callback is recovered and logged, and
// does not affect polling. Can be called multiple times to register
// multiple callbacks; they are invoked in registration order.
func WithSnapshotCallback(cb func(SnapshotEvent)) Option {
	return func(cfg *tpConfig) error {
		if cb == nil {
			return errors.New("snapshot callback cannot be nil")
		}
		cfg.snapshotCallbacks = append(cfg.snapshotCallbacks, cb)
		return nil
	}
}
