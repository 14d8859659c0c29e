// Package tablepulse provides a live, embeddable viewer for a single hosted
// database table.
//
// TablePulse is designed as an SDK-first library: it polls one table of a
// hosted database service (Supabase-style REST) at a fixed interval, keeps
// the most recent successful snapshot together with the most recent error,
// and serves a server-rendered HTML view of the rows with explicit loading,
// error, and background-refresh states. It follows functional programming
// principles with immutable types and composable configuration via the
// functional options pattern.
//
// # Quick Start
//
// Pick a table and start the viewer with graceful shutdown:
//
//	tbl, _ := tablepulse.NewTable("tickets")
//	tp, _ := tablepulse.New(tablepulse.WithTable(tbl))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	tp.Start(ctx) // blocks until context is cancelled
//
// The service endpoint and access key are read from the TABLEPULSE_SERVICE_URL
// and TABLEPULSE_SERVICE_KEY environment variables (a .env file works too).
// When they are absent, or still carry the documented placeholder values, the
// server renders setup instructions instead of polling anything.
//
// # Configuration
//
// TablePulse uses the functional options pattern for configuration:
//
//	tp, err := tablepulse.New(
//	    tablepulse.WithTable(tbl),
//	    tablepulse.WithPollInterval(5 * time.Second),
//	    tablepulse.WithPort(9090),
//	    tablepulse.WithTitle("Support tickets"),
//	)
//
// Tables can also be configured with options:
//
//	tbl, err := tablepulse.NewTable("tickets",
//	    tablepulse.WithOrderBy("created_at.desc"),
//	    tablepulse.WithRequestTimeout(5 * time.Second),
//	)
//
// # Polling semantics
//
// The viewer fetches once immediately on start; a positive poll interval then
// arms a repeating timer at that period, while a zero or negative interval
// means the one immediate fetch is the only one. A failed fetch never
// discards previously loaded rows: the view keeps showing the stale snapshot
// under a warning banner, and the only retry mechanism is the next tick.
// Ticks are not skipped while a fetch is in flight; overlapping fetches are
// applied in completion order.
package tablepulse
