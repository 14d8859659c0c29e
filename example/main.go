package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/tablepulse"
)

func main() {
	// start mock hosted-table service (see mock_server.go)
	go StartMockTableServer(":9999")
	time.Sleep(100 * time.Millisecond)

	tbl, err := tablepulse.NewTable("tickets",
		tablepulse.WithOrderBy("created_at.desc"),
		tablepulse.WithRequestTimeout(5*time.Second),
	)
	if err != nil {
		slog.Error("failed to create table", "error", err)
		os.Exit(1)
	}

	tp, err := tablepulse.New(
		tablepulse.WithTable(tbl),
		tablepulse.WithPollInterval(3*time.Second),
		tablepulse.WithPort(8080),
		tablepulse.WithTitle("Support tickets"),
		tablepulse.WithService(tablepulse.ServiceConfig{
			URL: "http://localhost:9999",
			Key: "demo-key",
		}),
	)
	if err != nil {
		slog.Error("failed to create tablepulse", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   TablePulse Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Polls a mock 'tickets' table every 3 seconds;       ║")
	fmt.Println("  ║   about one poll in five fails so you can watch       ║")
	fmt.Println("  ║   the stale-data warning banner come and go.          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tp.Start(ctx); err != nil {
		slog.Error("tablepulse error", "error", err)
		os.Exit(1)
	}
}
