// Standalone mock hosted-table service for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	export TABLEPULSE_SERVICE_URL=http://localhost:9999
//	export TABLEPULSE_SERVICE_KEY=demo-key
//	go run ./cmd/tablepulse serve -c example/tablepulse.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock table service starting on :9999")
	fmt.Println("Serves /rest/v1/tickets; about one request in five fails")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu   sync.Mutex
		rows = []map[string]any{
			{"uuid": "5b2f8c1e-0001-4a9d-9e6b-66f1c8a1d001", "status": "open", "title": "Printer on fire", "created_at": "2026-08-29T08:11:00Z"},
			{"uuid": "5b2f8c1e-0002-4a9d-9e6b-66f1c8a1d002", "status": "pending", "title": "Password reset", "created_at": "2026-08-29T08:40:00Z"},
		}
		statuses = []string{"open", "pending", "closed"}
	)

	http.HandleFunc("/rest/v1/tickets", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(30+rand.Intn(120)) * time.Millisecond)

		if rand.Intn(5) == 0 {
			slog.Info("mock table returning failure")
			http.Error(w, `{"message":"mock service hiccup"}`, http.StatusInternalServerError)
			return
		}

		mu.Lock()
		if len(rows) > 0 && rand.Intn(3) == 0 {
			row := rows[rand.Intn(len(rows))]
			oldStatus := row["status"]
			row["status"] = statuses[rand.Intn(len(statuses))]
			slog.Info("ticket changed", "uuid", row["uuid"], "from", oldStatus, "to", row["status"])
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewEncoder(w).Encode(rows)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
