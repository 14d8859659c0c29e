package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockTable simulates a hosted table whose rows change over time and whose
// service occasionally fails, so every view state is reachable from the
// demo: list, empty state, background refresh, and the stale-data banner.
type mockTable struct {
	mu       sync.Mutex
	rows     []map[string]any
	failNext int
}

// StartMockTableServer runs a fake hosted-table REST endpoint at
// {addr}/rest/v1/tickets. Roughly one request in five fails with a 500 so
// the warning banner shows up. Call this in a goroutine before starting
// TablePulse.
func StartMockTableServer(addr string) {
	table := &mockTable{
		rows: []map[string]any{
			{"uuid": "5b2f8c1e-0001-4a9d-9e6b-66f1c8a1d001", "status": "open", "title": "Printer on fire", "created_at": "2026-08-29T08:11:00Z"},
			{"uuid": "5b2f8c1e-0002-4a9d-9e6b-66f1c8a1d002", "status": "pending", "title": "Password reset", "created_at": "2026-08-29T08:40:00Z"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/tickets", table.handleQuery)

	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("mock table server error", "error", err)
	}
}

func (t *mockTable) handleQuery(w http.ResponseWriter, r *http.Request) {
	// simulate small latency variance
	time.Sleep(time.Duration(30+rand.Intn(120)) * time.Millisecond)

	t.mu.Lock()
	defer t.mu.Unlock()

	// fail roughly one request in five
	if rand.Intn(5) == 0 {
		slog.Info("mock table returning failure")
		http.Error(w, `{"message":"mock service hiccup"}`, http.StatusInternalServerError)
		return
	}

	t.mutateRows()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t.rows); err != nil {
		slog.Error("mock table encode error", "error", err)
	}
}

// mutateRows randomly flips a ticket status or adds a row so consecutive
// polls visibly differ.
func (t *mockTable) mutateRows() {
	switch rand.Intn(4) {
	case 0:
		if len(t.rows) > 0 {
			statuses := []string{"open", "pending", "closed"}
			row := t.rows[rand.Intn(len(t.rows))]
			row["status"] = statuses[rand.Intn(len(statuses))]
		}
	case 1:
		if len(t.rows) < 8 {
			t.rows = append(t.rows, map[string]any{
				"uuid":       randomUUIDish(),
				"status":     "open",
				"title":      "Auto-generated ticket",
				"created_at": time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

const hexDigits = "0123456789abcdef"

func randomUUIDish() string {
	b := make([]byte, 36)
	for i := range b {
		switch i {
		case 8, 13, 18, 23:
			b[i] = '-'
		default:
			b[i] = hexDigits[rand.Intn(len(hexDigits))]
		}
	}
	return string(b)
}
