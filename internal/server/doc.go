// Package server provides the HTTP server for the TablePulse view and API.
//
// This package is internal to TablePulse and handles all HTTP concerns:
//
//   - View serving: server-rendered table view (or setup page) at "/"
//   - REST API: JSON endpoint at "/api/snapshot" for the current snapshot
//   - Server-Sent Events: real-time update notifications at "/api/sse"
//   - Liveness: "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the tablepulse library should not need to interact with this
// package directly. The server is started automatically by
// [tablepulse.TablePulse.Start].
package server
