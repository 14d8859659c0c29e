// Package poller implements the fetch loop for a single hosted table.
//
// This package is internal to TablePulse and handles the one query this
// system ever makes against its environment: "select all rows and all
// fields from table T" over the hosted database's REST interface.
//
// The main components are:
//
//   - [Client]: REST client for the hosted table service with timeout and size limits
//   - [Watcher]: Timer-driven fetch lifecycle for one (table, interval) pair
//   - [FetchResult]: Outcome of a single fetch attempt
//   - [Record]: A single schemaless row returned by the table
//
// Users of the tablepulse library should not need to interact with this
// package directly. Configuration is done through the main tablepulse package.
package poller
