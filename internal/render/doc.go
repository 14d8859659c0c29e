// Package render turns a table snapshot into HTML.
//
// This package is internal to TablePulse. It owns the view-state selection
// policy (full-page loader, blocking error panel, empty state, record list
// with non-blocking refresh and stale-data indicators) and the display
// formatting of schemaless records. Templates are executed with html/template
// against a [ViewModel] built by [BuildViewModel].
package render
