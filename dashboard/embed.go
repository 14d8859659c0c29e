// Package dashboard provides the embedded view templates for TablePulse.
//
// This package uses Go's embed directive to include the HTML templates at
// compile time. This enables single-binary deployment without external
// asset files.
//
// The embedded templates are rendered server-side by the render package and
// served by the server package. Users of the tablepulse library should not
// need to interact with this package directly.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the view templates.
//
// The filesystem structure is:
//
//	assets/
//	  view.html.tmpl   - Live table view (loader, error, empty, list states)
//	  setup.html.tmpl  - Configuration-needed instructions page
//
//go:embed assets/*
var Assets embed.FS
