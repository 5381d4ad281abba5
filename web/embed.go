// Package web holds the browser assets compiled into the binaries.
package web

import "embed"

// Templates holds the layouts, partials and pages parsed by view.Engine.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static holds stylesheets served under /static/.
//
//go:embed static
var Static embed.FS
