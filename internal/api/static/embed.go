// Package static holds the embedded upload/run/results web page.
package static

import "embed"

//go:embed index.html app.js style.css
var EmbeddedFiles embed.FS
