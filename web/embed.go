package web

import "embed"

// Static holds the dashboard page and its assets
//
//go:embed static
var Static embed.FS
