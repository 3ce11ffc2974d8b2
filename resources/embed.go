package resources

import "embed"

// FS exposes the static console assets.
//
//go:embed console.css
var FS embed.FS
