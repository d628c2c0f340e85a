// Package locales embeds the UI message catalogs.
package locales

import "embed"

// FS holds active.<lang>.toml files.
//
//go:embed *.toml
var FS embed.FS

// Supported lists the languages with a message catalog, default first.
var Supported = []string{"en", "ja"}
