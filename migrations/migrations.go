// Package migrations embeds the versioned SQL schema of the marketplace.
package migrations

import "embed"

// FS holds the golang-migrate up/down pairs
//
//go:embed *.sql
var FS embed.FS
