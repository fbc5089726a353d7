package migrations

import "embed"

// FS contains embedded SQLite migrations for checkpoint storage.
//
//go:embed *.sql
var FS embed.FS
