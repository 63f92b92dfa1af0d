// Package migrations embeds the goose migrations of the client's local
// SQLite store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dialect is the goose dialect of the local store.
const Dialect = "sqlite3"
