// Package migrations embeds the PostgreSQL schema of the auth server.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dialect is the goose dialect of these migrations.
const Dialect = "postgres"
