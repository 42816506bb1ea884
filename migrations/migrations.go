// Package migrations embeds the PostgreSQL schema migrations for the
// submission store.
package migrations

import "embed"

// FS holds the golang-migrate up/down SQL files.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS that holds the migration files.
const Dir = "."
