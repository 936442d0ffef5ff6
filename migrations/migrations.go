// Package migrations embeds the registry schema for each supported driver.
package migrations

import "embed"

// SqliteMigrations holds the schema migrations for sqlite3.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds the schema migrations for postgres.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
