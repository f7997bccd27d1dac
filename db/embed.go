// Package db embeds the goose SQL migrations so binaries carry their schema.
package db

import "embed"

// Migrations holds every file under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"
