// Package db provides embedded database migrations and seed data.
package db

import "embed"

// Migrations holds the versioned schema migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations containing the SQL files.
const MigrationsDir = "migrations"

// Seed holds the default catalog and coupons loaded by seed-db.
//
//go:embed seed/*.json
var Seed embed.FS
