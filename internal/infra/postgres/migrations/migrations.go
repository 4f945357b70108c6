// Package migrations registers the Postgres schema with bun's migrator. Each file's
// timestamp prefix is the migration name, so files apply in name order.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
