package database

import (
	"context"
	"embed"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

func (d *DB) migrationsDir() string {
	if d.Driver == DriverSQLite {
		return path.Join("migrations", "sqlite")
	}
	return path.Join("migrations", "postgres")
}

func (d *DB) gooseSetup() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if d.Driver == DriverSQLite {
		return goose.SetDialect("sqlite3")
	}
	return goose.SetDialect("postgres")
}

// Migrate applies every pending migration.
func (d *DB) Migrate(ctx context.Context) error {
	return d.RunMigrations(ctx, "up")
}

// RunMigrations runs a goose command (up, down, status, version, redo, reset, up-to, down-to).
func (d *DB) RunMigrations(ctx context.Context, command string, args ...string) error {
	if err := d.gooseSetup(); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, d.DB, d.migrationsDir(), args...)
}
