package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the handle shared by repositories and services.
type DB struct {
	*sql.DB
	Driver string
	pool   *pgxpool.Pool
}

// Dialect is the goqu dialect name matching the driver.
func (d *DB) Dialect() string {
	if d.Driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d *DB) Close() error {
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres, "":
		return New(ctx, dsn)
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// New opens postgres through a pgx pool exposed as *sql.DB.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = time.Hour
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return &DB{DB: stdlib.OpenDBFromPool(p), Driver: DriverPostgres, pool: p}, nil
}

// OpenSQLite opens an embedded database. A single connection serialises writers,
// so ":memory:" stays one database for the lifetime of the handle.
func OpenSQLite(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &DB{DB: db, Driver: DriverSQLite}, nil
}
