// Package migrations embeds the SQL schema and applies it with golang-migrate.
//
// Files follow golang-migrate naming: NNN_name.up.sql / NNN_name.down.sql.
// Progress is tracked in the schema_migrations table.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed *.sql
var files embed.FS

// Result reports the schema state after a migration run.
type Result struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Up applies every pending up migration against the pool's database.
func Up(pool *pgxpool.Pool) (Result, error) {
	m, closeFn, err := newMigrate(pool)
	if err != nil {
		return Result{}, err
	}
	defer closeFn()

	changed := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return Result{}, fmt.Errorf("apply migrations: %w", err)
		}
		changed = false
	}
	return version(m, changed)
}

// Down rolls back the most recent n migrations.
func Down(pool *pgxpool.Pool, n int) (Result, error) {
	m, closeFn, err := newMigrate(pool)
	if err != nil {
		return Result{}, err
	}
	defer closeFn()

	changed := true
	if err := m.Steps(-n); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return Result{}, fmt.Errorf("roll back migrations: %w", err)
		}
		changed = false
	}
	return version(m, changed)
}

func version(m *migrate.Migrate, changed bool) (Result, error) {
	v, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return Result{Changed: changed}, nil
		}
		return Result{}, fmt.Errorf("read schema version: %w", err)
	}
	return Result{Version: v, Dirty: dirty, Changed: changed}, nil
}

// newMigrate bridges the pgx pool to database/sql for the golang-migrate
// pgx/v5 driver and loads the embedded files as the source.
func newMigrate(pool *pgxpool.Pool) (*migrate.Migrate, func(), error) {
	db := stdlib.OpenDBFromPool(pool)

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(files, ".")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate instance: %w", err)
	}
	return m, func() {
		m.Close() //nolint:errcheck
		db.Close()
	}, nil
}
