package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the price_history schema up to date. It is a no-op
// when the schema is already current.
func RunMigrations(ctx context.Context, db *DB) error {
	m, closeFn, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// newMigrator opens a database/sql handle on the pool's DSN, which is what
// the migrate postgres driver needs, and binds it to the embedded files.
func newMigrator(ctx context.Context, db *DB) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("migrations source: %w", err)
	}
	sqldb, err := sql.Open("pgx", db.Pool.Config().ConnString())
	if err != nil {
		return nil, nil, fmt.Errorf("open sql db: %w", err)
	}
	if err := waitReady(ctx, sqldb.PingContext); err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	driver, err := pgdriver.WithInstance(sqldb, &pgdriver.Config{MigrationsTable: "xrp_monitor_migrations"})
	if err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("migrate init: %w", err)
	}
	// m.Close closes the driver, which closes sqldb.
	return m, func() { _, _ = m.Close() }, nil
}
