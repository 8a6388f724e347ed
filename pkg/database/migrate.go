package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumnos-api/pkg/config"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending schema migration for the connection's dialect.
func Migrate(db *sqlx.DB) error {
	name := db.DriverName()

	var (
		driver migratedb.Driver
		err    error
	)
	switch name {
	case config.DriverPostgres:
		// postgres.WithInstance pins a connection that is only released by closing
		// the whole pool, so hand it a connection we own instead.
		ctx := context.Background()
		conn, connErr := db.Conn(ctx)
		if connErr != nil {
			return fmt.Errorf("migration driver: %w", connErr)
		}
		defer conn.Close()
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
	case config.DriverSQLite:
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", name)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations/"+name)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer source.Close()

	// m.Close is not called: the sqlite3 driver would close db along with it.
	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
