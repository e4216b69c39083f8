package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies every pending up migration for the dialect.
// For Postgres db is closed afterwards, also on failure; for SQLite it stays open.
func RunMigrations(db *sql.DB, dialect Dialect) error {
	source, err := iofs.New(migrationsFS, "migrations/"+migrationsDir(dialect))
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var driver migratedb.Driver

	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}

	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		if dialect == Postgres {
			_ = driver.Close()
		}
		return fmt.Errorf("create migration instance: %w", err)
	}

	// closing the sqlite driver would close the shared pool
	return applyMigrations(m, dialect == Postgres)
}

type migrator interface {
	Up() error
	Close() (source error, database error)
}

// applyMigrations runs m up and, when closeAfter is set, closes it whether or
// not the run succeeded.
func applyMigrations(m migrator, closeAfter bool) error {
	upErr := m.Up()
	if errors.Is(upErr, migrate.ErrNoChange) {
		upErr = nil
	}

	if upErr != nil {
		upErr = fmt.Errorf("run migrations: %w", upErr)
	}

	if closeAfter {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			return errors.Join(upErr, fmt.Errorf("close migrations: %w", errors.Join(srcErr, dbErr)))
		}
	}

	return upErr
}

func migrationsDir(dialect Dialect) string {
	if dialect == Postgres {
		return "postgres"
	}

	return "sqlite"
}
