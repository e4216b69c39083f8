package test

import (
	"context"
	"log"
	"testing"

	"todoapi/internal/adapter/database"
	"todoapi/pkg/config"
)

type TestSetup[T any] struct {
	DB   *database.DB
	Repo T
}

// InitTestDB opens a private in-memory SQLite store with the schema applied.
func InitTestDB() *database.DB {
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:      "sqlite3",
		DSN:         ":memory:",
		Name:        "todos_test",
		AutoMigrate: true,
	}, nil)

	if err != nil {
		log.Fatal(err)
	}

	return db
}

func SetupTest[T any](t *testing.T, build func(db *database.DB) T) *TestSetup[T] {
	db := InitTestDB()

	return &TestSetup[T]{
		DB:   db,
		Repo: build(db),
	}
}

func TeardownTest[T any](t *testing.T, setup *TestSetup[T]) {
	if setup.DB != nil {
		CleanDB(t, setup.DB)
		setup.DB.Close()
	}
}

// CleanDB empties every application table, leaving the migration bookkeeping.
func CleanDB(t *testing.T, db *database.DB) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT IN ('sqlite_sequence', 'schema_migrations')")
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}

	var tables []string

	for rows.Next() {
		var table string

		if err := rows.Scan(&table); err != nil {
			rows.Close()
			t.Fatalf("Failed to scan table name: %v", err)
		}

		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		t.Fatalf("Error iterating over rows: %v", err)
	}
	rows.Close()

	// the single in-memory connection is busy until rows is closed
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("Failed to execute delete for table %s: %v", table, err)
		}
	}
}
