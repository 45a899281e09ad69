package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// TestingT is an interface for testing compatibility.
type TestingT interface {
	Logf(format string, args ...any)
	Skipf(format string, args ...any)
	FailNow()
	Cleanup(func())
}

// SetupTestDatabase creates a test database connection with an isolated schema.
// Tests are skipped when GMKIT_TEST_DATABASE_URL is unset, so the file-backed
// suites keep running on machines without Postgres.
func SetupTestDatabase(t TestingT) *sql.DB {
	var connURL = os.Getenv("GMKIT_TEST_DATABASE_URL")
	if connURL == "" {
		t.Skipf("GMKIT_TEST_DATABASE_URL not set, skipping Postgres test")
		return nil
	}

	var schema = fmt.Sprintf("test_%s", uuid.New().String()[0:8])

	// First, connect to create the schema
	conn, err := sql.Open("postgres", connURL)
	if err != nil {
		t.Logf("failed to connect to database. Is your local database running?: %v", err)
		t.FailNow()
	}

	_, err = conn.Exec("CREATE SCHEMA IF NOT EXISTS " + schema)
	if err != nil {
		t.Logf("Failed to create schema %s", schema)
		t.Logf("Error: %s", err)
		t.FailNow()
	}

	// Close the initial connection
	conn.Close()

	// Create a new connection with the schema in the connection string
	var separator = "?"
	if strings.Contains(connURL, "?") {
		separator = "&"
	}
	var connURLWithSchema = fmt.Sprintf("%s%ssearch_path=%s", connURL, separator, schema)
	conn, err = sql.Open("postgres", connURLWithSchema)
	if err != nil {
		t.Logf("failed to connect to database with schema: %v", err)
		t.FailNow()
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}
