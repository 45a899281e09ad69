package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// DBTX is an interface that both sql.DB and sql.Tx implement.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	// ErrInvalidTablePrefix is returned when the prefix is not a valid PostgreSQL identifier.
	ErrInvalidTablePrefix = errors.New("table prefix must contain only lowercase letters, numbers, and underscores, and start with a letter")

	// validPrefixPattern validates PostgreSQL-safe identifiers.
	validPrefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

var (
	createRecordsTableSQL = `
CREATE TABLE IF NOT EXISTS %s_records (
    key          TEXT          NOT NULL,
    data         JSONB         NOT NULL,
    updated_at   TIMESTAMPTZ   NOT NULL DEFAULT now(),

    PRIMARY KEY (key)
);`

	getRecordSQL = `
SELECT data
FROM %s_records
WHERE key = $1;`

	setRecordSQL = `
INSERT INTO %s_records (key, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key)
DO UPDATE SET
    data = EXCLUDED.data,
    updated_at = EXCLUDED.updated_at;`

	deleteRecordSQL = `
DELETE FROM %s_records
WHERE key = $1;`

	listRecordsSQL = `
SELECT key
FROM %s_records
WHERE key LIKE $1 || '%%'
ORDER BY key ASC;`
)

// PGStore is a Store backed by a single PostgreSQL records table. It is a
// drop-in alternative to FileStore for deployments that already run Postgres.
type PGStore struct {
	db     DBTX
	prefix string
}

// NewPGStore creates a PGStore using tables named after the given prefix.
// Call Migrate first to create them.
func NewPGStore(db DBTX, prefix string) (*PGStore, error) {
	if err := ValidateTablePrefix(prefix); err != nil {
		return nil, fmt.Errorf("invalid table prefix: %w", err)
	}

	return &PGStore{
		db:     db,
		prefix: prefix,
	}, nil
}

// ValidateTablePrefix checks if the prefix is valid for use as a PostgreSQL identifier.
func ValidateTablePrefix(prefix string) error {
	if prefix == "" {
		return errors.New("table prefix cannot be empty")
	}

	if len(prefix) > 55 {
		return errors.New("table prefix must be 55 characters or less")
	}

	if !validPrefixPattern.MatchString(prefix) {
		return ErrInvalidTablePrefix
	}

	return nil
}

// Migrate creates the records table for the given prefix.
func Migrate(db *sql.DB, prefix string) error {
	if err := ValidateTablePrefix(prefix); err != nil {
		return fmt.Errorf("invalid table prefix: %w", err)
	}

	var query = fmt.Sprintf(createRecordsTableSQL, prefix)
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	return nil
}

// Load reads and unmarshals the record at key into dest.
func (s *PGStore) Load(ctx context.Context, key string, dest any) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, fmt.Errorf("invalid key %q: %w", key, err)
	}

	var (
		query = fmt.Sprintf(getRecordSQL, s.prefix)
		data  []byte
		err   = s.db.QueryRowContext(ctx, query, key).Scan(&data)
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read record %q: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode record %q: %w", key, err)
	}

	return true, nil
}

// Save serializes value and upserts it at key.
func (s *PGStore) Save(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("invalid key %q: %w", key, err)
	}

	var data, err = json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}

	var query = fmt.Sprintf(setRecordSQL, s.prefix)
	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to write record %q: %w", key, err)
	}

	return nil
}

// Delete removes the record at key.
func (s *PGStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("invalid key %q: %w", key, err)
	}

	var query = fmt.Sprintf(deleteRecordSQL, s.prefix)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete record %q: %w", key, err)
	}

	return nil
}

// List returns all keys starting with prefix, ordered lexically.
func (s *PGStore) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		query     = fmt.Sprintf(listRecordsSQL, s.prefix)
		rows, err = s.db.QueryContext(ctx, query, prefix)
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys under %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys = make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return keys, nil
}
