package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Store is the durable key-value primitive behind the ledger, authority, and
// presence components. Keys are slash-separated paths ("ledger/<scope>/<holder>").
// Absence of a record is reported through the found bool rather than a sentinel
// value, so callers can tell "empty" from "missing" without probing the backend.
type Store interface {
	// Load reads the record at key into dest. It returns false if no record
	// exists; dest is left untouched in that case.
	Load(ctx context.Context, key string, dest any) (bool, error)

	// Save serializes value and writes it at key, replacing any existing record.
	Save(ctx context.Context, key string, value any) error

	// Delete removes the record at key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// List returns all keys starting with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

var (
	// ErrInvalidKey is returned when a key or key segment contains characters
	// outside the allowed identifier set.
	ErrInvalidKey = errors.New("key segments must contain only letters, numbers, '.', ':', '-' and '_'")

	// validSegmentPattern keeps keys safe to use as file names and SQL values.
	validSegmentPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)
)

// Key joins path segments into a store key.
func Key(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidateKey checks that every segment of the key is a safe identifier.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == "." || segment == ".." || !validSegmentPattern.MatchString(segment) {
			return ErrInvalidKey
		}
	}

	return nil
}
