package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	var (
		ctx      = context.Background()
		newStore = func(t *testing.T) *FileStore {
			return NewFileStore(t.TempDir())
		}
	)

	t.Run("should report absence for an unknown key", func(t *testing.T) {
		// Arrange
		var sut = newStore(t)

		// Act
		var dest map[string]int
		found, err := sut.Load(ctx, "ledger/guild/chan/bob", &dest)

		// Assert
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, dest, "dest must be untouched when the key is absent")
	})

	t.Run("should round-trip a record", func(t *testing.T) {
		// Arrange
		var (
			sut    = newStore(t)
			record = map[string]int{"rope": 3}
		)

		// Act
		require.NoError(t, sut.Save(ctx, "ledger/guild/chan/bob", record))

		// Assert
		var loaded map[string]int
		found, err := sut.Load(ctx, "ledger/guild/chan/bob", &loaded)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, record, loaded)
	})

	t.Run("should create nested directories on demand", func(t *testing.T) {
		// Arrange
		var dir = t.TempDir()
		var sut = NewFileStore(dir)

		// Act
		require.NoError(t, sut.Save(ctx, "presence/guild/chan", map[string]string{"bob": "ready"}))

		// Assert
		_, err := os.Stat(filepath.Join(dir, "presence", "guild", "chan.json"))
		assert.NoError(t, err)
	})

	t.Run("should delete a record and tolerate deleting a missing one", func(t *testing.T) {
		// Arrange
		var sut = newStore(t)
		require.NoError(t, sut.Save(ctx, "authority/guild/chan", map[string]bool{"enabled": true}))

		// Act & Assert
		require.NoError(t, sut.Delete(ctx, "authority/guild/chan"))

		var dest map[string]bool
		found, err := sut.Load(ctx, "authority/guild/chan", &dest)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, sut.Delete(ctx, "authority/guild/chan"), "deleting a missing key is a no-op")
	})

	t.Run("should list keys under a prefix", func(t *testing.T) {
		// Arrange
		var sut = newStore(t)
		require.NoError(t, sut.Save(ctx, "presence/guild/chan-1", map[string]int{"a": 1}))
		require.NoError(t, sut.Save(ctx, "presence/guild/chan-2", map[string]int{"b": 2}))
		require.NoError(t, sut.Save(ctx, "ledger/guild/chan-1/bob", map[string]int{"c": 3}))

		// Act
		var keys, err = sut.List(ctx, "presence/")

		// Assert
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"presence/guild/chan-1", "presence/guild/chan-2"}, keys)
	})

	t.Run("should list nothing for an empty store", func(t *testing.T) {
		// Arrange: the data directory does not exist until the first write
		var sut = NewFileStore(filepath.Join(t.TempDir(), "never-created"))

		// Act
		var keys, err = sut.List(ctx, "presence/")

		// Assert
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("should reject keys with unsafe segments", func(t *testing.T) {
		// Arrange
		var sut = newStore(t)

		// Act
		var err = sut.Save(ctx, "ledger/../escape", map[string]int{"a": 1})

		// Assert
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("should surface a decode failure as an error", func(t *testing.T) {
		// Arrange
		var (
			dir = t.TempDir()
			sut = NewFileStore(dir)
		)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "ledger"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger", "bad.json"), []byte("{not json"), 0o644))

		// Act
		var dest map[string]int
		_, err := sut.Load(ctx, "ledger/bad", &dest)

		// Assert
		assert.Error(t, err, "corrupt records are surfaced, not coerced to empty")
	})
}

func TestValidateKey(t *testing.T) {
	t.Run("should accept path-like keys", func(t *testing.T) {
		assert.NoError(t, ValidateKey("ledger/guild-1/chan_2/holder.3"))
	})

	t.Run("should reject empty keys and empty segments", func(t *testing.T) {
		assert.Error(t, ValidateKey(""))
		assert.ErrorIs(t, ValidateKey("ledger//bob"), ErrInvalidKey)
	})

	t.Run("should reject traversal and whitespace", func(t *testing.T) {
		assert.ErrorIs(t, ValidateKey("ledger/../bob"), ErrInvalidKey)
		assert.ErrorIs(t, ValidateKey("ledger/bo b"), ErrInvalidKey)
	})
}
