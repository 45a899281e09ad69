package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGStore(t *testing.T) {
	const testPrefix = "gmkit_test"

	var (
		ctx      = context.Background()
		newStore = func(t *testing.T) *PGStore {
			var db = SetupTestDatabase(t)
			require.NoError(t, Migrate(db, testPrefix))

			sut, err := NewPGStore(db, testPrefix)
			require.NoError(t, err)
			return sut
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
	})

	t.Run("should round-trip and overwrite a record", func(t *testing.T) {
		// Arrange
		var sut = newStore(t)
		require.NoError(t, sut.Save(ctx, "ledger/guild/chan/bob", map[string]int{"rope": 3}))

		// Act: second save replaces the record
		require.NoError(t, sut.Save(ctx, "ledger/guild/chan/bob", map[string]int{"rope": 5}))

		// Assert
		var loaded map[string]int
		found, err := sut.Load(ctx, "ledger/guild/chan/bob", &loaded)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, map[string]int{"rope": 5}, loaded)
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

		require.NoError(t, sut.Delete(ctx, "authority/guild/chan"))
	})

	t.Run("should list keys under a prefix in order", func(t *testing.T) {
		// Arrange
		var sut = newStore(t)
		require.NoError(t, sut.Save(ctx, "presence/guild/chan-2", map[string]int{"b": 2}))
		require.NoError(t, sut.Save(ctx, "presence/guild/chan-1", map[string]int{"a": 1}))
		require.NoError(t, sut.Save(ctx, "ledger/guild/chan-1/bob", map[string]int{"c": 3}))

		// Act
		var keys, err = sut.List(ctx, "presence/")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"presence/guild/chan-1", "presence/guild/chan-2"}, keys)
	})
}

func TestValidateTablePrefix(t *testing.T) {
	t.Run("should accept lowercase identifiers", func(t *testing.T) {
		assert.NoError(t, ValidateTablePrefix("gmkit"))
		assert.NoError(t, ValidateTablePrefix("gmkit_prod_2"))
	})

	t.Run("should reject invalid identifiers", func(t *testing.T) {
		assert.Error(t, ValidateTablePrefix(""))
		assert.ErrorIs(t, ValidateTablePrefix("1gmkit"), ErrInvalidTablePrefix)
		assert.ErrorIs(t, ValidateTablePrefix("GmKit"), ErrInvalidTablePrefix)
		assert.ErrorIs(t, ValidateTablePrefix("gmkit; drop table"), ErrInvalidTablePrefix)
	})
}
