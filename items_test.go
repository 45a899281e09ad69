package gmkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseItemTokens(t *testing.T) {
	t.Run("should parse name=qty tokens", func(t *testing.T) {
		// Act
		var items = ParseItemTokens([]string{"rope=3", "torch=1"})

		// Assert
		assert.Equal(t, Items{"rope": 3, "torch": 1}, items)
	})

	t.Run("should discard tokens with non-positive or non-numeric quantities", func(t *testing.T) {
		// Act
		var items = ParseItemTokens([]string{"rope=0", "torch=-2", "sword=lots", "coin=5"})

		// Assert
		assert.Equal(t, Items{"coin": 5}, items)
	})

	t.Run("should discard tokens without a separator or name", func(t *testing.T) {
		// Act
		var items = ParseItemTokens([]string{"rope", "=4", "  =2", "coin=1"})

		// Assert
		assert.Equal(t, Items{"coin": 1}, items)
	})

	t.Run("should accumulate repeated names", func(t *testing.T) {
		// Act
		var items = ParseItemTokens([]string{"coin=2", "coin=3"})

		// Assert
		assert.Equal(t, Items{"coin": 5}, items)
	})

	t.Run("should trim whitespace around names and quantities", func(t *testing.T) {
		// Act
		var items = ParseItemTokens([]string{" rope = 3 "})

		// Assert
		assert.Equal(t, Items{"rope": 3}, items)
	})
}

func TestParseItemNames(t *testing.T) {
	t.Run("should trim and keep bare names", func(t *testing.T) {
		// Act
		var names = ParseItemNames([]string{" rope ", "torch", ""})

		// Assert
		assert.Equal(t, []string{"rope", "torch"}, names)
	})
}
