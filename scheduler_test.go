package gmkit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler(t *testing.T) {
	t.Run("should fire an armed timer once", func(t *testing.T) {
		// Arrange
		var (
			sut   = newScheduler()
			fired atomic.Int32
		)
		defer sut.stop()

		// Act
		sut.arm("key-a", 10*time.Millisecond, func() { fired.Add(1) })

		// Assert
		assert.Eventually(t, func() bool {
			return fired.Load() == 1 && !sut.pending("key-a")
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("should supersede an existing timer when re-armed", func(t *testing.T) {
		// Arrange
		var (
			sut   = newScheduler()
			first atomic.Int32
			last  atomic.Int32
		)
		defer sut.stop()

		// Act
		sut.arm("key-a", 20*time.Millisecond, func() { first.Add(1) })
		sut.arm("key-a", 40*time.Millisecond, func() { last.Add(1) })

		// Assert
		assert.Eventually(t, func() bool {
			return last.Load() == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(0), first.Load(), "superseded timer must never fire")
	})

	t.Run("should not fire a cancelled timer", func(t *testing.T) {
		// Arrange
		var (
			sut   = newScheduler()
			fired atomic.Int32
		)
		defer sut.stop()
		sut.arm("key-a", 20*time.Millisecond, func() { fired.Add(1) })

		// Act
		sut.cancel("key-a")

		// Assert
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, int32(0), fired.Load())
		assert.False(t, sut.pending("key-a"))
	})

	t.Run("should reject arming after stop", func(t *testing.T) {
		// Arrange
		var (
			sut   = newScheduler()
			fired atomic.Int32
		)

		// Act
		sut.stop()
		sut.arm("key-a", time.Millisecond, func() { fired.Add(1) })

		// Assert
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int32(0), fired.Load())
		assert.False(t, sut.pending("key-a"))
	})
}
