package gmkit

import (
	"testing"

	"go-gmkit/store"

	"github.com/google/uuid"
)

// newTestEngine builds an Engine over a file store in a fresh temp directory.
func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	var engine = NewEngine(store.NewFileStore(t.TempDir()), opts...)
	t.Cleanup(engine.Stop)

	return engine
}

// newTestScope returns a scope that is unique per invocation so parallel
// subtests never collide on keys.
func newTestScope() Scope {
	return Scope{
		Community: "guild-" + uuid.New().String()[0:8],
		Channel:   "chan-1",
	}
}
