package gmkit

import (
	"context"
	"fmt"
	"sync"

	"go-gmkit/store"
)

// Engine is the core behind the command router: the resource ledger, the
// authority registry, and the presence tracker, all persisted through a single
// durable key-value store. The router authenticates actors and decides who may
// call what; the engine only enforces data invariants.
type Engine struct {
	store     store.Store
	scheduler *scheduler
	locks     *lockMap
	options   options

	startOnce sync.Once
	started   bool
}

// NewEngine creates an Engine on top of the given store.
func NewEngine(st store.Store, opts ...Option) *Engine {
	var options = defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Engine{
		store:     st,
		scheduler: newScheduler(),
		locks:     newLockMap(),
		options:   options,
	}
}

// Start restores presence eviction timers from durable state. It must complete
// before any command is dispatched, so a fresh ready status can never race a
// stale recovery pass. Calling Start more than once is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	e.startOnce.Do(func() {
		if restoreErr := e.RestoreTimers(ctx); restoreErr != nil {
			err = fmt.Errorf("failed to restore presence timers: %w", restoreErr)
			return
		}
		e.started = true
	})

	if err != nil {
		return err
	}
	if !e.started {
		return fmt.Errorf("engine start previously failed")
	}

	return nil
}

// Stop cancels all pending eviction timers. Durable state is left untouched;
// the next Start recomputes the remaining windows from it.
func (e *Engine) Stop() {
	e.scheduler.stop()
	e.options.logger.Info("engine stopped")
}
