package gmkit

import "sync"

// lockMap serializes access per record key so every load-mutate-save cycle is
// atomic with respect to other operations on the same key. Entries are
// refcounted and dropped once the last waiter releases, so the map does not
// grow with the number of scopes ever seen.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// newLockMap creates an empty lock map.
func newLockMap() *lockMap {
	return &lockMap{
		locks: make(map[string]*lockEntry),
	}
}

// lock acquires the mutex for key, creating it on first use.
func (l *lockMap) lock(key string) {
	l.mu.Lock()
	var entry, ok = l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// unlock releases the mutex for key and discards it when unused.
func (l *lockMap) unlock(key string) {
	l.mu.Lock()
	var entry, ok = l.locks[key]
	if !ok {
		l.mu.Unlock()
		panic("gmkit: unlock of unlocked key " + key)
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
