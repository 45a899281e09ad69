package gmkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// The presence tracker persists one record per scope aggregating every
// holder's ready status. Only ready is ever stored; going not-ready deletes
// the entry. Each ready entry carries its creation timestamp so the eviction
// window can be recomputed after a restart.

// timerKey identifies the eviction timer for one (scope, holder) pair.
func timerKey(scope Scope, holder Holder) string {
	return presenceKey(scope) + "/" + string(holder)
}

// SetReady marks the holder ready in the scope and arms an eviction timer for
// the configured TTL. A previous timer for the same holder is cancelled first.
func (e *Engine) SetReady(ctx context.Context, scope Scope, holder Holder) error {
	var key = presenceKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	e.scheduler.cancel(timerKey(scope, holder))

	var record, err = e.loadPresence(ctx, scope)
	if err != nil {
		return err
	}

	record[holder] = presenceEntry{
		State:     stateReady,
		Timestamp: time.Now(),
	}

	if err := e.savePresence(ctx, scope, record); err != nil {
		return err
	}

	e.armEviction(scope, holder, e.options.readyTTL)

	e.options.logger.Info("holder ready",
		"scope", scope.String(),
		"holder", string(holder),
		"ttl", e.options.readyTTL)

	return nil
}

// SetNotReady clears the holder's ready status and cancels any pending
// eviction timer. It is a no-op if the holder was not ready.
func (e *Engine) SetNotReady(ctx context.Context, scope Scope, holder Holder) error {
	var key = presenceKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	e.scheduler.cancel(timerKey(scope, holder))

	var record, err = e.loadPresence(ctx, scope)
	if err != nil {
		return err
	}

	if _, ok := record[holder]; !ok {
		return nil
	}

	delete(record, holder)
	if err := e.savePresence(ctx, scope, record); err != nil {
		return err
	}

	e.options.logger.Info("holder not ready",
		"scope", scope.String(),
		"holder", string(holder))

	return nil
}

// CheckReady returns the display labels of every ready holder in the scope.
// Holders the identity platform no longer knows are dropped from the record as
// a side effect rather than left stale, and refreshed display names are
// re-persisted before the labels are returned.
func (e *Engine) CheckReady(ctx context.Context, scope Scope) ([]string, error) {
	var key = presenceKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadPresence(ctx, scope)
	if err != nil {
		return nil, err
	}

	var holders = make([]Holder, 0, len(record))
	for holder := range record {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })

	var labels = make([]string, 0, len(record))
	for _, holder := range holders {
		var entry = record[holder]
		if entry.State != stateReady {
			continue
		}

		label, resolveErr := e.options.resolver.ResolveHolder(ctx, scope, holder)
		if errors.Is(resolveErr, ErrUnknownHolder) {
			e.scheduler.cancel(timerKey(scope, holder))
			delete(record, holder)
			e.options.logger.Warn("dropping unresolvable holder",
				"scope", scope.String(),
				"holder", string(holder))
			continue
		}
		if resolveErr != nil {
			return nil, fmt.Errorf("failed to resolve holder %q in scope %q: %w", holder, scope, resolveErr)
		}

		entry.DisplayName = label
		record[holder] = entry
		labels = append(labels, label)
	}

	if err := e.savePresence(ctx, scope, record); err != nil {
		return nil, err
	}

	sort.Strings(labels)
	return labels, nil
}

// RestoreTimers scans every persisted presence record and re-arms eviction
// timers with the remaining window. Entries whose TTL elapsed while the
// process was down are deleted immediately instead of being given a fresh
// window. Start calls this exactly once before commands are served.
func (e *Engine) RestoreTimers(ctx context.Context) error {
	var keys, err = e.store.List(ctx, presenceKeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to list presence records: %w", err)
	}

	var (
		now      = time.Now()
		restored = 0
		expired  = 0
	)

	for _, key := range keys {
		var scope, ok = scopeFromPresenceKey(key)
		if !ok {
			e.options.logger.Warn("skipping malformed presence key", "key", key)
			continue
		}

		e.locks.lock(key)

		record, loadErr := e.loadPresence(ctx, scope)
		if loadErr != nil {
			e.locks.unlock(key)
			return loadErr
		}

		var dirty = false
		for holder, entry := range record {
			if entry.State != stateReady {
				delete(record, holder)
				dirty = true
				continue
			}

			var remaining = e.options.readyTTL - now.Sub(entry.Timestamp)
			if remaining <= 0 {
				delete(record, holder)
				dirty = true
				expired++
				continue
			}

			e.armEviction(scope, holder, remaining)
			restored++
		}

		if dirty {
			if saveErr := e.savePresence(ctx, scope, record); saveErr != nil {
				e.locks.unlock(key)
				return saveErr
			}
		}

		e.locks.unlock(key)
	}

	e.options.logger.Info("presence timers restored",
		"restored", restored,
		"expired", expired,
		"scopes", len(keys))

	return nil
}

// armEviction schedules the deferred deletion of a ready status.
func (e *Engine) armEviction(scope Scope, holder Holder, delay time.Duration) {
	e.scheduler.arm(timerKey(scope, holder), delay, func() {
		e.evictReady(scope, holder)
	})
}

// evictReady runs when an eviction timer fires. It re-loads the record and
// deletes the entry only if it is still ready, guarding against a not-ready
// transition that raced the timer between arming and firing.
func (e *Engine) evictReady(scope Scope, holder Holder) {
	var ctx = context.Background()

	var key = presenceKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadPresence(ctx, scope)
	if err != nil {
		e.options.logger.Error("failed to load presence record during eviction",
			"scope", scope.String(),
			"holder", string(holder),
			"error", err)
		return
	}

	var entry, ok = record[holder]
	if !ok || entry.State != stateReady {
		return
	}

	// A ready status refreshed after this timer fired is not due yet; re-arm
	// for the remainder instead of evicting it early.
	var remaining = e.options.readyTTL - time.Since(entry.Timestamp)
	if remaining > 0 {
		e.armEviction(scope, holder, remaining)
		return
	}

	delete(record, holder)
	if err := e.savePresence(ctx, scope, record); err != nil {
		e.options.logger.Error("failed to save presence record during eviction",
			"scope", scope.String(),
			"holder", string(holder),
			"error", err)
		return
	}

	e.options.logger.Info("ready status expired",
		"scope", scope.String(),
		"holder", string(holder))
}

// loadPresence reads the scope's presence record, returning an empty mapping
// when absent.
func (e *Engine) loadPresence(ctx context.Context, scope Scope) (presenceRecord, error) {
	var record = make(presenceRecord)
	if _, err := e.store.Load(ctx, presenceKey(scope), &record); err != nil {
		return nil, fmt.Errorf("failed to load presence record for scope %q: %w", scope, err)
	}

	return record, nil
}

// savePresence persists the scope's presence record, deleting it entirely when
// no holder is ready anymore.
func (e *Engine) savePresence(ctx context.Context, scope Scope, record presenceRecord) error {
	var key = presenceKey(scope)

	if len(record) == 0 {
		if err := e.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete presence record for scope %q: %w", scope, err)
		}
		return nil
	}

	if err := e.store.Save(ctx, key, record); err != nil {
		return fmt.Errorf("failed to save presence record for scope %q: %w", scope, err)
	}

	return nil
}

// scopeFromPresenceKey recovers the scope from a "presence/<community>/<channel>" key.
func scopeFromPresenceKey(key string) (Scope, bool) {
	var parts = strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != "presence" || parts[1] == "" || parts[2] == "" {
		return Scope{}, false
	}

	return Scope{Community: parts[1], Channel: parts[2]}, true
}
