package gmkit

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAlreadyHasGM is returned when registering a GM for a scope that
	// already has one.
	ErrAlreadyHasGM = errors.New("scope already has a GM")

	// ErrNoGM is returned when unregistering from a scope with no GM.
	ErrNoGM = errors.New("scope has no GM")

	// ErrNotCurrentGM is returned when unregistering a holder that is not the
	// scope's current GM.
	ErrNotCurrentGM = errors.New("holder is not the current GM")
)

// The authority registry persists one record per scope holding the enabled
// flag and the GM set. Who may call Toggle/RegisterGM/UnregisterGM is policy
// enforced by the caller against the identity platform; this component only
// enforces the at-most-one-GM data invariant.

// IsEnabled reports whether the ledger system is enabled for the scope.
// An absent record means disabled.
func (e *Engine) IsEnabled(ctx context.Context, scope Scope) (bool, error) {
	var key = authorityKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadAuthority(ctx, scope)
	if err != nil {
		return false, err
	}

	return record.Enabled, nil
}

// Toggle flips the enabled flag for the scope, persists it, and returns the
// new value.
func (e *Engine) Toggle(ctx context.Context, scope Scope) (bool, error) {
	var key = authorityKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadAuthority(ctx, scope)
	if err != nil {
		return false, err
	}

	record.Enabled = !record.Enabled
	if err := e.saveAuthority(ctx, scope, record); err != nil {
		return false, err
	}

	e.options.logger.Info("ledger system toggled",
		"scope", scope.String(),
		"enabled", record.Enabled)

	return record.Enabled, nil
}

// RegisterGM makes holder the scope's sole GM. It fails with ErrAlreadyHasGM
// if the scope already has one.
func (e *Engine) RegisterGM(ctx context.Context, scope Scope, holder Holder) error {
	var key = authorityKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadAuthority(ctx, scope)
	if err != nil {
		return err
	}

	if len(record.GMs) > 0 {
		return fmt.Errorf("failed to register %q in scope %q: %w", holder, scope, ErrAlreadyHasGM)
	}

	record.GMs = []Holder{holder}
	if err := e.saveAuthority(ctx, scope, record); err != nil {
		return err
	}

	e.options.logger.Info("GM registered",
		"scope", scope.String(),
		"holder", string(holder))

	return nil
}

// UnregisterGM removes holder as the scope's GM. It fails with ErrNoGM when
// the scope has no GM, and with ErrNotCurrentGM when holder is not the one
// registered. Once the GM set is empty the backing record is dropped if it
// carries no other state.
func (e *Engine) UnregisterGM(ctx context.Context, scope Scope, holder Holder) error {
	var key = authorityKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadAuthority(ctx, scope)
	if err != nil {
		return err
	}

	if len(record.GMs) == 0 {
		return fmt.Errorf("failed to unregister %q in scope %q: %w", holder, scope, ErrNoGM)
	}
	if record.GMs[0] != holder {
		return fmt.Errorf("failed to unregister %q in scope %q: %w", holder, scope, ErrNotCurrentGM)
	}

	record.GMs = nil
	if err := e.saveAuthority(ctx, scope, record); err != nil {
		return err
	}

	e.options.logger.Info("GM unregistered",
		"scope", scope.String(),
		"holder", string(holder))

	return nil
}

// IsGM reports whether holder is the scope's current GM.
func (e *Engine) IsGM(ctx context.Context, scope Scope, holder Holder) (bool, error) {
	var key = authorityKey(scope)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var record, err = e.loadAuthority(ctx, scope)
	if err != nil {
		return false, err
	}

	for _, gm := range record.GMs {
		if gm == holder {
			return true, nil
		}
	}

	return false, nil
}

// loadAuthority reads the scope's authority record, returning the zero record
// when absent.
func (e *Engine) loadAuthority(ctx context.Context, scope Scope) (authorityRecord, error) {
	var record authorityRecord
	if _, err := e.store.Load(ctx, authorityKey(scope), &record); err != nil {
		return authorityRecord{}, fmt.Errorf("failed to load authority record for scope %q: %w", scope, err)
	}

	return record, nil
}

// saveAuthority persists the scope's authority record, deleting it entirely
// when it has returned to the zero state.
func (e *Engine) saveAuthority(ctx context.Context, scope Scope, record authorityRecord) error {
	var key = authorityKey(scope)

	if record.empty() {
		if err := e.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete authority record for scope %q: %w", scope, err)
		}
		return nil
	}

	if err := e.store.Save(ctx, key, record); err != nil {
		return fmt.Errorf("failed to save authority record for scope %q: %w", scope, err)
	}

	return nil
}
