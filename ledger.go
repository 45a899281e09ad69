package gmkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyItemName is returned when an item name is empty after trimming.
	ErrEmptyItemName = errors.New("item name cannot be empty")

	// ErrInvalidQuantity is returned when a quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrSelfTransfer is returned when a transfer names the same holder on
	// both sides. Running both load-mutate-save cycles against one backing
	// record would corrupt it, so the ledger rejects this up front.
	ErrSelfTransfer = errors.New("cannot transfer items to the same holder")
)

// InsufficientError reports a transfer that asked for more of an item than the
// sender holds. No item in the batch is moved when this is returned.
type InsufficientError struct {
	Item string
	Have int
	Want int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient quantity of %q: have %d, want %d", e.Item, e.Have, e.Want)
}

// The resource ledger persists one record per (scope, holder) mapping item
// names to positive quantities. Callers are expected to check IsEnabled before
// mutating; the ledger itself stays gate-free so it can be reused.

// Ledger returns the holder's current item mapping, possibly empty.
func (e *Engine) Ledger(ctx context.Context, scope Scope, holder Holder) (Items, error) {
	var key = ledgerKey(scope, holder)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	return e.loadLedger(ctx, scope, holder)
}

// AddItems increments the holder's quantities by the given amounts, inserting
// new item names as needed. The operation is additive, not idempotent; callers
// retrying a command must dedupe themselves.
func (e *Engine) AddItems(ctx context.Context, scope Scope, holder Holder, items Items) error {
	var normalized, err = normalizeItems(items)
	if err != nil {
		return err
	}

	var key = ledgerKey(scope, holder)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	ledger, err := e.loadLedger(ctx, scope, holder)
	if err != nil {
		return err
	}

	for name, qty := range normalized {
		ledger[name] += qty
	}

	if err := e.saveLedger(ctx, scope, holder, ledger); err != nil {
		return err
	}

	e.options.logger.Info("items added",
		"scope", scope.String(),
		"holder", string(holder),
		"items", len(normalized))

	return nil
}

// RemoveItems decrements the holder's quantities by the given amounts. An item
// whose quantity reaches zero is deleted, and removing more than held clamps
// to deletion rather than failing. Transfer is the strict path; removal stays
// forgiving so a GM can always clean up a ledger.
func (e *Engine) RemoveItems(ctx context.Context, scope Scope, holder Holder, items Items) error {
	var normalized, err = normalizeItems(items)
	if err != nil {
		return err
	}

	var key = ledgerKey(scope, holder)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	ledger, err := e.loadLedger(ctx, scope, holder)
	if err != nil {
		return err
	}

	for name, qty := range normalized {
		subtractItem(ledger, name, qty)
	}

	if err := e.saveLedger(ctx, scope, holder, ledger); err != nil {
		return err
	}

	e.options.logger.Info("items removed",
		"scope", scope.String(),
		"holder", string(holder),
		"items", len(normalized))

	return nil
}

// DeleteItems removes the named items outright, regardless of quantity. Names
// not present in the ledger are ignored.
func (e *Engine) DeleteItems(ctx context.Context, scope Scope, holder Holder, names []string) error {
	var trimmed = make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("failed to delete items: %w", ErrEmptyItemName)
		}
		trimmed = append(trimmed, name)
	}

	var key = ledgerKey(scope, holder)
	e.locks.lock(key)
	defer e.locks.unlock(key)

	var ledger, err = e.loadLedger(ctx, scope, holder)
	if err != nil {
		return err
	}

	for _, name := range trimmed {
		delete(ledger, name)
	}

	if err := e.saveLedger(ctx, scope, holder, ledger); err != nil {
		return err
	}

	e.options.logger.Info("items deleted",
		"scope", scope.String(),
		"holder", string(holder),
		"items", len(trimmed))

	return nil
}

// Transfer moves items from one holder to another within a scope. It is
// two-phase: every requested item is validated against the sender's balance
// before any mutation, so an InsufficientError means neither ledger changed.
// The sender and receiver records are still two separate writes; a crash
// between them loses the in-flight quantity (see DESIGN.md).
func (e *Engine) Transfer(ctx context.Context, scope Scope, from, to Holder, items Items) error {
	if from == to {
		return fmt.Errorf("failed to transfer in scope %q: %w", scope, ErrSelfTransfer)
	}

	var normalized, err = normalizeItems(items)
	if err != nil {
		return err
	}

	// Lock both ledgers in deterministic key order to avoid deadlock with a
	// concurrent transfer in the opposite direction.
	var (
		fromKey = ledgerKey(scope, from)
		toKey   = ledgerKey(scope, to)
		first   = fromKey
		second  = toKey
	)
	if second < first {
		first, second = second, first
	}
	e.locks.lock(first)
	defer e.locks.unlock(first)
	e.locks.lock(second)
	defer e.locks.unlock(second)

	sender, err := e.loadLedger(ctx, scope, from)
	if err != nil {
		return err
	}

	// Validate phase: the whole batch must be covered before anything moves.
	for name, qty := range normalized {
		if sender[name] < qty {
			return &InsufficientError{Item: name, Have: sender[name], Want: qty}
		}
	}

	receiver, err := e.loadLedger(ctx, scope, to)
	if err != nil {
		return err
	}

	// Apply phase: debit the sender, then credit the receiver.
	for name, qty := range normalized {
		subtractItem(sender, name, qty)
		receiver[name] += qty
	}

	if err := e.saveLedger(ctx, scope, from, sender); err != nil {
		return err
	}
	if err := e.saveLedger(ctx, scope, to, receiver); err != nil {
		return err
	}

	e.options.logger.Info("items transferred",
		"scope", scope.String(),
		"from", string(from),
		"to", string(to),
		"items", len(normalized))

	return nil
}

// normalizeItems trims item names and validates the batch: names must be
// non-empty and quantities strictly positive.
func normalizeItems(items Items) (Items, error) {
	var normalized = make(Items, len(items))
	for name, qty := range items {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("failed to validate items: %w", ErrEmptyItemName)
		}
		if qty <= 0 {
			return nil, fmt.Errorf("failed to validate item %q: %w", name, ErrInvalidQuantity)
		}
		normalized[name] += qty
	}

	return normalized, nil
}

// subtractItem decrements an item, deleting the key once the quantity drops to
// zero or below. A quantity of zero must never be stored.
func subtractItem(ledger Items, name string, qty int) {
	ledger[name] -= qty
	if ledger[name] <= 0 {
		delete(ledger, name)
	}
}

// loadLedger reads the holder's ledger record, returning an empty mapping when
// absent.
func (e *Engine) loadLedger(ctx context.Context, scope Scope, holder Holder) (Items, error) {
	var ledger = make(Items)
	if _, err := e.store.Load(ctx, ledgerKey(scope, holder), &ledger); err != nil {
		return nil, fmt.Errorf("failed to load ledger for %q in scope %q: %w", holder, scope, err)
	}

	return ledger, nil
}

// saveLedger persists the holder's ledger record, deleting the record entirely
// when the mapping is empty. Existence of a stored record always implies a
// non-empty ledger.
func (e *Engine) saveLedger(ctx context.Context, scope Scope, holder Holder, ledger Items) error {
	var key = ledgerKey(scope, holder)

	if len(ledger) == 0 {
		if err := e.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete ledger for %q in scope %q: %w", holder, scope, err)
		}
		return nil
	}

	if err := e.store.Save(ctx, key, ledger); err != nil {
		return fmt.Errorf("failed to save ledger for %q in scope %q: %w", holder, scope, err)
	}

	return nil
}
