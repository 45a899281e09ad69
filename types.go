package gmkit

import (
	"time"

	"go-gmkit/store"
)

// Scope identifies the canonical community + channel namespace that ledgers,
// authority records, and presence records are keyed by. Threads never appear
// here: ResolveScope collapses them to their parent channel first.
type Scope struct {
	Community string
	Channel   string
}

// String returns the scope as a path fragment.
func (s Scope) String() string {
	return s.Community + "/" + s.Channel
}

// Holder is an opaque actor identifier (player or GM), unique within a scope.
type Holder string

// Items maps item names to quantities. Quantities are always strictly
// positive; a zeroed item is deleted rather than stored.
type Items map[string]int

// Clone returns an independent copy of the item mapping.
func (it Items) Clone() Items {
	var out = make(Items, len(it))
	for name, qty := range it {
		out[name] = qty
	}
	return out
}

// authorityRecord is the per-scope durable record holding the enabled flag and
// the GM set. An absent record means disabled with no GM; the record is deleted
// again once it returns to that zero state.
type authorityRecord struct {
	Enabled bool     `json:"enabled,omitempty"`
	GMs     []Holder `json:"gms,omitempty"`
}

// empty reports whether the record carries no information beyond the defaults.
func (r authorityRecord) empty() bool {
	return !r.Enabled && len(r.GMs) == 0
}

// stateReady is the only presence state that is ever persisted. "Not ready" is
// represented by deleting the entry.
const stateReady = "ready"

// presenceEntry is one holder's persisted presence state.
type presenceEntry struct {
	State       string    `json:"state"`
	Timestamp   time.Time `json:"timestamp"`
	DisplayName string    `json:"display_name,omitempty"`
}

// presenceRecord aggregates all holders' presence entries for one scope.
type presenceRecord map[Holder]presenceEntry

// Storage key layout: one record per (scope, holder) for ledgers, one record
// per scope for authority, one record per scope for presence.

func authorityKey(scope Scope) string {
	return store.Key("authority", scope.Community, scope.Channel)
}

func ledgerKey(scope Scope, holder Holder) string {
	return store.Key("ledger", scope.Community, scope.Channel, string(holder))
}

func presenceKey(scope Scope) string {
	return store.Key("presence", scope.Community, scope.Channel)
}

// presenceKeyPrefix is the List prefix covering every scope's presence record.
const presenceKeyPrefix = "presence/"
