// Package store defines the port to the shared room store: a path-addressed
// tree of JSON values with point reads, atomic multi-path writes, optimistic
// compare-and-retry transactions and push subscriptions. Implementations are
// injected into the coordinator; tests use the in-memory one.
package store

import "context"

// Value is a decoded JSON fragment: nil, bool, float64, string, []any or
// map[string]any. The absence of a node is represented as nil, and writing
// nil deletes the node, the same way the tree behaves on the wire.
type Value = any

// TxnFunc computes the next value for a transaction target from its current
// value. Returning an error aborts the transaction without committing.
// The store may invoke the function several times, once per optimistic
// attempt, so it must be free of side effects.
type TxnFunc func(current Value) (Value, error)

// Store is the core-facing API of the shared room store. It owns the document
// tree but never interprets its contents.
type Store interface {
	// Get returns a snapshot of the subtree at path, or nil if absent.
	Get(ctx context.Context, path string) (Value, error)

	// Update applies all writes as one atomic commit. A nil value deletes
	// the node at its path.
	Update(ctx context.Context, writes map[string]Value) error

	// Transact runs fn in a compare-and-retry loop against the value at path
	// and returns the value that was actually committed. Retries are bounded;
	// sustained contention surfaces as domain.ErrConflict.
	Transact(ctx context.Context, path string, fn TxnFunc) (Value, error)

	// Subscribe registers fn for the subtree at path. It is invoked once
	// immediately with the current snapshot (nil if absent) and again after
	// every commit that touches the subtree, in commit order. Intermediate
	// states may be coalesced; every invocation carries a full snapshot.
	// The returned cancel is idempotent.
	Subscribe(path string, fn func(Value)) (cancel func())

	// Connect opens a connection whose disconnect hooks the store commits on
	// the caller's behalf when the connection closes.
	Connect() Connection
}

// Connection scopes disconnect hooks to one transport connection. Hooks fire
// at most once, when the connection closes, and are skipped if the node's
// parent no longer exists so that a late hook cannot resurrect a removed
// document.
type Connection interface {
	// OnDisconnect registers value to be written at path when the connection
	// closes. Registrations do not survive the connection; a reconnecting
	// caller must re-issue them.
	OnDisconnect(path string, value Value)

	// Close fires pending hooks and releases the connection. Idempotent.
	Close()
}
