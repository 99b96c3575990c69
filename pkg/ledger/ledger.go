// Package ledger owns the authoritative account -> Cloud Points mapping.
//
// The durable store of record is a full snapshot held by an external blob
// store (a channel attachment in the default deployment); the in-process
// store is a read-through, time-boxed projection of it. Adjustments are
// applied to memory synchronously and persisted back asynchronously on a
// coalescing schedule, so callers see immediately consistent reads within
// the process while writes to the directory stay rate-limited.
package ledger

import "context"

// Store defines balance read and adjust operations for the points ledger.
type Store interface {
	// GetBalance returns the account's balance. Unknown accounts read as 0.
	GetBalance(ctx context.Context, accountID string) (int64, error)

	// Adjust applies delta to the account's balance and returns the new value.
	// A debit that would drive the balance below zero fails with
	// ErrInsufficientFunds and leaves the ledger untouched.
	Adjust(ctx context.Context, accountID string, delta int64) (int64, error)

	// Refresh replaces the cached snapshot from the durable store. On failure
	// the previous cache is preserved.
	Refresh(ctx context.Context) error

	// Flush synchronously persists pending changes to the durable store.
	Flush(ctx context.Context) error

	// Snapshot returns a copy of the current in-memory balances.
	Snapshot() map[string]int64
}

// SnapshotStore is the narrow interface over the durable snapshot location.
// The default implementation stores the snapshot as a channel attachment;
// a database-backed implementation can replace it without touching callers.
type SnapshotStore interface {
	// ReadSnapshot fetches and decodes the latest stored snapshot.
	// A store with no snapshot yet returns an empty map, not an error.
	ReadSnapshot(ctx context.Context) (map[string]int64, error)

	// WriteSnapshot replaces the stored snapshot with the given balances.
	WriteSnapshot(ctx context.Context, balances map[string]int64) error
}
