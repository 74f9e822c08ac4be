package ledger

import "context"

// Store persists player records, one per registered identity.
// Implementations must be safe for concurrent use.
//
// The store is the sole shared mutable resource: the engine never caches
// record contents across calls, and every mutation goes through Update so
// that no write is computed from a stale read.
type Store interface {
	// Create inserts a new record. Returns [ErrAlreadyRegistered] if a
	// record for the same identity exists.
	Create(ctx context.Context, rec *PlayerRecord) error

	// Get retrieves the record for identity. Returns [ErrNotRegistered]
	// when absent. The returned record is the caller's to mutate.
	Get(ctx context.Context, identity string) (*PlayerRecord, error)

	// Update applies mutate to the record for identity as a single atomic
	// read-modify-write. When mutate returns an error the record is left
	// exactly as it was; when the write-back fails no partial mutation may
	// remain visible. Returns [ErrNotRegistered] when the record is absent.
	Update(ctx context.Context, identity string, mutate func(*PlayerRecord) error) error

	// Delete removes the record for identity. Returns [ErrNotRegistered]
	// when absent.
	Delete(ctx context.Context, identity string) error

	// List returns all records. Order is not guaranteed.
	List(ctx context.Context) ([]*PlayerRecord, error)
}
