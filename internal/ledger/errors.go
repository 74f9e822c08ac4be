package ledger

import "errors"

// Every engine operation fails with exactly one of these kinds so the
// command layer can render a precise message. All are deterministic for a
// given record state except [ErrStoreUnavailable], which is the only kind a
// caller may reasonably retry.
var (
	// ErrNotRegistered is returned when an operation targets an identity
	// without a player record.
	ErrNotRegistered = errors.New("player is not registered")

	// ErrAlreadyRegistered is returned by Register when a record already
	// exists. The existing record is never touched.
	ErrAlreadyRegistered = errors.New("player is already registered")

	// ErrInvalidSlot is returned when a slot name does not resolve to a
	// catalog entry, case-insensitively.
	ErrInvalidSlot = errors.New("unknown gear slot")

	// ErrSlotOccupied is returned by SetGear when the slot already holds an
	// item. Set is first-write-only; Edit changes an existing value.
	ErrSlotOccupied = errors.New("gear slot already holds an item")

	// ErrSlotLocked is returned by EditGear when loot has been assigned to
	// the slot and the owner tries to change it.
	ErrSlotLocked = errors.New("gear slot is locked")

	// ErrEntryNotFound is returned when an edit, unlock, or removal targets
	// a slot with nothing to act on.
	ErrEntryNotFound = errors.New("no matching entry")

	// ErrInvalidValue is returned for out-of-domain inputs, e.g. a negative
	// pity value or empty item text.
	ErrInvalidValue = errors.New("invalid value")

	// ErrForbidden is returned when an admin action targets a disallowed
	// identity, e.g. removing another administrator.
	ErrForbidden = errors.New("target not allowed")

	// ErrStoreUnavailable wraps transient persistence failures. Retry policy
	// belongs to the store client, not the ledger.
	ErrStoreUnavailable = errors.New("player store unavailable")
)
