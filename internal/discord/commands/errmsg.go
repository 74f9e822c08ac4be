package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ezloot/ezloot/internal/ledger"
	"github.com/ezloot/ezloot/internal/observe"
)

// userMessage renders a ledger failure as a user-facing message naming the
// specific problem. Every engine error maps to exactly one message; nothing
// falls through to a generic "an error occurred".
func userMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotRegistered):
		return "That player is not registered. Use `/register` first."
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		return "You are already registered — your existing gear is untouched."
	case errors.Is(err, ledger.ErrInvalidSlot):
		return fmt.Sprintf("Not a valid gear slot: %v.", err)
	case errors.Is(err, ledger.ErrSlotOccupied):
		return "That slot already holds an item. Use `/gear edit` to change it."
	case errors.Is(err, ledger.ErrSlotLocked):
		return "That slot is locked because loot has been assigned. An admin can `/gear unlock` it."
	case errors.Is(err, ledger.ErrEntryNotFound):
		return fmt.Sprintf("Nothing to act on: %v.", err)
	case errors.Is(err, ledger.ErrInvalidValue):
		return fmt.Sprintf("Invalid value: %v.", err)
	case errors.Is(err, ledger.ErrForbidden):
		return "Administrators cannot be removed from the ledger."
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return "The player store is temporarily unavailable. Please try again shortly."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// errorKind labels a ledger failure for metrics attributes.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ledger.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ledger.ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, ledger.ErrSlotOccupied):
		return "slot_occupied"
	case errors.Is(err, ledger.ErrSlotLocked):
		return "slot_locked"
	case errors.Is(err, ledger.ErrEntryNotFound):
		return "entry_not_found"
	case errors.Is(err, ledger.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ledger.ErrForbidden):
		return "forbidden"
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

// observeCommand records duration and outcome for one command invocation.
// m may be nil in tests.
func observeCommand(ctx context.Context, m *observe.Metrics, command string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.LedgerErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("kind", errorKind(err)),
		))
	}
	m.CommandDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))
	m.CommandInvocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))
}
