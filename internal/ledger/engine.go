package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// AdminFunc reports whether an identity is an administrator. The engine uses
// it only to re-validate preconditions it owns (a RemoveUser target must not
// be an admin); caller-role authorization stays in the command layer.
type AdminFunc func(identity string) bool

// Engine exposes the ledger operations over a [Store] and an injected slot
// [Catalog]. Every mutation is a single atomic read-modify-write against the
// store, keyed by identity, so two racing commands can never interleave
// partial updates. Safe for concurrent use.
type Engine struct {
	store   Store
	catalog *Catalog
	isAdmin AdminFunc
}

// NewEngine creates an Engine. isAdmin may be nil, in which case no identity
// is treated as an administrator.
func NewEngine(store Store, catalog *Catalog, isAdmin AdminFunc) *Engine {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Engine{store: store, catalog: catalog, isAdmin: isAdmin}
}

// Catalog returns the engine's slot catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// ─── Registration & identity ─────────────────────────────────────────────────

// Register creates a player record with every catalog slot present and
// empty, no loot history, and pity 0. Returns [ErrAlreadyRegistered] when a
// record exists; the existing record is never reinitialised.
func (e *Engine) Register(ctx context.Context, identity string) (*PlayerRecord, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrInvalidValue)
	}
	rec := NewPlayerRecord(identity, e.catalog)
	if err := e.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RemoveUser deletes a player record entirely. Administrators cannot be
// removed, regardless of who asks.
func (e *Engine) RemoveUser(ctx context.Context, identity string) error {
	if e.isAdmin(identity) {
		return fmt.Errorf("%w: cannot remove an administrator", ErrForbidden)
	}
	return e.store.Delete(ctx, identity)
}

// ─── Gear mutation ───────────────────────────────────────────────────────────

// SetGear records an item at an empty slot. Set is first-write-only: a slot
// that already holds an item fails [ErrSlotOccupied] (use EditGear), and a
// locked slot fails [ErrSlotLocked].
func (e *Engine) SetGear(ctx context.Context, identity, slot, item string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("%w: empty item text", ErrInvalidValue)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		if entry := rec.GearAt(canonical); entry != nil {
			if entry.Locked {
				return fmt.Errorf("%w: %s", ErrSlotLocked, canonical)
			}
			return fmt.Errorf("%w: %s", ErrSlotOccupied, canonical)
		}
		rec.Gear[canonical] = &GearEntry{Item: item}
		return nil
	})
}

// EditGear replaces the item at a slot the owner already filled. Fails
// [ErrSlotLocked] once loot has been assigned, and [ErrEntryNotFound] when
// the slot is empty (use SetGear first).
func (e *Engine) EditGear(ctx context.Context, identity, slot, newItem string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}
	if strings.TrimSpace(newItem) == "" {
		return fmt.Errorf("%w: empty item text", ErrInvalidValue)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		entry := rec.GearAt(canonical)
		if entry == nil {
			return fmt.Errorf("%w: no item recorded for %s", ErrEntryNotFound, canonical)
		}
		if entry.Locked {
			return fmt.Errorf("%w: %s", ErrSlotLocked, canonical)
		}
		entry.Item = newItem
		return nil
	})
}

// AdminEditGear replaces the item at a slot, bypassing the lock check and
// creating the entry when absent. The lock state is left as it was.
func (e *Engine) AdminEditGear(ctx context.Context, identity, slot, newItem string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}
	if strings.TrimSpace(newItem) == "" {
		return fmt.Errorf("%w: empty item text", ErrInvalidValue)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		if entry := rec.GearAt(canonical); entry != nil {
			entry.Item = newItem
			return nil
		}
		rec.Gear[canonical] = &GearEntry{Item: newItem}
		return nil
	})
}

// RemoveGear clears the entry at a slot and drops any lock. Clearing an
// already-empty slot is the one documented no-op success.
func (e *Engine) RemoveGear(ctx context.Context, identity, slot string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		rec.Gear[canonical] = nil
		return nil
	})
}

// Unlock clears the lock at a slot without altering the item, restoring the
// owner's ability to edit. Fails [ErrEntryNotFound] when the slot is empty.
func (e *Engine) Unlock(ctx context.Context, identity, slot string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		entry := rec.GearAt(canonical)
		if entry == nil {
			return fmt.Errorf("%w: nothing to unlock at %s", ErrEntryNotFound, canonical)
		}
		entry.Locked = false
		return nil
	})
}

// ─── Loot assignment ─────────────────────────────────────────────────────────

// AssignLoot awards an item: it overwrites the gear entry at the slot with
// the awarded item, locks the slot, and appends a loot history entry. Either
// the gear update and the history append both land, or neither does. Source
// is an optional free-form origin annotation.
func (e *Engine) AssignLoot(ctx context.Context, identity, slot, item, source string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("%w: empty item text", ErrInvalidValue)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		rec.Gear[canonical] = &GearEntry{Item: item, Locked: true}
		rec.Loot = append(rec.Loot, LootEntry{
			Slot:      canonical,
			Item:      item,
			Source:    source,
			AwardedAt: time.Now().UTC(),
		})
		return nil
	})
}

// AssignBonusLoot appends a free-form bonus loot note for a slot. It touches
// neither the gear entry nor the lock state, and the slot does not need to
// hold an item.
func (e *Engine) AssignBonusLoot(ctx context.Context, identity, slot, lootText string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}
	if strings.TrimSpace(lootText) == "" {
		return fmt.Errorf("%w: empty loot text", ErrInvalidValue)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		if rec.BonusLoot == nil {
			rec.BonusLoot = map[string][]string{}
		}
		rec.BonusLoot[canonical] = append(rec.BonusLoot[canonical], lootText)
		return nil
	})
}

// RemoveLoot removes the most recent loot history entry for the slot.
// Repeated assignments after an unlock can leave several entries per slot;
// entries are removed newest-first. The gear item and lock are untouched;
// RemoveGear and Unlock handle those separately.
func (e *Engine) RemoveLoot(ctx context.Context, identity, slot string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		for i := len(rec.Loot) - 1; i >= 0; i-- {
			if rec.Loot[i].Slot == canonical {
				rec.Loot = append(rec.Loot[:i], rec.Loot[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: no loot recorded for %s", ErrEntryNotFound, canonical)
	})
}

// RemoveBonusLoot clears all bonus loot notes for the slot.
func (e *Engine) RemoveBonusLoot(ctx context.Context, identity, slot string) error {
	canonical, ok := e.catalog.Resolve(slot)
	if !ok {
		return e.catalog.invalidSlot(slot)
	}

	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		if len(rec.BonusLoot[canonical]) == 0 {
			return fmt.Errorf("%w: no bonus loot recorded for %s", ErrEntryNotFound, canonical)
		}
		delete(rec.BonusLoot, canonical)
		return nil
	})
}

// ─── Pity counter ────────────────────────────────────────────────────────────

// AddPity increments the pity counter by exactly one and returns the new
// value.
func (e *Engine) AddPity(ctx context.Context, identity string) (int, error) {
	var pity int
	err := e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		rec.Pity++
		pity = rec.Pity
		return nil
	})
	return pity, err
}

// SetPity replaces the pity counter. Negative values fail [ErrInvalidValue]
// without touching the store.
func (e *Engine) SetPity(ctx context.Context, identity string, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: pity must be non-negative, got %d", ErrInvalidValue, value)
	}
	return e.store.Update(ctx, identity, func(rec *PlayerRecord) error {
		if err := requireRegistered(rec); err != nil {
			return err
		}
		rec.Pity = value
		return nil
	})
}

// Pity returns the current pity counter.
func (e *Engine) Pity(ctx context.Context, identity string) (int, error) {
	rec, err := e.store.Get(ctx, identity)
	if err != nil {
		return 0, err
	}
	return rec.Pity, nil
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Record returns the full player record (gear with empty slots included,
// loot history, bonus loot, pity).
func (e *Engine) Record(ctx context.Context, identity string) (*PlayerRecord, error) {
	return e.store.Get(ctx, identity)
}

// ListPlayers returns all registered records sorted by identity.
func (e *Engine) ListPlayers(ctx context.Context) ([]*PlayerRecord, error) {
	recs, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(recs, func(a, b *PlayerRecord) int {
		return strings.Compare(a.Identity, b.Identity)
	})
	return recs, nil
}

// SlotMatch is one gear slot that matched a FindItem search.
type SlotMatch struct {
	Slot   string
	Item   string
	Locked bool
}

// ItemMatch pairs an identity with the slots that matched.
type ItemMatch struct {
	Identity string
	Slots    []SlotMatch
}

// FindItem returns every identity holding a gear entry whose item text
// equals itemText, compared case-insensitively after trimming. Gear item
// text itself stays case-sensitive as recorded; only the comparison folds
// case.
func (e *Engine) FindItem(ctx context.Context, itemText string) ([]ItemMatch, error) {
	recs, err := e.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(itemText))
	var out []ItemMatch
	for _, rec := range recs {
		var slots []SlotMatch
		for _, slot := range e.catalog.Slots() {
			entry := rec.GearAt(slot)
			if entry == nil {
				continue
			}
			if strings.ToLower(strings.TrimSpace(entry.Item)) == want {
				slots = append(slots, SlotMatch{Slot: slot, Item: entry.Item, Locked: entry.Locked})
			}
		}
		if len(slots) > 0 {
			out = append(out, ItemMatch{Identity: rec.Identity, Slots: slots})
		}
	}
	return out, nil
}

// BonusMatch pairs an identity with the bonus loot notes that matched.
type BonusMatch struct {
	Identity string
	Entries  []BonusEntry
}

// BonusEntry is a single matched bonus loot note.
type BonusEntry struct {
	Slot string
	Text string
}

// FindBonusLoot returns every identity with a bonus loot note containing
// needle, case-insensitively.
func (e *Engine) FindBonusLoot(ctx context.Context, needle string) ([]BonusMatch, error) {
	recs, err := e.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(needle))
	var out []BonusMatch
	for _, rec := range recs {
		var entries []BonusEntry
		for _, slot := range e.catalog.Slots() {
			for _, text := range rec.BonusLoot[slot] {
				if strings.Contains(strings.ToLower(text), want) {
					entries = append(entries, BonusEntry{Slot: slot, Text: text})
				}
			}
		}
		if len(entries) > 0 {
			out = append(out, BonusMatch{Identity: rec.Identity, Entries: entries})
		}
	}
	return out, nil
}

// GuildTotal returns the total number of loot pieces ever awarded: the sum
// of loot history lengths across all registered records.
func (e *Engine) GuildTotal(ctx context.Context) (int, error) {
	recs, err := e.store.List(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, rec := range recs {
		total += rec.LootCount()
	}
	return total, nil
}

// requireRegistered guards mutations inside store closures. Records are only
// ever created registered, but the flag is checked anyway so a future
// soft-delete cannot silently accept mutations.
func requireRegistered(rec *PlayerRecord) error {
	if rec == nil || !rec.Registered {
		return ErrNotRegistered
	}
	return nil
}
