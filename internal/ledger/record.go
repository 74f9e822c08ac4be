package ledger

import "time"

// GearEntry is the item recorded at a single gear slot. Item text is
// free-form and spelling/punctuation-significant; the ledger never
// normalizes it, only slot-name lookup is case-insensitive.
type GearEntry struct {
	Item string `json:"item"`

	// Locked is set when an admin assigns loot to the slot. While locked,
	// the owner cannot edit the slot; admin override and unlock still work.
	Locked bool `json:"locked"`
}

// LootEntry is an audit record of a single admin-driven award. It is
// distinct from the gear value it produced: removing one does not revert
// the other.
type LootEntry struct {
	Slot      string    `json:"slot"`
	Item      string    `json:"item"`
	Source    string    `json:"source,omitempty"`
	AwardedAt time.Time `json:"awarded_at"`
}

// PlayerRecord is the durable per-player state. Records are created by
// Register, mutated only through the engine, and destroyed by RemoveUser.
// Gear always holds every catalog slot as a key; a nil entry means the slot
// is empty.
type PlayerRecord struct {
	Identity   string                `json:"identity"`
	Registered bool                  `json:"registered"`
	Gear       map[string]*GearEntry `json:"gear"`
	Loot       []LootEntry           `json:"loot"`
	BonusLoot  map[string][]string   `json:"bonus_loot"`
	Pity       int                   `json:"pity"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// NewPlayerRecord creates a registered record with every catalog slot
// present and empty, no loot history, and pity 0.
func NewPlayerRecord(identity string, catalog *Catalog) *PlayerRecord {
	gear := make(map[string]*GearEntry, catalog.Len())
	for _, slot := range catalog.Slots() {
		gear[slot] = nil
	}
	now := time.Now().UTC()
	return &PlayerRecord{
		Identity:   identity,
		Registered: true,
		Gear:       gear,
		Loot:       []LootEntry{},
		BonusLoot:  map[string][]string{},
		Pity:       0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state behind the engine's back.
func (r *PlayerRecord) Clone() *PlayerRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Gear = make(map[string]*GearEntry, len(r.Gear))
	for slot, entry := range r.Gear {
		if entry == nil {
			out.Gear[slot] = nil
			continue
		}
		e := *entry
		out.Gear[slot] = &e
	}
	out.Loot = make([]LootEntry, len(r.Loot))
	copy(out.Loot, r.Loot)
	out.BonusLoot = make(map[string][]string, len(r.BonusLoot))
	for slot, entries := range r.BonusLoot {
		es := make([]string, len(entries))
		copy(es, entries)
		out.BonusLoot[slot] = es
	}
	return &out
}

// GearAt returns the entry at the canonical slot, or nil when the slot is
// empty.
func (r *PlayerRecord) GearAt(slot string) *GearEntry {
	return r.Gear[slot]
}

// LootCount returns the length of the loot history.
func (r *PlayerRecord) LootCount() int {
	return len(r.Loot)
}
