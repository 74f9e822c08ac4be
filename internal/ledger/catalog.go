// Package ledger implements the guild gear/loot ledger: the player record
// model, its invariants (slot enumeration, lock semantics, pity), and the
// engine operations that mutate records safely under concurrent admin and
// self-service commands.
//
// The engine is deliberately free of Discord concerns. Caller-role
// authorization happens in the command layer; the engine re-validates only
// the preconditions it can check locally (e.g. that a removal target is not
// itself an administrator).
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultSlots is the standard gear slot catalog. Deployments with a
// different loadout override it via configuration.
var DefaultSlots = []string{
	"Head", "Cloak", "Chest", "Gloves", "Legs", "Boots", "Necklace",
	"Bracelet", "Belt", "Ring1", "Ring2", "Weapon1", "Weapon2",
}

// Catalog is the enumerated set of valid gear slot names. Lookup is
// case-insensitive and resolves to the canonical spelling; the canonical
// order is preserved for display. Immutable after construction, so safe for
// concurrent use.
type Catalog struct {
	names []string          // canonical spellings, in declaration order
	index map[string]string // lower-cased name → canonical spelling
}

// NewCatalog builds a Catalog from the given slot names. Names must be
// non-empty and unique case-insensitively.
func NewCatalog(slots []string) (*Catalog, error) {
	if len(slots) == 0 {
		return nil, errors.New("ledger: catalog must contain at least one slot")
	}

	c := &Catalog{
		names: make([]string, 0, len(slots)),
		index: make(map[string]string, len(slots)),
	}
	for i, name := range slots {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("ledger: catalog slot %d is empty", i)
		}
		key := strings.ToLower(name)
		if prev, ok := c.index[key]; ok {
			return nil, fmt.Errorf("ledger: catalog slot %q duplicates %q", name, prev)
		}
		c.index[key] = name
		c.names = append(c.names, name)
	}
	return c, nil
}

// MustDefaultCatalog returns a Catalog over [DefaultSlots].
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultSlots)
	if err != nil {
		panic(err) // DefaultSlots is a package constant in all but type
	}
	return c
}

// Resolve maps name to its canonical spelling. The second return value is
// false when name is not a catalog entry.
func (c *Catalog) Resolve(name string) (string, bool) {
	canonical, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Slots returns the canonical slot names in declaration order.
func (c *Catalog) Slots() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of slots in the catalog.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Nearest returns the catalog entry closest to name by edit distance, for
// "did you mean" hints on unknown-slot errors. Returns "" when nothing is
// within a distance of 3.
func (c *Catalog) Nearest(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	best, bestDist := "", 4
	for key, canonical := range c.index {
		if d := matchr.Levenshtein(name, key); d < bestDist {
			best, bestDist = canonical, d
		}
	}
	return best
}

// invalidSlot builds the [ErrInvalidSlot] failure for name, including a
// nearest-match hint when one exists.
func (c *Catalog) invalidSlot(name string) error {
	if hint := c.Nearest(name); hint != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrInvalidSlot, name, hint)
	}
	return fmt.Errorf("%w: %q", ErrInvalidSlot, name)
}
