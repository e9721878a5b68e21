package engine

import (
	"fmt"

	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/world"
)

// InvariantViolation is a bookkeeping defect found after a step. It is fatal:
// Step returns it and Run stops.
type InvariantViolation struct {
	Step   int
	Entity string // "merchant" or "location"
	ID     uint64
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated at step %d: %s %d: %s", e.Step, e.Entity, e.ID, e.Detail)
}

// checkInvariants verifies non-negative inventories, a single consistent
// residency per merchant and non-decreasing location ledgers.
func (m *Model) checkInvariants(ledgers map[world.LocationID][]int) error {
	violation := func(entity string, id uint64, format string, args ...any) error {
		return &InvariantViolation{Step: m.step, Entity: entity, ID: id, Detail: fmt.Sprintf(format, args...)}
	}

	seen := make(map[agents.MerchantID]world.LocationID, len(m.merchants))
	for _, loc := range m.locations {
		for _, rid := range loc.Residents() {
			id := agents.MerchantID(rid)
			if prev, dup := seen[id]; dup {
				return violation("merchant", rid, "resident at both %d and %d", prev, loc.ID)
			}
			seen[id] = loc.ID
		}
		before := ledgers[loc.ID]
		for p, amt := range loc.Deposited {
			if p < len(before) && amt < before[p] {
				return violation("location", uint64(loc.ID), "deposited[%d] fell from %d to %d", p, before[p], amt)
			}
		}
	}

	for _, mer := range m.merchants {
		if err := mer.CheckInventory(); err != nil {
			return violation("merchant", uint64(mer.ID), "%v", err)
		}
		at, err := m.topology.LocationOf(int64(mer.ID))
		if err != nil {
			return violation("merchant", uint64(mer.ID), "%v", err)
		}
		if world.LocationID(at) != mer.Location {
			return violation("merchant", uint64(mer.ID), "residency edge at %d, merchant says %d", at, mer.Location)
		}
		if loc, ok := seen[mer.ID]; !ok || loc != mer.Location {
			return violation("merchant", uint64(mer.ID), "missing from resident set of %d", mer.Location)
		}
	}
	if len(seen) != len(m.merchants) {
		return violation("location", 0, "%d residents for %d merchants", len(seen), len(m.merchants))
	}
	return nil
}

// ledgerCopy records every location ledger for the next invariant check.
func (m *Model) ledgerCopy() map[world.LocationID][]int {
	out := make(map[world.LocationID][]int, len(m.locations))
	for _, loc := range m.locations {
		out[loc.ID] = loc.Deposited.Clone()
	}
	return out
}
