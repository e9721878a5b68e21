// Package world provides trading locations and the synthetic geography used
// when no route list is supplied.
package world

import (
	"fmt"
	"sort"

	"github.com/talgya/merchant-network/internal/economy"
)

// LocationID is the stable identifier of a location.
type LocationID uint64

// Location is a fixed trading site. It holds no decision logic: merchants
// deposit product here and the resident set tracks who is present.
type Location struct {
	ID        LocationID        `json:"id"`
	Name      string            `json:"name"`
	Producer  economy.Product   `json:"producer"`
	Deposited economy.Inventory `json:"deposited"` // Never decreases

	residents map[uint64]struct{}
}

// NewLocation creates a location with an empty ledger for numProducts kinds.
func NewLocation(id LocationID, name string, producer economy.Product, numProducts int) *Location {
	return &Location{
		ID:        id,
		Name:      name,
		Producer:  producer,
		Deposited: economy.NewInventory(numProducts),
		residents: make(map[uint64]struct{}),
	}
}

// IsProducer reports whether the location produces any product.
func (l *Location) IsProducer() bool {
	return l.Producer != economy.NoProduct
}

// Deposit adds amount units of p to the ledger.
func (l *Location) Deposit(p economy.Product, amount int) error {
	if amount < 0 {
		return fmt.Errorf("location %d: negative deposit %d of product %d", l.ID, amount, p)
	}
	l.Deposited[p] += amount
	return nil
}

// DepositedTotal returns the ledger sum across all products.
func (l *Location) DepositedTotal() int {
	return l.Deposited.Total()
}

// AddResident records a merchant as present.
func (l *Location) AddResident(merchant uint64) {
	l.residents[merchant] = struct{}{}
}

// RemoveResident drops a merchant. It reports whether the merchant was present.
func (l *Location) RemoveResident(merchant uint64) bool {
	if _, ok := l.residents[merchant]; !ok {
		return false
	}
	delete(l.residents, merchant)
	return true
}

// HasResident reports whether the merchant is present.
func (l *Location) HasResident(merchant uint64) bool {
	_, ok := l.residents[merchant]
	return ok
}

// Residents returns the resident merchant ids in ascending order.
func (l *Location) Residents() []uint64 {
	ids := make([]uint64, 0, len(l.residents))
	for id := range l.residents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResidentCount returns the number of merchants present.
func (l *Location) ResidentCount() int {
	return len(l.residents)
}

// FirstLocationID returns the id of the first location given the merchant
// count: 500, or the next hundred above the merchant count for large runs.
func FirstLocationID(numMerchants int) LocationID {
	if numMerchants > 499 {
		return LocationID((numMerchants/100 + 1) * 100)
	}
	return 500
}

// String returns a summary of the location.
func (l *Location) String() string {
	return fmt.Sprintf("Location(%d %s, producer=%d, residents=%d)", l.ID, l.Name, l.Producer, len(l.residents))
}
