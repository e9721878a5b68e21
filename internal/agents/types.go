// Package agents provides the merchant data model, the three decision
// strategies and the offer board merchants trade through.
package agents

import (
	"fmt"

	"github.com/talgya/merchant-network/internal/economy"
	"github.com/talgya/merchant-network/internal/world"
)

// MerchantID is the stable identifier of a merchant.
type MerchantID uint64

// StrategyKind identifies a decision strategy.
type StrategyKind uint8

const (
	StrategyProfit     StrategyKind = iota // Sells when the best bid beats its expected price
	StrategyGeneralist                     // Sells surplus to even out holdings
	StrategySpecialist                     // Hoards one product, sells everything else
)

// String returns the label used in snapshots and configuration.
func (k StrategyKind) String() string {
	switch k {
	case StrategyProfit:
		return "profit"
	case StrategyGeneralist:
		return "generalist"
	case StrategySpecialist:
		return "specialist"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(k))
	}
}

// ParseStrategy maps a label back to its kind.
func ParseStrategy(s string) (StrategyKind, error) {
	switch s {
	case "profit":
		return StrategyProfit, nil
	case "generalist":
		return StrategyGeneralist, nil
	case "specialist":
		return StrategySpecialist, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Merchant is a mobile trading agent with a private inventory.
type Merchant struct {
	ID                 MerchantID       `json:"id"`
	Location           world.LocationID `json:"location"`
	DistanceMultiplier float64          `json:"distance_multiplier"` // 0.0–1.0

	// Inventories, one entry per product kind.
	Product      economy.Inventory `json:"product"`        // Tradeable
	Stock        economy.Inventory `json:"stock"`          // Reserved for own demand
	Demand       economy.Inventory `json:"demand"`         // 0..max_demand
	MaxStockSize []int             `json:"max_stock_size"` // Signed, recomputed each step

	ExpectedPrice  float64 `json:"expected_price"`
	NumTrades      int     `json:"num_trades"`
	TimeSinceTrade int     `json:"time_since_trade"`

	// Recomputed every step at reset.
	KnownTraders   []MerchantID `json:"known_traders"`
	InternalDemand []float64    `json:"internal_demand"`

	Strategy Strategy `json:"-"`
}

// NewMerchant creates a merchant with empty inventories for numProducts kinds.
func NewMerchant(id MerchantID, loc world.LocationID, distanceMultiplier float64, numProducts int, strategy Strategy) *Merchant {
	return &Merchant{
		ID:                 id,
		Location:           loc,
		DistanceMultiplier: distanceMultiplier,
		Product:            economy.NewInventory(numProducts),
		Stock:              economy.NewInventory(numProducts),
		Demand:             economy.NewInventory(numProducts),
		MaxStockSize:       make([]int, numProducts),
		InternalDemand:     make([]float64, numProducts),
		Strategy:           strategy,
	}
}

// Kind returns the merchant's strategy kind.
func (m *Merchant) Kind() StrategyKind {
	return m.Strategy.Kind()
}

// NumProducts returns P.
func (m *Merchant) NumProducts() int {
	return len(m.Product)
}

// Degree is the number of known traders this step.
func (m *Merchant) Degree() int {
	return len(m.KnownTraders)
}

// SpecialistItem returns the hoarded product for specialists.
func (m *Merchant) SpecialistItem() (economy.Product, bool) {
	if s, ok := m.Strategy.(*Specialist); ok {
		return s.Item, true
	}
	return economy.NoProduct, false
}

// String returns a summary of the merchant.
func (m *Merchant) String() string {
	return fmt.Sprintf("Merchant(%d %s, loc=%d, product=%v, stock=%v, demand=%v, mss=%v)",
		m.ID, m.Kind(), m.Location, m.Product, m.Stock, m.Demand, m.MaxStockSize)
}
