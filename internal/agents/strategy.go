// Decision strategies. Each strategy decides what a merchant wants
// (internal demand), when it bids, and which bids it accepts.
package agents

import "github.com/talgya/merchant-network/internal/economy"

// SpecialistDemand is the internal demand a specialist holds for its item.
const SpecialistDemand = 10000

// Strategy is bound to a merchant at creation and never changes.
type Strategy interface {
	Kind() StrategyKind

	// InternalDemand returns how much more of each product the merchant wants.
	InternalDemand(m *Merchant) []float64

	// ShouldOffer reports whether the merchant bids for one unit of p.
	ShouldOffer(m *Merchant, p economy.Product) bool

	// Accept decides on the best bid received for p.
	Accept(m *Merchant, p economy.Product, best BuyOffer) bool
}

// NewStrategy builds a strategy of the given kind. Specialists receive item.
func NewStrategy(kind StrategyKind, item economy.Product) Strategy {
	switch kind {
	case StrategyGeneralist:
		return Generalist{}
	case StrategySpecialist:
		return &Specialist{Item: item}
	default:
		return ProfitMaximizer{}
	}
}

// wantsMore is the bid rule shared by every strategy: the merchant must know
// someone, and either hold less than it wants or have room in storage.
func wantsMore(m *Merchant, p economy.Product, want float64) bool {
	if len(m.KnownTraders) == 0 {
		return false
	}
	return float64(m.Product[p]) < want || m.MaxStockSize[p] > 0
}

// ProfitMaximizer sells only above its expected price.
type ProfitMaximizer struct{}

func (ProfitMaximizer) Kind() StrategyKind { return StrategyProfit }

// InternalDemand mirrors actual demand.
func (ProfitMaximizer) InternalDemand(m *Merchant) []float64 {
	out := make([]float64, len(m.Demand))
	for i, d := range m.Demand {
		out[i] = float64(d)
	}
	return out
}

func (ProfitMaximizer) ShouldOffer(m *Merchant, p economy.Product) bool {
	return wantsMore(m, p, float64(m.Demand[p]))
}

func (ProfitMaximizer) Accept(m *Merchant, _ economy.Product, best BuyOffer) bool {
	return best.Price > m.ExpectedPrice
}

// Generalist aims for equal holdings of every product.
type Generalist struct{}

func (Generalist) Kind() StrategyKind { return StrategyGeneralist }

// InternalDemand is the mean holding minus the holding of each product.
// The entries always sum to zero.
func (Generalist) InternalDemand(m *Merchant) []float64 {
	ideal := m.Product.Mean()
	out := make([]float64, len(m.Product))
	for i, amt := range m.Product {
		out[i] = ideal - float64(amt)
	}
	return out
}

func (Generalist) ShouldOffer(m *Merchant, p economy.Product) bool {
	return wantsMore(m, p, m.InternalDemand[p])
}

// Accept sells surplus regardless of price.
func (Generalist) Accept(m *Merchant, p economy.Product, _ BuyOffer) bool {
	return m.InternalDemand[p] < 0
}

// Specialist hoards Item and sells everything else.
type Specialist struct {
	Item economy.Product
}

func (*Specialist) Kind() StrategyKind { return StrategySpecialist }

func (s *Specialist) InternalDemand(m *Merchant) []float64 {
	out := make([]float64, len(m.Product))
	out[s.Item] = SpecialistDemand
	return out
}

func (s *Specialist) ShouldOffer(m *Merchant, p economy.Product) bool {
	return wantsMore(m, p, m.InternalDemand[p])
}

func (s *Specialist) Accept(_ *Merchant, p economy.Product, _ BuyOffer) bool {
	return p != s.Item
}
