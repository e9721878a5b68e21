// Merchant spawning: assigns strategies by id, draws specialist items and
// places merchants round-robin across locations.
package agents

import (
	"math/rand"

	"github.com/talgya/merchant-network/internal/economy"
	"github.com/talgya/merchant-network/internal/world"
)

// Mix holds the fraction of merchants using each strategy. Merchants not
// covered by Profit and Generalist become specialists.
type Mix struct {
	Profit     float64
	Generalist float64
	Specialist float64
}

// StrategyFor returns the strategy of the merchant with the given index.
// The first Profit*total merchants maximise profit, the next
// Generalist*total are generalists, and the rest specialise.
func StrategyFor(index, total int, mix Mix) StrategyKind {
	numProfit := mix.Profit * float64(total)
	numGeneralist := mix.Generalist * float64(total)
	switch i := float64(index); {
	case i < numProfit:
		return StrategyProfit
	case i < numProfit+numGeneralist:
		return StrategyGeneralist
	default:
		return StrategySpecialist
	}
}

// Spawner creates merchants for the simulation.
type Spawner struct {
	rng         *rand.Rand
	nextID      MerchantID
	numProducts int
}

// NewSpawner creates a merchant spawner drawing from rng.
func NewSpawner(rng *rand.Rand, numProducts int) *Spawner {
	return &Spawner{
		rng:         rng,
		nextID:      0,
		numProducts: numProducts,
	}
}

// SpawnPopulation creates n merchants. Merchant i starts at locations[i mod len].
func (s *Spawner) SpawnPopulation(n int, mix Mix, locations []world.LocationID, distanceMultiplier float64) []*Merchant {
	if len(locations) == 0 {
		return nil
	}
	merchants := make([]*Merchant, 0, n)
	for i := 0; i < n; i++ {
		kind := StrategyFor(i, n, mix)
		loc := locations[i%len(locations)]
		merchants = append(merchants, s.Spawn(kind, loc, distanceMultiplier))
	}
	return merchants
}

// Spawn creates one merchant. Specialists draw their item uniformly.
func (s *Spawner) Spawn(kind StrategyKind, loc world.LocationID, distanceMultiplier float64) *Merchant {
	id := s.nextID
	s.nextID++

	var strategy Strategy
	if kind == StrategySpecialist {
		strategy = NewStrategy(kind, s.specialistItem())
	} else {
		strategy = NewStrategy(kind, 0)
	}

	m := NewMerchant(id, loc, distanceMultiplier, s.numProducts, strategy)
	m.InternalDemand = strategy.InternalDemand(m)
	return m
}

func (s *Spawner) specialistItem() economy.Product {
	return economy.Product(s.rng.Intn(s.numProducts))
}
