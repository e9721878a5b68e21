package engine

import (
	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/economy"
)

// addPhases registers the step protocol. MakeOffers seals the board at its
// barrier; ProcessOffers and Move are separate passes with their own orders.
func (m *Model) addPhases() {
	m.scheduler.Add(Phase{Name: PhaseReset, Activate: m.reset})
	m.scheduler.Add(Phase{Name: PhaseDetermineDemand, Activate: m.determineDemand})
	m.scheduler.Add(Phase{Name: PhaseDiscardStock, Activate: m.discardStock})
	m.scheduler.Add(Phase{Name: PhaseProduce, Activate: m.produce})
	m.scheduler.Add(Phase{Name: PhaseUpdatePrice, Activate: m.updatePriceAndCapacity})
	m.scheduler.Add(Phase{Name: PhaseMakeOffers, Activate: m.makeOffers, Barrier: m.sealOffers})
	m.scheduler.Add(Phase{Name: PhaseProcessOffers, Activate: m.processOffers})
	m.scheduler.Add(Phase{Name: PhaseMove, Activate: m.move})
}

// reset refreshes known traders from the social graph and recomputes
// internal demand.
func (m *Model) reset(mer *agents.Merchant) error {
	ids := m.topology.SocialNeighbours(int64(mer.ID))
	known := make([]agents.MerchantID, len(ids))
	for i, id := range ids {
		known[i] = agents.MerchantID(id)
	}
	mer.Reset(known)
	return nil
}

func (m *Model) determineDemand(mer *agents.Merchant) error {
	mer.DetermineDemand(m.cfg.MaxDemand)
	return nil
}

// discardStock consumes part of last step's stock; the consumed units are
// deposited at the merchant's location.
func (m *Model) discardStock(mer *agents.Merchant) error {
	loc, err := m.locationOf(mer)
	if err != nil {
		return err
	}
	for p, amt := range mer.DiscardStock(m.cfg.DiscardFraction) {
		if amt == 0 {
			continue
		}
		if err := loc.Deposit(economy.Product(p), amt); err != nil {
			return err
		}
		m.current.Discarded += amt
	}
	return nil
}

// produce grants the shortfall of the location's product, if it has one.
func (m *Model) produce(mer *agents.Merchant) error {
	loc, err := m.locationOf(mer)
	if err != nil {
		return err
	}
	if !loc.IsProducer() {
		return nil
	}
	m.current.Produced += mer.Produce(loc.Producer)
	return nil
}

// updatePriceAndCapacity prices against the merchant's known traders.
// Average supply counts the merchant's own product alongside the traders'
// product and stock; average demand counts only the traders.
func (m *Model) updatePriceAndCapacity(mer *agents.Merchant) error {
	supply := mer.Product.Total()
	demand := 0
	for _, id := range mer.KnownTraders {
		other, ok := m.merchantIndex[id]
		if !ok {
			continue
		}
		supply += other.Product.Total() + other.Stock.Total()
		demand += other.Demand.Total()
	}
	avgSupply := float64(supply) / float64(len(mer.KnownTraders)+1)
	avgDemand := 0.0
	if n := len(mer.KnownTraders); n > 0 {
		avgDemand = float64(demand) / float64(n)
	}
	mer.UpdatePriceAndCapacity(avgSupply, avgDemand)
	return nil
}
