package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/economy"
	"github.com/talgya/merchant-network/internal/entropy"
	"github.com/talgya/merchant-network/internal/network"
	"github.com/talgya/merchant-network/internal/world"
)

// partners returns who the merchant may bid to: known traders, plus the
// other merchants at its location when location trades are on.
func (m *Model) partners(mer *agents.Merchant) []agents.MerchantID {
	if !m.cfg.LocationTrades {
		return mer.KnownTraders
	}
	return sortedUnion(mer.KnownTraders, m.merchantsAt(mer.Location, mer.ID))
}

// makeOffers posts one bid per wanted product to a randomly drawn partner.
func (m *Model) makeOffers(mer *agents.Merchant) error {
	for _, p := range m.catalogue.All() {
		if !mer.Strategy.ShouldOffer(mer, p) {
			continue
		}
		candidates := m.partners(mer)
		pick := entropy.Choice(m.decisions, len(candidates))
		if pick < 0 {
			continue
		}
		seller, ok := m.merchantIndex[candidates[pick]]
		if !ok {
			return fmt.Errorf("unknown trading partner of merchant %d", mer.ID)
		}
		price, err := m.offerPrice(mer, seller)
		if err != nil {
			return err
		}
		offer := agents.BuyOffer{Buyer: mer.ID, Product: p, Price: price}
		if err := m.board.Post(seller.ID, offer); err != nil {
			return err
		}
		m.current.Offers++
	}
	return nil
}

// offerPrice is the buyer's expected price less the transport cost to the
// seller. Unreachable sellers cost nothing to reach; any other lookup
// failure is an error.
func (m *Model) offerPrice(buyer, seller *agents.Merchant) (float64, error) {
	cost, err := m.topology.ShortestPathCost(int64(buyer.Location), int64(seller.Location))
	switch {
	case errors.Is(err, network.ErrUnreachable):
		cost = 0
	case err != nil:
		return 0, fmt.Errorf("transport cost from merchant %d to %d: %w", buyer.ID, seller.ID, err)
	}
	transport := economy.TransportCost(buyer.DistanceMultiplier, cost, m.topology.TotalSpatialCost())
	return economy.OfferPrice(buyer.ExpectedPrice, transport), nil
}

func (m *Model) sealOffers() error {
	m.board.Seal()
	return nil
}

// processOffers settles each product the merchant holds: sell one unit to
// the best bidder if the strategy accepts, otherwise move it all to stock.
func (m *Model) processOffers(mer *agents.Merchant) error {
	for _, p := range m.catalogue.All() {
		if mer.Product[p] > 0 {
			best, ok, err := m.board.Best(mer.ID, p)
			if err != nil {
				return err
			}
			if ok && mer.Strategy.Accept(mer, p, best) {
				buyer, found := m.merchantIndex[best.Buyer]
				if !found {
					return fmt.Errorf("offer from unknown merchant %d", best.Buyer)
				}
				if err := m.executeTrade(mer, buyer, p); err != nil {
					return err
				}
				continue
			}
		}
		mer.MoveToStock(p)
	}
	return nil
}

// executeTrade moves one unit of p from seller to buyer. The buyer stocks it
// while it still has demand for p and otherwise deposits it where it stands.
func (m *Model) executeTrade(seller, buyer *agents.Merchant, p economy.Product) error {
	if seller.Product[p] < 1 {
		return fmt.Errorf("merchant %d sold product %d it does not hold", seller.ID, p)
	}
	var loc *world.Location
	if buyer.Demand[p] <= 0 {
		var err error
		if loc, err = m.locationOf(buyer); err != nil {
			return err
		}
	}

	seller.Product[p]--
	if loc == nil {
		buyer.Stock[p]++
		buyer.MaxStockSize[p]--
	} else {
		if err := loc.Deposit(p, 1); err != nil {
			return err
		}
		m.current.DepositedByTrade++
	}
	seller.RecordTrade()
	buyer.RecordTrade()
	m.current.Trades++
	return nil
}

func (m *Model) locationOf(mer *agents.Merchant) (*world.Location, error) {
	loc, ok := m.locationIndex[mer.Location]
	if !ok {
		return nil, fmt.Errorf("merchant %d at unknown location %d", mer.ID, mer.Location)
	}
	return loc, nil
}
