// Per-merchant bookkeeping for demand, stock and product.
// These methods touch only the merchant's own state; anything that reaches a
// location or another merchant lives in the engine.
package agents

import (
	"fmt"

	"github.com/talgya/merchant-network/internal/economy"
)

// Reset recomputes the per-step view: known traders and internal demand.
func (m *Merchant) Reset(known []MerchantID) {
	m.KnownTraders = known
	m.InternalDemand = m.Strategy.InternalDemand(m)
}

// DetermineDemand raises demand by one for every product below maxDemand.
func (m *Merchant) DetermineDemand(maxDemand int) {
	for p := range m.Demand {
		if m.Demand[p] < maxDemand {
			m.Demand[p]++
		}
	}
}

// DiscardStock consumes a fraction of last step's stock and returns the
// discarded amounts, which the caller deposits at the current location.
// Demand falls by the amount consumed; the rest of the stock rejoins product.
func (m *Merchant) DiscardStock(fraction float64) economy.Inventory {
	discarded := economy.NewInventory(len(m.Stock))
	for p := range m.Stock {
		amt := economy.Round(fraction * float64(m.Stock[p]))
		discarded[p] = amt

		m.Demand[p] -= amt
		if m.Demand[p] < 0 {
			m.Demand[p] = 0
		}
		m.Product[p] += m.Stock[p] - amt
		m.Stock[p] = 0
	}
	return discarded
}

// UnmetDemand is demand not covered by product or stock. May be negative.
func (m *Merchant) UnmetDemand(p economy.Product) int {
	return m.Demand[p] - m.Product[p] - m.Stock[p]
}

// Produce tops product up to cover unmet demand for p and returns the amount.
func (m *Merchant) Produce(p economy.Product) int {
	unmet := m.UnmetDemand(p)
	if unmet <= 0 {
		return 0
	}
	m.Product[p] += unmet
	return unmet
}

// UpdatePriceAndCapacity sets max stock size for every product (one shared
// scalar) and the expected price from neighbourhood averages.
func (m *Merchant) UpdatePriceAndCapacity(avgSupply, avgDemand float64) {
	mss := economy.MaxStockSize(avgDemand, m.Demand.Total())
	for p := range m.MaxStockSize {
		m.MaxStockSize[p] = mss
	}
	m.ExpectedPrice = economy.ExpectedPrice(avgSupply, avgDemand)
}

// MoveToStock is the no-trade outcome for p: all product moves to stock,
// storage capacity shrinks by the same amount and the idle counter grows.
func (m *Merchant) MoveToStock(p economy.Product) int {
	moved := m.Product[p]
	m.Stock[p] += moved
	m.MaxStockSize[p] -= moved
	m.Product[p] = 0
	m.TimeSinceTrade++
	return moved
}

// RecordTrade counts a completed trade.
func (m *Merchant) RecordTrade() {
	m.NumTrades++
	m.TimeSinceTrade = 0
}

// CheckInventory returns an error if any product or stock entry is negative.
func (m *Merchant) CheckInventory() error {
	for p := range m.Product {
		if m.Product[p] < 0 {
			return fmt.Errorf("merchant %d: product[%d]=%d", m.ID, p, m.Product[p])
		}
		if m.Stock[p] < 0 {
			return fmt.Errorf("merchant %d: stock[%d]=%d", m.ID, p, m.Stock[p])
		}
	}
	return nil
}
