package engine

import (
	"log/slog"

	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/entropy"
	"github.com/talgya/merchant-network/internal/world"
)

// move relocates a merchant that has gone no_trade_tolerance steps without
// trading, with MoveProbability, to a random neighbouring location.
func (m *Model) move(mer *agents.Merchant) error {
	tol := m.cfg.NoTradeTolerance
	if tol < 0 || mer.TimeSinceTrade < tol {
		return nil
	}
	if m.decisions.Float64() >= MoveProbability {
		return nil
	}
	neighbours := m.topology.SpatialNeighbours(int64(mer.Location))
	pick := entropy.Choice(m.decisions, len(neighbours))
	if pick < 0 {
		return nil
	}
	to := world.LocationID(neighbours[pick])
	return m.relocate(mer, to)
}

// relocate swaps the residency edge first; resident sets and the merchant
// follow only once the swap has succeeded.
func (m *Model) relocate(mer *agents.Merchant, to world.LocationID) error {
	from := mer.Location
	dst, ok := m.locationIndex[to]
	if !ok {
		return &InvariantViolation{Step: m.step, Entity: "location", ID: uint64(to), Detail: "relocation target does not exist"}
	}
	src, err := m.locationOf(mer)
	if err != nil {
		return err
	}
	if err := m.topology.Relocate(int64(mer.ID), int64(from), int64(to)); err != nil {
		return err
	}
	src.RemoveResident(uint64(mer.ID))
	dst.AddResident(uint64(mer.ID))
	mer.Location = to
	m.current.Moves++

	slog.Debug("merchant relocated", "merchant", mer.ID, "from", src.Name, "to", dst.Name)
	return nil
}
