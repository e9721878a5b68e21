package engine

import (
	"fmt"

	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/entropy"
)

// Phase names, in step order.
const (
	PhaseReset           = "reset"
	PhaseDetermineDemand = "determine_demand"
	PhaseDiscardStock    = "discard_stock"
	PhaseProduce         = "produce"
	PhaseUpdatePrice     = "update_price_and_capacity"
	PhaseMakeOffers      = "make_offers"
	PhaseProcessOffers   = "process_offers"
	PhaseMove            = "move"
)

// Phase is one barrier-separated pass over every merchant.
type Phase struct {
	Name     string
	Activate func(m *agents.Merchant) error
	Barrier  func() error // Runs once every merchant has activated; may be nil
}

// Scheduler activates every merchant once per phase in a freshly shuffled
// order, and runs each phase to completion before the next begins.
type Scheduler struct {
	shuffler entropy.Shuffler
	phases   []Phase

	// OnPhase, when set, is called after each phase barrier.
	OnPhase func(name string)
}

// NewScheduler creates a scheduler drawing activation orders from sh.
func NewScheduler(sh entropy.Shuffler) *Scheduler {
	return &Scheduler{shuffler: sh}
}

// Add appends a phase.
func (s *Scheduler) Add(p Phase) {
	s.phases = append(s.phases, p)
}

// Phases returns the phase names in order.
func (s *Scheduler) Phases() []string {
	names := make([]string, len(s.phases))
	for i, p := range s.phases {
		names[i] = p.Name
	}
	return names
}

// Run executes every phase over merchants, which must be in id order. The
// first error aborts the step.
func (s *Scheduler) Run(merchants []*agents.Merchant) error {
	for _, p := range s.phases {
		order := entropy.Permutation(s.shuffler, len(merchants))
		for _, i := range order {
			if err := p.Activate(merchants[i]); err != nil {
				return fmt.Errorf("phase %s, merchant %d: %w", p.Name, merchants[i].ID, err)
			}
		}
		if p.Barrier != nil {
			if err := p.Barrier(); err != nil {
				return fmt.Errorf("phase %s barrier: %w", p.Name, err)
			}
		}
		if s.OnPhase != nil {
			s.OnPhase(p.Name)
		}
	}
	return nil
}
