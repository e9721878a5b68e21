// Package engine runs the merchant trade model: it owns the topology and
// every entity, drives the seven-phase step and publishes snapshots.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/talgya/merchant-network/internal/agents"
	"github.com/talgya/merchant-network/internal/config"
	"github.com/talgya/merchant-network/internal/economy"
	"github.com/talgya/merchant-network/internal/entropy"
	"github.com/talgya/merchant-network/internal/network"
	"github.com/talgya/merchant-network/internal/world"
)

// MoveProbability is the chance an idle merchant relocates when allowed to.
const MoveProbability = 0.8

// StepStats are the model-level reporters of one step.
type StepStats struct {
	Step               int     `json:"step"`
	Offers             int     `json:"offers"`
	Trades             int     `json:"trades"`
	Produced           int     `json:"produced"`
	Discarded          int     `json:"discarded"`
	DepositedByTrade   int     `json:"deposited_by_trade"`
	Moves              int     `json:"moves"`
	SumProductAllSites int     `json:"sum_product_all_sites"`
	AvgKnownTraders    float64 `json:"avg_known_traders"`
	AvgExpectedPrice   float64 `json:"avg_expected_price"`
}

// Model holds the complete run state.
type Model struct {
	cfg       config.Config
	catalogue economy.Catalogue
	topology  *network.Topology

	merchants     []*agents.Merchant // Ascending id
	merchantIndex map[agents.MerchantID]*agents.Merchant
	locations     []*world.Location // Ascending id
	locationIndex map[world.LocationID]*world.Location

	scheduler *Scheduler
	decisions *rand.Rand
	board     *agents.OfferBoard

	step    int
	current StepStats

	mu       sync.RWMutex
	snapshot *Snapshot
}

// Build constructs a model from a configuration. The configuration is
// validated first; nothing is built if it is invalid.
func Build(cfg config.Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalogue := cfg.Catalogue()
	streams := entropy.NewSource(cfg.Seed)

	names, routes := spatialInput(cfg)
	firstID := world.FirstLocationID(cfg.Merchants)
	spatial, err := network.NewSpatial(names, routes, int64(firstID))
	if err != nil {
		return nil, &config.ConfigurationError{Field: "spatial", Reason: err.Error()}
	}

	producers, err := assignProducers(cfg, catalogue, names, spatial, streams)
	if err != nil {
		return nil, err
	}

	social, err := network.BuildSocial(cfg.Merchants, network.SocialParams{
		Kind:       cfg.Social.Type,
		Attach:     cfg.Social.Attach,
		Neighbours: cfg.Social.Neighbours,
		Rewire:     cfg.Social.Rewire,
		Edges:      cfg.Social.Edges,
	}, cfg.Seed+entropy.Social)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "social", Reason: err.Error()}
	}

	topology, err := network.New(social, spatial)
	if err != nil {
		return nil, fmt.Errorf("wire topology: %w", err)
	}

	m := &Model{
		cfg:           cfg,
		catalogue:     catalogue,
		topology:      topology,
		merchantIndex: make(map[agents.MerchantID]*agents.Merchant, cfg.Merchants),
		locationIndex: make(map[world.LocationID]*world.Location, len(names)),
		scheduler:     NewScheduler(streams.Stream(entropy.Schedule)),
		decisions:     streams.Stream(entropy.Decisions),
		board:         agents.NewOfferBoard(catalogue.Len()),
	}

	locIDs := make([]world.LocationID, 0, len(names))
	for _, id := range spatial.IDs() {
		name := spatial.Name(id)
		producer, ok := producers[name]
		if !ok {
			producer = economy.NoProduct
		}
		loc := world.NewLocation(world.LocationID(id), name, producer, catalogue.Len())
		m.locations = append(m.locations, loc)
		m.locationIndex[loc.ID] = loc
		locIDs = append(locIDs, loc.ID)
	}

	profit, generalist, specialist := cfg.Mix()
	spawner := agents.NewSpawner(streams.Stream(entropy.Spawn), catalogue.Len())
	mix := agents.Mix{Profit: profit, Generalist: generalist, Specialist: specialist}
	for _, mer := range spawner.SpawnPopulation(cfg.Merchants, mix, locIDs, cfg.DistanceMultiplier) {
		if err := topology.Place(int64(mer.ID), int64(mer.Location)); err != nil {
			return nil, fmt.Errorf("place merchant %d: %w", mer.ID, err)
		}
		m.locationIndex[mer.Location].AddResident(uint64(mer.ID))
		m.merchants = append(m.merchants, mer)
		m.merchantIndex[mer.ID] = mer
	}

	m.addPhases()
	m.current = m.collectStats(0)
	m.publish()

	slog.Info("model built",
		"merchants", len(m.merchants),
		"locations", len(m.locations),
		"producers", len(producers),
		"products", catalogue.Len(),
		"social_type", cfg.Social.Type,
		"social_edges", topology.SocialEdges(),
		"spatial_cost", fmt.Sprintf("%.2f", topology.TotalSpatialCost()),
		"phases", m.scheduler.Phases(),
		"seed", cfg.Seed,
	)
	return m, nil
}

// spatialInput returns location names in numbering order plus routes, either
// from the configuration or from a generated layout.
func spatialInput(cfg config.Config) ([]string, []world.Route) {
	if !cfg.Synthetic() {
		return network.NodeNames(cfg.Spatial.Routes, cfg.Spatial.Sites...), cfg.Spatial.Routes
	}
	gen := cfg.GenConfig()
	sites := world.GenerateSites(gen)
	names := make([]string, len(sites))
	for i, s := range sites {
		names[i] = s.Name
	}
	return names, world.Routes(sites, gen)
}

func assignProducers(cfg config.Config, catalogue economy.Catalogue, names []string, spatial *network.Spatial, streams *entropy.Source) (map[string]economy.Product, error) {
	if len(cfg.Spatial.Producers) > 0 {
		out := make(map[string]economy.Product, len(cfg.Spatial.Producers))
		for loc, name := range cfg.Spatial.Producers {
			if _, ok := spatial.ID(loc); !ok {
				return nil, &config.ConfigurationError{Field: "spatial/producers/" + loc, Reason: "unknown location"}
			}
			p, _ := catalogue.Lookup(name)
			out[loc] = p
		}
		return out, nil
	}
	out, err := world.AssignProducers(names, spatial.Degrees(), catalogue.Len(), cfg.ProducerCriteria, streams.Stream(entropy.Producers))
	if err != nil {
		return nil, &config.ConfigurationError{Field: "producer_criteria", Reason: err.Error()}
	}
	return out, nil
}

// Step advances the model by one full timestep. An error leaves the model
// unusable.
func (m *Model) Step() error {
	m.step++
	m.board = agents.NewOfferBoard(m.catalogue.Len())
	m.current = StepStats{Step: m.step}
	ledgers := m.ledgerCopy()

	if err := m.scheduler.Run(m.merchants); err != nil {
		return fmt.Errorf("step %d: %w", m.step, err)
	}
	if err := m.checkInvariants(ledgers); err != nil {
		return err
	}

	stats := m.collectStats(m.step)
	stats.Offers = m.current.Offers
	stats.Trades = m.current.Trades
	stats.Produced = m.current.Produced
	stats.Discarded = m.current.Discarded
	stats.DepositedByTrade = m.current.DepositedByTrade
	stats.Moves = m.current.Moves
	m.current = stats
	m.publish()

	slog.Debug("step complete",
		"step", m.step,
		"offers", stats.Offers,
		"trades", stats.Trades,
		"moves", stats.Moves,
		"sum_product_all_sites", stats.SumProductAllSites,
	)
	if every := m.cfg.ReportEvery; every > 0 && m.step%every == 0 {
		slog.Info("step report",
			"step", m.step,
			"trades", stats.Trades,
			"produced", stats.Produced,
			"sum_product_all_sites", stats.SumProductAllSites,
			"avg_known_traders", fmt.Sprintf("%.2f", stats.AvgKnownTraders),
			"avg_expected_price", fmt.Sprintf("%.3f", stats.AvgExpectedPrice),
		)
	}
	return nil
}

// Run advances the model steps times, stopping at the first error.
func (m *Model) Run(steps int) error {
	for i := 0; i < steps; i++ {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// collectStats computes the state-derived reporters.
func (m *Model) collectStats(step int) StepStats {
	s := StepStats{Step: step}
	for _, loc := range m.locations {
		s.SumProductAllSites += loc.DepositedTotal()
	}
	if n := len(m.merchants); n > 0 {
		known, price := 0, 0.0
		for _, mer := range m.merchants {
			known += mer.Degree()
			price += mer.ExpectedPrice
		}
		s.AvgKnownTraders = float64(known) / float64(n)
		s.AvgExpectedPrice = price / float64(n)
	}
	return s
}

// StepCount returns the number of completed steps.
func (m *Model) StepCount() int {
	return m.step
}

// Config returns the configuration the model was built from.
func (m *Model) Config() config.Config {
	return m.cfg
}

// Catalogue returns the product kinds.
func (m *Model) Catalogue() economy.Catalogue {
	return m.catalogue
}

// Topology returns the network layers.
func (m *Model) Topology() *network.Topology {
	return m.topology
}

// Merchants returns every merchant in ascending id order.
func (m *Model) Merchants() []*agents.Merchant {
	return m.merchants
}

// Merchant looks up a merchant by id.
func (m *Model) Merchant(id agents.MerchantID) (*agents.Merchant, bool) {
	mer, ok := m.merchantIndex[id]
	return mer, ok
}

// Locations returns every location in ascending id order.
func (m *Model) Locations() []*world.Location {
	return m.locations
}

// Location looks up a location by id.
func (m *Model) Location(id world.LocationID) (*world.Location, bool) {
	loc, ok := m.locationIndex[id]
	return loc, ok
}

// LocationByName looks up a location by name.
func (m *Model) LocationByName(name string) (*world.Location, bool) {
	id, ok := m.topology.Spatial().ID(name)
	if !ok {
		return nil, false
	}
	return m.Location(world.LocationID(id))
}

// merchantsAt returns the residents of loc, excluding one merchant.
func (m *Model) merchantsAt(loc world.LocationID, exclude agents.MerchantID) []agents.MerchantID {
	ids := m.topology.Residents(int64(loc))
	out := make([]agents.MerchantID, 0, len(ids))
	for _, id := range ids {
		if agents.MerchantID(id) != exclude {
			out = append(out, agents.MerchantID(id))
		}
	}
	return out
}

// sortedUnion merges two ascending id lists without duplicates.
func sortedUnion(a, b []agents.MerchantID) []agents.MerchantID {
	seen := make(map[agents.MerchantID]bool, len(a)+len(b))
	out := make([]agents.MerchantID, 0, len(a)+len(b))
	for _, list := range [][]agents.MerchantID{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
