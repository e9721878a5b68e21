package engine

// Entity categories.
const (
	CategoryMerchant = "merchant"
	CategoryLocation = "location"
)

// EntitySnapshot is the read-only view of one merchant or location after a
// completed step. Merchants fill Product, Stock and Demand; locations fill
// Deposited.
type EntitySnapshot struct {
	Category     string  `json:"category"`
	ID           uint64  `json:"id"`
	Type         string  `json:"type"` // Strategy label, or "location"
	Location     string  `json:"location"`
	LocationID   uint64  `json:"location_id"`
	Product      []int   `json:"product,omitempty"`
	Stock        []int   `json:"stock,omitempty"`
	Demand       []int   `json:"demand,omitempty"`
	Deposited    []int   `json:"deposited,omitempty"`
	NumTrades    int     `json:"num_trades"`
	NodeDegree   int     `json:"node_degree"`
	Price        float64 `json:"expected_price,omitempty"`
	Specialty    string  `json:"specialist_item,omitempty"`
	Producer     string  `json:"producer,omitempty"`
	Residents    int     `json:"residents,omitempty"`
	SinceTrading int     `json:"time_since_trade,omitempty"`
}

// Snapshot is the state of the whole model after a step.
type Snapshot struct {
	Step     int              `json:"step"`
	Products []string         `json:"products"`
	Stats    StepStats        `json:"stats"`
	Entities []EntitySnapshot `json:"entities"`
}

// Merchants returns the merchant entries.
func (s *Snapshot) Merchants() []EntitySnapshot {
	return s.filter(CategoryMerchant)
}

// Locations returns the location entries.
func (s *Snapshot) Locations() []EntitySnapshot {
	return s.filter(CategoryLocation)
}

func (s *Snapshot) filter(category string) []EntitySnapshot {
	var out []EntitySnapshot
	for _, e := range s.Entities {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns the view published after the most recent step. Step 0 is
// the initial state. Safe to call while the model is stepping.
func (m *Model) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// publish captures the current state. Every slice is copied, so the
// snapshot never changes after it is published.
func (m *Model) publish() {
	snap := &Snapshot{
		Step:     m.step,
		Products: append([]string(nil), m.catalogue...),
		Stats:    m.current,
		Entities: make([]EntitySnapshot, 0, len(m.merchants)+len(m.locations)),
	}
	for _, mer := range m.merchants {
		e := EntitySnapshot{
			Category:     CategoryMerchant,
			ID:           uint64(mer.ID),
			Type:         mer.Kind().String(),
			LocationID:   uint64(mer.Location),
			Product:      mer.Product.Clone(),
			Stock:        mer.Stock.Clone(),
			Demand:       mer.Demand.Clone(),
			NumTrades:    mer.NumTrades,
			NodeDegree:   m.topology.SocialDegree(int64(mer.ID)),
			Price:        mer.ExpectedPrice,
			SinceTrading: mer.TimeSinceTrade,
		}
		if loc, ok := m.locationIndex[mer.Location]; ok {
			e.Location = loc.Name
		}
		if item, ok := mer.SpecialistItem(); ok {
			e.Specialty = m.catalogue.Name(item)
		}
		snap.Entities = append(snap.Entities, e)
	}
	for _, loc := range m.locations {
		snap.Entities = append(snap.Entities, EntitySnapshot{
			Category:   CategoryLocation,
			ID:         uint64(loc.ID),
			Type:       CategoryLocation,
			Location:   loc.Name,
			LocationID: uint64(loc.ID),
			Deposited:  loc.Deposited.Clone(),
			NodeDegree: m.topology.SpatialDegree(int64(loc.ID)),
			Producer:   m.catalogue.Name(loc.Producer),
			Residents:  loc.ResidentCount(),
		})
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
}
