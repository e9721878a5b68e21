package network

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/talgya/merchant-network/internal/world"
)

// Spatial is the weighted location graph. Node ids are location ids.
type Spatial struct {
	g      *simple.WeightedUndirectedGraph
	names  map[int64]string
	byName map[string]int64
	order  []int64
	total  float64
}

// NodeNames returns every location name mentioned by routes, in order of
// first appearance, followed by any extra names that no route mentions.
func NodeNames(routes []world.Route, extra ...string) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, r := range routes {
		add(r.From)
		add(r.To)
	}
	for _, n := range extra {
		add(n)
	}
	return names
}

// NewSpatial numbers names from firstID in order and joins them with routes.
// Costs must be non-negative; a repeated route keeps the last cost given.
func NewSpatial(names []string, routes []world.Route, firstID int64) (*Spatial, error) {
	s := &Spatial{
		g:      simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		names:  make(map[int64]string, len(names)),
		byName: make(map[string]int64, len(names)),
	}
	for i, name := range names {
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("duplicate location name %q", name)
		}
		id := firstID + int64(i)
		s.g.AddNode(simple.Node(id))
		s.names[id] = name
		s.byName[name] = id
		s.order = append(s.order, id)
	}

	for _, r := range routes {
		from, ok := s.byName[r.From]
		if !ok {
			return nil, fmt.Errorf("route %s-%s: unknown location %q", r.From, r.To, r.From)
		}
		to, ok := s.byName[r.To]
		if !ok {
			return nil, fmt.Errorf("route %s-%s: unknown location %q", r.From, r.To, r.To)
		}
		if from == to {
			return nil, fmt.Errorf("route %s-%s: self loop", r.From, r.To)
		}
		if r.Cost < 0 || math.IsNaN(r.Cost) || math.IsInf(r.Cost, 0) {
			return nil, fmt.Errorf("route %s-%s: invalid cost %v", r.From, r.To, r.Cost)
		}
		if e := s.g.WeightedEdge(from, to); e != nil {
			s.total -= e.Weight()
		}
		s.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: r.Cost})
		s.total += r.Cost
	}
	return s, nil
}

// Len returns the number of locations.
func (s *Spatial) Len() int {
	return len(s.order)
}

// IDs returns location ids in numbering order.
func (s *Spatial) IDs() []int64 {
	return append([]int64(nil), s.order...)
}

// Name returns the name of location id, or "" when unknown.
func (s *Spatial) Name(id int64) string {
	return s.names[id]
}

// ID looks up a location by name.
func (s *Spatial) ID(name string) (int64, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// Degrees returns the number of routes touching each location, by name.
func (s *Spatial) Degrees() map[string]int {
	out := make(map[string]int, len(s.order))
	for _, id := range s.order {
		out[s.names[id]] = s.g.From(id).Len()
	}
	return out
}

// TotalCost is the sum of all route costs.
func (s *Spatial) TotalCost() float64 {
	return s.total
}

// Routes returns every route once, ordered by endpoint ids.
func (s *Spatial) Routes() []world.Route {
	var out []world.Route
	edges := s.g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		a, b := e.From().ID(), e.To().ID()
		if a > b {
			a, b = b, a
		}
		out = append(out, world.Route{From: s.names[a], To: s.names[b], Cost: e.Weight()})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := s.byName[out[i].From], s.byName[out[j].From]
		if ai != aj {
			return ai < aj
		}
		return s.byName[out[i].To] < s.byName[out[j].To]
	})
	return out
}
