// Package network owns the three graph layers a run trades over: the social
// graph among merchants, the weighted spatial graph among locations and the
// interlayer residency edges between them.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// ErrUnreachable is returned when no spatial path joins two locations.
var ErrUnreachable = errors.New("location unreachable")

// ErrUnknownLocation is returned for a location id not in the spatial graph.
var ErrUnknownLocation = errors.New("unknown location")

// ResidencyError reports a merchant without exactly one interlayer edge.
type ResidencyError struct {
	Merchant int64
	Edges    int
}

func (e *ResidencyError) Error() string {
	return fmt.Sprintf("merchant %d has %d residency edges, want 1", e.Merchant, e.Edges)
}

// Topology is the two-layer network plus residency. Merchant ids and
// location ids share the interlayer graph, so they must not overlap.
type Topology struct {
	social     *simple.UndirectedGraph
	spatial    *Spatial
	interlayer *simple.UndirectedGraph

	paths map[int64]path.Shortest
}

// New wires the layers together. No merchant id may be a location id.
func New(social *simple.UndirectedGraph, spatial *Spatial) (*Topology, error) {
	nodes := social.Nodes()
	for nodes.Next() {
		if id := nodes.Node().ID(); spatial.Name(id) != "" {
			return nil, fmt.Errorf("merchant id %d collides with location %q", id, spatial.Name(id))
		}
	}
	t := &Topology{
		social:     social,
		spatial:    spatial,
		interlayer: simple.NewUndirectedGraph(),
		paths:      make(map[int64]path.Shortest),
	}
	for _, id := range spatial.IDs() {
		t.interlayer.AddNode(simple.Node(id))
	}
	return t, nil
}

// Spatial returns the location layer.
func (t *Topology) Spatial() *Spatial {
	return t.spatial
}

// SocialNeighbours returns the merchant's acquaintances in ascending id order.
func (t *Topology) SocialNeighbours(merchant int64) []int64 {
	if t.social.Node(merchant) == nil {
		return nil
	}
	return sortedIDs(t.social.From(merchant))
}

// SocialDegree is the number of acquaintances.
func (t *Topology) SocialDegree(merchant int64) int {
	if t.social.Node(merchant) == nil {
		return 0
	}
	return t.social.From(merchant).Len()
}

// SocialEdges returns the number of social links.
func (t *Topology) SocialEdges() int {
	return t.social.Edges().Len()
}

// SpatialNeighbours returns locations one route away in ascending id order.
func (t *Topology) SpatialNeighbours(loc int64) []int64 {
	if t.spatial.g.Node(loc) == nil {
		return nil
	}
	return sortedIDs(t.spatial.g.From(loc))
}

// SpatialDegree is the number of routes touching loc.
func (t *Topology) SpatialDegree(loc int64) int {
	if t.spatial.g.Node(loc) == nil {
		return 0
	}
	return t.spatial.g.From(loc).Len()
}

// TotalSpatialCost is the sum of all route costs.
func (t *Topology) TotalSpatialCost() float64 {
	return t.spatial.TotalCost()
}

// ShortestPathCost returns the cheapest route cost between two locations.
// Route costs never change during a run, so trees are cached per source.
func (t *Topology) ShortestPathCost(from, to int64) (float64, error) {
	if from == to {
		return 0, nil
	}
	src := t.spatial.g.Node(from)
	if src == nil || t.spatial.g.Node(to) == nil {
		return 0, fmt.Errorf("path %d-%d: %w", from, to, ErrUnknownLocation)
	}
	tree, ok := t.paths[from]
	if !ok {
		tree = path.DijkstraFrom(src, t.spatial.g)
		t.paths[from] = tree
	}
	w := tree.WeightTo(to)
	if math.IsInf(w, 1) {
		return 0, fmt.Errorf("path %d-%d: %w", from, to, ErrUnreachable)
	}
	return w, nil
}

// Place adds the residency edge for a merchant that has none yet.
func (t *Topology) Place(merchant, loc int64) error {
	if t.spatial.Name(merchant) != "" {
		return fmt.Errorf("merchant id %d is a location id", merchant)
	}
	if t.spatial.Name(loc) == "" {
		return fmt.Errorf("place merchant %d: unknown location %d", merchant, loc)
	}
	if t.interlayer.Node(merchant) != nil && t.interlayer.From(merchant).Len() > 0 {
		return fmt.Errorf("place merchant %d: already resident", merchant)
	}
	t.interlayer.SetEdge(simple.Edge{F: simple.Node(merchant), T: simple.Node(loc)})
	return nil
}

// LocationOf returns the merchant's current location.
func (t *Topology) LocationOf(merchant int64) (int64, error) {
	if t.interlayer.Node(merchant) == nil {
		return 0, &ResidencyError{Merchant: merchant}
	}
	locs := t.interlayer.From(merchant)
	if locs.Len() != 1 {
		return 0, &ResidencyError{Merchant: merchant, Edges: locs.Len()}
	}
	locs.Next()
	return locs.Node().ID(), nil
}

// Residents returns the merchants at loc in ascending id order.
func (t *Topology) Residents(loc int64) []int64 {
	if t.interlayer.Node(loc) == nil {
		return nil
	}
	return sortedIDs(t.interlayer.From(loc))
}

// Relocate swaps the merchant's residency edge from one location to another.
// Nothing changes unless the merchant is resident at from and to exists.
func (t *Topology) Relocate(merchant, from, to int64) error {
	cur, err := t.LocationOf(merchant)
	if err != nil {
		return err
	}
	if cur != from {
		return fmt.Errorf("relocate merchant %d: resident at %d, not %d", merchant, cur, from)
	}
	if t.spatial.Name(to) == "" {
		return fmt.Errorf("relocate merchant %d: unknown location %d", merchant, to)
	}
	if from == to {
		return nil
	}
	t.interlayer.RemoveEdge(merchant, from)
	t.interlayer.SetEdge(simple.Edge{F: simple.Node(merchant), T: simple.Node(to)})
	return nil
}

func sortedIDs(it graph.Nodes) []int64 {
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
