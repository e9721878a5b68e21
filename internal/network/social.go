package network

import (
	"fmt"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"
)

// Social graph generator families.
const (
	SocialComplete   = "complete"
	SocialScaleFree  = "scale_free"
	SocialSmallWorld = "small_world"
	SocialExplicit   = "explicit"
)

// SocialParams selects and parameterises a social graph generator.
type SocialParams struct {
	Kind string

	// Scale-free: edges added per new merchant.
	Attach int

	// Small-world: ring neighbours per merchant and rewiring probability.
	Neighbours int
	Rewire     float64

	// Explicit: merchant id pairs.
	Edges [][2]int64
}

// BuildSocial creates a social graph over merchant ids 0..n-1.
func BuildSocial(n int, p SocialParams, seed int64) (*simple.UndirectedGraph, error) {
	g := simple.NewUndirectedGraph()
	if n <= 0 {
		return g, nil
	}
	src := xrand.NewSource(uint64(seed))

	switch p.Kind {
	case SocialComplete, "":
		gen.Complete(g, gen.IDRange{First: 0, Last: int64(n - 1)})

	case SocialScaleFree:
		if p.Attach < 1 || n <= p.Attach {
			return nil, fmt.Errorf("scale_free: need 1 <= attach < merchants, got attach=%d merchants=%d", p.Attach, n)
		}
		if err := gen.PreferentialAttachment(g, n, p.Attach, src); err != nil {
			return nil, fmt.Errorf("scale_free: %w", err)
		}

	case SocialSmallWorld:
		d := p.Neighbours / 2
		if d < 1 {
			d = 1
		}
		if d > (n-1)/2 {
			return nil, fmt.Errorf("small_world: %d neighbours is too many for %d merchants", p.Neighbours, n)
		}
		if p.Rewire < 0 || p.Rewire >= 1 {
			return nil, fmt.Errorf("small_world: rewire probability %v outside [0,1)", p.Rewire)
		}
		if p.Rewire == 0 {
			ringLattice(g, n, d)
			break
		}
		if err := gen.SmallWorldsBB(g, n, d, p.Rewire, src); err != nil {
			return nil, fmt.Errorf("small_world: %w", err)
		}

	case SocialExplicit:
		for _, e := range p.Edges {
			a, b := e[0], e[1]
			if a < 0 || b < 0 || a >= int64(n) || b >= int64(n) {
				return nil, fmt.Errorf("explicit: edge %d-%d outside merchants 0..%d", a, b, n-1)
			}
			if a == b {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		}

	default:
		return nil, fmt.Errorf("unknown social graph type %q", p.Kind)
	}

	// Isolated merchants still need a node.
	for id := int64(0); id < int64(n); id++ {
		if g.Node(id) == nil {
			g.AddNode(simple.Node(id))
		}
	}
	return g, nil
}

// ringLattice joins each merchant to the d following merchants on a ring.
func ringLattice(g *simple.UndirectedGraph, n, d int) {
	for i := 0; i < n; i++ {
		for j := 1; j <= d; j++ {
			k := (i + j) % n
			if k != i && !g.HasEdgeBetween(int64(i), int64(k)) {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(k)})
			}
		}
	}
}
