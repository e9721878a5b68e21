package network

import (
	"errors"
	"math"
	"testing"

	"github.com/talgya/merchant-network/internal/world"
)

// chain: A -1- B -2- C, plus an isolated D.
func chainSpatial(t *testing.T) *Spatial {
	t.Helper()
	routes := []world.Route{
		{From: "A", To: "B", Cost: 1},
		{From: "B", To: "C", Cost: 2},
	}
	s, err := NewSpatial(NodeNames(routes, "D"), routes, 500)
	if err != nil {
		t.Fatalf("NewSpatial: %v", err)
	}
	return s
}

func chainTopology(t *testing.T, merchants int) *Topology {
	t.Helper()
	social, err := BuildSocial(merchants, SocialParams{Kind: SocialComplete}, 1)
	if err != nil {
		t.Fatalf("BuildSocial: %v", err)
	}
	top, err := New(social, chainSpatial(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return top
}

func TestSpatial_Numbering(t *testing.T) {
	s := chainSpatial(t)
	want := []string{"A", "B", "C", "D"}
	for i, name := range want {
		id, ok := s.ID(name)
		if !ok || id != int64(500+i) {
			t.Errorf("ID(%s)=%d,%v want=%d", name, id, ok, 500+i)
		}
	}
	if s.TotalCost() != 3 {
		t.Errorf("TotalCost=%v want=3", s.TotalCost())
	}
	deg := s.Degrees()
	if deg["B"] != 2 || deg["D"] != 0 {
		t.Errorf("Degrees=%v", deg)
	}
	if routes := s.Routes(); len(routes) != 2 || routes[0].From != "A" || routes[1].To != "C" {
		t.Errorf("Routes=%v", routes)
	}
}

func TestSpatial_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		names  []string
		routes []world.Route
	}{
		{"duplicate name", []string{"A", "A"}, nil},
		{"unknown endpoint", []string{"A"}, []world.Route{{From: "A", To: "Z", Cost: 1}}},
		{"negative cost", []string{"A", "B"}, []world.Route{{From: "A", To: "B", Cost: -1}}},
		{"self loop", []string{"A"}, []world.Route{{From: "A", To: "A", Cost: 1}}},
	}
	for _, tc := range cases {
		if _, err := NewSpatial(tc.names, tc.routes, 500); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestShortestPathCost(t *testing.T) {
	top := chainTopology(t, 3)

	got, err := top.ShortestPathCost(500, 502)
	if err != nil || got != 3 {
		t.Fatalf("cost A->C=%v,%v want=3", got, err)
	}
	// Cached tree gives the same answer.
	if again, _ := top.ShortestPathCost(500, 502); again != got {
		t.Errorf("cached cost=%v want=%v", again, got)
	}
	if same, err := top.ShortestPathCost(501, 501); err != nil || same != 0 {
		t.Errorf("cost B->B=%v,%v want=0", same, err)
	}
	if _, err := top.ShortestPathCost(500, 503); !errors.Is(err, ErrUnreachable) {
		t.Errorf("A->D err=%v want ErrUnreachable", err)
	}
	if _, err := top.ShortestPathCost(500, 999); !errors.Is(err, ErrUnknownLocation) {
		t.Errorf("unknown location err=%v want ErrUnknownLocation", err)
	}
}

func TestNeighbours(t *testing.T) {
	top := chainTopology(t, 4)

	if got := top.SpatialNeighbours(501); len(got) != 2 || got[0] != 500 || got[1] != 502 {
		t.Errorf("SpatialNeighbours(B)=%v want=[500 502]", got)
	}
	if got := top.SpatialNeighbours(503); len(got) != 0 {
		t.Errorf("SpatialNeighbours(D)=%v want none", got)
	}
	got := top.SocialNeighbours(2)
	want := []int64{0, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("SocialNeighbours(2)=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SocialNeighbours(2)=%v want=%v", got, want)
		}
	}
	if top.SocialDegree(0) != 3 || top.SocialEdges() != 6 {
		t.Errorf("degree=%d edges=%d want 3 and 6", top.SocialDegree(0), top.SocialEdges())
	}
}

func TestResidency(t *testing.T) {
	top := chainTopology(t, 3)

	if _, err := top.LocationOf(0); err == nil {
		t.Fatalf("unplaced merchant has a location")
	}
	for m := int64(0); m < 3; m++ {
		if err := top.Place(m, 500); err != nil {
			t.Fatalf("Place(%d): %v", m, err)
		}
	}
	if err := top.Place(0, 501); err == nil {
		t.Errorf("second placement accepted")
	}
	if err := top.Place(1, 777); err == nil {
		t.Errorf("placement at unknown location accepted")
	}

	if err := top.Relocate(1, 500, 501); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	loc, err := top.LocationOf(1)
	if err != nil || loc != 501 {
		t.Fatalf("LocationOf(1)=%d,%v want=501", loc, err)
	}
	if res := top.Residents(500); len(res) != 2 || res[0] != 0 || res[1] != 2 {
		t.Errorf("Residents(A)=%v want=[0 2]", res)
	}
	if res := top.Residents(501); len(res) != 1 || res[0] != 1 {
		t.Errorf("Residents(B)=%v want=[1]", res)
	}

	// A failed swap leaves the edge where it was.
	if err := top.Relocate(1, 500, 502); err == nil {
		t.Errorf("relocate from wrong location accepted")
	}
	if err := top.Relocate(1, 501, 999); err == nil {
		t.Errorf("relocate to unknown location accepted")
	}
	if loc, _ := top.LocationOf(1); loc != 501 {
		t.Errorf("failed relocation moved merchant to %d", loc)
	}

	var rerr *ResidencyError
	if _, err := top.LocationOf(42); !errors.As(err, &rerr) {
		t.Errorf("LocationOf unknown merchant err=%v want ResidencyError", err)
	}
}

func TestNew_RejectsIDCollision(t *testing.T) {
	social, _ := BuildSocial(501, SocialParams{Kind: SocialExplicit}, 1)
	if _, err := New(social, chainSpatial(t)); err == nil {
		t.Errorf("merchant id 500 accepted alongside location 500")
	}
}

func TestBuildSocial(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		g, err := BuildSocial(5, SocialParams{Kind: SocialComplete}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if g.Edges().Len() != 10 {
			t.Errorf("edges=%d want=10", g.Edges().Len())
		}
	})

	t.Run("scale free", func(t *testing.T) {
		g, err := BuildSocial(20, SocialParams{Kind: SocialScaleFree, Attach: 5}, 7)
		if err != nil {
			t.Fatal(err)
		}
		if g.Nodes().Len() != 20 {
			t.Errorf("nodes=%d want=20", g.Nodes().Len())
		}
		if g.Edges().Len() == 0 {
			t.Errorf("no edges")
		}
		if _, err := BuildSocial(5, SocialParams{Kind: SocialScaleFree, Attach: 5}, 7); err == nil {
			t.Errorf("attach >= merchants accepted")
		}
	})

	t.Run("small world", func(t *testing.T) {
		g, err := BuildSocial(20, SocialParams{Kind: SocialSmallWorld, Neighbours: 4, Rewire: 0.5}, 7)
		if err != nil {
			t.Fatal(err)
		}
		if g.Nodes().Len() != 20 {
			t.Errorf("nodes=%d want=20", g.Nodes().Len())
		}
		ring, err := BuildSocial(10, SocialParams{Kind: SocialSmallWorld, Neighbours: 4}, 7)
		if err != nil {
			t.Fatal(err)
		}
		if ring.Edges().Len() != 20 {
			t.Errorf("ring lattice edges=%d want=20", ring.Edges().Len())
		}
		if _, err := BuildSocial(4, SocialParams{Kind: SocialSmallWorld, Neighbours: 6, Rewire: 0.5}, 7); err == nil {
			t.Errorf("oversized neighbourhood accepted")
		}
	})

	t.Run("explicit", func(t *testing.T) {
		g, err := BuildSocial(4, SocialParams{Kind: SocialExplicit, Edges: [][2]int64{{0, 1}, {1, 0}, {2, 2}}}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if g.Edges().Len() != 1 || g.Nodes().Len() != 4 {
			t.Errorf("edges=%d nodes=%d want 1 and 4", g.Edges().Len(), g.Nodes().Len())
		}
		if _, err := BuildSocial(2, SocialParams{Kind: SocialExplicit, Edges: [][2]int64{{0, 5}}}, 1); err == nil {
			t.Errorf("out of range edge accepted")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a, _ := BuildSocial(30, SocialParams{Kind: SocialScaleFree, Attach: 3}, 99)
		b, _ := BuildSocial(30, SocialParams{Kind: SocialScaleFree, Attach: 3}, 99)
		for id := int64(0); id < 30; id++ {
			if a.From(id).Len() != b.From(id).Len() {
				t.Fatalf("node %d degree differs between identical seeds", id)
			}
		}
	})

	if _, err := BuildSocial(3, SocialParams{Kind: "lattice"}, 1); err == nil {
		t.Errorf("unknown type accepted")
	}
}

func TestTotalSpatialCost_IgnoresRepeatedRoute(t *testing.T) {
	routes := []world.Route{
		{From: "A", To: "B", Cost: 4},
		{From: "B", To: "A", Cost: 1.5},
	}
	s, err := NewSpatial(NodeNames(routes), routes, 500)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.TotalCost()-1.5) > 1e-12 {
		t.Errorf("TotalCost=%v want=1.5", s.TotalCost())
	}
}
