package world

import (
	"math/rand"
	"testing"

	"github.com/talgya/merchant-network/internal/economy"
)

func TestLocation_DepositAndResidents(t *testing.T) {
	loc := NewLocation(500, "Ironford", economy.NoProduct, 3)
	if loc.IsProducer() {
		t.Fatalf("location with NoProduct reports producer")
	}
	if err := loc.Deposit(1, 4); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := loc.Deposit(1, -1); err == nil {
		t.Fatalf("negative deposit accepted")
	}
	if loc.Deposited[1] != 4 || loc.DepositedTotal() != 4 {
		t.Errorf("Deposited=%v want [0 4 0]", loc.Deposited)
	}

	loc.AddResident(3)
	loc.AddResident(1)
	loc.AddResident(3)
	if loc.ResidentCount() != 2 {
		t.Fatalf("ResidentCount=%d want=2", loc.ResidentCount())
	}
	if got := loc.Residents(); got[0] != 1 || got[1] != 3 {
		t.Errorf("Residents=%v want [1 3]", got)
	}
	if !loc.RemoveResident(1) || loc.RemoveResident(1) {
		t.Errorf("RemoveResident should succeed once")
	}
}

func TestFirstLocationID(t *testing.T) {
	cases := map[int]LocationID{10: 500, 499: 500, 500: 600, 1234: 1300}
	for n, want := range cases {
		if got := FirstLocationID(n); got != want {
			t.Errorf("FirstLocationID(%d)=%d want=%d", n, got, want)
		}
	}
}

func TestGenerateSites_Deterministic(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	a := GenerateSites(cfg)
	b := GenerateSites(cfg)
	if len(a) != cfg.Sites {
		t.Fatalf("sites=%d want=%d", len(a), cfg.Sites)
	}
	names := make(map[string]bool)
	coords := make(map[HexCoord]bool)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("site %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
		if names[a[i].Name] || coords[a[i].Coord] {
			t.Fatalf("duplicate site %+v", a[i])
		}
		names[a[i].Name] = true
		coords[a[i].Coord] = true
	}
}

func TestRoutes_Connected(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	sites := GenerateSites(cfg)
	routes := Routes(sites, cfg)

	adj := make(map[string][]string)
	for _, r := range routes {
		if r.Cost <= 0 {
			t.Fatalf("route %+v has non-positive cost", r)
		}
		adj[r.From] = append(adj[r.From], r.To)
		adj[r.To] = append(adj[r.To], r.From)
	}
	seen := map[string]bool{sites[0].Name: true}
	queue := []string{sites[0].Name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range adj[cur] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	if len(seen) != len(sites) {
		t.Errorf("reached %d of %d sites", len(seen), len(sites))
	}
	for _, r := range routes {
		if r.Cost <= 0 {
			t.Errorf("route %s-%s cost=%v want > 0", r.From, r.To, r.Cost)
		}
	}
}

func TestAssignProducers(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	degree := map[string]int{"A": 1, "B": 3, "C": 3, "D": 2}

	got, err := AssignProducers(names, degree, 3, CriteriaNodeDegree, nil)
	if err != nil {
		t.Fatalf("AssignProducers: %v", err)
	}
	want := map[string]economy.Product{"B": 0, "C": 1, "D": 2}
	for name, p := range want {
		if got[name] != p {
			t.Errorf("producer[%s]=%d want=%d", name, got[name], p)
		}
	}
	if _, ok := got["A"]; ok {
		t.Errorf("A should not produce")
	}

	rnd, err := AssignProducers(names, degree, 3, CriteriaRandom, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("AssignProducers random: %v", err)
	}
	if len(rnd) != 3 {
		t.Errorf("random producers=%d want=3", len(rnd))
	}

	few, _ := AssignProducers([]string{"X"}, nil, 3, CriteriaRandom, rand.New(rand.NewSource(1)))
	if len(few) != 1 {
		t.Errorf("producers with one location=%d want=1", len(few))
	}

	if _, err := AssignProducers(names, degree, 3, "bogus", nil); err == nil {
		t.Errorf("unknown criteria accepted")
	}
}
