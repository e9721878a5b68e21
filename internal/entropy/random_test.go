package entropy

import (
	"sort"
	"testing"
)

func TestSource_StreamsAreStableAndIndependent(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)

	// Drawing from another stream first must not shift the schedule stream.
	a.Stream(Decisions).Int63()
	a.Stream(Decisions).Int63()

	for i := 0; i < 5; i++ {
		x, y := a.Stream(Schedule).Int63(), b.Stream(Schedule).Int63()
		if x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
	if a.Stream(Setup) != a.Stream(Setup) {
		t.Errorf("Stream returned a new generator for the same offset")
	}
	if a.Seed() != 42 {
		t.Errorf("Seed=%d want=42", a.Seed())
	}
}

func TestPermutation(t *testing.T) {
	order := Permutation(New(7, Schedule), 10)
	if len(order) != 10 {
		t.Fatalf("len=%d want=10", len(order))
	}
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("permutation %v is missing %d", order, i)
		}
	}

	again := Permutation(New(7, Schedule), 10)
	for i := range order {
		if order[i] != again[i] {
			t.Fatalf("same seed gave %v and %v", order, again)
		}
	}
}

func TestChoice(t *testing.T) {
	r := New(1, Decisions)
	if got := Choice(r, 0); got != -1 {
		t.Errorf("Choice(0)=%d want=-1", got)
	}
	for i := 0; i < 20; i++ {
		if got := Choice(r, 3); got < 0 || got >= 3 {
			t.Fatalf("Choice(3)=%d out of range", got)
		}
	}
}
