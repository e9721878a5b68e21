package economy

import (
	"math"
	"testing"
)

func TestExpectedPrice(t *testing.T) {
	cases := []struct {
		name           string
		supply, demand float64
		want           float64
	}{
		{"balanced", 2, 2, 0.5},
		{"demand heavy", 2.5, 10, 0.8},
		{"no demand", 4, 0, 0},
		{"empty aggregate", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExpectedPrice(tc.supply, tc.demand)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("ExpectedPrice(%v, %v) = %v, want finite", tc.supply, tc.demand, got)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ExpectedPrice(%v, %v) = %v, want %v", tc.supply, tc.demand, got, tc.want)
			}
		})
	}
}

func TestMaxStockSize_RoundsHalfToEven(t *testing.T) {
	if got := MaxStockSize(4, 1); got != 3 {
		t.Errorf("MaxStockSize(4, 1) = %d, want 3", got)
	}
	if got := MaxStockSize(2.5, 0); got != 2 {
		t.Errorf("MaxStockSize(2.5, 0) = %d, want 2", got)
	}
	if got := MaxStockSize(1, 4); got != -3 {
		t.Errorf("MaxStockSize(1, 4) = %d, want -3", got)
	}
}

func TestTransportCost(t *testing.T) {
	if got := TransportCost(0.5, 10, 100); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("TransportCost = %v, want 0.05", got)
	}
	if got := TransportCost(0.5, 10, 0); got != 0 {
		t.Errorf("TransportCost with empty network = %v, want 0", got)
	}
	if got := OfferPrice(0.8, 0.05); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("OfferPrice = %v, want 0.75", got)
	}
}

func TestInventory(t *testing.T) {
	inv := Inventory{3, 0, 6}
	if inv.Total() != 9 {
		t.Errorf("Total = %d, want 9", inv.Total())
	}
	if inv.Mean() != 3 {
		t.Errorf("Mean = %v, want 3", inv.Mean())
	}
	c := inv.Clone()
	c[0] = 100
	if inv[0] != 3 {
		t.Errorf("Clone shares storage with original")
	}
}

func TestCatalogue(t *testing.T) {
	c := Catalogue(DefaultProducts)
	p, ok := c.Lookup("PRODUCT_B")
	if !ok || p != 1 {
		t.Fatalf("Lookup(PRODUCT_B) = %d, %v", p, ok)
	}
	if _, ok := c.Lookup("PRODUCT_Z"); ok {
		t.Errorf("Lookup found unknown product")
	}
	if c.Name(NoProduct) != "NO_PRODUCT" {
		t.Errorf("Name(NoProduct) = %q", c.Name(NoProduct))
	}
	if len(c.All()) != 3 {
		t.Errorf("All() len = %d, want 3", len(c.All()))
	}
}
