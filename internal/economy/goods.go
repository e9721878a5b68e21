// Package economy provides product kinds, per-product inventories and the
// pricing rules merchants use to value trades.
package economy

import "fmt"

// Product is an index into the product catalogue (0..P-1).
type Product int

// NoProduct marks a location that produces nothing.
const NoProduct Product = -1

// NoProductName is the label of NoProduct and may not name a product kind.
const NoProductName = "NO_PRODUCT"

// DefaultProducts is the catalogue used when none is configured.
var DefaultProducts = []string{"PRODUCT_A", "PRODUCT_B", "PRODUCT_C"}

// Catalogue names the product kinds of one run. Its length is P.
type Catalogue []string

// Len returns the number of product kinds.
func (c Catalogue) Len() int { return len(c) }

// Name returns the display name for p.
func (c Catalogue) Name(p Product) string {
	if p == NoProduct {
		return NoProductName
	}
	if int(p) < 0 || int(p) >= len(c) {
		return fmt.Sprintf("PRODUCT_%d", int(p))
	}
	return c[p]
}

// Lookup returns the product with the given name.
func (c Catalogue) Lookup(name string) (Product, bool) {
	for i, n := range c {
		if n == name {
			return Product(i), true
		}
	}
	return NoProduct, false
}

// All returns every product in index order.
func (c Catalogue) All() []Product {
	out := make([]Product, len(c))
	for i := range c {
		out[i] = Product(i)
	}
	return out
}

// Inventory holds one integer quantity per product kind.
type Inventory []int

// NewInventory returns a zeroed inventory for n product kinds.
func NewInventory(n int) Inventory {
	return make(Inventory, n)
}

// Total returns the sum over all product kinds.
func (inv Inventory) Total() int {
	total := 0
	for _, q := range inv {
		total += q
	}
	return total
}

// Mean returns the average quantity across product kinds.
func (inv Inventory) Mean() float64 {
	if len(inv) == 0 {
		return 0
	}
	return float64(inv.Total()) / float64(len(inv))
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	copy(out, inv)
	return out
}
