// Hex coordinates for laying out synthetic sites.
package world

// HexCoord is an axial (q, r) position. The cube coordinate s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Distance is the number of hex steps between a and b: the largest of the
// three cube-coordinate differences.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// InRadius reports whether coord lies within radius steps of the origin.
func InRadius(coord HexCoord, radius int) bool {
	return Distance(coord, HexCoord{}) <= radius
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
