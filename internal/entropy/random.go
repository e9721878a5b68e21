// Package entropy provides the seeded random streams a run draws from.
// Every concern gets its own stream derived from the run seed, so adding a
// draw in one place never shifts the sequence seen by another.
package entropy

import (
	"math/rand"
	"sync"
)

// Stream offsets added to the run seed.
const (
	Setup     int64 = 100 // Site layout and names
	Producers int64 = 200 // Producer assignment
	Spawn     int64 = 300 // Specialist items
	Social    int64 = 400 // Social graph generators
	Schedule  int64 = 500 // Per-phase activation order
	Decisions int64 = 600 // Partner choice and movement
)

// New returns a generator for seed+offset.
func New(seed, offset int64) *rand.Rand {
	return rand.New(rand.NewSource(seed + offset))
}

// Shuffler permutes an activation order in place.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Source hands out one stream per offset and keeps handing back the same one.
type Source struct {
	seed int64

	mu      sync.Mutex
	streams map[int64]*rand.Rand
}

// NewSource creates a stream source for a run seed.
func NewSource(seed int64) *Source {
	return &Source{
		seed:    seed,
		streams: make(map[int64]*rand.Rand),
	}
}

// Seed returns the run seed.
func (s *Source) Seed() int64 {
	return s.seed
}

// Stream returns the generator for offset, creating it on first use.
func (s *Source) Stream(offset int64) *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.streams[offset]
	if !ok {
		r = New(s.seed, offset)
		s.streams[offset] = r
	}
	return r
}

// Permutation returns 0..n-1 shuffled by sh.
func Permutation(sh Shuffler, n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sh.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// Choice returns a uniformly drawn index into a slice of length n, or -1
// when n is zero.
func Choice(r *rand.Rand, n int) int {
	if n <= 0 {
		return -1
	}
	return r.Intn(n)
}
