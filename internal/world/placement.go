// Producer assignment and procedural site names.
package world

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/talgya/merchant-network/internal/economy"
)

// Producer selection criteria.
const (
	CriteriaRandom     = "random"
	CriteriaNodeDegree = "node_degree"
)

// AssignProducers picks one producer location per product kind, up to the
// number of locations. Product i goes to the i-th chosen location.
//
// CriteriaRandom draws distinct locations from rng; CriteriaNodeDegree takes
// the best-connected locations, ties broken by name.
func AssignProducers(names []string, degree map[string]int, numProducts int, criteria string, rng *rand.Rand) (map[string]economy.Product, error) {
	k := numProducts
	if len(names) < k {
		k = len(names)
	}

	pool := make([]string, len(names))
	copy(pool, names)
	sort.Strings(pool)

	switch criteria {
	case CriteriaRandom:
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
	case CriteriaNodeDegree:
		sort.SliceStable(pool, func(i, j int) bool {
			return degree[pool[i]] > degree[pool[j]]
		})
	default:
		return nil, fmt.Errorf("unknown producer criteria %q", criteria)
	}

	out := make(map[string]economy.Product, k)
	for i := 0; i < k; i++ {
		out[pool[i]] = economy.Product(i)
	}
	return out, nil
}

// generateNames produces procedural site names by combining syllables.
// Once the combinations run out, names get a numeric suffix.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "rest", "point", "reach", "helm",
	}
	combos := len(prefixes) * len(suffixes)

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if len(used) >= combos/2 {
			name = fmt.Sprintf("%s %d", name, len(names)+1)
		}
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}
