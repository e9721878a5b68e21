// Synthetic geography: places named sites on a hex plane and links each to its
// nearest neighbours. Route costs grow with distance and with the elevation
// change read from layered simplex noise.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds synthetic geography parameters.
type GenConfig struct {
	Sites      int     // Number of locations to place
	Seed       int64   // Layout seed
	Links      int     // Nearest sites each site is linked to
	Ruggedness float64 // Extra cost per unit of elevation change
}

// DefaultGenConfig returns a layout the size of the regional network the
// model was first run on.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Sites:      24,
		Seed:       0,
		Links:      2,
		Ruggedness: 2.0,
	}
}

// Site is a placed location before it becomes a network node.
type Site struct {
	Name      string   `json:"name"`
	Coord     HexCoord `json:"coord"`
	Elevation float64  `json:"elevation"` // 0.0 (lowland) to 1.0 (peak)
}

// Route is an undirected weighted link between two named sites.
type Route struct {
	From string  `json:"from" yaml:"from"`
	To   string  `json:"to" yaml:"to"`
	Cost float64 `json:"cost" yaml:"cost"`
}

// GenerateSites places cfg.Sites sites with distinct coordinates and names.
func GenerateSites(cfg GenConfig) []Site {
	if cfg.Sites <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	elevNoise := opensimplex.NewNormalized(cfg.Seed)

	// Keep the plane roughly three times as large as the site count so sites spread out.
	radius := 1
	for hexCount(radius) < cfg.Sites*3 {
		radius++
	}

	var coords []HexCoord
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := HexCoord{Q: q, R: r}
			if InRadius(c, radius) {
				coords = append(coords, c)
			}
		}
	}
	rng.Shuffle(len(coords), func(i, j int) {
		coords[i], coords[j] = coords[j], coords[i]
	})

	names := generateNames(rng, cfg.Sites)
	sites := make([]Site, cfg.Sites)
	for i := range sites {
		c := coords[i]
		x := float64(c.Q) + float64(c.R)*0.5
		y := float64(c.R) * math.Sqrt(3.0) / 2.0
		sites[i] = Site{
			Name:      names[i],
			Coord:     c,
			Elevation: octaveNoise(elevNoise, x, y, 4, 0.08, 0.5),
		}
	}
	return sites
}

// Routes links every site to its cfg.Links nearest sites and to the nearest
// earlier site, so the resulting network is connected.
func Routes(sites []Site, cfg GenConfig) []Route {
	type pair struct{ a, b int }
	seen := make(map[pair]bool)
	var routes []Route

	link := func(i, j int) {
		if i == j {
			return
		}
		k := pair{i, j}
		if j < i {
			k = pair{j, i}
		}
		if seen[k] {
			return
		}
		seen[k] = true
		routes = append(routes, Route{
			From: sites[k.a].Name,
			To:   sites[k.b].Name,
			Cost: routeCost(sites[k.a], sites[k.b], cfg.Ruggedness),
		})
	}

	for i := range sites {
		order := nearest(sites, i)
		for n := 0; n < cfg.Links && n < len(order); n++ {
			link(i, order[n])
		}
		if i == 0 {
			continue
		}
		for _, j := range order {
			if j < i {
				link(i, j)
				break
			}
		}
	}
	return routes
}

// nearest returns the other site indices ordered by hex distance, then index.
func nearest(sites []Site, i int) []int {
	order := make([]int, 0, len(sites)-1)
	for j := range sites {
		if j != i {
			order = append(order, j)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		da := Distance(sites[i].Coord, sites[order[a]].Coord)
		db := Distance(sites[i].Coord, sites[order[b]].Coord)
		if da != db {
			return da < db
		}
		return order[a] < order[b]
	})
	return order
}

func routeCost(a, b Site, ruggedness float64) float64 {
	d := float64(Distance(a.Coord, b.Coord))
	climb := math.Abs(a.Elevation - b.Elevation)
	return math.Round(d*(1+ruggedness*climb)*100) / 100
}

func hexCount(radius int) int {
	return 3*radius*(radius+1) + 1
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
