// Package config loads and validates the run configuration. A Config is
// validated once and treated as immutable afterwards.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/merchant-network/internal/economy"
	"github.com/talgya/merchant-network/internal/entropy"
	"github.com/talgya/merchant-network/internal/world"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// ConfigurationError reports an invalid configuration. Nothing runs when one
// is returned.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Social selects the acquaintance graph generator.
type Social struct {
	Type       string     `yaml:"type"`
	Attach     int        `yaml:"attach"`
	Neighbours int        `yaml:"neighbours"`
	Rewire     float64    `yaml:"rewire"`
	Edges      [][2]int64 `yaml:"edges"`
}

// Spatial describes the location graph. With neither sites nor routes a
// synthetic layout of Config.Locations sites is generated from the seed.
type Spatial struct {
	Sites      []string          `yaml:"sites"` // Extra locations, routes optional
	Routes     []world.Route     `yaml:"routes"`
	Producers  map[string]string `yaml:"producers"` // location name -> product name
	Links      int               `yaml:"links"`
	Ruggedness float64           `yaml:"ruggedness"`
}

// Config is the complete parameter set of a run.
type Config struct {
	Seed      int64    `yaml:"seed"`
	Steps     int      `yaml:"steps"`
	Merchants int      `yaml:"merchants"`
	Locations int      `yaml:"locations"`
	Products  []string `yaml:"products"`

	MaxDemand          int     `yaml:"max_demand"`
	DistanceMultiplier float64 `yaml:"distance_multiplier"`
	DiscardFraction    float64 `yaml:"discard_fraction"`

	// Strategy mix. Whatever is left over is specialists.
	ProportionProfit     float64 `yaml:"proportion_profit"`
	ProportionGeneralist float64 `yaml:"proportion_generalist"`

	NoTradeTolerance int    `yaml:"no_trade_tolerance"` // Negative disables movement
	LocationTrades   bool   `yaml:"location_trades"`
	ProducerCriteria string `yaml:"producer_criteria"`
	ReportEvery      int    `yaml:"report_every"` // Steps between info-level reports, 0 for none

	Social  Social  `yaml:"social"`
	Spatial Spatial `yaml:"spatial"`
}

// Default returns the stock configuration: ten profit maximizers on a
// complete acquaintance graph over a generated layout.
func Default() Config {
	gen := world.DefaultGenConfig()
	return Config{
		Seed:                 42,
		Steps:                100,
		Merchants:            10,
		Locations:            gen.Sites,
		Products:             append([]string(nil), economy.DefaultProducts...),
		MaxDemand:            10,
		DistanceMultiplier:   0.3,
		DiscardFraction:      0.14,
		ProportionProfit:     1,
		ProportionGeneralist: 0,
		NoTradeTolerance:     -1,
		LocationTrades:       false,
		ProducerCriteria:     world.CriteriaRandom,
		ReportEvery:          10,
		Social: Social{
			Type:       "complete",
			Attach:     5,
			Neighbours: 5,
			Rewire:     0.5,
		},
		Spatial: Spatial{
			Links:      gen.Links,
			Ruggedness: gen.Ruggedness,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg and validates it.
func Parse(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &ConfigurationError{Reason: err.Error()}
	}
	return cfg.Validate()
}

// Validate checks the configuration against the embedded schema and then
// applies the checks a schema cannot express.
func (c Config) Validate() error {
	doc, err := c.document()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := ve
			for len(leaf.Causes) > 0 {
				leaf = leaf.Causes[0]
			}
			return invalid(strings.TrimPrefix(leaf.InstanceLocation, "/"), "%s", leaf.Message)
		}
		return invalid("", "%v", err)
	}

	if sum := c.ProportionProfit + c.ProportionGeneralist; sum > 1+1e-9 {
		return invalid("proportion_profit", "strategy proportions sum to %v, more than 1", sum)
	}

	catalogue := economy.Catalogue(c.Products)
	for i, name := range c.Products {
		if name == economy.NoProductName {
			return invalid(fmt.Sprintf("products/%d", i), "%q is reserved", name)
		}
	}

	switch c.Social.Type {
	case "scale_free":
		if c.Social.Attach >= c.Merchants {
			return invalid("social/attach", "scale_free needs attach < merchants (%d >= %d)", c.Social.Attach, c.Merchants)
		}
	case "small_world":
		if d := c.Social.Neighbours / 2; d > (c.Merchants-1)/2 {
			return invalid("social/neighbours", "%d neighbours is too many for %d merchants", c.Social.Neighbours, c.Merchants)
		}
	case "explicit":
		for i, e := range c.Social.Edges {
			if e[0] >= int64(c.Merchants) || e[1] >= int64(c.Merchants) {
				return invalid(fmt.Sprintf("social/edges/%d", i), "edge %d-%d names a merchant outside 0..%d", e[0], e[1], c.Merchants-1)
			}
		}
	}

	if !c.Synthetic() {
		for i, r := range c.Spatial.Routes {
			if r.From == r.To {
				return invalid(fmt.Sprintf("spatial/routes/%d", i), "route joins %q to itself", r.From)
			}
		}
	} else if c.Locations < 1 {
		return invalid("locations", "need at least one location")
	}
	for loc, product := range c.Spatial.Producers {
		if _, ok := catalogue.Lookup(product); !ok {
			return invalid("spatial/producers/"+loc, "unknown product %q", product)
		}
		if !c.Synthetic() && !c.names(loc) {
			return invalid("spatial/producers/"+loc, "unknown location %q", loc)
		}
	}
	return nil
}

// Synthetic reports whether the location graph is generated rather than given.
func (c Config) Synthetic() bool {
	return len(c.Spatial.Sites) == 0 && len(c.Spatial.Routes) == 0
}

// Mix returns the strategy proportions.
func (c Config) Mix() (profit, generalist, specialist float64) {
	specialist = 1 - c.ProportionProfit - c.ProportionGeneralist
	if specialist < 0 {
		specialist = 0
	}
	return c.ProportionProfit, c.ProportionGeneralist, specialist
}

// Catalogue returns the configured product kinds.
func (c Config) Catalogue() economy.Catalogue {
	return economy.Catalogue(append([]string(nil), c.Products...))
}

// GenConfig returns the synthetic layout parameters for this run.
func (c Config) GenConfig() world.GenConfig {
	return world.GenConfig{
		Sites:      c.Locations,
		Seed:       c.Seed + entropy.Setup,
		Links:      c.Spatial.Links,
		Ruggedness: c.Spatial.Ruggedness,
	}
}

// document renders the config as the generic JSON value the schema checks.
func (c Config) document() (any, error) {
	y, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	var raw any
	if err := yaml.Unmarshal(y, &raw); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	j, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(j, &doc); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return doc, nil
}

func (c Config) names(loc string) bool {
	for _, s := range c.Spatial.Sites {
		if s == loc {
			return true
		}
	}
	for _, r := range c.Spatial.Routes {
		if r.From == loc || r.To == loc {
			return true
		}
	}
	return false
}
