// Package catalog holds the per-intervention constants used across the
// planner: ranking rules, recommended-scale drivers, simulator effectiveness
// factors and site cost/impact tables.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Resource drivers a scale or rule can be keyed on.
const (
	DriverBiomass = "biomass"
	DriverCO2     = "co2"
)

// Catalog is the read-only intervention table.
type Catalog struct {
	Version               int                     `yaml:"version"`
	FallbackType          string                  `yaml:"fallback_type"`
	DefaultRuleScore      float64                 `yaml:"default_rule_score"`
	ZoneImpactMultipliers map[string]float64      `yaml:"zone_impact_multipliers"`
	Interventions         map[string]Intervention `yaml:"interventions"`
}

// Intervention describes one intervention type.
type Intervention struct {
	Unit          string        `yaml:"unit"`
	Scale         ScaleRule     `yaml:"scale"`
	Rule          *RankingRule  `yaml:"rule"`
	Effectiveness Effectiveness `yaml:"effectiveness"`
	Site          SiteProfile   `yaml:"site"`
}

// ScaleRule derives a recommended deployment size from a resource driver. An
// empty driver means the base scale applies unchanged.
type ScaleRule struct {
	Driver  string  `yaml:"driver"`
	Divisor float64 `yaml:"divisor"`
}

// RankingRule is the untrained-mode score: Score when the driver exceeds
// Threshold, the catalog default otherwise.
type RankingRule struct {
	Driver    string  `yaml:"driver"`
	Threshold float64 `yaml:"threshold"`
	Score     float64 `yaml:"score"`
}

// Effectiveness converts a scale amount into base CO2 reduction and cooling rates.
type Effectiveness struct {
	CO2ReductionFactor float64 `yaml:"co2_reduction_factor"`
	TempCoolingFactor  float64 `yaml:"temp_cooling_factor"`
}

// SiteProfile is the per-site cost and impact model used by the optimizer.
type SiteProfile struct {
	BaseCost        float64            `yaml:"base_cost"`
	BaseImpact      float64            `yaml:"base_impact"`
	ZoneSuitability map[string]float64 `yaml:"zone_suitability"`
}

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Catalog {
	c, err := Parse(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("load catalog.yaml: %v", err))
	}
	return c
}

// LoadFile reads a catalog override from disk. An empty path returns the
// embedded catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Interventions) == 0 {
		return errors.New("catalog: no interventions defined")
	}
	if _, ok := c.Interventions[c.FallbackType]; !ok {
		return fmt.Errorf("catalog: fallback_type %q is not a defined intervention", c.FallbackType)
	}
	for name, iv := range c.Interventions {
		if iv.Effectiveness.CO2ReductionFactor < 0 || iv.Effectiveness.TempCoolingFactor < 0 {
			return fmt.Errorf("catalog: %s: effectiveness factors must be non-negative", name)
		}
		if iv.Site.BaseCost <= 0 {
			return fmt.Errorf("catalog: %s: site base_cost must be positive", name)
		}
		if iv.Scale.Driver != "" && iv.Scale.Divisor <= 0 {
			return fmt.Errorf("catalog: %s: scale divisor must be positive", name)
		}
		if err := checkDriver(name, iv.Scale.Driver); err != nil {
			return err
		}
		if iv.Rule != nil {
			if err := checkDriver(name, iv.Rule.Driver); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkDriver(name, driver string) error {
	switch driver {
	case "", DriverBiomass, DriverCO2:
		return nil
	default:
		return fmt.Errorf("catalog: %s: unknown driver %q", name, driver)
	}
}

// Lookup returns the intervention with the exact given name.
func (c *Catalog) Lookup(name string) (Intervention, bool) {
	iv, ok := c.Interventions[name]
	return iv, ok
}

// LookupOrFallback returns the named intervention, or the fallback type's entry
// and true when the name is not in the catalog.
func (c *Catalog) LookupOrFallback(name string) (iv Intervention, effective string, fallback bool) {
	if iv, ok := c.Interventions[name]; ok {
		return iv, name, false
	}
	return c.Interventions[c.FallbackType], c.FallbackType, true
}

// Types lists the catalogued intervention names in ascending order.
func (c *Catalog) Types() []string {
	names := make([]string, 0, len(c.Interventions))
	for name := range c.Interventions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ZoneImpact returns the climate-zone impact multiplier, 1.0 for zones not listed.
func (c *Catalog) ZoneImpact(zone string) float64 {
	if m, ok := c.ZoneImpactMultipliers[zone]; ok {
		return m
	}
	return 1.0
}

// ZoneSuitabilityFor returns the site suitability for a climate zone, 0.5 for zones
// not listed.
func (p SiteProfile) ZoneSuitabilityFor(zone string) float64 {
	if s, ok := p.ZoneSuitability[zone]; ok {
		return s
	}
	return 0.5
}
