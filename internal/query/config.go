package query

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IndicatorMeta describes one filterable indicator for the config
// endpoints: display label, category and the value range the UI
// should offer.
type IndicatorMeta struct {
	Name     string   `yaml:"name" json:"name"`
	Label    string   `yaml:"label" json:"label"`
	Category string   `yaml:"category" json:"category"`
	Min      *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Range is a half-open numeric filter bound. Nil means unbounded.
type Range struct {
	From *float64 `yaml:"from,omitempty" json:"from,omitempty"`
	To   *float64 `yaml:"to,omitempty" json:"to,omitempty"`
}

// Preset is a named bundle of filter ranges.
type Preset struct {
	Label  string           `yaml:"label" json:"label"`
	Ranges map[string]Range `yaml:"ranges" json:"ranges"`
}

// Catalog is the indicator metadata and preset configuration, loaded
// once at startup from a YAML file.
type Catalog struct {
	Indicators []IndicatorMeta   `yaml:"indicators"`
	Presets    map[string]Preset `yaml:"presets"`
}

// LoadCatalog reads and validates the catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	known := make(map[string]bool, len(c.Indicators))
	for _, m := range c.Indicators {
		if m.Name == "" {
			return nil, fmt.Errorf("catalog indicator with empty name")
		}
		if known[m.Name] {
			return nil, fmt.Errorf("duplicate catalog indicator %q", m.Name)
		}
		known[m.Name] = true
	}

	for name, p := range c.Presets {
		for ind := range p.Ranges {
			if !known[ind] {
				return nil, fmt.Errorf("preset %q filters unknown indicator %q", name, ind)
			}
		}
	}
	return &c, nil
}

// Preset returns a named preset's ranges.
func (c *Catalog) Preset(name string) (map[string]Range, bool) {
	p, ok := c.Presets[name]
	if !ok {
		return nil, false
	}
	return p.Ranges, true
}
