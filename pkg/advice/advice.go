package advice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid advice catalog")

// Fallback texts returned when a lookup misses.
const (
	UnknownTreatment   = "No treatment info available"
	UnknownDescription = "No description available."
	DefaultFertilizer  = "Use balanced NPK fertilizer."
)

// Treatment is one ordered catalog entry.
type Treatment struct {
	Disease string   `yaml:"disease"`
	Steps   []string `yaml:"steps"`
}

type document struct {
	Treatments   []Treatment       `yaml:"treatments"`
	Descriptions map[string]string `yaml:"descriptions"`
	Fertilizers  map[string]string `yaml:"fertilizers"`
}

// Catalog is a read-only advice table. Lookups use exact matching on the
// normalized key (lower case, collapsed whitespace) everywhere, so the page
// and the PDF report always agree.
type Catalog struct {
	order        []Treatment
	treatments   map[string][]string
	descriptions map[string]string
	fertilizers  map[string]string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("advice: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML catalog document.
func Parse(b []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Treatments) == 0 {
		return nil, fmt.Errorf("%w: no treatments", ErrInvalidCatalog)
	}
	c := &Catalog{
		treatments:   make(map[string][]string, len(doc.Treatments)),
		descriptions: make(map[string]string, len(doc.Descriptions)),
		fertilizers:  make(map[string]string, len(doc.Fertilizers)),
	}
	for i, t := range doc.Treatments {
		key := Normalize(t.Disease)
		if key == "" {
			return nil, fmt.Errorf("%w: treatment %d has no disease", ErrInvalidCatalog, i)
		}
		if len(t.Steps) == 0 {
			return nil, fmt.Errorf("%w: %q has no steps", ErrInvalidCatalog, t.Disease)
		}
		if _, dup := c.treatments[key]; dup {
			return nil, fmt.Errorf("%w: duplicate disease %q", ErrInvalidCatalog, t.Disease)
		}
		c.treatments[key] = t.Steps
		c.order = append(c.order, t)
	}
	for k, v := range doc.Descriptions {
		c.descriptions[Normalize(k)] = v
	}
	for k, v := range doc.Fertilizers {
		c.fertilizers[Normalize(k)] = v
	}
	return c, nil
}

// Normalize lower-cases s and collapses runs of whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Treatments returns the treatment steps for disease. A miss returns the
// single-item unknown list and false.
func (c *Catalog) Treatments(disease string) ([]string, bool) {
	steps, ok := c.treatments[Normalize(disease)]
	if !ok {
		return []string{UnknownTreatment}, false
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out, true
}

// Description returns the one-line description of disease.
func (c *Catalog) Description(disease string) string {
	if d, ok := c.descriptions[Normalize(disease)]; ok {
		return d
	}
	return UnknownDescription
}

// Fertilizer returns the recommendation for plant, or DefaultFertilizer.
func (c *Catalog) Fertilizer(plant string) string {
	if f, ok := c.fertilizers[Normalize(plant)]; ok {
		return f
	}
	return DefaultFertilizer
}

// Entries lists the treatment entries in catalog order.
func (c *Catalog) Entries() []Treatment {
	out := make([]Treatment, len(c.order))
	copy(out, c.order)
	return out
}
