// Package pricing computes packaging quotes from a YAML rate catalog.
package pricing

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// MaterialRate is the paper cost model of one material.
type MaterialRate struct {
	Name        string  `yaml:"name"`
	GSM         float64 `yaml:"gsm"`
	ThicknessCM float64 `yaml:"thickness_cm"`
	Density     float64 `yaml:"density"`
	CostPerKg   float64 `yaml:"cost_per_kg"`
	Labor       float64 `yaml:"labor"`
}

// Thickness returns the sheet thickness in centimetres.
func (m MaterialRate) Thickness() float64 {
	if m.GSM > 0 && m.Density > 0 {
		return m.GSM / (m.Density * 10000)
	}
	return m.ThicknessCM
}

// InnerRates prices cushioning liners.
type InnerRates struct {
	BasePrice  float64           `yaml:"base_price"`
	AreaPrice  float64           `yaml:"area_price"`
	AreaWeight float64           `yaml:"area_weight"`
	Types      map[string]string `yaml:"types"`
}

// RangeRate is a per-box price range for a coating.
type RangeRate struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// StampingRate prices a stamping job: a one-off block and a per-box stamp.
type StampingRate struct {
	Name     string  `yaml:"name"`
	BlockMin float64 `yaml:"block_min"`
	BlockMax float64 `yaml:"block_max"`
	StampMin float64 `yaml:"stamp_min"`
	StampMax float64 `yaml:"stamp_max"`
}

// Catalog is the complete rate card.
type Catalog struct {
	VATRate           float64                            `yaml:"vat_rate"`
	StandardArea      float64                            `yaml:"standard_area"`
	ProductionFactors map[string]float64                 `yaml:"production_factors"`
	Materials         map[string]map[string]MaterialRate `yaml:"materials"`
	Inner             InnerRates                         `yaml:"inner"`
	Coatings          map[string]RangeRate               `yaml:"coatings"`
	Stampings         map[string]StampingRate            `yaml:"stampings"`
}

var ErrInvalidCatalog = errors.New("invalid pricing catalog")

// LoadCatalog decodes and checks a catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode pricing catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pricing catalog %s: %w", path, err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the embedded rate card.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded pricing catalog is invalid: %v", err))
	}
	return c
}

func (c *Catalog) validate() error {
	if c.StandardArea <= 0 {
		return fmt.Errorf("%w: standard_area must be positive", ErrInvalidCatalog)
	}
	if c.VATRate < 0 {
		return fmt.Errorf("%w: vat_rate must not be negative", ErrInvalidCatalog)
	}
	if len(c.Materials) == 0 {
		return fmt.Errorf("%w: no materials", ErrInvalidCatalog)
	}
	for boxType := range c.Materials {
		if c.ProductionFactors[boxType] <= 0 {
			return fmt.Errorf("%w: missing production factor for %s", ErrInvalidCatalog, boxType)
		}
	}
	for boxType, materials := range c.Materials {
		for key, m := range materials {
			if m.Thickness() <= 0 || m.Density <= 0 {
				return fmt.Errorf("%w: material %s/%s needs thickness and density", ErrInvalidCatalog, boxType, key)
			}
		}
	}
	return nil
}
