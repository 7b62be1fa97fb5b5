package pricing

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/lumopack/lumobot/internal/models"
)

// Opts holds configuration for the calculator.
type Opts struct {
	Catalog     *Catalog
	CatalogFile string
}

// Option configures the calculator.
type Option func(*Opts)

// WithCatalog uses an already loaded catalog.
func WithCatalog(c *Catalog) Option {
	return func(o *Opts) { o.Catalog = c }
}

// WithCatalogFile loads the catalog from a YAML file instead of the embedded one.
func WithCatalogFile(path string) Option {
	return func(o *Opts) { o.CatalogFile = path }
}

// Calculator prices pricing requests against a catalog.
type Calculator struct {
	catalog *Catalog
}

// NewCalculator builds a calculator. Without options it uses the embedded catalog.
func NewCalculator(opts ...Option) (*Calculator, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.Catalog != nil:
		if err := cfg.Catalog.validate(); err != nil {
			return nil, err
		}
		return &Calculator{catalog: cfg.Catalog}, nil
	case cfg.CatalogFile != "":
		c, err := LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		slog.Debug("Calculator.New: loaded catalog file", "path", cfg.CatalogFile)
		return &Calculator{catalog: c}, nil
	default:
		return &Calculator{catalog: DefaultCatalog()}, nil
	}
}

// Catalog returns the rate card in use.
func (c *Calculator) Catalog() *Catalog {
	return c.catalog
}

func pricingError(field, format string, args ...interface{}) error {
	return models.NewFlowError(models.KindPricingComputation, field, fmt.Sprintf(format, args...), nil)
}

// SurfaceArea returns the outer surface of a box in square centimetres.
func SurfaceArea(d models.Dimensions) float64 {
	return 2 * (d.Width*d.Length + d.Width*d.Height + d.Length*d.Height)
}

// Estimate prices req. Unknown catalog keys return a pricing computation error.
func (c *Calculator) Estimate(req models.PricingRequest) (models.Breakdown, error) {
	if req.Quantity <= 0 {
		return models.Breakdown{}, pricingError(models.FieldQuantity, "quantity must be positive, got %d", req.Quantity)
	}
	d := req.Dimensions
	if d.Width <= 0 || d.Length <= 0 || d.Height <= 0 {
		return models.Breakdown{}, pricingError(models.FieldDimensions, "dimensions must be positive")
	}
	materials, ok := c.catalog.Materials[req.BoxType]
	if !ok {
		return models.Breakdown{}, pricingError(models.FieldBoxType, "unknown box type %q", req.BoxType)
	}
	material, ok := materials[req.Material]
	if !ok {
		return models.Breakdown{}, pricingError(models.FieldMaterial, "material %q is not offered for %s", req.Material, req.BoxType)
	}

	qty := float64(req.Quantity)
	area := SurfaceArea(d)
	ratio := area / c.catalog.StandardArea

	// Reference box cost at the standard area, scaled by the area ratio.
	refArea := c.catalog.StandardArea * c.catalog.ProductionFactors[req.BoxType]
	weightKg := refArea * material.Thickness() * material.Density / 1000
	baseCost := weightKg*material.CostPerKg + material.Labor
	boxPerUnit := baseCost * ratio

	out := models.Breakdown{
		Quantity:    req.Quantity,
		SurfaceArea: round2(area),
		AreaRatio:   round4(ratio),
		VATRate:     c.catalog.VATRate,
		Box: models.LineItem{
			Code:        req.Material,
			Name:        material.Name,
			PricePerBox: round2(boxPerUnit),
			Total:       round2(boxPerUnit * qty),
		},
	}
	subtotal := out.Box.Total

	if req.Inner != nil {
		name, ok := c.catalog.Inner.Types[*req.Inner]
		if !ok {
			return models.Breakdown{}, pricingError(models.FieldInner, "unknown inner %q", *req.Inner)
		}
		in := c.catalog.Inner
		perUnit := in.BasePrice + in.AreaPrice*ratio*in.AreaWeight
		item := models.LineItem{Code: *req.Inner, Name: name, PricePerBox: round2(perUnit), Total: round2(perUnit * qty)}
		out.Inner = &item
		subtotal += item.Total
	}

	for _, code := range req.Coatings {
		rate, ok := c.catalog.Coatings[code]
		if !ok {
			return models.Breakdown{}, pricingError("coatings", "unknown coating %q", code)
		}
		perUnit := (rate.Min + rate.Max) / 2 * ratio
		item := models.LineItem{Code: code, Name: rate.Name, PricePerBox: round2(perUnit), Total: round2(perUnit * qty)}
		out.Coatings = append(out.Coatings, item)
		subtotal += item.Total
	}

	for _, s := range req.Stampings {
		rate, ok := c.catalog.Stampings[s.Type]
		if !ok {
			return models.Breakdown{}, pricingError("stampings", "unknown stamping %q", s.Type)
		}
		setup := 0.0
		if !s.HasBlock {
			setup = (rate.BlockMin + rate.BlockMax) / 2
		}
		perUnit := (rate.StampMin + rate.StampMax) / 2
		item := models.LineItem{
			Code:        s.Type,
			Name:        rate.Name,
			PricePerBox: round2(perUnit),
			SetupCost:   round2(setup),
			Total:       round2(setup + perUnit*qty),
		}
		out.Stampings = append(out.Stampings, item)
		subtotal += item.Total
	}

	out.Subtotal = round2(subtotal)
	out.VAT = round2(out.Subtotal * c.catalog.VATRate)
	out.GrandTotal = round2(out.Subtotal + out.VAT)
	out.PerBox = round2(out.GrandTotal / qty)
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
