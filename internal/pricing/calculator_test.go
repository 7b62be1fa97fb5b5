package pricing

import (
	"errors"
	"strings"
	"testing"

	"github.com/lumopack/lumobot/internal/models"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator()
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return c
}

func TestEstimateReferenceBox(t *testing.T) {
	c := newTestCalculator(t)
	b, err := c.Estimate(models.PricingRequest{
		BoxType:    models.BoxRSC,
		Material:   models.MaterialCorrugated,
		Dimensions: models.Dimensions{Width: 10, Length: 10, Height: 10},
		Quantity:   1000,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if b.Box.PricePerBox != 3.38 {
		t.Errorf("expected 3.38 per box, got %v", b.Box.PricePerBox)
	}
	if b.Subtotal != 3378 {
		t.Errorf("expected subtotal 3378, got %v", b.Subtotal)
	}
	if b.VAT != 236.46 {
		t.Errorf("expected VAT 236.46, got %v", b.VAT)
	}
	if b.GrandTotal != 3614.46 {
		t.Errorf("expected grand total 3614.46, got %v", b.GrandTotal)
	}
}

func TestEstimateWithExtras(t *testing.T) {
	c := newTestCalculator(t)
	inner := "air_bubble"
	b, err := c.Estimate(models.PricingRequest{
		BoxType:    models.BoxDieCut,
		Material:   models.MaterialArt,
		Dimensions: models.Dimensions{Width: 10, Length: 10, Height: 10},
		Quantity:   1000,
		Inner:      &inner,
		Coatings:   []string{"aq_gloss"},
		Stampings:  []models.StampingSpec{{Type: "emboss", HasBlock: false}, {Type: "deboss", HasBlock: true}},
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if b.Inner == nil || b.Inner.PricePerBox != 15 {
		t.Errorf("expected inner at 15 per box, got %+v", b.Inner)
	}
	if len(b.Coatings) != 1 || b.Coatings[0].PricePerBox != 0.9 {
		t.Errorf("expected aq gloss at 0.9 per box, got %+v", b.Coatings)
	}
	if len(b.Stampings) != 2 {
		t.Fatalf("expected two stamping lines, got %+v", b.Stampings)
	}
	if b.Stampings[0].SetupCost != 1150 || b.Stampings[0].Total != 3150 {
		t.Errorf("unexpected emboss line %+v", b.Stampings[0])
	}
	if b.Stampings[1].SetupCost != 0 || b.Stampings[1].Total != 2000 {
		t.Errorf("expected block waived for existing deboss block, got %+v", b.Stampings[1])
	}
	want := b.Box.Total + b.Inner.Total + b.Coatings[0].Total + b.Stampings[0].Total + b.Stampings[1].Total
	if diff := b.Subtotal - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("subtotal %v does not match line sum %v", b.Subtotal, want)
	}
}

func TestEstimateAreaScaling(t *testing.T) {
	c := newTestCalculator(t)
	small, _ := c.Estimate(models.PricingRequest{BoxType: models.BoxRSC, Material: models.MaterialKraft, Dimensions: models.Dimensions{Width: 10, Length: 10, Height: 10}, Quantity: 500})
	large, _ := c.Estimate(models.PricingRequest{BoxType: models.BoxRSC, Material: models.MaterialKraft, Dimensions: models.Dimensions{Width: 20, Length: 20, Height: 20}, Quantity: 500})
	if large.AreaRatio != 4 {
		t.Errorf("expected area ratio 4, got %v", large.AreaRatio)
	}
	if large.Box.PricePerBox <= small.Box.PricePerBox {
		t.Errorf("expected larger box to cost more: %v vs %v", large.Box.PricePerBox, small.Box.PricePerBox)
	}
}

func TestEstimateUnknownKeys(t *testing.T) {
	c := newTestCalculator(t)
	base := models.PricingRequest{
		BoxType:    models.BoxRSC,
		Material:   models.MaterialCorrugated,
		Dimensions: models.Dimensions{Width: 10, Length: 10, Height: 10},
		Quantity:   500,
	}
	cases := map[string]func(r *models.PricingRequest){
		"box type": func(r *models.PricingRequest) { r.BoxType = "tube" },
		"material": func(r *models.PricingRequest) { r.Material = models.MaterialArt },
		"coating":  func(r *models.PricingRequest) { r.Coatings = []string{"glitter"} },
		"stamping": func(r *models.PricingRequest) { r.Stampings = []models.StampingSpec{{Type: "laser"}} },
		"inner": func(r *models.PricingRequest) {
			v := "aq_coating"
			r.Inner = &v
		},
		"quantity": func(r *models.PricingRequest) { r.Quantity = 0 },
	}
	for name, mutate := range cases {
		req := base
		mutate(&req)
		_, err := c.Estimate(req)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !errors.Is(err, models.ErrPricingComputation) {
			t.Errorf("%s: expected pricing computation error, got %v", name, err)
		}
	}
}

func TestLoadCatalogRejectsUnknownFields(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("vat_rate: 0.07\nstandard_area: 600\nsurprise: 1\n"))
	if err == nil {
		t.Fatalf("expected decode error for unknown field")
	}
}

func TestLoadCatalogRequiresFactors(t *testing.T) {
	doc := `
vat_rate: 0.07
standard_area: 600
materials:
  rsc:
    corrugated_2layer: {name: x, thickness_cm: 0.25, density: 0.6, cost_per_kg: 22, labor: 1}
`
	_, err := LoadCatalog(strings.NewReader(doc))
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("expected ErrInvalidCatalog, got %v", err)
	}
}

func TestDefaultCatalogCoversEffects(t *testing.T) {
	cat := DefaultCatalog()
	for _, code := range []string{"foil_regular", "foil_detailed", "foil_special", "foil_emboss", "emboss", "deboss"} {
		if _, ok := cat.Stampings[code]; !ok {
			t.Errorf("missing stamping %s", code)
		}
	}
	if _, ok := cat.Materials[models.BoxDieCut][models.MaterialWhiteboard]; !ok {
		t.Errorf("missing whiteboard material")
	}
}
