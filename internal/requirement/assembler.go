// Package requirement assembles interview answers into a complete order requirement,
// validates it, and projects it into a pricing request.
package requirement

import (
	"github.com/lumopack/lumobot/internal/models"
)

// Defaults applied when a field was never collected.
const (
	DefaultProductType = models.ProductGeneral
	DefaultBoxType     = models.BoxRSC
	DefaultQuantity    = 500
	DefaultFlute       = models.FluteC
	DefaultSide        = 10.0
)

// CompleteRequirement is the fully defaulted order specification.
type CompleteRequirement struct {
	SessionID       string                `json:"session_id"`
	ProductType     string                `json:"product_type"`
	BoxType         string                `json:"box_type"`
	Material        string                `json:"material"`
	Inner           *string               `json:"inner"`
	Dimensions      models.Dimensions     `json:"dimensions"`
	Quantity        int                   `json:"quantity"`
	WeightKg        *float64              `json:"weight_kg,omitempty"`
	FluteType       string                `json:"flute_type"`
	StrengthWarning bool                  `json:"strength_warning"`
	MoodTone        *string               `json:"mood_tone,omitempty"`
	HasLogo         bool                  `json:"has_logo"`
	LogoPositions   []string              `json:"logo_positions"`
	Coatings        []string              `json:"coatings"`
	Stampings       []models.StampingSpec `json:"stampings"`
}

// DefaultMaterial picks the material used when none was chosen.
func DefaultMaterial(boxType, productType string) string {
	if boxType == models.BoxDieCut && (productType == models.ProductFoodGrade || productType == models.ProductCosmetic) {
		return models.MaterialArt
	}
	return models.MaterialCorrugated
}

func isCoatingCategory(category string) bool {
	switch category {
	case models.CategoryGloss, models.CategoryMatte, models.CategoryMoisture, models.CategoryFoodGrade:
		return true
	}
	return false
}

// Assemble builds a CompleteRequirement from collected data, filling defaults.
// The first cushioning liner becomes the inner; liner coatings come before effect coatings.
func Assemble(sessionID string, c models.Requirements) CompleteRequirement {
	r := CompleteRequirement{
		SessionID:     sessionID,
		ProductType:   DefaultProductType,
		BoxType:       DefaultBoxType,
		Dimensions:    models.Dimensions{Width: DefaultSide, Length: DefaultSide, Height: DefaultSide},
		Quantity:      DefaultQuantity,
		FluteType:     DefaultFlute,
		LogoPositions: []string{},
		Coatings:      []string{},
		Stampings:     []models.StampingSpec{},
	}
	if c.ProductType != nil {
		r.ProductType = *c.ProductType
	}
	if c.BoxType != nil {
		r.BoxType = *c.BoxType
	}
	if c.Material != nil {
		r.Material = *c.Material
	} else {
		r.Material = DefaultMaterial(r.BoxType, r.ProductType)
	}
	if c.Dimensions != nil {
		r.Dimensions = *c.Dimensions
	}
	if c.Quantity != nil {
		r.Quantity = *c.Quantity
	}
	if c.WeightKg != nil {
		w := *c.WeightKg
		r.WeightKg = &w
	}
	if c.FluteType != nil {
		r.FluteType = *c.FluteType
	}
	if c.StrengthWarning != nil {
		r.StrengthWarning = *c.StrengthWarning
	}
	if c.MoodTone != nil {
		m := *c.MoodTone
		r.MoodTone = &m
	}
	if c.HasLogo != nil {
		r.HasLogo = *c.HasLogo
	}
	if r.HasLogo {
		r.LogoPositions = append(r.LogoPositions, c.LogoPositions...)
	}

	for _, item := range c.Inner {
		switch {
		case item.Category == models.CategoryCushion:
			if r.Inner == nil {
				t := item.Type
				r.Inner = &t
			}
		case isCoatingCategory(item.Category):
			r.Coatings = append(r.Coatings, item.Type)
		}
	}
	for _, e := range c.SpecialEffects {
		switch {
		case e.IsStamping():
			hasBlock := e.HasBlock != nil && *e.HasBlock
			r.Stampings = append(r.Stampings, models.StampingSpec{Type: e.Type, HasBlock: hasBlock})
		case isCoatingCategory(e.Category):
			r.Coatings = append(r.Coatings, e.Type)
		}
	}
	return r
}

// PricingRequest projects the requirement into the calculator input.
func (r CompleteRequirement) PricingRequest() models.PricingRequest {
	req := models.PricingRequest{
		BoxType:    r.BoxType,
		Material:   r.Material,
		Dimensions: r.Dimensions,
		Quantity:   r.Quantity,
		Coatings:   append([]string{}, r.Coatings...),
		Stampings:  append([]models.StampingSpec{}, r.Stampings...),
	}
	if r.Inner != nil {
		inner := *r.Inner
		req.Inner = &inner
	}
	return req
}
