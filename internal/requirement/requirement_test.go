package requirement

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/lumopack/lumobot/internal/models"
)

func TestAssembleDefaults(t *testing.T) {
	r := Assemble("sess_1", models.Requirements{})
	if r.ProductType != models.ProductGeneral || r.BoxType != models.BoxRSC {
		t.Errorf("unexpected type defaults: %+v", r)
	}
	if r.Dimensions != (models.Dimensions{Width: 10, Length: 10, Height: 10}) || r.Quantity != 500 {
		t.Errorf("unexpected size defaults: %+v", r)
	}
	if r.Material != models.MaterialCorrugated || r.FluteType != models.FluteC {
		t.Errorf("unexpected material/flute defaults: %+v", r)
	}
}

func TestDefaultMaterial(t *testing.T) {
	cases := []struct {
		box, product, want string
	}{
		{models.BoxRSC, models.ProductCosmetic, models.MaterialCorrugated},
		{models.BoxDieCut, models.ProductCosmetic, models.MaterialArt},
		{models.BoxDieCut, models.ProductFoodGrade, models.MaterialArt},
		{models.BoxDieCut, models.ProductGeneral, models.MaterialCorrugated},
	}
	for _, c := range cases {
		if got := DefaultMaterial(c.box, c.product); got != c.want {
			t.Errorf("DefaultMaterial(%s, %s) = %s, want %s", c.box, c.product, got, c.want)
		}
	}
}

func TestAssembleSplitsInnerAndEffects(t *testing.T) {
	c := models.Requirements{
		BoxType:  models.Ptr(models.BoxDieCut),
		Material: models.Ptr(models.MaterialArt),
		Inner: []models.InnerItem{
			{Type: "aq_coating", Category: models.CategoryMoisture},
			{Type: "air_bubble", Category: models.CategoryCushion},
			{Type: "shredded_paper", Category: models.CategoryCushion},
			{Type: "pla_bio", Category: models.CategoryFoodGrade},
		},
		SpecialEffects: []models.Effect{
			{Type: "uv_gloss", Category: models.CategoryGloss},
			{Type: "emboss", Category: models.CategoryStamping, HasBlock: models.Ptr(true)},
			{Type: "foil_regular", Category: models.CategoryStamping},
		},
		HasLogo:       models.Ptr(true),
		LogoPositions: []string{"top"},
	}
	r := Assemble("sess_1", c)
	if r.Inner == nil || *r.Inner != "air_bubble" {
		t.Errorf("expected first cushion as inner, got %v", r.Inner)
	}
	wantCoatings := []string{"aq_coating", "pla_bio", "uv_gloss"}
	if !reflect.DeepEqual(r.Coatings, wantCoatings) {
		t.Errorf("coatings = %v, want %v", r.Coatings, wantCoatings)
	}
	wantStampings := []models.StampingSpec{{Type: "emboss", HasBlock: true}, {Type: "foil_regular", HasBlock: false}}
	if !reflect.DeepEqual(r.Stampings, wantStampings) {
		t.Errorf("stampings = %v, want %v", r.Stampings, wantStampings)
	}
	if !reflect.DeepEqual(r.LogoPositions, []string{"top"}) {
		t.Errorf("logo positions = %v", r.LogoPositions)
	}
}

func TestPricingRequestProjectionIsDeterministic(t *testing.T) {
	c := models.Requirements{
		ProductType: models.Ptr(models.ProductCosmetic),
		BoxType:     models.Ptr(models.BoxDieCut),
		Dimensions:  &models.Dimensions{Width: 20, Length: 15, Height: 10},
		Quantity:    models.Ptr(1000),
		Inner:       []models.InnerItem{{Type: "air_bubble", Category: models.CategoryCushion}},
		SpecialEffects: []models.Effect{
			{Type: "aq_gloss", Category: models.CategoryGloss},
			{Type: "deboss", Category: models.CategoryStamping, HasBlock: models.Ptr(false)},
		},
	}
	first, err := json.Marshal(Assemble("sess_1", c).PricingRequest())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded models.PricingRequest
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second, _ := json.Marshal(decoded)
	if string(first) != string(second) {
		t.Errorf("projection did not round trip:\n%s\n%s", first, second)
	}
	again, _ := json.Marshal(Assemble("sess_1", c).PricingRequest())
	if string(first) != string(again) {
		t.Errorf("projection is not deterministic")
	}
}

func TestValidateDimensions(t *testing.T) {
	cases := []struct {
		d  models.Dimensions
		ok bool
	}{
		{models.Dimensions{Width: 20, Length: 15, Height: 10}, true},
		{models.Dimensions{Width: 4, Length: 15, Height: 10}, false},
		{models.Dimensions{Width: 201, Length: 15, Height: 10}, false},
		{models.Dimensions{Width: 5, Length: 150, Height: 10}, false},
		{models.Dimensions{Width: 5, Length: 100, Height: 10}, true},
	}
	for _, c := range cases {
		err := ValidateDimensions(c.d)
		if (err == nil) != c.ok {
			t.Errorf("ValidateDimensions(%+v) = %v, want ok=%v", c.d, err, c.ok)
		}
		if err != nil && !errors.Is(err, models.ErrValidationFailure) {
			t.Errorf("expected validation failure kind, got %v", err)
		}
	}
}

func TestValidateQuantity(t *testing.T) {
	if err := ValidateQuantity(499); err == nil {
		t.Errorf("expected error below minimum")
	}
	if err := ValidateQuantity(1_000_001); err == nil {
		t.Errorf("expected error above maximum")
	}
	if err := ValidateQuantity(500); err != nil {
		t.Errorf("unexpected error at minimum: %v", err)
	}
}

func TestValidateStructureAndDesign(t *testing.T) {
	r := ValidateStructure(models.Requirements{ProductType: models.Ptr("toys")})
	if r.Valid || len(r.Errors) != 4 {
		t.Errorf("expected four structure errors, got %+v", r)
	}
	if r.Err() == nil || !errors.Is(r.Err(), models.ErrValidationFailure) {
		t.Errorf("expected Err to return a validation failure")
	}

	d := ValidateDesign(models.Requirements{
		HasLogo:        models.Ptr(true),
		MoodTone:       models.Ptr("ก"),
		SpecialEffects: []models.Effect{{Type: "glitter", Category: models.CategoryGloss}},
	})
	if d.Valid || len(d.Errors) != 2 || len(d.Warnings) != 1 {
		t.Errorf("unexpected design report %+v", d)
	}
}

func TestSuggestions(t *testing.T) {
	r := Assemble("sess_1", models.Requirements{
		ProductType: models.Ptr(models.ProductCosmetic),
		Quantity:    models.Ptr(800),
	})
	got := ValidateComplete(r)
	if !got.Valid {
		t.Fatalf("expected valid requirement, got %+v", got.Errors)
	}
	if len(got.Suggestions) != 3 {
		t.Errorf("expected three suggestions, got %v", got.Suggestions)
	}
}
