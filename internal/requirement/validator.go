package requirement

import (
	"errors"
	"fmt"
	"math"

	"github.com/lumopack/lumobot/internal/models"
)

// Limits on order size and box geometry.
const (
	MinQuantity     = 500
	MaxQuantity     = 1_000_000
	MinDimensionCM  = 5.0
	MaxDimensionCM  = 200.0
	MaxAspectRatio  = 20.0
	MinMoodToneRune = 2
	BulkQuantity    = 1000
)

var validProductTypes = map[string]bool{
	models.ProductGeneral:   true,
	models.ProductNonFood:   true,
	models.ProductFoodGrade: true,
	models.ProductCosmetic:  true,
}

var validBoxTypes = map[string]bool{
	models.BoxRSC:    true,
	models.BoxDieCut: true,
}

var validCoatings = map[string]bool{
	"uv_gloss": true, "uv_matte": true, "aq_gloss": true, "pvc_matte": true, "varnish_matte": true, "opp_gloss": true,
	"aq_coating": true, "pe_coating": true, "wax_coating": true, "bio_barrier": true,
	"water_based_food": true, "pe_food_grade": true, "pla_bio": true, "grease_resistant": true,
}

var validStampings = map[string]bool{
	"emboss": true, "deboss": true, "foil_regular": true, "foil_detailed": true, "foil_emboss": true, "foil_special": true,
}

// Issue is one validation finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Report collects validation findings. Valid is false when Errors is non-empty.
type Report struct {
	Valid       bool     `json:"valid"`
	Errors      []Issue  `json:"errors,omitempty"`
	Warnings    []Issue  `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (r *Report) fail(field, msg string) {
	r.Errors = append(r.Errors, Issue{Field: field, Message: msg})
}

func (r *Report) warn(field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: msg})
}

func (r *Report) finish() Report {
	r.Valid = len(r.Errors) == 0
	return *r
}

// Err returns the first error as a validation FlowError, or nil when valid.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	first := r.Errors[0]
	return models.NewFlowError(models.KindValidationFailure, first.Field, first.Message, nil)
}

// ValidateDimensions checks box geometry.
func ValidateDimensions(d models.Dimensions) error {
	sides := []float64{d.Width, d.Length, d.Height}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range sides {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	switch {
	case lo < MinDimensionCM:
		return models.NewFlowError(models.KindValidationFailure, models.FieldDimensions,
			fmt.Sprintf("ขนาดกล่องแต่ละด้านต้องไม่ต่ำกว่า %.0f ซม. ค่ะ", MinDimensionCM), nil)
	case hi > MaxDimensionCM:
		return models.NewFlowError(models.KindValidationFailure, models.FieldDimensions,
			fmt.Sprintf("ขนาดกล่องแต่ละด้านต้องไม่เกิน %.0f ซม. ค่ะ", MaxDimensionCM), nil)
	case hi/lo > MaxAspectRatio:
		return models.NewFlowError(models.KindValidationFailure, models.FieldDimensions,
			fmt.Sprintf("สัดส่วนกล่องไม่เหมาะสม ด้านที่ยาวที่สุดต้องไม่เกิน %.0f เท่าของด้านที่สั้นที่สุดค่ะ", MaxAspectRatio), nil)
	}
	return nil
}

// ValidateQuantity checks the production quantity.
func ValidateQuantity(q int) error {
	switch {
	case q < MinQuantity:
		return models.NewFlowError(models.KindValidationFailure, models.FieldQuantity,
			fmt.Sprintf("จำนวนขั้นต่ำคือ %d ชิ้นค่ะ", MinQuantity), nil)
	case q > MaxQuantity:
		return models.NewFlowError(models.KindValidationFailure, models.FieldQuantity,
			"จำนวนสูงสุดต่อคำสั่งซื้อคือ 1,000,000 ชิ้นค่ะ", nil)
	}
	return nil
}

func addFlowError(r *Report, err error) {
	if err == nil {
		return
	}
	var fe *models.FlowError
	if errors.As(err, &fe) {
		r.fail(fe.Field, fe.Message)
		return
	}
	r.fail("", err.Error())
}

// ValidateStructure checks the answers of the structure phase.
func ValidateStructure(c models.Requirements) Report {
	var r Report
	switch {
	case c.ProductType == nil:
		r.fail(models.FieldProductType, "ยังไม่ได้ระบุประเภทสินค้า")
	case !validProductTypes[*c.ProductType]:
		r.fail(models.FieldProductType, fmt.Sprintf("ไม่รู้จักประเภทสินค้า %q", *c.ProductType))
	}
	switch {
	case c.BoxType == nil:
		r.fail(models.FieldBoxType, "ยังไม่ได้ระบุประเภทกล่อง")
	case !validBoxTypes[*c.BoxType]:
		r.fail(models.FieldBoxType, fmt.Sprintf("ไม่รู้จักประเภทกล่อง %q", *c.BoxType))
	}
	if c.Dimensions == nil {
		r.fail(models.FieldDimensions, "ยังไม่ได้ระบุขนาดกล่อง")
	} else {
		addFlowError(&r, ValidateDimensions(*c.Dimensions))
	}
	if c.Quantity == nil {
		r.fail(models.FieldQuantity, "ยังไม่ได้ระบุจำนวน")
	} else {
		addFlowError(&r, ValidateQuantity(*c.Quantity))
	}
	return r.finish()
}

// ValidateDesign checks the answers of the design phase.
func ValidateDesign(c models.Requirements) Report {
	var r Report
	if c.HasLogo != nil && *c.HasLogo && len(c.LogoPositions) == 0 {
		r.fail(models.FieldLogoPositions, "มีโลโก้แต่ยังไม่ได้ระบุตำแหน่ง")
	}
	for _, e := range c.SpecialEffects {
		known := validCoatings[e.Type]
		if e.IsStamping() {
			known = validStampings[e.Type]
		}
		if !known {
			r.fail(models.FieldSpecialEffects, fmt.Sprintf("ไม่รู้จักลูกเล่น %q", e.Type))
		}
	}
	if c.MoodTone != nil && len([]rune(*c.MoodTone)) < MinMoodToneRune {
		r.warn(models.FieldMoodTone, "Mood & Tone สั้นเกินไป อาจตีความได้ยาก")
	}
	return r.finish()
}

// ValidateComplete checks an assembled requirement before pricing.
func ValidateComplete(c CompleteRequirement) Report {
	var r Report
	if !validProductTypes[c.ProductType] {
		r.fail(models.FieldProductType, fmt.Sprintf("ไม่รู้จักประเภทสินค้า %q", c.ProductType))
	}
	if !validBoxTypes[c.BoxType] {
		r.fail(models.FieldBoxType, fmt.Sprintf("ไม่รู้จักประเภทกล่อง %q", c.BoxType))
	}
	addFlowError(&r, ValidateDimensions(c.Dimensions))
	addFlowError(&r, ValidateQuantity(c.Quantity))
	if c.HasLogo && len(c.LogoPositions) == 0 {
		r.fail(models.FieldLogoPositions, "มีโลโก้แต่ยังไม่ได้ระบุตำแหน่ง")
	}
	for _, code := range c.Coatings {
		if !validCoatings[code] {
			r.fail(models.FieldSpecialEffects, fmt.Sprintf("ไม่รู้จักการเคลือบ %q", code))
		}
	}
	for _, s := range c.Stampings {
		if !validStampings[s.Type] {
			r.fail(models.FieldSpecialEffects, fmt.Sprintf("ไม่รู้จักการปั๊ม %q", s.Type))
		}
	}
	r.Suggestions = Suggestions(c)
	return r.finish()
}

// Suggestions returns non-blocking advice for an assembled requirement.
func Suggestions(c CompleteRequirement) []string {
	var out []string
	if c.Quantity >= MinQuantity && c.Quantity < BulkQuantity {
		out = append(out, "💡 สั่งจำนวน 1000+ จะได้ราคาดีกว่า")
	}
	if c.Inner == nil && (c.ProductType == models.ProductCosmetic || c.ProductType == models.ProductFoodGrade) {
		out = append(out, "💡 แนะนำเพิ่ม inner เพื่อป้องกันสินค้า")
	}
	if len(c.Coatings) == 0 && len(c.Stampings) == 0 {
		out = append(out, "💡 เพิ่มลูกเล่นพิเศษจะทำให้กล่องดูโดดเด่นขึ้น")
	}
	return out
}
