package models

// Product types.
const (
	ProductGeneral   = "general"
	ProductNonFood   = "non_food"
	ProductFoodGrade = "food_grade"
	ProductCosmetic  = "cosmetic"
)

// Box types.
const (
	BoxRSC    = "rsc"
	BoxDieCut = "die_cut"
)

// Materials.
const (
	MaterialCorrugated = "corrugated_2layer"
	MaterialKraft      = "kraft_200gsm"
	MaterialCardboard  = "cardboard"
	MaterialArt        = "art_300gsm"
	MaterialWhiteboard = "whiteboard_350gsm"
)

// Inner and effect categories.
const (
	CategoryCushion   = "cushion"
	CategoryMoisture  = "moisture"
	CategoryFoodGrade = "food_grade"
	CategoryGloss     = "gloss"
	CategoryMatte     = "matte"
	CategoryStamping  = "stamping"
)

// Flute types.
const (
	FluteA  = "A"
	FluteB  = "B"
	FluteC  = "C"
	FluteE  = "E"
	FluteBC = "BC"
)

// Dimensions of a box in centimetres.
type Dimensions struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Height float64 `json:"height"`
}

// InnerItem is one cushioning or coating choice made at the inner step.
type InnerItem struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

// Effect is a surface finish or stamping choice. HasBlock is only meaningful for stamping.
type Effect struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	HasBlock *bool  `json:"has_block,omitempty"`
}

// IsStamping reports whether the effect needs a stamping block.
func (e Effect) IsStamping() bool {
	return e.Category == CategoryStamping
}

// Requirements holds typed interview answers. A nil field is unset.
// The same type is used for committed data, staged partial data and update patches.
type Requirements struct {
	ProductType     *string     `json:"product_type,omitempty"`
	BoxType         *string     `json:"box_type,omitempty"`
	Material        *string     `json:"material,omitempty"`
	Inner           []InnerItem `json:"inner,omitempty"`
	Dimensions      *Dimensions `json:"dimensions,omitempty"`
	Quantity        *int        `json:"quantity,omitempty"`
	WeightKg        *float64    `json:"weight_kg,omitempty"`
	FluteType       *string     `json:"flute_type,omitempty"`
	StrengthWarning *bool       `json:"strength_warning,omitempty"`
	MoodTone        *string     `json:"mood_tone,omitempty"`
	HasLogo         *bool       `json:"has_logo,omitempty"`
	LogoPositions   []string    `json:"logo_positions,omitempty"`
	SpecialEffects  []Effect    `json:"special_effects,omitempty"`
}

// Merge applies every set field of patch. List fields are concatenated when action is
// EditAppend and replaced otherwise; scalar fields are always overwritten.
func (r *Requirements) Merge(patch Requirements, action EditAction) {
	appendLists := action == EditAppend
	if patch.ProductType != nil {
		r.ProductType = patch.ProductType
	}
	if patch.BoxType != nil {
		r.BoxType = patch.BoxType
	}
	if patch.Material != nil {
		r.Material = patch.Material
	}
	if patch.Inner != nil {
		if appendLists {
			r.Inner = append(append([]InnerItem{}, r.Inner...), patch.Inner...)
		} else {
			r.Inner = append([]InnerItem{}, patch.Inner...)
		}
	}
	if patch.Dimensions != nil {
		d := *patch.Dimensions
		r.Dimensions = &d
	}
	if patch.Quantity != nil {
		r.Quantity = patch.Quantity
	}
	if patch.WeightKg != nil {
		r.WeightKg = patch.WeightKg
	}
	if patch.FluteType != nil {
		r.FluteType = patch.FluteType
	}
	if patch.StrengthWarning != nil {
		r.StrengthWarning = patch.StrengthWarning
	}
	if patch.MoodTone != nil {
		r.MoodTone = patch.MoodTone
	}
	if patch.HasLogo != nil {
		r.HasLogo = patch.HasLogo
	}
	if patch.LogoPositions != nil {
		if appendLists {
			r.LogoPositions = append(append([]string{}, r.LogoPositions...), patch.LogoPositions...)
		} else {
			r.LogoPositions = append([]string{}, patch.LogoPositions...)
		}
	}
	if patch.SpecialEffects != nil {
		if appendLists {
			r.SpecialEffects = append(append([]Effect{}, r.SpecialEffects...), patch.SpecialEffects...)
		} else {
			r.SpecialEffects = append([]Effect{}, patch.SpecialEffects...)
		}
	}
}

// SetFields returns the names of the set fields in declaration order.
func (r Requirements) SetFields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(r.ProductType != nil, FieldProductType)
	add(r.BoxType != nil, FieldBoxType)
	add(r.Material != nil, FieldMaterial)
	add(r.Inner != nil, FieldInner)
	add(r.Dimensions != nil, FieldDimensions)
	add(r.Quantity != nil, FieldQuantity)
	add(r.WeightKg != nil, FieldWeightKg)
	add(r.FluteType != nil, FieldFluteType)
	add(r.StrengthWarning != nil, FieldStrengthWarning)
	add(r.MoodTone != nil, FieldMoodTone)
	add(r.HasLogo != nil, FieldHasLogo)
	add(r.LogoPositions != nil, FieldLogoPositions)
	add(r.SpecialEffects != nil, FieldSpecialEffects)
	return fields
}

// IsEmpty reports whether no field is set.
func (r Requirements) IsEmpty() bool {
	return len(r.SetFields()) == 0
}

// Has reports whether the named field is set.
func (r Requirements) Has(field string) bool {
	for _, f := range r.SetFields() {
		if f == field {
			return true
		}
	}
	return false
}

// StringValue returns *p or "" when p is nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
