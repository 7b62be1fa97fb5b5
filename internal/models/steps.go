package models

import "fmt"

// Step identifies one of the fourteen interview stations.
type Step int

const (
	StepGreeting Step = iota + 1
	StepProductType
	StepBoxType
	StepInner
	StepDimensions
	StepCheckpoint1
	StepMoodTone
	StepLogo
	StepSpecialEffects
	StepCheckpoint2
	StepGenerateMockup
	StepGenerateQuote
	StepConfirmOrder
	StepEnd
)

// FirstStep and LastStep bound the valid step range.
const (
	FirstStep = StepGreeting
	LastStep  = StepEnd
)

var stepNames = map[Step]string{
	StepGreeting:       "GREETING",
	StepProductType:    "PRODUCT_TYPE",
	StepBoxType:        "BOX_TYPE",
	StepInner:          "INNER",
	StepDimensions:     "DIMENSIONS",
	StepCheckpoint1:    "CHECKPOINT_1",
	StepMoodTone:       "MOOD_TONE",
	StepLogo:           "LOGO",
	StepSpecialEffects: "SPECIAL_EFFECTS",
	StepCheckpoint2:    "CHECKPOINT_2",
	StepGenerateMockup: "GENERATE_MOCKUP",
	StepGenerateQuote:  "GENERATE_QUOTE",
	StepConfirmOrder:   "CONFIRM_ORDER",
	StepEnd:            "END",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// Valid reports whether s is inside the step range.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// IsCheckpoint reports whether s is one of the two review checkpoints.
func (s Step) IsCheckpoint() bool {
	return s == StepCheckpoint1 || s == StepCheckpoint2
}

// Phase groups steps by the handler family that serves them.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseStructure
	PhaseDesign
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseStructure:
		return "structure"
	case PhaseDesign:
		return "design"
	case PhaseFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Phase returns the handler family for s.
func (s Step) Phase() Phase {
	switch {
	case s >= StepGreeting && s <= StepCheckpoint1:
		return PhaseStructure
	case s >= StepMoodTone && s <= StepCheckpoint2:
		return PhaseDesign
	case s >= StepGenerateMockup && s <= StepEnd:
		return PhaseFinalize
	default:
		return PhaseUnknown
	}
}

// SubStep is the position inside a multi-part step. Its meaning depends on the step,
// so the named constants below are scoped to the step that uses them.
type SubStep int

const (
	// SubStepStart is the entry position of every step.
	SubStepStart SubStep = 0

	// SubStepBoxMaterial follows the box-type choice at StepBoxType.
	SubStepBoxMaterial SubStep = 1

	// SubStepLogoPositions follows a yes answer at StepLogo.
	SubStepLogoPositions SubStep = 1

	// SubStepEffectsBlock asks about existing stamping blocks at StepSpecialEffects.
	SubStepEffectsBlock SubStep = 1
)

// DefaultNextStep is the forward transition table. The last step maps to itself.
var DefaultNextStep = map[Step]Step{
	StepGreeting:       StepProductType,
	StepProductType:    StepBoxType,
	StepBoxType:        StepInner,
	StepInner:          StepDimensions,
	StepDimensions:     StepCheckpoint1,
	StepCheckpoint1:    StepMoodTone,
	StepMoodTone:       StepLogo,
	StepLogo:           StepSpecialEffects,
	StepSpecialEffects: StepCheckpoint2,
	StepCheckpoint2:    StepGenerateMockup,
	StepGenerateMockup: StepGenerateQuote,
	StepGenerateQuote:  StepConfirmOrder,
	StepConfirmOrder:   StepEnd,
	StepEnd:            StepEnd,
}

// OptionalSteps lists the steps a customer may skip.
var OptionalSteps = map[Step]bool{
	StepInner:          true,
	StepMoodTone:       true,
	StepLogo:           true,
	StepSpecialEffects: true,
}

// Collected field names.
const (
	FieldProductType     = "product_type"
	FieldBoxType         = "box_type"
	FieldMaterial        = "material"
	FieldInner           = "inner"
	FieldDimensions      = "dimensions"
	FieldQuantity        = "quantity"
	FieldWeightKg        = "weight_kg"
	FieldFluteType       = "flute_type"
	FieldStrengthWarning = "strength_warning"
	FieldMoodTone        = "mood_tone"
	FieldHasLogo         = "has_logo"
	FieldLogoPositions   = "logo_positions"
	FieldSpecialEffects  = "special_effects"
)

// StepFields maps each data-collecting step to the fields it owns.
var StepFields = map[Step][]string{
	StepProductType:    {FieldProductType},
	StepBoxType:        {FieldBoxType, FieldMaterial},
	StepInner:          {FieldInner},
	StepDimensions:     {FieldDimensions, FieldQuantity, FieldWeightKg, FieldFluteType},
	StepMoodTone:       {FieldMoodTone},
	StepLogo:           {FieldHasLogo, FieldLogoPositions},
	StepSpecialEffects: {FieldSpecialEffects},
}

// FieldOwner returns the step that collects field.
func FieldOwner(field string) (Step, bool) {
	for step := FirstStep; step <= LastStep; step++ {
		for _, f := range StepFields[step] {
			if f == field {
				return step, true
			}
		}
	}
	return 0, false
}

// EditKeywordRule maps a set of revision keywords to the step that owns them.
type EditKeywordRule struct {
	Step     Step
	Keywords []string
}

// EditKeywords is evaluated in order; the first rule with a matching keyword wins.
// Keywords are lower case and in normalized Thai mark order.
var EditKeywords = []EditKeywordRule{
	{Step: StepProductType, Keywords: []string{"ประเภทสินค้า", "product type", "สินค้า"}},
	{Step: StepBoxType, Keywords: []string{"ประเภทกล่อง", "box type", "กล่อง", "วัสดุ", "material"}},
	{Step: StepInner, Keywords: []string{"inner", "กันกระแทก", "เคลือบกันชื้น"}},
	{Step: StepDimensions, Keywords: []string{"ขนาด", "dimension", "จำนวน", "quantity", "ชิ้น", "น้ำหนัก", "weight", "ลอน", "flute"}},
	{Step: StepMoodTone, Keywords: []string{"mood", "tone", "สไตล์", "โทนสี"}},
	{Step: StepLogo, Keywords: []string{"logo", "โลโก้", "ตำแหน่ง"}},
	{Step: StepSpecialEffects, Keywords: []string{"ลูกเล่น", "เคลือบ", "ปั๊ม", "ฟอยล์", "special"}},
}
