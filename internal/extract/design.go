package extract

import (
	"sort"
	"strings"

	"github.com/lumopack/lumobot/internal/models"
)

// HasLogo recognizes whether the customer has a logo. A skip counts as no logo.
func HasLogo(text string) (bool, bool) {
	if IsSkip(text) {
		return false, true
	}
	t := Normalize(text)
	if containsAny(t, "ไม่มี", "ไม่ต้อง", "ไม่เอา", "ไม่ใช้") || containsWord(t, "no") {
		return false, true
	}
	if containsAny(t, "มี", "ใช่", "ต้องการ", "อยาก", "logo") || containsWord(t, "yes") {
		return true, true
	}
	return false, false
}

// Logo position codes.
const (
	LogoTop            = "top"
	LogoBottom         = "bottom"
	LogoTopBottom      = "top_bottom"
	LogoWidthOne       = "width_one"
	LogoWidthBoth      = "width_both"
	LogoLengthOne      = "length_one"
	LogoLengthBoth     = "length_both"
	LogoWidthAndLength = "width_and_length"
	LogoAllSides       = "all_sides"
)

type logoKeyword struct {
	phrase string
	code   string
}

var logoPositionKeywords = []logoKeyword{
	{"ทุกด้าน", LogoAllSides},
	{"all sides", LogoAllSides},
	{"ด้านบนและล่าง", LogoTopBottom},
	{"บนและล่าง", LogoTopBottom},
	{"top and bottom", LogoTopBottom},
	{"ด้านบน", LogoTop},
	{"top", LogoTop},
	{"ด้านล่าง", LogoBottom},
	{"bottom", LogoBottom},
	{"ด้านกว้าง 2 ด้าน", LogoWidthBoth},
	{"กว้าง 2 ด้าน", LogoWidthBoth},
	{"ด้านกว้าง 1 ด้าน", LogoWidthOne},
	{"กว้าง 1 ด้าน", LogoWidthOne},
	{"ด้านกว้าง", LogoWidthOne},
	{"ด้านยาว 2 ด้าน", LogoLengthBoth},
	{"ยาว 2 ด้าน", LogoLengthBoth},
	{"ด้านยาว 1 ด้าน", LogoLengthOne},
	{"ยาว 1 ด้าน", LogoLengthOne},
	{"ด้านยาว", LogoLengthOne},
	{"ด้านกว้างและยาว", LogoWidthAndLength},
	{"กว้างและยาว", LogoWidthAndLength},
}

// logoKeysByLength holds the phrases longest first so compound phrases win.
var logoKeysByLength = func() []logoKeyword {
	keys := append([]logoKeyword(nil), logoPositionKeywords...)
	sort.SliceStable(keys, func(i, j int) bool {
		return len(keys[i].phrase) > len(keys[j].phrase)
	})
	return keys
}()

// LogoPositions recognizes logo placements. Each matched phrase is consumed so a
// compound phrase does not also yield its parts.
func LogoPositions(text string) ([]string, bool) {
	t := Normalize(text)
	seen := map[string]bool{}
	var positions []string
	for _, kw := range logoKeysByLength {
		if !strings.Contains(t, kw.phrase) {
			continue
		}
		t = strings.ReplaceAll(t, kw.phrase, " | ")
		code := kw.code
		if seen[code] {
			continue
		}
		seen[code] = true
		positions = append(positions, code)
	}
	return positions, len(positions) > 0
}

// Effect codes.
const (
	EffectAQGloss      = "aq_gloss"
	EffectUVGloss      = "uv_gloss"
	EffectOPPGloss     = "opp_gloss"
	EffectUVMatte      = "uv_matte"
	EffectPVCMatte     = "pvc_matte"
	EffectVarnishMatte = "varnish_matte"
	EffectEmboss       = "emboss"
	EffectDeboss       = "deboss"
	EffectFoilRegular  = "foil_regular"
	EffectFoilDetailed = "foil_detailed"
	EffectFoilEmboss   = "foil_emboss"
	EffectFoilSpecial  = "foil_special"
)

func glossEffect(t string) string {
	switch {
	case containsWord(t, "opp"):
		return EffectOPPGloss
	case containsAny(t, "uv gloss", "uv เงา", "uvเงา"):
		return EffectUVGloss
	case containsWord(t, "aq") && containsAny(t, "เงา", "gloss"):
		return EffectAQGloss
	case containsAny(t, "เคลือบเงา", "gloss"):
		return EffectAQGloss
	}
	return ""
}

func matteEffect(t string) string {
	switch {
	case containsAny(t, "วานิช", "varnish"):
		return EffectVarnishMatte
	case containsAny(t, "ลามิเนต", "laminate") || containsWord(t, "pvc"):
		return EffectPVCMatte
	case containsAny(t, "uv ด้าน", "uvด้าน", "uv matte"):
		return EffectUVMatte
	case containsAny(t, "เคลือบด้าน", "matte"):
		return EffectUVMatte
	}
	return ""
}

func foilEffect(t string) string {
	if !containsAny(t, "ฟอยล์", "foil") {
		return ""
	}
	switch {
	case containsAny(t, "นูน", "emboss"):
		return EffectFoilEmboss
	case containsAny(t, "โฮโลแกรม", "hologram", "rainbow", "เรนโบว์", "ลายพิเศษ"):
		return EffectFoilSpecial
	case containsAny(t, "ละเอียด", "ลายใหญ่", "detailed"):
		return EffectFoilDetailed
	}
	return EffectFoilRegular
}

// SpecialEffects recognizes surface finishes and stamping. At most one gloss and one
// matte finish are returned; stamping entries have no block answer yet. A skip phrase
// only counts when no effect is named, so "ปั๊มฟอยล์ ไม่มีบล็อก" is not a skip.
func SpecialEffects(text string) ([]models.Effect, Status) {
	t := Normalize(text)
	var effects []models.Effect
	if code := glossEffect(t); code != "" {
		effects = append(effects, models.Effect{Type: code, Category: models.CategoryGloss})
	}
	if code := matteEffect(t); code != "" {
		effects = append(effects, models.Effect{Type: code, Category: models.CategoryMatte})
	}
	foil := foilEffect(t)
	if foil == "" && containsAny(t, "ปั๊มนูน", "emboss", "นูน") && !containsAny(t, "deboss") {
		effects = append(effects, models.Effect{Type: EffectEmboss, Category: models.CategoryStamping})
	}
	if containsAny(t, "ปั๊มจม", "deboss", "จม") {
		effects = append(effects, models.Effect{Type: EffectDeboss, Category: models.CategoryStamping})
	}
	if foil != "" {
		effects = append(effects, models.Effect{Type: foil, Category: models.CategoryStamping})
	}
	if len(effects) == 0 {
		if IsSkip(text) {
			return nil, Skipped
		}
		return nil, Miss
	}
	return effects, Matched
}

// HasStamping reports whether any effect needs a stamping block.
func HasStamping(effects []models.Effect) bool {
	for _, e := range effects {
		if e.IsStamping() {
			return true
		}
	}
	return false
}

// HasExistingBlock recognizes whether a stamping block was made before.
func HasExistingBlock(text string) (bool, bool) {
	t := Normalize(text)
	if containsAny(t, "ไม่เคย", "ไม่มี", "ยังไม่", "ครั้งแรก", "first time") || containsWord(t, "no") {
		return false, true
	}
	if containsAny(t, "เคย", "มี", "ใช่") || containsWord(t, "yes") {
		return true, true
	}
	return false, false
}
