// Package analysis estimates corrugated box compression strength with the McKee formula.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lumopack/lumobot/internal/models"
)

// Status is the verdict of a strength analysis.
type Status string

const (
	StatusSafe   Status = "SAFE"
	StatusDanger Status = "DANGER"
)

// FluteSpec describes a flute profile. ECT is the edge crush test value in kN/m and
// Caliper the board thickness in millimetres.
type FluteSpec struct {
	Code    string  `json:"code"`
	ECT     float64 `json:"ect"`
	Caliper float64 `json:"caliper_mm"`
	Name    string  `json:"name"`
}

// Flutes is the flute table ordered from weakest to strongest ECT.
var Flutes = []FluteSpec{
	{Code: models.FluteE, ECT: 3.8, Caliper: 1.5, Name: "ลอน E (จิ๋ว)"},
	{Code: models.FluteB, ECT: 5.2, Caliper: 2.5, Name: "ลอน B (บาง)"},
	{Code: models.FluteC, ECT: 5.6, Caliper: 3.6, Name: "ลอน C (มาตรฐาน)"},
	{Code: models.FluteA, ECT: 6.0, Caliper: 4.5, Name: "ลอน A (หนาสุด)"},
	{Code: models.FluteBC, ECT: 10.8, Caliper: 6.1, Name: "ลอน BC (2 ชั้น)"},
}

const (
	// DefaultFlute is used when no flute is given or the code is unknown.
	DefaultFlute = models.FluteC
	// StackingSafetyDivisor converts box compression into a safe stacking load.
	StackingSafetyDivisor = 3.0
	// RecommendedSafetyFactor is the factor alternatives must reach.
	RecommendedSafetyFactor = 1.5
	// noWeightSafetyFactor is reported when no product weight is given.
	noWeightSafetyFactor = 999.0

	kNPerMToLbfPerIn = 5.71015
	lbfToKgf         = 0.453592
	mmPerInch        = 25.4
)

// LookupFlute returns the spec for code, falling back to DefaultFlute.
func LookupFlute(code string) FluteSpec {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, f := range Flutes {
		if f.Code == code {
			return f
		}
	}
	for _, f := range Flutes {
		if f.Code == DefaultFlute {
			return f
		}
	}
	return Flutes[0]
}

// Report is the result of a strength analysis.
type Report struct {
	Flute          FluteSpec `json:"flute"`
	PerimeterMM    float64   `json:"perimeter_mm"`
	BCTKgf         float64   `json:"bct_kgf"`
	MaxLoadKg      float64   `json:"max_load_kg"`
	WeightKg       float64   `json:"weight_kg"`
	SafetyFactor   float64   `json:"safety_factor"`
	Score          int       `json:"score"`
	Status         Status    `json:"status"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// Alternatives lists stronger options for a box that failed the analysis.
type Alternatives struct {
	Flutes         []Report `json:"flutes"`
	NeedsLargerBox bool     `json:"needs_larger_box"`
	MinPerimeterCM float64  `json:"min_perimeter_cm,omitempty"`
}

// BoxCompression returns the McKee box compression strength in kgf.
func BoxCompression(flute FluteSpec, perimeterMM float64) float64 {
	ectLbf := flute.ECT * kNPerMToLbfPerIn
	bctLbf := 2.028 * math.Pow(ectLbf, 0.746) *
		math.Pow(perimeterMM/mmPerInch, 0.254) *
		math.Pow(flute.Caliper/mmPerInch, 0.746)
	return bctLbf * lbfToKgf
}

// Analyze evaluates a box of dims carrying weightKg with the given flute code.
func Analyze(dims models.Dimensions, weightKg float64, fluteCode string) Report {
	flute := LookupFlute(fluteCode)
	perimeter := 2 * (dims.Length + dims.Width) * 10
	bct := BoxCompression(flute, perimeter)
	maxLoad := bct / StackingSafetyDivisor

	sf := noWeightSafetyFactor
	if weightKg > 0 {
		sf = maxLoad / weightKg
	}
	score := scoreFor(sf)

	r := Report{
		Flute:        flute,
		PerimeterMM:  round2(perimeter),
		BCTKgf:       round2(bct),
		MaxLoadKg:    round2(maxLoad),
		WeightKg:     weightKg,
		SafetyFactor: round2(sf),
		Score:        score,
	}
	switch {
	case score >= 70:
		r.Status = StatusSafe
		r.Message = "แข็งแรงเพียงพอ ปลอดภัยสำหรับการขนส่ง"
	case score >= 40:
		r.Status = StatusSafe
		r.Message = "ใช้ได้ แต่แนะนำเพิ่มความหนา"
	default:
		r.Status = StatusDanger
		r.Message = "ความแข็งแรงไม่เพียงพอ เสี่ยงกล่องยุบระหว่างขนส่ง"
		r.Recommendation = recommendFlute(flute)
	}
	return r
}

func scoreFor(sf float64) int {
	var score int
	switch {
	case sf >= 5:
		score = 100
	case sf >= 3:
		score = int(70 + (sf-3)*15)
	case sf >= 1.5:
		score = int(40 + (sf-1.5)*20)
	case sf >= 1:
		score = int(20 + (sf-1)*40)
	default:
		score = int(sf * 20)
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// recommendFlute names the first flute stronger than current, or BC.
func recommendFlute(current FluteSpec) string {
	for _, f := range Flutes {
		if f.ECT > current.ECT {
			return fmt.Sprintf("แนะนำเปลี่ยนเป็น %s", f.Name)
		}
	}
	return fmt.Sprintf("แนะนำใช้ %s และลดน้ำหนักต่อกล่อง", LookupFlute(models.FluteBC).Name)
}

// SuggestAlternatives lists flutes stronger than the current one that reach
// RecommendedSafetyFactor. When none does, it reports the BC perimeter required.
func SuggestAlternatives(dims models.Dimensions, weightKg float64, fluteCode string) Alternatives {
	current := LookupFlute(fluteCode)
	var out Alternatives
	for _, f := range Flutes {
		if f.ECT <= current.ECT {
			continue
		}
		r := Analyze(dims, weightKg, f.Code)
		if r.SafetyFactor >= RecommendedSafetyFactor {
			out.Flutes = append(out.Flutes, r)
		}
	}
	sort.SliceStable(out.Flutes, func(i, j int) bool {
		return out.Flutes[i].Flute.ECT < out.Flutes[j].Flute.ECT
	})
	if len(out.Flutes) == 0 && weightKg > 0 {
		out.NeedsLargerBox = true
		out.MinPerimeterCM = round2(minPerimeterMM(LookupFlute(models.FluteBC), weightKg) / 10)
	}
	return out
}

// minPerimeterMM inverts the McKee formula for the perimeter that reaches
// RecommendedSafetyFactor with flute.
func minPerimeterMM(flute FluteSpec, weightKg float64) float64 {
	requiredBCT := weightKg * RecommendedSafetyFactor * StackingSafetyDivisor
	unit := BoxCompression(flute, mmPerInch)
	return mmPerInch * math.Pow(requiredBCT/unit, 1/0.254)
}

// FormatForChat renders a report as a chat message.
func FormatForChat(r Report) string {
	var b strings.Builder
	icon := "✅"
	if r.Status == StatusDanger {
		icon = "⚠️"
	}
	fmt.Fprintf(&b, "%s ผลวิเคราะห์ความแข็งแรง (%s)\n", icon, r.Flute.Name)
	fmt.Fprintf(&b, "• รับแรงกดได้ประมาณ %.2f kgf\n", r.BCTKgf)
	fmt.Fprintf(&b, "• รับน้ำหนักซ้อนได้ปลอดภัย %.2f kg\n", r.MaxLoadKg)
	if r.WeightKg > 0 {
		fmt.Fprintf(&b, "• น้ำหนักสินค้า %.2f kg (Safety factor %.2f)\n", r.WeightKg, r.SafetyFactor)
	}
	fmt.Fprintf(&b, "• คะแนน %d/100: %s", r.Score, r.Message)
	if r.Recommendation != "" {
		fmt.Fprintf(&b, "\n💡 %s", r.Recommendation)
	}
	return b.String()
}

// FormatAlternatives renders alternatives as a chat message.
func FormatAlternatives(a Alternatives) string {
	if len(a.Flutes) == 0 && !a.NeedsLargerBox {
		return ""
	}
	var b strings.Builder
	b.WriteString("🔧 ทางเลือกที่แนะนำ:")
	for _, r := range a.Flutes {
		fmt.Fprintf(&b, "\n• %s: Safety factor %.2f", r.Flute.Name, r.SafetyFactor)
	}
	if a.NeedsLargerBox {
		fmt.Fprintf(&b, "\n• ลอนที่มีอยู่ยังไม่พอ แนะนำขยายเส้นรอบกล่องเป็นอย่างน้อย %.0f ซม. ด้วย%s", math.Ceil(a.MinPerimeterCM), LookupFlute(models.FluteBC).Name)
	}
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
