package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lumopack/lumobot/internal/models"
)

// MinQuantity is the smallest production run accepted by the quantity extractor.
const MinQuantity = 500

type keywordRule struct {
	value    string
	keywords []string
}

var (
	productChoice  = regexp.MustCompile(`^\s*([1-4])\s*$`)
	boxChoice      = regexp.MustCompile(`^\s*([12])\s*$`)
	materialChoice = regexp.MustCompile(`^\s*([1-5])\s*$`)
	dieCutPattern  = regexp.MustCompile(`die[\s-]?cut|ไดคัท|ไดค์ท`)
)

var productByNumber = map[string]string{
	"1": models.ProductGeneral,
	"2": models.ProductNonFood,
	"3": models.ProductFoodGrade,
	"4": models.ProductCosmetic,
}

// non_food is tested before food_grade because its Thai form contains the food keyword.
var productRules = []keywordRule{
	{models.ProductCosmetic, []string{"เครื่องสำอาง", "cosmetic", "สำอาง", "ครีม", "เซรั่ม"}},
	{models.ProductNonFood, []string{"non-food", "non food", "nonfood", "ไม่ใช่อาหาร"}},
	{models.ProductFoodGrade, []string{"food-grade", "food grade", "อาหาร", "ขนม", "เบเกอรี่"}},
	{models.ProductGeneral, []string{"ทั่วไป", "general", "ธรรมดา"}},
}

// ProductType recognizes the product category by keyword or menu number.
func ProductType(text string) (string, bool) {
	t := Normalize(text)
	if m := productChoice.FindStringSubmatch(t); m != nil {
		return productByNumber[m[1]], true
	}
	for _, rule := range productRules {
		if containsAny(t, rule.keywords...) {
			return rule.value, true
		}
	}
	return "", false
}

// BoxType recognizes RSC or die-cut by keyword or menu number.
func BoxType(text string) (string, bool) {
	t := Normalize(text)
	if m := boxChoice.FindStringSubmatch(t); m != nil {
		if m[1] == "1" {
			return models.BoxRSC, true
		}
		return models.BoxDieCut, true
	}
	if dieCutPattern.MatchString(t) {
		return models.BoxDieCut, true
	}
	if containsAny(t, "rsc", "มาตรฐาน", "standard") {
		return models.BoxRSC, true
	}
	return "", false
}

var materialOptions = map[string][]string{
	models.BoxRSC:    {models.MaterialCorrugated, models.MaterialKraft},
	models.BoxDieCut: {models.MaterialCorrugated, models.MaterialCardboard, models.MaterialArt, models.MaterialWhiteboard},
}

var materialRules = []keywordRule{
	{models.MaterialCorrugated, []string{"ลูกฟูก", "corrugated"}},
	{models.MaterialKraft, []string{"คราฟท์", "คราฟ", "craft", "kraft"}},
	{models.MaterialCardboard, []string{"จั่วปัง", "กระดาษแข็ง", "cardboard"}},
	{models.MaterialWhiteboard, []string{"กล่องขาว", "กล่องแป้ง", "whiteboard", "ivory"}},
	{models.MaterialArt, []string{"อาร์ต", "art paper"}},
}

// MaterialOptions lists the materials offered for a box type, in menu order.
func MaterialOptions(boxType string) []string {
	return append([]string(nil), materialOptions[boxType]...)
}

// Material recognizes a material offered for boxType by keyword or menu number.
func Material(text, boxType string) (string, bool) {
	options := materialOptions[boxType]
	if len(options) == 0 {
		return "", false
	}
	t := Normalize(text)
	if m := materialChoice.FindStringSubmatch(t); m != nil {
		idx, _ := strconv.Atoi(m[1])
		if idx <= len(options) {
			return options[idx-1], true
		}
		return "", false
	}
	for _, rule := range materialRules {
		if containsAny(t, rule.keywords...) || (rule.value == models.MaterialArt && containsWord(t, "art")) {
			for _, opt := range options {
				if opt == rule.value {
					return rule.value, true
				}
			}
			return "", false
		}
	}
	return "", false
}

// InnerOption is one numbered entry of the inner menu.
type InnerOption struct {
	Number   int
	Type     string
	Category string
}

// InnerOptions is the numbered inner menu.
var InnerOptions = []InnerOption{
	{1, "shredded_paper", models.CategoryCushion},
	{2, "air_bubble", models.CategoryCushion},
	{3, "air_cushion", models.CategoryCushion},
	{4, "aq_coating", models.CategoryMoisture},
	{5, "pe_coating", models.CategoryMoisture},
	{6, "wax_coating", models.CategoryMoisture},
	{7, "bio_barrier", models.CategoryMoisture},
	{8, "water_based_food", models.CategoryFoodGrade},
	{9, "pe_food_grade", models.CategoryFoodGrade},
	{10, "pla_bio", models.CategoryFoodGrade},
	{11, "grease_resistant", models.CategoryFoodGrade},
}

var innerNumber = regexp.MustCompile(`\b(1[01]?|[2-9])\b`)

type innerRule struct {
	innerType string
	match     func(t string) bool
}

var innerRules = []innerRule{
	{"shredded_paper", func(t string) bool { return containsAny(t, "กระดาษฝอย", "shredded", "ฝอย") }},
	{"air_bubble", func(t string) bool { return containsAny(t, "บับเบิ้ล", "บับเบิล", "bubble") }},
	{"air_cushion", func(t string) bool { return containsAny(t, "ถุงลม", "air cushion") }},
	{"aq_coating", func(t string) bool { return containsAny(t, "aq coating", "acrylic") || containsWord(t, "aq") }},
	{"pe_coating", func(t string) bool {
		return containsAny(t, "pe coating", "polyethylene") && !containsAny(t, "pe food")
	}},
	{"wax_coating", func(t string) bool { return containsAny(t, "wax", "paraffin", "แว็กซ์", "พาราฟิน") }},
	{"bio_barrier", func(t string) bool { return containsAny(t, "bio barrier", "water-based barrier") }},
	{"water_based_food", func(t string) bool { return containsAny(t, "water-based food", "water based food", "food coating") }},
	{"pe_food_grade", func(t string) bool { return containsAny(t, "pe food") }},
	{"pla_bio", func(t string) bool { return containsWord(t, "pla") || containsAny(t, "bio coating") }},
	{"grease_resistant", func(t string) bool { return containsAny(t, "grease", "กันน้ำมัน", "กันไขมัน") }},
}

func innerByType(innerType string) InnerOption {
	for _, opt := range InnerOptions {
		if opt.Type == innerType {
			return opt
		}
	}
	return InnerOption{}
}

// Inner recognizes liner and coating choices. Menu numbers and keywords are combined
// and the result holds each type at most once. Digits belonging to a larger number,
// a decimal or a dimension string are not menu numbers.
func Inner(text string) ([]models.InnerItem, Status) {
	if IsSkip(text) {
		return nil, Skipped
	}
	t := Normalize(text)
	seen := map[string]bool{}
	var items []models.InnerItem
	add := func(opt InnerOption) {
		if opt.Type == "" || seen[opt.Type] {
			return
		}
		seen[opt.Type] = true
		items = append(items, models.InnerItem{Type: opt.Type, Category: opt.Category})
	}
	for _, loc := range innerNumber.FindAllStringSubmatchIndex(t, -1) {
		start, end := loc[2], loc[3]
		if partOfLargerNumber(t, start, end) {
			continue
		}
		n, _ := strconv.Atoi(t[start:end])
		add(InnerOptions[n-1])
	}
	for _, rule := range innerRules {
		if rule.match(t) {
			add(innerByType(rule.innerType))
		}
	}
	if len(items) == 0 && containsAny(t, "เคลือบกันชื้น", "กันชื้น") {
		add(innerByType("aq_coating"))
	}
	if len(items) == 0 {
		return nil, Miss
	}
	return items, Matched
}

var (
	separatorRun = regexp.MustCompile(`[,\s]+`)
	dimsCross    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[x*×]\s*(\d+(?:\.\d+)?)\s*[x*×]\s*(\d+(?:\.\d+)?)`)
	dimsThai     = regexp.MustCompile(`กว้าง\s*(\d+(?:\.\d+)?).{0,10}ยาว\s*(\d+(?:\.\d+)?).{0,10}สูง\s*(\d+(?:\.\d+)?)`)
	dimsEnglish  = regexp.MustCompile(`width\s*(\d+(?:\.\d+)?).{0,10}length\s*(\d+(?:\.\d+)?).{0,10}height\s*(\d+(?:\.\d+)?)`)
)

// Dimensions recognizes width, length and height in centimetres.
func Dimensions(text string) (models.Dimensions, bool) {
	t := separatorRun.ReplaceAllString(Normalize(text), " ")
	for _, re := range []*regexp.Regexp{dimsCross, dimsThai, dimsEnglish} {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		w, errW := strconv.ParseFloat(m[1], 64)
		l, errL := strconv.ParseFloat(m[2], 64)
		h, errH := strconv.ParseFloat(m[3], 64)
		if errW != nil || errL != nil || errH != nil || w <= 0 || l <= 0 || h <= 0 {
			return models.Dimensions{}, false
		}
		return models.Dimensions{Width: w, Length: l, Height: h}, true
	}
	return models.Dimensions{}, false
}

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`จำนวน\s*(\d[\d,]*)`),
	regexp.MustCompile(`(\d[\d,]*)\s*ชิ้น`),
	regexp.MustCompile(`(\d[\d,]*)\s*กล่อง`),
	regexp.MustCompile(`(\d[\d,]*)\s*ใบ`),
	regexp.MustCompile(`quantity\s*[:\s]*(\d[\d,]*)`),
	regexp.MustCompile(`(\d[\d,]*)\s*(?:pieces|pcs|boxes|units)\b`),
}

var (
	digitRun          = regexp.MustCompile(`\d[\d,]*`)
	mentionedQuantity = regexp.MustCompile(`(?:จำนวน|quantity)\s*(\d[\d,]*)|(\d[\d,]*)\s*(?:ชิ้น|กล่อง|ใบ|pieces|pcs|boxes|units)`)
)

// Quantity recognizes a production quantity of at least MinQuantity.
func Quantity(text string) (int, bool) {
	t := Normalize(text)
	for _, re := range quantityPatterns {
		if m := re.FindStringSubmatch(t); m != nil {
			if n, ok := parseCount(m[1]); ok && n >= MinQuantity {
				return n, true
			}
		}
	}
	labeled := labeledDimensionSpans(t)
	for _, loc := range digitRun.FindAllStringIndex(t, -1) {
		if touchesDimension(t, loc[0], loc[1]) || insideSpan(labeled, loc[0]) {
			continue
		}
		if n, ok := parseCount(t[loc[0]:loc[1]]); ok && n >= MinQuantity {
			return n, true
		}
	}
	return 0, false
}

// partOfLargerNumber reports whether the digits at t[start:end] continue into a
// neighbouring number: glued digits, a decimal, a thousands group or a dimension.
func partOfLargerNumber(t string, start, end int) bool {
	if start > 0 && isDigit(t[start-1]) || end < len(t) && isDigit(t[end]) {
		return true
	}
	if end < len(t) && t[end] == ',' && thousandsGroup(t[end+1:]) {
		return true
	}
	return touchesDimension(t, start, end)
}

// thousandsGroup reports whether s starts with exactly three digits.
func thousandsGroup(s string) bool {
	if len(s) < 3 || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[2]) {
		return false
	}
	return len(s) == 3 || !isDigit(s[3])
}

// touchesDimension reports whether the digit run at t[start:end] is part of a
// decimal number or sits next to a dimension separator.
func touchesDimension(t string, start, end int) bool {
	if start >= 2 && t[start-1] == '.' && isDigit(t[start-2]) {
		return true
	}
	if end+1 < len(t) && t[end] == '.' && isDigit(t[end+1]) {
		return true
	}
	if r, _ := utf8.DecodeLastRuneInString(strings.TrimRight(t[:start], " ")); isCross(r) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(strings.TrimLeft(t[end:], " "))
	return isCross(r)
}

// labeledDimensionSpans returns the byte ranges of labeled dimension phrases such as
// "กว้าง 60 ยาว 40 สูง 30".
func labeledDimensionSpans(t string) [][]int {
	var spans [][]int
	for _, re := range []*regexp.Regexp{dimsThai, dimsEnglish} {
		spans = append(spans, re.FindAllStringIndex(t, -1)...)
	}
	return spans
}

func insideSpan(spans [][]int, pos int) bool {
	for _, sp := range spans {
		if pos >= sp[0] && pos < sp[1] {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isCross(r rune) bool {
	return r == 'x' || r == '*' || r == '×'
}

// MentionedQuantity returns any quantity the customer stated explicitly, even one
// below the minimum, so the caller can warn about it.
func MentionedQuantity(text string) (int, bool) {
	m := mentionedQuantity.FindStringSubmatch(Normalize(text))
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	return parseCount(raw)
}

var (
	weightUnit  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:kg|กก|กิโล)`)
	weightLabel = regexp.MustCompile(`(?:น้ำหนัก|weight)\s*[:=]?\s*(\d+(?:\.\d+)?)`)
	fluteBefore = regexp.MustCompile(`(?:ลอน|flute)\s*[:=]?\s*(bc|[abce])\b`)
	fluteAfter  = regexp.MustCompile(`\b(bc|[abce])\s*-?\s*flute`)
)

// WeightKg recognizes the weight of the packed product in kilograms.
func WeightKg(text string) (float64, bool) {
	t := Normalize(text)
	for _, re := range []*regexp.Regexp{weightUnit, weightLabel} {
		if m := re.FindStringSubmatch(t); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// FluteType recognizes a corrugated flute profile (A, B, C, E or BC).
func FluteType(text string) (string, bool) {
	t := Normalize(text)
	for _, re := range []*regexp.Regexp{fluteBefore, fluteAfter} {
		if m := re.FindStringSubmatch(t); m != nil {
			switch m[1] {
			case "a":
				return models.FluteA, true
			case "b":
				return models.FluteB, true
			case "c":
				return models.FluteC, true
			case "e":
				return models.FluteE, true
			case "bc":
				return models.FluteBC, true
			}
		}
	}
	return "", false
}
