package flow

import (
	"fmt"
	"strings"

	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
)

// SystemPrompt is the persona shared by every phrased reply.
const SystemPrompt = `คุณคือ "ลูโม่" ผู้ช่วยฝ่ายขายของ LumoPack บริษัทผลิตกล่องบรรจุภัณฑ์ตามสั่ง
- ตอบเป็นภาษาไทยสุภาพ ใช้คำลงท้าย "ค่ะ" และกระชับไม่เกิน 3 ประโยค
- ห้ามประเมินราคาหรือสัญญาเรื่องระยะเวลาผลิต
- ห้ามเปลี่ยนข้อมูลที่ลูกค้าเลือกไว้ และห้ามถามคำถามนอกเหนือจากที่กำหนด
- ข้อความพื้นฐานที่ให้มาคือสิ่งที่ต้องสื่อ ปรับถ้อยคำให้เป็นธรรมชาติได้แต่ต้องคงความหมาย`

var stepInstructions = map[models.Step]string{
	models.StepGreeting:       "ทักทายลูกค้าอย่างเป็นกันเองและแนะนำว่าเราจะช่วยสั่งทำกล่อง",
	models.StepProductType:    "ลูกค้ายังไม่ได้ระบุประเภทสินค้าที่ชัดเจน ขอให้เลือกจากรายการอีกครั้ง",
	models.StepBoxType:        "ลูกค้ายังไม่ได้เลือกประเภทกล่องหรือวัสดุที่ชัดเจน ขอให้เลือกอีกครั้ง",
	models.StepInner:          "ลูกค้ายังไม่ได้เลือก Inner ที่ชัดเจน ขอให้เลือกหมายเลขหรือข้าม",
	models.StepDimensions:     "ขอขนาดกล่อง (กว้าง×ยาว×สูง ซม.) และจำนวนผลิตขั้นต่ำ 500 ชิ้น",
	models.StepLogo:           "ถามเรื่องโลโก้หรือตำแหน่งโลโก้อีกครั้ง",
	models.StepSpecialEffects: "ถามเรื่องลูกเล่นพิเศษหรือบล็อกปั๊มอีกครั้ง",
	models.StepGenerateMockup: "บรรยายภาพกล่องที่ลูกค้าออกแบบไว้ให้น่าตื่นเต้น 2-3 ประโยค โดยไม่พูดถึงราคา",
}

// Fixed replies.
const (
	RoutingApology   = "ขออภัยค่ะ มีข้อผิดพลาดเกิดขึ้น กรุณาเริ่มใหม่อีกครั้งค่ะ"
	welcomeText      = "สวัสดีค่ะ 😊 ยินดีต้อนรับสู่ LumoPack ค่ะ! เราช่วยออกแบบและผลิตกล่องบรรจุภัณฑ์ให้ตรงกับแบรนด์ของคุณได้เลย"
	productQuestion  = "สินค้าที่จะใส่กล่องเป็นประเภทไหนคะ?\n1. สินค้าทั่วไป\n2. Non-food (ไม่ใช่อาหาร)\n3. Food-grade (อาหาร/ขนม)\n4. เครื่องสำอาง"
	productMiss      = "ขออภัยค่ะ ยังไม่แน่ใจว่าสินค้าเป็นประเภทไหน"
	boxQuestion      = "คุณต้องการกล่องประเภทไหนคะ?\n1. RSC (มาตรฐาน): ประหยัด แข็งแรง เหมาะขนส่ง\n2. Die-cut (ไดคัท): พรีเมียม โชว์แบรนด์"
	boxMiss          = "ขออภัยค่ะ ยังไม่แน่ใจว่าต้องการกล่องแบบไหน"
	materialMiss     = "ขออภัยค่ะ ไม่ค่อยเข้าใจ กรุณาเลือกวัสดุอีกครั้งนะคะ"
	innerMiss        = "ขออภัยค่ะ ไม่ค่อยเข้าใจ กรุณาเลือกหมายเลข Inner หรือพิมพ์ 'ไม่ต้องการ' ค่ะ"
	innerSkipped     = "ไม่เป็นไรค่ะ ไม่ใส่ Inner นะคะ"
	dimsQuestion     = "📐 ต่อไป ขอทราบขนาดกล่องที่ต้องการนะคะ (กว้าง×ยาว×สูง เป็น ซม.) และจำนวนที่ต้องการผลิต (ขั้นต่ำ 500 ชิ้น)\n(ถ้าทราบน้ำหนักสินค้าต่อกล่องหรือลอนกระดาษที่ต้องการ บอกมาได้เลยค่ะ เช่น \"2 kg ลอน C\")"
	dimsMiss         = "ขออภัยค่ะ ไม่พบขนาดหรือจำนวนในข้อความ กรุณาระบุขนาดกล่อง เช่น 20x15x10 ซม. และจำนวน เช่น 1000 ชิ้นค่ะ"
	askQuantity      = "\n\nขอทราบจำนวนที่ต้องการผลิตด้วยนะคะ (ขั้นต่ำ 500 ชิ้น)"
	askDimensions    = "\n\nขอทราบขนาดกล่องด้วยนะคะ (กว้าง×ยาว×สูง เป็น ซม.)"
	belowMinimumText = "\n\n⚠️ จำนวน %s ชิ้น ต่ำกว่าขั้นต่ำค่ะ"

	checkpointUnclear = "ขอโทษค่ะ ไม่ค่อยเข้าใจ ช่วยตอบว่า 'ถูกต้อง' หรือ บอกส่วนที่ต้องการแก้ไขได้เลยค่ะ 🙏"
	askWhichPart      = "ไม่เป็นไรค่ะ บอกได้เลยว่าต้องการแก้ไขส่วนไหนคะ?\n\nเช่น: "
	askWhichPart1     = "แก้ไขประเภทสินค้า / แก้ไขขนาด / เพิ่ม Inner"
	askWhichPart2     = "แก้ไข Mood&Tone / แก้ไขโลโก้ / เพิ่มลูกเล่นพิเศษ"
	editEntered       = "ได้เลยค่ะ! %sข้อมูลได้เลยนะคะ 📝"
	structureDone     = "เยี่ยมเลยค่ะ! ✅ ต่อไปเราจะมาดูเรื่องการออกแบบกล่องกันนะคะ 🎨\n\n" + moodQuestion
	designDone        = "ขอบคุณค่ะ! ✅ กำลังสร้าง Mockup และใบเสนอราคาให้นะคะ รอสักครู่... ⏳"

	moodQuestion         = "คุณอยากให้กล่องออกมาเป็นสไตล์ไหนคะ?\nเช่น: สดใส สนุกสนาน / เรียบหรู สุขุม / มินิมอล / พรีเมียม\n(หรือพิมพ์ 'ข้าม' ถ้ายังไม่กำหนด)"
	moodSkipped          = "ไม่เป็นไรค่ะ ไว้กำหนดสไตล์ทีหลังได้นะคะ"
	logoQuestion         = "คุณมีโลโก้ที่อยากใส่บนกล่องไหมคะ? 🎨\n(หรือพิมพ์ 'ข้าม' ถ้ายังไม่มี)"
	logoMiss             = "ขออภัยค่ะ ไม่ค่อยเข้าใจ คุณมีโลโก้ที่อยากใส่บนกล่องไหมคะ? (มี / ไม่มี)"
	logoPositionOptions  = "• ด้านบน / ด้านล่าง / บนและล่าง\n• ด้านกว้าง 1 ด้าน / ด้านกว้าง 2 ด้าน\n• ด้านยาว 1 ด้าน / ด้านยาว 2 ด้าน\n• ด้านกว้างและยาว / ทุกด้าน"
	logoPositionQuestion = "เยี่ยมเลยค่ะ! อยากให้โลโก้อยู่ตำแหน่งไหนของกล่องคะ?\n\n" + logoPositionOptions
	logoPositionMiss     = "ขออภัยค่ะ ไม่ค่อยเข้าใจตำแหน่ง กรุณาเลือกจากตัวเลือกเหล่านี้นะคะ:\n\n" + logoPositionOptions
	noLogo               = "รับทราบค่ะ ไม่ใส่โลโก้นะคะ"
	effectsQuestion      = "คุณต้องการลูกเล่นพิเศษบนกล่องไหมคะ? ✨\nเช่น: เคลือบเงา / เคลือบด้าน / ปั๊มนูน / ปั๊มฟอยล์\n(หรือพิมพ์ 'ข้าม' ถ้าไม่ต้องการ)"
	effectsMiss          = "ขออภัยค่ะ ไม่ค่อยเข้าใจ ลองเลือกจาก: เคลือบเงา / เคลือบด้าน / ปั๊มนูน / ปั๊มจม / ปั๊มฟอยล์ หรือพิมพ์ 'ข้าม' ค่ะ"
	effectsSkipped       = "ไม่เป็นไรค่ะ ไม่ใส่ลูกเล่นพิเศษนะคะ"
	blockQuestion        = "สำหรับการปั๊ม: เคยทำบล็อกปั๊มกับทางเรามาก่อนหรือเปล่าคะ?\n(ถ้าไม่เคย จะมีค่าทำบล็อกพิมพ์เพิ่มค่ะ)"
	blockMiss            = "ขอโทษค่ะ ไม่ค่อยเข้าใจ ช่วยตอบว่า 'เคย' หรือ 'ไม่เคย' ทำบล็อกปั๊มกับเราได้ไหมคะ?"

	quoteFailed       = "ขออภัยค่ะ เกิดข้อผิดพลาดในการคำนวณราคา 😔\nรายละเอียด: %s\n\nพิมพ์ 'ลองใหม่' เพื่อคำนวณอีกครั้ง หรือ 'แก้ไข' เพื่อกลับไปแก้รายละเอียดค่ะ"
	confirmQuestion   = "ยืนยันสั่งผลิตไหมคะ? พิมพ์ 'ยืนยัน' หรือ 'ขอแก้ไข' ได้เลยค่ะ"
	reviseMockup      = "ได้เลยค่ะ! เดี๋ยวปรับ Mockup ให้ใหม่นะคะ 🎨"
	reviseSpec        = "ได้เลยค่ะ! กลับไปตรวจสอบรายละเอียดใหม่นะคะ 📝"
	reviseWhich       = "ไม่เป็นไรค่ะ บอกได้เลยว่าต้องการแก้ไขส่วนไหนคะ?\n\n• แก้ไข Mockup (ภาพกล่อง)\n• แก้ไขสเปค/ลูกเล่น\n• หรือยืนยันคำสั่งซื้อ"
	confirmUnclear    = "ขอโทษค่ะ ไม่ค่อยเข้าใจ ช่วยตอบว่า 'ยืนยัน' หรือ 'ต้องการแก้ไข' ได้ไหมคะ? 🙏"
	closingText       = "🎉 ขอบคุณที่ไว้วางใจ LumoPack ค่ะ! คำสั่งซื้อของคุณได้รับการบันทึกแล้ว ทีมงานจะติดต่อกลับเพื่อยืนยันรายละเอียดและการชำระมัดจำภายใน 1 วันทำการค่ะ"
	referenceText     = "\n\n📌 หมายเลขอ้างอิง: %s"
	orderConfirmed    = "ยืนยันคำสั่งซื้อเรียบร้อยค่ะ! ✅"
	alreadyRecorded   = "คำสั่งซื้อของคุณได้รับการบันทึกไว้แล้วค่ะ 🙏 หากต้องการสั่งทำกล่องใบใหม่ พิมพ์ 'เริ่มใหม่' ได้เลยค่ะ"
)

var productLabels = map[string]string{
	models.ProductGeneral:   "สินค้าทั่วไป",
	models.ProductNonFood:   "Non-food (ไม่ใช่อาหาร)",
	models.ProductFoodGrade: "Food-grade (อาหาร/ขนม)",
	models.ProductCosmetic:  "เครื่องสำอาง",
}

var boxLabels = map[string]string{
	models.BoxRSC:    "RSC (มาตรฐาน)",
	models.BoxDieCut: "Die-cut (ไดคัท)",
}

var materialLabels = map[string]string{
	models.MaterialCorrugated: "กระดาษลูกฟูก 2 ชั้น (แข็งแรง ราคาประหยัด)",
	models.MaterialKraft:      "กระดาษคราฟท์ 200 GSM (ลุค Eco-friendly)",
	models.MaterialCardboard:  "กระดาษแข็ง/จั่วปัง (หนา ทนทาน)",
	models.MaterialArt:        "กระดาษอาร์ต 300 GSM (พิมพ์สวย สีสด)",
	models.MaterialWhiteboard: "กล่องขาว/กล่องแป้ง 350 GSM (ราคาประหยัด)",
}

var innerLabels = map[string]string{
	"shredded_paper":   "กระดาษฝอย",
	"air_bubble":       "บับเบิ้ลกันกระแทก",
	"air_cushion":      "ถุงลมกันกระแทก",
	"aq_coating":       "AQ Coating (กันชื้น)",
	"pe_coating":       "PE Coating (กันชื้น)",
	"wax_coating":      "Wax Coating (กันชื้น)",
	"bio_barrier":      "Bio Barrier (กันชื้น)",
	"water_based_food": "Water-based Food Coating",
	"pe_food_grade":    "PE Food Grade",
	"pla_bio":          "PLA Bio Coating",
	"grease_resistant": "เคลือบกันน้ำมัน",
}

var effectLabels = map[string]string{
	extract.EffectAQGloss:      "เคลือบเงา AQ",
	extract.EffectUVGloss:      "เคลือบเงา UV",
	extract.EffectOPPGloss:     "ลามิเนตเงา OPP",
	extract.EffectUVMatte:      "เคลือบด้าน UV",
	extract.EffectPVCMatte:     "ลามิเนตด้าน PVC",
	extract.EffectVarnishMatte: "วานิชด้าน",
	extract.EffectEmboss:       "ปั๊มนูน",
	extract.EffectDeboss:       "ปั๊มจม",
	extract.EffectFoilRegular:  "ปั๊มฟอยล์",
	extract.EffectFoilDetailed: "ปั๊มฟอยล์ลายละเอียด",
	extract.EffectFoilEmboss:   "ปั๊มฟอยล์ + นูน",
	extract.EffectFoilSpecial:  "ปั๊มฟอยล์พิเศษ (โฮโลแกรม)",
}

var logoLabels = map[string]string{
	extract.LogoTop:            "ด้านบน",
	extract.LogoBottom:         "ด้านล่าง",
	extract.LogoTopBottom:      "ด้านบนและล่าง",
	extract.LogoWidthOne:       "ด้านกว้าง 1 ด้าน",
	extract.LogoWidthBoth:      "ด้านกว้าง 2 ด้าน",
	extract.LogoLengthOne:      "ด้านยาว 1 ด้าน",
	extract.LogoLengthBoth:     "ด้านยาว 2 ด้าน",
	extract.LogoWidthAndLength: "ด้านกว้างและยาว",
	extract.LogoAllSides:       "ทุกด้าน",
}

func label(labels map[string]string, code string) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return code
}

func shortMaterialLabel(code string) string {
	l := label(materialLabels, code)
	if i := strings.Index(l, " ("); i > 0 {
		return l[:i]
	}
	return l
}

func materialQuestion(boxType string) string {
	var b strings.Builder
	b.WriteString("🧱 เลือกวัสดุสำหรับกล่องค่ะ:")
	for i, code := range extract.MaterialOptions(boxType) {
		fmt.Fprintf(&b, "\n%d. %s", i+1, label(materialLabels, code))
	}
	return b.String()
}

func innerQuestion() string {
	var b strings.Builder
	b.WriteString("🛡️ ต้องการ Inner (วัสดุป้องกันภายในกล่อง) ไหมคะ?")
	groups := []struct {
		category string
		title    string
	}{
		{models.CategoryCushion, "กันกระแทก"},
		{models.CategoryMoisture, "เคลือบกันชื้น"},
		{models.CategoryFoodGrade, "Food Grade"},
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "\n\n*%s*", g.title)
		for _, opt := range extract.InnerOptions {
			if opt.Category == g.category {
				fmt.Fprintf(&b, "\n%d. %s", opt.Number, label(innerLabels, opt.Type))
			}
		}
	}
	b.WriteString("\n\nเลือกได้มากกว่า 1 ข้อ เช่น \"2, 4\"\n*(หรือพิมพ์ 'ไม่ต้องการ' เพื่อข้ามค่ะ)*")
	return b.String()
}

// questionFor returns the opening question of a data-collecting step.
func questionFor(step models.Step) string {
	switch step {
	case models.StepProductType:
		return productQuestion
	case models.StepBoxType:
		return boxQuestion
	case models.StepInner:
		return innerQuestion()
	case models.StepDimensions:
		return dimsQuestion
	case models.StepMoodTone:
		return moodQuestion
	case models.StepLogo:
		return logoQuestion
	case models.StepSpecialEffects:
		return effectsQuestion
	default:
		return ""
	}
}

func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatCount(-n)
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}

func formatMoney(v float64) string {
	whole := int(v)
	frac := int((v-float64(whole))*100 + 0.5)
	if frac >= 100 {
		whole++
		frac -= 100
	}
	return fmt.Sprintf("%s.%02d", formatCount(whole), frac)
}

func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s
}

func formatDimensions(d models.Dimensions) string {
	return fmt.Sprintf("%s×%s×%s", formatNumber(d.Width), formatNumber(d.Length), formatNumber(d.Height))
}

func joinLabels(labels map[string]string, codes []string) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, label(labels, c))
	}
	return strings.Join(parts, ", ")
}

func innerSummary(items []models.InnerItem) string {
	codes := make([]string, 0, len(items))
	for _, it := range items {
		codes = append(codes, it.Type)
	}
	return joinLabels(innerLabels, codes)
}

func effectsSummary(effects []models.Effect) string {
	parts := make([]string, 0, len(effects))
	for _, e := range effects {
		l := label(effectLabels, e.Type)
		if e.IsStamping() && e.HasBlock != nil {
			if *e.HasBlock {
				l += " (มีบล็อกเดิม)"
			} else {
				l += " (ทำบล็อกใหม่)"
			}
		}
		parts = append(parts, l)
	}
	return strings.Join(parts, ", ")
}
