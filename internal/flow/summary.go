package flow

import (
	"fmt"
	"strings"

	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/requirement"
)

func structureLines(b *strings.Builder, c models.Requirements) {
	fmt.Fprintf(b, "\n• ประเภทสินค้า: %s", valueOr(label(productLabels, models.StringValue(c.ProductType)), "-"))
	fmt.Fprintf(b, "\n• ประเภทกล่อง: %s", valueOr(label(boxLabels, models.StringValue(c.BoxType)), "-"))
	fmt.Fprintf(b, "\n• วัสดุ: %s", valueOr(shortMaterialLabel(models.StringValue(c.Material)), "-"))
	if models.StringValue(c.BoxType) != models.BoxRSC {
		fmt.Fprintf(b, "\n• Inner: %s", valueOr(innerSummary(c.Inner), "ไม่ใส่"))
	}
	if c.Dimensions != nil {
		fmt.Fprintf(b, "\n• ขนาด: %s ซม.", formatDimensions(*c.Dimensions))
	} else {
		b.WriteString("\n• ขนาด: -")
	}
	if c.Quantity != nil {
		fmt.Fprintf(b, "\n• จำนวน: %s ชิ้น", formatCount(*c.Quantity))
	} else {
		b.WriteString("\n• จำนวน: -")
	}
	if c.WeightKg != nil {
		fmt.Fprintf(b, "\n• น้ำหนักสินค้า: %s kg", formatNumber(*c.WeightKg))
	}
	if c.FluteType != nil {
		fmt.Fprintf(b, "\n• ลอนกระดาษ: %s", *c.FluteType)
	}
	if c.StrengthWarning != nil && *c.StrengthWarning {
		b.WriteString("\n⚠️ ความแข็งแรงของกล่องอาจไม่เพียงพอสำหรับน้ำหนักสินค้า")
	}
}

func designLines(b *strings.Builder, c models.Requirements) {
	fmt.Fprintf(b, "\n• Mood & Tone: %s", valueOr(models.StringValue(c.MoodTone), "ยังไม่กำหนด"))
	switch {
	case c.HasLogo != nil && *c.HasLogo:
		fmt.Fprintf(b, "\n• โลโก้: มี (%s)", valueOr(joinLabels(logoLabels, c.LogoPositions), "ยังไม่ระบุตำแหน่ง"))
	default:
		b.WriteString("\n• โลโก้: ไม่มี")
	}
	fmt.Fprintf(b, "\n• ลูกเล่นพิเศษ: %s", valueOr(effectsSummary(c.SpecialEffects), "ไม่มี"))
}

// structureSummary renders the first checkpoint.
func structureSummary(c models.Requirements) string {
	var b strings.Builder
	b.WriteString("📋 สรุปโครงสร้างกล่องของคุณค่ะ\n")
	structureLines(&b, c)
	b.WriteString("\n\nข้อมูลถูกต้องไหมคะ? พิมพ์ 'ถูกต้อง' เพื่อไปต่อ หรือบอกส่วนที่ต้องการแก้ไขได้เลยค่ะ")
	return b.String()
}

// designSummary renders the second checkpoint with the full order so far.
func designSummary(sessionID string, c models.Requirements) string {
	var b strings.Builder
	b.WriteString("📋 สรุปรายละเอียดทั้งหมดค่ะ\n\n*โครงสร้าง*")
	structureLines(&b, c)
	b.WriteString("\n\n*การออกแบบ*")
	designLines(&b, c)
	if tips := requirement.Suggestions(requirement.Assemble(sessionID, c)); len(tips) > 0 {
		b.WriteString("\n")
		for _, tip := range tips {
			b.WriteString("\n" + tip)
		}
	}
	b.WriteString("\n\nข้อมูลถูกต้องไหมคะ? พิมพ์ 'ถูกต้อง' เพื่อสร้าง Mockup และใบเสนอราคา หรือบอกส่วนที่ต้องการแก้ไขได้เลยค่ะ")
	return b.String()
}

// previewBase is the fixed description of the box, used as is or as phraser input.
func previewBase(r requirement.CompleteRequirement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "กล่อง %s จาก%s ขนาด %s ซม.", label(boxLabels, r.BoxType), shortMaterialLabel(r.Material), formatDimensions(r.Dimensions))
	if r.MoodTone != nil {
		fmt.Fprintf(&b, " สไตล์%s", *r.MoodTone)
	}
	if r.HasLogo {
		fmt.Fprintf(&b, " พร้อมโลโก้%s", joinLabels(logoLabels, r.LogoPositions))
	}
	var extras []string
	for _, code := range r.Coatings {
		extras = append(extras, label(effectLabels, code))
	}
	for _, s := range r.Stampings {
		extras = append(extras, label(effectLabels, s.Type))
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, " ตกแต่งด้วย%s", strings.Join(extras, " "))
	}
	return b.String()
}

func renderPreview(description string) string {
	return "🖼️ *Mockup กล่องของคุณ*\n\n" + description
}

func lineItem(b *strings.Builder, item models.LineItem, qty int) {
	fmt.Fprintf(b, "\n• %s: %s บาท × %s = %s บาท", item.Name, formatMoney(item.PricePerBox), formatCount(qty), formatMoney(item.Total))
	if item.SetupCost > 0 {
		fmt.Fprintf(b, " (รวมค่าบล็อก %s บาท)", formatMoney(item.SetupCost))
	}
}

// renderQuote formats a priced breakdown.
func renderQuote(q models.Breakdown) string {
	var b strings.Builder
	b.WriteString("💰 *ใบเสนอราคา*")
	lineItem(&b, q.Box, q.Quantity)
	if q.Inner != nil {
		lineItem(&b, *q.Inner, q.Quantity)
	}
	for _, item := range q.Coatings {
		lineItem(&b, item, q.Quantity)
	}
	for _, item := range q.Stampings {
		lineItem(&b, item, q.Quantity)
	}
	fmt.Fprintf(&b, "\n\nยอดรวม: %s บาท", formatMoney(q.Subtotal))
	fmt.Fprintf(&b, "\nVAT %s%%: %s บาท", formatNumber(q.VATRate*100), formatMoney(q.VAT))
	fmt.Fprintf(&b, "\n*รวมทั้งสิ้น: %s บาท* (เฉลี่ย %s บาท/ชิ้น)", formatMoney(q.GrandTotal), formatMoney(q.PerBox))
	fmt.Fprintf(&b, "\nมัดจำ %s%%: %s บาท", formatNumber(DepositRate*100), formatMoney(deposit(q.GrandTotal)))
	return b.String()
}

func deposit(total float64) float64 {
	return float64(int(total*DepositRate*100+0.5)) / 100
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
