package flow

import (
	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
)

// RestartKeyword starts a new interview once an order is complete.
const RestartKeyword = "เริ่มใหม่"

// QuickReplies returns suggested answers for the position state is in. Every
// suggestion is recognized by the handler of that position.
func QuickReplies(state *models.ConversationState) []string {
	switch state.CurrentStep {
	case models.StepGreeting:
		return []string{"สวัสดีค่ะ", "อยากสั่งทำกล่อง"}
	case models.StepProductType:
		return []string{"สินค้าทั่วไป", "Non-food", "Food-grade", "เครื่องสำอาง"}
	case models.StepBoxType:
		if state.SubStep == models.SubStepBoxMaterial {
			var out []string
			for _, code := range extract.MaterialOptions(models.StringValue(state.PartialData.BoxType)) {
				out = append(out, shortMaterialLabel(code))
			}
			return out
		}
		return []string{label(boxLabels, models.BoxRSC), label(boxLabels, models.BoxDieCut)}
	case models.StepInner:
		return []string{"กระดาษฝอย", "บับเบิ้ล", "เคลือบกันชื้น", "ไม่ต้องการ"}
	case models.StepDimensions:
		return []string{"20x15x10 ซม. 1000 ชิ้น", "30x20x15 ซม. 500 ชิ้น"}
	case models.StepCheckpoint1:
		out := []string{"ถูกต้อง ✓", "แก้ไขขนาด", "แก้ไขวัสดุ"}
		if !state.ShouldSkipInner() {
			out = append(out, "เพิ่ม Inner")
		}
		return out
	case models.StepMoodTone:
		return []string{"มินิมอล", "พรีเมียม", "สดใส", "ข้าม"}
	case models.StepLogo:
		if state.SubStep == models.SubStepLogoPositions {
			return []string{label(logoLabels, extract.LogoTop), label(logoLabels, extract.LogoWidthBoth), label(logoLabels, extract.LogoAllSides)}
		}
		return []string{"มีโลโก้", "ไม่มี"}
	case models.StepSpecialEffects:
		if state.SubStep == models.SubStepEffectsBlock {
			return []string{"เคย", "ไม่เคย"}
		}
		return []string{"เคลือบเงา", "เคลือบด้าน", "ปั๊มฟอยล์", "ข้าม"}
	case models.StepCheckpoint2:
		return []string{"ถูกต้อง ✓", "แก้ไข Mood & Tone", "แก้ไขโลโก้", "เพิ่มลูกเล่นพิเศษ"}
	case models.StepGenerateQuote:
		return []string{"ลองใหม่", "แก้ไขรายละเอียด"}
	case models.StepConfirmOrder:
		return []string{"ยืนยัน", "แก้ไข Mockup", "แก้ไขสเปค"}
	case models.StepEnd:
		return []string{RestartKeyword}
	}
	return nil
}
