package extract

import (
	"github.com/lumopack/lumobot/internal/models"
)

var exactSkips = []string{"ไม่", "no", "pass", "skip", "ไม่ครับ", "ไม่ค่ะ", "ข้าม", "-"}

// IsSkip recognizes a request to skip an optional step.
func IsSkip(text string) bool {
	t := Normalize(text)
	for _, skip := range exactSkips {
		if t == skip {
			return true
		}
	}
	return containsAny(t, "ไม่ต้อง", "ไม่ต้องการ", "ไม่เอา", "ไม่มี", "ข้าม", "skip", "pass")
}

// IsConfirmation recognizes agreement, including polite particles.
func IsConfirmation(text string) bool {
	t := Normalize(text)
	return containsAny(t, "ใช่", "ถูก", "ถูกต้อง", "ยืนยัน", "โอเค", "ตกลง", "ครับ", "ค่ะ", "✓") ||
		containsWord(t, "yes", "ok", "okay", "confirm", "correct")
}

// IsRejection recognizes a request to revise or a denial.
func IsRejection(text string) bool {
	t := Normalize(text)
	return containsAny(t, "แก้", "เปลี่ยน", "ไม่ถูก", "ไม่ใช่", "ผิด", "แก้ไข", "เพิ่ม", "ลด", "ยกเลิก") ||
		containsWord(t, "no", "wrong", "edit", "change", "cancel")
}

// IsAddRequest recognizes a revision that adds to list fields instead of replacing them.
func IsAddRequest(text string) bool {
	t := Normalize(text)
	return containsAny(t, "เพิ่ม", "อยากได้เพิ่ม", "เพิ่มเติม") || containsWord(t, "add")
}

// EditTarget returns the step a revision request refers to. Rules are tried in order.
func EditTarget(text string) (models.Step, bool) {
	t := Normalize(text)
	for _, rule := range models.EditKeywords {
		if containsAny(t, rule.Keywords...) {
			return rule.Step, true
		}
	}
	return 0, false
}

// IsPreviewRevision recognizes a request to redo the box preview.
func IsPreviewRevision(text string) bool {
	return containsAny(Normalize(text), "mockup", "ม็อคอัพ", "ม็อกอัพ", "ภาพ", "รูป", "กล่อง")
}

// IsSpecRevision recognizes a request to revisit price or specification.
func IsSpecRevision(text string) bool {
	return containsAny(Normalize(text), "ราคา", "สเปค", "สเปก", "ลูกเล่น", "วัสดุ", "price", "spec")
}
