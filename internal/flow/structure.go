package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lumopack/lumobot/internal/analysis"
	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/requirement"
)

// structureHandler serves greeting through the first checkpoint.
type structureHandler struct {
	*deps
}

func (h *structureHandler) Handle(ctx context.Context, text string, state *models.ConversationState) (models.StepResult, error) {
	switch state.CurrentStep {
	case models.StepGreeting:
		return h.greeting(ctx, text, state), nil
	case models.StepProductType:
		return h.productType(ctx, text, state), nil
	case models.StepBoxType:
		return h.boxType(ctx, text, state), nil
	case models.StepInner:
		return h.inner(ctx, text, state), nil
	case models.StepDimensions:
		return h.dimensions(ctx, text, state), nil
	case models.StepCheckpoint1:
		return checkpoint(text, state, structureSummary(state.CollectedData)), nil
	}
	return models.StepResult{}, routingError(models.PhaseStructure, state.CurrentStep)
}

// commit finishes a data step: in edit mode it returns to the checkpoint, otherwise it advances.
func commit(state *models.ConversationState, res models.StepResult) models.StepResult {
	if state.EditMode {
		res.ExitEdit = true
		return res
	}
	res.Advance = true
	return res
}

func (h *structureHandler) greeting(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	welcome := h.phrase(ctx, state, models.StepGreeting, welcomeText, text)
	return models.StepResult{ResponseText: welcome + "\n\n" + productQuestion, Advance: true}
}

func (h *structureHandler) productType(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	product, ok := extract.ProductType(text)
	if !ok {
		return h.reprompt(ctx, state, productMiss, productQuestion, text)
	}
	res := models.StepResult{FieldUpdates: &models.Requirements{ProductType: models.Ptr(product)}}
	if state.EditMode {
		res.ResponseText = fmt.Sprintf("อัปเดตประเภทสินค้าเป็น %s แล้วค่ะ ✅", label(productLabels, product))
	} else {
		res.ResponseText = fmt.Sprintf("รับทราบค่ะ สินค้าประเภท %s 📦\n\n%s", label(productLabels, product), boxQuestion)
	}
	return commit(state, res)
}

func isMenuNumber(text string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(text))
	return err == nil
}

func (h *structureHandler) boxType(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	if state.SubStep == models.SubStepBoxMaterial {
		box := models.StringValue(state.PartialData.BoxType)
		material, ok := extract.Material(text, box)
		if !ok {
			return models.Reply(materialMiss + "\n\n" + materialQuestion(box))
		}
		return h.commitBox(state, box, material)
	}

	box, ok := extract.BoxType(text)
	if !ok {
		return h.reprompt(ctx, state, boxMiss, boxQuestion, text)
	}
	if !isMenuNumber(text) {
		if material, ok := extract.Material(text, box); ok {
			return h.commitBox(state, box, material)
		}
	}
	return models.StepResult{
		ResponseText:   fmt.Sprintf("เลือกกล่อง %s นะคะ 👍\n\n%s", label(boxLabels, box), materialQuestion(box)),
		PartialUpdates: &models.Requirements{BoxType: models.Ptr(box)},
		SubStep:        models.Ptr(models.SubStepBoxMaterial),
	}
}

func (h *structureHandler) commitBox(state *models.ConversationState, box, material string) models.StepResult {
	updates := &models.Requirements{BoxType: models.Ptr(box), Material: models.Ptr(material)}
	if box == models.BoxRSC && len(state.CollectedData.Inner) > 0 {
		// RSC boxes carry no inner, so an earlier choice is dropped.
		updates.Inner = []models.InnerItem{}
	}
	res := models.StepResult{FieldUpdates: updates}
	chosen := fmt.Sprintf("กล่อง %s วัสดุ%s", label(boxLabels, box), shortMaterialLabel(material))
	switch {
	case state.EditMode:
		res.ResponseText = fmt.Sprintf("อัปเดตเป็น%s แล้วค่ะ ✅", chosen)
	case box == models.BoxRSC:
		res.ResponseText = fmt.Sprintf("รับทราบค่ะ %s ✨\n\n%s", chosen, dimsQuestion)
	default:
		res.ResponseText = fmt.Sprintf("รับทราบค่ะ %s ✨\n\n%s", chosen, innerQuestion())
	}
	return commit(state, res)
}

func (h *structureHandler) inner(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	items, status := extract.Inner(text)
	switch status {
	case extract.Skipped:
		res := models.StepResult{ResponseText: innerSkipped}
		if state.EditMode {
			if state.EditAction == nil || *state.EditAction == models.EditReplace {
				res.FieldUpdates = &models.Requirements{Inner: []models.InnerItem{}}
			}
			return commit(state, res)
		}
		res.ResponseText += "\n\n" + dimsQuestion
		return commit(state, res)
	case extract.Matched:
		res := models.StepResult{FieldUpdates: &models.Requirements{Inner: items}}
		if state.EditMode {
			res.ResponseText = fmt.Sprintf("อัปเดต Inner: %s แล้วค่ะ ✅", innerSummary(items))
		} else {
			res.ResponseText = fmt.Sprintf("รับทราบค่ะ Inner: %s 🛡️\n\n%s", innerSummary(items), dimsQuestion)
		}
		return commit(state, res)
	}
	return models.Reply(innerMiss + "\n\n" + innerQuestion())
}

// dimensionValues gathers what is known about the dimension step from the message,
// the staged partial data and, in edit mode, the committed data.
type dimensionValues struct {
	dims   *models.Dimensions
	qty    *int
	weight *float64
	flute  *string
}

func gatherDimensions(text string, state *models.ConversationState) (dimensionValues, bool) {
	var v dimensionValues
	fresh := false
	if d, ok := extract.Dimensions(text); ok {
		v.dims, fresh = &d, true
	}
	if q, ok := extract.Quantity(text); ok {
		v.qty, fresh = &q, true
	}
	if w, ok := extract.WeightKg(text); ok {
		v.weight, fresh = &w, true
	}
	if f, ok := extract.FluteType(text); ok {
		v.flute, fresh = &f, true
	}
	sources := []models.Requirements{state.PartialData}
	if state.EditMode {
		sources = append(sources, state.CollectedData)
	}
	for _, src := range sources {
		if v.dims == nil && src.Dimensions != nil {
			d := *src.Dimensions
			v.dims = &d
		}
		if v.qty == nil && src.Quantity != nil {
			q := *src.Quantity
			v.qty = &q
		}
		if v.weight == nil && src.WeightKg != nil {
			w := *src.WeightKg
			v.weight = &w
		}
		if v.flute == nil && src.FluteType != nil {
			f := *src.FluteType
			v.flute = &f
		}
	}
	return v, fresh
}

func (h *structureHandler) dimensions(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	if n, ok := extract.MentionedQuantity(text); ok && n < requirement.MinQuantity {
		staged := models.Requirements{}
		var b strings.Builder
		if d, ok := extract.Dimensions(text); ok {
			staged.Dimensions = &d
			fmt.Fprintf(&b, "รับทราบขนาด %s ซม. ค่ะ 📐", formatDimensions(d))
		}
		if w, ok := extract.WeightKg(text); ok {
			staged.WeightKg = &w
		}
		if f, ok := extract.FluteType(text); ok {
			staged.FluteType = &f
		}
		fmt.Fprintf(&b, belowMinimumText, formatCount(n))
		b.WriteString(askQuantity)
		return models.StepResult{ResponseText: strings.TrimSpace(b.String()), PartialUpdates: &staged}
	}

	v, fresh := gatherDimensions(text, state)
	if !fresh {
		return h.reprompt(ctx, state, dimsMiss, "", text)
	}

	if v.dims != nil {
		if err := requirement.ValidateDimensions(*v.dims); err != nil {
			slog.Debug("structureHandler.dimensions: rejected dimensions", "session", state.SessionID, "error", err)
			staged := models.Requirements{Quantity: v.qty, WeightKg: v.weight, FluteType: v.flute}
			return models.StepResult{
				ResponseText:   "⚠️ " + errorMessage(err) + askDimensions,
				PartialUpdates: &staged,
			}
		}
	}
	if v.qty != nil {
		if err := requirement.ValidateQuantity(*v.qty); err != nil {
			staged := models.Requirements{Dimensions: v.dims, WeightKg: v.weight, FluteType: v.flute}
			return models.StepResult{
				ResponseText:   "⚠️ " + errorMessage(err) + askQuantity,
				PartialUpdates: &staged,
			}
		}
	}

	if v.dims == nil || v.qty == nil {
		staged := models.Requirements{Dimensions: v.dims, Quantity: v.qty, WeightKg: v.weight, FluteType: v.flute}
		var b strings.Builder
		if v.dims != nil {
			fmt.Fprintf(&b, "รับทราบขนาด %s ซม. ค่ะ 📐", formatDimensions(*v.dims))
		}
		if v.qty != nil {
			fmt.Fprintf(&b, "รับทราบจำนวน %s ชิ้นค่ะ", formatCount(*v.qty))
		}
		if v.qty == nil {
			b.WriteString(askQuantity)
		}
		if v.dims == nil {
			b.WriteString(askDimensions)
		}
		return models.StepResult{ResponseText: strings.TrimSpace(b.String()), PartialUpdates: &staged}
	}

	updates := models.Requirements{Dimensions: v.dims, Quantity: v.qty, WeightKg: v.weight, FluteType: v.flute}
	var b strings.Builder
	fmt.Fprintf(&b, "รับทราบค่ะ 📐 ขนาด %s ซม. จำนวน %s ชิ้น", formatDimensions(*v.dims), formatCount(*v.qty))
	if v.weight != nil {
		report := analysis.Analyze(*v.dims, *v.weight, models.StringValue(v.flute))
		updates.StrengthWarning = models.Ptr(report.Status == analysis.StatusDanger)
		b.WriteString("\n\n" + analysis.FormatForChat(report))
		if report.Status == analysis.StatusDanger {
			if alt := analysis.FormatAlternatives(analysis.SuggestAlternatives(*v.dims, *v.weight, report.Flute.Code)); alt != "" {
				b.WriteString("\n\n" + alt)
			}
		}
	}

	res := models.StepResult{FieldUpdates: &updates}
	if !state.EditMode {
		preview := state.CollectedData
		preview.Merge(updates, models.EditReplace)
		b.WriteString("\n\n" + structureSummary(preview))
		res.PostAdvanceWaiting = true
	}
	res.ResponseText = b.String()
	return commit(state, res)
}
