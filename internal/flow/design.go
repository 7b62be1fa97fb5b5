package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
)

// designHandler serves mood and tone through the second checkpoint.
type designHandler struct {
	*deps
}

func (h *designHandler) Handle(ctx context.Context, text string, state *models.ConversationState) (models.StepResult, error) {
	switch state.CurrentStep {
	case models.StepMoodTone:
		return h.moodTone(text, state), nil
	case models.StepLogo:
		return h.logo(ctx, text, state), nil
	case models.StepSpecialEffects:
		return h.specialEffects(ctx, text, state), nil
	case models.StepCheckpoint2:
		return checkpoint(text, state, designSummary(state.SessionID, state.CollectedData)), nil
	}
	return models.StepResult{}, routingError(models.PhaseDesign, state.CurrentStep)
}

func (h *designHandler) moodTone(text string, state *models.ConversationState) models.StepResult {
	if text == "" || extract.IsSkip(text) {
		res := models.StepResult{ResponseText: moodSkipped}
		if !state.EditMode {
			res.ResponseText += "\n\n" + logoQuestion
		}
		return commit(state, res)
	}
	res := models.StepResult{FieldUpdates: &models.Requirements{MoodTone: models.Ptr(text)}}
	if state.EditMode {
		res.ResponseText = fmt.Sprintf("อัปเดต Mood & Tone เป็น \"%s\" แล้วค่ะ ✅", text)
	} else {
		res.ResponseText = fmt.Sprintf("สไตล์ \"%s\" น่าสนใจมากค่ะ 🎨\n\n%s", text, logoQuestion)
	}
	return commit(state, res)
}

func (h *designHandler) logo(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	if state.SubStep == models.SubStepLogoPositions {
		positions, ok := extract.LogoPositions(text)
		if !ok {
			return models.Reply(logoPositionMiss)
		}
		res := models.StepResult{FieldUpdates: &models.Requirements{HasLogo: models.Ptr(true), LogoPositions: positions}}
		if state.EditMode {
			res.ResponseText = fmt.Sprintf("อัปเดตตำแหน่งโลโก้: %s แล้วค่ะ ✅", joinLabels(logoLabels, positions))
		} else {
			res.ResponseText = fmt.Sprintf("รับทราบค่ะ โลโก้%s 👍\n\n%s", joinLabels(logoLabels, positions), effectsQuestion)
		}
		return commit(state, res)
	}

	hasLogo, ok := extract.HasLogo(text)
	if !ok {
		return h.reprompt(ctx, state, logoMiss, "", text)
	}
	if hasLogo {
		// Positions given with the yes answer are taken at once.
		if positions, ok := extract.LogoPositions(text); ok {
			res := models.StepResult{FieldUpdates: &models.Requirements{HasLogo: models.Ptr(true), LogoPositions: positions}}
			res.ResponseText = fmt.Sprintf("รับทราบค่ะ โลโก้%s 👍", joinLabels(logoLabels, positions))
			if !state.EditMode {
				res.ResponseText += "\n\n" + effectsQuestion
			}
			return commit(state, res)
		}
		return models.StepResult{ResponseText: logoPositionQuestion, SubStep: models.Ptr(models.SubStepLogoPositions)}
	}
	res := models.StepResult{
		ResponseText: noLogo,
		FieldUpdates: &models.Requirements{HasLogo: models.Ptr(false), LogoPositions: []string{}},
	}
	if !state.EditMode {
		res.ResponseText += "\n\n" + effectsQuestion
	}
	return commit(state, res)
}

func (h *designHandler) specialEffects(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	if state.SubStep == models.SubStepEffectsBlock {
		hasBlock, ok := extract.HasExistingBlock(text)
		if !ok {
			return models.Reply(blockMiss)
		}
		effects := make([]models.Effect, 0, len(state.PartialData.SpecialEffects))
		for _, e := range state.PartialData.SpecialEffects {
			if e.IsStamping() {
				e.HasBlock = models.Ptr(hasBlock)
			}
			effects = append(effects, e)
		}
		note := "ทางเราจะทำบล็อกปั๊มใหม่ให้นะคะ"
		if hasBlock {
			note = "ใช้บล็อกเดิมได้เลยค่ะ"
		}
		return h.commitEffects(state, effects, note)
	}

	effects, status := extract.SpecialEffects(text)
	switch status {
	case extract.Skipped:
		res := models.StepResult{ResponseText: effectsSkipped}
		if state.EditMode && (state.EditAction == nil || *state.EditAction == models.EditReplace) {
			res.FieldUpdates = &models.Requirements{SpecialEffects: []models.Effect{}}
		}
		return h.finishDesign(state, res, models.Requirements{})
	case extract.Miss:
		return h.reprompt(ctx, state, effectsMiss, "", text)
	}
	if extract.HasStamping(effects) {
		if hasBlock, ok := blockAnswer(text); ok {
			for i := range effects {
				if effects[i].IsStamping() {
					effects[i].HasBlock = models.Ptr(hasBlock)
				}
			}
			return h.commitEffects(state, effects, "")
		}
		return models.StepResult{
			ResponseText:   fmt.Sprintf("รับทราบค่ะ: %s ✨\n\n%s", effectsSummary(effects), blockQuestion),
			PartialUpdates: &models.Requirements{SpecialEffects: effects},
			SubStep:        models.Ptr(models.SubStepEffectsBlock),
		}
	}
	return h.commitEffects(state, effects, "")
}

// blockAnswer reads a block answer given together with the effects, which needs
// the explicit block keyword.
func blockAnswer(text string) (bool, bool) {
	t := extract.Normalize(text)
	if !strings.Contains(t, "บล็อก") && !strings.Contains(t, "block") {
		return false, false
	}
	return extract.HasExistingBlock(text)
}

func (h *designHandler) commitEffects(state *models.ConversationState, effects []models.Effect, note string) models.StepResult {
	updates := models.Requirements{SpecialEffects: effects}
	text := fmt.Sprintf("รับทราบค่ะ ลูกเล่นพิเศษ: %s ✨", effectsSummary(effects))
	if note != "" {
		text += " " + note
	}
	return h.finishDesign(state, models.StepResult{ResponseText: text, FieldUpdates: &updates}, updates)
}

// finishDesign commits the last design answer and, outside edit mode, shows the second
// checkpoint summary right away.
func (h *designHandler) finishDesign(state *models.ConversationState, res models.StepResult, updates models.Requirements) models.StepResult {
	if !state.EditMode {
		preview := state.CollectedData
		if res.FieldUpdates != nil {
			preview.Merge(updates, models.EditReplace)
		}
		res.ResponseText += "\n\n" + designSummary(state.SessionID, preview)
		res.PostAdvanceWaiting = true
	}
	return commit(state, res)
}
