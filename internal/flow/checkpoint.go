package flow

import (
	"fmt"

	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
)

// checkpoint serves both review stations. The first visit shows summary and waits;
// a waiting checkpoint reads a confirmation, a revision request or a bare field name.
func checkpoint(text string, state *models.ConversationState, summary string) models.StepResult {
	if !state.WaitingForConfirmation {
		return models.StepResult{ResponseText: summary, SetWaiting: true}
	}
	cp := state.CurrentStep

	// Rejection is tested first because polite particles also read as confirmation.
	if extract.IsRejection(text) {
		if target, ok := editTarget(text, state); ok {
			return enterEdit(text, target, cp)
		}
		hint := askWhichPart1
		if cp == models.StepCheckpoint2 {
			hint = askWhichPart1 + " / " + askWhichPart2
		}
		return models.Reply(askWhichPart + hint)
	}
	if extract.IsConfirmation(text) {
		if cp == models.StepCheckpoint1 {
			return models.StepResult{ResponseText: structureDone, Milestone: models.MilestoneStructureConfirmed, Advance: true}
		}
		return models.StepResult{ResponseText: designDone, Milestone: models.MilestoneDesignConfirmed, Advance: true}
	}
	if target, ok := editTarget(text, state); ok {
		return enterEdit(text, target, cp)
	}
	return models.Reply(checkpointUnclear)
}

// editTarget returns the data step named in text when it lies before the current
// checkpoint and applies to the chosen box.
func editTarget(text string, state *models.ConversationState) (models.Step, bool) {
	target, ok := extract.EditTarget(text)
	if !ok || target >= state.CurrentStep {
		return 0, false
	}
	if _, owns := models.StepFields[target]; !owns {
		return 0, false
	}
	if target == models.StepInner && state.ShouldSkipInner() {
		return 0, false
	}
	return target, true
}

func enterEdit(text string, target, cp models.Step) models.StepResult {
	action, verb := models.EditReplace, "แก้ไข"
	if extract.IsAddRequest(text) {
		action, verb = models.EditAppend, "เพิ่ม"
	}
	return models.StepResult{
		ResponseText: fmt.Sprintf(editEntered, verb) + "\n\n" + questionFor(target),
		EnterEdit:    &models.EditRequest{Target: target, Checkpoint: cp, Action: action},
	}
}
