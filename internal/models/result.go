package models

// Milestone names a monotonic flag a step result may raise.
type Milestone int

const (
	MilestoneNone Milestone = iota
	MilestoneStructureConfirmed
	MilestoneDesignConfirmed
	MilestoneComplete
)

// EditRequest asks the orchestrator to enter edit mode.
type EditRequest struct {
	Target     Step
	Checkpoint Step
	Action     EditAction
}

// StepResult is the value a step handler returns. Handlers never mutate state;
// the orchestrator applies a result in a fixed order.
type StepResult struct {
	ResponseText string

	FieldUpdates   *Requirements
	PartialUpdates *Requirements
	SubStep        *SubStep

	// EnterEdit switches to edit mode before any advance is considered.
	EnterEdit *EditRequest
	// ExitEdit returns to the remembered checkpoint when edit mode is active.
	ExitEdit bool

	Advance            bool
	NextStepOverride   *Step
	PostAdvanceWaiting bool

	// SetWaiting raises the checkpoint flag without advancing.
	SetWaiting bool

	Milestone     Milestone
	Quote         *Breakdown
	OrderRecorded bool
}

// Reply returns a result that only answers with text.
func Reply(text string) StepResult {
	return StepResult{ResponseText: text}
}
