package models

import "time"

// EditAction selects how an edit merges list fields.
type EditAction string

const (
	EditReplace EditAction = "replace"
	EditAppend  EditAction = "append"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Step      Step      `json:"step"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is the complete per-session interview state.
//
// Invariants: CurrentStep is within [FirstStep, LastStep]; EditMode is true exactly when
// EditTargetStep and EditAction are set; PartialData is empty after every Advance.
type ConversationState struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`

	CurrentStep Step    `json:"current_step"`
	SubStep     SubStep `json:"sub_step"`

	EditMode           bool        `json:"edit_mode"`
	EditTargetStep     *Step       `json:"edit_target_step,omitempty"`
	ReturnToCheckpoint *Step       `json:"return_to_checkpoint,omitempty"`
	EditAction         *EditAction `json:"edit_action,omitempty"`

	WaitingForConfirmation bool `json:"is_waiting_for_confirmation"`
	StructureConfirmed     bool `json:"structure_confirmed"`
	DesignConfirmed        bool `json:"design_confirmed"`
	Complete               bool `json:"is_complete"`
	OrderRecorded          bool `json:"order_recorded"`

	CollectedData Requirements `json:"collected_data"`
	PartialData   Requirements `json:"partial_data"`
	LastQuote     *Breakdown   `json:"last_quote,omitempty"`

	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewConversationState returns a fresh session positioned at the greeting.
func NewConversationState(sessionID, userID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID:    sessionID,
		UserID:       userID,
		CurrentStep:  StepGreeting,
		SubStep:      SubStepStart,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Advance moves to override when given, otherwise to the default next step, clamped to LastStep.
// It resets the sub-step, the waiting flag and the partial data.
func (s *ConversationState) Advance(override *Step) {
	next, ok := DefaultNextStep[s.CurrentStep]
	if !ok {
		next = s.CurrentStep + 1
	}
	if override != nil {
		next = *override
	}
	if next > LastStep {
		next = LastStep
	}
	if next < FirstStep {
		next = FirstStep
	}
	s.CurrentStep = next
	s.SubStep = SubStepStart
	s.WaitingForConfirmation = false
	s.PartialData = Requirements{}
}

// EnterEdit jumps to target while remembering the checkpoint to come back to.
func (s *ConversationState) EnterEdit(target, checkpoint Step, action EditAction) {
	s.EditMode = true
	s.EditTargetStep = &target
	s.ReturnToCheckpoint = &checkpoint
	s.EditAction = &action
	s.CurrentStep = target
	s.SubStep = SubStepStart
	s.WaitingForConfirmation = false
	s.PartialData = Requirements{}
}

// ExitEdit clears edit mode and returns to the remembered checkpoint, if any.
func (s *ConversationState) ExitEdit() {
	checkpoint := s.ReturnToCheckpoint
	s.EditMode = false
	s.EditTargetStep = nil
	s.ReturnToCheckpoint = nil
	s.EditAction = nil
	s.PartialData = Requirements{}
	if checkpoint != nil {
		s.CurrentStep = *checkpoint
		s.SubStep = SubStepStart
		s.WaitingForConfirmation = false
	}
}

// MergeCollected applies patch to the committed data using the active edit action.
func (s *ConversationState) MergeCollected(patch Requirements) {
	action := EditReplace
	if s.EditMode && s.EditAction != nil {
		action = *s.EditAction
	}
	s.CollectedData.Merge(patch, action)
}

// MergePartial stages patch in the partial data. Partial data always replaces.
func (s *ConversationState) MergePartial(patch Requirements) {
	s.PartialData.Merge(patch, EditReplace)
}

// ShouldSkipInner reports whether the inner step is bypassed for the chosen box type.
func (s *ConversationState) ShouldSkipInner() bool {
	return StringValue(s.CollectedData.BoxType) == BoxRSC
}

// AddMessage appends to the conversation log and bumps LastActivity.
func (s *ConversationState) AddMessage(role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Step: s.CurrentStep, Timestamp: now})
	s.LastActivity = now
}

// History returns up to limit of the most recent messages. A limit of zero or less returns all.
func (s *ConversationState) History(limit int) []Message {
	if limit <= 0 || limit >= len(s.Messages) {
		return append([]Message(nil), s.Messages...)
	}
	return append([]Message(nil), s.Messages[len(s.Messages)-limit:]...)
}

// Reset returns the session to the greeting with empty data, keeping its identity.
func (s *ConversationState) Reset(now time.Time) {
	*s = ConversationState{
		SessionID:    s.SessionID,
		UserID:       s.UserID,
		CurrentStep:  StepGreeting,
		CreatedAt:    s.CreatedAt,
		LastActivity: now,
	}
}

// Summary returns the listing view of the session.
func (s *ConversationState) Summary() SessionSummary {
	return SessionSummary{
		SessionID:    s.SessionID,
		UserID:       s.UserID,
		CurrentStep:  s.CurrentStep,
		Complete:     s.CurrentStep >= StepEnd,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}
