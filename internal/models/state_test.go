package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestAdvanceResetsTransientState(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Unix(0, 0))
	s.CurrentStep = StepBoxType
	s.SubStep = SubStepBoxMaterial
	s.WaitingForConfirmation = true
	s.PartialData.BoxType = Ptr(BoxDieCut)

	s.Advance(nil)

	if s.CurrentStep != StepInner {
		t.Fatalf("expected step %v, got %v", StepInner, s.CurrentStep)
	}
	if s.SubStep != SubStepStart || s.WaitingForConfirmation || !s.PartialData.IsEmpty() {
		t.Errorf("advance did not reset sub-step, waiting and partial data: %+v", s)
	}
}

func TestAdvanceOverrideAndClamp(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Unix(0, 0))
	s.CurrentStep = StepBoxType
	s.Advance(Ptr(StepDimensions))
	if s.CurrentStep != StepDimensions {
		t.Errorf("expected override to land on %v, got %v", StepDimensions, s.CurrentStep)
	}

	s.CurrentStep = StepEnd
	s.Advance(nil)
	if s.CurrentStep != StepEnd {
		t.Errorf("expected last step to be absorbing, got %v", s.CurrentStep)
	}

	s.Advance(Ptr(Step(42)))
	if s.CurrentStep != LastStep {
		t.Errorf("expected clamp to %v, got %v", LastStep, s.CurrentStep)
	}
}

func TestEditRoundTrip(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Unix(0, 0))
	s.CurrentStep = StepCheckpoint1
	s.WaitingForConfirmation = true

	s.EnterEdit(StepDimensions, StepCheckpoint1, EditReplace)
	if !s.EditMode || s.CurrentStep != StepDimensions || s.WaitingForConfirmation {
		t.Fatalf("unexpected state after EnterEdit: %+v", s)
	}
	if s.EditTargetStep == nil || *s.EditTargetStep != StepDimensions {
		t.Fatalf("edit target not recorded")
	}

	s.PartialData.Quantity = Ptr(700)
	s.ExitEdit()
	if s.EditMode || s.EditTargetStep != nil || s.ReturnToCheckpoint != nil || s.EditAction != nil {
		t.Fatalf("edit fields not cleared: %+v", s)
	}
	if s.CurrentStep != StepCheckpoint1 {
		t.Errorf("expected return to %v, got %v", StepCheckpoint1, s.CurrentStep)
	}
	if !s.PartialData.IsEmpty() {
		t.Errorf("expected partial data cleared on exit")
	}
}

func TestMergeCollectedAppendAndReplace(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Unix(0, 0))
	s.MergeCollected(Requirements{Inner: []InnerItem{{Type: "air_bubble", Category: CategoryCushion}}})

	s.EnterEdit(StepInner, StepCheckpoint1, EditAppend)
	s.MergeCollected(Requirements{
		Inner:    []InnerItem{{Type: "aq_coating", Category: CategoryMoisture}},
		Quantity: Ptr(800),
	})
	if len(s.CollectedData.Inner) != 2 {
		t.Fatalf("expected appended inner list, got %+v", s.CollectedData.Inner)
	}
	if *s.CollectedData.Quantity != 800 {
		t.Errorf("expected scalar overwrite under append")
	}

	s.ExitEdit()
	s.EnterEdit(StepInner, StepCheckpoint1, EditReplace)
	s.MergeCollected(Requirements{Inner: []InnerItem{{Type: "pla_bio", Category: CategoryFoodGrade}}})
	want := []InnerItem{{Type: "pla_bio", Category: CategoryFoodGrade}}
	if !reflect.DeepEqual(s.CollectedData.Inner, want) {
		t.Errorf("expected replaced inner list %+v, got %+v", want, s.CollectedData.Inner)
	}
}

func TestShouldSkipInner(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Unix(0, 0))
	if s.ShouldSkipInner() {
		t.Errorf("no box type should not skip inner")
	}
	s.CollectedData.BoxType = Ptr(BoxRSC)
	if !s.ShouldSkipInner() {
		t.Errorf("rsc should skip inner")
	}
	s.CollectedData.BoxType = Ptr(BoxDieCut)
	if s.ShouldSkipInner() {
		t.Errorf("die-cut should not skip inner")
	}
}

func TestHistoryLimit(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Unix(0, 0))
	for i := 0; i < 6; i++ {
		s.AddMessage(RoleUser, "m", time.Unix(int64(i), 0))
	}
	if got := len(s.History(5)); got != 5 {
		t.Errorf("expected 5 messages, got %d", got)
	}
	if got := len(s.History(0)); got != 6 {
		t.Errorf("expected all messages, got %d", got)
	}
	if !s.LastActivity.Equal(time.Unix(5, 0)) {
		t.Errorf("expected last activity bumped, got %v", s.LastActivity)
	}
}

func TestResetKeepsIdentity(t *testing.T) {
	created := time.Unix(10, 0)
	s := NewConversationState("sess_1", "u1", created)
	s.CurrentStep = StepLogo
	s.CollectedData.ProductType = Ptr(ProductCosmetic)
	s.AddMessage(RoleUser, "hi", time.Unix(11, 0))

	s.Reset(time.Unix(12, 0))
	if s.SessionID != "sess_1" || s.UserID != "u1" || !s.CreatedAt.Equal(created) {
		t.Errorf("identity lost: %+v", s)
	}
	if s.CurrentStep != StepGreeting || !s.CollectedData.IsEmpty() || len(s.Messages) != 0 {
		t.Errorf("reset did not clear session: %+v", s)
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := NewConversationState("sess_1", "", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	s.CollectedData.Dimensions = &Dimensions{Width: 20, Length: 15, Height: 10}
	s.CollectedData.SpecialEffects = []Effect{{Type: "emboss", Category: CategoryStamping, HasBlock: Ptr(false)}}
	s.EnterEdit(StepDimensions, StepCheckpoint1, EditReplace)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ConversationState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, _ := json.Marshal(&back)
	if string(again) != string(data) {
		t.Errorf("state did not round trip:\n%s\n%s", data, again)
	}
}

func TestStepPhases(t *testing.T) {
	cases := map[Step]Phase{
		StepGreeting:       PhaseStructure,
		StepCheckpoint1:    PhaseStructure,
		StepMoodTone:       PhaseDesign,
		StepCheckpoint2:    PhaseDesign,
		StepGenerateMockup: PhaseFinalize,
		StepEnd:            PhaseFinalize,
		Step(0):            PhaseUnknown,
		Step(15):           PhaseUnknown,
	}
	for step, want := range cases {
		if got := step.Phase(); got != want {
			t.Errorf("%v: expected phase %v, got %v", step, want, got)
		}
	}
}

func TestFieldOwner(t *testing.T) {
	step, ok := FieldOwner(FieldFluteType)
	if !ok || step != StepDimensions {
		t.Errorf("expected flute_type owned by %v, got %v (%v)", StepDimensions, step, ok)
	}
	if _, ok := FieldOwner("nope"); ok {
		t.Errorf("unknown field should have no owner")
	}
}

func TestFlowErrorMatchesKind(t *testing.T) {
	err := NewFlowError(KindPricingComputation, "material", "unknown material", nil)
	if !errors.Is(err, ErrPricingComputation) {
		t.Errorf("expected errors.Is to match pricing sentinel")
	}
	if errors.Is(err, ErrValidationFailure) {
		t.Errorf("did not expect validation sentinel to match")
	}
	kind, ok := KindOf(fmt.Errorf("quote: %w", err))
	if !ok || kind != KindPricingComputation {
		t.Errorf("expected kind through wrap, got %v", kind)
	}
}
