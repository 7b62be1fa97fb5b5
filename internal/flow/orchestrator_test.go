package flow

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/util"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakePhraser struct {
	out     string
	err     error
	calls   int
	prompts []string
}

func (f *fakePhraser) Generate(ctx context.Context, systemPrompt, userPrompt string, history []models.Message) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	return f.out, f.err
}

type fakePricer struct {
	quote models.Breakdown
	err   error
	calls int
	last  models.PricingRequest
}

func (f *fakePricer) Estimate(req models.PricingRequest) (models.Breakdown, error) {
	f.calls++
	f.last = req
	return f.quote, f.err
}

type fakeOrders struct {
	saved []models.Order
	err   error
}

func (f *fakeOrders) SaveOrder(ctx context.Context, order models.Order) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, order)
	return nil
}

func sampleQuote() models.Breakdown {
	return models.Breakdown{
		Quantity:   1000,
		Box:        models.LineItem{Code: models.MaterialCorrugated, Name: "กระดาษลูกฟูก", PricePerBox: 3.38, Total: 3378},
		Subtotal:   3378,
		VATRate:    0.07,
		VAT:        236.46,
		GrandTotal: 3614.46,
		PerBox:     3.61,
	}
}

func newTestOrchestrator(pricer Pricer, opts ...Option) *Orchestrator {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewOrchestrator(pricer, opts...)
}

// structureState is a session waiting at the first checkpoint.
func structureState() *models.ConversationState {
	s := models.NewConversationState("sess_test", "user-1", testNow)
	s.CurrentStep = models.StepCheckpoint1
	s.WaitingForConfirmation = true
	s.CollectedData = models.Requirements{
		ProductType: models.Ptr(models.ProductGeneral),
		BoxType:     models.Ptr(models.BoxDieCut),
		Material:    models.Ptr(models.MaterialCorrugated),
		Inner:       []models.InnerItem{{Type: "air_bubble", Category: models.CategoryCushion}},
		Dimensions:  &models.Dimensions{Width: 20, Length: 15, Height: 10},
		Quantity:    models.Ptr(1000),
	}
	return s
}

func send(t *testing.T, o *Orchestrator, state *models.ConversationState, text string) string {
	t.Helper()
	reply, err := o.ProcessMessage(context.Background(), text, state)
	if err != nil {
		t.Fatalf("ProcessMessage(%q): unexpected error: %v", text, err)
	}
	return reply
}

func TestDieCutPathReachesFirstCheckpoint(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_e2e", "", testNow)

	steps := []struct {
		in   string
		step models.Step
	}{
		{"สวัสดีค่ะ", models.StepProductType},
		{"general", models.StepBoxType},
		{"die-cut", models.StepBoxType},
		{"ลูกฟูก", models.StepInner},
		{"ไม่ต้องการ", models.StepDimensions},
		{"20x15x10", models.StepDimensions},
		{"1000 pieces", models.StepCheckpoint1},
	}
	for _, s := range steps {
		send(t, o, state, s.in)
		if state.CurrentStep != s.step {
			t.Fatalf("after %q: expected step %s, got %s", s.in, s.step, state.CurrentStep)
		}
	}

	if !state.WaitingForConfirmation {
		t.Error("expected checkpoint to wait for confirmation")
	}
	fields := state.CollectedData.SetFields()
	if len(fields) != 5 {
		t.Errorf("expected 5 committed fields, got %v", fields)
	}
	if !state.PartialData.IsEmpty() {
		t.Errorf("expected empty partial data, got %+v", state.PartialData)
	}
	if got := models.StringValue(state.CollectedData.Material); got != models.MaterialCorrugated {
		t.Errorf("expected corrugated material, got %q", got)
	}
	if len(state.Messages) != 2*len(steps) {
		t.Errorf("expected %d logged messages, got %d", 2*len(steps), len(state.Messages))
	}
}

func TestStagedDimensionsKeepSubStepData(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_dims", "", testNow)
	state.CurrentStep = models.StepDimensions

	reply := send(t, o, state, "20x15x10")
	if state.PartialData.Dimensions == nil || state.CollectedData.Dimensions != nil {
		t.Fatalf("expected dimensions staged only, got partial=%+v collected=%+v", state.PartialData, state.CollectedData)
	}
	if !strings.Contains(reply, "20×15×10") || !strings.Contains(reply, "จำนวน") {
		t.Errorf("expected acknowledgement and quantity question, got %q", reply)
	}
}

func TestRSCSkipsInner(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_rsc", "", testNow)
	state.CurrentStep = models.StepBoxType
	state.CollectedData.ProductType = models.Ptr(models.ProductGeneral)

	send(t, o, state, "RSC ลูกฟูก")
	if state.CurrentStep != models.StepDimensions {
		t.Fatalf("expected rsc to skip to dimensions, got %s", state.CurrentStep)
	}
	if models.StringValue(state.CollectedData.BoxType) != models.BoxRSC {
		t.Errorf("expected rsc committed, got %+v", state.CollectedData)
	}
}

func TestBoxTypeAsksForMaterial(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_box", "", testNow)
	state.CurrentStep = models.StepBoxType

	reply := send(t, o, state, "2")
	if state.SubStep != models.SubStepBoxMaterial || models.StringValue(state.PartialData.BoxType) != models.BoxDieCut {
		t.Fatalf("expected die-cut staged with material sub-step, got sub=%d partial=%+v", state.SubStep, state.PartialData)
	}
	if !strings.Contains(reply, "อาร์ต") {
		t.Errorf("expected die-cut material menu, got %q", reply)
	}

	send(t, o, state, "โลหะ")
	if state.CurrentStep != models.StepBoxType || state.SubStep != models.SubStepBoxMaterial {
		t.Fatalf("expected to stay on material choice, got step %s sub %d", state.CurrentStep, state.SubStep)
	}

	send(t, o, state, "3")
	if state.CurrentStep != models.StepInner || models.StringValue(state.CollectedData.Material) != models.MaterialArt {
		t.Errorf("expected art material and inner step, got step %s data %+v", state.CurrentStep, state.CollectedData)
	}
}

func TestUnrecognizedInputIsIdempotent(t *testing.T) {
	fresh := func(step models.Step) *models.ConversationState {
		s := models.NewConversationState("sess_idem", "", testNow)
		s.CurrentStep = step
		return s
	}
	cases := []struct {
		name  string
		state func() *models.ConversationState
	}{
		{"product", func() *models.ConversationState { return fresh(models.StepProductType) }},
		{"box", func() *models.ConversationState { return fresh(models.StepBoxType) }},
		{"material", func() *models.ConversationState {
			s := fresh(models.StepBoxType)
			s.SubStep = models.SubStepBoxMaterial
			s.PartialData.BoxType = models.Ptr(models.BoxDieCut)
			return s
		}},
		{"inner", func() *models.ConversationState {
			s := fresh(models.StepInner)
			s.CollectedData.ProductType = models.Ptr(models.ProductGeneral)
			s.CollectedData.BoxType = models.Ptr(models.BoxDieCut)
			s.CollectedData.Material = models.Ptr(models.MaterialCorrugated)
			return s
		}},
		{"dimensions", func() *models.ConversationState { return fresh(models.StepDimensions) }},
		{"logo", func() *models.ConversationState {
			s := structureState()
			s.WaitingForConfirmation = false
			s.StructureConfirmed = true
			s.CurrentStep = models.StepLogo
			return s
		}},
		{"effects", func() *models.ConversationState {
			s := structureState()
			s.WaitingForConfirmation = false
			s.StructureConfirmed = true
			s.CurrentStep = models.StepSpecialEffects
			return s
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := newTestOrchestrator(&fakePricer{})
			state := c.state()
			step, sub := state.CurrentStep, state.SubStep
			collected, _ := json.Marshal(state.CollectedData)
			partial, _ := json.Marshal(state.PartialData)

			first := send(t, o, state, "อืมมม")
			second := send(t, o, state, "อืมมม")
			if first != second {
				t.Errorf("expected identical re-prompts, got %q then %q", first, second)
			}
			if state.CurrentStep != step || state.SubStep != sub {
				t.Errorf("expected to stay at %s/%d, got %s/%d", step, sub, state.CurrentStep, state.SubStep)
			}
			if got, _ := json.Marshal(state.CollectedData); string(got) != string(collected) {
				t.Errorf("collected data changed: %s", got)
			}
			if got, _ := json.Marshal(state.PartialData); string(got) != string(partial) {
				t.Errorf("partial data changed: %s", got)
			}
		})
	}
}

func TestInnerStepKeepsDimensionsAnswer(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_inner", "", testNow)
	state.CurrentStep = models.StepInner
	state.CollectedData.ProductType = models.Ptr(models.ProductFoodGrade)
	state.CollectedData.BoxType = models.Ptr(models.BoxDieCut)
	state.CollectedData.Material = models.Ptr(models.MaterialCorrugated)

	send(t, o, state, "ขนาด 20×15×10 ซม.")
	if state.CurrentStep != models.StepInner || len(state.CollectedData.Inner) != 0 {
		t.Errorf("expected to stay at inner with nothing committed, got %s inner=%+v", state.CurrentStep, state.CollectedData.Inner)
	}
}

func TestCheckpointConfirm(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()

	reply := send(t, o, state, "ถูกต้องค่ะ")
	if state.CurrentStep != models.StepMoodTone || !state.StructureConfirmed {
		t.Fatalf("expected step 7 with structure confirmed, got %s confirmed=%v", state.CurrentStep, state.StructureConfirmed)
	}
	if !strings.Contains(reply, "สไตล์") {
		t.Errorf("expected mood question, got %q", reply)
	}
}

func TestCheckpointEditReturnsToCheckpoint(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()

	send(t, o, state, "แก้ไขขนาด")
	if !state.EditMode || state.CurrentStep != models.StepDimensions {
		t.Fatalf("expected edit mode at dimensions, got edit=%v step=%s", state.EditMode, state.CurrentStep)
	}
	if *state.EditAction != models.EditReplace || *state.ReturnToCheckpoint != models.StepCheckpoint1 {
		t.Fatalf("unexpected edit bookkeeping: action=%v checkpoint=%v", *state.EditAction, *state.ReturnToCheckpoint)
	}

	reply := send(t, o, state, "30x20x15")
	if state.EditMode || state.CurrentStep != models.StepCheckpoint1 {
		t.Fatalf("expected return to checkpoint, got edit=%v step=%s", state.EditMode, state.CurrentStep)
	}
	if !state.WaitingForConfirmation {
		t.Error("expected re-rendered checkpoint to wait")
	}
	if d := state.CollectedData.Dimensions; d == nil || d.Width != 30 || d.Height != 15 {
		t.Errorf("expected dimensions 30x20x15, got %+v", d)
	}
	if q := state.CollectedData.Quantity; q == nil || *q != 1000 {
		t.Errorf("expected quantity kept from collected data, got %v", q)
	}
	if !strings.Contains(reply, "📋") || !strings.Contains(reply, "30×20×15") {
		t.Errorf("expected updated summary in reply, got %q", reply)
	}
}

func TestCheckpointAppendInner(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()

	send(t, o, state, "เพิ่ม inner")
	if state.CurrentStep != models.StepInner || *state.EditAction != models.EditAppend {
		t.Fatalf("expected append edit at inner, got step=%s action=%v", state.CurrentStep, state.EditAction)
	}
	send(t, o, state, "กระดาษฝอย")
	if state.CurrentStep != models.StepCheckpoint1 {
		t.Fatalf("expected return to checkpoint, got %s", state.CurrentStep)
	}
	got := state.CollectedData.Inner
	if len(got) != 2 || got[0].Type != "air_bubble" || got[1].Type != "shredded_paper" {
		t.Errorf("expected appended inner list, got %+v", got)
	}
}

func TestCheckpointUnrecognizedReply(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()

	reply := send(t, o, state, "อืม")
	if reply != checkpointUnclear || !state.WaitingForConfirmation {
		t.Fatalf("expected re-ask still waiting, got %q waiting=%v", reply, state.WaitingForConfirmation)
	}
	if state.CurrentStep != models.StepCheckpoint1 {
		t.Fatalf("expected to stay at checkpoint, got %s", state.CurrentStep)
	}

	send(t, o, state, "ถูกต้อง")
	if !state.StructureConfirmed || state.CurrentStep == models.StepCheckpoint1 {
		t.Errorf("expected confirmation after the re-ask, got step %s confirmed=%v", state.CurrentStep, state.StructureConfirmed)
	}
}

func TestCheckpointRejectionWithoutTarget(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()

	reply := send(t, o, state, "ไม่ถูกต้อง")
	if !strings.HasPrefix(reply, "ไม่เป็นไรค่ะ") || !state.WaitingForConfirmation || state.EditMode {
		t.Fatalf("expected which-part question, got %q waiting=%v edit=%v", reply, state.WaitingForConfirmation, state.EditMode)
	}
	send(t, o, state, "ขนาด")
	if !state.EditMode || state.CurrentStep != models.StepDimensions {
		t.Errorf("expected bare field name to enter edit, got edit=%v step=%s", state.EditMode, state.CurrentStep)
	}
}

func TestCheckpointIgnoresLaterSteps(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()

	send(t, o, state, "แก้ไขโลโก้")
	if state.EditMode || state.CurrentStep != models.StepCheckpoint1 {
		t.Errorf("expected no edit for a design field at the first checkpoint, got edit=%v step=%s", state.EditMode, state.CurrentStep)
	}
}

func TestRoutingFailureLeavesStateUntouched(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := structureState()
	state.CurrentStep = models.Step(42)
	before, _ := json.Marshal(state)

	reply, err := o.ProcessMessage(context.Background(), "ถูกต้อง", state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != RoutingApology {
		t.Errorf("expected apology, got %q", reply)
	}
	after, _ := json.Marshal(state)
	if string(before) != string(after) {
		t.Errorf("state changed on routing failure")
	}
}

func TestDimensionsBelowMinimum(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_min", "", testNow)
	state.CurrentStep = models.StepDimensions

	reply := send(t, o, state, "20x15x10 300 ชิ้น")
	if state.CurrentStep != models.StepDimensions || state.CollectedData.Quantity != nil {
		t.Fatalf("expected to stay at dimensions without quantity, got %s %+v", state.CurrentStep, state.CollectedData)
	}
	if !strings.Contains(reply, "ต่ำกว่าขั้นต่ำ") {
		t.Errorf("expected minimum warning, got %q", reply)
	}
	if state.PartialData.Dimensions == nil {
		t.Error("expected dimensions staged")
	}
}

func TestDimensionsStrengthAnalysis(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{})
	state := models.NewConversationState("sess_strength", "", testNow)
	state.CurrentStep = models.StepDimensions

	reply := send(t, o, state, "20x15x10 1000 ชิ้น 2 kg")
	if state.CurrentStep != models.StepCheckpoint1 {
		t.Fatalf("expected checkpoint, got %s", state.CurrentStep)
	}
	c := state.CollectedData
	if c.WeightKg == nil || *c.WeightKg != 2 {
		t.Errorf("expected weight committed, got %v", c.WeightKg)
	}
	if c.FluteType != nil {
		t.Errorf("expected no flute committed, got %v", *c.FluteType)
	}
	if c.StrengthWarning == nil || !*c.StrengthWarning {
		t.Errorf("expected strength warning for 2 kg on flute C")
	}
	if !strings.Contains(reply, "ลอน A") {
		t.Errorf("expected flute recommendation, got %q", reply)
	}
}

func TestDesignPhaseThroughQuote(t *testing.T) {
	pricer := &fakePricer{quote: sampleQuote()}
	o := newTestOrchestrator(pricer)
	state := structureState()
	state.CurrentStep = models.StepMoodTone
	state.WaitingForConfirmation = false
	state.StructureConfirmed = true

	send(t, o, state, "มินิมอล")
	send(t, o, state, "มีโลโก้ ด้านบน")
	if state.CurrentStep != models.StepSpecialEffects {
		t.Fatalf("expected effects step, got %s", state.CurrentStep)
	}
	send(t, o, state, "ปั๊มฟอยล์")
	if state.SubStep != models.SubStepEffectsBlock {
		t.Fatalf("expected block question, got sub-step %d", state.SubStep)
	}
	send(t, o, state, "ไม่เคย")
	if state.CurrentStep != models.StepCheckpoint2 || !state.WaitingForConfirmation {
		t.Fatalf("expected waiting second checkpoint, got %s waiting=%v", state.CurrentStep, state.WaitingForConfirmation)
	}

	reply := send(t, o, state, "ถูกต้อง")
	if state.CurrentStep != models.StepConfirmOrder || !state.DesignConfirmed {
		t.Fatalf("expected confirm-order step, got %s", state.CurrentStep)
	}
	if state.LastQuote == nil || state.LastQuote.GrandTotal != 3614.46 {
		t.Errorf("expected quote stored, got %+v", state.LastQuote)
	}
	if !strings.Contains(reply, "🖼️") || !strings.Contains(reply, "3,614.46") {
		t.Errorf("expected preview and quote, got %q", reply)
	}
	want := []models.StampingSpec{{Type: "foil_regular", HasBlock: false}}
	if !reflect.DeepEqual(pricer.last.Stampings, want) {
		t.Errorf("expected stampings %+v, got %+v", want, pricer.last.Stampings)
	}
	if pricer.last.Inner == nil || *pricer.last.Inner != "air_bubble" {
		t.Errorf("expected air_bubble inner in pricing request, got %v", pricer.last.Inner)
	}
	if got := state.CollectedData.LogoPositions; !reflect.DeepEqual(got, []string{"top"}) {
		t.Errorf("expected top logo, got %v", got)
	}
}

func TestMockupPricingFailureRetries(t *testing.T) {
	pricer := &fakePricer{err: models.NewFlowError(models.KindPricingComputation, "material", "unknown material", nil)}
	o := newTestOrchestrator(pricer)
	state := structureState()
	state.CurrentStep = models.StepCheckpoint2

	reply := send(t, o, state, "ถูกต้อง")
	if state.CurrentStep != models.StepGenerateQuote {
		t.Fatalf("expected quote retry step, got %s", state.CurrentStep)
	}
	if !strings.Contains(reply, "unknown material") {
		t.Errorf("expected error detail, got %q", reply)
	}

	pricer.err = nil
	pricer.quote = sampleQuote()
	send(t, o, state, "ลองใหม่")
	if state.CurrentStep != models.StepConfirmOrder || state.LastQuote == nil {
		t.Errorf("expected confirm-order with quote after retry, got %s", state.CurrentStep)
	}
}

func TestQuoteRetryRevision(t *testing.T) {
	o := newTestOrchestrator(&fakePricer{err: errors.New("down")})
	state := structureState()
	state.CurrentStep = models.StepGenerateQuote
	state.WaitingForConfirmation = false

	reply := send(t, o, state, "แก้ไขรายละเอียด")
	if state.CurrentStep != models.StepCheckpoint2 || !state.WaitingForConfirmation {
		t.Fatalf("expected second checkpoint, got %s", state.CurrentStep)
	}
	if !strings.Contains(reply, "📋") {
		t.Errorf("expected summary, got %q", reply)
	}
}

func TestConfirmOrderRecordsOnce(t *testing.T) {
	orders := &fakeOrders{}
	o := newTestOrchestrator(&fakePricer{}, WithOrderSaver(orders), WithOrderIDs(func() string { return "ord_1" }))
	state := structureState()
	state.CurrentStep = models.StepConfirmOrder
	q := sampleQuote()
	state.LastQuote = &q

	reply := send(t, o, state, "ยืนยัน")
	if state.CurrentStep != models.StepEnd || !state.Complete || !state.OrderRecorded {
		t.Fatalf("expected recorded end state, got step=%s complete=%v recorded=%v", state.CurrentStep, state.Complete, state.OrderRecorded)
	}
	if !strings.Contains(reply, "📌 หมายเลขอ้างอิง: sess_test") {
		t.Errorf("expected reference number, got %q", reply)
	}
	if len(orders.saved) != 1 {
		t.Fatalf("expected 1 saved order, got %d", len(orders.saved))
	}
	saved := orders.saved[0]
	if saved.ID != "ord_1" || saved.Deposit != 1807.23 || saved.Status != models.OrderStatusPending {
		t.Errorf("unexpected order %+v", saved)
	}

	reply = send(t, o, state, "ขอบคุณค่ะ")
	if len(orders.saved) != 1 {
		t.Errorf("expected order saved once, got %d", len(orders.saved))
	}
	if !strings.Contains(reply, "บันทึกไว้แล้ว") {
		t.Errorf("expected already-recorded reply, got %q", reply)
	}
}

func TestConfirmOrderSaveFailure(t *testing.T) {
	orders := &fakeOrders{err: errors.New("db down")}
	o := newTestOrchestrator(&fakePricer{}, WithOrderSaver(orders))
	state := structureState()
	state.CurrentStep = models.StepConfirmOrder
	q := sampleQuote()
	state.LastQuote = &q

	send(t, o, state, "ยืนยัน")
	if state.CurrentStep != models.StepEnd || state.OrderRecorded {
		t.Errorf("expected end without recorded order, got step=%s recorded=%v", state.CurrentStep, state.OrderRecorded)
	}
}

func TestConfirmOrderRevisions(t *testing.T) {
	pricer := &fakePricer{quote: sampleQuote()}
	o := newTestOrchestrator(pricer)
	state := structureState()
	state.CurrentStep = models.StepConfirmOrder

	send(t, o, state, "แก้ไข Mockup")
	if state.CurrentStep != models.StepConfirmOrder || pricer.calls != 1 {
		t.Fatalf("expected preview regenerated, got step=%s calls=%d", state.CurrentStep, pricer.calls)
	}

	send(t, o, state, "แก้ไขสเปค")
	if state.CurrentStep != models.StepCheckpoint2 || !state.WaitingForConfirmation {
		t.Fatalf("expected second checkpoint, got %s waiting=%v", state.CurrentStep, state.WaitingForConfirmation)
	}

	state.CurrentStep = models.StepConfirmOrder
	if reply := send(t, o, state, "ไม่แน่ใจ"); reply != confirmUnclear {
		t.Errorf("expected unclear reply, got %q", reply)
	}
}

func TestPhraserGreetingAndFallback(t *testing.T) {
	phraser := &fakePhraser{out: "สวัสดีค่ะ ลูโม่ยินดีช่วยค่ะ"}
	o := newTestOrchestrator(&fakePricer{}, WithPhraser(phraser))
	state := models.NewConversationState("sess_phrase", "", testNow)

	reply := send(t, o, state, "hello")
	if !strings.HasPrefix(reply, "สวัสดีค่ะ ลูโม่ยินดีช่วยค่ะ") || !strings.Contains(reply, productQuestion) {
		t.Errorf("expected phrased greeting followed by question, got %q", reply)
	}

	phraser.err = errors.New("quota")
	state = models.NewConversationState("sess_phrase2", "", testNow)
	reply = send(t, o, state, "hello")
	if !strings.HasPrefix(reply, welcomeText) {
		t.Errorf("expected fixed greeting on phraser failure, got %q", reply)
	}

	phraser.err = nil
	send(t, o, state, "ไม่รู้สิ")
	if state.CurrentStep != models.StepProductType {
		t.Errorf("expected to stay on product type, got %s", state.CurrentStep)
	}
	if phraser.calls != 3 {
		t.Errorf("expected phraser for greeting and re-prompt, got %d calls", phraser.calls)
	}
}

func TestHandlersDoNotMutateState(t *testing.T) {
	d := &deps{pricer: &fakePricer{quote: sampleQuote()}, now: func() time.Time { return testNow }, orderID: util.NewOrderID}
	cases := []struct {
		step models.Step
		sub  models.SubStep
		text string
	}{
		{models.StepProductType, 0, "เครื่องสำอาง"},
		{models.StepBoxType, 0, "die-cut"},
		{models.StepDimensions, 0, "20x15x10 1000 ชิ้น 2 kg"},
		{models.StepCheckpoint1, 0, "แก้ไขขนาด"},
		{models.StepLogo, 0, "มี"},
		{models.StepSpecialEffects, 0, "เคลือบเงา ปั๊มนูน"},
		{models.StepGenerateMockup, 0, ""},
	}
	for _, c := range cases {
		state := structureState()
		state.CurrentStep = c.step
		state.SubStep = c.sub
		before, _ := json.Marshal(state)

		h := map[models.Phase]PhaseHandler{
			models.PhaseStructure: &structureHandler{d},
			models.PhaseDesign:    &designHandler{d},
			models.PhaseFinalize:  &finalizeHandler{d},
		}[c.step.Phase()]
		if _, err := h.Handle(context.Background(), c.text, state); err != nil {
			t.Fatalf("step %s: unexpected error: %v", c.step, err)
		}
		after, _ := json.Marshal(state)
		if string(before) != string(after) {
			t.Errorf("step %s: handler mutated state", c.step)
		}
	}
}

func TestPhaseHandlerRejectsForeignStep(t *testing.T) {
	d := &deps{now: time.Now}
	state := structureState()
	state.CurrentStep = models.StepLogo
	_, err := (&structureHandler{d}).Handle(context.Background(), "มี", state)
	if kind, ok := models.KindOf(err); !ok || kind != models.KindRouting {
		t.Errorf("expected routing error, got %v", err)
	}
}
