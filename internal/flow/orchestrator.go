package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/util"
)

// maxAutoRuns bounds how many steps may run on entry within one turn.
const maxAutoRuns = 3

// PhaseHandler serves every step of one phase.
type PhaseHandler interface {
	Handle(ctx context.Context, text string, state *models.ConversationState) (models.StepResult, error)
}

// Orchestrator routes a message to the handler of the current phase and applies its result.
type Orchestrator struct {
	deps     *deps
	handlers map[models.Phase]PhaseHandler
}

// NewOrchestrator creates an Orchestrator that prices quotes with pricer.
func NewOrchestrator(pricer Pricer, opts ...Option) *Orchestrator {
	cfg := Opts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &deps{
		phraser: cfg.Phraser,
		pricer:  pricer,
		orders:  cfg.Orders,
		now:     cfg.Clock,
		orderID: cfg.OrderID,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.orderID == nil {
		d.orderID = util.NewOrderID
	}
	return &Orchestrator{
		deps: d,
		handlers: map[models.Phase]PhaseHandler{
			models.PhaseStructure: &structureHandler{d},
			models.PhaseDesign:    &designHandler{d},
			models.PhaseFinalize:  &finalizeHandler{d},
		},
	}
}

// ProcessMessage runs one customer turn against state and returns the reply.
// A routing failure leaves state untouched and answers with RoutingApology.
func (o *Orchestrator) ProcessMessage(ctx context.Context, text string, state *models.ConversationState) (string, error) {
	if state == nil {
		return "", errors.New("conversation state is nil")
	}
	text = strings.TrimSpace(text)
	startStep := state.CurrentStep

	res, err := o.dispatch(ctx, text, state)
	if err != nil {
		slog.Error("Orchestrator.ProcessMessage: routing failed", "session", state.SessionID, "step", int(startStep), "error", err)
		return RoutingApology, nil
	}

	now := o.deps.now()
	state.AddMessage(models.RoleUser, text, now)
	o.apply(state, res)
	replies := []string{res.ResponseText}

	prev := startStep
	for i := 0; i < maxAutoRuns && o.runsOnEntry(prev, state); i++ {
		prev = state.CurrentStep
		slog.Debug("Orchestrator.ProcessMessage: running step on entry", "session", state.SessionID, "step", state.CurrentStep.String())
		next, err := o.dispatch(ctx, "", state)
		if err != nil {
			slog.Error("Orchestrator.ProcessMessage: entry run failed", "session", state.SessionID, "step", int(state.CurrentStep), "error", err)
			break
		}
		o.apply(state, next)
		replies = append(replies, next.ResponseText)
	}

	reply := joinReplies(replies)
	state.AddMessage(models.RoleAssistant, reply, o.deps.now())
	slog.Debug("Orchestrator.ProcessMessage: turn complete", "session", state.SessionID, "from", startStep.String(), "to", state.CurrentStep.String())
	return reply, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, text string, state *models.ConversationState) (models.StepResult, error) {
	h, err := o.phaseFor(state.CurrentStep)
	if err != nil {
		return models.StepResult{}, err
	}
	return h.Handle(ctx, text, state)
}

func (o *Orchestrator) phaseFor(step models.Step) (PhaseHandler, error) {
	h, ok := o.handlers[step.Phase()]
	if !ok {
		return nil, models.NewFlowError(models.KindRouting, "", fmt.Sprintf("no handler for step %d", int(step)), nil)
	}
	return h, nil
}

// runsOnEntry reports whether the step just entered produces output without input:
// preview, closing, and a checkpoint that still has to show its summary.
func (o *Orchestrator) runsOnEntry(prev models.Step, state *models.ConversationState) bool {
	if state.CurrentStep == prev {
		return false
	}
	switch {
	case state.CurrentStep == models.StepGenerateMockup, state.CurrentStep == models.StepEnd:
		return true
	case state.CurrentStep.IsCheckpoint():
		return !state.WaitingForConfirmation
	}
	return false
}

// apply mutates state according to res in a fixed order: data, sub-step, milestones,
// waiting flag, then at most one of enter edit, exit edit or advance.
func (o *Orchestrator) apply(state *models.ConversationState, res models.StepResult) {
	if res.FieldUpdates != nil {
		state.MergeCollected(*res.FieldUpdates)
	}
	if res.PartialUpdates != nil {
		state.MergePartial(*res.PartialUpdates)
	}
	if res.SubStep != nil {
		state.SubStep = *res.SubStep
	}
	if res.Quote != nil {
		q := *res.Quote
		state.LastQuote = &q
	}
	switch res.Milestone {
	case models.MilestoneStructureConfirmed:
		state.StructureConfirmed = true
	case models.MilestoneDesignConfirmed:
		state.DesignConfirmed = true
	case models.MilestoneComplete:
		state.Complete = true
	}
	if res.OrderRecorded {
		state.OrderRecorded = true
	}
	if res.SetWaiting {
		state.WaitingForConfirmation = true
	}

	if res.EnterEdit != nil {
		state.EnterEdit(res.EnterEdit.Target, res.EnterEdit.Checkpoint, res.EnterEdit.Action)
		return
	}
	if res.ExitEdit && state.EditMode {
		state.ExitEdit()
		return
	}
	if res.Advance {
		state.Advance(resolveNext(state, res.NextStepOverride))
		if res.PostAdvanceWaiting {
			state.WaitingForConfirmation = true
		}
	}
}

// resolveNext applies the conditional transitions on top of the default table.
func resolveNext(state *models.ConversationState, override *models.Step) *models.Step {
	if override != nil {
		return override
	}
	if state.CurrentStep == models.StepBoxType && state.ShouldSkipInner() {
		return models.Ptr(models.StepDimensions)
	}
	return nil
}

// historyLimit is the number of past messages given to the phraser.
func historyLimit(step models.Step) int {
	if step.IsCheckpoint() {
		return 3
	}
	return 5
}

func joinReplies(replies []string) string {
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		if r = strings.TrimSpace(r); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "\n\n")
}

// phrase asks the phraser to reword base for step. The base text is returned when no
// phraser is configured or the call fails.
func (d *deps) phrase(ctx context.Context, state *models.ConversationState, step models.Step, base, userText string) string {
	if d.phraser == nil {
		return base
	}
	prompt := fmt.Sprintf("คำแนะนำ: %s\nข้อความพื้นฐาน: %s\nข้อความล่าสุดของลูกค้า: %s", stepInstructions[step], base, userText)
	out, err := d.phraser.Generate(ctx, SystemPrompt, prompt, state.History(historyLimit(step)))
	if err != nil {
		slog.Warn("flow.phrase: phraser failed, using fixed text", "session", state.SessionID, "step", step.String(), "error", err)
		return base
	}
	if out = strings.TrimSpace(out); out == "" {
		return base
	}
	return out
}

// reprompt answers an extraction miss with a phrased intro followed by the fixed question.
func (d *deps) reprompt(ctx context.Context, state *models.ConversationState, intro, question, userText string) models.StepResult {
	text := d.phrase(ctx, state, state.CurrentStep, intro, userText)
	if question != "" {
		text += "\n\n" + question
	}
	return models.Reply(text)
}

func errorMessage(err error) string {
	var fe *models.FlowError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}

func routingError(phase models.Phase, step models.Step) error {
	return models.NewFlowError(models.KindRouting, "",
		fmt.Sprintf("step %s is not served by the %s phase", step, phase), nil)
}
