package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/requirement"
)

// finalizeHandler serves preview, quote, order confirmation and the closing step.
type finalizeHandler struct {
	*deps
}

func (h *finalizeHandler) Handle(ctx context.Context, text string, state *models.ConversationState) (models.StepResult, error) {
	switch state.CurrentStep {
	case models.StepGenerateMockup:
		return h.mockup(ctx, text, state), nil
	case models.StepGenerateQuote:
		return h.retryQuote(text, state), nil
	case models.StepConfirmOrder:
		return h.confirmOrder(text), nil
	case models.StepEnd:
		return h.end(ctx, state), nil
	}
	return models.StepResult{}, routingError(models.PhaseFinalize, state.CurrentStep)
}

// quote assembles the collected data and prices it.
func (h *finalizeHandler) quote(state *models.ConversationState) (requirement.CompleteRequirement, models.Breakdown, error) {
	req := requirement.Assemble(state.SessionID, state.CollectedData)
	if report := requirement.ValidateComplete(req); !report.Valid {
		return req, models.Breakdown{}, report.Err()
	}
	if h.pricer == nil {
		return req, models.Breakdown{}, models.NewFlowError(models.KindPricingComputation, "", "ไม่พบระบบคำนวณราคา", nil)
	}
	b, err := h.pricer.Estimate(req.PricingRequest())
	if err != nil {
		return req, models.Breakdown{}, err
	}
	return req, b, nil
}

func quoteReply(req requirement.CompleteRequirement, b models.Breakdown) string {
	var sb strings.Builder
	sb.WriteString(renderQuote(b))
	if tips := requirement.Suggestions(req); len(tips) > 0 {
		sb.WriteString("\n")
		for _, tip := range tips {
			sb.WriteString("\n" + tip)
		}
	}
	sb.WriteString("\n\n" + confirmQuestion)
	return sb.String()
}

func (h *finalizeHandler) mockup(ctx context.Context, text string, state *models.ConversationState) models.StepResult {
	req, b, err := h.quote(state)
	description := h.phrase(ctx, state, models.StepGenerateMockup, previewBase(req), text)
	preview := renderPreview(description)
	if err != nil {
		slog.Warn("finalizeHandler.mockup: pricing failed", "session", state.SessionID, "error", err)
		return models.StepResult{
			ResponseText:     preview + "\n\n" + fmt.Sprintf(quoteFailed, errorMessage(err)),
			Advance:          true,
			NextStepOverride: models.Ptr(models.StepGenerateQuote),
		}
	}
	return models.StepResult{
		ResponseText:     preview + "\n\n" + quoteReply(req, b),
		Quote:            &b,
		Advance:          true,
		NextStepOverride: models.Ptr(models.StepConfirmOrder),
	}
}

// retryQuote prices again on any reply. A revision request goes back to the second
// checkpoint so data that cannot be priced can be fixed.
func (h *finalizeHandler) retryQuote(text string, state *models.ConversationState) models.StepResult {
	if extract.IsRejection(text) || extract.IsSpecRevision(text) {
		return models.StepResult{ResponseText: reviseSpec, Advance: true, NextStepOverride: models.Ptr(models.StepCheckpoint2)}
	}
	req, b, err := h.quote(state)
	if err != nil {
		slog.Warn("finalizeHandler.retryQuote: pricing failed", "session", state.SessionID, "error", err)
		return models.Reply(fmt.Sprintf(quoteFailed, errorMessage(err)))
	}
	return models.StepResult{ResponseText: quoteReply(req, b), Quote: &b, Advance: true}
}

func (h *finalizeHandler) confirmOrder(text string) models.StepResult {
	// Rejection first: "ไม่ใช่" contains the confirmation keyword.
	if extract.IsRejection(text) {
		switch {
		case extract.IsPreviewRevision(text):
			return models.StepResult{ResponseText: reviseMockup, Advance: true, NextStepOverride: models.Ptr(models.StepGenerateMockup)}
		case extract.IsSpecRevision(text):
			return models.StepResult{ResponseText: reviseSpec, Advance: true, NextStepOverride: models.Ptr(models.StepCheckpoint2)}
		}
		return models.Reply(reviseWhich)
	}
	if extract.IsConfirmation(text) {
		return models.StepResult{ResponseText: orderConfirmed, Milestone: models.MilestoneComplete, Advance: true}
	}
	return models.Reply(confirmUnclear)
}

func (h *finalizeHandler) end(ctx context.Context, state *models.ConversationState) models.StepResult {
	ref := fmt.Sprintf(referenceText, state.SessionID)
	if state.OrderRecorded {
		return models.Reply(alreadyRecorded + ref)
	}
	res := models.Reply(closingText + ref)
	if h.orders == nil || state.LastQuote == nil {
		return res
	}
	q := *state.LastQuote
	order := models.Order{
		ID:          h.orderID(),
		SessionID:   state.SessionID,
		UserID:      state.UserID,
		Status:      models.OrderStatusPending,
		Requirement: state.CollectedData,
		Quote:       &q,
		GrandTotal:  q.GrandTotal,
		Deposit:     deposit(q.GrandTotal),
		CreatedAt:   h.now(),
	}
	if err := h.orders.SaveOrder(ctx, order); err != nil {
		slog.Error("finalizeHandler.end: failed to save order", "session", state.SessionID, "order", order.ID, "error", err)
		return res
	}
	slog.Info("finalizeHandler.end: order recorded", "session", state.SessionID, "order", order.ID, "grand_total", order.GrandTotal)
	res.OrderRecorded = true
	return res
}
