package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumopack/lumobot/internal/analysis"
	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/genai"
	"github.com/lumopack/lumobot/internal/models"
)

// AnalyzeRequest is the body of POST /analyze. Dimensions are in centimetres.
type AnalyzeRequest struct {
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
	FluteType string  `json:"flute_type"`
}

// AnalyzeResponse carries a strength report and, for failing boxes, stronger options.
type AnalyzeResponse struct {
	Report       analysis.Report        `json:"report"`
	Alternatives *analysis.Alternatives `json:"alternatives,omitempty"`
	Summary      string                 `json:"summary"`
}

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	Text    string      `json:"text"`
	Step    models.Step `json:"step"`
	BoxType string      `json:"box_type,omitempty"`
	LLM     bool        `json:"llm,omitempty"`
}

// ExtractResponse reports what the keyword extractors found for one step.
type ExtractResponse struct {
	Step      models.Step            `json:"step"`
	StepName  string                 `json:"step_name"`
	Matched   bool                   `json:"matched"`
	Extracted map[string]interface{} `json:"extracted"`
	LLM       *genai.Extraction      `json:"llm,omitempty"`
	LLMError  string                 `json:"llm_error,omitempty"`
}

// healthHandler handles GET /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"pricing":   s.pricer != nil,
		"llm":       s.extractor != nil,
	})
}

// analyzeHandler handles POST /analyze
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Length <= 0 || req.Width <= 0 || req.Height <= 0 || req.Weight < 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("length, width and height must be positive"))
		return
	}

	dims := models.Dimensions{Width: req.Width, Length: req.Length, Height: req.Height}
	report := analysis.Analyze(dims, req.Weight, req.FluteType)
	resp := AnalyzeResponse{Report: report, Summary: analysis.FormatForChat(report)}
	if report.Status == analysis.StatusDanger && req.Weight > 0 {
		alt := analysis.SuggestAlternatives(dims, req.Weight, req.FluteType)
		resp.Alternatives = &alt
		if text := analysis.FormatAlternatives(alt); text != "" {
			resp.Summary += "\n\n" + text
		}
	}
	slog.Debug("Server.analyzeHandler: analyzed", "flute", report.Flute.Code, "score", report.Score, "status", report.Status)
	writeJSONResponse(w, http.StatusOK, resp)
}

// pricingHandler handles POST /pricing/estimate
func (s *Server) pricingHandler(w http.ResponseWriter, r *http.Request) {
	if s.pricer == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Pricing is not configured"))
		return
	}
	var req models.PricingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	quote, err := s.pricer.Estimate(req)
	if err != nil {
		slog.Warn("Server.pricingHandler: estimate failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, quote)
}

// extractHandler handles POST /extract
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("text is required"))
		return
	}
	if !req.Step.Valid() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("step must be between 1 and 14"))
		return
	}

	fields := extractForStep(req.Step, req.Text, req.BoxType)
	resp := ExtractResponse{
		Step:      req.Step,
		StepName:  req.Step.String(),
		Matched:   len(fields) > 0,
		Extracted: fields,
	}

	if req.LLM {
		if s.extractor == nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("LLM extraction is not configured"))
			return
		}
		names := models.StepFields[req.Step]
		if len(names) == 0 {
			names = []string{"intent"}
		}
		out, err := s.extractor.GenerateWithExtraction(r.Context(), flow.SystemPrompt, req.Text, nil, names)
		if err != nil {
			slog.Warn("Server.extractHandler: LLM extraction failed", "step", req.Step.String(), "error", err)
			resp.LLMError = err.Error()
		}
		if out.Response != "" || out.Data != nil {
			resp.LLM = &out
		}
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// extractForStep runs the keyword extractors a step uses and returns what matched.
func extractForStep(step models.Step, text, boxType string) map[string]interface{} {
	out := map[string]interface{}{}
	switch step {
	case models.StepProductType:
		if v, ok := extract.ProductType(text); ok {
			out[models.FieldProductType] = v
		}
	case models.StepBoxType:
		if v, ok := extract.BoxType(text); ok {
			out[models.FieldBoxType] = v
			if boxType == "" {
				boxType = v
			}
		}
		if boxType != "" {
			if v, ok := extract.Material(text, boxType); ok {
				out[models.FieldMaterial] = v
			}
		}
	case models.StepInner:
		items, status := extract.Inner(text)
		switch status {
		case extract.Matched:
			out[models.FieldInner] = items
		case extract.Skipped:
			out["skip"] = true
		}
	case models.StepDimensions:
		if v, ok := extract.Dimensions(text); ok {
			out[models.FieldDimensions] = v
		}
		if v, ok := extract.Quantity(text); ok {
			out[models.FieldQuantity] = v
		}
		if v, ok := extract.WeightKg(text); ok {
			out[models.FieldWeightKg] = v
		}
		if v, ok := extract.FluteType(text); ok {
			out[models.FieldFluteType] = v
		}
	case models.StepMoodTone:
		if extract.IsSkip(text) {
			out["skip"] = true
		} else {
			out[models.FieldMoodTone] = strings.TrimSpace(text)
		}
	case models.StepLogo:
		if v, ok := extract.HasLogo(text); ok {
			out[models.FieldHasLogo] = v
		}
		if v, ok := extract.LogoPositions(text); ok {
			out[models.FieldLogoPositions] = v
		}
	case models.StepSpecialEffects:
		effects, status := extract.SpecialEffects(text)
		switch status {
		case extract.Matched:
			out[models.FieldSpecialEffects] = effects
		case extract.Skipped:
			out["skip"] = true
		}
		if v, ok := extract.HasExistingBlock(text); ok {
			out["has_existing_block"] = v
		}
	default:
		addIntents(out, step, text)
	}
	return out
}

func addIntents(out map[string]interface{}, step models.Step, text string) {
	if extract.IsRejection(text) {
		out["rejection"] = true
	} else if extract.IsConfirmation(text) {
		out["confirmation"] = true
	}
	if extract.IsAddRequest(text) {
		out["add_request"] = true
	}
	if target, ok := extract.EditTarget(text); ok {
		out["edit_target"] = target
		out["edit_target_name"] = target.String()
	}
	if step == models.StepConfirmOrder {
		if extract.IsPreviewRevision(text) {
			out["preview_revision"] = true
		}
		if extract.IsSpecRevision(text) {
			out["spec_revision"] = true
		}
	}
}
