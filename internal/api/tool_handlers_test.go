package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/lumopack/lumobot/internal/analysis"
	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/genai"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/store"
	"github.com/lumopack/lumobot/internal/testutil"
)

func TestAnalyzeHandler(t *testing.T) {
	s := newTestServer(t)

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/analyze",
		AnalyzeRequest{Length: 20, Width: 15, Height: 10, Weight: 0.5, FluteType: "C"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "safe analysis")
	var safe AnalyzeResponse
	testutil.DecodeJSON(t, rr, &safe)
	if safe.Report.Status != analysis.StatusSafe || safe.Alternatives != nil || safe.Summary == "" {
		t.Errorf("unexpected safe analysis %+v", safe)
	}

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/analyze",
		AnalyzeRequest{Length: 20, Width: 15, Height: 10, Weight: 50, FluteType: "B"}))
	var danger AnalyzeResponse
	testutil.DecodeJSON(t, rr, &danger)
	if danger.Report.Status != analysis.StatusDanger {
		t.Fatalf("expected DANGER for 50 kg, got %+v", danger.Report)
	}
	if danger.Alternatives == nil || !danger.Alternatives.NeedsLargerBox {
		t.Errorf("expected larger box advice, got %+v", danger.Alternatives)
	}

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/analyze", AnalyzeRequest{Length: 20}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "missing dimensions")
}

func TestPricingHandler(t *testing.T) {
	s := newTestServer(t)
	req := models.PricingRequest{
		BoxType:    models.BoxRSC,
		Material:   models.MaterialCorrugated,
		Dimensions: models.Dimensions{Width: 20, Length: 15, Height: 10},
		Quantity:   1000,
	}
	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/pricing/estimate", req))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "estimate")
	var quote models.Breakdown
	testutil.DecodeJSON(t, rr, &quote)
	if quote.Quantity != 1000 || quote.GrandTotal <= quote.Subtotal || quote.VATRate != 0.07 {
		t.Errorf("unexpected quote %+v", quote)
	}

	req.Material = "gold_leaf"
	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/pricing/estimate", req))
	testutil.AssertHTTPStatus(t, http.StatusUnprocessableEntity, rr.Code, "unknown material")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestPricingHandlerWithoutPricer(t *testing.T) {
	s := NewServer(flow.NewSessionManager(store.NewInMemoryStore(), flow.NewOrchestrator(nil)))
	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/pricing/estimate", models.PricingRequest{}))
	testutil.AssertHTTPStatus(t, http.StatusServiceUnavailable, rr.Code, "no pricer")
}

func TestExtractHandler(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		req  ExtractRequest
		keys []string
	}{
		{"dimensions", ExtractRequest{Text: "20x15x10 1000 ชิ้น 2 kg ลอน BC", Step: models.StepDimensions},
			[]string{models.FieldDimensions, models.FieldQuantity, models.FieldWeightKg, models.FieldFluteType}},
		{"product", ExtractRequest{Text: "เครื่องสำอาง", Step: models.StepProductType}, []string{models.FieldProductType}},
		{"material with known box", ExtractRequest{Text: "3", Step: models.StepBoxType, BoxType: models.BoxDieCut}, []string{models.FieldMaterial}},
		{"checkpoint confirm", ExtractRequest{Text: "ยืนยัน", Step: models.StepCheckpoint1}, []string{"confirmation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/extract", tt.req))
			testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, tt.name)
			var resp ExtractResponse
			testutil.DecodeJSON(t, rr, &resp)
			if !resp.Matched {
				t.Fatalf("expected a match, got %+v", resp)
			}
			for _, key := range tt.keys {
				if _, ok := resp.Extracted[key]; !ok {
					t.Errorf("expected %q in %v", key, resp.Extracted)
				}
			}
		})
	}

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/extract", ExtractRequest{Text: "hi", Step: 99}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid step")

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/extract", ExtractRequest{Text: "hi", Step: models.StepLogo, LLM: true}))
	testutil.AssertHTTPStatus(t, http.StatusServiceUnavailable, rr.Code, "llm without extractor")
}

func TestExtractHandlerWithLLM(t *testing.T) {
	ext := &stubExtractor{out: genai.Extraction{Response: "รับทราบค่ะ", Data: map[string]interface{}{"has_logo": true}}}
	s := newTestServer(t, WithExtractor(ext))

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/extract", ExtractRequest{Text: "มีโลโก้ค่ะ", Step: models.StepLogo, LLM: true}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "llm extraction")
	var resp ExtractResponse
	testutil.DecodeJSON(t, rr, &resp)
	if resp.LLM == nil || resp.LLM.Data["has_logo"] != true {
		t.Errorf("expected LLM data, got %+v", resp.LLM)
	}
	if len(ext.fields) != len(models.StepFields[models.StepLogo]) {
		t.Errorf("expected logo fields to be requested, got %v", ext.fields)
	}

	ext.out, ext.err = genai.Extraction{}, errors.New("timeout")
	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/extract", ExtractRequest{Text: "มีโลโก้ค่ะ", Step: models.StepLogo, LLM: true}))
	resp = ExtractResponse{}
	testutil.DecodeJSON(t, rr, &resp)
	if resp.LLMError != "timeout" || resp.LLM != nil {
		t.Errorf("expected LLM error to be reported, got %+v", resp)
	}
}
