// Package testutil provides common test helpers for LumoBot tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/lumopack/lumobot/internal/models"
)

// TB is the part of testing.TB the helpers use.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes an APIResponse envelope and checks its status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) models.APIResponse {
	t.Helper()
	var response models.APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return response
	}
	if response.Status != expectedStatus {
		t.Errorf("expected status '%s', got '%s' (message %q)", expectedStatus, response.Status, response.Message)
	}
	return response
}

// DecodeJSON decodes the recorded body into v.
func DecodeJSON(t TB, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode JSON body %q: %v", rr.Body.String(), err)
	}
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
// A string body is sent as is.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, b))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// SampleRequirements returns a complete die-cut cosmetic order.
func SampleRequirements() models.Requirements {
	return models.Requirements{
		ProductType:   models.Ptr(models.ProductCosmetic),
		BoxType:       models.Ptr(models.BoxDieCut),
		Material:      models.Ptr(models.MaterialArt),
		Inner:         []models.InnerItem{{Type: "air_bubble", Category: models.CategoryCushion}},
		Dimensions:    &models.Dimensions{Width: 20, Length: 15, Height: 10},
		Quantity:      models.Ptr(1000),
		MoodTone:      models.Ptr("มินิมอล"),
		HasLogo:       models.Ptr(true),
		LogoPositions: []string{"top"},
		SpecialEffects: []models.Effect{
			{Type: "uv_matte", Category: models.CategoryMatte},
		},
	}
}
