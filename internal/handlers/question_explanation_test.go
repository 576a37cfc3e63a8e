package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tco-prep-backend/internal/models"
)

func TestRequestExplanationWithoutTutor(t *testing.T) {
	h := &QuestionHandler{}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions/abc/explanation", nil)

	h.RequestExplanation(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != "TUTOR_UNAVAILABLE" {
		t.Errorf("expected code TUTOR_UNAVAILABLE, got %q", resp.Error.Code)
	}
}
