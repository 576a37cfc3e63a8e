package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/session"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]string{"message": "Success"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	var result map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["message"] != "Success" {
		t.Errorf("expected message 'Success', got %q", result["message"])
	}
}

func TestErrorRespCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/practice", nil)
	req.Header.Set("X-Request-ID", "req-42")

	resp := errorResp("VALIDATION_ERROR", "Invalid input", req)

	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %q", resp.Error.Code)
	}
	if resp.Error.Message != "Invalid input" {
		t.Errorf("expected message 'Invalid input', got %q", resp.Error.Message)
	}
	if resp.Error.RequestID != "req-42" {
		t.Errorf("expected request id to be echoed, got %q", resp.Error.RequestID)
	}
}

func TestWriteSessionErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no active session", session.ErrNoActiveSession, http.StatusNotFound},
		{"question not in set", session.ErrQuestionNotFound, http.StatusBadRequest},
		{"already answered", session.ErrAlreadyAnswered, http.StatusConflict},
		{"not answered yet", session.ErrNotAnswered, http.StatusConflict},
		{"at first question", session.ErrAtFirstQuestion, http.StatusConflict},
	}

	h := &PracticeHandler{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/practice/answer", nil)

			h.writeSessionError(rr, req, tc.err)

			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestQuestionViewHidesAnswer(t *testing.T) {
	explanation := "because"
	q := &models.Question{
		ID:              uuid.New(),
		Prompt:          "What does a saved question do?",
		Choices:         []models.Choice{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}},
		CorrectChoiceID: "b",
		Explanation:     &explanation,
		Domain:          models.DomainAsking,
		Difficulty:      models.DifficultyBeginner,
	}

	view := viewOf(q)

	b, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("failed to marshal view: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("failed to unmarshal view: %v", err)
	}
	if _, leaked := raw["correct_choice_id"]; leaked {
		t.Fatal("in-progress question view must not expose the correct choice")
	}
	if _, leaked := raw["explanation"]; leaked {
		t.Fatal("in-progress question view must not expose the explanation")
	}
	if raw["prompt"] != q.Prompt {
		t.Errorf("expected prompt to survive, got %v", raw["prompt"])
	}

	if viewOf(nil) != nil {
		t.Fatal("expected nil view for nil question")
	}
}
