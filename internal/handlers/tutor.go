package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/services"
)

type TutorHandler struct {
	tutor        *services.TutorService
	questionRepo *repository.QuestionRepo
}

func NewTutorHandler(tutor *services.TutorService, questionRepo *repository.QuestionRepo) *TutorHandler {
	return &TutorHandler{tutor: tutor, questionRepo: questionRepo}
}

// Chat sends one message to the study tutor and returns its synchronous
// reply. Conversation history lives server-side with a short TTL.
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if h.tutor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("TUTOR_UNAVAILABLE", "AI tutor is not configured", r))
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "message is required", r))
		return
	}
	if len(req.Message) > 4000 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "message is too long", r))
		return
	}

	reply, err := h.tutor.Chat(r.Context(), userID, req.Message)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("TUTOR_ERROR", "The tutor could not answer right now", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *TutorHandler) ClearChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if h.tutor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("TUTOR_UNAVAILABLE", "AI tutor is not configured", r))
		return
	}

	if err := h.tutor.ClearChat(r.Context(), userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to clear conversation", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation cleared"})
}

// DraftQuestions turns pasted study material into candidate questions for
// the bank. Drafts are returned for manual review, not saved directly.
func (h *TutorHandler) DraftQuestions(w http.ResponseWriter, r *http.Request) {
	if h.tutor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("TUTOR_UNAVAILABLE", "AI tutor is not configured", r))
		return
	}

	var req struct {
		Content    string `json:"content"`
		Domain     string `json:"domain"`
		Difficulty string `json:"difficulty"`
		Count      int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Content) == "" {
		fields["content"] = "required"
	}
	if !models.ValidDomain(req.Domain) {
		fields["domain"] = "unknown exam domain"
	}
	if !models.ValidDifficulty(req.Difficulty) {
		fields["difficulty"] = "must be beginner, intermediate or advanced"
	}
	if req.Count <= 0 || req.Count > 20 {
		fields["count"] = "must be between 1 and 20"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	drafts, err := h.tutor.DraftQuestions(r.Context(), req.Content, req.Domain, req.Difficulty, req.Count)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("TUTOR_ERROR", "Question drafting failed", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": drafts,
		"count":     len(drafts),
	})
}
