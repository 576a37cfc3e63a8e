package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/services"
)

type QuestionHandler struct {
	questionRepo *repository.QuestionRepo
	jobRepo      *repository.JobRepo
	redis        *redis.Client
	tutor        *services.TutorService
}

func NewQuestionHandler(questionRepo *repository.QuestionRepo, jobRepo *repository.JobRepo, redisClient *redis.Client, tutor *services.TutorService) *QuestionHandler {
	return &QuestionHandler{questionRepo: questionRepo, jobRepo: jobRepo, redis: redisClient, tutor: tutor}
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if q.Prompt == "" {
		fields["prompt"] = "required"
	}
	if len(q.Choices) != 4 {
		fields["choices"] = "exactly 4 choices required"
	}
	if !models.ValidDomain(q.Domain) {
		fields["domain"] = "unknown exam domain"
	}
	if !models.ValidDifficulty(q.Difficulty) {
		fields["difficulty"] = "must be beginner, intermediate or advanced"
	}
	correctFound := false
	for _, c := range q.Choices {
		if c.ID == q.CorrectChoiceID {
			correctFound = true
		}
	}
	if !correctFound {
		fields["correct_choice_id"] = "must match one of the choices"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if err := h.questionRepo.Create(r.Context(), &q); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create question", r))
		return
	}

	writeJSON(w, http.StatusCreated, q)
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	difficulty := r.URL.Query().Get("difficulty")
	moduleID := r.URL.Query().Get("module_id")

	if domain != "" && !models.ValidDomain(domain) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown exam domain", r))
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	questions, err := h.questionRepo.List(r.Context(), domain, difficulty, moduleID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question ID", r))
		return
	}

	q, err := h.questionRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question not found", r))
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question ID", r))
		return
	}

	if err := h.questionRepo.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete question", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Question deleted"})
}

func (h *QuestionHandler) DomainCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.questionRepo.CountByDomain(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to count questions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"domains": counts})
}

// RequestExplanation queues background generation of a study explanation
// for one question. Idempotent: a question that already has one returns it
// directly.
func (h *QuestionHandler) RequestExplanation(w http.ResponseWriter, r *http.Request) {
	if h.tutor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("TUTOR_UNAVAILABLE", "AI tutor is not configured", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	questionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question ID", r))
		return
	}

	q, err := h.questionRepo.GetByID(r.Context(), questionID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question not found", r))
		return
	}

	if q.Explanation != nil && *q.Explanation != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"explanation": *q.Explanation,
		})
		return
	}

	job := &models.Job{
		UserID:      userID,
		Type:        "explanation-generation",
		ReferenceID: questionID,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:explanation-generation", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
	})
}
