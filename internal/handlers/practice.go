package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/session"
)

type PracticeHandler struct {
	registry     *session.Registry
	questionRepo *repository.QuestionRepo
	attemptRepo  *repository.AttemptRepo
	reviewRepo   *repository.QuestionReviewRepo
	userRepo     *repository.UserRepo

	defaultCount        int
	defaultPassingScore int
}

func NewPracticeHandler(
	registry *session.Registry,
	questionRepo *repository.QuestionRepo,
	attemptRepo *repository.AttemptRepo,
	reviewRepo *repository.QuestionReviewRepo,
	userRepo *repository.UserRepo,
	defaultCount, defaultPassingScore int,
) *PracticeHandler {
	return &PracticeHandler{
		registry:            registry,
		questionRepo:        questionRepo,
		attemptRepo:         attemptRepo,
		reviewRepo:          reviewRepo,
		userRepo:            userRepo,
		defaultCount:        defaultCount,
		defaultPassingScore: defaultPassingScore,
	}
}

// questionView hides the correct choice and explanation while a session is
// in progress.
type questionView struct {
	ID         uuid.UUID       `json:"id"`
	Prompt     string          `json:"prompt"`
	Choices    []models.Choice `json:"choices"`
	Domain     string          `json:"domain"`
	Difficulty string          `json:"difficulty"`
}

func viewOf(q *models.Question) *questionView {
	if q == nil {
		return nil
	}
	return &questionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Choices:    q.Choices,
		Domain:     q.Domain,
		Difficulty: q.Difficulty,
	}
}

func (h *PracticeHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.StartPracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	for _, d := range req.Domains {
		if !models.ValidDomain(d) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown exam domain: "+d, r))
			return
		}
	}

	difficulty := ""
	if req.Difficulty != nil {
		if !models.ValidDifficulty(*req.Difficulty) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid difficulty", r))
			return
		}
		difficulty = *req.Difficulty
	}

	count := req.QuestionCount
	if count <= 0 {
		count = h.defaultCount
	}
	passing := req.PassingScore
	if passing <= 0 {
		passing = h.defaultPassingScore
		if settings, err := h.userRepo.GetSettings(r.Context(), userID); err == nil {
			passing = settings.PracticePassingScore
		}
	}
	if passing < 0 || passing > 100 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "passing_score must be between 0 and 100", r))
		return
	}

	// Fetch more than needed so the shuffle has variety between sessions.
	pool, err := h.questionRepo.RandomPool(r.Context(), req.Domains, difficulty, count*3)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load question pool", r))
		return
	}
	if len(pool) < count {
		if len(pool) == 0 {
			writeJSON(w, http.StatusConflict, errorResp("EMPTY_POOL", "No questions match the requested filters", r))
			return
		}
		writeJSON(w, http.StatusConflict, errorResp("NOT_ENOUGH_QUESTIONS", "Question pool is smaller than the requested count", r))
		return
	}

	config := session.Config{
		ModuleID:      req.ModuleID,
		Domains:       req.Domains,
		QuestionCount: count,
		PassingScore:  passing,
	}

	mgr, err := h.registry.Start(userID, config, pool, nil)
	if err != nil {
		if err == session.ErrSessionAlreadyActive {
			writeJSON(w, http.StatusConflict, errorResp("SESSION_ACTIVE", "Another practice session is already in progress", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id":      mgr.ID(),
		"question_count":  count,
		"passing_score":   passing,
		"current":         viewOf(mgr.Current()),
		"question_number": 1,
	})
}

func (h *PracticeHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	mgr, err := h.registry.Get(userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No active practice session", r))
		return
	}

	answered, total, pct := mgr.Progress()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":      mgr.ID(),
		"current":         viewOf(mgr.Current()),
		"answered":        answered,
		"total":           total,
		"percentage":      pct,
		"correct":         mgr.CorrectCount(),
		"elapsed_seconds": int(mgr.Elapsed().Seconds()),
	})
}

func (h *PracticeHandler) Answer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question_id", r))
		return
	}
	if req.ChoiceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "choice_id is required", r))
		return
	}

	var correct bool
	err = h.registry.WithSession(userID, func(mgr *session.Manager) error {
		var aerr error
		correct, aerr = mgr.Answer(questionID, req.ChoiceID)
		return aerr
	})
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	// Incorrect answers seed SRS question reviews; correct answers only bump
	// counters on questions already under review.
	if !correct {
		if rerr := h.reviewRepo.RecordAttempt(r.Context(), userID, questionID, false); rerr != nil {
			log.Printf("failed to record question review: %v", rerr)
		}
	} else if _, gerr := h.reviewRepo.Get(r.Context(), userID, questionID); gerr == nil {
		if rerr := h.reviewRepo.RecordAttempt(r.Context(), userID, questionID, true); rerr != nil {
			log.Printf("failed to record question review: %v", rerr)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"correct": correct,
	})
}

func (h *PracticeHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var next *models.Question
	var summary *session.Summary
	var mgr *session.Manager

	err := h.registry.WithSession(userID, func(m *session.Manager) error {
		mgr = m
		var aerr error
		next, summary, aerr = m.Advance()
		return aerr
	})
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	if summary == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"current": viewOf(next),
		})
		return
	}

	attempt := h.buildAttempt(userID, mgr, summary, false)
	if err := h.attemptRepo.Create(r.Context(), attempt); err != nil {
		log.Printf("failed to persist practice attempt: %v", err)
	}
	h.registry.Release(userID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":    summary,
		"attempt_id": attempt.ID,
	})
}

func (h *PracticeHandler) Back(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var prev *models.Question
	err := h.registry.WithSession(userID, func(mgr *session.Manager) error {
		var berr error
		prev, berr = mgr.Back()
		return berr
	})
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current": viewOf(prev),
	})
}

func (h *PracticeHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	mgr, err := h.registry.Get(userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No active practice session", r))
		return
	}

	if err := mgr.Abandon(); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	attempt := h.buildAttempt(userID, mgr, nil, true)
	if err := h.attemptRepo.Create(r.Context(), attempt); err != nil {
		log.Printf("failed to persist abandoned attempt: %v", err)
	}
	h.registry.Release(userID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session abandoned"})
}

func (h *PracticeHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	attempts, err := h.attemptRepo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch attempts", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

func (h *PracticeHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	attemptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt ID", r))
		return
	}

	attempt, err := h.attemptRepo.GetByID(r.Context(), userID, attemptID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attempt not found", r))
		return
	}

	writeJSON(w, http.StatusOK, attempt)
}

func (h *PracticeHandler) buildAttempt(userID uuid.UUID, mgr *session.Manager, summary *session.Summary, abandoned bool) *models.PracticeAttempt {
	config := mgr.Config()
	attempt := &models.PracticeAttempt{
		ID:               mgr.ID(),
		UserID:           userID,
		ModuleID:         config.ModuleID,
		Domains:          config.Domains,
		QuestionCount:    len(mgr.Questions()),
		CorrectCount:     mgr.CorrectCount(),
		TimeSpentSeconds: int(mgr.Elapsed().Seconds()),
		StartedAt:        mgr.StartedAt(),
		CompletedAt:      time.Now(),
		Abandoned:        abandoned,
	}

	if summary != nil {
		attempt.Score = summary.Score
		attempt.Passed = summary.Passed
		if b, err := json.Marshal(summary); err == nil {
			attempt.SummaryJSON = b
		}
	}
	return attempt
}

func (h *PracticeHandler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch err {
	case session.ErrNoActiveSession:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No active practice session", r))
	case session.ErrQuestionNotFound:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Question is not part of this session", r))
	case session.ErrAlreadyAnswered:
		writeJSON(w, http.StatusConflict, errorResp("ALREADY_ANSWERED", "This question has already been answered", r))
	case session.ErrNotAnswered:
		writeJSON(w, http.StatusConflict, errorResp("NOT_ANSWERED", "Answer the current question before advancing", r))
	case session.ErrAtFirstQuestion:
		writeJSON(w, http.StatusConflict, errorResp("AT_FIRST_QUESTION", "Already on the first question", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
