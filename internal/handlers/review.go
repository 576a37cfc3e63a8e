package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/gamification"
	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/review"
	"tco-prep-backend/internal/srs"
	"tco-prep-backend/internal/store"
)

type ReviewHandler struct {
	progressRepo *repository.ProgressRepo
	flashRepo    *repository.FlashcardRepo
	reviewRepo   *repository.QuestionReviewRepo
	questionRepo *repository.QuestionRepo
	syncer       *store.Syncer
}

func NewReviewHandler(
	progressRepo *repository.ProgressRepo,
	flashRepo *repository.FlashcardRepo,
	reviewRepo *repository.QuestionReviewRepo,
	questionRepo *repository.QuestionRepo,
	syncer *store.Syncer,
) *ReviewHandler {
	return &ReviewHandler{
		progressRepo: progressRepo,
		flashRepo:    flashRepo,
		reviewRepo:   reviewRepo,
		questionRepo: questionRepo,
		syncer:       syncer,
	}
}

// Center aggregates every section flagged needs-review, grouped by module,
// with a mixed-review recommendation when two or more modules are flagged.
func (h *ReviewHandler) Center(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	records, err := h.progressRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch progress", r))
		return
	}

	writeJSON(w, http.StatusOK, review.Aggregate(records))
}

// Queue merges due flashcards and question reviews into one
// priority-ordered list.
func (h *ReviewHandler) Queue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	now := time.Now()
	cards, err := h.flashRepo.ListDue(r.Context(), userID, now, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch due flashcards", r))
		return
	}

	reviews, err := h.reviewRepo.ListDue(r.Context(), userID, now, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch due reviews", r))
		return
	}

	questions := make(map[string]models.Question, len(reviews))
	if len(reviews) > 0 {
		ids := make([]uuid.UUID, 0, len(reviews))
		for _, qr := range reviews {
			ids = append(ids, qr.QuestionID)
		}
		loaded, err := h.questionRepo.GetByIDs(r.Context(), ids)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
			return
		}
		for _, q := range loaded {
			questions[q.ID.String()] = q
		}
	}

	queue := review.BuildQueue(cards, reviews, questions, now, limit)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"queue": queue,
		"count": len(queue),
	})
}

// RateQuestion applies an SRS rating to a question under review.
func (h *ReviewHandler) RateQuestion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		QuestionID string `json:"question_id"`
		Rating     string `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question_id", r))
		return
	}

	rating, err := srs.ParseRating(req.Rating)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "rating must be again, hard, good or easy", r))
		return
	}

	qr, err := h.reviewRepo.Get(r.Context(), userID, questionID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question is not under review", r))
		return
	}

	now := time.Now()
	state := srs.Schedule(srs.CardState{
		IntervalDays: qr.SRSInterval,
		Ease:         qr.SRSEase,
		Reps:         qr.SRSReps,
		Lapses:       qr.SRSLapses,
		Due:          qr.SRSDue,
	}, rating, now)

	qr.SRSInterval = state.IntervalDays
	qr.SRSEase = state.Ease
	qr.SRSReps = state.Reps
	qr.SRSLapses = state.Lapses
	qr.SRSDue = state.Due
	qr.TotalAttempts++
	if rating.IsCorrect() {
		qr.CorrectAttempts++
	}
	qr.LastReviewedAt = &now
	qr.UpdatedAt = now

	if err := h.reviewRepo.Upsert(r.Context(), qr); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save review", r))
		return
	}

	difficulty := ""
	if q, err := h.questionRepo.GetByID(r.Context(), questionID); err == nil {
		difficulty = q.Difficulty
	}
	retention := float64(qr.CorrectAttempts) / float64(qr.TotalAttempts) * 100
	award := gamification.ReviewPoints(rating.IsCorrect(), difficulty, 0, retention)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"review":        qr,
		"next_due":      state.Due,
		"interval_days": state.IntervalDays,
		"points":        award,
	})
}

func (h *ReviewHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stats, err := h.reviewRepo.GetDailyStats(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch review stats", r))
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Sync drains the pending offline write queue on demand, typically called
// by the client on login or reconnect.
func (h *ReviewHandler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.syncer.Sync(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Sync failed", r))
		return
	}

	writeJSON(w, http.StatusOK, report)
}
