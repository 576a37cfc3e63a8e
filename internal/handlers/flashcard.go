package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tco-prep-backend/internal/gamification"
	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/srs"
	"tco-prep-backend/internal/store"
)

type FlashcardHandler struct {
	cards     *store.FlashcardStore
	flashRepo *repository.FlashcardRepo
}

func NewFlashcardHandler(cards *store.FlashcardStore, flashRepo *repository.FlashcardRepo) *FlashcardHandler {
	return &FlashcardHandler{cards: cards, flashRepo: flashRepo}
}

func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CreateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.FrontText == "" {
		fields["front_text"] = "required"
	}
	if req.BackText == "" {
		fields["back_text"] = "required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	now := time.Now()
	state := srs.NewCardState(now)
	card := &models.Flashcard{
		ID:          uuid.New(),
		UserID:      userID,
		FrontText:   req.FrontText,
		BackText:    req.BackText,
		Hint:        req.Hint,
		ModuleID:    req.ModuleID,
		SectionID:   req.SectionID,
		Tags:        req.Tags,
		SRSDue:      state.Due,
		SRSInterval: state.IntervalDays,
		SRSEase:     state.Ease,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.cards.Save(r.Context(), card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save flashcard", r))
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cards, err := h.cards.List(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"flashcards": cards})
}

func (h *FlashcardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid flashcard ID", r))
		return
	}

	card, err := h.cards.Load(r.Context(), userID, cardID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Flashcard not found", r))
		return
	}

	writeJSON(w, http.StatusOK, card)
}

func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid flashcard ID", r))
		return
	}

	card, err := h.cards.Load(r.Context(), userID, cardID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Flashcard not found", r))
		return
	}

	var req models.CreateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.FrontText == "" || req.BackText == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "front_text and back_text are required", r))
		return
	}

	card.FrontText = req.FrontText
	card.BackText = req.BackText
	card.Hint = req.Hint
	card.ModuleID = req.ModuleID
	card.SectionID = req.SectionID
	card.Tags = req.Tags
	card.UpdatedAt = time.Now()

	if err := h.cards.Save(r.Context(), card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save flashcard", r))
		return
	}

	writeJSON(w, http.StatusOK, card)
}

func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid flashcard ID", r))
		return
	}

	if err := h.flashRepo.Delete(r.Context(), userID, cardID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete flashcard", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Flashcard deleted"})
}

func (h *FlashcardHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	cards, err := h.flashRepo.ListDue(r.Context(), userID, time.Now(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch due cards", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"flashcards": cards})
}

// Rate applies one SM-2 review to a card: the rating moves the SRS state
// forward and a history row snapshots the state before and after.
func (h *FlashcardHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid flashcard ID", r))
		return
	}

	var req models.RateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	rating, err := srs.ParseRating(req.Rating)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "rating must be again, hard, good or easy", r))
		return
	}

	card, err := h.cards.Load(r.Context(), userID, cardID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Flashcard not found", r))
		return
	}

	now := time.Now()
	before := srs.CardState{
		IntervalDays: card.SRSInterval,
		Ease:         card.SRSEase,
		Reps:         card.SRSReps,
		Lapses:       card.SRSLapses,
		Due:          card.SRSDue,
	}
	after := srs.Schedule(before, rating, now)

	card.SRSInterval = after.IntervalDays
	card.SRSEase = after.Ease
	card.SRSReps = after.Reps
	card.SRSLapses = after.Lapses
	card.SRSDue = after.Due
	card.TotalReviews++
	if rating.IsCorrect() {
		card.CorrectReviews++
	}
	card.LastReviewedAt = &now
	card.UpdatedAt = now

	if err := h.cards.Save(r.Context(), card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save review", r))
		return
	}

	review := &models.FlashcardReview{
		FlashcardID:       card.ID,
		UserID:            userID,
		Rating:            string(rating),
		TimeSpentSeconds:  req.TimeSpentSeconds,
		SRSIntervalBefore: before.IntervalDays,
		SRSIntervalAfter:  after.IntervalDays,
		SRSEaseBefore:     before.Ease,
		SRSEaseAfter:      after.Ease,
	}
	if err := h.flashRepo.CreateReview(r.Context(), review); err != nil {
		log.Printf("failed to record flashcard review: %v", err)
	}

	retention := float64(card.CorrectReviews) / float64(card.TotalReviews) * 100
	award := gamification.ReviewPoints(rating.IsCorrect(), "", 0, retention)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flashcard":     card,
		"next_due":      after.Due,
		"interval_days": after.IntervalDays,
		"points":        award,
	})
}

func (h *FlashcardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stats, err := h.flashRepo.GetStats(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch stats", r))
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
