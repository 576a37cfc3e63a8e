package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/store"
)

type ProgressHandler struct {
	progress     *store.ProgressStore
	progressRepo *repository.ProgressRepo
}

func NewProgressHandler(progress *store.ProgressStore, progressRepo *repository.ProgressRepo) *ProgressHandler {
	return &ProgressHandler{progress: progress, progressRepo: progressRepo}
}

func (h *ProgressHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.UpsertProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.ModuleID == "" {
		fields["module_id"] = "required"
	}
	if req.SectionID == "" {
		fields["section_id"] = "required"
	}
	if !models.ValidProgressStatus(req.Status) {
		fields["status"] = "must be not_started, in_progress, completed or needs_review"
	}
	if req.TimeSpentSeconds < 0 {
		fields["time_spent_seconds"] = "must not be negative"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	record := &models.StudyProgress{
		ID:               uuid.New(),
		UserID:           userID,
		ModuleID:         req.ModuleID,
		SectionID:        req.SectionID,
		SectionTitle:     req.SectionTitle,
		Status:           req.Status,
		TimeSpentSeconds: req.TimeSpentSeconds,
		UpdatedAt:        time.Now(),
	}

	if err := h.progress.Save(r.Context(), record); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save progress", r))
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	records, err := h.progress.List(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch progress", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": records})
}

func (h *ProgressHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	moduleID := r.URL.Query().Get("module_id")
	sectionID := r.URL.Query().Get("section_id")
	if moduleID == "" || sectionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "module_id and section_id are required", r))
		return
	}

	record, err := h.progress.Load(r.Context(), userID, moduleID, sectionID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No progress recorded for this section", r))
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *ProgressHandler) ModuleSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	summaries, err := h.progressRepo.SummaryByModule(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch module summary", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"modules": summaries})
}
