package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/srs"
	"tco-prep-backend/internal/store"
)

const maxImportSize = 20 << 20 // 20 MB

type NoteHandler struct {
	notes    *store.NoteStore
	noteRepo *repository.NoteRepo
	jobRepo  *repository.JobRepo
	redis    *redis.Client
	uploadDir string
}

func NewNoteHandler(notes *store.NoteStore, noteRepo *repository.NoteRepo, jobRepo *repository.JobRepo, redisClient *redis.Client, uploadDir string) *NoteHandler {
	return &NoteHandler{
		notes:     notes,
		noteRepo:  noteRepo,
		jobRepo:   jobRepo,
		redis:     redisClient,
		uploadDir: uploadDir,
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "text is required", r))
		return
	}

	now := time.Now()
	state := srs.NewCardState(now)
	note := &models.Note{
		ID:          uuid.New(),
		UserID:      userID,
		Text:        req.Text,
		Tags:        req.Tags,
		ModuleID:    req.ModuleID,
		SectionID:   req.SectionID,
		SRSDue:      state.Due,
		SRSInterval: state.IntervalDays,
		SRSEase:     state.Ease,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.notes.Save(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save note", r))
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	notes, err := h.notes.List(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch notes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return
	}

	note, err := h.notes.Load(r.Context(), userID, noteID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Note not found", r))
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return
	}

	note, err := h.notes.Load(r.Context(), userID, noteID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Note not found", r))
		return
	}

	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "text is required", r))
		return
	}

	note.Text = req.Text
	note.Tags = req.Tags
	note.ModuleID = req.ModuleID
	note.SectionID = req.SectionID
	note.UpdatedAt = time.Now()

	if err := h.notes.Save(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save note", r))
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return
	}

	if err := h.noteRepo.Delete(r.Context(), userID, noteID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete note", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

func (h *NoteHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notes, err := h.noteRepo.ListDue(r.Context(), userID, time.Now(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch due notes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

// Rate applies one SM-2 review to a note, same scheduling as flashcards.
func (h *NoteHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
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

	note, err := h.notes.Load(r.Context(), userID, noteID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Note not found", r))
		return
	}

	now := time.Now()
	state := srs.Schedule(srs.CardState{
		IntervalDays: note.SRSInterval,
		Ease:         note.SRSEase,
		Reps:         note.SRSReps,
		Lapses:       note.SRSLapses,
		Due:          note.SRSDue,
	}, rating, now)

	note.SRSInterval = state.IntervalDays
	note.SRSEase = state.Ease
	note.SRSReps = state.Reps
	note.SRSLapses = state.Lapses
	note.SRSDue = state.Due
	note.UpdatedAt = now

	if err := h.notes.Save(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save review", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"note":          note,
		"next_due":      state.Due,
		"interval_days": state.IntervalDays,
	})
}

// Import accepts a multipart study-guide upload (PDF, TXT or DOCX), stores
// the file and queues a background job that splits it into notes.
func (h *NoteHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "File too large or malformed upload", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "file is required", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".txt" && ext != ".docx" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Only PDF, TXT and DOCX files are supported", r))
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}

	destPath := filepath.Join(h.uploadDir, uuid.New().String()+ext)
	dest, err := os.Create(destPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		os.Remove(destPath)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}
	dest.Close()

	var meta models.ImportNotesRequest
	if raw := r.FormValue("options"); raw != "" {
		json.Unmarshal([]byte(raw), &meta)
	}

	config, _ := json.Marshal(map[string]interface{}{
		"file_path": destPath,
		"module_id": meta.ModuleID,
		"tags":      meta.Tags,
	})

	job := &models.Job{
		UserID:     userID,
		Type:       "note-import",
		ConfigJSON: config,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:note-import", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
	})
}
