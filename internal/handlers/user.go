package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/models"
)

// userRepository is the slice of the user repo the handler needs; tests
// substitute stubs.
type userRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, settings *models.UserSettings) error
	SetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, enabled bool) error
}

type UserHandler struct {
	userRepo userRepository
}

func NewUserHandler(userRepo userRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	var req struct {
		FullName  *string `json:"full_name"`
		AvatarURL *string `json:"avatar_url"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.FullName != nil {
		if *req.FullName == "" || len(*req.FullName) > 100 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "full_name must be between 1 and 100 characters", r))
			return
		}
		user.FullName = *req.FullName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.userRepo.Update(r.Context(), user); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update profile", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if !validPassword(req.NewPassword) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Password must be at least 8 characters with a letter and a digit", r))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Current password is incorrect", r))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to hash password", r))
		return
	}

	if err := h.userRepo.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to change password", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.userRepo.Delete(r.Context(), userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete account", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	settings, err := h.userRepo.GetSettings(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Settings not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"default_difficulty":     settings.DefaultDifficulty,
		"daily_review_target":    settings.DailyReviewTarget,
		"practice_passing_score": settings.PracticePassingScore,
		"notifications":          mergeNotificationPreferences(settings.NotificationsJSON),
	})
}

func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		DefaultDifficulty    *string         `json:"default_difficulty"`
		DailyReviewTarget    *int            `json:"daily_review_target"`
		PracticePassingScore *int            `json:"practice_passing_score"`
		Notifications        map[string]bool `json:"notifications"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	settings, err := h.userRepo.GetSettings(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Settings not found", r))
		return
	}

	if req.DefaultDifficulty != nil {
		if !models.ValidDifficulty(*req.DefaultDifficulty) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid default_difficulty", r))
			return
		}
		settings.DefaultDifficulty = *req.DefaultDifficulty
	}
	if req.DailyReviewTarget != nil {
		if *req.DailyReviewTarget < 1 || *req.DailyReviewTarget > 500 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "daily_review_target must be between 1 and 500", r))
			return
		}
		settings.DailyReviewTarget = *req.DailyReviewTarget
	}
	if req.PracticePassingScore != nil {
		if *req.PracticePassingScore < 0 || *req.PracticePassingScore > 100 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "practice_passing_score must be between 0 and 100", r))
			return
		}
		settings.PracticePassingScore = *req.PracticePassingScore
	}
	if req.Notifications != nil {
		merged := mergeNotificationPreferences(settings.NotificationsJSON)
		for key, enabled := range req.Notifications {
			if _, known := merged[key]; known {
				merged[key] = enabled
			}
		}
		b, _ := json.Marshal(merged)
		settings.NotificationsJSON = b
	}

	if err := h.userRepo.UpdateSettings(r.Context(), settings); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update settings", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Settings updated"})
}

func validPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// defaultNotificationPreferences is the canonical set of email notification
// toggles. Review reminders are on by default; the rest are opt-in.
func defaultNotificationPreferences() map[string]bool {
	return map[string]bool{
		"review_reminders": true,
		"weekly_digest":    false,
		"study_reminders":  false,
	}
}

// mergeNotificationPreferences overlays stored preferences onto the
// defaults. Unknown keys and non-boolean values are ignored, so a corrupt
// blob degrades to defaults instead of failing the request.
func mergeNotificationPreferences(raw json.RawMessage) map[string]bool {
	prefs := defaultNotificationPreferences()
	if len(raw) == 0 {
		return prefs
	}

	var stored map[string]interface{}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return prefs
	}

	for key := range prefs {
		if v, ok := stored[key].(bool); ok {
			prefs[key] = v
		}
	}
	return prefs
}
