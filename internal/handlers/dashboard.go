package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"tco-prep-backend/internal/gamification"
	"tco-prep-backend/internal/middleware"
	"tco-prep-backend/internal/repository"
)

type DashboardHandler struct {
	attemptRepo  *repository.AttemptRepo
	flashRepo    *repository.FlashcardRepo
	progressRepo *repository.ProgressRepo
	reviewRepo   *repository.QuestionReviewRepo
	userRepo     *repository.UserRepo
}

func NewDashboardHandler(
	attemptRepo *repository.AttemptRepo,
	flashRepo *repository.FlashcardRepo,
	progressRepo *repository.ProgressRepo,
	reviewRepo *repository.QuestionReviewRepo,
	userRepo *repository.UserRepo,
) *DashboardHandler {
	return &DashboardHandler{
		attemptRepo:  attemptRepo,
		flashRepo:    flashRepo,
		progressRepo: progressRepo,
		reviewRepo:   reviewRepo,
		userRepo:     userRepo,
	}
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	attemptStats, err := h.attemptRepo.GetStats(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch practice stats", r))
		return
	}

	reviewStats, err := h.reviewRepo.GetDailyStats(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch review stats", r))
		return
	}

	weekStart := time.Now().AddDate(0, 0, -7)
	weekSeconds, err := h.progressRepo.TotalStudySeconds(ctx, userID, weekStart)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch study time", r))
		return
	}

	modules, err := h.progressRepo.SummaryByModule(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch module progress", r))
		return
	}

	streak, activity := h.activityStreak(r)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"practice":           attemptStats,
		"reviews":            reviewStats,
		"modules":            modules,
		"study_seconds_week": weekSeconds,
		"streak_days":        streak,
		"activity":           activity,
		"weekly_goal":        h.weeklyGoal(r),
		"gamification":       h.gamificationSummary(r, attemptStats, modules, streak),
	})
}

// gamificationSummary recomputes points, level and achievements from the
// lifetime counters on every read. Counter queries that fail leave their
// fields at zero rather than failing the whole overview.
func (h *DashboardHandler) gamificationSummary(
	r *http.Request,
	attemptStats *repository.AttemptStats,
	modules []repository.ModuleProgressSummary,
	streak int,
) gamification.Summary {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	stats := gamification.Stats{
		StreakDays:      streak,
		TotalAttempts:   attemptStats.TotalAttempts,
		PassedAttempts:  attemptStats.Passed,
		PerfectAttempts: attemptStats.Perfect,
		CorrectAnswers:  attemptStats.CorrectAnswers,
	}

	if total, correct, mastered, err := h.flashRepo.LifetimeCounts(ctx, userID); err == nil {
		stats.TotalReviews += total
		stats.CorrectReviews += correct
		stats.ItemsMastered = mastered
	}
	if total, correct, err := h.reviewRepo.LifetimeCounts(ctx, userID); err == nil {
		stats.TotalReviews += total
		stats.CorrectReviews += correct
	}
	for _, m := range modules {
		if m.TotalSections > 0 && m.Completed == m.TotalSections {
			stats.CompletedModules++
		}
	}

	return gamification.Summarize(stats)
}

// Activity returns per-day practice and review counts for the heatmap.
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	_, activity := h.activityStreak(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

func (h *DashboardHandler) DomainScores(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	scores, err := h.attemptRepo.ScoresByDomain(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch domain scores", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"domains": scores})
}

// activityStreak merges practice attempts and flashcard reviews into one
// per-day activity map and counts consecutive active days ending today or
// yesterday.
func (h *DashboardHandler) activityStreak(r *http.Request) (int, map[string]int) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()
	const window = 90

	activity := make(map[string]int)
	if counts, err := h.attemptRepo.CountByDay(ctx, userID, window); err == nil {
		for day, n := range counts {
			activity[day] += n
		}
	}
	if counts, err := h.flashRepo.ReviewCountsByDay(ctx, userID, window); err == nil {
		for day, n := range counts {
			activity[day] += n
		}
	}

	return computeStreak(activity, time.Now()), activity
}

// computeStreak counts consecutive active days walking back from today.
// A streak survives an inactive today (the user may study later), but a
// gap before that breaks it.
func computeStreak(activity map[string]int, now time.Time) int {
	day := now
	if activity[day.Format("2006-01-02")] == 0 {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for activity[day.Format("2006-01-02")] > 0 {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func (h *DashboardHandler) weeklyGoal(r *http.Request) map[string]interface{} {
	userID := middleware.GetUserID(r.Context())

	goal := map[string]interface{}{
		"target":    0,
		"completed": 0,
	}

	settings, err := h.userRepo.GetSettings(r.Context(), userID)
	if err != nil {
		return goal
	}

	var stored map[string]interface{}
	if err := json.Unmarshal(settings.NotificationsJSON, &stored); err == nil {
		if v, ok := stored["weekly_goal_target"].(float64); ok {
			goal["target"] = int(v)
		}
	}

	if stats, err := h.reviewRepo.GetDailyStats(r.Context(), userID); err == nil {
		goal["completed"] = stats.ReviewsThisWeek
	}
	return goal
}

func (h *DashboardHandler) SetWeeklyGoal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Target int `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Target < 0 || req.Target > 1000 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "target must be between 0 and 1000", r))
		return
	}

	if err := h.userRepo.SetWeeklyGoalTarget(r.Context(), userID, req.Target, "reviews"); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save weekly goal", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"target": req.Target})
}
