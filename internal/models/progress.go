package models

import (
	"time"

	"github.com/google/uuid"
)

// Section progress status values. The common path is monotone
// (not_started -> in_progress -> completed); needs_review can be set
// from any state.
const (
	StatusNotStarted  string = "not_started"
	StatusInProgress  string = "in_progress"
	StatusCompleted   string = "completed"
	StatusNeedsReview string = "needs_review"
)

var ProgressStatuses = []string{StatusNotStarted, StatusInProgress, StatusCompleted, StatusNeedsReview}

// StudyProgress tracks completion of one (user, module, section) tuple.
// Rows are upserted, never hard-deleted.
type StudyProgress struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	ModuleID         string     `json:"module_id"`
	SectionID        string     `json:"section_id"`
	SectionTitle     string     `json:"section_title"`
	Status           string     `json:"status"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type UpsertProgressRequest struct {
	ModuleID         string `json:"module_id"`
	SectionID        string `json:"section_id"`
	SectionTitle     string `json:"section_title"`
	Status           string `json:"status"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

func ValidProgressStatus(s string) bool {
	for _, v := range ProgressStatuses {
		if v == s {
			return true
		}
	}
	return false
}
