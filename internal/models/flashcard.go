package models

import (
	"time"

	"github.com/google/uuid"
)

type Flashcard struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FrontText string    `json:"front_text"`
	BackText  string    `json:"back_text"`
	Hint      *string   `json:"hint"`
	ModuleID  *string   `json:"module_id"`
	SectionID *string   `json:"section_id"`
	Tags      []string  `json:"tags"`

	// SRS state
	SRSDue      time.Time `json:"srs_due"`
	SRSInterval int       `json:"srs_interval"`
	SRSEase     float64   `json:"srs_ease"`
	SRSReps     int       `json:"srs_reps"`
	SRSLapses   int       `json:"srs_lapses"`

	// Performance tracking
	TotalReviews   int        `json:"total_reviews"`
	CorrectReviews int        `json:"correct_reviews"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FlashcardReview is one row of review history, with SRS state snapshots
// taken before and after the rating was applied.
type FlashcardReview struct {
	ID                uuid.UUID `json:"id"`
	FlashcardID       uuid.UUID `json:"flashcard_id"`
	UserID            uuid.UUID `json:"user_id"`
	Rating            string    `json:"rating"`
	TimeSpentSeconds  int       `json:"time_spent_seconds"`
	SRSIntervalBefore int       `json:"srs_interval_before"`
	SRSIntervalAfter  int       `json:"srs_interval_after"`
	SRSEaseBefore     float64   `json:"srs_ease_before"`
	SRSEaseAfter      float64   `json:"srs_ease_after"`
	ReviewedAt        time.Time `json:"reviewed_at"`
}

type CreateFlashcardRequest struct {
	FrontText string   `json:"front_text"`
	BackText  string   `json:"back_text"`
	Hint      *string  `json:"hint"`
	ModuleID  *string  `json:"module_id"`
	SectionID *string  `json:"section_id"`
	Tags      []string `json:"tags"`
}

type RateCardRequest struct {
	Rating           string `json:"rating"` // again | hard | good | easy
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

type FlashcardStats struct {
	TotalCards       int     `json:"total_cards"`
	DueToday         int     `json:"due_today"`
	NewCards         int     `json:"new_cards"`
	LearningCards    int     `json:"learning_cards"`
	MatureCards      int     `json:"mature_cards"`
	AvgRetentionRate float64 `json:"avg_retention_rate"`
}
