package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionReview carries SRS state for one (user, question) pair, created
// the first time a question is answered incorrectly in practice.
type QuestionReview struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	QuestionID uuid.UUID `json:"question_id"`

	SRSDue      time.Time `json:"srs_due"`
	SRSInterval int       `json:"srs_interval"`
	SRSEase     float64   `json:"srs_ease"`
	SRSReps     int       `json:"srs_reps"`
	SRSLapses   int       `json:"srs_lapses"`

	TotalAttempts   int        `json:"total_attempts"`
	CorrectAttempts int        `json:"correct_attempts"`
	LastReviewedAt  *time.Time `json:"last_reviewed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MasteryLevel is the fraction of correct attempts, 0.0 to 1.0.
func (qr *QuestionReview) MasteryLevel() float64 {
	if qr.TotalAttempts == 0 {
		return 0
	}
	return float64(qr.CorrectAttempts) / float64(qr.TotalAttempts)
}

type DailyReviewStats struct {
	FlashcardsDue  int `json:"flashcards_due"`
	QuestionsDue   int `json:"questions_due"`
	TotalDue       int `json:"total_due"`
	FlashcardsAll  int `json:"flashcards_total"`
	QuestionsAll   int `json:"questions_total"`
	ReviewsToday   int `json:"reviews_today"`
	ReviewsThisWeek int `json:"reviews_this_week"`
}
