package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PracticeAttempt is the persisted record of a completed (or abandoned)
// practice session. The in-memory state machine lives in internal/session;
// only finalized attempts reach the database.
type PracticeAttempt struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	ModuleID         *string         `json:"module_id"`
	Domains          []string        `json:"domains"`
	QuestionCount    int             `json:"question_count"`
	CorrectCount     int             `json:"correct_count"`
	Score            int             `json:"score"`
	Passed           bool            `json:"passed"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
	SummaryJSON      json.RawMessage `json:"summary"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      time.Time       `json:"completed_at"`
	Abandoned        bool            `json:"abandoned"`
}

type StartPracticeRequest struct {
	ModuleID      *string  `json:"module_id"`
	Domains       []string `json:"domains"`
	Difficulty    *string  `json:"difficulty"`
	QuestionCount int      `json:"question_count"`
	PassingScore  int      `json:"passing_score"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	ChoiceID   string `json:"choice_id"`
}
