package models

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
	ModuleID  *string   `json:"module_id"`
	SectionID *string   `json:"section_id"`

	// SRS state, same shape as flashcards so notes can join the review queue
	SRSDue      time.Time `json:"srs_due"`
	SRSInterval int       `json:"srs_interval"`
	SRSEase     float64   `json:"srs_ease"`
	SRSReps     int       `json:"srs_reps"`
	SRSLapses   int       `json:"srs_lapses"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateNoteRequest struct {
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	ModuleID  *string  `json:"module_id"`
	SectionID *string  `json:"section_id"`
}

type ImportNotesRequest struct {
	ModuleID *string  `json:"module_id"`
	Tags     []string `json:"tags"`
}
