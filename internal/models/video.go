package models

import (
	"time"

	"github.com/google/uuid"
)

// StudyVideo is a curated YouTube video attached to a study module.
type StudyVideo struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	YouTubeID       string     `json:"youtube_id"`
	Title           string     `json:"title"`
	ChannelName     string     `json:"channel_name"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	DurationSeconds int        `json:"duration_seconds"`
	ModuleID        *string    `json:"module_id"`
	Transcript      *string    `json:"transcript"`
	Status          string     `json:"status"` // pending | ready | failed
	CreatedAt       time.Time  `json:"created_at"`
	ImportedAt      *time.Time `json:"imported_at"`
}

type ImportVideoRequest struct {
	URL      string  `json:"url"`
	ModuleID *string `json:"module_id"`
}
