package worker

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

func TestProcessWithoutTutorFailsCleanly(t *testing.T) {
	p := &Pool{}
	job := &models.Job{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Type:   "explanation-generation",
	}

	err := p.process(context.Background(), job)
	if err == nil {
		t.Fatalf("expected error for explanation job without a tutor service")
	}
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := &Pool{}
	job := &models.Job{ID: uuid.New(), Type: "bogus-type"}

	err := p.process(context.Background(), job)
	if err == nil {
		t.Fatalf("expected error for unknown job type")
	}
}

func TestJobQueueName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"video-import", "queue:video-import"},
		{"queue:note-import", "queue:note-import"},
		{"explanation-generation", "queue:explanation-generation"},
	}
	for _, tt := range tests {
		if got := jobQueueName(tt.in); got != tt.want {
			t.Errorf("jobQueueName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
