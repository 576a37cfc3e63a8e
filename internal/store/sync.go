package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

// SyncReport summarizes one drain pass over the pending-write queue.
// PerUser breaks the same counts down by the user whose writes were
// replayed, for targeted client notifications.
type SyncReport struct {
	Drained  int                      `json:"drained"`
	Requeued int                      `json:"requeued"`
	Dropped  int                      `json:"dropped"`
	PerUser  map[string]SyncUserStats `json:"-"`
}

type SyncUserStats struct {
	Drained  int
	Requeued int
	Dropped  int
}

// Syncer replays queued offline writes against the remote stores. One
// snapshot-and-clear pass per call: writes that still fail go back on the
// queue for the next pass, writes that no longer parse are logged and
// dropped so a poison entry cannot block the queue forever.
type Syncer struct {
	queue      Queue
	notes      NoteRemote
	flashcards FlashcardRemote
	progress   ProgressRemote
}

func NewSyncer(queue Queue, notes NoteRemote, flashcards FlashcardRemote, progress ProgressRemote) *Syncer {
	return &Syncer{queue: queue, notes: notes, flashcards: flashcards, progress: progress}
}

func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	report := SyncReport{PerUser: make(map[string]SyncUserStats)}

	writes, err := s.queue.Snapshot(ctx)
	if err != nil {
		return report, err
	}

	var failed []PendingWrite
	for _, w := range writes {
		stats := report.PerUser[w.UserID]
		switch err := s.replay(ctx, w); {
		case err == nil:
			report.Drained++
			stats.Drained++
		case err == ErrMalformedRecord:
			log.Printf("sync: dropping malformed %s write for user %s", w.Kind, w.UserID)
			report.Dropped++
			stats.Dropped++
		default:
			log.Printf("sync: replay of %s write failed, requeueing: %v", w.Kind, err)
			failed = append(failed, w)
			report.Requeued++
			stats.Requeued++
		}
		report.PerUser[w.UserID] = stats
	}

	if err := s.queue.Requeue(ctx, failed); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Syncer) replay(ctx context.Context, w PendingWrite) error {
	switch w.Kind {
	case KindNote:
		note, err := decodeNote(w.Payload)
		if err != nil {
			return ErrMalformedRecord
		}
		return s.notes.Upsert(ctx, note)
	case KindFlashcard:
		card, err := decodeFlashcard(w.Payload)
		if err != nil {
			return ErrMalformedRecord
		}
		return s.flashcards.Upsert(ctx, card)
	case KindProgress:
		p, err := decodeProgress(w.Payload)
		if err != nil {
			return ErrMalformedRecord
		}
		return s.progress.Upsert(ctx, p)
	default:
		return ErrMalformedRecord
	}
}

func decodeNote(payload json.RawMessage) (*models.Note, error) {
	var n models.Note
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, err
	}
	if n.ID == uuid.Nil || n.UserID == uuid.Nil {
		return nil, ErrMalformedRecord
	}
	return &n, nil
}

func decodeFlashcard(payload json.RawMessage) (*models.Flashcard, error) {
	var c models.Flashcard
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil || c.UserID == uuid.Nil {
		return nil, ErrMalformedRecord
	}
	return &c, nil
}

func decodeProgress(payload json.RawMessage) (*models.StudyProgress, error) {
	var p models.StudyProgress
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.UserID == uuid.Nil || p.ModuleID == "" || p.SectionID == "" {
		return nil, ErrMalformedRecord
	}
	return &p, nil
}
