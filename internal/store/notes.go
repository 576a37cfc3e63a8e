package store

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

// NoteRemote is the authoritative note storage (Postgres in production).
type NoteRemote interface {
	Upsert(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Note, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
}

// NoteStore is the local-first adapter for notes. Writes always succeed:
// if the remote is unreachable within the timeout, the write is queued for
// later sync and mirrored into the local cache.
type NoteStore struct {
	remote  NoteRemote
	queue   Queue
	cache   Cache
	timeout time.Duration
}

func NewNoteStore(remote NoteRemote, queue Queue, cache Cache, timeout time.Duration) *NoteStore {
	return &NoteStore{remote: remote, queue: queue, cache: cache, timeout: timeout}
}

func (s *NoteStore) Save(ctx context.Context, note *models.Note) error {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}

	if uerr := s.remote.Upsert(rctx, note); uerr == nil {
		// Cache errors are non-fatal; the remote already has the row.
		if cerr := s.cache.Put(ctx, KindNote, note.UserID.String(), note.ID.String(), payload); cerr != nil {
			log.Printf("note cache put failed: %v", cerr)
		}
		return nil
	} else {
		log.Printf("note save deferred to sync queue: %v", uerr)
	}
	if err := s.queue.Append(ctx, PendingWrite{
		Kind:     KindNote,
		UserID:   note.UserID.String(),
		Payload:  payload,
		QueuedAt: time.Now(),
	}); err != nil {
		return err
	}
	return s.cache.Put(ctx, KindNote, note.UserID.String(), note.ID.String(), payload)
}

// Load reads a note, preferring the remote and falling back to the local
// cache. A cached copy can be newer than the remote when unsynced writes
// are pending, so the two are merged by updated_at.
func (s *NoteStore) Load(ctx context.Context, userID, id uuid.UUID) (*models.Note, error) {
	var remote *models.Note

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	n, err := s.remote.GetByID(rctx, userID, id)
	cancel()
	if err == nil {
		remote = n
	}

	cached, cerr := s.cache.Get(ctx, KindNote, userID.String(), id.String())
	if cerr != nil {
		if remote != nil {
			return remote, nil
		}
		return nil, ErrNotFound
	}

	var local models.Note
	if uerr := json.Unmarshal(cached, &local); uerr != nil {
		log.Printf("dropping malformed cached note %s: %v", id, uerr)
		if remote != nil {
			return remote, nil
		}
		return nil, ErrMalformedRecord
	}
	if remote != nil && !remote.UpdatedAt.Before(local.UpdatedAt) {
		return remote, nil
	}
	return &local, nil
}

// List merges the remote and cached note sets, newest copy of each id wins.
func (s *NoteStore) List(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	remote, rerr := s.remote.ListByUser(rctx, userID)
	cancel()

	cached, cerr := s.cache.GetAll(ctx, KindNote, userID.String())
	if rerr != nil {
		if cerr != nil {
			return nil, rerr
		}
		remote = nil
	}
	if cerr != nil {
		return remote, nil
	}

	local := make([]models.Note, 0, len(cached))
	for id, payload := range cached {
		var n models.Note
		if err := json.Unmarshal(payload, &n); err != nil {
			log.Printf("skipping malformed cached note %s: %v", id, err)
			continue
		}
		local = append(local, n)
	}
	return mergeNotesByNewest(remote, local), nil
}

// mergeNotesByNewest unions two note lists keyed by id, keeping whichever
// copy has the later updated_at.
func mergeNotesByNewest(a, b []models.Note) []models.Note {
	byID := make(map[uuid.UUID]models.Note, len(a)+len(b))
	for _, n := range a {
		byID[n.ID] = n
	}
	for _, n := range b {
		if existing, ok := byID[n.ID]; !ok || n.UpdatedAt.After(existing.UpdatedAt) {
			byID[n.ID] = n
		}
	}
	out := make([]models.Note, 0, len(byID))
	for _, n := range byID {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}
