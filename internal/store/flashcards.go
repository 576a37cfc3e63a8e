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

// FlashcardRemote is the authoritative flashcard storage.
type FlashcardRemote interface {
	Upsert(ctx context.Context, card *models.Flashcard) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Flashcard, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Flashcard, error)
}

// FlashcardStore is the local-first adapter for flashcards. A rating applied
// while the backend is unreachable still updates SRS state locally and is
// replayed on the next sync.
type FlashcardStore struct {
	remote  FlashcardRemote
	queue   Queue
	cache   Cache
	timeout time.Duration
}

func NewFlashcardStore(remote FlashcardRemote, queue Queue, cache Cache, timeout time.Duration) *FlashcardStore {
	return &FlashcardStore{remote: remote, queue: queue, cache: cache, timeout: timeout}
}

func (s *FlashcardStore) Save(ctx context.Context, card *models.Flashcard) error {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(card)
	if err != nil {
		return err
	}

	if uerr := s.remote.Upsert(rctx, card); uerr == nil {
		if cerr := s.cache.Put(ctx, KindFlashcard, card.UserID.String(), card.ID.String(), payload); cerr != nil {
			log.Printf("flashcard cache put failed: %v", cerr)
		}
		return nil
	} else {
		log.Printf("flashcard save deferred to sync queue: %v", uerr)
	}

	if err := s.queue.Append(ctx, PendingWrite{
		Kind:     KindFlashcard,
		UserID:   card.UserID.String(),
		Payload:  payload,
		QueuedAt: time.Now(),
	}); err != nil {
		return err
	}
	return s.cache.Put(ctx, KindFlashcard, card.UserID.String(), card.ID.String(), payload)
}

func (s *FlashcardStore) Load(ctx context.Context, userID, id uuid.UUID) (*models.Flashcard, error) {
	var remote *models.Flashcard

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	c, err := s.remote.GetByID(rctx, userID, id)
	cancel()
	if err == nil {
		remote = c
	}

	cached, cerr := s.cache.Get(ctx, KindFlashcard, userID.String(), id.String())
	if cerr != nil {
		if remote != nil {
			return remote, nil
		}
		return nil, ErrNotFound
	}

	var local models.Flashcard
	if uerr := json.Unmarshal(cached, &local); uerr != nil {
		log.Printf("dropping malformed cached flashcard %s: %v", id, uerr)
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

func (s *FlashcardStore) List(ctx context.Context, userID uuid.UUID) ([]models.Flashcard, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	remote, rerr := s.remote.ListByUser(rctx, userID)
	cancel()

	cached, cerr := s.cache.GetAll(ctx, KindFlashcard, userID.String())
	if rerr != nil {
		if cerr != nil {
			return nil, rerr
		}
		remote = nil
	}
	if cerr != nil {
		return remote, nil
	}

	local := make([]models.Flashcard, 0, len(cached))
	for id, payload := range cached {
		var c models.Flashcard
		if err := json.Unmarshal(payload, &c); err != nil {
			log.Printf("skipping malformed cached flashcard %s: %v", id, err)
			continue
		}
		local = append(local, c)
	}
	return mergeFlashcardsByNewest(remote, local), nil
}

func mergeFlashcardsByNewest(a, b []models.Flashcard) []models.Flashcard {
	byID := make(map[uuid.UUID]models.Flashcard, len(a)+len(b))
	for _, c := range a {
		byID[c.ID] = c
	}
	for _, c := range b {
		if existing, ok := byID[c.ID]; !ok || c.UpdatedAt.After(existing.UpdatedAt) {
			byID[c.ID] = c
		}
	}
	out := make([]models.Flashcard, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}
