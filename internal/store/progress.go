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

// ProgressRemote is the authoritative study-progress storage. Upsert is
// keyed by (user, module, section), not by row id.
type ProgressRemote interface {
	Upsert(ctx context.Context, p *models.StudyProgress) error
	Get(ctx context.Context, userID uuid.UUID, moduleID, sectionID string) (*models.StudyProgress, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudyProgress, error)
}

// ProgressStore is the local-first adapter for section progress.
type ProgressStore struct {
	remote  ProgressRemote
	queue   Queue
	cache   Cache
	timeout time.Duration
}

func NewProgressStore(remote ProgressRemote, queue Queue, cache Cache, timeout time.Duration) *ProgressStore {
	return &ProgressStore{remote: remote, queue: queue, cache: cache, timeout: timeout}
}

// progressKey is the cache field for one section's progress. Progress is
// identified by module and section, so the cache must be too, or an offline
// write followed by an online one would leave two copies of the same row.
func progressKey(moduleID, sectionID string) string {
	return moduleID + "/" + sectionID
}

func (s *ProgressStore) Save(ctx context.Context, p *models.StudyProgress) error {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	field := progressKey(p.ModuleID, p.SectionID)

	if uerr := s.remote.Upsert(rctx, p); uerr == nil {
		if cerr := s.cache.Put(ctx, KindProgress, p.UserID.String(), field, payload); cerr != nil {
			log.Printf("progress cache put failed: %v", cerr)
		}
		return nil
	} else {
		log.Printf("progress save deferred to sync queue: %v", uerr)
	}

	if err := s.queue.Append(ctx, PendingWrite{
		Kind:     KindProgress,
		UserID:   p.UserID.String(),
		Payload:  payload,
		QueuedAt: time.Now(),
	}); err != nil {
		return err
	}
	return s.cache.Put(ctx, KindProgress, p.UserID.String(), field, payload)
}

func (s *ProgressStore) Load(ctx context.Context, userID uuid.UUID, moduleID, sectionID string) (*models.StudyProgress, error) {
	var remote *models.StudyProgress

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	p, err := s.remote.Get(rctx, userID, moduleID, sectionID)
	cancel()
	if err == nil {
		remote = p
	}

	cached, cerr := s.cache.Get(ctx, KindProgress, userID.String(), progressKey(moduleID, sectionID))
	if cerr != nil {
		if remote != nil {
			return remote, nil
		}
		return nil, ErrNotFound
	}

	var local models.StudyProgress
	if uerr := json.Unmarshal(cached, &local); uerr != nil {
		log.Printf("dropping malformed cached progress %s/%s: %v", moduleID, sectionID, uerr)
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

func (s *ProgressStore) List(ctx context.Context, userID uuid.UUID) ([]models.StudyProgress, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	remote, rerr := s.remote.ListByUser(rctx, userID)
	cancel()

	cached, cerr := s.cache.GetAll(ctx, KindProgress, userID.String())
	if rerr != nil {
		if cerr != nil {
			return nil, rerr
		}
		remote = nil
	}
	if cerr != nil {
		return remote, nil
	}

	local := make([]models.StudyProgress, 0, len(cached))
	for key, payload := range cached {
		var p models.StudyProgress
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Printf("skipping malformed cached progress %s: %v", key, err)
			continue
		}
		local = append(local, p)
	}
	return mergeProgressByNewest(remote, local), nil
}

func mergeProgressByNewest(a, b []models.StudyProgress) []models.StudyProgress {
	byKey := make(map[string]models.StudyProgress, len(a)+len(b))
	for _, p := range a {
		byKey[progressKey(p.ModuleID, p.SectionID)] = p
	}
	for _, p := range b {
		key := progressKey(p.ModuleID, p.SectionID)
		if existing, ok := byKey[key]; !ok || p.UpdatedAt.After(existing.UpdatedAt) {
			byKey[key] = p
		}
	}
	out := make([]models.StudyProgress, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModuleID != out[j].ModuleID {
			return out[i].ModuleID < out[j].ModuleID
		}
		return out[i].SectionID < out[j].SectionID
	})
	return out
}
