package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

// fakeQueue is an in-memory Queue for tests.
type fakeQueue struct {
	items []PendingWrite
}

func (q *fakeQueue) Append(_ context.Context, w PendingWrite) error {
	q.items = append(q.items, w)
	return nil
}

func (q *fakeQueue) Snapshot(_ context.Context) ([]PendingWrite, error) {
	out := q.items
	q.items = nil
	return out, nil
}

func (q *fakeQueue) Requeue(_ context.Context, writes []PendingWrite) error {
	q.items = append(q.items, writes...)
	return nil
}

func (q *fakeQueue) Len(_ context.Context) (int64, error) {
	return int64(len(q.items)), nil
}

// fakeCache is an in-memory Cache for tests.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) key(kind, userID, id string) string {
	return kind + ":" + userID + ":" + id
}

func (c *fakeCache) Put(_ context.Context, kind, userID, id string, payload []byte) error {
	c.data[c.key(kind, userID, id)] = payload
	return nil
}

func (c *fakeCache) Get(_ context.Context, kind, userID, id string) ([]byte, error) {
	payload, ok := c.data[c.key(kind, userID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return payload, nil
}

func (c *fakeCache) GetAll(_ context.Context, kind, userID string) (map[string][]byte, error) {
	prefix := kind + ":" + userID + ":"
	out := make(map[string][]byte)
	for key, payload := range c.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out[key[len(prefix):]] = payload
		}
	}
	return out, nil
}

func (c *fakeCache) Delete(_ context.Context, kind, userID, id string) error {
	delete(c.data, c.key(kind, userID, id))
	return nil
}

var errBackendDown = errors.New("backend unreachable")

// fakeNoteRemote simulates the Postgres note repo with a reachability switch.
type fakeNoteRemote struct {
	down  bool
	notes map[uuid.UUID]models.Note
}

func newFakeNoteRemote() *fakeNoteRemote {
	return &fakeNoteRemote{notes: make(map[uuid.UUID]models.Note)}
}

func (r *fakeNoteRemote) Upsert(_ context.Context, n *models.Note) error {
	if r.down {
		return errBackendDown
	}
	r.notes[n.ID] = *n
	return nil
}

func (r *fakeNoteRemote) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Note, error) {
	if r.down {
		return nil, errBackendDown
	}
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (r *fakeNoteRemote) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Note, error) {
	if r.down {
		return nil, errBackendDown
	}
	var out []models.Note
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func testNote(userID uuid.UUID, text string, updatedAt time.Time) *models.Note {
	return &models.Note{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      text,
		SRSEase:   2.5,
		SRSDue:    updatedAt,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestNoteStoreSaveOnline(t *testing.T) {
	remote := newFakeNoteRemote()
	queue := &fakeQueue{}
	cache := newFakeCache()
	s := NewNoteStore(remote, queue, cache, time.Second)

	userID := uuid.New()
	note := testNote(userID, "sensors report once per interval", time.Now())

	if err := s.Save(context.Background(), note); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, ok := remote.notes[note.ID]; !ok {
		t.Error("expected note written to remote")
	}
	if n, _ := queue.Len(context.Background()); n != 0 {
		t.Errorf("expected empty queue, got %d entries", n)
	}
}

func TestNoteStoreSaveOfflineQueuesAndReadsBack(t *testing.T) {
	remote := newFakeNoteRemote()
	remote.down = true
	queue := &fakeQueue{}
	cache := newFakeCache()
	s := NewNoteStore(remote, queue, cache, time.Second)

	userID := uuid.New()
	note := testNote(userID, "written while offline", time.Now())

	if err := s.Save(context.Background(), note); err != nil {
		t.Fatalf("offline Save should succeed, got: %v", err)
	}
	if n, _ := queue.Len(context.Background()); n != 1 {
		t.Fatalf("expected 1 queued write, got %d", n)
	}

	// Still readable while the backend is down.
	got, err := s.Load(context.Background(), userID, note.ID)
	if err != nil {
		t.Fatalf("Load after offline save: %v", err)
	}
	if got.Text != note.Text {
		t.Errorf("expected cached text %q, got %q", note.Text, got.Text)
	}
}

func TestNoteStoreLoadNotFoundAnywhere(t *testing.T) {
	s := NewNoteStore(newFakeNoteRemote(), &fakeQueue{}, newFakeCache(), time.Second)

	_, err := s.Load(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNoteStoreLoadPrefersNewerCopy(t *testing.T) {
	remote := newFakeNoteRemote()
	queue := &fakeQueue{}
	cache := newFakeCache()
	s := NewNoteStore(remote, queue, cache, time.Second)

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)

	// Older copy lands remotely, then a newer edit happens offline.
	note := testNote(userID, "v1", base)
	if err := s.Save(context.Background(), note); err != nil {
		t.Fatal(err)
	}
	remote.down = true
	note.Text = "v2"
	note.UpdatedAt = base.Add(30 * time.Minute)
	if err := s.Save(context.Background(), note); err != nil {
		t.Fatal(err)
	}
	remote.down = false

	got, err := s.Load(context.Background(), userID, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "v2" {
		t.Errorf("expected newer local copy to win, got %q", got.Text)
	}
}

func TestSyncerDrainsQueue(t *testing.T) {
	remote := newFakeNoteRemote()
	remote.down = true
	queue := &fakeQueue{}
	cache := newFakeCache()
	s := NewNoteStore(remote, queue, cache, time.Second)

	userID := uuid.New()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		note := testNote(userID, "offline note", time.Now())
		if err := s.Save(context.Background(), note); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, note.ID)
	}

	remote.down = false
	syncer := NewSyncer(queue, remote, nil, nil)
	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if report.Drained != 3 || report.Requeued != 0 || report.Dropped != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	for _, id := range ids {
		if _, ok := remote.notes[id]; !ok {
			t.Errorf("note %s not replayed to remote", id)
		}
	}
	if n, _ := queue.Len(context.Background()); n != 0 {
		t.Errorf("expected drained queue, got %d entries", n)
	}
}

func TestSyncerRequeuesFailures(t *testing.T) {
	remote := newFakeNoteRemote()
	remote.down = true
	queue := &fakeQueue{}
	s := NewNoteStore(remote, queue, newFakeCache(), time.Second)

	note := testNote(uuid.New(), "stuck note", time.Now())
	if err := s.Save(context.Background(), note); err != nil {
		t.Fatal(err)
	}

	// Backend still down: the write must survive the failed pass.
	syncer := NewSyncer(queue, remote, nil, nil)
	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Requeued != 1 || report.Drained != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	if n, _ := queue.Len(context.Background()); n != 1 {
		t.Fatalf("expected write back on queue, got %d entries", n)
	}

	remote.down = false
	report, err = syncer.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Drained != 1 {
		t.Errorf("expected write drained on retry, got %+v", report)
	}
}

func TestSyncerDropsMalformedEntries(t *testing.T) {
	queue := &fakeQueue{}
	queue.items = []PendingWrite{
		{Kind: KindNote, UserID: "u", Payload: json.RawMessage(`{"id":"not-a-uuid"`), QueuedAt: time.Now()},
		{Kind: "mystery", UserID: "u", Payload: json.RawMessage(`{}`), QueuedAt: time.Now()},
	}
	remote := newFakeNoteRemote()
	good := testNote(uuid.New(), "valid", time.Now())
	payload, _ := json.Marshal(good)
	queue.items = append(queue.items, PendingWrite{Kind: KindNote, UserID: good.UserID.String(), Payload: payload, QueuedAt: time.Now()})

	syncer := NewSyncer(queue, remote, nil, nil)
	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Dropped != 2 {
		t.Errorf("expected 2 dropped entries, got %d", report.Dropped)
	}
	if report.Drained != 1 {
		t.Errorf("expected valid entry drained, got %d", report.Drained)
	}
	if n, _ := queue.Len(context.Background()); n != 0 {
		t.Errorf("malformed entries must not be requeued, queue has %d", n)
	}
}

func TestNoteListMergesByNewest(t *testing.T) {
	remote := newFakeNoteRemote()
	queue := &fakeQueue{}
	cache := newFakeCache()
	s := NewNoteStore(remote, queue, cache, time.Second)

	userID := uuid.New()
	base := time.Now().Add(-2 * time.Hour)

	shared := testNote(userID, "remote copy", base)
	remote.notes[shared.ID] = *shared

	newer := *shared
	newer.Text = "local edit"
	newer.UpdatedAt = base.Add(time.Hour)
	payload, _ := json.Marshal(newer)
	cache.Put(context.Background(), KindNote, userID.String(), newer.ID.String(), payload)

	onlyLocal := testNote(userID, "never synced", base)
	payload, _ = json.Marshal(onlyLocal)
	cache.Put(context.Background(), KindNote, userID.String(), onlyLocal.ID.String(), payload)

	notes, err := s.List(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 merged notes, got %d", len(notes))
	}
	byID := make(map[uuid.UUID]models.Note)
	for _, n := range notes {
		byID[n.ID] = n
	}
	if byID[shared.ID].Text != "local edit" {
		t.Errorf("expected newer local copy to win merge, got %q", byID[shared.ID].Text)
	}
	if _, ok := byID[onlyLocal.ID]; !ok {
		t.Error("unsynced local note missing from merged list")
	}
}

// fakeProgressRemote mirrors the repo upsert: time spent accumulates only
// when the incoming updated_at is strictly newer than the stored row.
type fakeProgressRemote struct {
	rows map[string]models.StudyProgress
}

func newFakeProgressRemote() *fakeProgressRemote {
	return &fakeProgressRemote{rows: make(map[string]models.StudyProgress)}
}

func (r *fakeProgressRemote) Upsert(_ context.Context, p *models.StudyProgress) error {
	key := p.UserID.String() + ":" + p.ModuleID + ":" + p.SectionID
	existing, ok := r.rows[key]
	if !ok {
		r.rows[key] = *p
		return nil
	}
	if !existing.UpdatedAt.Before(p.UpdatedAt) {
		return nil
	}
	existing.Status = p.Status
	existing.TimeSpentSeconds += p.TimeSpentSeconds
	existing.UpdatedAt = p.UpdatedAt
	r.rows[key] = existing
	return nil
}

func (r *fakeProgressRemote) Get(_ context.Context, userID uuid.UUID, moduleID, sectionID string) (*models.StudyProgress, error) {
	p, ok := r.rows[userID.String()+":"+moduleID+":"+sectionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *fakeProgressRemote) ListByUser(_ context.Context, userID uuid.UUID) ([]models.StudyProgress, error) {
	var out []models.StudyProgress
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestSyncerReplayOfSameProgressWriteIsIdempotent(t *testing.T) {
	userID := uuid.New()
	p := models.StudyProgress{
		ID: uuid.New(), UserID: userID,
		ModuleID: "asking-questions", SectionID: "sensors",
		Status: models.StatusInProgress, TimeSpentSeconds: 300,
		UpdatedAt: time.Now().Add(-time.Minute),
	}
	payload, _ := json.Marshal(p)
	write := PendingWrite{Kind: KindProgress, UserID: userID.String(), Payload: payload, QueuedAt: time.Now()}

	remote := newFakeProgressRemote()
	seed := p
	seed.TimeSpentSeconds = 0
	seed.UpdatedAt = p.UpdatedAt.Add(-time.Hour)
	remote.rows[userID.String()+":"+p.ModuleID+":"+p.SectionID] = seed

	queue := &fakeQueue{}
	syncer := NewSyncer(queue, nil, nil, remote)

	// A timeout after the remote commit leaves the same write queued twice.
	for i := 0; i < 2; i++ {
		queue.items = []PendingWrite{write}
		if _, err := syncer.Sync(context.Background()); err != nil {
			t.Fatalf("Sync pass %d: %v", i+1, err)
		}
	}

	got, err := remote.Get(context.Background(), userID, p.ModuleID, p.SectionID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TimeSpentSeconds != 300 {
		t.Errorf("expected time counted once (300s), got %ds", got.TimeSpentSeconds)
	}
}

func TestProgressMergeKeyedByModuleSection(t *testing.T) {
	userID := uuid.New()
	base := time.Now().Add(-time.Hour)

	remoteRow := models.StudyProgress{
		ID: uuid.New(), UserID: userID,
		ModuleID: "asking-questions", SectionID: "sensors",
		Status: models.StatusInProgress, UpdatedAt: base,
	}
	// Same section written offline under a different row id; newest wins and
	// the pair must collapse to one entry.
	localRow := remoteRow
	localRow.ID = uuid.New()
	localRow.Status = models.StatusCompleted
	localRow.UpdatedAt = base.Add(time.Minute)

	merged := mergeProgressByNewest([]models.StudyProgress{remoteRow}, []models.StudyProgress{localRow})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged row, got %d", len(merged))
	}
	if merged[0].Status != models.StatusCompleted {
		t.Errorf("expected newer status to win, got %s", merged[0].Status)
	}
}
