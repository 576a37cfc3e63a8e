package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

var ErrSessionAlreadyActive = errors.New("another practice session is already in progress")

// Registry enforces at most one in-progress session per owner and serializes
// access to each owner's Manager. Multiple owners (multi-tab, multi-user)
// never collide because sessions are keyed, not global.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Manager
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Manager)}
}

// Start creates a session for the owner, failing if one is still in progress.
func (r *Registry) Start(owner uuid.UUID, config Config, pool []models.Question, onComplete CompleteFunc) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[owner]; ok && existing.State() == StateInProgress {
		return nil, ErrSessionAlreadyActive
	}

	mgr, err := Start(owner, config, pool, onComplete)
	if err != nil {
		return nil, err
	}
	r.sessions[owner] = mgr
	return mgr, nil
}

// Get returns the owner's in-progress session.
func (r *Registry) Get(owner uuid.UUID) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mgr, ok := r.sessions[owner]
	if !ok || mgr.State() != StateInProgress {
		return nil, ErrNoActiveSession
	}
	return mgr, nil
}

// Release drops a finished session so the owner can start a new one.
// Safe to call regardless of session state.
func (r *Registry) Release(owner uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, owner)
}

// WithSession runs fn while holding the registry lock, serializing
// answer/advance/back calls against the same Manager.
func (r *Registry) WithSession(owner uuid.UUID, fn func(*Manager) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mgr, ok := r.sessions[owner]
	if !ok || mgr.State() != StateInProgress {
		return ErrNoActiveSession
	}
	return fn(mgr)
}
