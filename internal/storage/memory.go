package storage

import (
	"context"
	"sync"

	"github.com/coauthor/backend/internal/model/story"
	"github.com/coauthor/backend/internal/model/user"
)

// MemoryStore implements Store with in-memory maps, suitable for tests and
// single-process deployments without redis.
type MemoryStore struct {
	mu       sync.RWMutex
	stories  map[string][]story.Story
	session  user.Session
	loggedIn bool
}

// NewMemoryStore returns an empty in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stories: make(map[string][]story.Story)}
}

// LoadStories returns a deep copy of the user's collection.
func (s *MemoryStore) LoadStories(_ context.Context, userID string) ([]story.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCollection(s.stories[userID]), nil
}

// SaveStories overwrites the user's whole collection.
func (s *MemoryStore) SaveStories(_ context.Context, userID string, stories []story.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories[userID] = cloneCollection(stories)
	return nil
}

// LoadSession returns the persisted session, if any.
func (s *MemoryStore) LoadSession(_ context.Context) (user.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.loggedIn, nil
}

// SaveSession stores the session.
func (s *MemoryStore) SaveSession(_ context.Context, session user.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.loggedIn = true
	return nil
}

// ClearSession forgets the session.
func (s *MemoryStore) ClearSession(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = user.Session{}
	s.loggedIn = false
	return nil
}

func cloneCollection(in []story.Story) []story.Story {
	out := make([]story.Story, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
