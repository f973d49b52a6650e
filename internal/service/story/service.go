package story

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coauthor/backend/internal/model/story"
	"github.com/coauthor/backend/internal/storage"
)

var (
	ErrStoryNotFound        = errors.New("story not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrMemoryNotFound       = errors.New("memory not found")
	ErrGenerationInFlight   = errors.New("generation already in flight for this story")
	ErrGeneratorUnavailable = errors.New("generation service is not configured")
)

// Generator produces the next story segment from the current story state.
// Implementations return the degraded fallback segment alongside the error on
// failure.
type Generator interface {
	Generate(ctx context.Context, setup story.Setup, history []story.Message, memories []story.Memory, freeInput string) (story.Segment, error)
}

// Service owns the per-user story collections and drives the story
// lifecycle: creation, user turns, edits, regenerate/rewind. All mutations to
// one story serialize through the service mutex; the generator call is the
// only suspension point and runs outside it. At most one generation is in
// flight per story; a second request is rejected, not queued.
type Service struct {
	mu          sync.Mutex
	collections map[string][]*story.Story // newest story first
	loaded      map[string]bool
	inflight    map[string]bool // keyed by story id

	gen    Generator
	store  storage.Store
	events EventSink
	logger zerolog.Logger
}

// NewService wires the orchestrator. gen may be nil when the generation
// service is not configured; mutating operations then fail with
// ErrGeneratorUnavailable. events may be nil.
func NewService(gen Generator, store storage.Store, events EventSink) *Service {
	if events == nil {
		events = nopSink{}
	}
	return &Service{
		collections: make(map[string][]*story.Story),
		loaded:      make(map[string]bool),
		inflight:    make(map[string]bool),
		gen:         gen,
		store:       store,
		events:      events,
		logger:      log.With().Str("component", "orchestrator").Logger(),
	}
}

// Stories returns the user's collection, newest first.
func (s *Service) Stories(ctx context.Context, userID string) ([]story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		return nil, err
	}

	out := make([]story.Story, 0, len(s.collections[userID]))
	for _, st := range s.collections[userID] {
		out = append(out, st.Clone())
	}
	return out, nil
}

// Story returns one story by id.
func (s *Service) Story(ctx context.Context, userID, storyID string) (story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		return story.Story{}, err
	}

	st, _, err := s.findLocked(userID, storyID)
	if err != nil {
		return story.Story{}, err
	}
	return st.Clone(), nil
}

// CreateStory provisions a story at the front of the collection before the
// first generation completes. Creation is all-or-nothing: if the opening
// generation fails the provisional story is removed entirely.
func (s *Service) CreateStory(ctx context.Context, userID string, setup story.Setup) (story.Story, error) {
	if s.gen == nil {
		return story.Story{}, ErrGeneratorUnavailable
	}

	st := story.New(setup)

	s.mu.Lock()
	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		s.mu.Unlock()
		return story.Story{}, err
	}
	s.collections[userID] = append([]*story.Story{st}, s.collections[userID]...)
	s.inflight[st.ID] = true
	s.persistLocked(ctx, userID)
	s.mu.Unlock()

	s.publish(EventGenerationStarted, st.ID, "")

	seg, genErr := s.gen.Generate(ctx, setup, nil, nil, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, st.ID)

	if genErr != nil {
		s.removeLocked(userID, st.ID)
		s.persistLocked(ctx, userID)
		s.publish(EventRolledBack, st.ID, "")
		s.logger.Warn().Err(genErr).Str("story", st.ID).Msg("opening generation failed, provisional story removed")
		return story.Story{}, fmt.Errorf("create story: %w", genErr)
	}

	msg := story.NewModelMessage(seg)
	st.AppendMessage(msg)
	st.Touch()
	s.persistLocked(ctx, userID)
	s.publish(EventSegmentAppended, st.ID, msg.ID)

	return st.Clone(), nil
}

// SubmitTurn appends the user's text optimistically and asks for the next
// segment. The user's message stays even when generation fails; the degraded
// segment is appended so the story keeps a way forward.
func (s *Service) SubmitTurn(ctx context.Context, userID, storyID, text string) (story.Story, error) {
	if s.gen == nil {
		return story.Story{}, ErrGeneratorUnavailable
	}

	s.mu.Lock()
	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		s.mu.Unlock()
		return story.Story{}, err
	}

	st, _, err := s.findLocked(userID, storyID)
	if err != nil {
		s.mu.Unlock()
		return story.Story{}, err
	}
	if s.inflight[storyID] {
		s.mu.Unlock()
		return story.Story{}, ErrGenerationInFlight
	}

	history := append([]story.Message(nil), st.Messages...)
	memories := append([]story.Memory(nil), st.Memory...)
	setup := st.Setup

	userMsg := story.NewUserMessage(text)
	st.AppendMessage(userMsg)
	st.Touch()
	s.inflight[storyID] = true
	s.persistLocked(ctx, userID)
	s.mu.Unlock()

	s.publish(EventGenerationStarted, storyID, userMsg.ID)

	seg, genErr := s.gen.Generate(ctx, setup, history, memories, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, storyID)

	st, _, err = s.findLocked(userID, storyID)
	if err != nil {
		return story.Story{}, err
	}

	msg := story.NewModelMessage(seg)
	st.AppendMessage(msg)
	st.Touch()
	s.persistLocked(ctx, userID)
	s.publish(EventSegmentAppended, storyID, msg.ID)

	if genErr != nil {
		s.logger.Warn().Err(genErr).Str("story", storyID).Msg("generation failed, degraded segment appended")
	}

	return st.Clone(), nil
}

// EditMessage replaces one message's text in place. No generation is
// triggered and the edit is legal in any state, including mid-generation.
func (s *Service) EditMessage(ctx context.Context, userID, storyID, messageID, text string) (story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		return story.Story{}, err
	}

	st, _, err := s.findLocked(userID, storyID)
	if err != nil {
		return story.Story{}, err
	}
	if !st.EditMessage(messageID, text) {
		return story.Story{}, ErrMessageNotFound
	}

	st.Touch()
	s.persistLocked(ctx, userID)
	s.publish(EventStoryUpdated, storyID, messageID)
	return st.Clone(), nil
}

// Regenerate rewinds the ledger to just before the target message and
// requests a fresh continuation. Everything from the target onward is
// discarded on success; on failure the ledger is restored to its exact
// pre-call state.
func (s *Service) Regenerate(ctx context.Context, userID, storyID, messageID string) (story.Story, error) {
	if s.gen == nil {
		return story.Story{}, ErrGeneratorUnavailable
	}

	s.mu.Lock()
	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		s.mu.Unlock()
		return story.Story{}, err
	}

	st, _, err := s.findLocked(userID, storyID)
	if err != nil {
		s.mu.Unlock()
		return story.Story{}, err
	}
	if s.inflight[storyID] {
		s.mu.Unlock()
		return story.Story{}, ErrGenerationInFlight
	}

	k, ok := st.FindMessage(messageID)
	if !ok {
		s.mu.Unlock()
		return story.Story{}, ErrMessageNotFound
	}

	snapshot := append([]story.Message(nil), st.Messages...)
	snapshotUpdated := st.LastUpdated
	prefix := append([]story.Message(nil), st.Messages[:k]...)
	memories := append([]story.Memory(nil), st.Memory...)
	setup := st.Setup

	st.ReplaceMessages(append([]story.Message(nil), prefix...))
	st.Touch()
	s.inflight[storyID] = true
	s.persistLocked(ctx, userID)
	s.mu.Unlock()

	s.publish(EventGenerationStarted, storyID, messageID)

	seg, genErr := s.gen.Generate(ctx, setup, prefix, memories, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, storyID)

	st, _, err = s.findLocked(userID, storyID)
	if err != nil {
		return story.Story{}, err
	}

	if genErr != nil {
		st.ReplaceMessages(snapshot)
		st.LastUpdated = snapshotUpdated
		s.persistLocked(ctx, userID)
		s.publish(EventRolledBack, storyID, messageID)
		s.logger.Warn().Err(genErr).Str("story", storyID).Msg("regeneration failed, ledger restored")
		return story.Story{}, fmt.Errorf("regenerate: %w", genErr)
	}

	msg := story.NewModelMessage(seg)
	st.AppendMessage(msg)
	st.Touch()
	s.persistLocked(ctx, userID)
	s.publish(EventSegmentAppended, storyID, msg.ID)

	return st.Clone(), nil
}

// RenameStory replaces the story title.
func (s *Service) RenameStory(ctx context.Context, userID, storyID, title string) (story.Story, error) {
	return s.mutate(ctx, userID, storyID, func(st *story.Story) error {
		st.Title = title
		return nil
	})
}

// UpdateSetup replaces the whole setup object. The next compiled prompt picks
// it up; history is untouched.
func (s *Service) UpdateSetup(ctx context.Context, userID, storyID string, setup story.Setup) (story.Story, error) {
	return s.mutate(ctx, userID, storyID, func(st *story.Story) error {
		st.Setup = setup
		return nil
	})
}

// AddMemory appends a new active memory with placeholder text.
func (s *Service) AddMemory(ctx context.Context, userID, storyID string) (story.Memory, error) {
	var added story.Memory
	_, err := s.mutate(ctx, userID, storyID, func(st *story.Story) error {
		added = st.AddMemory()
		return nil
	})
	return added, err
}

// UpdateMemory replaces a memory's text.
func (s *Service) UpdateMemory(ctx context.Context, userID, storyID, memoryID, text string) error {
	_, err := s.mutate(ctx, userID, storyID, func(st *story.Story) error {
		if !st.UpdateMemory(memoryID, text) {
			return ErrMemoryNotFound
		}
		return nil
	})
	return err
}

// SetMemoryActive toggles a memory's inclusion in generation requests.
func (s *Service) SetMemoryActive(ctx context.Context, userID, storyID, memoryID string, active bool) error {
	_, err := s.mutate(ctx, userID, storyID, func(st *story.Story) error {
		if !st.SetMemoryActive(memoryID, active) {
			return ErrMemoryNotFound
		}
		return nil
	})
	return err
}

// RemoveMemory deletes a memory.
func (s *Service) RemoveMemory(ctx context.Context, userID, storyID, memoryID string) error {
	_, err := s.mutate(ctx, userID, storyID, func(st *story.Story) error {
		if !st.RemoveMemory(memoryID) {
			return ErrMemoryNotFound
		}
		return nil
	})
	return err
}

// mutate applies a local (non-generating) mutation under the lock, persists
// and publishes on success.
func (s *Service) mutate(ctx context.Context, userID, storyID string, fn func(*story.Story) error) (story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx, userID); err != nil {
		return story.Story{}, err
	}

	st, _, err := s.findLocked(userID, storyID)
	if err != nil {
		return story.Story{}, err
	}
	if err := fn(st); err != nil {
		return story.Story{}, err
	}

	st.Touch()
	s.persistLocked(ctx, userID)
	s.publish(EventStoryUpdated, storyID, "")
	return st.Clone(), nil
}

func (s *Service) ensureLoadedLocked(ctx context.Context, userID string) error {
	if s.loaded[userID] {
		return nil
	}

	stories, err := s.store.LoadStories(ctx, userID)
	if err != nil {
		return fmt.Errorf("load stories: %w", err)
	}

	collection := make([]*story.Story, 0, len(stories))
	for i := range stories {
		st := stories[i].Clone()
		collection = append(collection, &st)
	}
	s.collections[userID] = collection
	s.loaded[userID] = true
	return nil
}

func (s *Service) findLocked(userID, storyID string) (*story.Story, int, error) {
	for i, st := range s.collections[userID] {
		if st.ID == storyID {
			return st, i, nil
		}
	}
	return nil, 0, ErrStoryNotFound
}

func (s *Service) removeLocked(userID, storyID string) {
	collection := s.collections[userID]
	for i, st := range collection {
		if st.ID == storyID {
			s.collections[userID] = append(collection[:i], collection[i+1:]...)
			return
		}
	}
}

// persistLocked notifies the archive with a snapshot of the whole collection.
// Archive failures are logged, not surfaced: the in-memory state is the
// source of truth for the running session.
func (s *Service) persistLocked(ctx context.Context, userID string) {
	snapshot := make([]story.Story, 0, len(s.collections[userID]))
	for _, st := range s.collections[userID] {
		snapshot = append(snapshot, st.Clone())
	}
	if err := s.store.SaveStories(ctx, userID, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("failed to archive story collection")
	}
}
