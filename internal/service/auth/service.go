package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coauthor/backend/internal/model/user"
	"github.com/coauthor/backend/internal/storage"
)

// loginDelay simulates backend latency; there is no real credential check.
const loginDelay = 600 * time.Millisecond

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

var (
	ErrCredentialsRequired = errors.New("email and password are required")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInvalidTheme        = errors.New("theme must be light or dark")
)

// Service owns the process-lifetime login session: init-on-load,
// update-on-action, clear-on-logout. Any non-empty email/password pair
// authenticates.
type Service struct {
	mu      sync.RWMutex
	store   storage.Store
	current *user.Session
	delay   time.Duration
	logger  zerolog.Logger
}

// NewService builds the session service over the given archive.
func NewService(store storage.Store) *Service {
	return &Service{
		store:  store,
		delay:  loginDelay,
		logger: log.With().Str("component", "auth").Logger(),
	}
}

// Init restores a persisted session, if any. Call once on startup.
func (s *Service) Init(ctx context.Context) error {
	session, ok, err := s.store.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()
	s.logger.Info().Str("user", session.User.Email).Msg("session restored")
	return nil
}

// Login authenticates after the simulated delay. The user id is the
// base64-encoded email; the display name is the local part.
func (s *Service) Login(ctx context.Context, email, password string) (user.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return user.Session{}, ErrCredentialsRequired
	}

	select {
	case <-ctx.Done():
		return user.Session{}, ctx.Err()
	case <-time.After(s.delay):
	}

	u := user.User{
		ID:    base64.StdEncoding.EncodeToString([]byte(email)),
		Email: email,
		Name:  strings.SplitN(email, "@", 2)[0],
	}

	s.mu.Lock()
	theme := ThemeDark
	if s.current != nil && s.current.Theme != "" {
		theme = s.current.Theme
	}
	session := user.Session{User: u, Theme: theme}
	s.current = &session
	s.mu.Unlock()

	if err := s.store.SaveSession(ctx, session); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist session")
	}
	s.logger.Info().Str("user", email).Msg("logged in")
	return session, nil
}

// Logout tears the session down.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the active session.
func (s *Service) Current() (user.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return user.Session{}, false
	}
	return *s.current, true
}

// SetTheme updates the session's theme preference.
func (s *Service) SetTheme(ctx context.Context, theme string) (user.Session, error) {
	if theme != ThemeDark && theme != ThemeLight {
		return user.Session{}, ErrInvalidTheme
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return user.Session{}, ErrNotAuthenticated
	}
	s.current.Theme = theme
	session := *s.current
	s.mu.Unlock()

	if err := s.store.SaveSession(ctx, session); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist theme change")
	}
	return session, nil
}
