package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coauthor/backend/internal/config"
	"github.com/coauthor/backend/internal/model/story"
	"github.com/coauthor/backend/internal/model/user"
)

const (
	storiesKeyPrefix = "coauthor_stories_"
	sessionKey       = "coauthor_user_session"
)

// RedisStore implements Store on redis, one JSON blob per user collection.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// LoadStories reads the user's collection; a missing key is an empty
// collection.
func (s *RedisStore) LoadStories(ctx context.Context, userID string) ([]story.Story, error) {
	data, err := s.client.Get(ctx, storiesKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stories for %s: %w", userID, err)
	}

	var stories []story.Story
	if err := json.Unmarshal(data, &stories); err != nil {
		return nil, fmt.Errorf("decode stories for %s: %w", userID, err)
	}
	return stories, nil
}

// SaveStories overwrites the user's whole collection.
func (s *RedisStore) SaveStories(ctx context.Context, userID string, stories []story.Story) error {
	data, err := json.Marshal(stories)
	if err != nil {
		return fmt.Errorf("encode stories for %s: %w", userID, err)
	}
	if err := s.client.Set(ctx, storiesKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("save stories for %s: %w", userID, err)
	}
	return nil
}

// LoadSession reads the persisted login session.
func (s *RedisStore) LoadSession(ctx context.Context) (user.Session, bool, error) {
	data, err := s.client.Get(ctx, sessionKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return user.Session{}, false, nil
	}
	if err != nil {
		return user.Session{}, false, fmt.Errorf("load session: %w", err)
	}

	var session user.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return user.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

// SaveSession stores the login session.
func (s *RedisStore) SaveSession(ctx context.Context, session user.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClearSession deletes the login session.
func (s *RedisStore) ClearSession(ctx context.Context) error {
	if err := s.client.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
