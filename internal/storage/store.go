package storage

import (
	"context"

	"github.com/coauthor/backend/internal/model/story"
	"github.com/coauthor/backend/internal/model/user"
)

// Store archives story collections and the login session. Story saves are
// whole-collection overwrites keyed by the owning user; callers persist after
// every mutation.
type Store interface {
	LoadStories(ctx context.Context, userID string) ([]story.Story, error)
	SaveStories(ctx context.Context, userID string, stories []story.Story) error

	LoadSession(ctx context.Context) (user.Session, bool, error)
	SaveSession(ctx context.Context, session user.Session) error
	ClearSession(ctx context.Context) error
}
