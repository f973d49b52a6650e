package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/coauthor/backend/internal/service/auth"
	"github.com/coauthor/backend/internal/storage"
)

func TestLoginDerivesIdentity(t *testing.T) {
	svc := auth.NewService(storage.NewMemoryStore())

	session, err := svc.Login(context.Background(), "kira@example.com", "anything")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}

	if session.User.ID != "a2lyYUBleGFtcGxlLmNvbQ==" {
		t.Fatalf("unexpected user id: %q", session.User.ID)
	}
	if session.User.Name != "kira" {
		t.Fatalf("unexpected name: %q", session.User.Name)
	}
	if session.Theme != auth.ThemeDark {
		t.Fatalf("expected dark default theme, got %q", session.Theme)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc := auth.NewService(storage.NewMemoryStore())

	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, auth.ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@b.c", ""); !errors.Is(err, auth.ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := auth.NewService(store)
	ctx := context.Background()

	if _, ok := svc.Current(); ok {
		t.Fatal("expected no session before login")
	}

	if _, err := svc.Login(ctx, "kira@example.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if _, ok := svc.Current(); !ok {
		t.Fatal("expected session after login")
	}

	// A fresh service over the same archive restores the session on Init.
	restored := auth.NewService(store)
	if err := restored.Init(ctx); err != nil {
		t.Fatalf("Init err: %v", err)
	}
	if session, ok := restored.Current(); !ok || session.User.Email != "kira@example.com" {
		t.Fatalf("session not restored: %+v ok=%v", session, ok)
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if _, ok := svc.Current(); ok {
		t.Fatal("expected no session after logout")
	}
}

func TestSetTheme(t *testing.T) {
	svc := auth.NewService(storage.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.SetTheme(ctx, auth.ThemeLight); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := svc.Login(ctx, "kira@example.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}

	if _, err := svc.SetTheme(ctx, "sepia"); !errors.Is(err, auth.ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}

	session, err := svc.SetTheme(ctx, auth.ThemeLight)
	if err != nil {
		t.Fatalf("SetTheme err: %v", err)
	}
	if session.Theme != auth.ThemeLight {
		t.Fatalf("theme not applied: %q", session.Theme)
	}
}
