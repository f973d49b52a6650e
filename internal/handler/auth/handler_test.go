package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	authhandler "github.com/coauthor/backend/internal/handler/auth"
	"github.com/coauthor/backend/internal/model/user"
	authservice "github.com/coauthor/backend/internal/service/auth"
	"github.com/coauthor/backend/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	authSvc := authservice.NewService(storage.NewMemoryStore())
	r := chi.NewRouter()
	authhandler.New(authSvc).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestLoginAndSession(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/auth/session")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("session before login = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    "kira@example.com",
		"password": "secret",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var session user.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.User.Name != "kira" || session.User.ID == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	resp2, err := http.Get(srv.URL + "/auth/session")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("session after login = %d", resp2.StatusCode)
	}
}

func TestLoginRejectsMissingCredentials(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{"email": "kira@example.com"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    "kira@example.com",
		"password": "secret",
	})
	resp.Body.Close()

	resp2 := postJSON(t, srv.URL+"/auth/logout", struct{}{})
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp2.StatusCode)
	}

	resp3, err := http.Get(srv.URL + "/auth/session")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusUnauthorized {
		t.Fatalf("session after logout = %d, want 401", resp3.StatusCode)
	}
}

func TestThemeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    "kira@example.com",
		"password": "secret",
	})
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/auth/theme",
		bytes.NewReader([]byte(`{"theme":"light"}`)))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT theme: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("theme status = %d", resp2.StatusCode)
	}
	var session user.Session
	if err := json.NewDecoder(resp2.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Theme != authservice.ThemeLight {
		t.Fatalf("theme not applied: %q", session.Theme)
	}
}
