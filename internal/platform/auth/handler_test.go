package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type mockUserStore struct {
	users map[string]*User
}

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.Username] = u
	return nil
}

func authEcho(t *testing.T) (*echo.Echo, *mockUserStore) {
	t.Helper()
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store := &mockUserStore{users: map[string]*User{
		"alice": {
			ID:           uuid.New(),
			Username:     "alice",
			PasswordHash: hash,
			Roles:        []string{"admin"},
			Active:       true,
		},
	}}

	e := echo.New()
	h := NewHandler(testIssuer(), store)
	h.RegisterRoutes(e.Group("/auth"))
	return e, store
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestToken_Success(t *testing.T) {
	e, _ := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"alice","password":"correct-horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var pair TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected both tokens in response")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("expected Bearer, got %s", pair.TokenType)
	}

	claims, err := testIssuer().ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("access token does not validate: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("expected alice, got %s", claims.Username)
	}
}

func TestToken_WrongPassword(t *testing.T) {
	e, _ := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"alice","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestToken_UnknownUser(t *testing.T) {
	e, _ := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"mallory","password":"whatever"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestToken_MissingFields(t *testing.T) {
	e, _ := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	e, _ := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"alice","password":"correct-horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rec.Code)
	}
	var pair TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = postJSON(e, "/auth/token/refresh", `{"refresh":"`+pair.RefreshToken+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var next TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &next); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := testIssuer().ValidateAccess(next.AccessToken); err != nil {
		t.Errorf("refreshed access token does not validate: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	e, _ := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"alice","password":"correct-horse"}`)
	var pair TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = postJSON(e, "/auth/token/refresh", `{"refresh":"`+pair.AccessToken+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefresh_DeactivatedUser(t *testing.T) {
	e, store := authEcho(t)

	rec := postJSON(e, "/auth/token", `{"username":"alice","password":"correct-horse"}`)
	var pair TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	delete(store.users, "alice")

	rec = postJSON(e, "/auth/token/refresh", `{"refresh":"`+pair.RefreshToken+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after deactivation, got %d", rec.Code)
	}
}
