package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockAuthService struct {
	registerFn       func(ctx context.Context, in RegisterInput) (*User, error)
	authenticateFn   func(ctx context.Context, email, password string) (*User, error)
	createSessionFn  func(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error)
	getSessionUserFn func(ctx context.Context, token string) (*User, error)
	revokeSessionFn  func(ctx context.Context, token string) error
}

func (m *mockAuthService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if m.registerFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.registerFn(ctx, in)
}

func (m *mockAuthService) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	if m.authenticateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.authenticateFn(ctx, email, password)
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
	if m.createSessionFn == nil {
		return "session-token", time.Now().Add(time.Hour), nil
	}
	return m.createSessionFn(ctx, userID, ipAddress, userAgent)
}

func (m *mockAuthService) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if m.getSessionUserFn == nil {
		return nil, ErrUnauthorized
	}
	return m.getSessionUserFn(ctx, token)
}

func (m *mockAuthService) RevokeSession(ctx context.Context, token string) error {
	if m.revokeSessionFn == nil {
		return nil
	}
	return m.revokeSessionFn(ctx, token)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterCreatesSession(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		registerFn: func(ctx context.Context, in RegisterInput) (*User, error) {
			if in.Email != "ada@example.com" || in.Name != "Ada" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &User{ID: 7, Email: in.Email, Name: in.Name}, nil
		},
		createSessionFn: func(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
			if userID != 7 {
				t.Fatalf("unexpected user id: %d", userID)
			}
			return "tok-7", time.Now().Add(time.Hour), nil
		},
	}}

	body := []byte(`{"email":"ada@example.com","password":"supersecret","name":"Ada"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	c := sessionCookie(rr)
	if c == nil || c.Value != "tok-7" || !c.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", c)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		registerFn: func(ctx context.Context, in RegisterInput) (*User, error) {
			return nil, ErrEmailTaken
		},
	}}

	body := []byte(`{"email":"ada@example.com","password":"supersecret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	out := decodeMap(t, rr)
	errObj, _ := out["error"].(map[string]any)
	if errObj["message"] != "User with this email already exists." {
		t.Fatalf("unexpected error payload: %v", out["error"])
	}
}

func TestRegisterInvalidInput(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		registerFn: func(ctx context.Context, in RegisterInput) (*User, error) {
			return nil, normalizeErr(in)
		},
	}}

	body := []byte(`{"email":"not-an-email","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		authenticateFn: func(ctx context.Context, email, password string) (*User, error) {
			return nil, ErrInvalidCredentials
		},
	}}

	body := []byte(`{"email":"ada@example.com","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if sessionCookie(rr) != nil {
		t.Fatalf("expected no session cookie on failed login")
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		authenticateFn: func(ctx context.Context, email, password string) (*User, error) {
			return nil, ErrRateLimited
		},
	}}

	body := []byte(`{"email":"ada@example.com","password":"whatever1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	revoked := ""
	h := &Handler{svc: &mockAuthService{
		revokeSessionFn: func(ctx context.Context, token string) error {
			revoked = token
			return nil
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok-1"})
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if revoked != "tok-1" {
		t.Fatalf("expected tok-1 revoked, got %q", revoked)
	}
	if c := sessionCookie(rr); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected expired session cookie, got %+v", c)
	}
}

func TestRequireAuthRejectsMissingSession(t *testing.T) {
	h := &Handler{svc: &mockAuthService{}}
	called := false
	next := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rr := httptest.NewRecorder()
	next.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401 without calling next, got %d called=%v", rr.Code, called)
	}
}

func TestRequireAuthAttachesUser(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		getSessionUserFn: func(ctx context.Context, token string) (*User, error) {
			if token != "tok-9" {
				return nil, ErrUnauthorized
			}
			return &User{ID: 9, Email: "ada@example.com", Name: "Ada"}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok-9"})
	rr := httptest.NewRecorder()
	h.RequireAuth(http.HandlerFunc(h.Me)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	out := decodeMap(t, rr)
	data, _ := out["data"].(map[string]any)
	if data["email"] != "ada@example.com" {
		t.Fatalf("unexpected user payload: %v", out["data"])
	}
}

func TestOptionalAuthNeverRejects(t *testing.T) {
	h := &Handler{svc: &mockAuthService{}}
	var viewer int64 = -1
	next := h.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer = ViewerID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/1", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "expired"})
	rr := httptest.NewRecorder()
	next.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if viewer != 0 {
		t.Fatalf("expected anonymous viewer, got %d", viewer)
	}
}

func TestRequireAuthFillsUserSlot(t *testing.T) {
	h := &Handler{svc: &mockAuthService{
		getSessionUserFn: func(ctx context.Context, token string) (*User, error) {
			return &User{ID: 42, Email: "ada@example.com", Name: "Ada"}, nil
		},
	}}

	ctx, slot := WithUserSlot(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok"})
	h.RequireAuth(http.HandlerFunc(h.Me)).ServeHTTP(httptest.NewRecorder(), req)

	if got := slot.UserID(); got != 42 {
		t.Fatalf("expected slot user 42, got %d", got)
	}
}

func normalizeErr(in RegisterInput) error {
	_, err := NormalizeRegistration(in)
	return err
}
