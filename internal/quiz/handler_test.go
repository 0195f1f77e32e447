package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizhub/internal/auth"

	"github.com/go-chi/chi/v5"
)

type mockQuizService struct {
	createFn func(ctx context.Context, in CreateQuizInput) (*Quiz, error)
	listFn   func(ctx context.Context, f ListFilter) (*ListResult, error)
	getFn    func(ctx context.Context, quizID, viewerID int64) (*Quiz, error)
	updateFn func(ctx context.Context, in UpdateQuizInput) (*Quiz, error)
	deleteFn func(ctx context.Context, quizID, actorID int64) error
}

func (m *mockQuizService) CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
	if m.createFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createFn(ctx, in)
}

func (m *mockQuizService) ListQuizzes(ctx context.Context, f ListFilter) (*ListResult, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx, f)
}

func (m *mockQuizService) GetQuiz(ctx context.Context, quizID, viewerID int64) (*Quiz, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, quizID, viewerID)
}

func (m *mockQuizService) UpdateQuiz(ctx context.Context, in UpdateQuizInput) (*Quiz, error) {
	if m.updateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateFn(ctx, in)
}

func (m *mockQuizService) DeleteQuiz(ctx context.Context, quizID, actorID int64) error {
	if m.deleteFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteFn(ctx, quizID, actorID)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asUser(r *http.Request, id int64) *http.Request {
	return r.WithContext(auth.ContextWithUser(r.Context(), &auth.User{ID: id, Email: "author@example.com", Name: "author"}))
}

func TestCreateQuizOK(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		createFn: func(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
			if in.AuthorID != 5 || in.Title != "Capitals" || in.CoverImage != "/uploads/a.png" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &Quiz{ID: 11, AuthorID: 5, Title: in.Title}, nil
		},
	}}

	body := []byte(`{"title":"Capitals","description":"World capitals","cover_image":"/uploads/a.png"}`)
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", bytes.NewReader(body)), 5)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateQuizMissingFields(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		createFn: func(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
			return nil, ErrInvalidInput
		},
	}}

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", bytes.NewReader([]byte(`{"title":"x"}`))), 5)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateQuizRequiresUser(t *testing.T) {
	h := &Handler{svc: &mockQuizService{}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestListQuizzesPassesPaging(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		listFn: func(ctx context.Context, f ListFilter) (*ListResult, error) {
			if f.Page != 2 || f.PageSize != 3 || f.Search != "cap" || f.ViewerID != 0 {
				t.Fatalf("unexpected filter: %+v", f)
			}
			return &ListResult{Items: []Quiz{{ID: 1}}, Total: 4, Page: 2, PageSize: 3}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes?page=2&pageSize=3&search=cap", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	out := decodeMap(t, rr)
	meta, _ := out["meta"].(map[string]any)
	if meta["total"] != float64(4) {
		t.Fatalf("expected total 4, got %v", meta["total"])
	}
}

func TestListMineRequiresUser(t *testing.T) {
	h := &Handler{svc: &mockQuizService{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes?mine=true", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		getFn: func(ctx context.Context, quizID, viewerID int64) (*Quiz, error) {
			if quizID != 8 {
				t.Fatalf("unexpected quiz id %d", quizID)
			}
			return nil, ErrQuizNotFound
		},
	}}

	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/8", nil), "id", "8")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetQuizInvalidID(t *testing.T) {
	h := &Handler{svc: &mockQuizService{}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/abc", nil), "id", "abc")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestUpdateQuizForbidden(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		updateFn: func(ctx context.Context, in UpdateQuizInput) (*Quiz, error) {
			if in.ActorID != 9 || in.IsPublished == nil || !*in.IsPublished {
				t.Fatalf("unexpected input: %+v", in)
			}
			return nil, ErrForbidden
		},
	}}

	req := withParam(asUser(httptest.NewRequest(http.MethodPut, "/api/v1/quizzes/3", bytes.NewReader([]byte(`{"is_published":true}`))), 9), "id", "3")
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestUpdateQuizPublishWithoutQuestions(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		updateFn: func(ctx context.Context, in UpdateQuizInput) (*Quiz, error) {
			return nil, ErrNoQuestions
		},
	}}

	req := withParam(asUser(httptest.NewRequest(http.MethodPut, "/api/v1/quizzes/3", bytes.NewReader([]byte(`{"is_published":true}`))), 9), "id", "3")
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestDeleteQuizOK(t *testing.T) {
	deleted := false
	h := &Handler{svc: &mockQuizService{
		deleteFn: func(ctx context.Context, quizID, actorID int64) error {
			deleted = quizID == 3 && actorID == 9
			return nil
		},
	}}

	req := withParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/quizzes/3", nil), 9), "id", "3")
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusOK || !deleted {
		t.Fatalf("expected delete, got %d deleted=%v", rr.Code, deleted)
	}
}
