package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/storage"
	"github.com/gin-gonic/gin"
)

type fakeOperators struct {
	byToken map[string]*storage.Operator
	lookErr error
	audits  []string
}

func (f *fakeOperators) FindOperatorByToken(_ context.Context, token string) (*storage.Operator, error) {
	if f.lookErr != nil {
		return nil, f.lookErr
	}
	op, ok := f.byToken[token]
	if !ok {
		return nil, storage.ErrOperatorNotFound
	}
	return op, nil
}

func (f *fakeOperators) RecordRefresh(_ context.Context, operator, remoteAddr string, extra map[string]any) (*storage.RefreshRequest, error) {
	f.audits = append(f.audits, operator)
	return &storage.RefreshRequest{ID: "r1", Operator: operator, RemoteAddr: remoteAddr}, nil
}

func (f *fakeOperators) ListRefreshes(context.Context, int) ([]storage.RefreshRequest, error) {
	out := make([]storage.RefreshRequest, 0, len(f.audits))
	for _, a := range f.audits {
		out = append(out, storage.RefreshRequest{Operator: a})
	}
	return out, nil
}

type testEnv struct {
	engine    *gin.Engine
	mailbox   *feed.MemoryMailbox
	commands  *feed.MemoryCommands
	operators *fakeOperators
}

func newTestEnv(middleware ...gin.HandlerFunc) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		mailbox:  feed.NewMemoryMailbox(),
		commands: feed.NewMemoryCommands(),
		operators: &fakeOperators{byToken: map[string]*storage.Operator{
			"root-token": {Name: "root", IsSuperuser: true},
			"user-token": {Name: "viewer"},
		}},
	}
	r := gin.New()
	r.Use(middleware...)
	NewServer(feed.NewCache(env.mailbox, env.commands), env.operators).RegisterRoutes(r)
	env.engine = r
	return env
}

func (e *testEnv) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestListFromVKEmptyThenPublished(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/api/v1/news/from_vk", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); got != `{"count":0,"items":[]}` {
		t.Fatalf("empty body = %s", got)
	}

	_ = env.mailbox.Publish(context.Background(), feed.NewSnapshot([]feed.Item{
		{ID: 2, Title: "b", Link: "https://vk.com/wall-1_2"},
		{ID: 1, Title: "a", Content: "c", ImageURL: "img", Link: "https://vk.com/wall-1_1"},
	}))

	w = env.do(http.MethodGet, "/api/v1/news/from_vk", nil)
	var s feed.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Count != 2 || len(s.Items) != 2 || s.Items[0].ID != 2 || s.Items[1].ImageURL != "img" {
		t.Fatalf("unexpected snapshot: %+v", s)
	}

	// 信箱已取空，再次读取仍返回同一快照
	w = env.do(http.MethodGet, "/api/v1/news/from_vk", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil || s.Count != 2 {
		t.Fatalf("held snapshot lost: %s", w.Body.String())
	}
}

func TestForceRefreshAuthorization(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"malformed header", map[string]string{"Authorization": "Token root-token"}, http.StatusUnauthorized},
		{"unknown token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"not superuser", map[string]string{"Authorization": "Bearer user-token"}, http.StatusForbidden},
	}
	for _, c := range cases {
		env := newTestEnv()
		w := env.do(http.MethodPost, "/api/v1/news/from_vk/refresh", c.header)
		if w.Code != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, w.Code, c.want)
		}
		if _, ok, _ := env.commands.TryReceive(context.Background()); ok {
			t.Fatalf("%s: no command should be queued", c.name)
		}
		if len(env.operators.audits) != 0 {
			t.Fatalf("%s: no audit row expected", c.name)
		}
	}
}

func TestForceRefreshAccepted(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/v1/news/from_vk/refresh", map[string]string{"Authorization": "Bearer root-token"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `{"status":"accepted"}` {
		t.Fatalf("body = %s", got)
	}
	cmd, ok, _ := env.commands.TryReceive(context.Background())
	if !ok || cmd != feed.ForceRefresh {
		t.Fatalf("expected ForceRefresh queued, got %q %v", cmd, ok)
	}
	if len(env.operators.audits) != 1 || env.operators.audits[0] != "root" {
		t.Fatalf("audits = %v", env.operators.audits)
	}

	w = env.do(http.MethodGet, "/api/v1/news/from_vk/refreshes", map[string]string{"X-Operator-Token": "root-token"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"operator":"root"`) {
		t.Fatalf("refreshes = %d %s", w.Code, w.Body.String())
	}
}

func TestForceRefreshLookupError(t *testing.T) {
	env := newTestEnv()
	env.operators.lookErr = errors.New("db down")
	w := env.do(http.MethodPost, "/api/v1/news/from_vk/refresh", map[string]string{"Authorization": "Bearer root-token"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSiteBasicAuth(t *testing.T) {
	env := newTestEnv(SiteBasicAuth("u", "p"))

	if w := env.do(http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health must skip basic auth, got %d", w.Code)
	}
	w := env.do(http.MethodGet, "/api/v1/news/from_vk", nil)
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected basic auth challenge, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/news/from_vk", nil)
	req.SetBasicAuth("u", "p")
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid credentials rejected: %d", rec.Code)
	}
}
