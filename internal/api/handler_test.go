package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ameleshko/otvet/internal/agent"
	"github.com/ameleshko/otvet/internal/storage"
)

// --- mocks ---

type mockAgent struct {
	exchange agent.Exchange
	err      error
	queries  []string
	opts     []agent.Options
}

func (m *mockAgent) Ask(_ context.Context, query string, opts agent.Options) (agent.Exchange, error) {
	if strings.TrimSpace(query) == "" {
		return agent.Exchange{}, agent.ErrEmptyQuery
	}
	m.queries = append(m.queries, query)
	m.opts = append(m.opts, opts)
	return m.exchange, m.err
}

func setupAppHandler(t *testing.T, a *mockAgent) (http.Handler, *storage.Store, *atomic.Bool) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	testMode := &atomic.Bool{}
	handler := NewAppHandler(AppDeps{
		Agent:    a,
		Store:    store,
		TestMode: testMode,
	})
	return handler, store, testMode
}

func doJSON(h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, url, reader))
	return rr
}

func TestHealth(t *testing.T) {
	h, _, _ := setupAppHandler(t, &mockAgent{})

	rr := doJSON(h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestQuery(t *testing.T) {
	a := &mockAgent{exchange: agent.Exchange{Response: "В Москве солнечно.", SearchPerformed: true}}
	h, store, _ := setupAppHandler(t, a)

	rr := doJSON(h, http.MethodPost, "/query", `{"query":"погода в Москве"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp QueryResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ID == "" {
		t.Fatal("response missing id")
	}
	if resp.Response != "В Москве солнечно." {
		t.Errorf("response = %q", resp.Response)
	}
	if !resp.SearchPerformed {
		t.Error("search_performed = false, want true")
	}
	if resp.Timestamp == "" {
		t.Error("timestamp missing")
	}

	// The exchange is persisted under the returned id.
	record, err := store.GetChat(resp.ID)
	if err != nil {
		t.Fatalf("GetChat(%q): %v", resp.ID, err)
	}
	if record.UserInput != "погода в Москве" {
		t.Errorf("persisted UserInput = %q", record.UserInput)
	}
	if record.Response != "В Москве солнечно." {
		t.Errorf("persisted Response = %q", record.Response)
	}
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	a := &mockAgent{exchange: agent.Exchange{Response: "не должно быть вызвано"}}
	h, _, _ := setupAppHandler(t, a)

	for _, body := range []string{`{"query":""}`, `{"query":"   "}`, `{}`} {
		rr := doJSON(h, http.MethodPost, "/query", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
	if len(a.queries) != 0 {
		t.Errorf("agent was called for empty queries: %v", a.queries)
	}
}

func TestQuery_InvalidJSON(t *testing.T) {
	h, _, _ := setupAppHandler(t, &mockAgent{})

	rr := doJSON(h, http.MethodPost, "/query", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Type != "invalid_request_error" {
		t.Errorf("error type = %q", resp.Error.Type)
	}
}

func TestQuery_TestModeOverride(t *testing.T) {
	a := &mockAgent{exchange: agent.Exchange{Response: "ответ"}}
	h, _, serverFlag := setupAppHandler(t, a)

	// Server default off, request forces on.
	rr := doJSON(h, http.MethodPost, "/query", `{"query":"привет","test_mode":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if !a.opts[0].TestMode {
		t.Error("request override did not enable test mode")
	}

	// Server default on, request omits the flag.
	serverFlag.Store(true)
	doJSON(h, http.MethodPost, "/query", `{"query":"привет"}`)
	if !a.opts[1].TestMode {
		t.Error("server default did not enable test mode")
	}

	// Server default on, request forces off.
	doJSON(h, http.MethodPost, "/query", `{"query":"привет","test_mode":false}`)
	if a.opts[2].TestMode {
		t.Error("request override did not disable test mode")
	}
}

func TestHistoryListAndGet(t *testing.T) {
	h, store, _ := setupAppHandler(t, &mockAgent{})

	for _, id := range []string{"chat-a", "chat-b"} {
		if err := store.SaveChat(storage.ChatRecord{ID: id, UserInput: "q " + id, Response: "a " + id}); err != nil {
			t.Fatalf("SaveChat: %v", err)
		}
	}

	rr := doJSON(h, http.MethodGet, "/history", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var views []ChatView
	json.NewDecoder(rr.Body).Decode(&views)
	if len(views) != 2 {
		t.Fatalf("got %d records, want 2", len(views))
	}

	rr = doJSON(h, http.MethodGet, "/history/chat-a", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var view ChatView
	json.NewDecoder(rr.Body).Decode(&view)
	if view.ID != "chat-a" || view.Query != "q chat-a" {
		t.Errorf("view = %+v", view)
	}
}

func TestHistoryGet_NotFound(t *testing.T) {
	h, _, _ := setupAppHandler(t, &mockAgent{})

	rr := doJSON(h, http.MethodGet, "/history/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHistoryDelete(t *testing.T) {
	h, store, _ := setupAppHandler(t, &mockAgent{})

	if err := store.SaveChat(storage.ChatRecord{ID: "chat-del", UserInput: "q", Response: "a"}); err != nil {
		t.Fatalf("SaveChat: %v", err)
	}

	rr := doJSON(h, http.MethodDelete, "/history/chat-del", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	if _, err := store.GetChat("chat-del"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("record still present after delete: %v", err)
	}

	rr = doJSON(h, http.MethodDelete, "/history/chat-del", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestTestModeEndpoint(t *testing.T) {
	h, _, serverFlag := setupAppHandler(t, &mockAgent{})

	rr := doJSON(h, http.MethodGet, "/test_mode", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]bool
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["test_mode"] {
		t.Error("test_mode = true, want false by default")
	}

	rr = doJSON(h, http.MethodPost, "/test_mode", `{"enabled":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if !serverFlag.Load() {
		t.Error("server flag not updated")
	}

	rr = doJSON(h, http.MethodPost, "/test_mode", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for missing enabled", rr.Code, http.StatusBadRequest)
	}
}

func TestBearerAuth(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewAppHandler(AppDeps{
		Agent:    &mockAgent{},
		Store:    store,
		TestMode: &atomic.Bool{},
		Token:    "secret-token",
	})

	rr := doJSON(h, http.MethodGet, "/history", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status with token = %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doJSON(h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health without token = %d, want %d", rr.Code, http.StatusOK)
	}
}
