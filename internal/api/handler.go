// Package api exposes the agent over HTTP and over MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ameleshko/otvet/internal/agent"
	"github.com/ameleshko/otvet/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Asker answers one user query. agent.Agent satisfies this.
type Asker interface {
	Ask(ctx context.Context, query string, opts agent.Options) (agent.Exchange, error)
}

type QueryRequest struct {
	Query string `json:"query"`
	// TestMode overrides the server-level default for this request only.
	TestMode *bool `json:"test_mode,omitempty"`
}

type QueryResponse struct {
	ID              string `json:"id"`
	Query           string `json:"query"`
	Response        string `json:"response"`
	SearchPerformed bool   `json:"search_performed"`
	TestMode        bool   `json:"test_mode"`
	Timestamp       string `json:"timestamp"`
}

// ChatView is the JSON shape of one stored exchange.
type ChatView struct {
	ID              string `json:"id"`
	Query           string `json:"query"`
	Response        string `json:"response"`
	SearchPerformed bool   `json:"search_performed"`
	TestMode        bool   `json:"test_mode"`
	Timestamp       string `json:"timestamp"`
}

type AppDeps struct {
	Agent    Asker
	Store    *storage.Store
	TestMode *atomic.Bool // server-level default, toggled at runtime
	Token    string       // optional; empty disables auth
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Get("/health", handleHealth)
	r.Post("/query", handleQuery(deps))
	r.Get("/history", handleListHistory(deps))
	r.Get("/history/{id}", handleGetHistory(deps))
	r.Delete("/history/{id}", handleDeleteHistory(deps))
	r.Get("/test_mode", handleGetTestMode(deps))
	r.Post("/test_mode", handleSetTestMode(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleQuery(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		testMode := deps.TestMode.Load()
		if req.TestMode != nil {
			testMode = *req.TestMode
		}

		ex, err := deps.Agent.Ask(r.Context(), req.Query, agent.Options{TestMode: testMode})
		if errors.Is(err, agent.ErrEmptyQuery) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to process query: %v", err)
			return
		}

		record := storage.ChatRecord{
			ID:              uuid.New().String(),
			CreatedAt:       time.Now().UTC(),
			UserInput:       req.Query,
			Response:        ex.Response,
			SearchPerformed: ex.SearchPerformed,
			TestMode:        testMode,
		}
		if err := deps.Store.SaveChat(record); err != nil {
			// The answer is already computed: losing the history entry is
			// not a reason to withhold it.
			slog.Warn("failed to persist exchange", "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(QueryResponse{
			ID:              record.ID,
			Query:           req.Query,
			Response:        ex.Response,
			SearchPerformed: ex.SearchPerformed,
			TestMode:        testMode,
			Timestamp:       record.CreatedAt.Format(time.RFC3339),
		})
	}
}

func handleListHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Store.ListChats(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list history: %v", err)
			return
		}

		views := make([]ChatView, len(records))
		for i, rec := range records {
			views[i] = chatView(rec)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

func handleGetHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		record, err := deps.Store.GetChat(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chat not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get chat: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatView(record))
	}
}

func handleDeleteHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteChat(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "chat not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete chat: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleGetTestMode(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"test_mode": deps.TestMode.Load()})
	}
}

func handleSetTestMode(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Enabled == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "enabled is required")
			return
		}

		deps.TestMode.Store(*req.Enabled)
		slog.Info("test mode changed", "enabled", *req.Enabled)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"test_mode": *req.Enabled})
	}
}

func chatView(r storage.ChatRecord) ChatView {
	return ChatView{
		ID:              r.ID,
		Query:           r.UserInput,
		Response:        r.Response,
		SearchPerformed: r.SearchPerformed,
		TestMode:        r.TestMode,
		Timestamp:       r.CreatedAt.Format(time.RFC3339),
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
