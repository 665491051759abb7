package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestToolSchemaRequiresQuery(t *testing.T) {
	tool := Tool()
	if tool.Name != "web_search" {
		t.Fatalf("expected name web_search, got %s", tool.Name)
	}
	required, _ := tool.ParameterSchema["required"].([]any)
	if len(required) != 1 || required[0] != "query" {
		t.Fatalf("expected required=[query], got %v", required)
	}
}

func TestHandlerRejectsMissingQuery(t *testing.T) {
	tool := Tool()
	if _, err := tool.Handler(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestHandlerReturnsResultsFromAbstractAndRelatedTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"Heading":      "Go (programming language)",
			"AbstractText": "Go is a statically typed, compiled language.",
			"AbstractURL":  "https://go.dev",
			"RelatedTopics": []map[string]any{
				{"FirstURL": "https://go.dev/doc", "Text": "Go documentation"},
				{"FirstURL": "https://go.dev/blog", "Text": "Go blog"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := &searcher{httpClient: srv.Client(), baseURL: srv.URL, cache: map[string]cacheEntry{}}
	tool := newTool(s)

	result, err := tool.Handler(context.Background(), map[string]any{"query": "golang", "result_count": float64(2)})
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	out, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", result)
	}
	results, ok := out["results"].([]Result)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", out["results"])
	}
	if results[0].URL != "https://go.dev" {
		t.Fatalf("expected abstract result first, got %+v", results[0])
	}
}

func TestSearchCachesWithinTTL(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"Heading": "x"})
	}))
	defer srv.Close()

	s := &searcher{httpClient: srv.Client(), baseURL: srv.URL, cache: map[string]cacheEntry{}}
	ctx := context.Background()
	if _, err := s.search(ctx, "q", 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := s.search(ctx, "q", 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call (second served from cache), got %d", calls)
	}
}

func TestSearchRefetchesAfterExpiry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"Heading": "x"})
	}))
	defer srv.Close()

	s := &searcher{httpClient: srv.Client(), baseURL: srv.URL, cache: map[string]cacheEntry{}}
	ctx := context.Background()
	if _, err := s.search(ctx, "q", 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	s.mu.Lock()
	for k, e := range s.cache {
		e.expiresAt = time.Now().Add(-time.Second)
		s.cache[k] = e
	}
	s.mu.Unlock()
	if _, err := s.search(ctx, "q", 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 upstream calls after expiry, got %d", calls)
	}
}

func TestHandlerUpstreamErrorReturnsFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := &searcher{httpClient: srv.Client(), baseURL: srv.URL, cache: map[string]cacheEntry{}}
	tool := newTool(s)

	result, err := tool.Handler(context.Background(), map[string]any{"query": "golang"})
	if err != nil {
		t.Fatalf("Handler should not return a Go error for an upstream failure: %v", err)
	}
	out := result.(map[string]any)
	if out["success"] != false {
		t.Fatalf("expected success=false, got %v", out)
	}
}
