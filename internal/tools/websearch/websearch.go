// Package websearch implements the web_search tool offered to Sub-Agents
// invoked with IncludeSearch (spec.md §4.6's "tools as requested (base, +
// web search, + code execution)").
//
// Grounded on github.com/haasonsaas/nexus/internal/tools/websearch's
// DuckDuckGo Instant-Answer-API backend (search.go's searchDuckDuckGo),
// adapted from that package's multi-backend WebSearchTool type down to the
// single backend this runtime actually wires, and reshaped from its
// agent.Tool Execute(json.RawMessage) interface onto this module's
// tools.Tool Handler(ctx, map[string]any) contract.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/haasonsaas/curiosity/internal/tools"
)

const (
	defaultResultCount = 5
	maxResultCount      = 20
	cacheTTL            = 5 * time.Minute
)

// Result is one web_search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type cacheEntry struct {
	results   []Result
	expiresAt time.Time
}

// searcher performs DuckDuckGo Instant-Answer lookups with a small
// in-memory TTL cache, mirroring the teacher's cache-then-fetch shape.
type searcher struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

const defaultBaseURL = "https://api.duckduckgo.com/"

// Tool builds the web_search tool: a DuckDuckGo Instant-Answer-backed
// lookup with a bounded result count.
func Tool() tools.Tool {
	return newTool(&searcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		cache:      map[string]cacheEntry{},
	})
}

func newTool(s *searcher) tools.Tool {
	return tools.Tool{
		Name:        "web_search",
		Description: "Search the web for information and return a short list of titled results with snippets.",
		Category:    "research",
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":        map[string]any{"type": "string", "description": "The search query."},
				"result_count": map[string]any{"type": "integer", "description": "Number of results to return (default 5, max 20).", "minimum": 1, "maximum": maxResultCount},
			},
			"required": []any{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return nil, &tools.ValidationError{Field: "query", Message: "query is required"}
			}
			count := defaultResultCount
			if rc, ok := args["result_count"].(float64); ok && rc > 0 {
				count = int(rc)
			}
			if count > maxResultCount {
				count = maxResultCount
			}
			results, err := s.search(ctx, query, count)
			if err != nil {
				return map[string]any{"success": false, "error": err.Error()}, nil
			}
			return map[string]any{"query": query, "results": results, "result_count": len(results)}, nil
		},
	}
}

func (s *searcher) search(ctx context.Context, query string, count int) ([]Result, error) {
	key := fmt.Sprintf("%d:%s", count, query)

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.Unlock()
		return entry.results, nil
	}
	s.mu.Unlock()

	results, err := s.fetchDuckDuckGo(ctx, query, count)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{results: results, expiresAt: time.Now().Add(cacheTTL)}
	s.mu.Unlock()
	return results, nil
}

// fetchDuckDuckGo queries the DuckDuckGo Instant Answer API and converts
// its abstract/related-topics shape into a flat result list, the same
// conversion the teacher's searchDuckDuckGo performs.
func (s *searcher) fetchDuckDuckGo(ctx context.Context, query string, count int) ([]Result, error) {
	instantURL := fmt.Sprintf("%s?q=%s&format=json&no_html=1", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instantURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CuriosityBot/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("websearch: read response: %w", err)
	}

	var ddg struct {
		AbstractText   string `json:"AbstractText"`
		AbstractSource string `json:"AbstractSource"`
		AbstractURL    string `json:"AbstractURL"`
		Heading        string `json:"Heading"`
		RelatedTopics  []struct {
			FirstURL string `json:"FirstURL"`
			Text     string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("websearch: parse response: %w", err)
	}

	var results []Result
	if ddg.AbstractText != "" && ddg.AbstractURL != "" {
		results = append(results, Result{Title: ddg.Heading, URL: ddg.AbstractURL, Snippet: ddg.AbstractText})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= count {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, Result{Title: title, URL: topic.FirstURL, Snippet: topic.Text})
	}
	return results, nil
}
