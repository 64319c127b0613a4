package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/apierr"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := New("test-key", "test-model", 0.7, 0.9, 200)
	c.BaseURL = srv.URL
	c.hc = srv.Client()
	return c
}

func completionResponse(content string) chatCompletionResponse {
	var resp chatCompletionResponse
	resp.Choices = []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}{{Message: struct {
		Content string `json:"content"`
	}{Content: content}}}
	resp.Usage.TotalTokens = 42
	resp.Usage.PromptTokens = 30
	resp.Usage.CompletionTokens = 12
	return resp
}

func TestGenerateParsesFencedJSONArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := completionResponse("```json\n[\"Foo.com\", \"Bar Baz.com\", \"foo.com\"]\n```")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	suggestions, usage, err := c.Generate(context.Background(), "a bakery", 5, PromptTypeLegacy, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected dedup to collapse to 2 entries, got %+v", suggestions)
	}
	if suggestions[0] != "foo.com" || suggestions[1] != "barbaz.com" {
		t.Errorf("expected sanitized+deduped suggestions, got %+v", suggestions)
	}
	if usage.TotalTokens != 42 {
		t.Errorf("expected usage to be extracted, got %+v", usage)
	}
}

func TestGenerateRetriesOnRateLimitThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("rate limited"))
			return
		}
		resp := completionResponse(`["retrytest.com"]`)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	start := time.Now()
	suggestions, _, err := c.Generate(context.Background(), "x", 1, PromptTypeLegacy, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("expected rate-limit retry to back off by at least the doubled first delay, got %v", elapsed)
	}
	if len(suggestions) != 1 || suggestions[0] != "retrytest.com" {
		t.Errorf("expected successful suggestion after retry, got %+v", suggestions)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
}

func TestGenerateRateLimitExhaustionReturnsRateLimitedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.hc.Timeout = 5 * time.Second
	_, _, err := c.Generate(context.Background(), "x", 1, PromptTypeLegacy, nil, nil)
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if apiErr.Code != apierr.CodeRateLimited {
		t.Errorf("expected rate_limited code, got %v", apiErr.Code)
	}
	if !apiErr.RetryAllowed {
		t.Error("expected rate_limited error to allow retry")
	}
}

func TestGenerateFourHundredErrorDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, _, err := c.Generate(context.Background(), "x", 1, PromptTypeLegacy, nil, nil)
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if apiErr.Code != apierr.CodeGenerationFailed {
		t.Errorf("expected generation_failed code for non-retryable 4xx, got %v", apiErr.Code)
	}
	if apiErr.RetryAllowed {
		t.Error("expected no retry allowed for a 400")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly 1 call for a non-retryable 4xx, got %d", calls)
	}
}

func TestGenerateFiveHundredExhaustionReturnsServiceUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, _, err := c.Generate(context.Background(), "x", 1, PromptTypeLegacy, nil, nil)
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if apiErr.Code != apierr.CodeServiceUnavailable {
		t.Errorf("expected service_unavailable code, got %v", apiErr.Code)
	}
	if atomic.LoadInt32(&calls) != int32(maxRetries) {
		t.Errorf("expected %d attempts, got %d", maxRetries, calls)
	}
}

func TestParseSuggestionsPlainStringFallback(t *testing.T) {
	got, err := parseSuggestions("  JustOneName.com  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "justonename.com" {
		t.Errorf("expected single sanitized domain, got %+v", got)
	}
}

func TestParseSuggestionsRejectsNonStringElements(t *testing.T) {
	if _, err := parseSuggestions(`[1, 2, 3]`); err == nil {
		t.Error("expected error for non-string list elements")
	}
}

func TestParseSuggestionsDropsEmptyEntries(t *testing.T) {
	got, err := parseSuggestions(`["a.com", "  ", "b.com"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected blank entries dropped, got %+v", got)
	}
}
