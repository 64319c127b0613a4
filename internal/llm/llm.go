// Package llm implements the LLM Client (spec.md §4.4): renders a prompt
// template, calls a chat-completion endpoint, retries with backoff on
// transient errors, and parses the response into a deduplicated domain
// list.
//
// Grounded on original_source/apps/api/src/api/suggestor/groq.py (retry
// taxonomy, backoff schedule, fence-stripping parse) and
// original_source/apps/api/src/api/suggestor/prompts.py (template
// content). The HTTP transport follows the teacher's
// internal/api/client.go bare net/http.Client wrapper idiom — see
// DESIGN.md for why no third-party chat-completion SDK is used.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/exddc/domain-discovery-go/internal/apierr"
	"github.com/exddc/domain-discovery-go/internal/metrics"
)

const overRequestMargin = 10

var retryBackoff = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

const maxRetries = 3

// Usage reports token accounting from one completion call.
type Usage struct {
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
}

// Client calls a Groq-compatible chat-completion endpoint.
type Client struct {
	APIKey              string
	Model               string
	Temperature         float64
	TopP                float64
	MaxCompletionTokens int
	BaseURL             string // defaults to https://api.groq.com/openai/v1

	hc *http.Client
}

// New builds a Client with the given model parameters.
func New(apiKey, model string, temperature, topP float64, maxCompletionTokens int) *Client {
	return &Client{
		APIKey:              apiKey,
		Model:               model,
		Temperature:         temperature,
		TopP:                topP,
		MaxCompletionTokens: maxCompletionTokens,
		BaseURL:             "https://api.groq.com/openai/v1",
		hc:                  &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	TopP                float64       `json:"top_p"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens      int `json:"total_tokens"`
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate renders promptType's template and calls the completion
// endpoint, retrying per spec.md §4.4's taxonomy.
func (c *Client) Generate(ctx context.Context, description string, targetCount int, promptType PromptType, prefs *Preferences, similar *SimilarContext) ([]string, Usage, error) {
	prompt, err := buildPrompt(promptType, description, targetCount+overRequestMargin, prefs, similar)
	if err != nil {
		return nil, Usage{}, apierr.Wrap(apierr.CodeInvalidInput, "invalid prompt configuration", false, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		suggestions, usage, err := c.makeRequest(ctx, prompt)
		if err == nil {
			if len(suggestions) > 0 {
				metrics.LLMCallsTotal.WithLabelValues(string(promptType), "ok").Inc()
				return suggestions, usage, nil
			}
			// Empty response: retry like the reference implementation does.
			lastErr = fmt.Errorf("empty suggestion list")
			if attempt < maxRetries-1 {
				if !sleep(ctx, retryBackoff[attempt]) {
					break
				}
				continue
			}
			break
		}

		var rle *rateLimitError
		var transient *transientError
		var fatal *fatalError
		switch {
		case asRateLimit(err, &rle):
			lastErr = err
			if attempt < maxRetries-1 {
				if !sleep(ctx, retryBackoff[attempt]*2) {
					break
				}
				continue
			}
			metrics.LLMCallsTotal.WithLabelValues(string(promptType), "rate_limited").Inc()
			return nil, Usage{}, apierr.Wrap(apierr.CodeRateLimited, "AI model is currently overloaded", true, err)
		case asTransient(err, &transient):
			lastErr = err
			if attempt < maxRetries-1 {
				if !sleep(ctx, retryBackoff[attempt]) {
					break
				}
				continue
			}
			metrics.LLMCallsTotal.WithLabelValues(string(promptType), "service_unavailable").Inc()
			return nil, Usage{}, apierr.Wrap(apierr.CodeServiceUnavailable, "unable to reach the AI service", true, err)
		case asFatal(err, &fatal):
			metrics.LLMCallsTotal.WithLabelValues(string(promptType), "generation_failed").Inc()
			return nil, Usage{}, apierr.Wrap(apierr.CodeGenerationFailed, "AI service rejected the request", false, err)
		default:
			lastErr = err
			if attempt < maxRetries-1 {
				if !sleep(ctx, retryBackoff[attempt]) {
					break
				}
				continue
			}
		}
	}

	metrics.LLMCallsTotal.WithLabelValues(string(promptType), "generation_failed").Inc()
	return nil, Usage{}, apierr.Wrap(apierr.CodeGenerationFailed, "unable to generate domain suggestions after multiple attempts", false, lastErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// rateLimitError / transientError / fatalError classify HTTP-layer
// failures into groq.py's RateLimitError / APIConnectionError+
// APITimeoutError / APIStatusError(4xx) taxonomy.
type rateLimitError struct{ error }
type transientError struct{ error }
type fatalError struct{ error }

func asRateLimit(err error, out **rateLimitError) bool {
	e, ok := err.(*rateLimitError)
	if ok {
		*out = e
	}
	return ok
}

func asTransient(err error, out **transientError) bool {
	e, ok := err.(*transientError)
	if ok {
		*out = e
	}
	return ok
}

func asFatal(err error, out **fatalError) bool {
	e, ok := err.(*fatalError)
	if ok {
		*out = e
	}
	return ok
}

func (c *Client) makeRequest(ctx context.Context, prompt string) ([]string, Usage, error) {
	reqBody := chatCompletionRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:         c.Temperature,
		TopP:                c.TopP,
		MaxCompletionTokens: c.MaxCompletionTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, Usage{}, &fatalError{fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, Usage{}, &fatalError{fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, Usage{}, &transientError{fmt.Errorf("request timed out: %w", err)}
		}
		return nil, Usage{}, &transientError{fmt.Errorf("connection error: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Usage{}, &transientError{fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, Usage{}, &rateLimitError{fmt.Errorf("rate limited: %s", string(body))}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, Usage{}, &fatalError{fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))}
	case resp.StatusCode >= 500:
		return nil, Usage{}, &transientError{fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, Usage{}, &fatalError{fmt.Errorf("decode response: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return nil, Usage{}, &fatalError{fmt.Errorf("no choices in response")}
	}

	suggestions, err := parseSuggestions(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, Usage{}, &fatalError{err}
	}

	usage := Usage{
		TotalTokens:      completion.Usage.TotalTokens,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}
	return suggestions, usage, nil
}

// parseSuggestions strips an optional triple-backtick fence, JSON-parses
// either an array or a single string, then lowercases/trims/dedupes
// (spec.md §4.4).
func parseSuggestions(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw interface{}
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &raw); err != nil {
			return nil, fmt.Errorf("model did not return a valid JSON array: %w", err)
		}
	} else {
		raw = []interface{}{content}
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("model did not return a valid list of strings")
	}

	seen := make(map[string]struct{}, len(list))
	var out []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("model did not return a valid list of strings")
		}
		s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}
