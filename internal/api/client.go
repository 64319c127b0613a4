package api

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/exddc/domain-discovery-go/internal/apierr"
	"github.com/exddc/domain-discovery-go/internal/models"
)

// Client wraps http.Client for the suggest CLI's requests against the
// Orchestrator's HTTP surface, generalized from the teacher's DNS-lookup
// HTTP client onto the suggestion/rating/domain endpoints.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient configures an HTTP client with optional TLS verification skip.
func NewClient(baseURL string, timeout time.Duration, insecure bool) *Client {
	tr := &http.Transport{}
	if insecure {
		//nolint:gosec
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout, Transport: tr},
	}
}

// Suggest posts a buffered (non-streaming) suggestion request and waits for
// the orchestrator's terminal result.
func (c *Client) Suggest(ctx context.Context, req models.SuggestionRequest) (*models.CompleteEvent, error) {
	req.Stream = false
	resp, err := c.do(ctx, http.MethodPost, "/suggestions", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var out models.CompleteEvent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestStream posts a streaming suggestion request and invokes onEvent for
// each SSE frame the Orchestrator emits, in order, until the stream closes.
func (c *Client) SuggestStream(ctx context.Context, req models.SuggestionRequest, onEvent func(eventType string, data []byte) error) error {
	req.Stream = true
	resp, err := c.do(ctx, http.MethodPost, "/suggestions", req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return scanSSE(resp.Body, onEvent)
}

// scanSSE parses a `text/event-stream` body into (event, data) pairs,
// invoking onEvent for each complete frame.
func scanSSE(body io.Reader, onEvent func(eventType string, data []byte) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var data strings.Builder

	flush := func() error {
		if eventType == "" {
			return nil
		}
		err := onEvent(eventType, []byte(data.String()))
		eventType = ""
		data.Reset()
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// GetDomain fetches a domain's current stored record.
func (c *Client) GetDomain(ctx context.Context, fqdn string) (*models.DomainRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/domains/"+fqdn, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var out models.DomainRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RateDomain casts or flips a rating on a domain.
func (c *Client) RateDomain(ctx context.Context, fqdn string, req models.RateDomainRequest) (*models.DomainRecord, error) {
	resp, err := c.do(ctx, http.MethodPost, "/domains/"+fqdn+"/rate", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var out models.DomainRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the Orchestrator's liveness/worker-availability status.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(string(b))
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost && strings.HasSuffix(path, "/suggestions") {
		httpReq.Header.Set("Accept", "application/json, text/event-stream")
	}
	return c.hc.Do(httpReq)
}

func decodeAPIError(resp *http.Response) error {
	var apiErr apierr.Error
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return &apiErr
	}
	return fmt.Errorf("api error: unexpected status %d", resp.StatusCode)
}
