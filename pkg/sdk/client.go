package formdex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is the formdex SDK entry point.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
	logger  *slog.Logger
}

// New creates a Client for the formdex service at baseURL,
// e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		apiKey:  cfg.apiKey,
		logger:  cfg.logger,
	}
}

// Ask answers a free-text legal question with guidance and related forms.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	var out Answer
	err := c.do(ctx, http.MethodPost, "/api/ask", map[string]string{"question": question}, &out)
	return out, err
}

// Search runs a semantic search over stored forms.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var out SearchResponse
	err := c.do(ctx, http.MethodPost, "/api/search", req, &out)
	return out, err
}

// TriggerCrawl starts a background crawl of the given type
// (CrawlSingle, CrawlSmart or CrawlPopular) and returns the accepted job.
func (c *Client) TriggerCrawl(ctx context.Context, crawlType string) (CrawlJob, error) {
	var out CrawlJob
	err := c.do(ctx, http.MethodPost, "/api/crawl", map[string]string{"type": crawlType}, &out)
	return out, err
}

// CrawlJob fetches the current snapshot of a crawl job.
func (c *Client) CrawlJob(ctx context.Context, jobID string) (CrawlJob, error) {
	var out CrawlJob
	err := c.do(ctx, http.MethodGet, "/api/crawl/"+url.PathEscape(jobID), nil, &out)
	return out, err
}

// Sources lists ingestion sources with per-source form counts.
func (c *Client) Sources(ctx context.Context) ([]Source, error) {
	var out struct {
		Sources []Source `json:"sources"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sources", nil, &out)
	return out.Sources, err
}

// Topics lists the legal topics known to the service.
func (c *Client) Topics(ctx context.Context) ([]string, error) {
	var out struct {
		Topics []string `json:"topics"`
	}
	err := c.do(ctx, http.MethodGet, "/api/topics", nil, &out)
	return out.Topics, err
}

// Stats returns aggregate store statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out)
	return out, err
}

// Health checks the health of the service and its dependencies.
// An unhealthy service returns a populated status together with
// an error wrapping ErrUnavailable.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("formdex: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("formdex: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("formdex: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("formdex request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("formdex: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// /health carries its regular body on 503; keep whatever decodes.
		if out != nil {
			_ = json.Unmarshal(payload, out)
		}
		return decodeAPIError(resp.StatusCode, payload)
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("formdex: decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(status int, payload []byte) error {
	apiErr := &APIError{StatusCode: status}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
