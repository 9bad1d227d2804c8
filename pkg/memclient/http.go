package memclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/errors"
)

const tagOverfetchFactor = 4

/*
HTTPClient is the request/response transport against the memory service
REST API. Self-signed certificates are accepted; a failed HTTPS health
check is retried against plain HTTP on the same host and port, and the
downgraded endpoint sticks for the client's lifetime.
*/
type HTTPClient struct {
	endpoint  string
	apiKey    string
	client    *http.Client
	healthTTL time.Duration
	connected bool
	now       func() time.Time
}

func NewHTTPClient(cfg config.HTTPSettings) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &HTTPClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		healthTTL: cfg.HealthCheckTimeout,
		now:       time.Now,
	}
}

func (c *HTTPClient) Name() string { return "http" }

/*
Connect verifies the service is reachable. On an HTTPS failure the same
host is probed over plain HTTP before giving up.
*/
func (c *HTTPClient) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	if c.healthTTL > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.healthTTL)
		defer cancel()
	}

	if _, err := c.fetchHealth(ctx, c.endpoint); err != nil {
		if !strings.HasPrefix(c.endpoint, "https://") {
			return errors.NewTransportError("http", err)
		}

		downgraded := "http://" + strings.TrimPrefix(c.endpoint, "https://")
		if _, retryErr := c.fetchHealth(ctx, downgraded); retryErr != nil {
			return errors.NewTransportError("http", err)
		}

		log.Warn("https health check failed, downgraded to http", "endpoint", downgraded)
		c.endpoint = downgraded
	}

	c.connected = true

	return nil
}

func (c *HTTPClient) Disconnect() error {
	c.connected = false
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	return c.fetchHealth(ctx, c.endpoint)
}

func (c *HTTPClient) fetchHealth(ctx context.Context, endpoint string) (*Health, error) {
	var health Health
	if err := c.get(ctx, endpoint+"/api/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

/*
DetailedHealth fetches the verbose health document.
*/
func (c *HTTPClient) DetailedHealth(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.get(ctx, c.endpoint+"/api/health/detailed", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *HTTPClient) Search(ctx context.Context, query string, limit int) ([]Memory, error) {
	payload := map[string]any{
		"query":     query,
		"n_results": limit,
	}

	var result searchResult
	if err := c.post(ctx, "/api/search", payload, &result); err != nil {
		return nil, err
	}

	return result.memories(), nil
}

func (c *HTTPClient) SearchByTime(ctx context.Context, query, timeWindow string, limit int) ([]Memory, error) {
	payload := map[string]any{
		"query":          timeWindow,
		"n_results":      limit,
		"semantic_query": query,
	}

	var result searchResult
	if err := c.post(ctx, "/api/search/by-time", payload, &result); err != nil {
		return nil, err
	}

	return result.memories(), nil
}

func (c *HTTPClient) SearchByTag(ctx context.Context, tags []string, limit int) ([]Memory, error) {
	payload := map[string]any{
		"tags":  tags,
		"limit": limit,
	}

	var result searchResult
	if err := c.post(ctx, "/api/search/by-tag", payload, &result); err != nil {
		return nil, err
	}

	return result.memories(), nil
}

/*
SearchByTagAndTime filters by tag server-side, over-fetching fourfold, then
applies the time window client-side.
*/
func (c *HTTPClient) SearchByTagAndTime(ctx context.Context, tags []string, timeWindow string, limit int) ([]Memory, error) {
	fetched, err := c.SearchByTag(ctx, tags, limit*tagOverfetchFactor)
	if err != nil {
		return nil, err
	}

	window := ParseTimeWindow(timeWindow)
	now := c.now()

	var out []Memory
	for _, m := range fetched {
		if !withinWindow(m.CreatedAt, window, now) {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}

	return out, nil
}

func (c *HTTPClient) Store(ctx context.Context, req StoreRequest) (string, error) {
	var result struct {
		ContentHash string `json:"content_hash"`
	}
	if err := c.post(ctx, "/api/memories", req, &result); err != nil {
		return "", err
	}

	return result.ContentHash, nil
}

/*
EvaluateQuality fires the evaluation request in the background and ignores
the outcome entirely.
*/
func (c *HTTPClient) EvaluateQuality(contentHash string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		url := fmt.Sprintf("%s/api/quality/memories/%s/evaluate", c.endpoint, contentHash)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return
		}
		c.authenticate(req)

		resp, err := c.client.Do(req)
		if err != nil {
			log.Debug("quality evaluation request failed", "error", err)
			return
		}
		resp.Body.Close()
	}()
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewProtocolError("marshal request: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return errors.NewTransportError("http", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authenticate(req)

	return c.do(req, result)
}

func (c *HTTPClient) get(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewTransportError("http", err)
	}
	c.authenticate(req)

	return c.do(req, result)
}

func (c *HTTPClient) do(req *http.Request, result any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewTransportError("http", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.NewTransportError("http", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.NewProtocolError("decode response: " + err.Error())
	}

	return nil
}

func (c *HTTPClient) authenticate(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
