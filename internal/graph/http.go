package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "worksched/internal/log"
)

const defaultTimeout = 15 * time.Second

// HTTPClient talks to the backend's JSON API:
//
//	POST {base}/batch                          body: Batch
//	GET  {base}/entities/{id}/neighbors?type=T -> {"neighbors": [Entity...]}
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client for baseURL. token, when set, is sent as
// a bearer token. A non-positive timeout falls back to 15s.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type neighborsResponse struct {
	Neighbors []Entity `json:"neighbors"`
}

func (c *HTTPClient) SubmitBatch(ctx context.Context, b Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("graph: encode batch: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/batch", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		appLog.Error("graph submit failed", err, "url", RedactURL(c.baseURL))
		return fmt.Errorf("graph: submit batch: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return fmt.Errorf("graph: submit batch: %w", err)
	}
	appLog.Debug("graph batch submitted",
		"entities", len(b.Entities),
		"associations", len(b.Associations),
	)
	return nil
}

func (c *HTTPClient) SearchNeighbors(ctx context.Context, entityID, entityType string) ([]Entity, error) {
	path := "/entities/" + url.PathEscape(entityID) + "/neighbors"
	if entityType != "" {
		path += "?type=" + url.QueryEscape(entityType)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		appLog.Error("graph neighbor search failed", err, "url", RedactURL(c.baseURL), "entity", entityID)
		return nil, fmt.Errorf("graph: search neighbors: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entityID)
	}
	if err := statusError(resp); err != nil {
		return nil, fmt.Errorf("graph: search neighbors: %w", err)
	}

	var out neighborsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("graph: decode neighbors: %w", err)
	}
	return out.Neighbors, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, errors.New("graph: backend URL is empty")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(bytes.TrimSpace(msg)) == 0 {
		return errors.New(resp.Status)
	}
	return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(msg))
}

// RedactURL keeps only scheme and host of a backend URL for logging.
func RedactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "graph://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + redactedSuffix
}
