// Package apify runs Apify actors synchronously and returns their dataset items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/resilience"
)

const defaultBaseURL = "https://api.apify.com"

// Client runs actors. The token is passed per call so callers can rotate
// through a key pool.
type Client interface {
	RunActor(ctx context.Context, token, actorID string, input any) ([]map[string]any, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRunTimeout bounds each actor run.
func WithRunTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.runTimeout = d
	}
}

type httpClient struct {
	baseURL    string
	runTimeout time.Duration
	http       *http.Client
}

// NewClient creates an Apify client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:    defaultBaseURL,
		runTimeout: 180 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		// Leave headroom over the server-side run timeout for the response.
		c.http = &http.Client{Timeout: c.runTimeout + 30*time.Second}
	}
	return c
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) RunActor(ctx context.Context, token, actorID string, input any) ([]map[string]any, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal input")
	}

	ctx, cancel := context.WithTimeout(ctx, c.runTimeout+30*time.Second)
	defer cancel()

	// Actor IDs are "user/name" in the console but "user~name" in API paths.
	path := "/v2/acts/" + url.PathEscape(strings.ReplaceAll(actorID, "/", "~")) + "/run-sync-get-dataset-items"
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(c.runTimeout.Seconds())))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "apify: run actor %s", actorID)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apify: read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := strings.TrimSpace(string(respBody))
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			msg = ae.Error.Type + ": " + ae.Error.Message
		}
		return nil, resilience.NewServiceError("apify", resp.StatusCode,
			eris.Errorf("apify: actor %s: %s", actorID, msg))
	}

	var items []map[string]any
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, eris.Wrap(err, "apify: unmarshal dataset items")
	}
	return items, nil
}
