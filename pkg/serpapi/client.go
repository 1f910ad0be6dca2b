// Package serpapi is a thin client for SerpAPI's Google search endpoint.
package serpapi

import (
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

const defaultBaseURL = "https://serpapi.com"

// Client performs SerpAPI searches.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest holds the query and Google locale hints.
type SearchRequest struct {
	Query    string
	Country  string // gl
	Language string // hl
	Num      int
	Start    int
}

// SearchResponse is the subset of the SerpAPI response we use.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error,omitempty"`
}

// OrganicResult is one organic search hit.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", sr.Query)
	q.Set("api_key", c.apiKey)
	if sr.Num > 0 {
		q.Set("num", strconv.Itoa(sr.Num))
	}
	if sr.Country != "" {
		q.Set("gl", sr.Country)
	}
	if sr.Language != "" {
		q.Set("hl", sr.Language)
	}
	if sr.Start > 0 {
		q.Set("start", strconv.Itoa(sr.Start))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	var result SearchResponse
	jsonErr := json.Unmarshal(body, &result)

	// An empty result page is reported through the error field.
	if resp.StatusCode == http.StatusOK && strings.Contains(result.Error, "hasn't returned any results") {
		return &SearchResponse{}, nil
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, classify(resp.StatusCode, msg)
	}
	if jsonErr != nil {
		return nil, eris.Wrap(jsonErr, "serpapi: unmarshal response")
	}

	return &result, nil
}

// classify turns a SerpAPI error into a ServiceError. SerpAPI reports an
// exhausted plan as 429 with "run out of searches", which is a quota
// problem rather than a request-rate problem.
func classify(status int, msg string) error {
	se := resilience.NewServiceError("serpapi", status, eris.New(msg))
	switch {
	case resilience.ContainsAny(msg, "run out of searches", "plan", "quota"):
		se.Kind = resilience.KindQuota
	case resilience.ContainsAny(msg, "invalid api key"):
		se.Kind = resilience.KindAuth
	case status == http.StatusTooManyRequests:
		se.Kind = resilience.KindQuota
	}
	return se
}
