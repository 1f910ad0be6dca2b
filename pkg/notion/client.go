// Package notion reads prior-outreach databases and writes lead pages.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/resilience"
)

// Client is the slice of the Notion API the lead pipeline uses.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit sets the request rate. Zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the policy for rate-limited and busy responses.
func WithRetry(p resilience.Policy) ClientOption {
	return func(c *notionClient) { c.retry = p }
}

// Notion reports throttling and contention through these error codes.
var retryRules = []resilience.TextRule{
	{Kind: resilience.KindRateLimit, Patterns: []string{"rate_limited", "429", "conflict_error", "service_unavailable", "502", "503"}},
}

func retryable(err error) bool {
	return resilience.Classify(err, retryRules...) == resilience.KindRateLimit
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a client for the integration token, throttled to
// Notion's published limit of three requests per second.
func NewClient(token string, opts ...ClientOption) Client {
	retry := resilience.APIPolicy("notion")
	retry.Retryable = retryable
	c := &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call paces and retries one API request.
func call[T any](ctx context.Context, c *notionClient, op string, fn func(context.Context) (T, error)) (T, error) {
	out, err := resilience.Retry(ctx, c.retry, func(ctx context.Context) (T, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, eris.Wrap(err, "notion: rate limit")
			}
		}
		return fn(ctx)
	})
	return out, eris.Wrapf(err, "notion: %s", op)
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return call(ctx, c, "query database "+dbID, func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		return c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return call(ctx, c, "create page", func(ctx context.Context) (*notionapi.Page, error) {
		return c.inner.Page.Create(ctx, req)
	})
}
