// Package salesforce exports accepted leads to a Salesforce org as Lead
// records. Authentication uses the OAuth JWT bearer flow.
package salesforce

import (
	"context"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	leadObject = "Lead"
	defaultRPS = 5
)

// Client reads and creates Lead records.
type Client interface {
	// QueryLeads runs a SOQL query over Lead and decodes the rows.
	QueryLeads(ctx context.Context, soql string) ([]Lead, error)
	// CreateLeads inserts at most maxBatchSize field maps in one
	// collections request.
	CreateLeads(ctx context.Context, records []map[string]any) ([]CollectionResult, error)
}

// CollectionResult reports one record of a collections insert.
type CollectionResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// Config identifies the integration user.
type Config struct {
	LoginURL      string
	Username      string
	ClientID      string
	PrivateKeyPEM string
	// RequestsPerSecond caps API calls. Zero means defaultRPS.
	RequestsPerSecond float64
}

// Dial authenticates against the org and returns a throttled Client.
func Dial(cfg Config) (Client, error) {
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: cfg.PrivateKeyPEM,
	})
	if err != nil {
		return nil, eris.Wrap(err, "salesforce: authenticate")
	}
	return newLeadClient(sf, cfg.RequestsPerSecond), nil
}

// leadClient calls go-salesforce, which takes no context; ctx bounds only
// the throttle wait.
type leadClient struct {
	sf       *salesforce.Salesforce
	throttle *rate.Limiter
}

func newLeadClient(sf *salesforce.Salesforce, rps float64) *leadClient {
	if rps <= 0 {
		rps = defaultRPS
	}
	return &leadClient{sf: sf, throttle: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (c *leadClient) QueryLeads(ctx context.Context, soql string) ([]Lead, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "salesforce: throttle")
	}
	var leads []Lead
	if err := c.sf.Query(soql, &leads); err != nil {
		return nil, eris.Wrap(err, "salesforce: query leads")
	}
	return leads, nil
}

func (c *leadClient) CreateLeads(ctx context.Context, records []map[string]any) ([]CollectionResult, error) {
	if len(records) > maxBatchSize {
		return nil, eris.Errorf("salesforce: %d leads exceed the collection limit of %d", len(records), maxBatchSize)
	}
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "salesforce: throttle")
	}
	res, err := c.sf.InsertCollection(leadObject, records, maxBatchSize)
	if err != nil {
		return nil, eris.Wrap(err, "salesforce: create leads")
	}

	out := make([]CollectionResult, len(res.Results))
	for i, r := range res.Results {
		out[i] = CollectionResult{ID: r.Id, Success: r.Success}
		for _, e := range r.Errors {
			out[i].Errors = append(out[i].Errors, e.Message)
		}
	}
	return out, nil
}
