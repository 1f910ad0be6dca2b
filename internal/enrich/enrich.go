// Package enrich scrapes full profile detail for discovered URLs, rotating
// across scraping providers and API keys.
package enrich

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/credential"
	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pace"
	"github.com/sells-group/leadscout/internal/resilience"
)

// Provider is one interchangeable scraping backend.
type Provider interface {
	Name() string
	Scrape(ctx context.Context, key string, urls []string) ([]map[string]any, error)
}

// State remembers which provider last succeeded, per page kind. It lives
// for the whole process so later rounds start with the provider that worked.
type State struct {
	ProfileIndex int
	CompanyIndex int
}

// Options sizes batches and the rate-limit backoff.
type Options struct {
	ProfileBatchSize int
	CompanyBatchSize int
	RateLimitBackoff time.Duration
}

// Outcome is the result of one Enrich call.
type Outcome struct {
	Records []model.Record
	// Scraped counts URLs submitted to successful provider calls.
	Scraped int
	// Aborted is set when no usable credential remains.
	Aborted bool
	Status  []string
}

// errorRules classify untyped provider errors. Rate limits come first
// because their messages also mention "limit".
var errorRules = []resilience.TextRule{
	{Kind: resilience.KindRateLimit, Patterns: []string{"429", "rate limit", "rate-limit", "too many requests"}},
	{Kind: resilience.KindQuota, Patterns: []string{"quota", "credit", "limit", "402", "payment", "subscription"}},
	{Kind: resilience.KindNotFound, Patterns: []string{"not found"}},
}

// Orchestrator drives providers over batches of URLs.
type Orchestrator struct {
	profiles  []Provider
	companies []Provider
	rotator   *credential.Rotator
	state     *State
	pacer     *pace.Pacer
	opts      Options
}

// NewOrchestrator creates an Orchestrator. state is shared across calls and
// must not be nil.
func NewOrchestrator(profiles, companies []Provider, rotator *credential.Rotator, state *State, pacer *pace.Pacer, opts Options) *Orchestrator {
	if opts.ProfileBatchSize <= 0 {
		opts.ProfileBatchSize = 20
	}
	if opts.CompanyBatchSize <= 0 {
		opts.CompanyBatchSize = 30
	}
	if opts.RateLimitBackoff < 0 {
		opts.RateLimitBackoff = 0
	}
	return &Orchestrator{
		profiles:  profiles,
		companies: companies,
		rotator:   rotator,
		state:     state,
		pacer:     pacer,
		opts:      opts,
	}
}

// WithRotator returns a copy of o that draws keys from r. The copy shares
// the provider state, so the sticky provider index carries across runs
// while each run gets a fresh key pool.
func (o *Orchestrator) WithRotator(r *credential.Rotator) *Orchestrator {
	cp := *o
	cp.rotator = r
	return &cp
}

// pageKind pairs an extractor with its usability rule.
type pageKind struct {
	extract func(map[string]any) model.Record
	// keepAll keeps items that carry no name or headline.
	keepAll bool
}

var (
	profilePage = pageKind{extract: ExtractProfile}
	companyPage = pageKind{extract: ExtractOrganization, keepAll: true}
)

// Enrich scrapes individual and organization URLs. Records come back in
// provider order, not input order; the matcher pairs them with stubs.
func (o *Orchestrator) Enrich(ctx context.Context, individuals, organizations []string) Outcome {
	var out Outcome
	if _, ok := o.rotator.Current(); !ok {
		out.Aborted = true
		out.Status = append(out.Status, "no scraping keys available, using search data only")
		return out
	}

	o.run(ctx, &out, o.profiles, &o.state.ProfileIndex, individuals, o.opts.ProfileBatchSize, profilePage)
	if !out.Aborted {
		o.run(ctx, &out, o.companies, &o.state.CompanyIndex, organizations, o.opts.CompanyBatchSize, companyPage)
	}
	return out
}

// run scrapes urls in batches, pausing on the pacer after every batch.
func (o *Orchestrator) run(ctx context.Context, out *Outcome, providers []Provider, sticky *int, urls []string, size int, kind pageKind) {
	if len(providers) == 0 || len(urls) == 0 {
		return
	}
	for start := 0; start < len(urls); start += size {
		batch := urls[start:min(start+size, len(urls))]
		records, aborted := o.batch(ctx, out, providers, sticky, batch, kind)
		out.Records = append(out.Records, records...)
		if aborted {
			out.Aborted = true
			return
		}
		if err := o.pacer.Wait(ctx); err != nil {
			out.Aborted = true
			out.Status = append(out.Status, "enrichment canceled")
			return
		}
	}
}

// batch tries providers round-robin from the sticky index until one returns
// usable records. It reports true when the run must stop.
func (o *Orchestrator) batch(ctx context.Context, out *Outcome, providers []Provider, sticky *int, urls []string, kind pageKind) ([]model.Record, bool) {
	log := zap.L().With(zap.String("component", "enrich"), zap.Int("urls", len(urls)))

	key, ok := o.rotator.Current()
	if !ok {
		out.Status = append(out.Status, "all scraping keys exhausted, skipping remaining enrichment")
		return nil, true
	}
	out.Status = append(out.Status, fmt.Sprintf("scraping %d URLs (%s)", len(urls), o.rotator.Status()))

	start := *sticky
	for attempt := 0; attempt < len(providers); attempt++ {
		idx := (start + attempt) % len(providers)
		p := providers[idx]

		items, err := resilience.Retry(ctx,
			resilience.RetryOnce(o.opts.RateLimitBackoff, isRateLimited),
			func(ctx context.Context) ([]map[string]any, error) {
				return p.Scrape(ctx, key, urls)
			})
		if err != nil {
			if ctx.Err() != nil {
				out.Status = append(out.Status, "enrichment canceled")
				return nil, true
			}
			switch resilience.Classify(err, errorRules...) {
			case resilience.KindRateLimit:
				metrics.ObserveScrape(p.Name(), "rate_limited")
				out.Status = append(out.Status, fmt.Sprintf("%s rate limited after retry, trying next provider", p.Name()))
			case resilience.KindQuota, resilience.KindAuth:
				metrics.ObserveScrape(p.Name(), "quota")
				metrics.ObserveRotation()
				next, ok := o.rotator.ExhaustCurrent()
				if !ok {
					log.Warn("all scraping keys exhausted", zap.String("provider", p.Name()), zap.Error(err))
					out.Status = append(out.Status, "all scraping keys exhausted")
					return nil, true
				}
				log.Info("scraping key exhausted, rotating", zap.String("provider", p.Name()), zap.String("keys", o.rotator.Status()))
				out.Status = append(out.Status, fmt.Sprintf("key exhausted, rotating (%s)", o.rotator.Status()))
				key = next
				attempt-- // same provider, new key
			case resilience.KindNotFound:
				metrics.ObserveScrape(p.Name(), "not_found")
				out.Status = append(out.Status, fmt.Sprintf("%s not found, trying next provider", p.Name()))
			default:
				metrics.ObserveScrape(p.Name(), "error")
				log.Warn("scrape failed", zap.String("provider", p.Name()), zap.Error(err))
				out.Status = append(out.Status, fmt.Sprintf("%s error: %s", p.Name(), shorten(err.Error(), 120)))
			}
			continue
		}

		records := usable(items, kind, p.Name())
		if len(records) == 0 {
			metrics.ObserveScrape(p.Name(), "empty")
			out.Status = append(out.Status, fmt.Sprintf("%s returned no usable items, trying next provider", p.Name()))
			continue
		}

		metrics.ObserveScrape(p.Name(), "ok")
		*sticky = idx
		out.Scraped += len(urls)
		out.Status = append(out.Status, fmt.Sprintf("got %d records via %s", len(records), p.Name()))
		return records, false
	}

	log.Warn("no provider produced records for batch")
	return nil, false
}

func isRateLimited(err error) bool {
	return resilience.Classify(err, errorRules...) == resilience.KindRateLimit
}

// usable extracts records from items. Profile items without a name or
// headline are dropped; organization items are all kept and the matcher
// ignores their empty fields.
func usable(items []map[string]any, kind pageKind, provider string) []model.Record {
	var out []model.Record
	for _, item := range items {
		rec := kind.extract(item)
		if !kind.keepAll && (rec.Name == "" || rec.Name == unknownName) && rec.Headline == "" {
			continue
		}
		rec.Provider = provider
		out = append(out, rec)
	}
	return out
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
