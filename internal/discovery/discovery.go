// Package discovery turns search-engine results into LinkedIn profile stubs.
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pace"
	"github.com/sells-group/leadscout/internal/query"
	"github.com/sells-group/leadscout/internal/resilience"
)

// Request is one search call.
type Request struct {
	Query    string
	Region   string
	Language string
	Count    int
	Offset   int
}

// Hit is one organic search result.
type Hit struct {
	URL     string
	Title   string
	Snippet string
}

// Searcher is a web search backend.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Hit, error)
}

// Result summarizes one round of discovery.
type Result struct {
	Stubs         []model.Stub
	Status        []string
	QueriesIssued int
	// Aborted is set when the search credential is invalid or spent; the
	// rest of the round was skipped.
	Aborted bool
}

// Options are the request hints sent with every query.
type Options struct {
	Region   string
	Language string
	Count    int
}

// errorRules classify untyped search errors by their text.
var errorRules = []resilience.TextRule{
	{Kind: resilience.KindAuth, Patterns: []string{"invalid", "key", "unauthorized"}},
	{Kind: resilience.KindQuota, Patterns: []string{"quota", "limit", "exceeded"}},
}

// Adapter runs query batches against a Searcher.
type Adapter struct {
	searcher Searcher
	pacer    *pace.Pacer
	opts     Options
}

// NewAdapter creates an Adapter. A nil pacer disables pacing.
func NewAdapter(s Searcher, pacer *pace.Pacer, opts Options) *Adapter {
	if opts.Count <= 0 {
		opts.Count = 20
	}
	return &Adapter{searcher: s, pacer: pacer, opts: opts}
}

// Run issues the batch's queries in order, at most limit of them (a negative
// limit means no cap), and returns the unique stubs found.
func (a *Adapter) Run(ctx context.Context, batch query.Batch, limit int) Result {
	log := zap.L().With(zap.String("component", "discovery"), zap.Int("round", batch.Round))

	var res Result
	seen := make(map[string]bool)

	for i, q := range batch.Queries {
		if limit >= 0 && res.QueriesIssued >= limit {
			res.Status = append(res.Status, fmt.Sprintf("query budget reached after %d queries", res.QueriesIssued))
			break
		}
		if err := a.pacer.Wait(ctx); err != nil {
			res.Status = append(res.Status, "discovery canceled")
			res.Aborted = true
			break
		}

		hits, err := a.searcher.Search(ctx, Request{
			Query:    q,
			Region:   a.opts.Region,
			Language: a.opts.Language,
			Count:    a.opts.Count,
			Offset:   batch.Offset,
		})
		res.QueriesIssued++

		if err != nil {
			if ctx.Err() != nil {
				res.Status = append(res.Status, "discovery canceled")
				res.Aborted = true
				break
			}
			switch resilience.Classify(err, errorRules...) {
			case resilience.KindAuth:
				metrics.ObserveQuery("auth")
				log.Error("search credential rejected", zap.String("query", q), zap.Error(err))
				res.Status = append(res.Status, "search: invalid API key, aborting round")
				res.Aborted = true
			case resilience.KindQuota, resilience.KindRateLimit:
				metrics.ObserveQuery("quota")
				log.Warn("search quota exhausted", zap.String("query", q), zap.Error(err))
				res.Status = append(res.Status, "search: quota exhausted, aborting round")
				res.Aborted = true
			default:
				metrics.ObserveQuery("error")
				log.Warn("search failed", zap.String("query", q), zap.Error(err))
				res.Status = append(res.Status, fmt.Sprintf("search error: %v", err))
			}
			if res.Aborted {
				break
			}
			continue
		}

		metrics.ObserveQuery("ok")
		res.Status = append(res.Status, fmt.Sprintf("query %d/%d: %d results", i+1, len(batch.Queries), len(hits)))
		for _, h := range hits {
			stub, ok := ParseURL(h.URL, h.Title, h.Snippet)
			if !ok || seen[stub.URL] {
				continue
			}
			seen[stub.URL] = true
			res.Stubs = append(res.Stubs, stub)
		}
	}

	res.Status = append(res.Status, fmt.Sprintf("round %d discovery: %d unique profiles", batch.Round, len(res.Stubs)))
	log.Info("discovery round complete",
		zap.Int("queries", res.QueriesIssued),
		zap.Int("stubs", len(res.Stubs)),
		zap.Bool("aborted", res.Aborted),
	)
	return res
}
