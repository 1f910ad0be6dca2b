// Package pipeline runs the deep acquisition loop: discover, enrich,
// filter and score, round after round, until a stop condition holds.
package pipeline

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/discovery"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/filter"
	"github.com/sells-group/leadscout/internal/match"
	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pace"
	"github.com/sells-group/leadscout/internal/query"
)

// StopReason names the condition that ended a run.
type StopReason string

const (
	StopTargetReached        StopReason = "target_reached"
	StopMaxRounds            StopReason = "max_rounds"
	StopStalled              StopReason = "stalled"
	StopClassificationBudget StopReason = "classification_budget"
	StopQueryBudget          StopReason = "query_budget"
	StopCanceled             StopReason = "context_canceled"
)

// Discoverer runs one round of search queries.
type Discoverer interface {
	Run(ctx context.Context, batch query.Batch, limit int) discovery.Result
}

// Enricher scrapes detail for discovered URLs.
type Enricher interface {
	Enrich(ctx context.Context, individuals, organizations []string) enrich.Outcome
}

// Filter drops records that fail the hard predicates.
type Filter interface {
	Apply(records []model.Record) ([]model.Record, filter.Stats)
}

// Scorer classifies and tiers one record within a call budget.
type Scorer interface {
	Score(ctx context.Context, rec model.Record, budget int) (model.Lead, bool, int)
}

// Recorder persists progress as it happens. Errors are logged and
// otherwise ignored.
type Recorder interface {
	RecordSeen(ctx context.Context, urls []string) error
	RecordLead(ctx context.Context, lead model.Lead) error
}

// Deps are the collaborators a Controller drives. Enricher and Recorder
// may be nil; without an Enricher every record takes the fallback path.
type Deps struct {
	Generate   func(subject string, round int) query.Batch
	Discovery  Discoverer
	Enricher   Enricher
	Cascade    Filter
	Scorer     Scorer
	Recorder   Recorder
	RoundPacer *pace.Pacer
}

// Options bound a run. Zero budgets are unlimited.
type Options struct {
	RunID              string
	Subject            string
	Target             int
	MaxRounds          int
	MaxEmptyRounds     int
	RoundCeiling       int
	MaxQueries         int
	MaxScrapes         int
	MaxClassifications int
	DedupByName        bool
}

// RunState holds the loop counters.
type RunState struct {
	Round           int            `json:"round"`
	Queries         int            `json:"queries"`
	Scrapes         int            `json:"scrapes"`
	Classifications int            `json:"classifications"`
	EmptyRounds     int            `json:"empty_rounds"`
	Rejections      map[string]int `json:"rejections"`
}

// Report is the result of a run. Leads holds every accepted lead even when
// the run stopped early.
type Report struct {
	Leads  []model.Lead `json:"leads"`
	State  RunState     `json:"state"`
	Stop   StopReason   `json:"stop"`
	Status []string     `json:"status"`
}

// Summary converts the report into the persisted run summary.
func (r Report) Summary() model.RunSummary {
	tiers := make(map[model.Tier]int)
	for _, l := range r.Leads {
		tiers[l.Tier]++
	}
	return model.RunSummary{
		Leads:           len(r.Leads),
		Rounds:          r.State.Round,
		Queries:         r.State.Queries,
		Scrapes:         r.State.Scrapes,
		Classifications: r.State.Classifications,
		StopReason:      string(r.Stop),
		Rejections:      r.State.Rejections,
		Tiers:           tiers,
	}
}

// Controller is the deep loop. It is single-threaded; one Controller runs
// one acquisition at a time.
type Controller struct {
	deps Deps
	opts Options
	log  *zap.Logger
}

// NewController fills unset options with defaults.
func NewController(deps Deps, opts Options) *Controller {
	if deps.Generate == nil {
		deps.Generate = query.Generate
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 15
	}
	if opts.MaxEmptyRounds <= 0 {
		opts.MaxEmptyRounds = 4
	}
	if opts.RoundCeiling <= 0 {
		opts.RoundCeiling = 40
	}
	return &Controller{
		deps: deps,
		opts: opts,
		log: zap.L().With(
			zap.String("component", "pipeline"),
			zap.String("subject", opts.Subject),
			zap.String("run_id", opts.RunID),
		),
	}
}

// Run loops until a stop condition holds. seen is updated in place.
func (c *Controller) Run(ctx context.Context, seen *SeenSet) Report {
	if seen == nil {
		seen = NewSeenSet(nil, nil)
	}
	rep := Report{State: RunState{Rejections: make(map[string]int)}}
	c.log.Info("pipeline: starting",
		zap.Int("target", c.opts.Target),
		zap.Int("prior_seen", seen.Len()),
	)

	for rep.Stop == "" {
		if stop, ok := c.checkBoundary(ctx, &rep); ok {
			rep.Stop = stop
			break
		}
		c.round(ctx, seen, &rep)
		if rep.Stop != "" {
			break
		}
		if len(rep.Leads) >= c.opts.Target {
			continue
		}
		if err := c.deps.RoundPacer.Wait(ctx); err != nil {
			rep.Stop = StopCanceled
		}
	}

	c.log.Info("pipeline: finished",
		zap.String("stop", string(rep.Stop)),
		zap.Int("leads", len(rep.Leads)),
		zap.Int("rounds", rep.State.Round),
		zap.Int("queries", rep.State.Queries),
		zap.Int("scrapes", rep.State.Scrapes),
		zap.Int("classifications", rep.State.Classifications),
	)
	return rep
}

// checkBoundary evaluates the conditions tested before each round.
func (c *Controller) checkBoundary(ctx context.Context, rep *Report) (StopReason, bool) {
	st := rep.State
	switch {
	case ctx.Err() != nil:
		return StopCanceled, true
	case len(rep.Leads) >= c.opts.Target:
		return StopTargetReached, true
	case st.Round >= c.opts.MaxRounds:
		return StopMaxRounds, true
	case c.opts.MaxQueries > 0 && st.Queries >= c.opts.MaxQueries:
		return StopQueryBudget, true
	case c.opts.MaxClassifications > 0 && st.Classifications >= c.opts.MaxClassifications:
		return StopClassificationBudget, true
	}
	return "", false
}

func (c *Controller) round(ctx context.Context, seen *SeenSet, rep *Report) {
	st := &rep.State
	idx := st.Round
	st.Round++
	log := c.log.With(zap.Int("round", st.Round))

	// Discovery.
	batch := c.deps.Generate(c.opts.Subject, idx)
	limit := -1
	if c.opts.MaxQueries > 0 {
		limit = c.opts.MaxQueries - st.Queries
	}
	found := c.deps.Discovery.Run(ctx, batch, limit)
	st.Queries += found.QueriesIssued
	rep.Status = append(rep.Status, found.Status...)

	fresh := c.unseen(found.Stubs, seen)
	metrics.ObserveRound(len(fresh) > 0)
	if len(fresh) == 0 {
		st.EmptyRounds++
		log.Info("pipeline: no new profiles", zap.Int("empty_rounds", st.EmptyRounds))
		rep.Status = append(rep.Status, fmt.Sprintf("round %d: all duplicates", st.Round))
		if st.EmptyRounds >= c.opts.MaxEmptyRounds {
			rep.Stop = StopStalled
		}
		return
	}
	st.EmptyRounds = 0

	urls := make([]string, 0, len(fresh))
	for _, s := range fresh {
		seen.AddURL(s.URL)
		if c.opts.DedupByName {
			seen.AddName(s.Name)
		}
		urls = append(urls, s.URL)
	}
	if c.deps.Recorder != nil {
		if err := c.deps.Recorder.RecordSeen(ctx, urls); err != nil {
			log.Warn("pipeline: record seen failed", zap.Error(err))
		}
	}

	// Enrichment.
	needed := c.opts.Target - len(rep.Leads)
	stubs := fresh[:min(2*needed, c.opts.RoundCeiling, len(fresh))]
	records := c.enrich(ctx, stubs, st, rep)

	// Hard filters.
	survivors, stats := c.deps.Cascade.Apply(records)
	for k, v := range stats.Rejected {
		st.Rejections[k] += v
	}

	// Classification.
	for _, rec := range survivors {
		if len(rep.Leads) >= c.opts.Target {
			break
		}
		budget := c.classificationBudget(st)
		if budget <= 0 {
			rep.Stop = StopClassificationBudget
			break
		}
		lead, accepted, calls := c.deps.Scorer.Score(ctx, rec, budget)
		st.Classifications += calls
		if !accepted {
			continue
		}
		lead.RunID = c.opts.RunID
		rep.Leads = append(rep.Leads, lead)
		if c.deps.Recorder != nil {
			if err := c.deps.Recorder.RecordLead(ctx, lead); err != nil {
				log.Warn("pipeline: record lead failed", zap.String("url", lead.URL), zap.Error(err))
			}
		}
	}

	log.Info("pipeline: round complete",
		zap.Int("discovered", len(found.Stubs)),
		zap.Int("new", len(fresh)),
		zap.Int("batch", len(stubs)),
		zap.Int("passed_filters", stats.Passed),
		zap.Int("leads", len(rep.Leads)),
	)
	rep.Status = append(rep.Status, fmt.Sprintf("progress: %d / %d leads found", len(rep.Leads), c.opts.Target))
}

// unseen drops stubs already in the seen-set and duplicates within the batch.
func (c *Controller) unseen(stubs []model.Stub, seen *SeenSet) []model.Stub {
	batch := make(map[string]bool, len(stubs))
	out := make([]model.Stub, 0, len(stubs))
	for _, s := range stubs {
		k := match.Key(s.URL)
		if k == "" || batch[k] || seen.HasURL(s.URL) {
			continue
		}
		if c.opts.DedupByName && seen.HasName(s.Name) {
			continue
		}
		batch[k] = true
		out = append(out, s)
	}
	return out
}

// enrich scrapes as much of the batch as the scrape budget allows and
// matches the results back to the stubs. Stubs left unscraped fall back
// to their discovery data.
func (c *Controller) enrich(ctx context.Context, stubs []model.Stub, st *RunState, rep *Report) []model.Record {
	n := len(stubs)
	if c.opts.MaxScrapes > 0 {
		n = min(n, max(c.opts.MaxScrapes-st.Scrapes, 0))
	}
	if c.deps.Enricher == nil || n == 0 {
		return match.Match(stubs, nil)
	}

	var individuals, organizations []string
	for _, s := range stubs[:n] {
		if s.Kind == model.KindOrganization {
			organizations = append(organizations, s.URL)
		} else {
			individuals = append(individuals, s.URL)
		}
	}

	out := c.deps.Enricher.Enrich(ctx, individuals, organizations)
	st.Scrapes += out.Scraped
	rep.Status = append(rep.Status, out.Status...)
	return match.Match(stubs, out.Records)
}

func (c *Controller) classificationBudget(st *RunState) int {
	if c.opts.MaxClassifications <= 0 {
		return math.MaxInt
	}
	return c.opts.MaxClassifications - st.Classifications
}
