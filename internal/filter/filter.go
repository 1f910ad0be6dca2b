package filter

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
)

// Rejection buckets, in cascade order.
const (
	BucketIncomplete  = "incomplete"
	BucketBlacklisted = "blacklisted"
	BucketNonRegion   = "non_region"
	BucketScaleRange  = "scale_range"
	BucketNonDomain   = "non_domain"
)

// minBlobLen is the shortest relevance text worth evaluating.
const minBlobLen = 5

// Verdict is the outcome of one predicate.
type Verdict struct {
	Pass   bool
	Reason string
}

func pass(reason string) Verdict { return Verdict{Pass: true, Reason: reason} }

func reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Predicate is one named stage of the cascade.
type Predicate struct {
	Name  string
	Check func(model.Record) Verdict
}

// Stats summarizes one Apply call.
type Stats struct {
	Input    int            `json:"input"`
	Passed   int            `json:"passed"`
	Rejected map[string]int `json:"rejected"`
}

// Total returns the number of rejected records.
func (s Stats) Total() int {
	return s.Input - s.Passed
}

// Thresholds bound the scale-range predicate. A zero count always passes.
type Thresholds struct {
	MinConnections int
	MaxConnections int
	MinFollowers   int
	MaxFollowers   int
}

// ThresholdsFromConfig converts the filter config section.
func ThresholdsFromConfig(cfg config.FilterConfig) Thresholds {
	return Thresholds{
		MinConnections: cfg.MinConnections,
		MaxConnections: cfg.MaxConnections,
		MinFollowers:   cfg.MinFollowers,
		MaxFollowers:   cfg.MaxFollowers,
	}
}

// DefaultThresholds returns the built-in scale bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConnections: 100,
		MaxConnections: 30000,
		MinFollowers:   50,
		MaxFollowers:   500000,
	}
}

// Cascade applies its predicates in order, stopping at the first failure.
type Cascade struct {
	predicates []Predicate
	tax        *Taxonomy
	limits     Thresholds
	log        *zap.Logger
}

// NewCascade builds the standard five-stage cascade. A nil taxonomy uses
// the defaults.
func NewCascade(tax *Taxonomy, limits Thresholds) *Cascade {
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	c := &Cascade{
		tax:    tax.Normalized(),
		limits: limits,
		log:    zap.L().With(zap.String("component", "filter")),
	}
	c.predicates = []Predicate{
		{Name: BucketIncomplete, Check: c.complete},
		{Name: BucketBlacklisted, Check: c.notBlacklisted},
		{Name: BucketNonRegion, Check: c.inRegion},
		{Name: BucketScaleRange, Check: c.inScale},
		{Name: BucketNonDomain, Check: c.relevant},
	}
	return c
}

// Predicates returns the cascade stages in evaluation order.
func (c *Cascade) Predicates() []Predicate {
	return c.predicates
}

// Apply returns the records that pass every predicate, in input order.
func (c *Cascade) Apply(records []model.Record) ([]model.Record, Stats) {
	stats := Stats{Input: len(records), Rejected: make(map[string]int, len(c.predicates))}
	for _, p := range c.predicates {
		stats.Rejected[p.Name] = 0
	}

	passed := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if name, v := c.evaluate(rec); name != "" {
			stats.Rejected[name]++
			metrics.ObserveRejection(name)
			c.log.Debug("record rejected",
				zap.String("url", rec.URL),
				zap.String("predicate", name),
				zap.String("reason", v.Reason),
			)
			continue
		}
		passed = append(passed, rec)
	}
	stats.Passed = len(passed)

	c.log.Info("hard filters applied",
		zap.Int("input", stats.Input),
		zap.Int("passed", stats.Passed),
		zap.Int("rejected", stats.Total()),
		zap.Any("by_predicate", stats.Rejected),
	)
	return passed, stats
}

// evaluate returns the name of the first failing predicate, or "".
func (c *Cascade) evaluate(rec model.Record) (string, Verdict) {
	for _, p := range c.predicates {
		if v := p.Check(rec); !v.Pass {
			return p.Name, v
		}
	}
	return "", Verdict{Pass: true}
}

func (c *Cascade) complete(rec model.Record) Verdict {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return reject("missing name")
	}
	if strings.TrimSpace(rec.Headline) == "" && strings.TrimSpace(rec.CurrentTitle) == "" {
		return reject("missing both headline and role")
	}
	if rec.State == model.StateFallbackOnly {
		text := strings.ToLower(strings.Join([]string{name, rec.Headline, rec.CurrentTitle, rec.Snippet}, " "))
		if !ContainsAny(text, c.tax.Education) {
			return reject("unenriched profile without education signal")
		}
	}
	return pass("complete")
}

func (c *Cascade) notBlacklisted(rec model.Record) Verdict {
	text := strings.ToLower(rec.Name + " ||| " + rec.Headline + " ||| " + rec.DisplayOrganization())
	for _, brand := range c.tax.Blacklist {
		if strings.Contains(text, brand) {
			return reject("blacklisted brand: %s", brand)
		}
	}
	return pass("not blacklisted")
}

func (c *Cascade) inRegion(rec model.Record) Verdict {
	if loc := strings.ToLower(strings.TrimSpace(rec.Location)); loc != "" {
		if ContainsAny(loc, c.tax.Region) {
			return pass("location in region")
		}
		return reject("location outside region: %s", rec.Location)
	}
	text := strings.ToLower(rec.Headline + " " + rec.Text())
	if ContainsAny(text, c.tax.Region) {
		return pass("region mentioned in profile text")
	}
	return pass("no location signal")
}

func (c *Cascade) inScale(rec model.Record) Verdict {
	label, count := "connections", rec.Connections
	lo, hi := c.limits.MinConnections, c.limits.MaxConnections
	if rec.Kind == model.KindOrganization {
		label, count = "followers", rec.Followers
		lo, hi = c.limits.MinFollowers, c.limits.MaxFollowers
	}

	switch {
	case count <= 0:
		return pass("no " + label + " count")
	case count < lo:
		return reject("too few %s: %d (min %d)", label, count, lo)
	case hi > 0 && count > hi:
		return reject("too many %s: %d (max %d)", label, count, hi)
	}
	return pass(label + " in range")
}

func (c *Cascade) relevant(rec model.Record) Verdict {
	text := strings.ToLower(strings.Join([]string{
		rec.Headline,
		rec.Text(),
		rec.CurrentTitle,
		rec.DisplayOrganization(),
		strings.Join(rec.Skills, " "),
	}, " "))

	if len(strings.TrimSpace(text)) < minBlobLen {
		return pass("insufficient text to evaluate")
	}

	edu := Matches(text, c.tax.Education)
	if len(edu) == 0 {
		return reject("no education keywords")
	}

	nonEdu := Matches(text, c.tax.NonEducation)
	if len(nonEdu) > 0 && !hasOtherThan(edu, c.tax.Leadership) {
		return reject("leadership role without education context (non-edu: %s)", strings.Join(head(nonEdu, 3), ", "))
	}

	if ContainsAny(text, c.tax.Leadership) && !ContainsAny(text, c.tax.Context) {
		return reject("leadership role without education context")
	}
	return pass("education relevant: " + strings.Join(head(edu, 3), ", "))
}

// hasOtherThan reports whether matches contains an entry not in exclude.
func hasOtherThan(matches, exclude []string) bool {
	for _, m := range matches {
		if !slices.Contains(exclude, m) {
			return true
		}
	}
	return false
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
