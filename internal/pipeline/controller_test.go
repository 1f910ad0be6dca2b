package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/classify"
	"github.com/sells-group/leadscout/internal/filter"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pace"
)

const teacherHeadline = "Physics Teacher at Sunrise Academy"

func newTestController(disc Discoverer, enr Enricher, cls classify.Classifier, rec Recorder, opts Options) *Controller {
	return NewController(Deps{
		Discovery:  disc,
		Enricher:   enr,
		Cascade:    filter.NewCascade(nil, filter.DefaultThresholds()),
		Scorer:     classify.NewScorer(classify.NewChain(cls, nil), nil, pace.None()),
		Recorder:   rec,
		RoundPacer: pace.None(),
	}, opts)
}

func passing(headlines map[string]string, ss []model.Stub, idx ...int) {
	for _, i := range idx {
		headlines[ss[i].URL] = teacherHeadline
	}
}

func defaultOptions() Options {
	return Options{
		RunID:              "run-1",
		Subject:            "Physics Teacher",
		Target:             5,
		MaxRounds:          15,
		MaxEmptyRounds:     4,
		RoundCeiling:       40,
		MaxQueries:         50,
		MaxScrapes:         300,
		MaxClassifications: 300,
	}
}

func TestController_StopsAtTargetInSecondRound(t *testing.T) {
	r1, r2, r3 := stubs("r1", 10), stubs("r2", 10), stubs("r3", 10)
	disc := &fakeDiscovery{rounds: [][]model.Stub{r1, r2, r3}}

	headlines := map[string]string{}
	passing(headlines, r1, 0, 1, 2, 3)
	passing(headlines, r2, 0, 1, 2, 3)
	enr := &fakeEnricher{headlines: headlines}
	cls := &urlClassifier{irrelevant: map[string]bool{r1[3].URL: true}}
	rec := &fakeRecorder{}
	seen := NewSeenSet(nil, nil)

	rep := newTestController(disc, enr, cls, rec, defaultOptions()).Run(context.Background(), seen)

	assert.Equal(t, StopTargetReached, rep.Stop)
	require.Len(t, rep.Leads, 5)
	require.Len(t, disc.batches, 2, "round 3 must never be issued")
	assert.Equal(t, 0, disc.batches[0].Round)
	assert.Equal(t, 1, disc.batches[1].Round)
	assert.Equal(t, 50, disc.limits[0])

	// Round 1 enriches all ten; round 2 only twice the two still needed.
	require.Len(t, enr.calls, 2)
	assert.Len(t, enr.calls[0], 10)
	assert.Len(t, enr.calls[1], 4)

	assert.Equal(t, 2, rep.State.Round)
	assert.Equal(t, 14, rep.State.Scrapes)
	assert.Equal(t, 6, rep.State.Classifications)
	assert.Equal(t, 6, rep.State.Rejections[filter.BucketNonDomain])
	assert.Equal(t, 20, seen.Len())

	wantURLs := []string{r1[0].URL, r1[1].URL, r1[2].URL, r2[0].URL, r2[1].URL}
	for i, lead := range rep.Leads {
		assert.Equal(t, wantURLs[i], lead.URL)
		assert.Equal(t, "run-1", lead.RunID)
		assert.Equal(t, model.TierC, lead.Tier)
		assert.Equal(t, model.StateEnriched, lead.State)
	}

	assert.Len(t, rec.seen, 20)
	assert.Len(t, rec.leads, 5)
}

func TestController_StallsAfterEmptyRounds(t *testing.T) {
	disc := &fakeDiscovery{rounds: [][]model.Stub{stubs("same", 3)}}

	rep := newTestController(disc, &fakeEnricher{}, &urlClassifier{}, nil, defaultOptions()).
		Run(context.Background(), nil)

	assert.Equal(t, StopStalled, rep.Stop)
	assert.Len(t, disc.batches, 5)
	assert.Equal(t, 4, rep.State.EmptyRounds)
	assert.Empty(t, rep.Leads)
}

func TestController_MaxRounds(t *testing.T) {
	disc := &fakeDiscovery{rounds: [][]model.Stub{stubs("a", 2), stubs("b", 2), stubs("c", 2), stubs("d", 2)}}
	opts := defaultOptions()
	opts.MaxRounds = 3

	rep := newTestController(disc, &fakeEnricher{}, &urlClassifier{}, nil, opts).Run(context.Background(), nil)

	assert.Equal(t, StopMaxRounds, rep.Stop)
	assert.Len(t, disc.batches, 3)
	assert.Equal(t, 3, rep.State.Round)
}

func TestController_QueryBudget(t *testing.T) {
	disc := &fakeDiscovery{
		rounds:          [][]model.Stub{stubs("a", 2), stubs("b", 2), stubs("c", 2), stubs("d", 2)},
		queriesPerRound: 5,
	}
	opts := defaultOptions()
	opts.MaxQueries = 12

	rep := newTestController(disc, &fakeEnricher{}, &urlClassifier{}, nil, opts).Run(context.Background(), nil)

	assert.Equal(t, StopQueryBudget, rep.Stop)
	assert.Equal(t, []int{12, 7, 2}, disc.limits)
	assert.Equal(t, 12, rep.State.Queries)
}

func TestController_ClassificationBudget(t *testing.T) {
	r1 := stubs("r1", 4)
	headlines := map[string]string{}
	passing(headlines, r1, 0, 1, 2, 3)

	disc := &fakeDiscovery{rounds: [][]model.Stub{r1, stubs("r2", 4)}}
	opts := defaultOptions()
	opts.Target = 10
	opts.MaxClassifications = 2

	rep := newTestController(disc, &fakeEnricher{headlines: headlines}, &urlClassifier{}, nil, opts).
		Run(context.Background(), nil)

	assert.Equal(t, StopClassificationBudget, rep.Stop)
	assert.Len(t, rep.Leads, 2)
	assert.Equal(t, 2, rep.State.Classifications)
	assert.Len(t, disc.batches, 1)
}

func TestController_ClassifierFailuresSpendBudget(t *testing.T) {
	r1 := stubs("r1", 3)
	headlines := map[string]string{}
	passing(headlines, r1, 0, 1, 2)

	disc := &fakeDiscovery{rounds: [][]model.Stub{r1}}
	opts := defaultOptions()
	opts.MaxRounds = 1

	rep := newTestController(disc, &fakeEnricher{headlines: headlines}, &urlClassifier{err: errors.New("down")}, nil, opts).
		Run(context.Background(), nil)

	assert.Equal(t, StopMaxRounds, rep.Stop)
	assert.Empty(t, rep.Leads)
	assert.Equal(t, 3, rep.State.Classifications)
}

func TestController_PriorSeenAndNameDedup(t *testing.T) {
	r1 := stubs("r1", 10)
	disc := &fakeDiscovery{rounds: [][]model.Stub{r1}}
	enr := &fakeEnricher{}
	opts := defaultOptions()
	opts.MaxRounds = 1
	opts.DedupByName = true

	seen := NewSeenSet([]string{"http://linkedin.com/in/R1-0/"}, []string{"  PERSON   r1-1 "})
	rep := newTestController(disc, enr, &urlClassifier{}, nil, opts).Run(context.Background(), seen)

	assert.Equal(t, StopMaxRounds, rep.Stop)
	require.Len(t, enr.calls, 1)
	assert.Len(t, enr.calls[0], 8)
	assert.NotContains(t, enr.calls[0], r1[0].URL)
	assert.NotContains(t, enr.calls[0], r1[1].URL)
	assert.True(t, seen.HasName("Person r1-5"))
}

func TestController_ScrapeBudgetFallsBack(t *testing.T) {
	r1, r2 := stubs("r1", 10), stubs("r2", 10)
	headlines := map[string]string{}
	passing(headlines, r1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	disc := &fakeDiscovery{rounds: [][]model.Stub{r1, r2}}
	enr := &fakeEnricher{headlines: headlines}
	opts := defaultOptions()
	opts.MaxRounds = 2
	opts.MaxScrapes = 3

	rep := newTestController(disc, enr, &urlClassifier{}, nil, opts).Run(context.Background(), nil)

	require.Len(t, enr.calls, 1, "no enrichment once the scrape budget is spent")
	assert.Len(t, enr.calls[0], 3)
	assert.Equal(t, 3, rep.State.Scrapes)
	assert.Len(t, rep.Leads, 3)
	// Unscraped stubs carry no headline and fail completeness.
	assert.Equal(t, 7+4, rep.State.Rejections[filter.BucketIncomplete])
}

func TestController_NoEnricher(t *testing.T) {
	disc := &fakeDiscovery{rounds: [][]model.Stub{stubs("r1", 4)}}
	opts := defaultOptions()
	opts.MaxRounds = 1

	rep := newTestController(disc, nil, &urlClassifier{}, nil, opts).Run(context.Background(), nil)

	assert.Equal(t, StopMaxRounds, rep.Stop)
	assert.Equal(t, 4, rep.State.Rejections[filter.BucketIncomplete])
	assert.Zero(t, rep.State.Scrapes)
}

func TestController_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	disc := &fakeDiscovery{rounds: [][]model.Stub{stubs("r1", 4)}}
	rep := newTestController(disc, &fakeEnricher{}, &urlClassifier{}, nil, defaultOptions()).Run(ctx, nil)

	assert.Equal(t, StopCanceled, rep.Stop)
	assert.Empty(t, disc.batches)
}

func TestController_RecorderErrorsAreIgnored(t *testing.T) {
	r1 := stubs("r1", 2)
	headlines := map[string]string{}
	passing(headlines, r1, 0, 1)

	disc := &fakeDiscovery{rounds: [][]model.Stub{r1}}
	rec := &fakeRecorder{fail: true}
	opts := defaultOptions()
	opts.Target = 2

	rep := newTestController(disc, &fakeEnricher{headlines: headlines}, &urlClassifier{}, rec, opts).
		Run(context.Background(), nil)

	assert.Equal(t, StopTargetReached, rep.Stop)
	assert.Len(t, rep.Leads, 2)
	assert.Len(t, rec.leads, 2)
}

func TestReport_Summary(t *testing.T) {
	t.Parallel()

	rep := Report{
		Leads: []model.Lead{{Tier: model.TierA}, {Tier: model.TierC}, {Tier: model.TierC}},
		State: RunState{Round: 3, Queries: 15, Scrapes: 20, Classifications: 9, Rejections: map[string]int{"incomplete": 4}},
		Stop:  StopTargetReached,
	}

	s := rep.Summary()
	assert.Equal(t, 3, s.Leads)
	assert.Equal(t, 3, s.Rounds)
	assert.Equal(t, 15, s.Queries)
	assert.Equal(t, "target_reached", s.StopReason)
	assert.Equal(t, map[model.Tier]int{model.TierA: 1, model.TierC: 2}, s.Tiers)
	assert.Equal(t, 4, s.Rejections["incomplete"])
}

func TestSeenSet(t *testing.T) {
	t.Parallel()

	s := NewSeenSet([]string{"https://www.linkedin.com/in/Priya-Sharma/", ""}, []string{"José  Núñez", ""})

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.HasURL("http://linkedin.com/in/priya-sharma"))
	assert.False(t, s.HasURL("https://www.linkedin.com/in/someone-else"))
	assert.True(t, s.HasName("jose nunez"))
	assert.False(t, s.HasName(""))

	s.AddURL("https://www.linkedin.com/company/sunrise-academy")
	assert.True(t, s.HasURL("https://in.linkedin.com/company/Sunrise-Academy/about"))
	assert.Equal(t, 2, s.Len())
}
