package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/leadscout/internal/discovery"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/query"
)

// --- Discovery fake ---

// fakeDiscovery returns rounds[i] on the i-th call; the last entry repeats.
type fakeDiscovery struct {
	rounds          [][]model.Stub
	queriesPerRound int
	batches         []query.Batch
	limits          []int
}

func (f *fakeDiscovery) Run(_ context.Context, batch query.Batch, limit int) discovery.Result {
	i := len(f.batches)
	f.batches = append(f.batches, batch)
	f.limits = append(f.limits, limit)

	issued := f.queriesPerRound
	if issued == 0 {
		issued = len(batch.Queries)
	}
	if limit >= 0 {
		issued = min(issued, limit)
	}

	var stubs []model.Stub
	if len(f.rounds) > 0 {
		stubs = f.rounds[min(i, len(f.rounds)-1)]
	}
	return discovery.Result{Stubs: stubs, QueriesIssued: issued}
}

func stubs(prefix string, n int) []model.Stub {
	out := make([]model.Stub, n)
	for i := range out {
		slug := fmt.Sprintf("%s-%d", prefix, i)
		out[i] = model.Stub{
			URL:  "https://www.linkedin.com/in/" + slug,
			Kind: model.KindIndividual,
			Name: "Person " + slug,
		}
	}
	return out
}

// --- Enrichment fake ---

// fakeEnricher echoes back one enriched record per URL. Headlines come
// from the headlines map; unlisted URLs get a non-education headline.
type fakeEnricher struct {
	headlines map[string]string
	calls     [][]string
}

func (f *fakeEnricher) Enrich(_ context.Context, individuals, organizations []string) enrich.Outcome {
	urls := append(append([]string(nil), individuals...), organizations...)
	f.calls = append(f.calls, urls)

	out := enrich.Outcome{Scraped: len(urls)}
	for _, u := range urls {
		headline, org := f.headlines[u], "Sunrise Academy"
		if headline == "" {
			headline, org = "Software Engineer at Cloudworks", "Cloudworks"
		}
		out.Records = append(out.Records, model.Record{
			Stub:                model.Stub{Headline: headline},
			ProfileURL:          u,
			Location:            "New Delhi, India",
			Connections:         500,
			CurrentOrganization: org,
		})
	}
	return out
}

// --- Classifier fake ---

// urlClassifier marks listed URLs irrelevant and everything else a tutor.
type urlClassifier struct {
	irrelevant map[string]bool
	err        error
}

func (u *urlClassifier) Classify(_ context.Context, rec model.Record) (model.Classification, error) {
	if u.err != nil {
		return model.Classification{}, u.err
	}
	if u.irrelevant[rec.URL] {
		return model.Classification{Persona: model.PersonaIrrelevant, IsRelevant: false, Strategy: "fake"}, nil
	}
	return model.Classification{Persona: model.PersonaIndividualTutor, IsRelevant: true, Strategy: "fake"}, nil
}

// --- Recorder fake ---

type fakeRecorder struct {
	seen  []string
	leads []model.Lead
	fail  bool
}

func (f *fakeRecorder) RecordSeen(_ context.Context, urls []string) error {
	f.seen = append(f.seen, urls...)
	if f.fail {
		return errors.New("store unavailable")
	}
	return nil
}

func (f *fakeRecorder) RecordLead(_ context.Context, lead model.Lead) error {
	f.leads = append(f.leads, lead)
	if f.fail {
		return errors.New("store unavailable")
	}
	return nil
}
