package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/classify"
	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/credential"
	"github.com/sells-group/leadscout/internal/discovery"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/filter"
	"github.com/sells-group/leadscout/internal/pace"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/store"
)

// fakeSearcher returns the same hits for every query.
type fakeSearcher struct {
	mu    sync.Mutex
	hits  []discovery.Hit
	calls int
}

func (f *fakeSearcher) Search(_ context.Context, _ discovery.Request) ([]discovery.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.hits, nil
}

// quotaOnceProvider fails its first call with a quota error and echoes a
// record per URL afterwards.
type quotaOnceProvider struct {
	mu   sync.Mutex
	keys []string
}

func (p *quotaOnceProvider) Name() string { return "quota-once" }

func (p *quotaOnceProvider) Scrape(_ context.Context, key string, urls []string) ([]map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	if len(p.keys) == 1 {
		return nil, resilience.NewServiceError("apify", 402, errors.New("not-enough-usage"))
	}
	items := make([]map[string]any, len(urls))
	for i, u := range urls {
		items[i] = map[string]any{"linkedinUrl": u, "fullName": "Scraped " + u}
	}
	return items, nil
}

func (p *quotaOnceProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// setTestConfig installs a minimal global config and restores the old one
// when the test ends.
func setTestConfig(t *testing.T) {
	t.Helper()
	old := cfg
	cfg = &config.Config{
		Pipeline: config.PipelineConfig{
			Target:         50,
			MaxRounds:      10,
			MaxEmptyRounds: 2,
			RoundCeiling:   40,
		},
	}
	t.Cleanup(func() { cfg = old })
}

// newTestEnv builds an environment over a temp SQLite store with a fake
// searcher and no scraping keys, so records fall back to search data.
func newTestEnv(t *testing.T, s discovery.Searcher) *pipelineEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leadscout.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	env := &pipelineEnv{
		Store:      st,
		Discovery:  discovery.NewAdapter(s, nil, discovery.Options{}),
		Enricher:   enrich.NewOrchestrator(nil, nil, credential.NewRotator(nil), &enrich.State{}, nil, enrich.Options{}),
		Cascade:    filter.NewCascade(nil, filter.DefaultThresholds()),
		Scorer:     classify.NewScorer(classify.NewChain(classify.NewHeuristic(nil), nil), nil, pace.None()),
		RoundPacer: pace.None(),
	}
	t.Cleanup(env.Close)
	return env
}

func linkedInHits() []discovery.Hit {
	return []discovery.Hit{
		{URL: "https://in.linkedin.com/in/priya-sharma", Title: "Priya Sharma - Physics Teacher - Sunrise Academy | LinkedIn"},
		{URL: "https://www.linkedin.com/in/arjun-mehta/", Title: "Arjun Mehta - Physics Tutor | LinkedIn"},
		{URL: "https://www.linkedin.com/in/kavya-rao", Title: "Kavya Rao - Science Teacher | LinkedIn"},
		{URL: "https://example.com/not-linkedin", Title: "Not a profile"},
	}
}
