package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/classify"
	"github.com/sells-group/leadscout/internal/credential"
	"github.com/sells-group/leadscout/internal/discovery"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/filter"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pace"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/query"
	"github.com/sells-group/leadscout/internal/seed"
	"github.com/sells-group/leadscout/internal/store"
	anthropicpkg "github.com/sells-group/leadscout/pkg/anthropic"
	"github.com/sells-group/leadscout/pkg/apify"
	"github.com/sells-group/leadscout/pkg/gemini"
	"github.com/sells-group/leadscout/pkg/jina"
	"github.com/sells-group/leadscout/pkg/notion"
	sfpkg "github.com/sells-group/leadscout/pkg/salesforce"
	"github.com/sells-group/leadscout/pkg/serpapi"
)

// pipelineEnv holds the initialized store, clients and collaborators
// needed by the run and serve commands.
type pipelineEnv struct {
	Store      store.Store
	Discovery  *discovery.Adapter
	Enricher   *enrich.Orchestrator
	Cascade    *filter.Cascade
	Scorer     *classify.Scorer
	RoundPacer *pace.Pacer
	Notion     notion.Client // nil when not configured
	Salesforce sfpkg.Client  // nil when not configured
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config, opens the store and builds every
// collaborator of the deep loop. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	env := &pipelineEnv{
		Store:      st,
		RoundPacer: pace.FromMillis("round", cfg.Pacing.RoundDelayMs),
	}

	searcher, err := initSearcher()
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Discovery = discovery.NewAdapter(searcher, pace.FromMillis("query", cfg.Pacing.QueryDelayMs), discovery.Options{
		Region:   cfg.Search.Region,
		Language: cfg.Search.Language,
		Count:    cfg.Search.ResultsPerQuery,
	})

	env.Enricher = initEnricher()

	tax, err := filter.LoadTaxonomy(cfg.Filter.TaxonomyPath)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load taxonomy")
	}
	env.Cascade = filter.NewCascade(tax, filter.ThresholdsFromConfig(cfg.Filter))

	oracle, name, err := initOracle(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	heuristic := classify.NewHeuristic(tax)
	if oracle == nil {
		zap.L().Warn("no classification oracle configured, using heuristic classifier only")
		env.Scorer = classify.NewScorer(classify.NewChain(heuristic, nil), nil, pace.None())
	} else {
		env.Scorer = classify.NewScorer(
			classify.NewChain(classify.NewOracleClassifier(oracle, name), heuristic),
			classify.NewSummarizer(oracle),
			pace.FromMillis("classify", cfg.Pacing.ClassifyDelayMs),
		)
	}

	if cfg.Notion.Token != "" {
		env.Notion = notion.NewClient(cfg.Notion.Token)
	}

	sf, err := initSalesforce()
	if err != nil {
		zap.L().Warn("salesforce init failed, salesforce sink disabled", zap.Error(err))
	}
	env.Salesforce = sf

	return env, nil
}

func initSearcher() (discovery.Searcher, error) {
	switch cfg.Search.Provider {
	case "serpapi":
		var opts []serpapi.Option
		if cfg.SerpAPI.BaseURL != "" {
			opts = append(opts, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
		}
		return discovery.SerpAPISearcher{Client: serpapi.NewClient(cfg.SerpAPI.Key, opts...)}, nil
	case "jina":
		var opts []jina.Option
		if cfg.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		return discovery.JinaSearcher{Client: jina.NewClient(cfg.Jina.Key, opts...)}, nil
	default:
		return nil, eris.Errorf("unsupported search provider: %s", cfg.Search.Provider)
	}
}

func initEnricher() *enrich.Orchestrator {
	if len(cfg.Apify.Keys) == 0 {
		zap.L().Warn("no apify keys configured, records fall back to search data")
	}

	opts := []apify.Option{}
	if cfg.Apify.BaseURL != "" {
		opts = append(opts, apify.WithBaseURL(cfg.Apify.BaseURL))
	}
	if cfg.Apify.TimeoutSecs > 0 {
		opts = append(opts, apify.WithRunTimeout(time.Duration(cfg.Apify.TimeoutSecs)*time.Second))
	}
	client := apify.NewClient(opts...)

	return enrich.NewOrchestrator(
		asProviders(apify.Providers(client, apify.ProfileActors())),
		asProviders(apify.Providers(client, apify.CompanyActors())),
		credential.NewRotator(cfg.Apify.Keys),
		&enrich.State{},
		pace.FromMillis("batch", cfg.Pacing.BatchDelayMs),
		enrich.Options{
			ProfileBatchSize: cfg.Enrich.ProfileBatchSize,
			CompanyBatchSize: cfg.Enrich.CompanyBatchSize,
			RateLimitBackoff: time.Duration(cfg.Enrich.RateLimitBackoffSecs) * time.Second,
		},
	)
}

func asProviders(ps []*apify.ActorProvider) []enrich.Provider {
	out := make([]enrich.Provider, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

// initOracle returns nil when the selected provider has no key.
func initOracle(ctx context.Context) (classify.Oracle, string, error) {
	switch cfg.Classify.Provider {
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, "", nil
		}
		c, err := gemini.New(ctx, gemini.Config{APIKey: cfg.Gemini.Key, Model: cfg.Gemini.Model})
		if err != nil {
			return nil, "", eris.Wrap(err, "init gemini")
		}
		return c, "gemini", nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, "", nil
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return anthropicpkg.NewOracle(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), "anthropic", nil
	default:
		return nil, "", eris.Errorf("unsupported classify provider: %s", cfg.Classify.Provider)
	}
}

// initSalesforce returns a nil client when Salesforce is not configured.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, nil
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	return sfpkg.Dial(sfpkg.Config{
		LoginURL:      cfg.Salesforce.LoginURL,
		Username:      cfg.Salesforce.Username,
		ClientID:      cfg.Salesforce.ClientID,
		PrivateKeyPEM: string(pemData),
	})
}

// acquireRequest describes one acquisition.
type acquireRequest struct {
	Subject string
	Target  int
	Prior   seed.Prior
}

// acquire runs the deep loop for an existing run record and persists its
// outcome. The run moves to running, then to complete or failed.
func (pe *pipelineEnv) acquire(ctx context.Context, run *model.Run, req acquireRequest) (pipeline.Report, error) {
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("subject", req.Subject))

	if err := pe.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		pe.fail(run.ID, err)
		return pipeline.Report{}, eris.Wrap(err, "mark run running")
	}

	stored, err := seed.FromStore(ctx, pe.Store)
	if err != nil {
		pe.fail(run.ID, err)
		return pipeline.Report{}, eris.Wrap(err, "load seen urls")
	}
	prior := stored.Merge(req.Prior)

	var names []string
	if cfg.Dedup.ByName {
		names = prior.Names
	}
	seen := pipeline.NewSeenSet(prior.URLs, names)

	// Each run starts with the full key pool; provider state carries over.
	var enricher pipeline.Enricher
	if pe.Enricher != nil {
		enricher = pe.Enricher.WithRotator(credential.NewRotator(cfg.Apify.Keys))
	}

	ctrl := pipeline.NewController(pipeline.Deps{
		Discovery:  pe.Discovery,
		Enricher:   enricher,
		Cascade:    pe.Cascade,
		Scorer:     pe.Scorer,
		Recorder:   &store.Recorder{Store: pe.Store, RunID: run.ID},
		RoundPacer: pe.RoundPacer,
	}, pipeline.Options{
		RunID:              run.ID,
		Subject:            req.Subject,
		Target:             req.Target,
		MaxRounds:          cfg.Pipeline.MaxRounds,
		MaxEmptyRounds:     cfg.Pipeline.MaxEmptyRounds,
		RoundCeiling:       cfg.Pipeline.RoundCeiling,
		MaxQueries:         cfg.Pipeline.MaxQueries,
		MaxScrapes:         cfg.Pipeline.MaxScrapes,
		MaxClassifications: cfg.Pipeline.MaxClassifications,
		DedupByName:        cfg.Dedup.ByName,
	})

	rep := ctrl.Run(ctx, seen)

	if rep.Stop == pipeline.StopCanceled && len(rep.Leads) == 0 {
		pe.fail(run.ID, ctx.Err())
		return rep, eris.Wrap(ctx.Err(), "acquisition canceled")
	}

	// Persist with a fresh context so a canceled run still records its result.
	if err := pe.Store.CompleteRun(context.WithoutCancel(ctx), run.ID, rep.Summary()); err != nil {
		return rep, eris.Wrap(err, "complete run")
	}
	log.Info("acquisition complete",
		zap.String("stop", string(rep.Stop)),
		zap.Int("leads", len(rep.Leads)),
	)
	return rep, nil
}

func (pe *pipelineEnv) fail(runID string, cause error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if err := pe.Store.FailRun(context.Background(), runID, msg); err != nil {
		zap.L().Error("failed to record run failure", zap.String("run_id", runID), zap.Error(err))
	}
}

// resolveSubject returns the subject named by a preset, or the literal
// subject when no preset is given.
func resolveSubject(subject, preset string) (string, error) {
	if preset != "" {
		s, ok := query.Preset(preset)
		if !ok {
			return "", eris.Errorf("unknown preset %q", preset)
		}
		return s, nil
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", eris.New("a --subject or --preset is required")
	}
	return subject, nil
}
