package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/query"
	"github.com/sells-group/leadscout/internal/seed"
	"github.com/sells-group/leadscout/internal/sink"
	"github.com/sells-group/leadscout/pkg/notion"
	sfpkg "github.com/sells-group/leadscout/pkg/salesforce"
)

var (
	runSubject     string
	runPreset      string
	runTarget      int
	runPrior       []string
	runPriorNotion bool
	runOut         string
	runSinks       []string
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire leads for a subject",
	Long:  "Runs the deep acquisition loop for one subject until the target lead count or a budget is reached, then writes the leads as JSON and delivers them to any configured sinks.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		subject, err := resolveSubject(runSubject, runPreset)
		if err != nil {
			return err
		}
		target := runTarget
		if target <= 0 {
			target = cfg.Pipeline.Target
		}

		if runDryRun {
			formatBudgets(cmd.OutOrStdout(), subject, target, cfg.Pipeline)
			formatPlan(cmd.OutOrStdout(), planRounds(subject, cfg.Pipeline.MaxRounds))
			return nil
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		sinks, err := buildSinks(runSinks, env.Notion, cfg.Notion.LeadDB, env.Salesforce)
		if err != nil {
			return err
		}

		prior, err := loadPrior(ctx, runPrior, runPriorNotion, env.Notion)
		if err != nil {
			return err
		}

		run, err := env.Store.CreateRun(ctx, subject, target)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		rep, err := env.acquire(ctx, run, acquireRequest{Subject: subject, Target: target, Prior: prior})
		if err != nil {
			return err
		}
		for _, line := range rep.Status {
			zap.L().Debug(line, zap.String("run_id", run.ID))
		}

		out, closeOut, err := openOutput(runOut)
		if err != nil {
			return err
		}
		defer closeOut()

		sinks = append([]sink.Sink{sink.NewJSONSink(out)}, sinks...)
		if err := sink.DeliverAll(context.WithoutCancel(ctx), sinks, rep.Leads); err != nil {
			return eris.Wrap(err, "deliver leads")
		}

		formatReport(cmd.ErrOrStderr(), run.ID, rep)
		return nil
	},
}

// buildSinks maps sink names to configured sinks. The JSON sink is always
// added by the caller.
func buildSinks(names []string, nc notion.Client, leadDB string, sf sfpkg.Client) ([]sink.Sink, error) {
	var out []sink.Sink
	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "notion":
			if nc == nil || leadDB == "" {
				return nil, eris.New("notion sink requires notion.token and notion.lead_db")
			}
			out = append(out, sink.NewNotionSink(nc, leadDB))
		case "salesforce":
			if sf == nil {
				return nil, eris.New("salesforce sink requires salesforce credentials")
			}
			out = append(out, sink.NewSalesforceSink(sf))
		default:
			return nil, eris.Errorf("unknown sink %q (want notion or salesforce)", raw)
		}
	}
	return out, nil
}

// loadPrior merges prior-outreach files and, optionally, the configured
// Notion database into one seed.
func loadPrior(ctx context.Context, paths []string, fromNotion bool, nc notion.Client) (seed.Prior, error) {
	var prior seed.Prior
	for _, p := range paths {
		loaded, err := seed.LoadFile(p)
		if err != nil {
			return seed.Prior{}, eris.Wrapf(err, "load prior %s", p)
		}
		prior = prior.Merge(loaded)
	}

	if fromNotion {
		if nc == nil || cfg.Notion.PriorDB == "" {
			return seed.Prior{}, eris.New("--prior-notion requires notion.token and notion.prior_db")
		}
		loaded, err := seed.LoadNotion(ctx, nc, cfg.Notion.PriorDB)
		if err != nil {
			return seed.Prior{}, err
		}
		prior = prior.Merge(loaded)
	}

	zap.L().Info("prior outreach loaded",
		zap.Int("urls", len(prior.URLs)),
		zap.Int("names", len(prior.Names)),
	)
	return prior, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func planRounds(subject string, rounds int) []query.Batch {
	batches := make([]query.Batch, 0, rounds)
	for i := 0; i < rounds; i++ {
		batches = append(batches, query.Generate(subject, i))
	}
	return batches
}

// formatBudgets writes the limits a run would use.
func formatBudgets(out io.Writer, subject string, target int, p config.PipelineConfig) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Subject:\t%s\n", subject)
	_, _ = fmt.Fprintf(w, "Target:\t%d\n", target)
	_, _ = fmt.Fprintf(w, "Max rounds:\t%d\n", p.MaxRounds)
	_, _ = fmt.Fprintf(w, "Max empty rounds:\t%d\n", p.MaxEmptyRounds)
	_, _ = fmt.Fprintf(w, "Max queries:\t%s\n", budget(p.MaxQueries))
	_, _ = fmt.Fprintf(w, "Max scrapes:\t%s\n", budget(p.MaxScrapes))
	_, _ = fmt.Fprintf(w, "Max classifications:\t%s\n", budget(p.MaxClassifications))
	_ = w.Flush()
}

func budget(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

// formatReport writes the end-of-run summary to w.
func formatReport(out io.Writer, runID string, rep pipeline.Report) {
	s := rep.Summary()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", runID)
	_, _ = fmt.Fprintf(w, "Stop reason:\t%s\n", s.StopReason)
	_, _ = fmt.Fprintf(w, "Leads:\t%d\n", s.Leads)
	for _, t := range []model.Tier{model.TierA, model.TierB, model.TierC, model.TierD} {
		if n := s.Tiers[t]; n > 0 {
			_, _ = fmt.Fprintf(w, "  Tier %s:\t%d\n", t, n)
		}
	}
	_, _ = fmt.Fprintf(w, "Rounds:\t%d\n", s.Rounds)
	_, _ = fmt.Fprintf(w, "Queries:\t%d\n", s.Queries)
	_, _ = fmt.Fprintf(w, "Scrapes:\t%d\n", s.Scrapes)
	_, _ = fmt.Fprintf(w, "Classifications:\t%d\n", s.Classifications)
	_ = w.Flush()
}

func init() {
	runCmd.Flags().StringVar(&runSubject, "subject", "", "subject to search for (e.g. \"Physics Teacher\")")
	runCmd.Flags().StringVar(&runPreset, "preset", "", "named subject preset ("+strings.Join(query.Presets(), ", ")+")")
	runCmd.Flags().IntVar(&runTarget, "target", 0, "number of leads to acquire (default from config)")
	runCmd.Flags().StringSliceVar(&runPrior, "prior", nil, "prior-outreach CSV or XLSX file (repeatable)")
	runCmd.Flags().BoolVar(&runPriorNotion, "prior-notion", false, "exclude profiles listed in the Notion prior-outreach database")
	runCmd.Flags().StringVar(&runOut, "out", "", "write leads JSON to this file instead of stdout")
	runCmd.Flags().StringSliceVar(&runSinks, "sink", nil, "additional lead sink: notion, salesforce (repeatable)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the query plan and budgets without running")
	rootCmd.AddCommand(runCmd)
}
