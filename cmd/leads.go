package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/sink"
	"github.com/sells-group/leadscout/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List stored leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runID, _ := cmd.Flags().GetString("run")
		tierFlag, _ := cmd.Flags().GetString("tier")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		tier, err := parseTier(tierFlag)
		if err != nil {
			return err
		}

		st, err := openReadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, store.LeadFilter{RunID: runID, Tier: tier, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "leads")
		}

		if asJSON {
			return sink.NewJSONSink(cmd.OutOrStdout()).Deliver(ctx, leads)
		}
		if len(leads) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No leads found.")
			return nil
		}
		formatLeadsList(cmd.OutOrStdout(), leads)
		return nil
	},
}

func openReadStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("read"); err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), cfg.Store)
}

func parseTier(s string) (model.Tier, error) {
	t := model.Tier(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case "", model.TierA, model.TierB, model.TierC, model.TierD:
		return t, nil
	}
	return "", eris.Errorf("invalid tier %q (want A, B, C or D)", s)
}

// formatLeadsList writes a tabular list of leads to w.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIER\tNAME\tPERSONA\tORGANIZATION\tCONTACT\tURL")
	_, _ = fmt.Fprintln(w, "----\t----\t-------\t------------\t-------\t---")
	for _, l := range leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Tier,
			truncate(l.Name, 30),
			l.Classification.Persona,
			truncate(l.DisplayOrganization(), 30),
			l.ContactConfidence,
			l.URL,
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	leadsCmd.Flags().String("run", "", "only leads from this run ID")
	leadsCmd.Flags().String("tier", "", "only leads in this tier (A, B, C, D)")
	leadsCmd.Flags().Int("limit", 100, "max number of leads to display")
	leadsCmd.Flags().Bool("json", false, "print leads as JSON")
	rootCmd.AddCommand(leadsCmd)
}
