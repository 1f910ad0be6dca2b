package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/query"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Print the search queries a run would issue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		preset, _ := cmd.Flags().GetString("preset")
		rounds, _ := cmd.Flags().GetInt("rounds")
		asJSON, _ := cmd.Flags().GetBool("json")

		subject, err := resolveSubject(subject, preset)
		if err != nil {
			return err
		}
		if rounds <= 0 {
			rounds = cfg.Pipeline.MaxRounds
		}

		batches := planRounds(subject, rounds)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(batches)
		}
		formatPlan(cmd.OutOrStdout(), batches)
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List subject presets",
	Run: func(cmd *cobra.Command, _ []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "PRESET\tSUBJECT")
		for _, name := range query.Presets() {
			subject, _ := query.Preset(name)
			_, _ = fmt.Fprintf(w, "%s\t%s\n", name, subject)
		}
		_ = w.Flush()
	},
}

// formatPlan writes one block per round: header line, then its queries.
func formatPlan(out io.Writer, batches []query.Batch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROUND\tKIND\tOFFSET\tQUERIES")
	_, _ = fmt.Fprintln(w, "-----\t----\t------\t-------")
	for _, b := range batches {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", b.Round+1, b.Kind, b.Offset, len(b.Queries))
	}
	_ = w.Flush()

	for _, b := range batches {
		_, _ = fmt.Fprintf(out, "\n# round %d (%s)\n%s\n", b.Round+1, b.Kind, strings.Join(b.Queries, "\n"))
	}
}

func init() {
	queriesCmd.Flags().String("subject", "", "subject to plan queries for")
	queriesCmd.Flags().String("preset", "", "named subject preset")
	queriesCmd.Flags().Int("rounds", 0, "number of rounds to plan (default pipeline.max_rounds)")
	queriesCmd.Flags().Bool("json", false, "print batches as JSON")

	rootCmd.AddCommand(queriesCmd)
	rootCmd.AddCommand(presetsCmd)
}
