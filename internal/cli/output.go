package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func outputJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, r ReplayResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Standings at %s (epoch %s)\n", r.At.Format(time.RFC3339), r.Epoch.Format(time.RFC3339))
	fmt.Fprintf(out, "players=%d matches=%d applied=%d failed=%d duplicates=%d periods_closed=%d\n",
		r.Players, r.Matches, r.Applied, r.Failed, r.Duplicates, r.PeriodsClosed)
	if r.Agreement != nil {
		fmt.Fprintf(out, "agreement with hidden strengths: %.3f\n", *r.Agreement)
	}
	fmt.Fprintln(out)

	if len(r.Standings) == 0 {
		fmt.Fprintln(out, "No players.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tRATING\tRD\tVOLATILITY\t95%\tPENDING")
	for _, s := range r.Standings {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.5f\t%.0f-%.0f\t%d\n",
			s.Rank, s.Name, s.Rating, s.Deviation, s.Volatility, s.Low, s.High, s.Pending)
	}
	return tw.Flush()
}
