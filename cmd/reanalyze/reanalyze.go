// Package reanalyze implements the directory re-analysis command.
package reanalyze

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"fjacquet/stmt-forensics/cmd/common"
	"fjacquet/stmt-forensics/cmd/root"
	"fjacquet/stmt-forensics/internal/batch"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/spf13/cobra"
)

// FormatTable prints one line per document.
const FormatTable = "table"

var format string

// Cmd represents the reanalyze command
var Cmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run the analysis of every statement in a directory",
	Long: `Re-run the analysis of every statement in a directory.
Earlier results for the statements in the directory are replaced: they
are normalized in parallel, then validated per account in period order so
that each one is checked against its true predecessor. Statements persisted
from elsewhere stay in the history and can precede the directory's first one.

Example:
  stmt-forensics reanalyze -i statements/
  stmt-forensics reanalyze -i statements/ --format json -o summary.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		return common.WithOutput(root.SharedFlags.Output, cmd.OutOrStdout(), func(w io.Writer) error {
			_, err := Run(cmd.Context(), c.GetRunner(), root.SharedFlags.Input, format, w)
			return err
		})
	},
}

func init() {
	Cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "Output format (table, json, yaml)")
}

// Run re-analyzes dir and writes the summary to w.
func Run(ctx context.Context, runner *batch.Runner, dir, format string, w io.Writer) (*batch.Summary, error) {
	if dir == "" {
		return nil, fmt.Errorf("input directory is required (--input)")
	}
	if err := validation.IsValidOutputFormat(format, FormatTable, common.FormatJSON, common.FormatYAML); err != nil {
		return nil, err
	}
	summary, err := runner.Reanalyze(ctx, dir)
	if err != nil {
		return nil, err
	}
	if format != FormatTable {
		return summary, common.WriteDocument(w, format, summary)
	}
	return summary, writeTable(w, summary)
}

func writeTable(w io.Writer, s *batch.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tACCOUNT\tSTATUS\tCONFIDENCE\tANOMALIES")
	for _, r := range s.Results {
		if r.Report == nil {
			fmt.Fprintf(tw, "%s\t-\tfailed\t-\t%s\n", r.Path, r.Error)
			continue
		}
		status := r.Report.Outcome.Status
		if r.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\n", r.Path, orDash(r.Report.Fields.AccountNumber),
			status, r.Report.Outcome.Confidence, len(r.Report.Anomalies))
	}
	fmt.Fprintf(tw, "\nprocessed: %d, review: %d, failed: %d\n", s.Processed, s.Review, s.Failed)
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
