// Package normalize implements the statement repair command.
package normalize

import (
	"fmt"

	"fjacquet/stmt-forensics/cmd/common"
	"fjacquet/stmt-forensics/cmd/root"

	"github.com/spf13/cobra"
)

var format string

// Cmd represents the normalize command
var Cmd = &cobra.Command{
	Use:   "normalize",
	Short: "Repair a bank statement spreadsheet into a clean ledger",
	Long: `Repair a bank statement spreadsheet (xlsx, xls or csv) into a clean ledger.
The header row, amount columns and balances are located automatically,
garbage rows are dropped and metadata tampering is reported.

Example:
  stmt-forensics normalize -i march.xlsx
  stmt-forensics normalize -i march.xlsx -o march.csv --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if root.SharedFlags.Input == "" {
			return fmt.Errorf("input file is required (--input)")
		}
		c := root.GetContainer()
		delimiter := []rune(c.GetConfig().CSV.Delimiter)[0]
		_, err := common.ProcessFile(cmd.Context(), c.GetNormalizer(), root.SharedFlags.Input,
			root.SharedFlags.Output, format, delimiter, cmd.OutOrStdout(), c.GetLogger())
		return err
	},
}

func init() {
	Cmd.Flags().StringVarP(&format, "format", "f", common.FormatJSON, "Output format (json, csv)")
}
