// Package rules implements the command that prints the effective rule set.
package rules

import (
	"io"

	"fjacquet/stmt-forensics/cmd/common"
	"fjacquet/stmt-forensics/cmd/root"
	"fjacquet/stmt-forensics/internal/container"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/spf13/cobra"
)

var format string

// Cmd represents the rules command
var Cmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective validation rules and scoring policy",
	Long: `Print the effective validation rules and scoring policy after defaults,
config file and environment overrides have been applied, including the
resolved currency profiles.

Example:
  stmt-forensics rules
  stmt-forensics rules --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		return common.WithOutput(root.SharedFlags.Output, cmd.OutOrStdout(), func(w io.Writer) error {
			return Run(c, format, w)
		})
	},
}

func init() {
	Cmd.Flags().StringVarP(&format, "format", "f", common.FormatYAML, "Output format (yaml, json)")
}

// Run writes the container's effective rules to w.
func Run(c *container.Container, format string, w io.Writer) error {
	if err := validation.IsValidOutputFormat(format, common.FormatYAML, common.FormatJSON); err != nil {
		return err
	}
	return common.WriteDocument(w, format, c.EffectiveRules())
}
