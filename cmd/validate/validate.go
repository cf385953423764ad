// Package validate implements the forensic validation command.
package validate

import (
	"context"
	"fmt"
	"io"
	"os"

	"fjacquet/stmt-forensics/cmd/common"
	"fjacquet/stmt-forensics/cmd/root"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/spf13/cobra"
)

// Options holds the validate command flags.
type Options struct {
	FieldsFile string
	DocType    string
	Format     string
	Strict     bool
}

var opts = Options{}

// Cmd represents the validate command
var Cmd = &cobra.Command{
	Use:   "validate",
	Short: "Run forensic validations over extracted document fields",
	Long: `Run forensic validations over the extracted fields of a document (JSON).
Bank statements are checked for balance integrity, statistical anomalies and
continuity with the previous statement of the same account in the history store.
Invoices and payslips get their arithmetic checks.

Example:
  stmt-forensics validate -i march.fields.json --type bank_statement
  stmt-forensics validate -i invoice.json --type invoice --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.FieldsFile == "" {
			opts.FieldsFile = root.SharedFlags.Input
		}
		c := root.GetContainer()
		return common.WithOutput(root.SharedFlags.Output, cmd.OutOrStdout(), func(w io.Writer) error {
			return Run(cmd.Context(), c.GetEngine(), c.GetRepository(), opts, w, c.GetLogger())
		})
	},
}

func init() {
	Cmd.Flags().StringVar(&opts.FieldsFile, "fields", "", "Extracted fields JSON file (defaults to --input)")
	Cmd.Flags().StringVarP(&opts.DocType, "type", "t", string(models.DocBankStatement), "Document type (bank_statement, invoice, payslip)")
	Cmd.Flags().StringVarP(&opts.Format, "format", "f", common.FormatJSON, "Output format (json, yaml)")
	Cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with an error when validation errors are found")
}

// Run validates the fields file and writes the result to w.
func Run(ctx context.Context, engine *validation.Engine, lookup validation.PriorStatementLookup, o Options, w io.Writer, log logging.Logger) error {
	log = logging.OrDefault(log)
	if o.FieldsFile == "" {
		return fmt.Errorf("fields file is required (--fields or --input)")
	}
	if err := validation.IsValidOutputFormat(o.Format, common.FormatJSON, common.FormatYAML); err != nil {
		return err
	}
	raw, err := os.ReadFile(o.FieldsFile) // #nosec G304 -- path comes from the operator
	if err != nil {
		return fmt.Errorf("error reading fields file %s: %w", o.FieldsFile, err)
	}
	fields, err := models.DecodeExtractedFields(raw)
	if err != nil {
		return fmt.Errorf("invalid fields file %s: %w", o.FieldsFile, err)
	}

	docType := models.ParseDocumentType(o.DocType)
	result := engine.RunValidations(ctx, docType, fields, lookup)
	log.Info("Validation finished",
		logging.Field{Key: logging.FieldFile, Value: o.FieldsFile},
		logging.Field{Key: logging.FieldDocType, Value: string(docType)},
		logging.Field{Key: "errors", Value: len(result.Errors)},
		logging.Field{Key: "warnings", Value: len(result.Warnings)})

	if err := common.WriteDocument(w, o.Format, result); err != nil {
		return err
	}
	if o.Strict && len(result.Errors) > 0 {
		return fmt.Errorf("validation failed with %d error(s)", len(result.Errors))
	}
	return nil
}
