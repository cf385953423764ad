// Package analyze implements the full document analysis command.
package analyze

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/stmt-forensics/cmd/common"
	"fjacquet/stmt-forensics/cmd/root"
	"fjacquet/stmt-forensics/internal/batch"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/report"
	"fjacquet/stmt-forensics/internal/store"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/spf13/cobra"
)

// FormatXML exports the flattened forensic report as XML.
const FormatXML = "xml"

// Options holds the analyze command flags.
type Options struct {
	Input      string
	FieldsFile string
	DocType    string
	Confidence float64
	Persist    bool
	Format     string
}

var opts = Options{}

// Cmd represents the analyze command
var Cmd = &cobra.Command{
	Use:   "analyze",
	Short: "Repair, validate and score a document",
	Long: `Repair, validate and score a document.
A statement spreadsheet is normalized first and merged with its extracted
fields (the <name>.fields.json sidecar or --fields). A JSON input is
treated as extracted fields only. The report carries the confidence score
and whether the document was processed or sent to review.

Example:
  stmt-forensics analyze -i march.xlsx --persist
  stmt-forensics analyze -i payslip.json --type payslip --confidence 0.92`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts.Input = root.SharedFlags.Input
		c := root.GetContainer()
		return common.WithOutput(root.SharedFlags.Output, cmd.OutOrStdout(), func(w io.Writer) error {
			_, err := Run(cmd.Context(), c.GetAnalyzer(), c.GetRepository(), opts, w, c.GetLogger())
			return err
		})
	},
}

func init() {
	Cmd.Flags().StringVar(&opts.FieldsFile, "fields", "", "Extracted fields JSON (defaults to the sidecar next to the input)")
	Cmd.Flags().StringVarP(&opts.DocType, "type", "t", "", "Document type (bank_statement, invoice, payslip)")
	Cmd.Flags().Float64Var(&opts.Confidence, "confidence", 0, "Extraction confidence in [0,1] (0 uses the scoring default)")
	Cmd.Flags().BoolVar(&opts.Persist, "persist", false, "Save the statement to the history store")
	Cmd.Flags().StringVarP(&opts.Format, "format", "f", common.FormatJSON, "Output format (json, yaml, xml)")
}

// Run analyzes the input and writes the report to w.
func Run(ctx context.Context, analyzer *batch.Analyzer, repo store.Repository, o Options, w io.Writer, log logging.Logger) (*batch.Report, error) {
	log = logging.OrDefault(log)
	if o.Input == "" {
		return nil, fmt.Errorf("input file is required (--input)")
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return nil, fmt.Errorf("confidence must be in [0,1], got %v", o.Confidence)
	}
	if err := validation.IsValidOutputFormat(o.Format, common.FormatJSON, common.FormatYAML, FormatXML); err != nil {
		return nil, err
	}

	doc, err := loadDocument(o)
	if err != nil {
		return nil, err
	}

	prepared := analyzer.Prepare(ctx, doc)
	rep := analyzer.Evaluate(ctx, prepared, store.Excluding(repo, prepared.DocumentID))

	if o.Persist {
		if err := repo.Save(ctx, rep.Record()); err != nil {
			return nil, fmt.Errorf("error saving history: %w", err)
		}
		log.Info("Statement saved to history",
			logging.Field{Key: logging.FieldDocumentID, Value: rep.DocumentID},
			logging.Field{Key: logging.FieldAccount, Value: rep.Fields.AccountNumber})
	}

	if o.Format == FormatXML {
		out, err := report.NewGenerator(log).Generate(rep, FormatXML)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(out); err != nil {
			return nil, err
		}
		return rep, nil
	}
	if err := common.WriteDocument(w, o.Format, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func loadDocument(o Options) (batch.Document, error) {
	var doc batch.Document
	if strings.EqualFold(filepath.Ext(o.Input), ".json") {
		fields, err := readFields(o.Input)
		if err != nil {
			return doc, err
		}
		doc = batch.Document{Filename: filepath.Base(o.Input), Extracted: &fields}
	} else {
		if !validation.IsStatementFile(o.Input) {
			return doc, fmt.Errorf("unsupported statement file: %s", o.Input)
		}
		loaded, err := batch.LoadDocument(o.Input)
		if err != nil {
			return doc, err
		}
		doc = loaded
		if o.FieldsFile != "" {
			fields, err := readFields(o.FieldsFile)
			if err != nil {
				return doc, err
			}
			doc.Extracted = &fields
		}
	}
	if o.DocType != "" {
		doc.DocType = models.ParseDocumentType(o.DocType)
	}
	doc.BaseConfidence = o.Confidence
	return doc, nil
}

func readFields(path string) (models.ExtractedFields, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return models.ExtractedFields{}, fmt.Errorf("error reading fields file %s: %w", path, err)
	}
	fields, err := models.DecodeExtractedFields(raw)
	if err != nil {
		return models.ExtractedFields{}, fmt.Errorf("invalid fields file %s: %w", path, err)
	}
	return fields, nil
}
