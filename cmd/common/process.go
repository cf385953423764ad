// Package common contains shared functionality for command handlers
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/parser"
	"fjacquet/stmt-forensics/internal/validation"

	"gopkg.in/yaml.v3"
)

// Output formats understood by the commands.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// StatementProcessor normalizes statements and writes their ledger CSV.
type StatementProcessor interface {
	parser.StatementParser
	WriteLedger(w io.Writer, stmt *models.NormalizedStatement, delimiter rune) error
}

// ProcessFile normalizes inputFile and writes the statement to outputFile,
// or to stdout when outputFile is empty. format is json or csv; csv writes
// only the repaired ledger.
func ProcessFile(ctx context.Context, p StatementProcessor, inputFile, outputFile, format string, delimiter rune, stdout io.Writer, log logging.Logger) (*models.NormalizedStatement, error) {
	log = logging.OrDefault(log)
	if err := validation.IsValidOutputFormat(format, FormatJSON, FormatCSV); err != nil {
		return nil, err
	}
	if err := validation.IsValidPath(inputFile); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(inputFile) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", inputFile, err)
	}

	stmt := p.Normalize(ctx, data, filepath.Base(inputFile))
	log.Info("Statement normalized",
		logging.Field{Key: logging.FieldFile, Value: inputFile},
		logging.Field{Key: logging.FieldCount, Value: len(stmt.Transactions)},
		logging.Field{Key: "anomalies", Value: len(stmt.DetectedAnomalies)})

	err = WithOutput(outputFile, stdout, func(w io.Writer) error {
		if format == FormatCSV {
			return p.WriteLedger(w, stmt, delimiter)
		}
		return WriteDocument(w, FormatJSON, stmt)
	})
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// WithOutput calls fn with stdout when path is empty, otherwise with a newly
// created file at path.
func WithOutput(path string, stdout io.Writer, fn func(io.Writer) error) (err error) {
	if path == "" {
		return fn(stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, models.PermissionReportFile) // #nosec G304 G302
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

// WriteDocument encodes v as indented JSON or as YAML. YAML output follows
// the JSON field names and order so both formats describe the same document.
func WriteDocument(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return err
		}
		blockStyle(&node)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err = w.Write(buf.Bytes())
		return err
	}
	return validation.IsValidOutputFormat(format, FormatJSON, FormatYAML)
}

// blockStyle drops the flow and quoting styles that decoding JSON leaves on
// the nodes. The encoder still quotes strings that would otherwise read as
// another type.
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
