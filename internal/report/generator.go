// Package report renders analysis reports for export to audit tooling.
package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"

	"fjacquet/stmt-forensics/internal/batch"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
)

// Finding is one validation issue or anomaly in the exported report.
type Finding struct {
	Kind     string `xml:"kind,attr" json:"kind"`
	Field    string `xml:"field,attr,omitempty" json:"field,omitempty"`
	Check    string `xml:"check,attr,omitempty" json:"check,omitempty"`
	Severity string `xml:"severity,attr" json:"severity"`
	Row      int    `xml:"row,attr,omitempty" json:"row,omitempty"`
	Message  string `xml:",chardata" json:"message"`
}

// ForensicReport is the flattened export of a batch.Report. Amounts are
// rendered as strings so both encodings carry the exact decimal values.
type ForensicReport struct {
	XMLName          xml.Name  `xml:"ForensicReport" json:"-"`
	DocumentID       string    `xml:"DocumentId" json:"document_id"`
	Filename         string    `xml:"Filename,omitempty" json:"filename,omitempty"`
	DocType          string    `xml:"DocType" json:"doc_type"`
	AccountNumber    string    `xml:"AccountNumber,omitempty" json:"account_number,omitempty"`
	Currency         string    `xml:"Currency,omitempty" json:"currency,omitempty"`
	OpeningBalance   string    `xml:"OpeningBalance,omitempty" json:"opening_balance,omitempty"`
	ClosingBalance   string    `xml:"ClosingBalance,omitempty" json:"closing_balance,omitempty"`
	TransactionCount int       `xml:"TransactionCount" json:"transaction_count"`
	Status           string    `xml:"Status" json:"status"`
	Confidence       float64   `xml:"Confidence" json:"confidence"`
	ReviewReasons    []string  `xml:"ReviewReasons>Reason" json:"review_reasons"`
	Consistent       bool      `xml:"Consistent" json:"consistent"`
	Findings         []Finding `xml:"Findings>Finding" json:"findings"`
	RepairLog        []string  `xml:"RepairLog>Entry,omitempty" json:"repair_log,omitempty"`
}

// Generator renders reports in JSON or XML.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a Generator. A nil logger selects the default logger.
func NewGenerator(logger logging.Logger) *Generator {
	return &Generator{logger: logging.OrDefault(logger)}
}

// Generate renders r in the given format (json or xml).
func (g *Generator) Generate(r *batch.Report, format string) ([]byte, error) {
	switch format {
	case "json":
		return g.generateJSON(Flatten(r))
	case "xml":
		return g.generateXML(Flatten(r))
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) generateJSON(fr *ForensicReport) ([]byte, error) {
	out, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return out, nil
}

func (g *Generator) generateXML(fr *ForensicReport) ([]byte, error) {
	out, err := xml.MarshalIndent(fr, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal XML report")
		return nil, fmt.Errorf("failed to marshal XML report: %w", err)
	}
	return []byte(xml.Header + string(out)), nil
}

// Flatten converts a report into its export form. Findings list errors,
// then warnings, then consistency issues, then anomalies.
func Flatten(r *batch.Report) *ForensicReport {
	fr := &ForensicReport{
		DocumentID:       r.DocumentID,
		Filename:         r.Filename,
		DocType:          string(r.DocType),
		AccountNumber:    r.Fields.AccountNumber,
		Currency:         r.Fields.Currency,
		OpeningBalance:   formatAmount(r.Fields.OpeningBalance.Valid, r.Fields.OpeningBalance.Decimal.String()),
		ClosingBalance:   formatAmount(r.Fields.ClosingBalance.Valid, r.Fields.ClosingBalance.Decimal.String()),
		TransactionCount: len(r.Fields.Transactions),
		Status:           r.Outcome.Status,
		Confidence:       r.Outcome.Confidence,
		ReviewReasons:    append([]string{}, r.Outcome.ReviewReasons...),
		Consistent:       r.Validation.Consistency.Consistent,
		Findings:         []Finding{},
	}
	addIssues := func(kind string, issues []models.Issue) {
		for _, is := range issues {
			fr.Findings = append(fr.Findings, Finding{
				Kind: kind, Field: is.Field, Check: is.Check,
				Severity: string(is.Severity), Message: is.Message,
			})
		}
	}
	addIssues("error", r.Validation.Errors)
	addIssues("warning", r.Validation.Warnings)
	addIssues("inconsistency", r.Validation.Consistency.Issues)
	for _, a := range r.Anomalies {
		fr.Findings = append(fr.Findings, Finding{
			Kind: "anomaly", Check: string(a.Type), Severity: string(a.Severity),
			Row: a.RowIndex, Message: a.Description,
		})
	}
	if r.Statement != nil {
		fr.RepairLog = r.Statement.RepairLog
	}
	return fr
}

func formatAmount(valid bool, s string) string {
	if !valid {
		return ""
	}
	return s
}
