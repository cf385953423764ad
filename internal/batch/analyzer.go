package batch

import (
	"context"
	"time"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/parser"
	"fjacquet/stmt-forensics/internal/scoring"
	"fjacquet/stmt-forensics/internal/store"
	"fjacquet/stmt-forensics/internal/validation"
)

// Document is one unit of work. Data holds spreadsheet bytes and may be empty
// when only extracted fields are available; Extracted may be nil.
type Document struct {
	ID             string
	Filename       string
	DocType        models.DocumentType
	Data           []byte
	Extracted      *models.ExtractedFields
	BaseConfidence float64
}

// Report is the full analysis of a document.
type Report struct {
	DocumentID string                      `json:"document_id"`
	Filename   string                      `json:"filename,omitempty"`
	DocType    models.DocumentType         `json:"doc_type"`
	Fields     models.ExtractedFields      `json:"fields"`
	Statement  *models.NormalizedStatement `json:"statement,omitempty"`
	Validation models.ValidationResult     `json:"validation"`
	Anomalies  []models.Anomaly            `json:"anomalies"`
	Outcome    scoring.Outcome             `json:"outcome"`
}

// Record converts the report into a history row.
func (r *Report) Record() store.StatementRecord {
	return store.StatementRecord{
		DocumentID:       r.DocumentID,
		Filename:         r.Filename,
		AccountNumber:    r.Fields.AccountNumber,
		Currency:         r.Fields.Currency,
		PeriodFrom:       r.Fields.PeriodFrom,
		PeriodTo:         r.Fields.PeriodTo,
		OpeningBalance:   r.Fields.OpeningBalance,
		ClosingBalance:   r.Fields.ClosingBalance,
		TransactionCount: len(r.Fields.Transactions),
		AnomalyCount:     len(r.Anomalies),
		Status:           r.Outcome.Status,
		Confidence:       r.Outcome.Confidence,
	}
}

// Analyzer runs normalize, merge, validate and score for single documents.
type Analyzer struct {
	normalizer parser.StatementParser
	engine     *validation.Engine
	policy     scoring.Policy
	logger     logging.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(normalizer parser.StatementParser, engine *validation.Engine, policy scoring.Policy, logger logging.Logger) *Analyzer {
	return &Analyzer{
		normalizer: normalizer,
		engine:     engine,
		policy:     policy,
		logger:     logging.OrDefault(logger),
	}
}

// Analyze runs the whole pipeline for doc. lookup may be nil.
func (a *Analyzer) Analyze(ctx context.Context, doc Document, lookup validation.PriorStatementLookup) *Report {
	return a.Evaluate(ctx, a.Prepare(ctx, doc), lookup)
}

// Prepare normalizes the spreadsheet, if any, and merges it with the
// extracted fields. Documents with spreadsheet bytes and no declared type are
// treated as bank statements.
func (a *Analyzer) Prepare(ctx context.Context, doc Document) *Report {
	if doc.ID == "" {
		if len(doc.Data) > 0 {
			doc.ID = store.DocumentID(doc.Data)
		} else {
			doc.ID = store.NewDocumentID()
		}
	}
	docType := doc.DocType
	if docType == "" || docType == models.DocUnknown {
		if len(doc.Data) > 0 {
			docType = models.DocBankStatement
		} else {
			docType = models.DocUnknown
		}
	}

	var extracted models.ExtractedFields
	if doc.Extracted != nil {
		extracted = *doc.Extracted
	}

	report := &Report{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		DocType:    docType,
		Fields:     extracted,
		Anomalies:  []models.Anomaly{},
		Outcome:    scoring.Outcome{Confidence: doc.BaseConfidence},
	}
	if docType == models.DocBankStatement && len(doc.Data) > 0 {
		report.Statement = a.normalizer.Normalize(ctx, doc.Data, doc.Filename)
		report.Fields = MergeFields(extracted, report.Statement)
	}
	return report
}

// Evaluate validates and scores a prepared report in place and returns it.
func (a *Analyzer) Evaluate(ctx context.Context, report *Report, lookup validation.PriorStatementLookup) *Report {
	start := time.Now()
	report.Validation = a.engine.RunValidations(ctx, report.DocType, report.Fields, lookup)

	var normalizerAnomalies []models.Anomaly
	if report.Statement != nil {
		normalizerAnomalies = report.Statement.DetectedAnomalies
	}
	report.Anomalies = append(append([]models.Anomaly{}, normalizerAnomalies...), report.Validation.Anomalies()...)

	report.Outcome = a.policy.Score(scoring.Input{
		BaseConfidence:      report.Outcome.Confidence,
		Result:              report.Validation,
		NormalizerAnomalies: normalizerAnomalies,
		MetadataFraud:       report.Fields.MetadataDiscrepancy != nil,
	})

	a.logger.Info("Document analyzed",
		logging.Field{Key: logging.FieldDocumentID, Value: report.DocumentID},
		logging.Field{Key: logging.FieldDocType, Value: string(report.DocType)},
		logging.Field{Key: logging.FieldStatus, Value: report.Outcome.Status},
		logging.Field{Key: "confidence", Value: report.Outcome.Confidence},
		logging.Field{Key: logging.FieldCount, Value: len(report.Anomalies)},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})
	return report
}
