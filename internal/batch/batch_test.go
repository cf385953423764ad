package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/normalizer"
	"fjacquet/stmt-forensics/internal/scoring"
	"fjacquet/stmt-forensics/internal/store"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fraudCSV = `Account Statement
Account Number,1234567890
Opening Balance,100000
Closing Balance,"1,250,000.00"

Sl,Tran Date,Chq No,Particulars,Debit,Credit,Balance
,,,OPENING BALANCE,,,100000
1,01/04/2024,,NEFT/ACME CORP/SALARY,,50000,150000
2,05/04/2024,000123,ATM WITHDRAWAL,25000,,125000
3,10/04/2024,,INTEREST ADJ,,0,125000
`

func statementCSV(period, opening string, rows ...string) string {
	s := "Account Number,555001\nStatement Period," + period + "\n" +
		"Date,Description,Debit,Credit,Balance\n" +
		",OPENING BALANCE,,," + opening + "\n"
	for _, r := range rows {
		s += r + "\n"
	}
	return s
}

func newTestAnalyzer(logger logging.Logger) *Analyzer {
	n := normalizer.New(normalizer.Options{}, nil, logger)
	e := validation.NewEngine(validation.DefaultRules(), nil, logger)
	return NewAnalyzer(n, e, scoring.DefaultPolicy(), logger)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestMergeFields(t *testing.T) {
	extractedTxs := []models.TransactionRecord{{Description: "a"}}
	stmtTxs := []models.TransactionRecord{{Description: "x"}, {Description: "y"}}

	tests := []struct {
		name      string
		extracted models.ExtractedFields
		stmt      *models.NormalizedStatement
		check     func(t *testing.T, got models.ExtractedFields)
	}{
		{
			name:      "nil statement keeps extraction",
			extracted: models.ExtractedFields{AccountNumber: "1", Transactions: extractedTxs},
			check: func(t *testing.T, got models.ExtractedFields) {
				assert.Equal(t, "1", got.AccountNumber)
				assert.Len(t, got.Transactions, 1)
			},
		},
		{
			name:      "longer ledger and balances win",
			extracted: models.ExtractedFields{Currency: "USD", Transactions: extractedTxs, OpeningBalance: models.AmountFromFloat(1)},
			stmt: &models.NormalizedStatement{
				Currency:       "INR",
				Transactions:   stmtTxs,
				OpeningBalance: models.AmountFromFloat(10),
				ClosingBalance: models.AmountFromFloat(20),
				MetadataDiscrepancy: &models.MetadataDiscrepancy{
					HeaderClosing: decimal.NewFromInt(200),
				},
			},
			check: func(t *testing.T, got models.ExtractedFields) {
				assert.Equal(t, "INR", got.Currency)
				assert.Len(t, got.Transactions, 2)
				assert.True(t, got.OpeningBalance.Decimal.Equal(decimal.NewFromInt(10)))
				assert.True(t, got.ClosingBalance.Decimal.Equal(decimal.NewFromInt(20)))
				require.NotNil(t, got.MetadataDiscrepancy)
			},
		},
		{
			name: "shorter ledger and absent values keep extraction",
			extracted: models.ExtractedFields{
				AccountNumber:  "999",
				Transactions:   stmtTxs,
				ClosingBalance: models.AmountFromFloat(5),
			},
			stmt: &models.NormalizedStatement{
				AccountNumber: "111",
				AccountHolder: "A HOLDER",
				Transactions:  extractedTxs,
			},
			check: func(t *testing.T, got models.ExtractedFields) {
				assert.Equal(t, "999", got.AccountNumber)
				assert.Equal(t, "A HOLDER", got.AccountHolder)
				assert.Len(t, got.Transactions, 2)
				assert.True(t, got.ClosingBalance.Decimal.Equal(decimal.NewFromInt(5)))
				assert.Nil(t, got.MetadataDiscrepancy)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, MergeFields(tt.extracted, tt.stmt))
		})
	}
}

func TestAnalyzer_FraudStatementGoesToReview(t *testing.T) {
	logger := logging.NewMockLogger()
	a := newTestAnalyzer(logger)

	report := a.Analyze(context.Background(), Document{Filename: "fraud.csv", Data: []byte(fraudCSV)}, nil)

	assert.Equal(t, models.DocBankStatement, report.DocType)
	assert.Equal(t, store.DocumentID([]byte(fraudCSV)), report.DocumentID)
	require.NotNil(t, report.Statement)
	require.NotNil(t, report.Fields.MetadataDiscrepancy)
	assert.Len(t, report.Fields.Transactions, 3)
	assert.True(t, report.Validation.HasField("closing_balance"))

	assert.Equal(t, scoring.StatusReview, report.Outcome.Status)
	assert.Contains(t, report.Outcome.ReviewReasons, scoring.ReasonCriticalAnomaly)
	assert.Contains(t, report.Outcome.ReviewReasons, scoring.ReasonValidationErrors)
	assert.LessOrEqual(t, report.Outcome.Confidence, 0.3)

	require.NotEmpty(t, report.Anomalies)
	assert.Equal(t, models.AnomalyMetadataIntegrity, report.Anomalies[0].Type)
	assert.True(t, logger.HasEntry("INFO", "Document analyzed"))
}

func TestAnalyzer_ExtractedOnlyDocument(t *testing.T) {
	a := newTestAnalyzer(logging.NewMockLogger())
	fields := models.ExtractedFields{
		Subtotal: models.AmountFromFloat(100),
		Tax:      models.AmountFromFloat(18),
		Total:    models.AmountFromFloat(118),
	}

	report := a.Analyze(context.Background(), Document{DocType: models.DocInvoice, Extracted: &fields, BaseConfidence: 0.9}, nil)

	assert.NotEmpty(t, report.DocumentID)
	assert.Nil(t, report.Statement)
	assert.Equal(t, models.DocInvoice, report.DocType)
	assert.Empty(t, report.Validation.Errors)
	assert.Equal(t, scoring.StatusProcessed, report.Outcome.Status)
	assert.InDelta(t, 0.9, report.Outcome.Confidence, 1e-9)
}

func TestDiscoverAndSidecar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.xlsx", "x")
	writeFile(t, dir, "a.csv", "x")
	writeFile(t, dir, "a.fields.json", "{}")
	writeFile(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0750))

	paths, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.xlsx")}, paths)

	assert.Equal(t, filepath.Join(dir, "a.fields.json"), SidecarPath(filepath.Join(dir, "a.csv")))

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "march.csv", "Date,Description\n")
	writeFile(t, dir, "march.fields.json", `{"account_number":"42","closing_balance":"10.50","unknown":true}`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "march.csv", doc.Filename)
	assert.Equal(t, models.DocBankStatement, doc.DocType)
	require.NotNil(t, doc.Extracted)
	assert.Equal(t, "42", doc.Extracted.AccountNumber)
	assert.True(t, doc.Extracted.ClosingBalance.Decimal.Equal(decimal.RequireFromString("10.50")))

	april := writeFile(t, dir, "april.csv", "Date,Description\n")
	writeFile(t, dir, "april.fields.json", `{"account_number":"42","closing_balance":"1,250.00","opening_balance":"N/A"}`)
	doc, err = LoadDocument(april)
	require.NoError(t, err)
	assert.True(t, doc.Extracted.ClosingBalance.Decimal.Equal(decimal.NewFromInt(1250)))
	assert.False(t, doc.Extracted.OpeningBalance.Valid)
	assert.Equal(t, []string{"opening_balance"}, doc.Extracted.Unparsed)

	bad := writeFile(t, dir, "bad.csv", "x")
	writeFile(t, dir, "bad.fields.json", "{not json")
	_, err = LoadDocument(bad)
	assert.Error(t, err)

	_, err = LoadDocument(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestRunner_RebuildsHistoryInPeriodOrder(t *testing.T) {
	dir := t.TempDir()
	// Names sort in a different order than the periods.
	writeFile(t, dir, "a_feb.csv", statementCSV("01/02/2024,29/02/2024", "1300",
		"05/02/2024,CHEQUE DEPOSIT,,100.25,1400.25"))
	writeFile(t, dir, "b_jan.csv", statementCSV("01/01/2024,31/01/2024", "1000",
		"02/01/2024,SALARY ACME,,523.45,1523.45",
		"10/01/2024,ATM WITHDRAWAL,223.45,,1300"))
	marPath := writeFile(t, dir, "c_mar.csv", statementCSV("01/03/2024,31/03/2024", "1350",
		"03/03/2024,SALARY ACME,,523.45,1873.45"))
	writeFile(t, dir, "d_bad.csv", "x")
	writeFile(t, dir, "d_bad.fields.json", "{not json")
	marData, err := os.ReadFile(marPath)
	require.NoError(t, err)

	repo := store.NewMemoryStore()
	// Persisted earlier from outside this directory: December closes where January opens.
	require.NoError(t, repo.Save(context.Background(), store.StatementRecord{
		DocumentID:     "dec-2023",
		Filename:       "december.xlsx",
		AccountNumber:  "555001",
		PeriodTo:       "2023-12-31",
		ClosingBalance: models.AmountFromFloat(1000),
	}))
	// A previous run's result for c_mar.csv, saved last.
	require.NoError(t, repo.Save(context.Background(), store.StatementRecord{
		DocumentID:     store.DocumentID(marData),
		Filename:       "c_mar.csv",
		AccountNumber:  "555001",
		ClosingBalance: models.AmountFromFloat(9999),
	}))

	logger := logging.NewMockLogger()
	runner := NewRunner(newTestAnalyzer(logger), repo, 4, logger)
	summary, err := runner.Reanalyze(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, summary.Results, 4)

	feb, jan, mar, bad := summary.Results[0], summary.Results[1], summary.Results[2], summary.Results[3]
	assert.Empty(t, feb.Error)
	assert.NotEmpty(t, bad.Error)
	assert.Nil(t, bad.Report)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, summary.Processed+summary.Review)

	require.NotNil(t, jan.Report)
	assert.Equal(t, "555001", jan.Report.Fields.AccountNumber)
	assert.Equal(t, "2024-01-01", jan.Report.Fields.PeriodFrom)
	assert.True(t, jan.Report.Validation.Consistency.Consistent, "january follows the persisted december record")
	assert.True(t, feb.Report.Validation.Consistency.Consistent)

	require.NotNil(t, mar.Report)
	assert.False(t, mar.Report.Validation.Consistency.Consistent)
	require.Len(t, mar.Report.Validation.Consistency.Issues, 1)
	issue := mar.Report.Validation.Consistency.Issues[0]
	assert.Equal(t, "opening_balance", issue.Field)
	assert.Equal(t, feb.Report.DocumentID, issue.Details["previous_document_id"])

	history, err := repo.List(context.Background(), "555001")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{"december.xlsx", "b_jan.csv", "a_feb.csv", "c_mar.csv"},
		[]string{history[0].Filename, history[1].Filename, history[2].Filename, history[3].Filename})
	assert.True(t, history[2].ClosingBalance.Decimal.Equal(decimal.RequireFromString("1400.25")))
	assert.True(t, history[3].ClosingBalance.Decimal.Equal(decimal.RequireFromString("1873.45")))

	assert.True(t, logger.HasEntry("INFO", "Re-analysis complete"))
	assert.True(t, logger.HasEntry("WARN", "Skipping document"))
}

func TestRunner_SaveFailureIsPerDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "jan.csv", statementCSV("01/01/2024,31/01/2024", "1000",
		"02/01/2024,SALARY ACME,,523.45,1523.45"))

	repo := store.NewMemoryStore()
	repo.SaveError = assert.AnError
	runner := NewRunner(newTestAnalyzer(logging.NewMockLogger()), repo, 0, nil)

	summary, err := runner.Reanalyze(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Contains(t, summary.Results[0].Error, "error saving history")
	assert.NotNil(t, summary.Results[0].Report)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunner_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "jan.csv", statementCSV("01/01/2024,31/01/2024", "1000"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(newTestAnalyzer(logging.NewMockLogger()), store.NewMemoryStore(), 2, nil)

	_, err := runner.Reanalyze(ctx, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Schedule(t *testing.T) {
	runner := NewRunner(newTestAnalyzer(logging.NewMockLogger()), store.NewMemoryStore(), 1, nil)
	c := cron.New()

	id, err := runner.Schedule(context.Background(), c, "@every 1h", t.TempDir())
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = runner.Schedule(context.Background(), c, "not a schedule", t.TempDir())
	assert.Error(t, err)
}
