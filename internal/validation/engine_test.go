package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/stmt-forensics/internal/currency"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(v float64) decimal.NullDecimal {
	return models.AmountFromFloat(v)
}

func tx(date, desc string, amount float64) models.TransactionRecord {
	return models.TransactionRecord{Date: date, RawDate: date, Description: desc, Amount: amt(amount)}
}

func txBal(date, desc string, amount, balance float64) models.TransactionRecord {
	t := tx(date, desc, amount)
	t.RunningBalance = amt(balance)
	return t
}

func amountsOnly(values ...float64) []models.TransactionRecord {
	out := make([]models.TransactionRecord, len(values))
	for i, v := range values {
		out[i] = models.TransactionRecord{Description: "ROW", Amount: amt(v)}
	}
	return out
}

func newTestEngine() (*Engine, *logging.MockLogger) {
	logger := logging.NewMockLogger()
	e := NewEngine(DefaultRules(), currency.NewResolver(currency.DefaultCode, nil), logger)
	e.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return e, logger
}

func findCheck(issues []models.Issue, check string) *models.Issue {
	for i := range issues {
		if issues[i].Check == check {
			return &issues[i]
		}
	}
	return nil
}

func countField(issues []models.Issue, field string) int {
	n := 0
	for _, i := range issues {
		if i.Field == field {
			n++
		}
	}
	return n
}

type stubLookup struct {
	prior *models.PriorStatement
	err   error
	calls int
}

func (s *stubLookup) PriorStatement(_ context.Context, account string) (*models.PriorStatement, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.prior != nil && s.prior.AccountNumber == account {
		return s.prior, nil
	}
	return nil, nil
}

func TestRunValidations_BalanceIdentity(t *testing.T) {
	tests := []struct {
		name      string
		txs       []models.TransactionRecord
		closing   float64
		wantIssue bool
		wantError bool
	}{
		{
			name:    "balanced",
			txs:     amountsOnly(500, -200, 100),
			closing: 1400,
		},
		{
			name:    "within tolerance",
			txs:     amountsOnly(500, -200, 100),
			closing: 1400.04,
		},
		{
			name:      "mismatch with three transactions is an error",
			txs:       amountsOnly(500, -200, 100),
			closing:   1500,
			wantIssue: true,
			wantError: true,
		},
		{
			name:      "mismatch with two transactions is info",
			txs:       amountsOnly(500, -200),
			closing:   1500,
			wantIssue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			fields := models.ExtractedFields{
				OpeningBalance: amt(1000),
				ClosingBalance: amt(tt.closing),
				Transactions:   tt.txs,
			}
			res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

			errIssue := findCheck(res.Errors, "continuity")
			warnIssue := findCheck(res.Warnings, "continuity")
			if !tt.wantIssue {
				assert.Nil(t, errIssue)
				assert.Nil(t, warnIssue)
				return
			}
			if tt.wantError {
				require.NotNil(t, errIssue)
				assert.Equal(t, "closing_balance", errIssue.Field)
				assert.Equal(t, models.SeverityCritical, errIssue.Severity)
				assert.InDelta(t, 1400.0, errIssue.Details["expected"], 0.001)
				return
			}
			require.NotNil(t, warnIssue)
			assert.Equal(t, models.SeverityInfo, warnIssue.Severity)
		})
	}
}

func TestRunValidations_MetadataFraudFailsContinuity(t *testing.T) {
	e, _ := newTestEngine()
	fields := models.ExtractedFields{
		OpeningBalance: amt(100000),
		ClosingBalance: amt(1250000),
		Transactions: []models.TransactionRecord{
			txBal("2024-04-01", "NEFT/ACME/SALARY", 50000, 150000),
			txBal("2024-04-05", "ATM WITHDRAWAL", -25000, 125000),
			txBal("2024-04-10", "INTEREST ADJ", 0, 125000),
		},
	}
	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

	continuity := findCheck(res.Errors, "continuity")
	require.NotNil(t, continuity)
	assert.Equal(t, models.SeverityCritical, continuity.Severity)

	injection := findCheck(res.Warnings, "closing_vs_last_row")
	require.NotNil(t, injection)
	assert.Equal(t, models.SeverityCritical, injection.Severity)
	assert.InDelta(t, 125000.0, injection.Details["expected"], 0.001)

	assert.Nil(t, findCheck(res.Warnings, "closing_magnitude"))
	assert.Nil(t, findCheck(res.Warnings, "running_balance"))
}

func TestRunValidations_ClosingMagnitude(t *testing.T) {
	e, _ := newTestEngine()
	fields := models.ExtractedFields{
		Currency:       "INR",
		OpeningBalance: amt(1000),
		ClosingBalance: amt(10000000),
		Transactions: []models.TransactionRecord{
			txBal("2024-04-01", "SHOP A", -100, 900),
			txBal("2024-04-02", "SHOP B", -100, 800),
			txBal("2024-04-03", "SHOP C", 300, 1100),
		},
	}
	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

	mag := findCheck(res.Warnings, "closing_magnitude")
	require.NotNil(t, mag)
	assert.InDelta(t, 900.0, mag.Details["median_balance"], 0.001)
}

func TestRunValidations_RunningBalance(t *testing.T) {
	e, _ := newTestEngine()
	fields := models.ExtractedFields{
		Transactions: []models.TransactionRecord{
			txBal("2024-04-01", "SHOP A", -100, 900),
			txBal("2024-04-02", "SHOP B", -100, 750),
			tx("2024-04-03", "SHOP C", -50),
			txBal("2024-04-04", "SHOP D", -50, 700),
		},
	}
	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

	issue := findCheck(res.Warnings, "running_balance")
	require.NotNil(t, issue)
	assert.Equal(t, "balance", issue.Field)
	assert.Equal(t, 1, issue.Details["count"])
}

func benfordAmounts(ones int) []float64 {
	others := []float64{2345, 3456, 4567, 5678, 6789, 7890, 8901, 9012, 234, 345, 456, 567, 678, 789, 890, 901, 23, 34, 45, 56, 67, 78, 89, 91, 22}
	out := make([]float64, 0, 25)
	for i := 0; i < ones; i++ {
		out = append(out, float64(1000+i*37))
	}
	return append(out, others[:25-ones]...)
}

func TestRunValidations_Benford(t *testing.T) {
	tests := []struct {
		name      string
		ones      int
		wantRatio float64
		wantWarn  bool
	}{
		{name: "2 of 25 start with 1", ones: 2, wantRatio: 0.08, wantWarn: true},
		{name: "23 of 25 start with 1", ones: 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			fields := models.ExtractedFields{Transactions: amountsOnly(benfordAmounts(tt.ones)...)}
			res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

			issue := res.FindIssue("benford")
			if !tt.wantWarn {
				assert.Nil(t, issue)
				return
			}
			require.NotNil(t, issue)
			assert.Equal(t, models.SeverityWarning, issue.Severity)
			assert.InDelta(t, tt.wantRatio, issue.Details["ratio"], 0.0001)
			assert.Equal(t, 25, issue.Details["sample_count"])
		})
	}
}

func TestRunValidations_BenfordNeedsSamples(t *testing.T) {
	e, _ := newTestEngine()
	fields := models.ExtractedFields{Transactions: amountsOnly(benfordAmounts(2)[:19]...)}
	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)
	assert.Nil(t, res.FindIssue("benford"))
}

func TestRunValidations_RoundNumbers(t *testing.T) {
	amounts := []float64{100, 500, 1200, 3000, 123.45, 57, 88.1, 999, 250.5, 31}

	tests := []struct {
		name      string
		currency  string
		wantWarn  bool
		wantRound int
	}{
		{name: "INR profile", currency: "INR", wantWarn: true, wantRound: 4},
		{name: "JPY profile counts only thousands", currency: "JPY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			fields := models.ExtractedFields{Currency: tt.currency, Transactions: amountsOnly(amounts...)}
			res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

			issue := res.FindIssue("round_numbers")
			if !tt.wantWarn {
				assert.Nil(t, issue)
				return
			}
			require.NotNil(t, issue)
			assert.Equal(t, tt.wantRound, issue.Details["round_count"])
			assert.Equal(t, 10, issue.Details["total_count"])
			assert.InDelta(t, 0.4, issue.Details["ratio"], 0.0001)
			assert.Equal(t, tt.currency, issue.Details["currency"])
		})
	}
}

func TestRunValidations_Structuring(t *testing.T) {
	e, _ := newTestEngine()
	fields := models.ExtractedFields{
		Transactions: amountsOnly(9900, 9950, 9990, 10000, 100, 200, 300, 400, 500, 600),
	}
	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

	issue := res.FindIssue("structuring")
	require.NotNil(t, issue)
	assert.Equal(t, 3, issue.Details["count"])
	assert.InDelta(t, 9991.0, issue.Details["threshold"], 0.001)
}

func TestRunValidations_Velocity(t *testing.T) {
	e, _ := newTestEngine()
	fields := models.ExtractedFields{
		Transactions: []models.TransactionRecord{
			tx("2024-04-01", "UPI/P2M/111/TEA STALL", -10),
			tx("2024-04-01", "UPI/P2M/222/TEA STALL", -10),
			tx("2024-04-01", "UPI/P2M/333/TEA STALL", -10),
			tx("2024-04-01", "UPI/P2M/444/TEA STALL", -10),
			tx("2024-04-02", "RENT", -500),
			tx("2024-04-03", "GROCERIES", -800),
			tx("2024-04-04", "REFUND", 1000),
			tx("2024-04-05", "SALARY", 2000),
			tx("2024-04-06", "ELECTRICITY", -1500),
			tx("2024-04-07", "FLIGHT", -3000),
		},
	}
	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

	issue := res.FindIssue("velocity")
	require.NotNil(t, issue)
	assert.Equal(t, []string{"2024-04-01::upi p m tea stall"}, issue.Details["examples"])
}

func TestRunValidations_Cashflow(t *testing.T) {
	e, _ := newTestEngine()

	ghost := models.ExtractedFields{Transactions: amountsOnly(100, 250, 75)}
	res := e.RunValidations(context.Background(), models.DocBankStatement, ghost, nil)
	assert.NotNil(t, findCheck(res.Warnings, "ghost_lifestyle"))

	overdrawn := models.ExtractedFields{
		Transactions: []models.TransactionRecord{
			txBal("2024-04-01", "SHOP A", -100, -100),
			txBal("2024-04-02", "SHOP B", -100, -200),
			txBal("2024-04-03", "REFUND", 300, 100),
		},
	}
	res = e.RunValidations(context.Background(), models.DocBankStatement, overdrawn, nil)
	issue := findCheck(res.Warnings, "negative_balances")
	require.NotNil(t, issue)
	assert.InDelta(t, 0.667, issue.Details["ratio"], 0.0001)
	assert.Nil(t, findCheck(res.Warnings, "ghost_lifestyle"))
}

func TestRunValidations_Synthetic(t *testing.T) {
	e, _ := newTestEngine()
	txs := make([]models.TransactionRecord, 10)
	for i := range txs {
		txs[i] = tx("2024-04-01", "TRANSFER TO SELF", -float64(i+1))
	}
	res := e.RunValidations(context.Background(), models.DocBankStatement, models.ExtractedFields{Transactions: txs}, nil)

	assert.Equal(t, 2, countField(res.Warnings, "synthetic"))
	rep := findCheck(res.Warnings, "repetition")
	require.NotNil(t, rep)
	assert.InDelta(t, 0.9, rep.Details["ratio"], 0.0001)
	assert.NotNil(t, findCheck(res.Warnings, "low_diversity"))
}

func TestRunValidations_DateChecks(t *testing.T) {
	t.Run("single violation is a warning", func(t *testing.T) {
		e, _ := newTestEngine()
		fields := models.ExtractedFields{Transactions: []models.TransactionRecord{
			tx("2024-04-02", "A", -1), tx("2024-04-01", "B", -1), tx("2024-04-03", "C", -1),
		}}
		res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)
		issue := findCheck(res.Warnings, "date_sequence")
		require.NotNil(t, issue)
		assert.Equal(t, models.SeverityWarning, issue.Severity)
		assert.Equal(t, 1, issue.Details["count"])
	})

	t.Run("five violations escalate to critical", func(t *testing.T) {
		e, _ := newTestEngine()
		var txs []models.TransactionRecord
		for i := 0; i < 5; i++ {
			txs = append(txs, tx("2024-04-10", "LATE", -1), tx("2024-04-01", "EARLY", -1))
		}
		res := e.RunValidations(context.Background(), models.DocBankStatement, models.ExtractedFields{Transactions: txs}, nil)
		issue := findCheck(res.Warnings, "date_sequence")
		require.NotNil(t, issue)
		assert.Equal(t, models.SeverityCritical, issue.Severity)
		assert.Equal(t, 5, issue.Details["count"])
	})

	t.Run("unparseable and mixed formats", func(t *testing.T) {
		e, _ := newTestEngine()
		fields := models.ExtractedFields{Transactions: []models.TransactionRecord{
			{RawDate: "01/04/2024", Date: "2024-04-01", Description: "A", Amount: amt(-1)},
			{RawDate: "02-Apr-2024", Date: "2024-04-02", Description: "B", Amount: amt(-1)},
			{RawDate: "31/02/2024", Description: "C", Amount: amt(-1)},
		}}
		res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

		invalid := findCheck(res.Warnings, "invalid_date")
		require.NotNil(t, invalid)
		assert.Equal(t, 1, invalid.Details["count"])

		mixed := findCheck(res.Warnings, "mixed_date_format")
		require.NotNil(t, mixed)
		assert.Equal(t, models.SeverityInfo, mixed.Severity)
		assert.Nil(t, findCheck(res.Warnings, "date_sequence"))
	})
}

func TestRunValidations_CrossDocument(t *testing.T) {
	prior := &models.PriorStatement{DocumentID: "doc-1", AccountNumber: "123", ClosingBalance: amt(5000)}

	tests := []struct {
		name           string
		opening        float64
		lookup         *stubLookup
		wantConsistent bool
	}{
		{name: "matching opening", opening: 5000, lookup: &stubLookup{prior: prior}, wantConsistent: true},
		{name: "opening differs by 50", opening: 4950, lookup: &stubLookup{prior: prior}, wantConsistent: false},
		{name: "no prior statement", opening: 4950, lookup: &stubLookup{}, wantConsistent: true},
		{name: "lookup failure skips the check", opening: 4950, lookup: &stubLookup{err: errors.New("db down")}, wantConsistent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, logger := newTestEngine()
			fields := models.ExtractedFields{
				AccountNumber:  "123",
				OpeningBalance: amt(tt.opening),
				Transactions:   amountsOnly(-10),
			}
			res := e.RunValidations(context.Background(), models.DocBankStatement, fields, tt.lookup)

			assert.Equal(t, 1, tt.lookup.calls)
			assert.Equal(t, tt.wantConsistent, res.Consistency.Consistent)
			if tt.wantConsistent {
				assert.Empty(t, res.Consistency.Issues)
			} else {
				require.Len(t, res.Consistency.Issues, 1)
				issue := res.Consistency.Issues[0]
				assert.Equal(t, "opening_balance", issue.Field)
				assert.Equal(t, models.SeverityCritical, issue.Severity)
				assert.InDelta(t, 5000.0, issue.Details["previous_closing"], 0.001)
			}
			if tt.lookup.err != nil {
				assert.NotEmpty(t, logger.GetEntriesByLevel("WARN"))
			}
		})
	}
}

func TestRunValidations_CrossDocumentSkippedWhenCancelled(t *testing.T) {
	e, _ := newTestEngine()
	lookup := &stubLookup{prior: &models.PriorStatement{AccountNumber: "123", ClosingBalance: amt(5000)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fields := models.ExtractedFields{AccountNumber: "123", OpeningBalance: amt(1), Transactions: amountsOnly(-1)}
	res := e.RunValidations(ctx, models.DocBankStatement, fields, lookup)

	assert.Zero(t, lookup.calls)
	assert.True(t, res.Consistency.Consistent)
}

func TestRunValidations_Invoice(t *testing.T) {
	tests := []struct {
		name       string
		fields     models.ExtractedFields
		wantErrors []string
		wantWarns  []string
	}{
		{
			name:   "consistent invoice",
			fields: models.ExtractedFields{Subtotal: amt(100), Tax: amt(18), Total: amt(118.01), InvoiceDate: "2024-05-01", DueDate: "2024-05-31"},
		},
		{
			name:       "total mismatch",
			fields:     models.ExtractedFields{Subtotal: amt(100), Tax: amt(18), Total: amt(120)},
			wantErrors: []string{"total"},
		},
		{
			name:       "due before invoice",
			fields:     models.ExtractedFields{InvoiceDate: "2024-05-10", DueDate: "2024-05-01"},
			wantErrors: []string{"due_date"},
		},
		{
			name:      "future invoice",
			fields:    models.ExtractedFields{InvoiceDate: "2025-01-01"},
			wantWarns: []string{"invoice_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			res := e.RunValidations(context.Background(), models.DocInvoice, tt.fields, nil)
			assert.Len(t, res.Errors, len(tt.wantErrors))
			assert.Len(t, res.Warnings, len(tt.wantWarns))
			for _, f := range tt.wantErrors {
				assert.Equal(t, 1, countField(res.Errors, f), f)
			}
			for _, f := range tt.wantWarns {
				assert.Equal(t, 1, countField(res.Warnings, f), f)
			}
		})
	}
}

func TestRunValidations_Payslip(t *testing.T) {
	tests := []struct {
		name       string
		fields     models.ExtractedFields
		wantErrors []string
		wantWarns  []string
	}{
		{
			name:   "consistent payslip",
			fields: models.ExtractedFields{GrossSalary: amt(5000), Deductions: amt(800), NetSalary: amt(4200.03)},
		},
		{
			name:       "net above gross",
			fields:     models.ExtractedFields{GrossSalary: amt(4000), NetSalary: amt(4200)},
			wantErrors: []string{"net_salary"},
		},
		{
			name:      "deductions do not add up",
			fields:    models.ExtractedFields{GrossSalary: amt(5000), Deductions: amt(500), NetSalary: amt(4200)},
			wantWarns: []string{"deductions"},
		},
		{
			name:       "non-positive gross",
			fields:     models.ExtractedFields{GrossSalary: amt(0)},
			wantErrors: []string{"gross_salary"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			res := e.RunValidations(context.Background(), models.DocPayslip, tt.fields, nil)
			assert.Len(t, res.Errors, len(tt.wantErrors))
			assert.Len(t, res.Warnings, len(tt.wantWarns))
			for _, f := range tt.wantErrors {
				assert.Equal(t, 1, countField(res.Errors, f), f)
			}
			for _, f := range tt.wantWarns {
				assert.Equal(t, 1, countField(res.Warnings, f), f)
			}
		})
	}
}

func TestRunValidations_UnknownTypeAndEmptyFields(t *testing.T) {
	e, _ := newTestEngine()

	res := e.RunValidations(context.Background(), models.DocUnknown, models.ExtractedFields{}, nil)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.True(t, res.Consistency.Consistent)

	res = e.RunValidations(context.Background(), models.DocBankStatement, models.ExtractedFields{}, nil)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestRunValidations_UnreadableAmountsSkipOnlyTheirChecks(t *testing.T) {
	e, logger := newTestEngine()
	fields, err := models.DecodeExtractedFields([]byte(`{
		"account_number": "998877",
		"opening_balance": 1000,
		"closing_balance": "2,250.00",
		"transactions": [
			{"date": "2024-04-01", "description": "NEFT IN", "amount": "300"},
			{"date": "2024-04-02", "description": "CARD", "amount": "N/A"},
			{"date": "2024-04-03", "description": "ATM", "amount": -50}
		]
	}`))
	require.NoError(t, err)
	require.Equal(t, []string{"transactions[1].amount"}, fields.Unparsed)

	res := e.RunValidations(context.Background(), models.DocBankStatement, fields, nil)

	continuity := findCheck(append(res.Errors, res.Warnings...), "continuity")
	require.NotNil(t, continuity)
	assert.InDelta(t, 1250.0, continuity.Details["expected"], 0.001)
	assert.InDelta(t, 2250.0, continuity.Details["actual"], 0.001)
	assert.True(t, logger.HasEntry("WARN", "Skipping checks on unreadable amounts"))
}

func TestDetectCurrency(t *testing.T) {
	e, _ := newTestEngine()

	tests := []struct {
		name       string
		fields     models.ExtractedFields
		wantCode   string
		wantSource string
	}{
		{name: "explicit", fields: models.ExtractedFields{Currency: "usd"}, wantCode: "USD", wantSource: currency.SourceExplicit},
		{name: "header symbol", fields: models.ExtractedFields{BalanceHeader: "Balance (€)", Transactions: amountsOnly(10)}, wantCode: "EUR", wantSource: currency.SourceSymbols},
		{name: "magnitude", fields: models.ExtractedFields{Transactions: amountsOnly(50000, -20000)}, wantCode: "INR", wantSource: currency.SourceMagnitude},
		{name: "default", fields: models.ExtractedFields{Transactions: amountsOnly(10, -20)}, wantCode: "INR", wantSource: currency.SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det, profile := e.DetectCurrency(tt.fields)
			assert.Equal(t, tt.wantCode, det.Code)
			assert.Equal(t, tt.wantSource, det.Source)
			assert.True(t, profile.Valid())
		})
	}
}
