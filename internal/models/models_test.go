package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExtractedFields(t *testing.T) {
	data := []byte(`{
		"currency": "INR",
		"account_number": "123",
		"opening_balance": 4950,
		"closing_balance": "5000.50",
		"unexpected_key": {"ignored": true},
		"transactions": [
			{"date": "2024-01-02", "description": "UPI/P2A/1/Ravi", "amount": -50.5, "running_balance": null}
		]
	}`)

	fields, err := DecodeExtractedFields(data)
	require.NoError(t, err)

	assert.Equal(t, "INR", fields.Currency)
	assert.Equal(t, "123", fields.AccountNumber)
	require.True(t, fields.OpeningBalance.Valid)
	assert.True(t, fields.OpeningBalance.Decimal.Equal(decimal.NewFromInt(4950)))
	assert.True(t, fields.ClosingBalance.Decimal.Equal(decimal.RequireFromString("5000.50")))
	require.Len(t, fields.Transactions, 1)
	assert.True(t, fields.Transactions[0].Amount.Decimal.Equal(decimal.RequireFromString("-50.5")))
	assert.False(t, fields.Transactions[0].RunningBalance.Valid)
	assert.False(t, fields.Total.Valid)
}

func TestDecodeExtractedFields_Empty(t *testing.T) {
	fields, err := DecodeExtractedFields([]byte("  "))
	require.NoError(t, err)
	assert.False(t, fields.OpeningBalance.Valid)

	_, err = DecodeExtractedFields([]byte("{not json"))
	assert.Error(t, err)
}

func TestDecodeExtractedFields_LenientAmounts(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		unparsed []string
		check    func(t *testing.T, f ExtractedFields)
	}{
		{
			name: "formatted balance string",
			data: `{"account_number": "42", "opening_balance": "1,000.00", "closing_balance": "1,250.00"}`,
			check: func(t *testing.T, f ExtractedFields) {
				assert.Equal(t, "42", f.AccountNumber)
				assert.True(t, f.OpeningBalance.Decimal.Equal(decimal.NewFromInt(1000)))
				require.True(t, f.ClosingBalance.Valid)
				assert.True(t, f.ClosingBalance.Decimal.Equal(decimal.NewFromInt(1250)))
			},
		},
		{
			name:     "unreadable transaction amount",
			data:     `{"opening_balance": 500, "transactions": [{"description": "CARD", "amount": "N/A", "running_balance": "480"}, {"description": "ATM", "amount": -20}]}`,
			unparsed: []string{"transactions[0].amount"},
			check: func(t *testing.T, f ExtractedFields) {
				assert.True(t, f.OpeningBalance.Decimal.Equal(decimal.NewFromInt(500)))
				require.Len(t, f.Transactions, 2)
				assert.Equal(t, "CARD", f.Transactions[0].Description)
				assert.False(t, f.Transactions[0].Amount.Valid)
				assert.True(t, f.Transactions[0].RunningBalance.Decimal.Equal(decimal.NewFromInt(480)))
				assert.True(t, f.Transactions[1].Amount.Decimal.Equal(decimal.NewFromInt(-20)))
			},
		},
		{
			name:     "wrong json kinds",
			data:     `{"total": true, "tax": {"rate": 5}, "subtotal": "", "gross_salary": null, "net_salary": "(1,200) Dr"}`,
			unparsed: []string{"tax", "total"},
			check: func(t *testing.T, f ExtractedFields) {
				assert.False(t, f.Total.Valid)
				assert.False(t, f.Tax.Valid)
				assert.False(t, f.Subtotal.Valid)
				assert.False(t, f.GrossSalary.Valid)
				assert.True(t, f.NetSalary.Decimal.Equal(decimal.NewFromInt(1200)))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeExtractedFields([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.unparsed, f.Unparsed)
			tt.check(t, f)
		})
	}
}

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		in   string
		want DocumentType
	}{
		{"bank_statement", DocBankStatement},
		{"invoice", DocInvoice},
		{"payslip", DocPayslip},
		{"receipt", DocUnknown},
		{"", DocUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDocumentType(tt.in))
		})
	}
}

func TestValidationResult_Anomalies(t *testing.T) {
	r := NewValidationResult()
	r.AddError(Issue{Field: "closing_balance", Message: "mismatch", Severity: SeverityCritical})
	r.AddWarning(Issue{Field: "benford", Message: "skew", Severity: SeverityWarning, Details: map[string]any{"ratio": 0.08}})
	r.AddInconsistency(Issue{Field: "opening_balance", Message: "prior", Severity: SeverityCritical})

	assert.False(t, r.Consistency.Consistent)
	assert.True(t, r.HasField("benford"))
	assert.False(t, r.HasField("opening_balance"))

	anomalies := r.Anomalies()
	require.Len(t, anomalies, 3)
	assert.Equal(t, AnomalyType("closing_balance"), anomalies[0].Type)
	assert.Equal(t, AnomalyType("benford"), anomalies[1].Type)
	assert.Equal(t, 0.08, anomalies[1].Details["ratio"])
	assert.Equal(t, AnomalyType("opening_balance"), anomalies[2].Type)
	assert.True(t, HasCritical(anomalies))
}

func TestNewValidationResult_JSONArrays(t *testing.T) {
	out, err := json.Marshal(NewValidationResult())
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[],"warnings":[],"consistency":{"consistent":true,"issues":[]}}`, string(out))
}

func TestTransactionRecord_ToLedgerRow(t *testing.T) {
	tx := TransactionRecord{
		Date:           "2024-03-01",
		Description:    "NEFT/ABC/Acme Corp",
		Amount:         Amount(decimal.RequireFromString("-1200.5")),
		Type:           TxDebit,
		Category:       CategoryNEFT,
		Counterparty:   "Acme Corp",
		SourceRowIndex: 14,
	}
	row := tx.ToLedgerRow()

	assert.Equal(t, 14, row.Row)
	assert.Equal(t, "-1200.50", row.Amount)
	assert.Empty(t, row.Balance)
	assert.Equal(t, "debit", row.Type)
	assert.True(t, tx.IsDebit())
	assert.False(t, tx.IsCredit())
}

func TestLastRunningBalance(t *testing.T) {
	txs := []TransactionRecord{
		{RunningBalance: AmountFromFloat(10)},
		{RunningBalance: AmountFromFloat(20)},
		{},
	}
	got := LastRunningBalance(txs)
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.NewFromInt(20)))

	assert.False(t, LastRunningBalance(nil).Valid)
}

func TestWithinTolerance(t *testing.T) {
	tol := decimal.RequireFromString("0.05")
	assert.True(t, WithinTolerance(decimal.RequireFromString("100.00"), decimal.RequireFromString("100.05"), tol))
	assert.False(t, WithinTolerance(decimal.RequireFromString("100.00"), decimal.RequireFromString("100.06"), tol))
	assert.False(t, SameAmount(NoAmount, AmountFromFloat(1), tol))
}

func TestStatementToFields(t *testing.T) {
	s := NewNormalizedStatement("jan.xlsx")
	s.Currency = "INR"
	s.AccountNumber = "123"
	s.OpeningBalance = AmountFromFloat(100)

	f := s.ToFields()
	assert.Equal(t, "INR", f.Currency)
	assert.Equal(t, "123", f.AccountNumber)
	assert.True(t, f.OpeningBalance.Valid)
	assert.NotNil(t, f.Transactions)
}
