// Package models provides the data structures shared by the statement normalizer,
// the forensic validation engine and their callers.
package models

import (
	"github.com/shopspring/decimal"
)

// TransactionType tells whether money entered or left the account.
type TransactionType string

const (
	TxCredit  TransactionType = "credit"
	TxDebit   TransactionType = "debit"
	TxUnknown TransactionType = "unknown"
)

// TransactionRecord is one ledger row. Amount is signed: positive is a credit,
// negative a debit. Records are created once per parsed row and never modified.
type TransactionRecord struct {
	Date           string              `json:"date,omitempty" yaml:"date,omitempty"`             // ISO date, empty when unknown
	RawDate        string              `json:"raw_date,omitempty" yaml:"raw_date,omitempty"`     // date text as it appeared in the source
	Description    string              `json:"description" yaml:"description"`
	Amount         decimal.NullDecimal `json:"amount" yaml:"-"`
	RunningBalance decimal.NullDecimal `json:"running_balance" yaml:"-"`
	Type           TransactionType     `json:"transaction_type" yaml:"transaction_type"`
	Category       string              `json:"category,omitempty" yaml:"category,omitempty"`
	Counterparty   string              `json:"counterparty,omitempty" yaml:"counterparty,omitempty"`
	SourceRowIndex int                 `json:"source_row_index,omitempty" yaml:"source_row_index,omitempty"`
	ChequeNumber   string              `json:"cheque_number,omitempty" yaml:"cheque_number,omitempty"`
}

// DateToken returns the text the date-format checks should look at:
// the raw source text when known, otherwise the normalized date.
func (t TransactionRecord) DateToken() string {
	if t.RawDate != "" {
		return t.RawDate
	}
	return t.Date
}

// IsCredit reports whether the record carries a positive amount.
func (t TransactionRecord) IsCredit() bool {
	return t.Amount.Valid && t.Amount.Decimal.IsPositive()
}

// IsDebit reports whether the record carries a negative amount.
func (t TransactionRecord) IsDebit() bool {
	return t.Amount.Valid && t.Amount.Decimal.IsNegative()
}

// LedgerRow is the flat CSV export shape of a TransactionRecord.
type LedgerRow struct {
	Row          int    `csv:"Row"`
	Date         string `csv:"Date"`
	Description  string `csv:"Description"`
	Amount       string `csv:"Amount"`
	Balance      string `csv:"Balance"`
	Type         string `csv:"Type"`
	Category     string `csv:"Category"`
	Counterparty string `csv:"Counterparty"`
	Cheque       string `csv:"Cheque"`
}

// ToLedgerRow flattens the record for CSV output. Absent amounts become empty cells.
func (t TransactionRecord) ToLedgerRow() LedgerRow {
	row := LedgerRow{
		Row:          t.SourceRowIndex,
		Date:         t.Date,
		Description:  t.Description,
		Type:         string(t.Type),
		Category:     t.Category,
		Counterparty: t.Counterparty,
		Cheque:       t.ChequeNumber,
	}
	if t.Amount.Valid {
		row.Amount = t.Amount.Decimal.StringFixed(2)
	}
	if t.RunningBalance.Valid {
		row.Balance = t.RunningBalance.Decimal.StringFixed(2)
	}
	return row
}
