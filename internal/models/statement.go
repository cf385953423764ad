package models

import (
	"github.com/shopspring/decimal"
)

// MetadataDiscrepancy records a declared closing balance that the rows do not support.
type MetadataDiscrepancy struct {
	HeaderClosing     decimal.Decimal `json:"header_closing"`
	CalculatedClosing decimal.Decimal `json:"calculated_closing"`
	Discrepancy       decimal.Decimal `json:"discrepancy"`
	Ratio             decimal.Decimal `json:"ratio"`
}

// NormalizedStatement is the result of repairing one spreadsheet export.
// It is built by a single normalization call and owned by the caller afterwards.
type NormalizedStatement struct {
	Filename            string               `json:"filename,omitempty"`
	Currency            string               `json:"currency,omitempty"`
	OpeningBalance      decimal.NullDecimal  `json:"opening_balance"`
	ClosingBalance      decimal.NullDecimal  `json:"closing_balance"`
	AccountNumber       string               `json:"account_number,omitempty"`
	AccountHolder       string               `json:"account_holder,omitempty"`
	PeriodFrom          string               `json:"period_from,omitempty"`
	PeriodTo            string               `json:"period_to,omitempty"`
	RawHeaders          []string             `json:"raw_headers,omitempty"`
	BalanceHeader       string               `json:"balance_header,omitempty"`
	Transactions        []TransactionRecord  `json:"transactions"`
	RepairLog           []string             `json:"repair_log"`
	DetectedAnomalies   []Anomaly            `json:"detected_anomalies"`
	MetadataDiscrepancy *MetadataDiscrepancy `json:"metadata_discrepancy,omitempty"`
}

// NewNormalizedStatement returns an empty statement with non-nil slices so that
// JSON output always carries arrays.
func NewNormalizedStatement(filename string) *NormalizedStatement {
	return &NormalizedStatement{
		Filename:          filename,
		Transactions:      []TransactionRecord{},
		RepairLog:         []string{},
		DetectedAnomalies: []Anomaly{},
	}
}

// LastRunningBalance returns the running balance of the last record that has one.
func LastRunningBalance(txs []TransactionRecord) decimal.NullDecimal {
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].RunningBalance.Valid {
			return txs[i].RunningBalance
		}
	}
	return NoAmount
}

// ToFields converts the statement into the extracted-fields shape the validation engine consumes.
func (s *NormalizedStatement) ToFields() ExtractedFields {
	return ExtractedFields{
		Currency:            s.Currency,
		AccountNumber:       s.AccountNumber,
		AccountHolder:       s.AccountHolder,
		PeriodFrom:          s.PeriodFrom,
		PeriodTo:            s.PeriodTo,
		OpeningBalance:      s.OpeningBalance,
		ClosingBalance:      s.ClosingBalance,
		BalanceHeader:       s.BalanceHeader,
		Transactions:        s.Transactions,
		MetadataDiscrepancy: s.MetadataDiscrepancy,
	}
}
