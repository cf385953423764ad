package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"fjacquet/stmt-forensics/internal/currencyutils"

	"github.com/shopspring/decimal"
)

// DocumentType selects the rule set the validation engine runs.
type DocumentType string

// ParseDocumentType maps a wire value to a DocumentType, returning DocUnknown for anything else.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocBankStatement, DocInvoice, DocPayslip:
		return DocumentType(s)
	}
	return DocUnknown
}

// ExtractedFields is the explicit schema for the field record passed between the
// external extraction service, the normalizer and the validation engine.
// Absent values are represented by invalid NullDecimals and empty strings.
type ExtractedFields struct {
	Currency            string               `json:"currency,omitempty"`
	AccountNumber       string               `json:"account_number,omitempty"`
	AccountHolder       string               `json:"account_holder,omitempty"`
	PeriodFrom          string               `json:"period_from,omitempty"`
	PeriodTo            string               `json:"period_to,omitempty"`
	OpeningBalance      decimal.NullDecimal  `json:"opening_balance"`
	ClosingBalance      decimal.NullDecimal  `json:"closing_balance"`
	BalanceHeader       string               `json:"balance_header,omitempty"`
	Transactions        []TransactionRecord  `json:"transactions,omitempty"`
	MetadataDiscrepancy *MetadataDiscrepancy `json:"metadata_discrepancy,omitempty"`

	// Invoice
	Subtotal    decimal.NullDecimal `json:"subtotal"`
	Tax         decimal.NullDecimal `json:"tax"`
	Total       decimal.NullDecimal `json:"total"`
	InvoiceDate string              `json:"invoice_date,omitempty"`
	DueDate     string              `json:"due_date,omitempty"`

	// Payslip
	GrossSalary decimal.NullDecimal `json:"gross_salary"`
	NetSalary   decimal.NullDecimal `json:"net_salary"`
	Deductions  decimal.NullDecimal `json:"deductions"`

	// Unparsed lists the amount fields that held a value no number could be
	// read from, as paths such as "transactions[2].amount". They decode as
	// absent so only the checks depending on them are skipped.
	Unparsed []string `json:"-"`
}

// UnmarshalJSON reads amounts leniently: JSON numbers, numeric strings and
// formatted strings such as "1,250.00" or "(500) Dr" are accepted, and any
// other value leaves the amount absent and is recorded in Unparsed.
func (f *ExtractedFields) UnmarshalJSON(data []byte) error {
	type plain ExtractedFields
	var wire struct {
		plain
		OpeningBalance json.RawMessage     `json:"opening_balance"`
		ClosingBalance json.RawMessage     `json:"closing_balance"`
		Subtotal       json.RawMessage     `json:"subtotal"`
		Tax            json.RawMessage     `json:"tax"`
		Total          json.RawMessage     `json:"total"`
		GrossSalary    json.RawMessage     `json:"gross_salary"`
		NetSalary      json.RawMessage     `json:"net_salary"`
		Deductions     json.RawMessage     `json:"deductions"`
		Transactions   []transactionFields `json:"transactions,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	out := ExtractedFields(wire.plain)
	out.Unparsed = nil
	set := func(path string, dst *decimal.NullDecimal, raw json.RawMessage) {
		v, ok := lenientAmount(raw)
		*dst = v
		if !ok {
			out.Unparsed = append(out.Unparsed, path)
		}
	}
	set("opening_balance", &out.OpeningBalance, wire.OpeningBalance)
	set("closing_balance", &out.ClosingBalance, wire.ClosingBalance)
	set("subtotal", &out.Subtotal, wire.Subtotal)
	set("tax", &out.Tax, wire.Tax)
	set("total", &out.Total, wire.Total)
	set("gross_salary", &out.GrossSalary, wire.GrossSalary)
	set("net_salary", &out.NetSalary, wire.NetSalary)
	set("deductions", &out.Deductions, wire.Deductions)

	out.Transactions = nil
	if wire.Transactions != nil {
		out.Transactions = make([]TransactionRecord, len(wire.Transactions))
	}
	for i, tw := range wire.Transactions {
		tx := TransactionRecord(tw.plainTransaction)
		set(fmt.Sprintf("transactions[%d].amount", i), &tx.Amount, tw.Amount)
		set(fmt.Sprintf("transactions[%d].running_balance", i), &tx.RunningBalance, tw.RunningBalance)
		out.Transactions[i] = tx
	}

	*f = out
	return nil
}

type plainTransaction TransactionRecord

type transactionFields struct {
	plainTransaction
	Amount         json.RawMessage `json:"amount"`
	RunningBalance json.RawMessage `json:"running_balance"`
}

// lenientAmount converts one raw JSON value to an amount. Absent values, null
// and blank strings are absent without being a failure.
func lenientAmount(raw json.RawMessage) (decimal.NullDecimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NoAmount, true
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return NoAmount, false
		}
		if strings.TrimSpace(s) == "" {
			return NoAmount, true
		}
		v := currencyutils.ParseNullAmount(s)
		return v, v.Valid
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return NoAmount, false
	}
	return Amount(d), true
}

// DecodeExtractedFields parses a JSON field record. Unknown keys are ignored and
// unreadable amounts are left absent; only malformed JSON is an error.
func DecodeExtractedFields(data []byte) (ExtractedFields, error) {
	var fields ExtractedFields
	if len(bytes.TrimSpace(data)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return ExtractedFields{}, fmt.Errorf("decoding extracted fields: %w", err)
	}
	return fields, nil
}

// PriorStatement is the minimal history record used by the cross-document check.
type PriorStatement struct {
	DocumentID     string              `json:"document_id"`
	AccountNumber  string              `json:"account_number"`
	ClosingBalance decimal.NullDecimal `json:"closing_balance"`
	PeriodTo       string              `json:"period_to,omitempty"`
}
