// Package common provides the ledger CSV format shared by the CLI commands.
package common

import (
	"encoding/csv"
	"fmt"
	"io"

	"fjacquet/stmt-forensics/internal/currencyutils"
	"fjacquet/stmt-forensics/internal/models"

	"github.com/gocarina/gocsv"
)

// DefaultDelimiter separates ledger CSV fields unless configured otherwise.
const DefaultDelimiter = ','

// WriteLedger writes transactions as a ledger CSV with a header row.
func WriteLedger(w io.Writer, transactions []models.TransactionRecord, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	rows := make([]models.LedgerRow, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, tx.ToLedgerRow())
	}

	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("error writing ledger CSV: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// ReadLedger parses a ledger CSV back into transaction records. Unparseable
// amounts become absent values rather than errors.
func ReadLedger(r io.Reader, delimiter rune) ([]models.TransactionRecord, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	var rows []models.LedgerRow
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, fmt.Errorf("error parsing ledger CSV: %w", err)
	}

	out := make([]models.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		tx := models.TransactionRecord{
			Date:           row.Date,
			RawDate:        row.Date,
			Description:    row.Description,
			Amount:         currencyutils.ParseNullAmount(row.Amount),
			RunningBalance: currencyutils.ParseNullAmount(row.Balance),
			Type:           models.TransactionType(row.Type),
			Category:       row.Category,
			Counterparty:   row.Counterparty,
			SourceRowIndex: row.Row,
			ChequeNumber:   row.Cheque,
		}
		if tx.Type == "" {
			tx.Type = models.TxUnknown
		}
		out = append(out, tx)
	}
	return out, nil
}
