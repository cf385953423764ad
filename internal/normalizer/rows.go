package normalizer

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/stmt-forensics/internal/currencyutils"
	"fjacquet/stmt-forensics/internal/dateutils"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/textutils"
	"fjacquet/stmt-forensics/internal/workbook"

	"github.com/shopspring/decimal"
)

// ctxCheckInterval is how many rows are parsed between cancellation checks.
const ctxCheckInterval = 256

// garbagePreview is how much of a garbage description is quoted in its anomaly.
const garbagePreview = 60

// summaryLabels are descriptions that mark non-transaction rows.
var summaryLabels = map[string]bool{
	"OPENING BALANCE":   true,
	"CLOSING BALANCE":   true,
	"TRANSACTION TOTAL": true,
	"TOTAL":             true,
	"":                  true,
}

// rowScan accumulates everything the row-by-row pass produces.
type rowScan struct {
	transactions []models.TransactionRecord
	anomalies    []models.Anomaly
	log          []string
	closingRow   decimal.NullDecimal
	shapes       map[dateutils.Shape]int
	garbageRows  int
	headerRows   int
}

func (s *rowScan) logf(format string, args ...any) {
	s.log = append(s.log, fmt.Sprintf(format, args...))
}

// rowCells are the mapped cells of one sheet row.
type rowCells struct {
	date, description, debit, credit, balance, cheque, amount string
}

func readRow(sheet *workbook.Sheet, r int, cols ColumnMap) rowCells {
	get := func(c Column) string {
		if col, ok := cols.Get(c); ok {
			return sheet.Cell(r, col)
		}
		return ""
	}
	return rowCells{
		date:        get(ColDate),
		description: get(ColDescription),
		debit:       get(ColDebit),
		credit:      get(ColCredit),
		balance:     get(ColBalance),
		cheque:      get(ColCheque),
		amount:      get(ColAmount),
	}
}

func (c rowCells) empty() bool {
	return c.date == "" && c.description == "" && c.debit == "" && c.credit == "" &&
		c.balance == "" && c.amount == ""
}

func (c rowCells) hasHeaderText() bool {
	for _, v := range []string{c.date, c.description, c.debit, c.credit, c.balance, c.amount} {
		if isHeaderText(v) {
			return true
		}
	}
	return false
}

// parseRows walks the sheet from startRow until EmptyRowLimit consecutive empty
// rows are seen. It returns ctx.Err() if cancelled part way.
func (n *Normalizer) parseRows(ctx context.Context, sheet *workbook.Sheet, startRow int, cols ColumnMap) (*rowScan, error) {
	scan := &rowScan{shapes: map[dateutils.Shape]int{}}
	_, hasDebit := cols.Get(ColDebit)
	_, hasCredit := cols.Get(ColCredit)
	_, hasAmount := cols.Get(ColAmount)

	emptyStreak := 0
	for r := startRow; r <= sheet.MaxRow(); r++ {
		if (r-startRow)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells := readRow(sheet, r, cols)
		if cells.empty() {
			emptyStreak++
			if emptyStreak >= n.opts.EmptyRowLimit {
				scan.logf("end of data after %d empty rows at row %d", emptyStreak, r)
				break
			}
			continue
		}
		emptyStreak = 0

		// Summary labels go first: "closing balance" is also a balance header alias.
		label := strings.ToUpper(strings.TrimSpace(cells.description))
		if label != "" && summaryLabels[label] {
			if label == "CLOSING BALANCE" && !scan.closingRow.Valid {
				if v := currencyutils.ParseNullAmount(cells.balance); v.Valid {
					scan.closingRow = v
					scan.logf("closing_from_transactions: %s", v.Decimal.String())
				}
			}
			continue
		}

		if cells.hasHeaderText() {
			scan.headerRows++
			scan.logf("skipped header-text row %d", r)
			continue
		}
		if label == "" {
			continue
		}

		if textutils.IsGarbageText(cells.description, n.opts.GarbageAlnumRatio) {
			scan.garbageRows++
			scan.anomalies = append(scan.anomalies, models.Anomaly{
				Type:        models.AnomalyGarbageText,
				Severity:    models.SeverityWarning,
				Description: "OCR garbage detected: " + textutils.Truncate(cells.description, garbagePreview),
				RowIndex:    r,
			})
			continue
		}

		debit := currencyutils.ParseNullAmount(cells.debit)
		credit := currencyutils.ParseNullAmount(cells.credit)
		balance := currencyutils.ParseNullAmount(cells.balance)
		signed := currencyutils.ParseNullAmount(cells.amount)

		date, _, dateOK := dateutils.ParseStatementDate(cells.date)
		if !dateOK && !debit.Valid && !credit.Valid && !balance.Valid && !signed.Valid {
			scan.logf("skipped non-date row %d: date='%s'", r, cells.date)
			continue
		}

		amount, txType := resolveAmount(debit, credit, signed, hasDebit || hasCredit, hasAmount)
		if !amount.Valid && !balance.Valid {
			scan.logf("skipped phantom row %d: no amount or balance", r)
			continue
		}

		isoDate := ""
		if dateOK {
			isoDate = dateutils.ToISODate(date)
			if shape := dateutils.ClassifyShape(cells.date); shape != dateutils.ShapeNone {
				scan.shapes[shape]++
			}
		}

		classified := n.classifier.Classify(cells.description, amount.Decimal)
		scan.transactions = append(scan.transactions, models.TransactionRecord{
			Date:           isoDate,
			RawDate:        cells.date,
			Description:    cells.description,
			Amount:         amount,
			RunningBalance: balance,
			Type:           txType,
			Category:       classified.Category,
			Counterparty:   classified.Counterparty,
			SourceRowIndex: r,
			ChequeNumber:   cells.cheque,
		})
	}
	return scan, nil
}

// resolveAmount turns the debit, credit and single-amount cells into one signed
// amount. A positive debit wins over a credit on the same row.
func resolveAmount(debit, credit, signed decimal.NullDecimal, splitColumns, amountColumn bool) (decimal.NullDecimal, models.TransactionType) {
	switch {
	case debit.Valid && debit.Decimal.IsPositive():
		return models.Amount(debit.Decimal.Abs().Neg()), models.TxDebit
	case credit.Valid && credit.Decimal.IsPositive():
		return models.Amount(credit.Decimal), models.TxCredit
	case credit.Valid:
		return credit, models.TxUnknown
	case debit.Valid:
		return models.Amount(debit.Decimal.Abs().Neg()), models.TxUnknown
	}
	if !splitColumns || amountColumn {
		if signed.Valid {
			switch {
			case signed.Decimal.IsPositive():
				return signed, models.TxCredit
			case signed.Decimal.IsNegative():
				return signed, models.TxDebit
			}
			return signed, models.TxUnknown
		}
	}
	return models.NoAmount, models.TxUnknown
}
