// Package normalizer repairs malformed spreadsheet exports of bank statements
// into a clean transaction ledger and flags declared balances the rows do not
// support.
package normalizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fjacquet/stmt-forensics/internal/categorizer"
	"fjacquet/stmt-forensics/internal/currency"
	"fjacquet/stmt-forensics/internal/currencyutils"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/parser"
	"fjacquet/stmt-forensics/internal/workbook"

	"github.com/shopspring/decimal"
)

// Normalizer turns raw workbook bytes into a NormalizedStatement. It holds only
// read-only configuration and is safe for concurrent use.
type Normalizer struct {
	parser.BaseParser
	opts       Options
	classifier *categorizer.Classifier
}

var _ parser.StatementParser = (*Normalizer)(nil)

// New creates a Normalizer. Zero option fields take their defaults and a nil
// classifier uses the built-in rules.
func New(opts Options, classifier *categorizer.Classifier, logger logging.Logger) *Normalizer {
	base := parser.NewBaseParser(logger)
	if classifier == nil {
		classifier = categorizer.New(nil, base.GetLogger())
	}
	return &Normalizer{
		BaseParser: base,
		opts:       opts.withDefaults(),
		classifier: classifier,
	}
}

// Normalize repairs one statement export. It never fails: unreadable input
// yields an empty statement whose repair log says why. If ctx is cancelled the
// parsed rows are discarded and only the log so far is returned.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, filename string) *models.NormalizedStatement {
	start := time.Now()
	logger := n.GetLogger().WithFields(logging.Field{Key: logging.FieldFile, Value: filename})

	stmt := models.NewNormalizedStatement(filename)
	logf := func(format string, args ...any) {
		stmt.RepairLog = append(stmt.RepairLog, fmt.Sprintf(format, args...))
	}
	cancelled := func(err error) *models.NormalizedStatement {
		out := models.NewNormalizedStatement(filename)
		out.RepairLog = append(out.RepairLog, stmt.RepairLog...)
		out.RepairLog = append(out.RepairLog, "cancelled: "+err.Error())
		logger.WithError(err).Warn("Normalization cancelled")
		return out
	}

	logf("normalizing: %s", filename)
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	sheet, strategy, err := workbook.Open(data, filename)
	if err != nil {
		logf("failed to open workbook: %v", err)
		logger.WithError(err).Warn("Failed to open workbook")
		return stmt
	}
	logf("workbook_strategy: %s", strategy)
	logf("sheet: %s, rows=%d, cols=%d", sheet.Name, sheet.MaxRow(), sheet.MaxCol())
	logger.Debug("Workbook decoded",
		logging.Field{Key: logging.FieldStrategy, Value: strategy},
		logging.Field{Key: logging.FieldCount, Value: sheet.MaxRow()})

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	summary := scanSummary(sheet, n.opts)
	stmt.OpeningBalance = summary.opening
	stmt.AccountNumber = summary.accountNumber
	stmt.AccountHolder = summary.accountHolder
	stmt.PeriodFrom = summary.periodFrom
	stmt.PeriodTo = summary.periodTo
	if summary.opening.Valid {
		logf("summary_opening: %s", summary.opening.Decimal.String())
	}
	if summary.closing.Valid {
		logf("summary_closing: %s", summary.closing.Decimal.String())
	}
	if summary.accountNumber != "" {
		logf("account_number: %s", summary.accountNumber)
	}

	headerRow, cols, found := detectHeader(sheet, n.opts.HeaderScanRows)
	if found {
		logf("header_row: %d (%s)", headerRow, cols)
	} else {
		headerRow, cols = 1, defaultLayout
		logf("could not detect header row - attempting column inference")
		logf("header_row: %d (%s)", headerRow, cols)
	}
	stmt.RawHeaders = nonEmpty(sheet.RowCells(headerRow))
	if col, ok := cols.Get(ColBalance); ok {
		stmt.BalanceHeader = sheet.Cell(headerRow, col)
	}

	if v, row, ok := n.openingRow(sheet, headerRow, cols); ok {
		stmt.OpeningBalance = v
		logf("opening_from_row: %s (row %d)", v.Decimal.String(), row)
	}

	scan, err := n.parseRows(ctx, sheet, headerRow+1, cols)
	if err != nil {
		return cancelled(err)
	}
	stmt.RepairLog = append(stmt.RepairLog, scan.log...)
	stmt.Transactions = append(stmt.Transactions, scan.transactions...)
	stmt.DetectedAnomalies = append(stmt.DetectedAnomalies, scan.anomalies...)

	lastBalance := models.LastRunningBalance(stmt.Transactions)
	closing, source := resolveClosing([]closingStrategy{
		{name: "closing_row", resolve: func() decimal.NullDecimal { return scan.closingRow }},
		{name: "closing_inferred_from_last_row", resolve: func() decimal.NullDecimal { return lastBalance }},
		{name: "closing_from_summary", resolve: func() decimal.NullDecimal { return summary.closing }},
	})
	stmt.ClosingBalance = closing
	if source != "" && source != "closing_row" {
		logf("%s: %s", source, closing.Decimal.String())
	}

	if code, ok := n.detectCurrency(stmt); ok {
		stmt.Currency = code
		logf("currency: %s", code)
	}

	if md := checkIntegrity(summary.closing, lastBalance, n.opts.FraudRatio, n.opts.FraudMinDiscrepancy); md != nil {
		stmt.MetadataDiscrepancy = md
		desc := fmt.Sprintf("Declared closing balance %s is %sx the calculated %s",
			currencyutils.FormatAmount(md.HeaderClosing, stmt.Currency), md.Ratio.String(),
			currencyutils.FormatAmount(md.CalculatedClosing, stmt.Currency))
		stmt.DetectedAnomalies = append(stmt.DetectedAnomalies, integrityAnomaly(md, desc))
		logf("CRITICAL: metadata integrity failure: header_closing=%s calculated_closing=%s ratio=%s",
			md.HeaderClosing.String(), md.CalculatedClosing.String(), md.Ratio.String())
		stmt.ClosingBalance = models.Amount(md.HeaderClosing)
		logf("closing_balance preserved as declared: %s", md.HeaderClosing.String())
		logger.Warn("Metadata integrity failure",
			logging.Field{Key: "ratio", Value: md.Ratio.String()})
	}

	if stmt.MetadataDiscrepancy == nil {
		if md := checkIntegrity(stmt.ClosingBalance, lastBalance, n.opts.InjectionRatio, n.opts.FraudMinDiscrepancy); md != nil {
			stmt.MetadataDiscrepancy = md
			desc := fmt.Sprintf("Closing balance %s is %sx the last running balance %s: summary injection suspected",
				currencyutils.FormatAmount(md.HeaderClosing, stmt.Currency), md.Ratio.String(),
				currencyutils.FormatAmount(md.CalculatedClosing, stmt.Currency))
			stmt.DetectedAnomalies = append(stmt.DetectedAnomalies, integrityAnomaly(md, desc))
			logf("CRITICAL: summary injection: closing=%s last_balance=%s ratio=%s",
				md.HeaderClosing.String(), md.CalculatedClosing.String(), md.Ratio.String())
		}
	}

	if a, ok := mergeArtifact(scan.shapes); ok {
		stmt.DetectedAnomalies = append(stmt.DetectedAnomalies, a)
		logf("merge_artifact: %s", a.Description)
	}

	if scan.garbageRows > 0 {
		logf("garbage_rows_skipped: %d", scan.garbageRows)
	}
	if scan.headerRows > 0 {
		logf("header_rows_skipped: %d", scan.headerRows)
	}
	logf("parsed: %d transactions, opening=%s, closing=%s",
		len(stmt.Transactions), formatNull(stmt.OpeningBalance), formatNull(stmt.ClosingBalance))

	logger.Info("Statement normalized",
		logging.Field{Key: logging.FieldCount, Value: len(stmt.Transactions)},
		logging.Field{Key: "anomalies", Value: len(stmt.DetectedAnomalies)},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})
	return stmt
}

// openingRow looks just below the header for a row reading OPENING BALANCE and
// returns the value of its balance column.
func (n *Normalizer) openingRow(sheet *workbook.Sheet, headerRow int, cols ColumnMap) (decimal.NullDecimal, int, bool) {
	balanceCol, ok := cols.Get(ColBalance)
	if !ok {
		return models.NoAmount, 0, false
	}
	last := min(headerRow+n.opts.OpeningScanRows, sheet.MaxRow())
	lastCol := min(n.opts.SummaryScanCols, sheet.MaxCol())
	for r := headerRow + 1; r <= last; r++ {
		for c := 1; c <= lastCol; c++ {
			if !strings.Contains(strings.ToUpper(sheet.Cell(r, c)), "OPENING BALANCE") {
				continue
			}
			if v := currencyutils.ParseNullAmount(sheet.Cell(r, balanceCol)); v.Valid {
				return v, r, true
			}
		}
	}
	return models.NoAmount, 0, false
}

// detectCurrency votes over the first descriptions and the header row, the
// header counting HeaderSymbolWeight times.
func (n *Normalizer) detectCurrency(stmt *models.NormalizedStatement) (string, bool) {
	votes := map[string]int{}
	for i, tx := range stmt.Transactions {
		if i >= n.opts.CurrencyScanRows {
			break
		}
		for code, c := range currency.Votes(tx.Description) {
			votes[code] += c
		}
	}
	for code, c := range currency.Votes(strings.Join(stmt.RawHeaders, " ")) {
		votes[code] += c * n.opts.HeaderSymbolWeight
	}
	return currency.Winner(votes)
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func formatNull(v decimal.NullDecimal) string {
	if !v.Valid {
		return "none"
	}
	return v.Decimal.String()
}
