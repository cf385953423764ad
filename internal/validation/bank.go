package validation

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/stmt-forensics/internal/currency"
	"fjacquet/stmt-forensics/internal/currencyutils"
	"fjacquet/stmt-forensics/internal/dateutils"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/textutils"

	"github.com/shopspring/decimal"
)

// maxVelocityExamples caps the keys quoted in a velocity warning.
const maxVelocityExamples = 3

// ledger is the per-call view of a statement's transactions.
type ledger struct {
	txs          []models.TransactionRecord
	amounts      []decimal.Decimal // known amounts only
	balances     []decimal.Decimal // known running balances only
	descriptions []string
	dates        []time.Time // zero when the row has no usable date
	badDates     int
}

func newLedger(txs []models.TransactionRecord) ledger {
	l := ledger{
		txs:          txs,
		descriptions: make([]string, len(txs)),
		dates:        make([]time.Time, len(txs)),
	}
	for i, tx := range txs {
		if tx.Amount.Valid {
			l.amounts = append(l.amounts, tx.Amount.Decimal)
		}
		if tx.RunningBalance.Valid {
			l.balances = append(l.balances, tx.RunningBalance.Decimal)
		}
		l.descriptions[i] = tx.Description
		if d, ok := txDate(tx); ok {
			l.dates[i] = d
		} else if tx.DateToken() != "" {
			l.badDates++
		}
	}
	return l
}

// txDate parses the normalized date, falling back to the raw source text.
func txDate(tx models.TransactionRecord) (time.Time, bool) {
	if tx.Date != "" {
		if d, ok := dateutils.ParseDate(tx.Date); ok {
			return d, true
		}
	}
	if tx.RawDate != "" {
		return dateutils.ParseDate(tx.RawDate)
	}
	return time.Time{}, false
}

func (e *Engine) validateBankStatement(fields models.ExtractedFields, result *models.ValidationResult) {
	det, profile := e.DetectCurrency(fields)
	e.logger.Debug("Currency resolved",
		logging.Field{Key: logging.FieldCurrency, Value: det.Code},
		logging.Field{Key: logging.FieldStrategy, Value: det.Source})

	l := newLedger(fields.Transactions)
	e.checkContinuity(fields, l, result)
	if len(l.txs) == 0 {
		return
	}
	e.checkDateSequence(l, result)
	e.checkUnparseableDates(l, result)
	e.checkRunningBalances(l, result)
	e.checkClosingAgainstRows(fields, l, profile, result)
	e.checkBenford(l, result)
	e.checkRoundNumbers(l, det.Code, profile, result)
	e.checkStructuring(l, result)
	e.checkVelocity(l, result)
	e.checkCashflow(l, result)
	e.checkMixedDateFormats(l, result)
	e.checkSynthetic(l, result)
}

// checkContinuity verifies opening + Σ amounts = closing.
func (e *Engine) checkContinuity(fields models.ExtractedFields, l ledger, result *models.ValidationResult) {
	if !fields.OpeningBalance.Valid || !fields.ClosingBalance.Valid || len(l.txs) == 0 {
		return
	}
	total := decimal.Sum(decimal.Zero, l.amounts...)
	expected := fields.OpeningBalance.Decimal.Add(total)
	if models.WithinTolerance(expected, fields.ClosingBalance.Decimal, decimal.NewFromFloat(e.rules.BalanceTolerance)) {
		return
	}
	issue := models.Issue{
		Field:   "closing_balance",
		Check:   "continuity",
		Message: "Opening balance plus transactions does not match closing balance.",
		Details: map[string]any{
			"expected": models.Float(expected),
			"actual":   models.Float(fields.ClosingBalance.Decimal),
		},
	}
	if len(l.txs) < e.rules.ContinuityMinTxns {
		issue.Severity = models.SeverityInfo
		result.AddWarning(issue)
		return
	}
	issue.Severity = models.SeverityCritical
	result.AddError(issue)
}

func (e *Engine) checkDateSequence(l ledger, result *models.ValidationResult) {
	violations := 0
	var last time.Time
	for _, d := range l.dates {
		if d.IsZero() {
			continue
		}
		if !last.IsZero() && d.Before(last) {
			violations++
		}
		last = d
	}
	if violations == 0 {
		return
	}
	sev := models.SeverityWarning
	if violations >= e.rules.DateViolationCritical {
		sev = models.SeverityCritical
	}
	result.AddWarning(models.Issue{
		Field:    "transactions",
		Check:    "date_sequence",
		Message:  "Transaction dates are not in sequence.",
		Severity: sev,
		Details:  map[string]any{"count": violations},
	})
}

func (e *Engine) checkUnparseableDates(l ledger, result *models.ValidationResult) {
	if l.badDates == 0 {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "transactions",
		Check:    "invalid_date",
		Message:  "Invalid or impossible transaction date detected.",
		Severity: models.SeverityWarning,
		Details:  map[string]any{"count": l.badDates},
	})
}

// checkRunningBalances reconciles each balance with the previous one plus the
// row amount. Rows without a balance carry the previous balance forward.
func (e *Engine) checkRunningBalances(l ledger, result *models.ValidationResult) {
	tol := decimal.NewFromFloat(e.rules.BalanceTolerance)
	mismatches := 0
	var prev decimal.NullDecimal
	for _, tx := range l.txs {
		if prev.Valid && tx.Amount.Valid && tx.RunningBalance.Valid {
			if !models.WithinTolerance(prev.Decimal.Add(tx.Amount.Decimal), tx.RunningBalance.Decimal, tol) {
				mismatches++
			}
		}
		if tx.RunningBalance.Valid {
			prev = tx.RunningBalance
		}
	}
	if mismatches == 0 {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "balance",
		Check:    "running_balance",
		Message:  "Running balance does not reconcile for some rows.",
		Severity: models.SeverityWarning,
		Details:  map[string]any{"count": mismatches},
	})
}

// checkClosingAgainstRows compares the declared closing balance with the rows:
// the last running balance, then the typical balance magnitude.
func (e *Engine) checkClosingAgainstRows(fields models.ExtractedFields, l ledger, profile currency.Profile, result *models.ValidationResult) {
	if !fields.ClosingBalance.Valid || len(l.balances) == 0 {
		return
	}
	closing := fields.ClosingBalance.Decimal

	last := models.LastRunningBalance(l.txs).Decimal
	if !models.WithinTolerance(last, closing, decimal.NewFromFloat(e.rules.BalanceTolerance)) {
		result.AddWarning(models.Issue{
			Field:    "closing_balance",
			Check:    "closing_vs_last_row",
			Message:  "Closing balance does not match last row balance (summary injection).",
			Severity: models.SeverityCritical,
			Details: map[string]any{
				"expected": models.Float(last),
				"actual":   models.Float(closing),
			},
		})
	}

	median, _ := upperMedian(l.balances)
	if median.IsZero() {
		return
	}
	if closing.Abs().GreaterThan(median.Abs().Mul(profile.OutlierFactor)) {
		result.AddWarning(models.Issue{
			Field:    "closing_balance",
			Check:    "closing_magnitude",
			Message:  "Closing balance magnitude is far outside the transaction balance range.",
			Severity: models.SeverityCritical,
			Details: map[string]any{
				"median_balance":  models.Float(median),
				"closing_balance": models.Float(closing),
				"outlier_factor":  models.Float(profile.OutlierFactor),
			},
		})
	}
}

// checkBenford flags amounts whose leading digit is 1 far less often than
// naturally occurring figures would have it.
func (e *Engine) checkBenford(l ledger, result *models.ValidationResult) {
	var counts [10]int
	total := 0
	for _, a := range l.amounts {
		if d, ok := currencyutils.LeadingDigit(a); ok {
			counts[d]++
			total++
		}
	}
	if total < e.rules.BenfordMinSamples {
		return
	}
	r := ratio(counts[1], total)
	if r >= e.rules.BenfordMinRatio {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "benford",
		Check:    "benford",
		Message:  fmt.Sprintf("Benford distribution deviates (leading digit '1' under %.0f%%).", e.rules.BenfordMinRatio*100),
		Severity: models.SeverityWarning,
		Details: map[string]any{
			"ratio":        round3(r),
			"sample_count": total,
		},
	})
}

func (e *Engine) checkRoundNumbers(l ledger, code string, profile currency.Profile, result *models.ValidationResult) {
	nonZero, round := 0, 0
	for _, a := range l.amounts {
		if a.IsZero() {
			continue
		}
		nonZero++
		abs := a.Abs()
		if abs.GreaterThanOrEqual(profile.MinRoundValue) && currencyutils.IsMultipleOf(abs, profile.RoundUnit) {
			round++
		}
	}
	if nonZero == 0 {
		return
	}
	r := ratio(round, nonZero)
	if r <= e.rules.RoundRatio {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "round_numbers",
		Check:    "round_numbers",
		Message:  "High frequency of round-number transactions.",
		Severity: models.SeverityWarning,
		Details: map[string]any{
			"ratio":       round3(r),
			"round_count": round,
			"total_count": nonZero,
			"currency":    code,
			"round_unit":  models.Float(profile.RoundUnit),
		},
	})
}

// checkStructuring looks for deposits clustered just below the high percentile.
func (e *Engine) checkStructuring(l ledger, result *models.ValidationResult) {
	var positives []float64
	for _, a := range l.amounts {
		if a.IsPositive() {
			positives = append(positives, models.Float(a))
		}
	}
	high, ok := percentile(positives, e.rules.StructuringPercentile)
	if !ok || high == 0 {
		return
	}
	band := high * e.rules.StructuringBand
	hits := 0
	for _, v := range positives {
		if v >= high-band && v <= high {
			hits++
		}
	}
	if hits < e.rules.StructuringMinHits {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "structuring",
		Check:    "structuring",
		Message:  "Potential structuring detected (cluster near high-percentile deposit).",
		Severity: models.SeverityWarning,
		Details: map[string]any{
			"count":     hits,
			"threshold": high,
		},
	})
}

// checkVelocity looks for many small same-day payments to one counterparty.
func (e *Engine) checkVelocity(l ledger, result *models.ValidationResult) {
	abs := make([]float64, 0, len(l.amounts))
	for _, a := range l.amounts {
		abs = append(abs, models.Float(a.Abs()))
	}
	small, ok := percentile(abs, e.rules.VelocityPercentile)
	if !ok {
		return
	}

	type bucket struct{ count, small int }
	buckets := map[string]*bucket{}
	var order []string
	for i, tx := range l.txs {
		if l.dates[i].IsZero() || !tx.Amount.Valid {
			continue
		}
		cp := textutils.NormalizeCounterparty(tx.Description)
		if cp == "" {
			continue
		}
		key := dateutils.ToISODate(l.dates[i]) + "::" + cp
		b, seen := buckets[key]
		if !seen {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
		if models.Float(tx.Amount.Decimal.Abs()) <= small {
			b.small++
		}
	}

	var hits []string
	for _, key := range order {
		b := buckets[key]
		if b.count >= e.rules.VelocityMinHits && b.small >= e.rules.VelocityMinHits {
			hits = append(hits, key)
		}
	}
	if len(hits) == 0 {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "velocity",
		Check:    "velocity",
		Message:  "High-frequency same-day counterparty payments detected (velocity anomaly).",
		Severity: models.SeverityWarning,
		Details: map[string]any{
			"examples": hits[:min(len(hits), maxVelocityExamples)],
			"count":    len(hits),
		},
	})
}

func (e *Engine) checkCashflow(l ledger, result *models.ValidationResult) {
	in, out := decimal.Zero, decimal.Zero
	for _, tx := range l.txs {
		switch {
		case tx.IsCredit():
			in = in.Add(tx.Amount.Decimal)
		case tx.IsDebit():
			out = out.Add(tx.Amount.Decimal.Abs())
		}
	}
	if in.IsPositive() && out.IsZero() {
		result.AddWarning(models.Issue{
			Field:    "cashflow",
			Check:    "ghost_lifestyle",
			Message:  "Income present with zero expenses (ghost lifestyle pattern).",
			Severity: models.SeverityWarning,
		})
	}

	if len(l.balances) == 0 {
		return
	}
	negative := 0
	for _, b := range l.balances {
		if b.IsNegative() {
			negative++
		}
	}
	r := ratio(negative, len(l.balances))
	if r > e.rules.NegativeBalanceRatio {
		result.AddWarning(models.Issue{
			Field:    "cashflow",
			Check:    "negative_balances",
			Message:  "Sustained negative balances detected.",
			Severity: models.SeverityWarning,
			Details:  map[string]any{"ratio": round3(r)},
		})
	}
}

// checkMixedDateFormats reports raw dates written both with month names and
// purely numerically.
func (e *Engine) checkMixedDateFormats(l ledger, result *models.ValidationResult) {
	monthName, numeric := false, false
	for _, tx := range l.txs {
		switch dateutils.ClassifyShape(tx.DateToken()) {
		case dateutils.ShapeMonthName:
			monthName = true
		case dateutils.ShapeNumeric, dateutils.ShapeISO:
			numeric = true
		}
	}
	if !monthName || !numeric {
		return
	}
	result.AddWarning(models.Issue{
		Field:    "transactions",
		Check:    "mixed_date_format",
		Message:  "Mixed date formats detected (possible merge artifact).",
		Severity: models.SeverityInfo,
	})
}

func (e *Engine) checkSynthetic(l ledger, result *models.ValidationResult) {
	unique := map[string]bool{}
	for _, d := range l.descriptions {
		if key := strings.ToLower(strings.TrimSpace(d)); key != "" {
			unique[key] = true
		}
	}
	n := len(l.descriptions)

	repetition := 1 - ratio(len(unique), max(1, n))
	if repetition > e.rules.RepetitionRatio {
		result.AddWarning(models.Issue{
			Field:    "synthetic",
			Check:    "repetition",
			Message:  "Unusually repetitive transaction descriptions detected (synthetic pattern).",
			Severity: models.SeverityWarning,
			Details:  map[string]any{"ratio": round3(repetition)},
		})
	}
	if len(unique) <= e.rules.MinUniqueDescriptions && n >= e.rules.SyntheticMinRows {
		result.AddWarning(models.Issue{
			Field:    "synthetic",
			Check:    "low_diversity",
			Message:  "Very low description diversity detected (synthetic pattern).",
			Severity: models.SeverityWarning,
			Details:  map[string]any{"unique_descriptions": len(unique)},
		})
	}
}
