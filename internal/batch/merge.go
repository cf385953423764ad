// Package batch analyzes documents end to end: it merges normalizer output
// with externally extracted fields, validates, scores, and re-runs whole
// directories against the statement history.
package batch

import (
	"fjacquet/stmt-forensics/internal/models"
)

// MergeFields combines externally extracted fields with a normalized
// statement. The normalizer's ledger replaces the extracted one when it has
// more rows; its balances, currency and discrepancy win when present. Other
// metadata is only filled in where the extraction left it empty.
func MergeFields(extracted models.ExtractedFields, stmt *models.NormalizedStatement) models.ExtractedFields {
	if stmt == nil {
		return extracted
	}
	merged := extracted

	if len(stmt.Transactions) > len(extracted.Transactions) {
		merged.Transactions = stmt.Transactions
	}
	if stmt.OpeningBalance.Valid {
		merged.OpeningBalance = stmt.OpeningBalance
	}
	if stmt.ClosingBalance.Valid {
		merged.ClosingBalance = stmt.ClosingBalance
	}
	if stmt.Currency != "" {
		merged.Currency = stmt.Currency
	}
	if stmt.MetadataDiscrepancy != nil {
		merged.MetadataDiscrepancy = stmt.MetadataDiscrepancy
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&merged.AccountNumber, stmt.AccountNumber)
	fill(&merged.AccountHolder, stmt.AccountHolder)
	fill(&merged.PeriodFrom, stmt.PeriodFrom)
	fill(&merged.PeriodTo, stmt.PeriodTo)
	fill(&merged.BalanceHeader, stmt.BalanceHeader)
	return merged
}
