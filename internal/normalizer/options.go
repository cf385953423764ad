package normalizer

import (
	"github.com/shopspring/decimal"
)

// Options tunes the repair heuristics. The defaults reproduce the behaviour the
// heuristics were calibrated with; they are configuration, not derived values.
type Options struct {
	SummaryScanRows     int             // rows searched for summary balances and account metadata
	SummaryScanCols     int             // columns searched in the summary and opening-row scans
	HeaderScanRows      int             // rows searched for the header row
	OpeningScanRows     int             // rows below the header searched for an OPENING BALANCE row
	EmptyRowLimit       int             // consecutive empty rows that end the data
	GarbageAlnumRatio   float64         // minimum alnum share of a readable description
	FraudRatio          decimal.Decimal // declared/calculated closing ratio that signals tampering
	FraudMinDiscrepancy decimal.Decimal // absolute discrepancy below which nothing is flagged
	InjectionRatio      decimal.Decimal // closing/last-balance ratio that signals summary injection
	CurrencyScanRows    int             // descriptions considered for currency detection
	HeaderSymbolWeight  int             // weight of a currency symbol found in the header row
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		SummaryScanRows:     25,
		SummaryScanCols:     9,
		HeaderScanRows:      30,
		OpeningScanRows:     4,
		EmptyRowLimit:       10,
		GarbageAlnumRatio:   0.3,
		FraudRatio:          decimal.NewFromInt(5),
		FraudMinDiscrepancy: decimal.NewFromInt(1),
		InjectionRatio:      decimal.NewFromInt(50),
		CurrencyScanRows:    30,
		HeaderSymbolWeight:  5,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SummaryScanRows <= 0 {
		o.SummaryScanRows = d.SummaryScanRows
	}
	if o.SummaryScanCols <= 0 {
		o.SummaryScanCols = d.SummaryScanCols
	}
	if o.HeaderScanRows <= 0 {
		o.HeaderScanRows = d.HeaderScanRows
	}
	if o.OpeningScanRows <= 0 {
		o.OpeningScanRows = d.OpeningScanRows
	}
	if o.EmptyRowLimit <= 0 {
		o.EmptyRowLimit = d.EmptyRowLimit
	}
	if o.GarbageAlnumRatio <= 0 {
		o.GarbageAlnumRatio = d.GarbageAlnumRatio
	}
	if !o.FraudRatio.IsPositive() {
		o.FraudRatio = d.FraudRatio
	}
	if o.FraudMinDiscrepancy.IsNegative() || o.FraudMinDiscrepancy.IsZero() {
		o.FraudMinDiscrepancy = d.FraudMinDiscrepancy
	}
	if !o.InjectionRatio.IsPositive() {
		o.InjectionRatio = d.InjectionRatio
	}
	if o.CurrencyScanRows <= 0 {
		o.CurrencyScanRows = d.CurrencyScanRows
	}
	if o.HeaderSymbolWeight <= 0 {
		o.HeaderSymbolWeight = d.HeaderSymbolWeight
	}
	return o
}
