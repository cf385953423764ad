package validation

import (
	"errors"
	"fmt"

	"fjacquet/stmt-forensics/internal/currency"

	"github.com/shopspring/decimal"
)

// Rules holds every threshold the engine uses. Rules are configuration: they
// are passed to NewEngine by value and never changed by the engine.
type Rules struct {
	BalanceTolerance  float64 `mapstructure:"balance_tolerance" yaml:"balance_tolerance" json:"balance_tolerance"`
	InvoiceTolerance  float64 `mapstructure:"invoice_tolerance" yaml:"invoice_tolerance" json:"invoice_tolerance"`
	PayslipTolerance  float64 `mapstructure:"payslip_tolerance" yaml:"payslip_tolerance" json:"payslip_tolerance"`
	ContinuityMinTxns int     `mapstructure:"continuity_min_transactions" yaml:"continuity_min_transactions" json:"continuity_min_transactions"`

	BenfordMinSamples int     `mapstructure:"benford_min_samples" yaml:"benford_min_samples" json:"benford_min_samples"`
	BenfordMinRatio   float64 `mapstructure:"benford_min_ratio" yaml:"benford_min_ratio" json:"benford_min_ratio"`
	RoundRatio        float64 `mapstructure:"round_ratio" yaml:"round_ratio" json:"round_ratio"`

	StructuringPercentile float64 `mapstructure:"structuring_percentile" yaml:"structuring_percentile" json:"structuring_percentile"`
	StructuringBand       float64 `mapstructure:"structuring_band" yaml:"structuring_band" json:"structuring_band"`
	StructuringMinHits    int     `mapstructure:"structuring_min_hits" yaml:"structuring_min_hits" json:"structuring_min_hits"`
	VelocityPercentile    float64 `mapstructure:"velocity_percentile" yaml:"velocity_percentile" json:"velocity_percentile"`
	VelocityMinHits       int     `mapstructure:"velocity_min_hits" yaml:"velocity_min_hits" json:"velocity_min_hits"`

	NegativeBalanceRatio  float64 `mapstructure:"negative_balance_ratio" yaml:"negative_balance_ratio" json:"negative_balance_ratio"`
	RepetitionRatio       float64 `mapstructure:"repetition_ratio" yaml:"repetition_ratio" json:"repetition_ratio"`
	MinUniqueDescriptions int     `mapstructure:"min_unique_descriptions" yaml:"min_unique_descriptions" json:"min_unique_descriptions"`
	SyntheticMinRows      int     `mapstructure:"synthetic_min_rows" yaml:"synthetic_min_rows" json:"synthetic_min_rows"`
	DateViolationCritical int     `mapstructure:"date_violation_critical" yaml:"date_violation_critical" json:"date_violation_critical"`

	CurrencyScanRows   int     `mapstructure:"currency_scan_rows" yaml:"currency_scan_rows" json:"currency_scan_rows"`
	HeaderSymbolWeight int     `mapstructure:"header_symbol_weight" yaml:"header_symbol_weight" json:"header_symbol_weight"`
	MagnitudeThreshold float64 `mapstructure:"magnitude_threshold" yaml:"magnitude_threshold" json:"magnitude_threshold"`
	MagnitudeCurrency  string  `mapstructure:"magnitude_currency" yaml:"magnitude_currency" json:"magnitude_currency"`
}

// DefaultRules returns the calibrated thresholds.
func DefaultRules() Rules {
	return Rules{
		BalanceTolerance:      0.05,
		InvoiceTolerance:      0.02,
		PayslipTolerance:      0.05,
		ContinuityMinTxns:     3,
		BenfordMinSamples:     20,
		BenfordMinRatio:       0.25,
		RoundRatio:            0.30,
		StructuringPercentile: 90,
		StructuringBand:       0.01,
		StructuringMinHits:    3,
		VelocityPercentile:    30,
		VelocityMinHits:       3,
		NegativeBalanceRatio:  0.5,
		RepetitionRatio:       0.8,
		MinUniqueDescriptions: 2,
		SyntheticMinRows:      10,
		DateViolationCritical: 5,
		CurrencyScanRows:      30,
		HeaderSymbolWeight:    5,
		MagnitudeThreshold:    10000,
		MagnitudeCurrency:     currency.DefaultCode,
	}
}

// Validate checks that the thresholds make sense.
func (r Rules) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"balance_tolerance", r.BalanceTolerance},
		{"invoice_tolerance", r.InvoiceTolerance},
		{"payslip_tolerance", r.PayslipTolerance},
	} {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"benford_min_ratio", r.BenfordMinRatio},
		{"round_ratio", r.RoundRatio},
		{"structuring_band", r.StructuringBand},
		{"negative_balance_ratio", r.NegativeBalanceRatio},
		{"repetition_ratio", r.RepetitionRatio},
	} {
		if f.v <= 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0,1], got %v", f.name, f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"structuring_percentile", r.StructuringPercentile},
		{"velocity_percentile", r.VelocityPercentile},
	} {
		if f.v <= 0 || f.v > 100 {
			errs = append(errs, fmt.Errorf("%s must be in (0,100], got %v", f.name, f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"benford_min_samples", r.BenfordMinSamples},
		{"structuring_min_hits", r.StructuringMinHits},
		{"velocity_min_hits", r.VelocityMinHits},
		{"synthetic_min_rows", r.SyntheticMinRows},
		{"date_violation_critical", r.DateViolationCritical},
		{"currency_scan_rows", r.CurrencyScanRows},
		{"header_symbol_weight", r.HeaderSymbolWeight},
	} {
		if f.v < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", f.name, f.v))
		}
	}
	if r.ContinuityMinTxns < 0 || r.MinUniqueDescriptions < 0 {
		errs = append(errs, errors.New("continuity_min_transactions and min_unique_descriptions must not be negative"))
	}
	return errors.Join(errs...)
}

// detectOptions maps the currency-related rules onto detector options.
func (r Rules) detectOptions(defaultCode string) currency.DetectOptions {
	return currency.DetectOptions{
		ScanRows:           r.CurrencyScanRows,
		HeaderWeight:       r.HeaderSymbolWeight,
		MagnitudeThreshold: decimal.NewFromFloat(r.MagnitudeThreshold),
		MagnitudeCurrency:  r.MagnitudeCurrency,
		DefaultCode:        defaultCode,
	}
}
