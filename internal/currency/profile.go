// Package currency resolves currency-aware thresholds for the statistical detectors
// and detects the currency of a statement.
package currency

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCode is used when nothing better is known.
const DefaultCode = "INR"

// Profile holds the per-currency thresholds used by the round-number and
// magnitude detectors. Profiles are values and are never mutated after load.
type Profile struct {
	RoundUnit     decimal.Decimal `json:"round_unit" yaml:"round_unit" mapstructure:"round_unit"`
	MinRoundValue decimal.Decimal `json:"min_round_value" yaml:"min_round_value" mapstructure:"min_round_value"`
	OutlierFactor decimal.Decimal `json:"outlier_factor" yaml:"outlier_factor" mapstructure:"outlier_factor"`
}

// NewProfile builds a profile from integer thresholds.
func NewProfile(roundUnit, minRoundValue, outlierFactor int64) Profile {
	return Profile{
		RoundUnit:     decimal.NewFromInt(roundUnit),
		MinRoundValue: decimal.NewFromInt(minRoundValue),
		OutlierFactor: decimal.NewFromInt(outlierFactor),
	}
}

// Valid reports whether every threshold is positive.
func (p Profile) Valid() bool {
	return p.RoundUnit.IsPositive() && p.MinRoundValue.IsPositive() && p.OutlierFactor.IsPositive()
}

// DefaultProfile applies to unrecognized currencies.
var DefaultProfile = NewProfile(100, 100, 50)

// builtinProfiles returns a fresh copy of the built-in table.
func builtinProfiles() map[string]Profile {
	return map[string]Profile{
		"INR": NewProfile(100, 100, 50),
		"USD": NewProfile(50, 100, 50),
		"EUR": NewProfile(50, 100, 50),
		"GBP": NewProfile(50, 100, 50),
		"CHF": NewProfile(50, 100, 50),
		"JPY": NewProfile(1000, 1000, 50),
	}
}

// Resolver maps currency codes to profiles. It is safe for concurrent use
// because it is never written after construction.
type Resolver struct {
	profiles    map[string]Profile
	defaultCode string
}

// NewResolver merges overrides over the built-in table. Override keys are
// case-insensitive; invalid override profiles are ignored.
func NewResolver(defaultCode string, overrides map[string]Profile) *Resolver {
	profiles := builtinProfiles()
	for code, p := range overrides {
		if !p.Valid() {
			continue
		}
		profiles[strings.ToUpper(strings.TrimSpace(code))] = p
	}
	defaultCode = strings.ToUpper(strings.TrimSpace(defaultCode))
	if defaultCode == "" {
		defaultCode = DefaultCode
	}
	return &Resolver{profiles: profiles, defaultCode: defaultCode}
}

// DefaultCode returns the configured fallback currency.
func (r *Resolver) DefaultCode() string {
	return r.defaultCode
}

// Profile returns the profile for code. Unknown codes get DefaultProfile and false.
func (r *Resolver) Profile(code string) (Profile, bool) {
	p, ok := r.profiles[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return DefaultProfile, false
	}
	return p, true
}

// Codes lists the known currency codes in sorted order.
func (r *Resolver) Codes() []string {
	codes := make([]string, 0, len(r.profiles))
	for c := range r.profiles {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Profiles returns a copy of the effective profile table.
func (r *Resolver) Profiles() map[string]Profile {
	out := make(map[string]Profile, len(r.profiles))
	for c, p := range r.profiles {
		out[c] = p
	}
	return out
}
