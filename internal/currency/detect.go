package currency

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Detection sources, in the order they are tried.
const (
	SourceExplicit  = "explicit"
	SourceSymbols   = "symbols"
	SourceMagnitude = "magnitude"
	SourceDefault   = "default"
)

// DetectOptions tunes Detect.
type DetectOptions struct {
	ScanRows           int             // descriptions considered for the symbol vote
	HeaderWeight       int             // weight of a symbol found in the balance header
	MagnitudeThreshold decimal.Decimal // mean |amount| above which MagnitudeCurrency is assumed
	MagnitudeCurrency  string
	DefaultCode        string
}

// DefaultDetectOptions returns the standard detection tuning.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		ScanRows:           30,
		HeaderWeight:       5,
		MagnitudeThreshold: decimal.NewFromInt(10000),
		MagnitudeCurrency:  "INR",
		DefaultCode:        DefaultCode,
	}
}

// Input is what the detector looks at.
type Input struct {
	Explicit     string
	Header       string
	Descriptions []string
	Amounts      []decimal.Decimal
}

// Detection is the outcome of Detect.
type Detection struct {
	Code   string
	Source string
	Votes  map[string]int
}

var (
	symbolRunes = map[string]string{
		"₹": "INR",
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
		"¥": "JPY",
	}
	codeToken = regexp.MustCompile(`(?i)\b(inr|rs|usd|eur|gbp|jpy|chf)\b`)
	codeAlias = map[string]string{"RS": "INR", "₹": "INR"}
)

// Votes counts currency evidence in text: symbols and code tokens.
func Votes(text string) map[string]int {
	votes := map[string]int{}
	for sym, code := range symbolRunes {
		if n := strings.Count(text, sym); n > 0 {
			votes[code] += n
		}
	}
	for _, m := range codeToken.FindAllStringSubmatch(text, -1) {
		votes[NormalizeCode(m[1])]++
	}
	return votes
}

// NormalizeCode upper-cases a currency code and maps common aliases.
func NormalizeCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(code), ".")))
	if alias, ok := codeAlias[c]; ok {
		return alias
	}
	return c
}

// Winner returns the code with the most votes. Ties go to the alphabetically
// first code so the result is stable.
func Winner(votes map[string]int) (string, bool) {
	codes := make([]string, 0, len(votes))
	for c, n := range votes {
		if n > 0 {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		return "", false
	}
	sort.Slice(codes, func(i, j int) bool {
		if votes[codes[i]] != votes[codes[j]] {
			return votes[codes[i]] > votes[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return codes[0], true
}

// Detect picks a currency: explicit field first, then a symbol vote over the
// first descriptions and the balance header, then the magnitude heuristic,
// then the default.
func Detect(in Input, opts DetectOptions) Detection {
	if code := NormalizeCode(in.Explicit); code != "" {
		return Detection{Code: code, Source: SourceExplicit}
	}

	votes := map[string]int{}
	limit := opts.ScanRows
	if limit <= 0 || limit > len(in.Descriptions) {
		limit = len(in.Descriptions)
	}
	for _, d := range in.Descriptions[:limit] {
		for c, n := range Votes(d) {
			votes[c] += n
		}
	}
	weight := opts.HeaderWeight
	if weight <= 0 {
		weight = 1
	}
	for c, n := range Votes(in.Header) {
		votes[c] += n * weight
	}
	if code, ok := Winner(votes); ok {
		return Detection{Code: code, Source: SourceSymbols, Votes: votes}
	}

	if len(in.Amounts) > 0 && opts.MagnitudeCurrency != "" {
		sum := decimal.Zero
		for _, a := range in.Amounts {
			sum = sum.Add(a.Abs())
		}
		mean := sum.Div(decimal.NewFromInt(int64(len(in.Amounts))))
		if mean.GreaterThan(opts.MagnitudeThreshold) {
			return Detection{Code: NormalizeCode(opts.MagnitudeCurrency), Source: SourceMagnitude}
		}
	}

	code := NormalizeCode(opts.DefaultCode)
	if code == "" {
		code = DefaultCode
	}
	return Detection{Code: code, Source: SourceDefault}
}
