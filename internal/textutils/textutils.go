// Package textutils provides text heuristics for statement descriptions:
// OCR garbage detection, counterparty normalization and title casing.
package textutils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultGarbageRatio is the minimum share of letters, digits and spaces a
// description longer than GarbageMinLength must carry to be treated as text.
const (
	DefaultGarbageRatio = 0.3
	GarbageMinLength    = 5
)

// garbagePatterns are corrupted-OCR fragments seen in real statement exports.
var garbagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`unrings\s+icease`),
	regexp.MustCompile(`pherate.*vumar`),
	regexp.MustCompile(`0511\s*nn`),
}

var (
	nonAlnumSpace = regexp.MustCompile(`[^a-z0-9\s]`)
	digitsRun     = regexp.MustCompile(`\d+`)
	spaceRun      = regexp.MustCompile(`\s+`)
	nonAlpha      = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// IsGarbageText reports whether text looks like OCR noise: either it contains a
// known corrupted fragment, or fewer than minRatio of its characters are letters,
// digits or spaces. minRatio <= 0 selects DefaultGarbageRatio.
func IsGarbageText(text string, minRatio float64) bool {
	if text == "" {
		return false
	}
	if minRatio <= 0 {
		minRatio = DefaultGarbageRatio
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range garbagePatterns {
		if p.MatchString(lower) {
			return true
		}
	}

	total, alnum := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			alnum++
		}
	}
	return total > GarbageMinLength && float64(alnum)/float64(total) < minRatio
}

// NormalizeCounterparty lowercases text, drops punctuation and digits and
// collapses whitespace, so "UPI/123/Ravi K." and "upi 456 ravi k" compare equal.
func NormalizeCounterparty(text string) string {
	if text == "" {
		return ""
	}
	cleaned := nonAlnumSpace.ReplaceAllString(strings.ToLower(text), " ")
	cleaned = digitsRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(cleaned, " "))
}

// TitleCase capitalizes each word and lowercases the rest.
// Casers are stateful, so each call gets its own.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// FirstWords returns up to n alphabetic words of text, title cased.
func FirstWords(text string, n int) string {
	words := strings.Fields(nonAlpha.ReplaceAllString(text, " "))
	if len(words) > n {
		words = words[:n]
	}
	return TitleCase(strings.Join(words, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
