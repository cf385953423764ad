// Package dateutils parses the date cells found in bank statement exports and
// classifies the shape of raw date strings.
package dateutils

import (
	"regexp"
	"strings"
	"time"
)

// Common date layouts.
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutDayFirst  = "02/01/2006"
	DateLayoutWithMonth = "02-Jan-2006"
)

// Layout is one named attempt in the date strategy list.
type Layout struct {
	Name   string
	Layout string
}

// StatementLayouts is the ordered strategy list used for statement date cells.
// Day-first layouts come before month-first ones; ambiguous values such as
// 03/04/2024 are read as 3 April.
var StatementLayouts = []Layout{
	{"iso", DateLayoutISO},
	{"iso_time", DateLayoutFull},
	{"iso_rfc3339", time.RFC3339},
	{"iso_slash", "2006/01/02"},
	{"dmy_slash", DateLayoutDayFirst},
	{"dmy_slash_short", "2/1/2006"},
	{"dmy_slash_time", "02/01/2006 15:04:05"},
	{"dmy_slash_yy", "02/01/06"},
	{"dmy_slash_yy_short", "2/1/06"},
	{"dmy_dash", "02-01-2006"},
	{"dmy_dash_short", "2-1-2006"},
	{"dmy_dash_yy", "02-01-06"},
	{"dmy_dot", "02.01.2006"},
	{"dmy_dot_yy", "02.01.06"},
	{"dmy_month", DateLayoutWithMonth},
	{"dmy_month_short", "2-Jan-2006"},
	{"dmy_month_yy", "02-Jan-06"},
	{"dmy_month_space", "02 Jan 2006"},
	{"dmy_month_space_short", "2 Jan 2006"},
	{"dmy_month_space_yy", "02 Jan 06"},
	{"dmy_month_long", "2 January 2006"},
	{"dmy_month_slash", "02/Jan/2006"},
	{"mdy_month", "Jan 2, 2006"},
	{"mdy_month_long", "January 2, 2006"},
	{"mdy_month_nocomma", "Jan 2 2006"},
	{"mdy_slash", "01/02/2006"},
	{"mdy_dash_yy", "01-02-06"},
	{"mdy_slash_yy_time", "1/2/06 15:04"},
}

var (
	whitespace      = regexp.MustCompile(`\s+`)
	alphaMonthShape = regexp.MustCompile(`[A-Za-z]{3}`)
	isoShape        = regexp.MustCompile(`\d{4}-\d{2}`)
	numericShape    = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
)

// headerWords are cell texts that sit in a date column but are never dates.
var headerWords = map[string]bool{
	"date": true, "tran date": true, "txn date": true, "transaction date": true,
	"value date": true, "posting date": true,
}

// Shape classifies how a raw date string was written.
type Shape string

const (
	ShapeMonthName Shape = "month_name"
	ShapeISO       Shape = "iso"
	ShapeNumeric   Shape = "numeric"
	ShapeNone      Shape = ""
)

// CleanDateString trims and collapses whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ParseStatementDate parses a statement date cell. It returns the parsed date,
// the name of the layout that matched, and false when nothing matched.
// Values shorter than 6 characters and header labels are never dates.
func ParseStatementDate(raw string) (time.Time, string, bool) {
	s := CleanDateString(raw)
	if len(s) < 6 || headerWords[strings.ToLower(s)] {
		return time.Time{}, "", false
	}
	return parseWith(StatementLayouts, s)
}

// ParseDate parses any supported date value, including short values.
func ParseDate(raw string) (time.Time, bool) {
	s := CleanDateString(raw)
	if s == "" {
		return time.Time{}, false
	}
	t, _, ok := parseWith(StatementLayouts, s)
	return t, ok
}

func parseWith(layouts []Layout, s string) (time.Time, string, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l.Layout, s); err == nil {
			return t, l.Name, true
		}
	}
	return time.Time{}, "", false
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// NormalizeISO parses raw and returns it as an ISO date, or "" when unparseable.
func NormalizeISO(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return ""
	}
	return ToISODate(t)
}

// ClassifyShape reports which family a raw date string belongs to.
// Month names win over digits so "15-Jan-2024" is month_name, not numeric.
func ClassifyShape(raw string) Shape {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return ShapeNone
	case alphaMonthShape.MatchString(s):
		return ShapeMonthName
	case isoShape.MatchString(s):
		return ShapeISO
	case numericShape.MatchString(s):
		return ShapeNumeric
	}
	return ShapeNone
}
