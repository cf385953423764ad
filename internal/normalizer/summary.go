package normalizer

import (
	"regexp"
	"strings"

	"fjacquet/stmt-forensics/internal/currencyutils"
	"fjacquet/stmt-forensics/internal/dateutils"
	"fjacquet/stmt-forensics/internal/workbook"

	"github.com/shopspring/decimal"
)

// lookahead is how many cells to the right of a label are searched for its value.
const lookahead = 4

var (
	accountLabel  = regexp.MustCompile(`^(ACCOUNT\s*(NO\.?|NUMBER|#)|A/?C\s*(NO\.?|NUMBER))`)
	holderLabel   = regexp.MustCompile(`^(ACCOUNT\s*HOLDER|ACCOUNT\s*NAME|CUSTOMER\s*NAME|NAME)\b`)
	periodLabel   = regexp.MustCompile(`(STATEMENT\s*PERIOD|^PERIOD|^FROM\b)`)
	accountDigits = regexp.MustCompile(`[0-9][0-9\- ]{3,}[0-9]`)
	dateToken     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{1,2}[- ][A-Za-z]{3,9}[- ,]*\d{2,4}`)
)

// summaryInfo holds what the top-of-sheet scan found.
type summaryInfo struct {
	opening       decimal.NullDecimal
	closing       decimal.NullDecimal
	accountNumber string
	accountHolder string
	periodFrom    string
	periodTo      string
}

// scanSummary reads declared balances and account metadata from the first rows.
// The first labelled value found wins.
func scanSummary(sheet *workbook.Sheet, opts Options) summaryInfo {
	var info summaryInfo
	lastRow := min(opts.SummaryScanRows, sheet.MaxRow())
	lastCol := min(opts.SummaryScanCols, sheet.MaxCol())

	for r := 1; r <= lastRow; r++ {
		for c := 1; c <= lastCol; c++ {
			text := sheet.Cell(r, c)
			if text == "" {
				continue
			}
			upper := strings.ToUpper(text)

			switch {
			case strings.Contains(upper, "OPENING BALANCE") || strings.Contains(upper, "OPENING BAL"):
				if !info.opening.Valid {
					info.opening = labelledAmount(sheet, r, c)
				}
			case strings.Contains(upper, "CLOSING BALANCE") || strings.Contains(upper, "CLOSING BAL"):
				if !info.closing.Valid {
					info.closing = labelledAmount(sheet, r, c)
				}
			case accountLabel.MatchString(upper):
				if info.accountNumber == "" {
					info.accountNumber = accountNumberFrom(labelledText(sheet, r, c))
				}
			case holderLabel.MatchString(upper):
				if info.accountHolder == "" {
					info.accountHolder = holderFrom(labelledText(sheet, r, c))
				}
			case periodLabel.MatchString(upper):
				if info.periodFrom == "" {
					info.periodFrom, info.periodTo = periodFrom(sheet, r, c)
				}
			}
		}
	}
	return info
}

// labelledAmount returns the numeric value belonging to the label at (r, c):
// text after a colon in the same cell, else the next numeric cell to the right,
// else column 2 for summaries laid out as merged label cells.
func labelledAmount(sheet *workbook.Sheet, r, c int) decimal.NullDecimal {
	if _, after, ok := strings.Cut(sheet.Cell(r, c), ":"); ok {
		if v := currencyutils.ParseNullAmount(after); v.Valid {
			return v
		}
	}
	for cc := c + 1; cc <= c+lookahead && cc <= sheet.MaxCol(); cc++ {
		if v := currencyutils.ParseNullAmount(sheet.Cell(r, cc)); v.Valid {
			return v
		}
	}
	if c != 2 {
		return currencyutils.ParseNullAmount(sheet.Cell(r, 2))
	}
	return decimal.NullDecimal{}
}

// labelledText returns the text after a colon in the label cell, or the next
// non-empty cell to the right.
func labelledText(sheet *workbook.Sheet, r, c int) string {
	if _, after, ok := strings.Cut(sheet.Cell(r, c), ":"); ok && strings.TrimSpace(after) != "" {
		return strings.TrimSpace(after)
	}
	for cc := c + 1; cc <= c+lookahead && cc <= sheet.MaxCol(); cc++ {
		if v := sheet.Cell(r, cc); v != "" {
			return v
		}
	}
	return ""
}

func accountNumberFrom(text string) string {
	m := accountDigits.FindString(text)
	return strings.ReplaceAll(m, " ", "")
}

func holderFrom(text string) string {
	if !strings.ContainsFunc(text, isLetter) {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// periodFrom collects the first two dates on the label's row, starting at the label cell.
func periodFrom(sheet *workbook.Sheet, r, c int) (string, string) {
	var found []string
	for cc := c; cc <= c+lookahead && cc <= sheet.MaxCol() && len(found) < 2; cc++ {
		for _, tok := range dateToken.FindAllString(sheet.Cell(r, cc), -1) {
			if iso := dateutils.NormalizeISO(tok); iso != "" {
				found = append(found, iso)
			}
			if len(found) == 2 {
				break
			}
		}
	}
	switch len(found) {
	case 0:
		return "", ""
	case 1:
		return found[0], ""
	}
	return found[0], found[1]
}
