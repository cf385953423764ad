package normalizer

import (
	"fmt"
	"slices"
	"strings"

	"fjacquet/stmt-forensics/internal/workbook"
)

// Column is the semantic role of a sheet column.
type Column string

const (
	ColDate        Column = "date"
	ColDescription Column = "description"
	ColDebit       Column = "debit"
	ColCredit      Column = "credit"
	ColBalance     Column = "balance"
	ColCheque      Column = "cheque"
	ColAmount      Column = "amount"
)

// columnOrder is the order semantics claim columns in. A column claimed by an
// earlier semantic is not available to later ones.
var columnOrder = []Column{ColDate, ColDescription, ColDebit, ColCredit, ColBalance, ColCheque, ColAmount}

var headerAliases = map[Column][]string{
	ColDate:        {"tran date", "txn date", "transaction date", "date", "value date", "posting date"},
	ColDescription: {"particulars", "description", "narration", "transaction details", "details", "memo"},
	ColDebit:       {"debit", "withdrawal", "withdrawals", "dr", "debit amount"},
	ColCredit:      {"credit", "deposit", "deposits", "cr", "credit amount"},
	ColBalance:     {"balance", "closing balance", "balanc e", "running balance", "balance after"},
	ColCheque:      {"chq no", "cheque no", "chq no.", "ref no./cheque no.", "ref no", "reference"},
	ColAmount:      {"amount", "amt", "transaction amount"},
}

// minSubstringAlias is the shortest alias allowed to match inside a longer
// header cell; "dr" must not match "address".
const minSubstringAlias = 4

var allAliases = func() map[string]bool {
	m := map[string]bool{}
	for _, aliases := range headerAliases {
		for _, a := range aliases {
			m[a] = true
		}
	}
	return m
}()

// defaultLayout is used when no header row qualifies.
var defaultLayout = ColumnMap{ColDate: 2, ColDescription: 4, ColDebit: 5, ColCredit: 6, ColBalance: 7}

// ColumnMap maps semantics to 1-based column numbers.
type ColumnMap map[Column]int

// Get returns the column for c.
func (m ColumnMap) Get(c Column) (int, bool) {
	col, ok := m[c]
	return col, ok && col > 0
}

// String renders the map in semantic order, e.g. "date=1 description=2".
func (m ColumnMap) String() string {
	parts := make([]string, 0, len(m))
	for _, c := range columnOrder {
		if col, ok := m[c]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", c, col))
		}
	}
	return strings.Join(parts, " ")
}

// qualifies reports whether a row mapping is good enough to be the header.
func (m ColumnMap) qualifies() bool {
	_, date := m[ColDate]
	_, debit := m[ColDebit]
	_, credit := m[ColCredit]
	_, desc := m[ColDescription]
	return date && (debit || credit || desc)
}

// isHeaderText reports whether a cell reads exactly like a header label.
func isHeaderText(value string) bool {
	text := strings.ToLower(strings.TrimSpace(value))
	return text != "" && allAliases[text]
}

// matchHeaderRow maps the cells of one row to semantics. Exact alias matches
// are preferred over substring matches.
func matchHeaderRow(cells []string) ColumnMap {
	lower := make([]string, len(cells))
	for i, c := range cells {
		lower[i] = strings.ToLower(strings.TrimSpace(c))
	}

	mapping := ColumnMap{}
	claimed := map[int]bool{}
	for _, sem := range columnOrder {
		aliases := headerAliases[sem]
		col := -1
		for i, text := range lower {
			if text != "" && !claimed[i] && slices.Contains(aliases, text) {
				col = i
				break
			}
		}
		if col < 0 {
			for i, text := range lower {
				if text == "" || claimed[i] {
					continue
				}
				if containsSubstringAlias(text, aliases) {
					col = i
					break
				}
			}
		}
		if col >= 0 {
			mapping[sem] = col + 1
			claimed[col] = true
		}
	}
	return mapping
}

// detectHeader returns the first qualifying header row within maxScan rows.
func detectHeader(sheet *workbook.Sheet, maxScan int) (int, ColumnMap, bool) {
	last := min(maxScan, sheet.MaxRow())
	for r := 1; r <= last; r++ {
		mapping := matchHeaderRow(sheet.RowCells(r))
		if mapping.qualifies() {
			return r, mapping, true
		}
	}
	return -1, nil, false
}

func containsSubstringAlias(text string, aliases []string) bool {
	for _, a := range aliases {
		if len(a) >= minSubstringAlias && strings.Contains(text, a) {
			return true
		}
	}
	return false
}
