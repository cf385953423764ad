// Package workbook decodes spreadsheet bytes (xlsx, legacy xls or csv) into a
// plain grid of cell text.
package workbook

import "strings"

// Sheet is a decoded worksheet. Rows may be ragged; missing cells read as "".
type Sheet struct {
	Name   string
	Rows   [][]string
	maxCol int
}

// NewSheet builds a Sheet and trims surrounding whitespace from every cell.
func NewSheet(name string, rows [][]string) *Sheet {
	s := &Sheet{Name: name, Rows: make([][]string, len(rows))}
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
		}
		s.Rows[i] = cells
		if len(cells) > s.maxCol {
			s.maxCol = len(cells)
		}
	}
	return s
}

// Cell returns the text at the 1-based row and column, or "" when out of range.
func (s *Sheet) Cell(row, col int) string {
	if row < 1 || row > len(s.Rows) {
		return ""
	}
	cells := s.Rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

// MaxRow is the number of rows.
func (s *Sheet) MaxRow() int {
	return len(s.Rows)
}

// MaxCol is the width of the widest row.
func (s *Sheet) MaxCol() int {
	return s.maxCol
}

// RowCells returns the cells of a 1-based row padded to MaxCol.
func (s *Sheet) RowCells(row int) []string {
	out := make([]string, s.maxCol)
	if row < 1 || row > len(s.Rows) {
		return out
	}
	copy(out, s.Rows[row-1])
	return out
}
