package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"fjacquet/stmt-forensics/internal/parsererror"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Strategy names, recorded in the repair log.
const (
	StrategyXLSX = "xlsx"
	StrategyXLS  = "xls"
	StrategyCSV  = "csv"
)

// Decoder turns raw bytes into a Sheet.
type Decoder interface {
	Name() string
	Decode(data []byte) (*Sheet, error)
}

var errNoSheets = errors.New("workbook has no sheets")

// XLSXDecoder reads Office Open XML workbooks with excelize.
type XLSXDecoder struct{}

func (XLSXDecoder) Name() string { return StrategyXLSX }

// Decode reads the active sheet with formatted cell values. Cells carrying a
// date number format are read raw and rewritten as ISO dates, since the
// formatted text follows the workbook locale (built-in format 14 is mm-dd-yy).
func (XLSXDecoder) Decode(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := f.GetSheetName(f.GetActiveSheetIndex())
	if name == "" {
		name = f.GetSheetName(0)
	}
	if name == "" {
		return nil, errNoSheets
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	restoreDates(f, name, rows, raw)
	return NewSheet(name, rows), nil
}

// restoreDates replaces the formatted text of date cells with an ISO date
// converted from the raw serial value.
func restoreDates(f *excelize.File, sheet string, rows, raw [][]string) {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyles := map[int]bool{}

	for r := range rows {
		if r >= len(raw) {
			break
		}
		for c := range rows[r] {
			if c >= len(raw[r]) || raw[r][c] == rows[r][c] {
				continue
			}
			serial, err := strconv.ParseFloat(raw[r][c], 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			idx, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				continue
			}
			isDate, seen := dateStyles[idx]
			if !seen {
				isDate = isDateStyle(f, idx)
				dateStyles[idx] = isDate
			}
			if !isDate {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				rows[r][c] = formatSerialDate(t)
			}
		}
	}
}

// isDateStyle reports whether style idx applies a date or date-time number format.
func isDateStyle(f *excelize.File, idx int) bool {
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 17, style.NumFmt == 22:
		return true
	case style.NumFmt >= 27 && style.NumFmt <= 36, style.NumFmt >= 50 && style.NumFmt <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for day or year tokens outside quoted text and
// bracketed sections, so "dd/mm/yyyy" qualifies while "#,##0.00" and "hh:mm" do not.
func isDateFormatCode(code string) bool {
	quoted, bracket := false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		case ch == 'd' || ch == 'y':
			return true
		}
	}
	return false
}

func formatSerialDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// XLSDecoder reads legacy BIFF workbooks.
type XLSDecoder struct{}

func (XLSDecoder) Name() string { return StrategyXLS }

// Decode reads the first sheet. The underlying reader panics on some corrupt
// inputs; the panic is turned into an error.
func (XLSDecoder) Decode(data []byte) (sheet *Sheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheet, err = nil, fmt.Errorf("corrupt xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, errNoSheets
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, errNoSheets
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return NewSheet(ws.Name, rows), nil
}

// CSVDecoder reads delimited text. Binary input is rejected so that a corrupt
// spreadsheet is not mistaken for a one-column CSV.
type CSVDecoder struct{}

func (CSVDecoder) Name() string { return StrategyCSV }

// Decode reads comma-separated rows of varying width. A UTF-8 BOM is dropped and
// non-UTF-8 input is read as Latin-1.
func (CSVDecoder) Decode(data []byte) (*Sheet, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, errors.New("binary content")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decoding latin-1: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows")
	}
	return NewSheet("csv", rows), nil
}

// StrategiesFor returns the decoders to try for filename, most likely first.
func StrategiesFor(filename string) []Decoder {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return []Decoder{CSVDecoder{}, XLSXDecoder{}, XLSDecoder{}}
	case ".xls":
		return []Decoder{XLSDecoder{}, XLSXDecoder{}, CSVDecoder{}}
	default:
		return []Decoder{XLSXDecoder{}, XLSDecoder{}, CSVDecoder{}}
	}
}

// Open decodes data with the first strategy that succeeds and reports which one did.
// When every strategy fails the error is a *parsererror.DecodeError listing each attempt.
func Open(data []byte, filename string) (*Sheet, string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", parsererror.NewDecodeError(filename, parsererror.ErrEmptyInput)
	}

	var attempts []error
	for _, d := range StrategiesFor(filename) {
		sheet, err := d.Decode(data)
		if err == nil {
			return sheet, d.Name(), nil
		}
		attempts = append(attempts, &parsererror.StrategyError{Strategy: d.Name(), Err: err})
	}
	return nil, "", parsererror.NewDecodeError(filename, attempts...)
}
