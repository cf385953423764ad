// Package parsererror defines the typed errors returned at the workbook and
// extraction-input boundaries. Data-quality problems inside a statement are never
// errors; they are reported in the repair log and as issues.
package parsererror

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when there are no bytes to decode.
var ErrEmptyInput = errors.New("empty input")

// StrategyError records why one decoding strategy rejected the input.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when no decoding strategy could read a workbook.
// Err joins the individual StrategyErrors in the order they were tried.
type DecodeError struct {
	FilePath string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode workbook '%s': %v", e.FilePath, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError joins strategy failures into a DecodeError.
func NewDecodeError(filePath string, attempts ...error) *DecodeError {
	return &DecodeError{FilePath: filePath, Err: errors.Join(attempts...)}
}

// InvalidFormatError represents input that does not conform to the expected format.
type InvalidFormatError struct {
	FilePath             string
	ExpectedFormat       string
	ActualContentSnippet string // Optional: a snippet of the actual content for debugging
	Msg                  string
}

func (e *InvalidFormatError) Error() string {
	if e.ActualContentSnippet != "" {
		return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s. Content snippet: '%s'",
			e.FilePath, e.Msg, e.ExpectedFormat, e.ActualContentSnippet)
	}
	return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s",
		e.FilePath, e.Msg, e.ExpectedFormat)
}

// FieldsError represents an unreadable extracted-fields record (a JSON sidecar or request body).
type FieldsError struct {
	Source string
	Err    error
}

func (e *FieldsError) Error() string {
	return fmt.Sprintf("invalid extracted fields from %s: %v", e.Source, e.Err)
}

func (e *FieldsError) Unwrap() error {
	return e.Err
}
