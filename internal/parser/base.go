// Package parser provides the base type embedded by statement parsers and the
// interfaces their consumers depend on.
package parser

import (
	"io"

	"fjacquet/stmt-forensics/internal/common"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
)

// BaseParser provides common functionality for parser implementations.
// Parsers embed it to share logger handling and ledger output:
//
//	type Normalizer struct {
//		parser.BaseParser
//		// parser-specific fields
//	}
type BaseParser struct {
	logger logging.Logger
}

// NewBaseParser creates a BaseParser. A nil logger selects the default logger.
func NewBaseParser(logger logging.Logger) BaseParser {
	return BaseParser{logger: logging.OrDefault(logger)}
}

// SetLogger implements LoggerConfigurable.
func (b *BaseParser) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// GetLogger returns the current logger instance.
func (b *BaseParser) GetLogger() logging.Logger {
	return b.logger
}

// WriteLedger writes the statement's transactions as ledger CSV.
func (b *BaseParser) WriteLedger(w io.Writer, stmt *models.NormalizedStatement, delimiter rune) error {
	b.logger.Debug("Writing ledger CSV",
		logging.Field{Key: logging.FieldFile, Value: stmt.Filename},
		logging.Field{Key: logging.FieldCount, Value: len(stmt.Transactions)})
	return common.WriteLedger(w, stmt.Transactions, delimiter)
}
