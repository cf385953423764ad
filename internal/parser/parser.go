package parser

import (
	"context"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
)

// StatementParser repairs raw spreadsheet bytes into a normalized statement.
// Implementations never fail: problems are reported in the statement's repair log.
type StatementParser interface {
	Normalize(ctx context.Context, data []byte, filename string) *models.NormalizedStatement
}

// LoggerConfigurable is implemented by components whose logger can be replaced.
type LoggerConfigurable interface {
	SetLogger(logger logging.Logger)
}
