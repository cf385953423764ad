package parser

import (
	"bytes"
	"testing"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseParser(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		mockLog := logging.NewMockLogger()
		b := NewBaseParser(mockLog)
		assert.Equal(t, mockLog, b.GetLogger())
	})

	t.Run("nil logger uses default", func(t *testing.T) {
		b := NewBaseParser(nil)
		assert.NotNil(t, b.GetLogger())
	})
}

func TestBaseParser_SetLogger(t *testing.T) {
	b := NewBaseParser(logging.NewMockLogger())
	replacement := logging.NewMockLogger()

	b.SetLogger(replacement)
	assert.Equal(t, replacement, b.GetLogger())

	b.SetLogger(nil)
	assert.Equal(t, replacement, b.GetLogger())
}

func TestBaseParser_WriteLedger(t *testing.T) {
	mockLog := logging.NewMockLogger()
	b := NewBaseParser(mockLog)
	stmt := models.NewNormalizedStatement("jan.xlsx")
	stmt.Transactions = append(stmt.Transactions, models.TransactionRecord{
		Date:        "2024-01-01",
		Description: "Opening deposit",
		Amount:      models.Amount(decimal.NewFromInt(100)),
		Type:        models.TxCredit,
	})

	var buf bytes.Buffer
	require.NoError(t, b.WriteLedger(&buf, stmt, ','))

	assert.Contains(t, buf.String(), "Opening deposit")
	assert.True(t, mockLog.HasEntry("DEBUG", "Writing ledger CSV"))
}

func TestBaseParser_InterfaceCompliance(t *testing.T) {
	var _ LoggerConfigurable = &BaseParser{}
}
