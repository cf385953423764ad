// Package store keeps the statement history read by the cross-document
// consistency check. The SQLite implementation is the default; MemoryStore
// serves tests and one-shot CLI runs.
package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"fjacquet/stmt-forensics/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Get for unknown document IDs.
var ErrNotFound = errors.New("statement not found")

// documentNamespace scopes content-derived document IDs.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("stmt-forensics/documents"))

// StatementRecord is one persisted statement summary.
type StatementRecord struct {
	DocumentID       string              `json:"document_id" yaml:"document_id"`
	Filename         string              `json:"filename" yaml:"filename"`
	AccountNumber    string              `json:"account_number" yaml:"account_number"`
	Currency         string              `json:"currency,omitempty" yaml:"currency,omitempty"`
	PeriodFrom       string              `json:"period_from,omitempty" yaml:"period_from,omitempty"`
	PeriodTo         string              `json:"period_to,omitempty" yaml:"period_to,omitempty"`
	OpeningBalance   decimal.NullDecimal `json:"opening_balance" yaml:"-"`
	ClosingBalance   decimal.NullDecimal `json:"closing_balance" yaml:"-"`
	TransactionCount int                 `json:"transaction_count" yaml:"transaction_count"`
	AnomalyCount     int                 `json:"anomaly_count" yaml:"anomaly_count"`
	Status           string              `json:"status" yaml:"status"`
	Confidence       float64             `json:"confidence" yaml:"confidence"`
	CreatedAt        time.Time           `json:"created_at" yaml:"created_at"`
}

// Prior converts the record into the shape the cross-document check reads.
func (r StatementRecord) Prior() *models.PriorStatement {
	return &models.PriorStatement{
		DocumentID:     r.DocumentID,
		AccountNumber:  r.AccountNumber,
		ClosingBalance: r.ClosingBalance,
		PeriodTo:       r.PeriodTo,
	}
}

// Lookup finds the most recent statement for an account.
type Lookup interface {
	PriorStatement(ctx context.Context, accountNumber string) (*models.PriorStatement, error)
}

// Repository is the full history store.
type Repository interface {
	Lookup
	// PriorStatementExcluding is PriorStatement ignoring one document, so a
	// statement being re-analyzed is never compared with itself.
	PriorStatementExcluding(ctx context.Context, accountNumber, documentID string) (*models.PriorStatement, error)
	Save(ctx context.Context, rec StatementRecord) error
	Get(ctx context.Context, documentID string) (*StatementRecord, error)
	List(ctx context.Context, accountNumber string) ([]StatementRecord, error)
	// DeleteDocuments removes the records of the given documents. Unknown IDs
	// are ignored.
	DeleteDocuments(ctx context.Context, documentIDs ...string) error
}

// DocumentID derives a stable ID from the document bytes, so re-analyzing the
// same file updates its history row instead of adding one.
func DocumentID(data []byte) string {
	sum := sha256.Sum256(data)
	return uuid.NewSHA1(documentNamespace, sum[:]).String()
}

// NewDocumentID returns a random ID for documents without stable content.
func NewDocumentID() string {
	return uuid.NewString()
}

// Excluding returns a Lookup over repo that skips documentID.
func Excluding(repo Repository, documentID string) Lookup {
	return excludingLookup{repo: repo, documentID: documentID}
}

type excludingLookup struct {
	repo       Repository
	documentID string
}

func (l excludingLookup) PriorStatement(ctx context.Context, accountNumber string) (*models.PriorStatement, error) {
	return l.repo.PriorStatementExcluding(ctx, accountNumber, l.documentID)
}
