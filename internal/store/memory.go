package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"fjacquet/stmt-forensics/internal/models"
)

// MemoryStore is an in-memory Repository. The zero value is not usable; call
// NewMemoryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records []StatementRecord // in save order

	// Error injection for tests.
	SaveError   error
	LookupError error
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Repository.
func (m *MemoryStore) Save(_ context.Context, rec StatementRecord) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if rec.DocumentID == "" {
		return errors.New("save statement: empty document id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = slices.DeleteFunc(m.records, func(r StatementRecord) bool {
		return r.DocumentID == rec.DocumentID
	})
	m.records = append(m.records, rec)
	return nil
}

// PriorStatement implements Lookup.
func (m *MemoryStore) PriorStatement(ctx context.Context, accountNumber string) (*models.PriorStatement, error) {
	return m.PriorStatementExcluding(ctx, accountNumber, "")
}

// PriorStatementExcluding implements Repository.
func (m *MemoryStore) PriorStatementExcluding(_ context.Context, accountNumber, documentID string) (*models.PriorStatement, error) {
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.AccountNumber == accountNumber && r.DocumentID != documentID {
			return r.Prior(), nil
		}
	}
	return nil, nil
}

// Get implements Repository.
func (m *MemoryStore) Get(_ context.Context, documentID string) (*StatementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.DocumentID == documentID {
			rec := r
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// List implements Repository.
func (m *MemoryStore) List(_ context.Context, accountNumber string) ([]StatementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []StatementRecord{}
	for _, r := range m.records {
		if accountNumber == "" || r.AccountNumber == accountNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteDocuments implements Repository.
func (m *MemoryStore) DeleteDocuments(_ context.Context, documentIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = slices.DeleteFunc(m.records, func(r StatementRecord) bool {
		return slices.Contains(documentIDs, r.DocumentID)
	})
	return nil
}
