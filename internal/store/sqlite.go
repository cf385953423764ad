package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS statements (
	document_id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	account_number TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT '',
	period_from TEXT NOT NULL DEFAULT '',
	period_to TEXT NOT NULL DEFAULT '',
	opening_balance TEXT,
	closing_balance TEXT,
	transaction_count INTEGER NOT NULL DEFAULT 0,
	anomaly_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	seq INTEGER NOT NULL
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_statements_account ON statements(account_number)`,
	`CREATE INDEX IF NOT EXISTS idx_statements_account_seq ON statements(account_number, seq)`,
}

const columns = `document_id, filename, account_number, currency, period_from, period_to,
	opening_balance, closing_balance, transaction_count, anomaly_count, status, confidence, created_at`

// SQLiteStore is the Repository backed by modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

var _ Repository = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the history database at dsn. Pass ":memory:"
// for a private in-memory database.
func OpenSQLite(dsn string, logger logging.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	for _, stmt := range append([]string{schema}, indexes...) {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: logging.OrDefault(logger), now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the record. A replaced record moves to the end of
// its account's history.
func (s *SQLiteStore) Save(ctx context.Context, rec StatementRecord) error {
	if rec.DocumentID == "" {
		return errors.New("save statement: empty document id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO statements (`+columns+`, seq)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM statements))`,
		rec.DocumentID, rec.Filename, rec.AccountNumber, rec.Currency, rec.PeriodFrom, rec.PeriodTo,
		rec.OpeningBalance, rec.ClosingBalance, rec.TransactionCount, rec.AnomalyCount,
		rec.Status, rec.Confidence, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save statement %s: %w", rec.DocumentID, err)
	}
	s.logger.Debug("Statement saved",
		logging.Field{Key: logging.FieldDocumentID, Value: rec.DocumentID},
		logging.Field{Key: logging.FieldAccount, Value: rec.AccountNumber})
	return nil
}

// PriorStatement returns the most recently saved statement for the account.
func (s *SQLiteStore) PriorStatement(ctx context.Context, accountNumber string) (*models.PriorStatement, error) {
	return s.PriorStatementExcluding(ctx, accountNumber, "")
}

// PriorStatementExcluding implements Repository.
func (s *SQLiteStore) PriorStatementExcluding(ctx context.Context, accountNumber, documentID string) (*models.PriorStatement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM statements
		WHERE account_number = ? AND document_id <> ?
		ORDER BY seq DESC LIMIT 1`,
		accountNumber, documentID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prior statement for %s: %w", accountNumber, err)
	}
	return rec.Prior(), nil
}

// Get returns one record or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, documentID string) (*StatementRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM statements WHERE document_id = ?`, documentID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get statement %s: %w", documentID, err)
	}
	return rec, nil
}

// List returns an account's history, oldest first. An empty account lists everything.
func (s *SQLiteStore) List(ctx context.Context, accountNumber string) ([]StatementRecord, error) {
	query := `SELECT ` + columns + ` FROM statements`
	var args []any
	if accountNumber != "" {
		query += ` WHERE account_number = ?`
		args = append(args, accountNumber)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	out := []StatementRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list statements: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteDocuments deletes the history rows of the given documents.
func (s *SQLiteStore) DeleteDocuments(ctx context.Context, documentIDs ...string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(documentIDs)), ",")
	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM statements WHERE document_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete statements: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("Statement history cleared for re-analysis",
		logging.Field{Key: logging.FieldCount, Value: n})
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*StatementRecord, error) {
	var rec StatementRecord
	var created string
	if err := sc.Scan(&rec.DocumentID, &rec.Filename, &rec.AccountNumber, &rec.Currency,
		&rec.PeriodFrom, &rec.PeriodTo, &rec.OpeningBalance, &rec.ClosingBalance,
		&rec.TransactionCount, &rec.AnomalyCount, &rec.Status, &rec.Confidence, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
