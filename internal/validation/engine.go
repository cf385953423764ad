// Package validation runs accounting-consistency and statistical forensic
// checks over extracted document fields.
package validation

import (
	"context"
	"time"

	"fjacquet/stmt-forensics/internal/currency"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"

	"github.com/shopspring/decimal"
)

// PriorStatementLookup finds the most recent earlier statement for an account.
// It returns nil and no error when there is none.
type PriorStatementLookup interface {
	PriorStatement(ctx context.Context, accountNumber string) (*models.PriorStatement, error)
}

// Engine runs the detectors for one document at a time. It has no mutable
// state and may be shared between goroutines.
type Engine struct {
	rules    Rules
	resolver *currency.Resolver
	logger   logging.Logger

	// Now is the clock used by date-in-the-future checks.
	Now func() time.Time
}

// NewEngine creates an Engine. A nil resolver uses the built-in currency
// profiles and a nil logger the default logger.
func NewEngine(rules Rules, resolver *currency.Resolver, logger logging.Logger) *Engine {
	if resolver == nil {
		resolver = currency.NewResolver(currency.DefaultCode, nil)
	}
	return &Engine{
		rules:    rules,
		resolver: resolver,
		logger:   logging.OrDefault(logger),
		Now:      time.Now,
	}
}

// Rules returns the thresholds the engine was built with.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Resolver returns the currency profile resolver.
func (e *Engine) Resolver() *currency.Resolver {
	return e.resolver
}

// RunValidations checks fields according to docType. Missing fields skip the
// checks that need them; nothing here fails. lookup may be nil.
func (e *Engine) RunValidations(ctx context.Context, docType models.DocumentType, fields models.ExtractedFields, lookup PriorStatementLookup) models.ValidationResult {
	result := models.NewValidationResult()
	if len(fields.Unparsed) > 0 {
		e.logger.Warn("Skipping checks on unreadable amounts",
			logging.Field{Key: logging.FieldDocType, Value: string(docType)},
			logging.Field{Key: "fields", Value: fields.Unparsed})
	}

	switch docType {
	case models.DocInvoice:
		e.validateInvoice(fields, &result)
	case models.DocPayslip:
		e.validatePayslip(fields, &result)
	case models.DocBankStatement:
		e.validateBankStatement(fields, &result)
		e.checkCrossDocument(ctx, fields, lookup, &result)
	default:
		e.logger.Debug("No rule set for document type",
			logging.Field{Key: logging.FieldDocType, Value: string(docType)})
	}

	e.logger.Debug("Validation finished",
		logging.Field{Key: logging.FieldDocType, Value: string(docType)},
		logging.Field{Key: "errors", Value: len(result.Errors)},
		logging.Field{Key: "warnings", Value: len(result.Warnings)},
		logging.Field{Key: "consistent", Value: result.Consistency.Consistent})
	return result
}

// DetectCurrency resolves the currency of a statement and its profile.
func (e *Engine) DetectCurrency(fields models.ExtractedFields) (currency.Detection, currency.Profile) {
	in := currency.Input{
		Explicit: fields.Currency,
		Header:   fields.BalanceHeader,
	}
	for _, tx := range fields.Transactions {
		in.Descriptions = append(in.Descriptions, tx.Description)
		if tx.Amount.Valid {
			in.Amounts = append(in.Amounts, tx.Amount.Decimal)
		}
	}
	det := currency.Detect(in, e.rules.detectOptions(e.resolver.DefaultCode()))
	profile, _ := e.resolver.Profile(det.Code)
	return det, profile
}

func (e *Engine) checkCrossDocument(ctx context.Context, fields models.ExtractedFields, lookup PriorStatementLookup, result *models.ValidationResult) {
	if lookup == nil || fields.AccountNumber == "" || !fields.OpeningBalance.Valid {
		return
	}
	log := e.logger.WithFields(logging.Field{Key: logging.FieldAccount, Value: fields.AccountNumber})
	if err := ctx.Err(); err != nil {
		log.WithError(err).Debug("Skipping cross-document check")
		return
	}

	prior, err := lookup.PriorStatement(ctx, fields.AccountNumber)
	if err != nil {
		log.WithError(err).Warn("Prior statement lookup failed, skipping cross-document check")
		return
	}
	if prior == nil || !prior.ClosingBalance.Valid {
		return
	}

	tol := decimal.NewFromFloat(e.rules.BalanceTolerance)
	if models.WithinTolerance(prior.ClosingBalance.Decimal, fields.OpeningBalance.Decimal, tol) {
		return
	}
	result.AddInconsistency(models.Issue{
		Field:    "opening_balance",
		Check:    "cross_document",
		Message:  "Opening balance does not match previous closing balance.",
		Severity: models.SeverityCritical,
		Details: map[string]any{
			"previous_closing":     models.Float(prior.ClosingBalance.Decimal),
			"current_opening":      models.Float(fields.OpeningBalance.Decimal),
			"previous_document_id": prior.DocumentID,
		},
	})
}
