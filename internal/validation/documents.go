package validation

import (
	"fjacquet/stmt-forensics/internal/dateutils"
	"fjacquet/stmt-forensics/internal/models"

	"github.com/shopspring/decimal"
)

func (e *Engine) validateInvoice(fields models.ExtractedFields, result *models.ValidationResult) {
	if fields.Subtotal.Valid && fields.Tax.Valid && fields.Total.Valid {
		expected := fields.Subtotal.Decimal.Add(fields.Tax.Decimal)
		if !models.WithinTolerance(expected, fields.Total.Decimal, decimal.NewFromFloat(e.rules.InvoiceTolerance)) {
			result.AddError(models.Issue{
				Field:    "total",
				Check:    "invoice_total",
				Message:  "Subtotal + tax does not match total.",
				Severity: models.SeverityCritical,
				Details: map[string]any{
					"expected": models.Float(expected),
					"actual":   models.Float(fields.Total.Decimal),
				},
			})
		}
	}

	invoiceDate, hasInvoice := dateutils.ParseDate(fields.InvoiceDate)
	if hasInvoice && invoiceDate.After(e.Now()) {
		result.AddWarning(models.Issue{
			Field:    "invoice_date",
			Check:    "future_date",
			Message:  "Invoice date is in the future.",
			Severity: models.SeverityInfo,
		})
	}
	if dueDate, ok := dateutils.ParseDate(fields.DueDate); ok && hasInvoice && dueDate.Before(invoiceDate) {
		result.AddError(models.Issue{
			Field:    "due_date",
			Check:    "due_before_invoice",
			Message:  "Due date is earlier than invoice date.",
			Severity: models.SeverityCritical,
		})
	}
}

func (e *Engine) validatePayslip(fields models.ExtractedFields, result *models.ValidationResult) {
	gross, net, deductions := fields.GrossSalary, fields.NetSalary, fields.Deductions

	if gross.Valid && net.Valid && net.Decimal.GreaterThan(gross.Decimal) {
		result.AddError(models.Issue{
			Field:    "net_salary",
			Check:    "net_exceeds_gross",
			Message:  "Net salary exceeds gross salary.",
			Severity: models.SeverityCritical,
		})
	}
	if gross.Valid && net.Valid && deductions.Valid {
		expected := gross.Decimal.Sub(deductions.Decimal)
		if !models.WithinTolerance(expected, net.Decimal, decimal.NewFromFloat(e.rules.PayslipTolerance)) {
			result.AddWarning(models.Issue{
				Field:    "deductions",
				Check:    "net_identity",
				Message:  "Gross minus deductions does not match net salary.",
				Severity: models.SeverityWarning,
				Details: map[string]any{
					"expected": models.Float(expected),
					"actual":   models.Float(net.Decimal),
				},
			})
		}
	}
	if gross.Valid && !gross.Decimal.IsPositive() {
		result.AddError(models.Issue{
			Field:    "gross_salary",
			Check:    "gross_positive",
			Message:  "Gross salary must be positive.",
			Severity: models.SeverityCritical,
		})
	}
}
