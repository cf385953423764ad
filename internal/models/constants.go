package models

// Document types accepted by the validation engine.
const (
	DocBankStatement DocumentType = "bank_statement"
	DocInvoice       DocumentType = "invoice"
	DocPayslip       DocumentType = "payslip"
	DocUnknown       DocumentType = "unknown"
)

// Transaction categories assigned by the keyword classifier.
const (
	CategorySalary      = "Salary"
	CategoryUPI         = "UPI Payment"
	CategoryNEFT        = "NEFT Transfer"
	CategoryIMPS        = "IMPS Transfer"
	CategoryCash        = "ATM/Cash"
	CategoryLoan        = "EMI/Loan"
	CategoryFees        = "Fees & Charges"
	CategoryInterest    = "Interest"
	CategoryCard        = "Card Payment"
	CategoryInsurance   = "Insurance"
	CategoryTransfer    = "Transfer"
	CategoryBillPayment = "Bill Payment"
	CategoryIncome      = "Income"
	CategoryExpense     = "Expense"
	CategoryOther       = "Other"
)

// File permissions
const (
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
