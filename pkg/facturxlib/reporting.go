package facturxlib

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/ereporting"
)

// Re-export e-reporting types. E-reporting covers the transactions the
// e-invoicing mandate does not: B2C sales, cross-border B2B, and the
// payment data that fixes when VAT on services becomes due.
type (
	Reporter              = ereporting.Reporter
	ReportingTransaction  = ereporting.Transaction
	ReportingPayment      = ereporting.Payment
	ReportingAggregate    = ereporting.Aggregate
	ReportingSubmission   = ereporting.Submission
	ReportingSchedule     = ereporting.Schedule
	ReportingFrequency    = ereporting.Frequency
	ReportingTaxBreakdown = ereporting.TaxBreakdown
)

// Re-export transmission cadences
const (
	FrequencyDecadal = ereporting.FrequencyDecadal
	FrequencyMonthly = ereporting.FrequencyMonthly
	FrequencyNone    = ereporting.FrequencyNone
)

// Re-export e-reporting error types
type (
	ReportingError           = ereporting.EReportingError
	ReportingValidationError = ereporting.ValidationError
	EmptyDeclarationError    = ereporting.EmptyDeclarationError
)

// NewReporter creates an e-reporting builder for one seller under one
// VAT regime
func NewReporter(sellerSiren string, regime VATRegime) (*Reporter, error) {
	return ereporting.NewReporter(sellerSiren, regime)
}

// NewReportingTransaction builds an individual transaction report
func NewReportingTransaction(sellerSiren string, t TransactionType, category OperationCategory) *ReportingTransaction {
	return ereporting.NewTransaction(sellerSiren, t, category)
}

// NewReportingPayment builds a payment data report for a cashed amount
func NewReportingPayment(sellerSiren string, cashingDate time.Time, amount decimal.Decimal, invoiceRef string) *ReportingPayment {
	return ereporting.NewPayment(sellerSiren, cashingDate, amount, invoiceRef)
}

// ReportingScheduleFor returns the transmission calendar the regime
// imposes
func ReportingScheduleFor(regime VATRegime) ReportingSchedule {
	return ereporting.ScheduleFor(regime)
}

// NextTransactionDeadline returns the first transaction transmission
// deadline strictly after the given time
func NextTransactionDeadline(regime VATRegime, after time.Time) time.Time {
	return ereporting.NextTransactionDeadline(regime, after)
}

// NextPaymentDeadline returns the first payment data deadline strictly
// after the given time. The second return is false for regimes with no
// payment data obligation.
func NextPaymentDeadline(regime VATRegime, after time.Time) (time.Time, bool) {
	return ereporting.NextPaymentDeadline(regime, after)
}
