// Package ereporting builds the transaction, payment and aggregate
// records that fall outside the e-invoicing circuit (B2C sales,
// intra-EU and extra-EU trade) and must instead reach the tax
// authority through periodic e-reporting flows.
//
// The package is pure: it derives records from invoices, validates
// them, and wraps them into submissions for a filing platform to
// carry. It performs no I/O of its own.
package ereporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/model"
)

// Frequency is a transmission cadence from the regulator's calendar
type Frequency string

const (
	// FrequencyDecadal is the "tous les 10 jours" cadence: the 10th,
	// the 20th and the last day of each month
	FrequencyDecadal Frequency = "tous les 10 jours"
	// FrequencyMonthly is the end-of-following-month cadence
	FrequencyMonthly Frequency = "mensuel"
	// FrequencyNone marks regimes with no payment-data obligation
	FrequencyNone Frequency = ""
)

// TaxBreakdown is one VAT line of an aggregate: a rate (or an
// exemption flag) with its taxable base and tax amount
type TaxBreakdown struct {
	Rate          *decimal.Decimal `json:"vat_rate,omitempty"`
	Exempt        bool             `json:"vat_exemption,omitempty"`
	TaxableAmount decimal.Decimal  `json:"taxable_amount"`
	TaxAmount     decimal.Decimal  `json:"vat_amount"`
}

// Transaction is one individually reported operation
type Transaction struct {
	ID          string                `json:"transaction_id"`
	SellerSiren string                `json:"seller_siren"`
	Type        model.TransactionType `json:"transaction_type"`

	// Either a reporting period or an invoice date identifies when the
	// operation took place
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
	InvoiceDate   *time.Time `json:"invoice_date,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`

	OperationCategory model.OperationCategory `json:"operation_category"`

	TotalExclTax   decimal.Decimal  `json:"total_excl_tax"`
	VATAmount      decimal.Decimal  `json:"vat_amount"`
	VATRate        *decimal.Decimal `json:"vat_rate,omitempty"`
	Exempt         bool             `json:"vat_exemption,omitempty"`
	TaxDueInFrance *decimal.Decimal `json:"tax_due_in_france,omitempty"`

	VATOnDebits bool           `json:"vat_on_debits,omitempty"`
	CountryCode string         `json:"country_code,omitempty"`
	Currency    model.Currency `json:"currency"`
}

// NewTransaction creates a transaction with a generated ID and EUR as
// the currency
func NewTransaction(sellerSiren string, t model.TransactionType, category model.OperationCategory) *Transaction {
	return &Transaction{
		ID:                uuid.NewString(),
		SellerSiren:       sellerSiren,
		Type:              t,
		OperationCategory: category,
		Currency:          model.CurrencyEUR,
	}
}

// TotalInclTax is the tax-inclusive total, always derived
func (t *Transaction) TotalInclTax() decimal.Decimal {
	return t.TotalExclTax.Add(t.VATAmount)
}

// Payment is one cash receipt for a service supplied under VAT on
// collection, reported when the money actually moves
type Payment struct {
	ID               string          `json:"payment_id"`
	SellerSiren      string          `json:"seller_siren"`
	CashingDate      time.Time       `json:"cashing_date"`
	CashedAmount     decimal.Decimal `json:"cashed_amount"`
	Currency         model.Currency  `json:"currency"`
	InvoiceReference string          `json:"invoice_reference"`
}

// NewPayment creates a payment record with a generated ID and EUR as
// the currency
func NewPayment(sellerSiren string, cashingDate time.Time, amount decimal.Decimal, invoiceRef string) *Payment {
	return &Payment{
		ID:               uuid.NewString(),
		SellerSiren:      sellerSiren,
		CashingDate:      cashingDate,
		CashedAmount:     amount,
		Currency:         model.CurrencyEUR,
		InvoiceReference: invoiceRef,
	}
}

// Aggregate groups a period's transactions into per-rate totals, the
// form B2C volumes are reported in
type Aggregate struct {
	SellerSiren       string                  `json:"seller_siren"`
	PeriodStart       time.Time               `json:"period_start"`
	PeriodEnd         time.Time               `json:"period_end"`
	OperationCategory model.OperationCategory `json:"operation_category"`
	Breakdowns        []TaxBreakdown          `json:"tax_breakdowns"`
	VATOnDebits       bool                    `json:"vat_on_debits,omitempty"`
}

// TotalExclTax sums the taxable bases of every breakdown
func (a *Aggregate) TotalExclTax() decimal.Decimal {
	total := decimal.Zero
	for _, b := range a.Breakdowns {
		total = total.Add(b.TaxableAmount)
	}
	return total
}

// TotalVAT sums the tax amounts of every breakdown
func (a *Aggregate) TotalVAT() decimal.Decimal {
	total := decimal.Zero
	for _, b := range a.Breakdowns {
		total = total.Add(b.TaxAmount)
	}
	return total
}

// TotalInclTax is the tax-inclusive aggregate total
func (a *Aggregate) TotalInclTax() decimal.Decimal {
	return a.TotalExclTax().Add(a.TotalVAT())
}

// Submission wraps one validated record, ready for a filing platform.
// Exactly one of Transaction, Aggregate or Payment is set, matching
// the mode.
type Submission struct {
	ID          string                 `json:"submission_id"`
	Mode        model.TransmissionMode `json:"transmission_mode"`
	Transaction *Transaction           `json:"transaction_data,omitempty"`
	Aggregate   *Aggregate             `json:"aggregated_data,omitempty"`
	Payment     *Payment               `json:"payment_data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Schedule is the transmission calendar a VAT regime imposes
type Schedule struct {
	Regime               model.VATRegime `json:"vat_regime"`
	TransactionFrequency Frequency       `json:"transaction_frequency"`
	PaymentFrequency     Frequency       `json:"payment_frequency,omitempty"`
}
