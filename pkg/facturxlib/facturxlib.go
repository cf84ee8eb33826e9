// Package facturxlib provides a public API for the French 2026
// e-invoicing reform: generating, validating and parsing electronic
// invoices, tracking their lifecycle, and preparing e-reporting data.
//
// Example usage:
//
//	engine := facturxlib.New()
//	xml, err := engine.GenerateCII(invoice, facturxlib.ProfileEN16931)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	findings, _ := engine.Validate(xml)
//	fmt.Println(len(findings) == 0)
package facturxlib

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/model"
)

// Re-export core types for public API
type (
	Invoice       = model.Invoice
	InvoiceLine   = model.InvoiceLine
	Party         = model.Party
	Address       = model.Address
	BankAccount   = model.BankAccount
	PaymentTerms  = model.PaymentTerms
	PaymentMeans  = model.PaymentMeans
	InvoiceOption = model.InvoiceOption
	LineOption    = model.LineOption
)

// Re-export enum types
type (
	Profile           = model.Profile
	Format            = model.Format
	InvoiceStatus     = model.InvoiceStatus
	InvoiceTypeCode   = model.InvoiceTypeCode
	OperationCategory = model.OperationCategory
	VATCategory       = model.VATCategory
	VATRegime         = model.VATRegime
	TransactionType   = model.TransactionType
	TransmissionMode  = model.TransmissionMode
	UnitOfMeasure     = model.UnitOfMeasure
	PaymentMeansCode  = model.PaymentMeansCode
	Currency          = model.Currency
)

// Re-export the Factur-X profiles
const (
	ProfileMinimum  = model.ProfileMinimum
	ProfileBasicWL  = model.ProfileBasicWL
	ProfileBasic    = model.ProfileBasic
	ProfileEN16931  = model.ProfileEN16931
	ProfileExtended = model.ProfileExtended
)

// Re-export document formats
const (
	FormatCII     = model.FormatCII
	FormatUBL     = model.FormatUBL
	FormatFacturX = model.FormatFacturX
	FormatCDAR    = model.FormatCDAR
	FormatUnknown = model.FormatUnknown
)

// Re-export lifecycle status codes
const (
	StatusDeposited         = model.StatusDeposited
	StatusEmitted           = model.StatusEmitted
	StatusReceived          = model.StatusReceived
	StatusMadeAvailable     = model.StatusMadeAvailable
	StatusTakenInCharge     = model.StatusTakenInCharge
	StatusApproved          = model.StatusApproved
	StatusPartiallyApproved = model.StatusPartiallyApproved
	StatusDisputed          = model.StatusDisputed
	StatusSuspended         = model.StatusSuspended
	StatusRejectedEmission  = model.StatusRejectedEmission
	StatusRefused           = model.StatusRefused
	StatusPaymentSent       = model.StatusPaymentSent
	StatusRejectedReception = model.StatusRejectedReception
	StatusCollected         = model.StatusCollected
	StatusCompleted         = model.StatusCompleted
)

// Re-export UNTDID 1001 document type codes
const (
	TypeInvoice           = model.TypeInvoice
	TypeCreditNote        = model.TypeCreditNote
	TypeDebitNote         = model.TypeDebitNote
	TypeCorrectedInvoice  = model.TypeCorrectedInvoice
	TypePrepaymentInvoice = model.TypePrepaymentInvoice
	TypeSelfBilledInvoice = model.TypeSelfBilledInvoice
)

// Re-export operation categories
const (
	OperationDelivery = model.OperationDelivery
	OperationService  = model.OperationService
	OperationMixed    = model.OperationMixed
)

// Re-export UNTDID 5305 VAT category codes
const (
	VATStandard       = model.VATStandard
	VATZeroRated      = model.VATZeroRated
	VATExempt         = model.VATExempt
	VATReverseCharge  = model.VATReverseCharge
	VATIntraCommunity = model.VATIntraCommunity
	VATExport         = model.VATExport
	VATOutOfScope     = model.VATOutOfScope
)

// Re-export VAT regimes
const (
	RegimeNormalMonthly   = model.RegimeNormalMonthly
	RegimeNormalQuarterly = model.RegimeNormalQuarterly
	RegimeSimplified      = model.RegimeSimplified
	RegimeFranchise       = model.RegimeFranchise
)

// Re-export e-reporting transaction types
const (
	TransactionB2CDomestic = model.TransactionB2CDomestic
	TransactionB2BIntraEU  = model.TransactionB2BIntraEU
	TransactionB2BExtraEU  = model.TransactionB2BExtraEU
)

// Re-export transmission modes
const (
	TransmissionIndividual = model.TransmissionIndividual
	TransmissionAggregated = model.TransmissionAggregated
)

// Re-export currencies
const (
	CurrencyEUR = model.CurrencyEUR
	CurrencyUSD = model.CurrencyUSD
	CurrencyGBP = model.CurrencyGBP
	CurrencyCHF = model.CurrencyCHF
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
	GenerationError = model.GenerationError
)

// AllStatuses lists every lifecycle status in code order
var AllStatuses = model.AllStatuses

// Re-export invoice construction options
var (
	WithTypeCode                 = model.WithTypeCode
	WithCurrency                 = model.WithCurrency
	WithDueDate                  = model.WithDueDate
	WithVATOnDebits              = model.WithVATOnDebits
	WithPrecedingReference       = model.WithPrecedingReference
	WithPurchaseOrder            = model.WithPurchaseOrder
	WithContractReference        = model.WithContractReference
	WithBuyerAccountingReference = model.WithBuyerAccountingReference
	WithPaymentTerms             = model.WithPaymentTerms
	WithPaymentMeans             = model.WithPaymentMeans
	WithPrepaidAmount            = model.WithPrepaidAmount
	WithBillingPeriod            = model.WithBillingPeriod
	WithPayee                    = model.WithPayee
	WithPayer                    = model.WithPayer
	WithNote                     = model.WithNote
)

// Re-export line construction options
var (
	WithLineNumber    = model.WithLineNumber
	WithUnit          = model.WithUnit
	WithVATRate       = model.WithVATRate
	WithVATCategory   = model.WithVATCategory
	WithExemption     = model.WithExemption
	WithItemReference = model.WithItemReference
	WithLineDiscount  = model.WithLineDiscount
	WithLineCharge    = model.WithLineCharge
	WithLinePeriod    = model.WithLinePeriod
	WithSubLines      = model.WithSubLines
)

// NewInvoice builds an invoice and checks its invariants
func NewInvoice(number string, issueDate time.Time, seller, buyer Party, lines []InvoiceLine, category OperationCategory, opts ...InvoiceOption) (*Invoice, error) {
	return model.NewInvoice(number, issueDate, seller, buyer, lines, category, opts...)
}

// NewInvoiceLine builds a line with the standard VAT defaults
func NewInvoiceLine(description string, quantity, unitPrice decimal.Decimal, opts ...LineOption) (*InvoiceLine, error) {
	return model.NewInvoiceLine(description, quantity, unitPrice, opts...)
}

// NewParty builds a party identified by its SIREN
func NewParty(name, siren string) (*Party, error) {
	return model.NewParty(name, siren)
}

// NewPaymentTerms builds payment terms from a description
func NewPaymentTerms(description string) *PaymentTerms {
	return model.NewPaymentTerms(description)
}

// ValidSiren reports whether s is a well-formed 9-digit SIREN
func ValidSiren(s string) bool {
	return model.ValidSiren(s)
}

// ValidSiret reports whether s is a well-formed 14-digit SIRET
func ValidSiret(s string) bool {
	return model.ValidSiret(s)
}
