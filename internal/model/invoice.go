package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is one billed item. Its net amount is always derived from
// quantity, price, discount and charge; nothing monetary is stored twice.
type InvoiceLine struct {
	Number      int             `json:"number,omitempty"` // 1-based position, 0 = assign from order
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        UnitOfMeasure   `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATCategory VATCategory     `json:"vat_category"`

	ItemReference  string `json:"item_reference,omitempty"`
	BuyerReference string `json:"buyer_reference,omitempty"`

	DiscountAmount decimal.Decimal `json:"discount_amount,omitempty"`
	ChargeAmount   decimal.Decimal `json:"charge_amount,omitempty"`

	VATExemptionReason     string `json:"vat_exemption_reason,omitempty"`
	VATExemptionReasonCode string `json:"vat_exemption_reason_code,omitempty"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	// SubLines carry decomposition detail, emitted only at the extended
	// profile
	SubLines []InvoiceLine `json:"sub_lines,omitempty"`
}

// LineOption configures an invoice line at construction
type LineOption func(*InvoiceLine)

// WithLineNumber sets an explicit 1-based line number
func WithLineNumber(n int) LineOption {
	return func(l *InvoiceLine) { l.Number = n }
}

// WithUnit sets the unit of measure
func WithUnit(u UnitOfMeasure) LineOption {
	return func(l *InvoiceLine) { l.Unit = u }
}

// WithVATRate sets the VAT rate percentage
func WithVATRate(rate decimal.Decimal) LineOption {
	return func(l *InvoiceLine) { l.VATRate = rate }
}

// WithVATCategory sets the VAT category code
func WithVATCategory(c VATCategory) LineOption {
	return func(l *InvoiceLine) { l.VATCategory = c }
}

// WithExemption sets the exemption reason and its code
func WithExemption(reason, code string) LineOption {
	return func(l *InvoiceLine) {
		l.VATExemptionReason = reason
		l.VATExemptionReasonCode = code
	}
}

// WithItemReference sets the seller item reference
func WithItemReference(ref string) LineOption {
	return func(l *InvoiceLine) { l.ItemReference = ref }
}

// WithLineDiscount sets a document-currency discount on the line
func WithLineDiscount(amount decimal.Decimal) LineOption {
	return func(l *InvoiceLine) { l.DiscountAmount = amount }
}

// WithLineCharge sets a document-currency charge on the line
func WithLineCharge(amount decimal.Decimal) LineOption {
	return func(l *InvoiceLine) { l.ChargeAmount = amount }
}

// WithLinePeriod sets the billing period covered by the line
func WithLinePeriod(start, end time.Time) LineOption {
	return func(l *InvoiceLine) {
		l.PeriodStart = &start
		l.PeriodEnd = &end
	}
}

// WithSubLines attaches decomposition sub-lines
func WithSubLines(subs ...InvoiceLine) LineOption {
	return func(l *InvoiceLine) { l.SubLines = subs }
}

// NewInvoiceLine builds a line with the standard defaults (unit C62,
// 20% standard-rated VAT) and enforces the line invariants.
func NewInvoiceLine(description string, quantity, unitPrice decimal.Decimal, opts ...LineOption) (*InvoiceLine, error) {
	l := &InvoiceLine{
		Description: description,
		Quantity:    quantity,
		Unit:        UnitPiece,
		UnitPrice:   unitPrice,
		VATRate:     decimal.NewFromInt(20),
		VATCategory: VATStandard,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks the line invariants
func (l *InvoiceLine) Validate() error {
	if l.Description == "" {
		return NewValidationError("description", nil, "required", "line description is required")
	}
	if l.Number < 0 {
		return NewValidationError("number", l.Number, "positive", "line number must be positive")
	}
	if l.Quantity.IsZero() {
		return NewValidationError("quantity", l.Quantity.String(), "nonzero", "line quantity must not be zero")
	}
	if l.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", l.UnitPrice.String(), "non-negative", "unit price must not be negative")
	}
	if l.DiscountAmount.IsNegative() {
		return NewValidationError("discount_amount", l.DiscountAmount.String(), "non-negative", "discount must not be negative")
	}
	if l.ChargeAmount.IsNegative() {
		return NewValidationError("charge_amount", l.ChargeAmount.String(), "non-negative", "charge must not be negative")
	}
	if l.VATRate.IsNegative() {
		return NewValidationError("vat_rate", l.VATRate.String(), "non-negative", "VAT rate must not be negative")
	}
	if !l.VATCategory.Valid() {
		return NewValidationError("vat_category", string(l.VATCategory), "enum", "unknown VAT category")
	}
	if l.VATCategory == VATReverseCharge {
		if !l.VATRate.IsZero() {
			return NewValidationError("vat_rate", l.VATRate.String(), "reverse-charge", "reverse charge requires a zero VAT rate")
		}
		if l.VATExemptionReasonCode == "" {
			return NewValidationError("vat_exemption_reason_code", nil, "reverse-charge", "reverse charge requires an exemption reason code")
		}
	}
	if l.VATCategory == VATExempt && l.VATExemptionReason == "" && l.VATExemptionReasonCode == "" {
		return NewValidationError("vat_exemption_reason", nil, "exempt", "exempt lines require an exemption reason")
	}
	if l.PeriodStart != nil && l.PeriodEnd != nil && l.PeriodEnd.Before(*l.PeriodStart) {
		return NewValidationError("period_end", l.PeriodEnd, "ordering", "line period end precedes its start")
	}
	for i := range l.SubLines {
		if err := l.SubLines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NetAmount returns quantity x unit price - discount + charge, exact,
// with no rounding. Rounding happens once, per tax group.
func (l *InvoiceLine) NetAmount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Sub(l.DiscountAmount).Add(l.ChargeAmount)
}

// Invoice is the canonical document all three renditions are produced
// from. Totals and tax summaries are never stored on it; they are
// recomputed from the lines by the tax engine whenever consulted.
type Invoice struct {
	Number    string          `json:"number"`
	IssueDate time.Time       `json:"issue_date"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
	TypeCode  InvoiceTypeCode `json:"type_code"`
	Currency  Currency        `json:"currency"`

	// OperationCategory is mandatory under the 2026 reform
	OperationCategory OperationCategory `json:"operation_category"`
	// VATOnDebits marks the option whereby VAT is due on debits rather
	// than on collection
	VATOnDebits bool `json:"vat_on_debits,omitempty"`

	Seller Party  `json:"seller"`
	Buyer  Party  `json:"buyer"`
	Payee  *Party `json:"payee,omitempty"`
	Payer  *Party `json:"payer,omitempty"`

	Lines []InvoiceLine `json:"lines"`

	PurchaseOrderReference    string `json:"purchase_order_reference,omitempty"`
	ContractReference         string `json:"contract_reference,omitempty"`
	PrecedingInvoiceReference string `json:"preceding_invoice_reference,omitempty"`
	BuyerAccountingReference  string `json:"buyer_accounting_reference,omitempty"`

	PaymentTerms  *PaymentTerms   `json:"payment_terms,omitempty"`
	PaymentMeans  *PaymentMeans   `json:"payment_means,omitempty"`
	PrepaidAmount decimal.Decimal `json:"prepaid_amount,omitempty"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	Note string `json:"note,omitempty"`
}

// InvoiceOption configures an invoice at construction
type InvoiceOption func(*Invoice)

// WithTypeCode sets the document type code
func WithTypeCode(code InvoiceTypeCode) InvoiceOption {
	return func(inv *Invoice) { inv.TypeCode = code }
}

// WithCurrency sets the document currency
func WithCurrency(c Currency) InvoiceOption {
	return func(inv *Invoice) { inv.Currency = c }
}

// WithDueDate sets the payment due date
func WithDueDate(d time.Time) InvoiceOption {
	return func(inv *Invoice) { inv.DueDate = &d }
}

// WithVATOnDebits marks the VAT-on-debits option
func WithVATOnDebits() InvoiceOption {
	return func(inv *Invoice) { inv.VATOnDebits = true }
}

// WithPrecedingReference references the corrected or credited invoice
func WithPrecedingReference(ref string) InvoiceOption {
	return func(inv *Invoice) { inv.PrecedingInvoiceReference = ref }
}

// WithPurchaseOrder sets the buyer purchase order reference
func WithPurchaseOrder(ref string) InvoiceOption {
	return func(inv *Invoice) { inv.PurchaseOrderReference = ref }
}

// WithContractReference sets the contract reference
func WithContractReference(ref string) InvoiceOption {
	return func(inv *Invoice) { inv.ContractReference = ref }
}

// WithBuyerAccountingReference sets the buyer's accounting cost code
func WithBuyerAccountingReference(ref string) InvoiceOption {
	return func(inv *Invoice) { inv.BuyerAccountingReference = ref }
}

// WithPaymentTerms attaches payment terms
func WithPaymentTerms(terms *PaymentTerms) InvoiceOption {
	return func(inv *Invoice) { inv.PaymentTerms = terms }
}

// WithPaymentMeans attaches payment means
func WithPaymentMeans(means *PaymentMeans) InvoiceOption {
	return func(inv *Invoice) { inv.PaymentMeans = means }
}

// WithPrepaidAmount records an amount already paid
func WithPrepaidAmount(amount decimal.Decimal) InvoiceOption {
	return func(inv *Invoice) { inv.PrepaidAmount = amount }
}

// WithBillingPeriod sets the document-level billing period
func WithBillingPeriod(start, end time.Time) InvoiceOption {
	return func(inv *Invoice) {
		inv.PeriodStart = &start
		inv.PeriodEnd = &end
	}
}

// WithPayee sets a payee distinct from the seller
func WithPayee(p *Party) InvoiceOption {
	return func(inv *Invoice) { inv.Payee = p }
}

// WithPayer sets a payer distinct from the buyer
func WithPayer(p *Party) InvoiceOption {
	return func(inv *Invoice) { inv.Payer = p }
}

// WithNote attaches a free-text note
func WithNote(note string) InvoiceOption {
	return func(inv *Invoice) { inv.Note = note }
}

// NewInvoice builds an invoice with defaults (type 380, EUR) and
// enforces the document invariants. Line numbers left at zero are
// assigned from position.
func NewInvoice(number string, issueDate time.Time, seller, buyer Party, lines []InvoiceLine, category OperationCategory, opts ...InvoiceOption) (*Invoice, error) {
	inv := &Invoice{
		Number:            number,
		IssueDate:         issueDate,
		TypeCode:          TypeInvoice,
		Currency:          CurrencyEUR,
		OperationCategory: category,
		Seller:            seller,
		Buyer:             buyer,
		Lines:             lines,
	}
	for _, opt := range opts {
		opt(inv)
	}
	for i := range inv.Lines {
		if inv.Lines[i].Number == 0 {
			inv.Lines[i].Number = i + 1
		}
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks every document invariant. It is called by NewInvoice
// and again on invoices decoded from JSON, which bypass the constructor.
func (inv *Invoice) Validate() error {
	if inv.Number == "" {
		return NewValidationError("number", nil, "required", "invoice number is required")
	}
	if inv.IssueDate.IsZero() {
		return NewValidationError("issue_date", nil, "required", "issue date is required")
	}
	if !inv.TypeCode.Valid() {
		return NewValidationError("type_code", int(inv.TypeCode), "enum", "unknown invoice type code")
	}
	if !inv.Currency.Valid() {
		return NewValidationError("currency", string(inv.Currency), "enum", "unsupported currency")
	}
	if !inv.OperationCategory.Valid() {
		return NewValidationError("operation_category", string(inv.OperationCategory), "required", "operation category is mandatory")
	}
	if len(inv.Lines) == 0 {
		return NewValidationError("lines", nil, "min-items", "invoice requires at least one line")
	}
	if inv.TypeCode.RequiresPrecedingReference() && inv.PrecedingInvoiceReference == "" {
		return NewValidationError("preceding_invoice_reference", nil, "required",
			"credit notes and corrected invoices must reference the preceding invoice")
	}
	if inv.PrepaidAmount.IsNegative() {
		return NewValidationError("prepaid_amount", inv.PrepaidAmount.String(), "non-negative", "prepaid amount must not be negative")
	}
	if err := inv.Seller.Validate(); err != nil {
		return err
	}
	if inv.Seller.Siren == "" {
		return NewValidationError("seller.siren", nil, "required", "seller SIREN is required")
	}
	if err := inv.Buyer.Validate(); err != nil {
		return err
	}
	if inv.Payee != nil {
		if err := inv.Payee.Validate(); err != nil {
			return err
		}
	}
	if inv.Payer != nil {
		if err := inv.Payer.Validate(); err != nil {
			return err
		}
	}
	if inv.PaymentMeans != nil {
		if err := inv.PaymentMeans.Validate(); err != nil {
			return err
		}
	}
	if inv.PeriodStart != nil && inv.PeriodEnd != nil && inv.PeriodEnd.Before(*inv.PeriodStart) {
		return NewValidationError("period_end", inv.PeriodEnd, "ordering", "billing period end precedes its start")
	}
	for i := range inv.Lines {
		if err := inv.Lines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
