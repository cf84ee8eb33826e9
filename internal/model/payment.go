package model

import "github.com/shopspring/decimal"

// BankAccount identifies the account payments should reach
type BankAccount struct {
	IBAN string `json:"iban"`
	BIC  string `json:"bic,omitempty"`
}

// Validate checks that the account carries an IBAN
func (b *BankAccount) Validate() error {
	if b.IBAN == "" {
		return NewValidationError("iban", nil, "required", "bank account requires an IBAN")
	}
	return nil
}

// PaymentTerms carries the conditions printed on the invoice. French
// law requires the late-payment penalty rate and the fixed recovery
// indemnity (40 EUR) to appear on B2B invoices.
type PaymentTerms struct {
	Description       string          `json:"description,omitempty"`
	LatePenaltyRate   decimal.Decimal `json:"late_penalty_rate,omitempty"`
	EarlyDiscountRate decimal.Decimal `json:"early_discount_rate,omitempty"`
	RecoveryFee       decimal.Decimal `json:"recovery_fee,omitempty"`
}

// NewPaymentTerms creates payment terms with the statutory 40 EUR
// recovery indemnity
func NewPaymentTerms(description string) *PaymentTerms {
	return &PaymentTerms{
		Description: description,
		RecoveryFee: decimal.NewFromInt(40),
	}
}

// PaymentMeans describes how the invoice is to be settled
type PaymentMeans struct {
	Code      PaymentMeansCode `json:"code"`
	Account   *BankAccount     `json:"account,omitempty"`
	Reference string           `json:"reference,omitempty"`
}

// Validate checks the payment means invariants
func (m *PaymentMeans) Validate() error {
	if m.Code == "" {
		return NewValidationError("code", nil, "required", "payment means code is required")
	}
	if m.Account != nil {
		return m.Account.Validate()
	}
	return nil
}
