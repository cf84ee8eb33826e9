package server

import (
	"time"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/model"
)

// GenerateRequest carries an invoice to render as XML
type GenerateRequest struct {
	Invoice *model.Invoice `json:"invoice" binding:"required"`
	Profile string         `json:"profile"`
	Peppol  bool           `json:"peppol,omitempty"`
}

// FacturXRequest carries an invoice plus the PDF visual to embed into.
// JSON bodies send the pdf base64-encoded; multipart uploads send it as
// a file part named "pdf" with the invoice JSON in a form field.
type FacturXRequest struct {
	Invoice *model.Invoice `json:"invoice" binding:"required"`
	Profile string         `json:"profile"`
	PDF     []byte         `json:"pdf" binding:"required"`
}

// ValidationResponse is the response for the validate endpoint
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Format   string   `json:"format"`
	Findings []string `json:"findings,omitempty"`
}

// ParseResponse is the response for the parse endpoint
type ParseResponse struct {
	Format  string         `json:"format"`
	Invoice *model.Invoice `json:"invoice"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// EReportingTransactionRequest builds an e-reporting transaction from an
// invoice. The seller SIREN defaults to the invoice seller's.
type EReportingTransactionRequest struct {
	Invoice         *model.Invoice `json:"invoice" binding:"required"`
	TransactionType string         `json:"transaction_type" binding:"required,oneof=b2c_domestic b2b_intra_eu b2b_extra_eu"`
	CountryCode     string         `json:"country_code"`
	Regime          string         `json:"regime" binding:"omitempty,oneof=real_normal_monthly real_normal_quarterly simplified_real franchise"`
	SellerSiren     string         `json:"seller_siren" binding:"omitempty,siren"`
}

// EReportingTransactionResponse is the response for the e-reporting
// transaction endpoint
type EReportingTransactionResponse struct {
	Valid       bool                    `json:"valid"`
	Transaction *ereporting.Transaction `json:"transaction"`
	Findings    []string                `json:"findings,omitempty"`
}

// StatusInfo describes one lifecycle status
type StatusInfo struct {
	Code           int    `json:"code"`
	Label          string `json:"label"`
	Category       string `json:"category"`
	Producer       string `json:"producer"`
	Terminal       bool   `json:"terminal"`
	ReasonRequired bool   `json:"reason_required"`
	Transitions    []int  `json:"transitions"`
}

// TransitionTarget is one reachable status
type TransitionTarget struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// TransitionsResponse lists the statuses reachable from a given one
type TransitionsResponse struct {
	Code        int                `json:"code"`
	Label       string             `json:"label"`
	Terminal    bool               `json:"terminal"`
	Transitions []TransitionTarget `json:"transitions"`
}

// VerifyResponse is the response for the signature verification endpoint
type VerifyResponse struct {
	Valid          bool              `json:"valid"`
	SignatureFound bool              `json:"signature_found"`
	SignatureValid bool              `json:"signature_valid"`
	CertChainValid bool              `json:"cert_chain_valid"`
	NotRevoked     bool              `json:"not_revoked"`
	TimestampValid bool              `json:"timestamp_valid,omitempty"`
	Format         string            `json:"format,omitempty"`
	Signer         *SignerInfoOutput `json:"signer,omitempty"`
	SignedAt       *time.Time        `json:"signed_at,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Errors         []string          `json:"errors,omitempty"`
}

// SignerInfoOutput holds signer info for API responses
type SignerInfoOutput struct {
	Name         string     `json:"name,omitempty"`
	Organization string     `json:"organization,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Issuer       string     `json:"issuer,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
}
