// Package pdp defines the contract between the engine and the
// accredited filing platforms (plateformes de dématérialisation
// partenaires) that carry invoices and e-reporting data to the tax
// authority. The rest of the module depends only on the Connector
// interface; the in-memory and HTTP implementations live here too.
//
// Connectors perform no retry or backoff. Callers own that policy.
package pdp

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
)

// Direction tells whether an invoice was sent by us or received for us
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// EReportingStatus is the platform-side processing state of an
// e-reporting submission
type EReportingStatus string

const (
	EReportingAccepted EReportingStatus = "accepted"
	EReportingRejected EReportingStatus = "rejected"
	EReportingPending  EReportingStatus = "pending"
)

// Search pagination bounds
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// SubmissionResponse acknowledges an invoice deposit
type SubmissionResponse struct {
	InvoiceID   string              `json:"invoice_id"`
	Status      model.InvoiceStatus `json:"status"`
	SubmittedAt time.Time           `json:"submitted_at"`
}

// LifecycleResponse is the ordered status history of one invoice
type LifecycleResponse struct {
	InvoiceID     string              `json:"invoice_id"`
	CurrentStatus model.InvoiceStatus `json:"current_status"`
	Events        []lifecycle.Event   `json:"events"`
}

// StatusUpdateResponse confirms a lifecycle status change
type StatusUpdateResponse struct {
	InvoiceID string              `json:"invoice_id"`
	Status    model.InvoiceStatus `json:"status"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SearchFilters narrows an invoice search. The zero value matches
// everything on the first page.
type SearchFilters struct {
	Status      *model.InvoiceStatus `json:"status,omitempty"`
	DateFrom    *time.Time           `json:"date_from,omitempty"`
	DateTo      *time.Time           `json:"date_to,omitempty"`
	SellerSiren string               `json:"seller_siren,omitempty"`
	BuyerSiren  string               `json:"buyer_siren,omitempty"`
	Direction   Direction            `json:"direction,omitempty"`
	Page        int                  `json:"page,omitempty"`
	PageSize    int                  `json:"page_size,omitempty"`
}

// withDefaults clamps pagination into the allowed bounds
func (f *SearchFilters) withDefaults() SearchFilters {
	out := SearchFilters{}
	if f != nil {
		out = *f
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	return out
}

// InvoiceSummary is one row of a search result
type InvoiceSummary struct {
	InvoiceID    string              `json:"invoice_id"`
	Number       string              `json:"number"`
	IssueDate    time.Time           `json:"issue_date"`
	SellerName   string              `json:"seller_name"`
	BuyerName    string              `json:"buyer_name"`
	TotalInclTax decimal.Decimal     `json:"total_incl_tax"`
	Currency     model.Currency      `json:"currency"`
	Status       model.InvoiceStatus `json:"status"`
	Direction    Direction           `json:"direction"`
}

// SearchResult is one page of matching invoices
type SearchResult struct {
	Results    []InvoiceSummary `json:"results"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// EReportingResponse acknowledges an e-reporting submission
type EReportingResponse struct {
	SubmissionID string           `json:"submission_id"`
	Status       EReportingStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Errors       []string         `json:"errors,omitempty"`
}

// DirectoryEntry maps a SIREN to its receiving platform in the
// central directory
type DirectoryEntry struct {
	Siren             string     `json:"siren"`
	CompanyName       string     `json:"company_name"`
	PlatformID        string     `json:"platform_id"`
	PlatformName      string     `json:"platform_name"`
	ElectronicAddress string     `json:"electronic_address"`
	RegistrationDate  *time.Time `json:"registration_date,omitempty"`
}

// Connector is the filing-platform contract. Every operation may fail
// with one of the four error kinds of this package: AuthError,
// ValidationError, NotFoundError or ConnError.
type Connector interface {
	// Submit deposits an invoice. The XML is optional (the platform
	// may generate it), so is the PDF rendition.
	Submit(ctx context.Context, inv *model.Invoice, xmlBytes, pdfBytes []byte) (*SubmissionResponse, error)

	// GetStatus returns the current lifecycle status of an invoice
	GetStatus(ctx context.Context, invoiceID string) (model.InvoiceStatus, error)

	// GetLifecycle returns the full status history of an invoice
	GetLifecycle(ctx context.Context, invoiceID string) (*LifecycleResponse, error)

	// GetInvoice returns the stored XML of an invoice
	GetInvoice(ctx context.Context, invoiceID string) ([]byte, error)

	// SearchInvoices returns the page of invoices matching the filters
	SearchInvoices(ctx context.Context, filters *SearchFilters) (*SearchResult, error)

	// UpdateStatus moves an invoice through its lifecycle. Options
	// carry the reason, reason code and amount where the target status
	// needs them.
	UpdateStatus(ctx context.Context, invoiceID string, status model.InvoiceStatus, opts ...lifecycle.TransitionOption) (*StatusUpdateResponse, error)

	// LookupDirectory resolves a SIREN to its receiving platform
	LookupDirectory(ctx context.Context, siren string) (*DirectoryEntry, error)

	// SubmitEReportingTransaction sends transaction or aggregate data
	SubmitEReportingTransaction(ctx context.Context, sub *ereporting.Submission) (*EReportingResponse, error)

	// SubmitEReportingPayment sends payment data
	SubmitEReportingPayment(ctx context.Context, sub *ereporting.Submission) (*EReportingResponse, error)

	// GetEReportingStatus returns the processing state of a submission
	GetEReportingStatus(ctx context.Context, submissionID string) (*EReportingResponse, error)
}
