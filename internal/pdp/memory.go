package pdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/tax"
)

// storedInvoice couples an invoice with its lifecycle and the bytes
// the platform would serve back
type storedInvoice struct {
	id          string
	invoice     model.Invoice
	xml         []byte
	pdf         []byte
	manager     *lifecycle.Manager
	submittedAt time.Time
	direction   Direction
	totals      tax.Result
}

// MemoryConnector implements Connector entirely in memory. It backs
// tests and local development: sequential MEM-NNNNNN identifiers, a
// seedable directory, and real lifecycle checks on status updates.
type MemoryConnector struct {
	mu         sync.Mutex
	invoices   []*storedInvoice
	byID       map[string]*storedInvoice
	directory  map[string]DirectoryEntry
	ereporting map[string]*EReportingResponse
	counter    int
}

var _ Connector = (*MemoryConnector)(nil)

// NewMemoryConnector creates an empty in-memory platform
func NewMemoryConnector() *MemoryConnector {
	return &MemoryConnector{
		byID:       make(map[string]*storedInvoice),
		directory:  make(map[string]DirectoryEntry),
		ereporting: make(map[string]*EReportingResponse),
	}
}

func (m *MemoryConnector) nextID() string {
	m.counter++
	return fmt.Sprintf("MEM-%06d", m.counter)
}

func (m *MemoryConnector) store(inv *model.Invoice, xmlBytes, pdfBytes []byte, direction Direction) *storedInvoice {
	if len(xmlBytes) == 0 {
		xmlBytes = []byte("<placeholder/>")
	}
	stored := &storedInvoice{
		id:          m.nextID(),
		invoice:     *inv,
		xml:         xmlBytes,
		pdf:         pdfBytes,
		manager:     lifecycle.NewManager(inv.Number),
		submittedAt: time.Now().UTC(),
		direction:   direction,
		totals:      *tax.Compute(inv),
	}
	m.invoices = append(m.invoices, stored)
	m.byID[stored.id] = stored
	return stored
}

func (m *MemoryConnector) get(invoiceID string) (*storedInvoice, error) {
	stored, ok := m.byID[invoiceID]
	if !ok {
		return nil, &NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	return stored, nil
}

// Submit deposits an invoice and starts its lifecycle at deposited
func (m *MemoryConnector) Submit(ctx context.Context, inv *model.Invoice, xmlBytes, pdfBytes []byte) (*SubmissionResponse, error) {
	if inv == nil {
		return nil, &ValidationError{Message: "no invoice given"}
	}
	if err := inv.Validate(); err != nil {
		return nil, &ValidationError{Message: "invoice fails its invariants", Errors: []string{err.Error()}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.store(inv, xmlBytes, pdfBytes, DirectionSent)
	return &SubmissionResponse{
		InvoiceID:   stored.id,
		Status:      model.StatusDeposited,
		SubmittedAt: stored.submittedAt,
	}, nil
}

// GetStatus returns the current status of a stored invoice
func (m *MemoryConnector) GetStatus(ctx context.Context, invoiceID string) (model.InvoiceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.get(invoiceID)
	if err != nil {
		return 0, err
	}
	return stored.manager.Status(), nil
}

// GetLifecycle returns the full status history of a stored invoice
func (m *MemoryConnector) GetLifecycle(ctx context.Context, invoiceID string) (*LifecycleResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.get(invoiceID)
	if err != nil {
		return nil, err
	}
	return &LifecycleResponse{
		InvoiceID:     stored.id,
		CurrentStatus: stored.manager.Status(),
		Events:        stored.manager.History(),
	}, nil
}

// GetInvoice returns the stored XML
func (m *MemoryConnector) GetInvoice(ctx context.Context, invoiceID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.get(invoiceID)
	if err != nil {
		return nil, err
	}
	return stored.xml, nil
}

// SearchInvoices filters the store in submission order and paginates
func (m *MemoryConnector) SearchInvoices(ctx context.Context, filters *SearchFilters) (*SearchResult, error) {
	f := filters.withDefaults()

	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []InvoiceSummary
	for _, stored := range m.invoices {
		inv := &stored.invoice
		status := stored.manager.Status()

		if f.Status != nil && status != *f.Status {
			continue
		}
		if f.DateFrom != nil && inv.IssueDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && inv.IssueDate.After(*f.DateTo) {
			continue
		}
		if f.SellerSiren != "" && inv.Seller.Siren != f.SellerSiren {
			continue
		}
		if f.BuyerSiren != "" && inv.Buyer.Siren != f.BuyerSiren {
			continue
		}
		if f.Direction != "" && stored.direction != f.Direction {
			continue
		}

		matches = append(matches, InvoiceSummary{
			InvoiceID:    stored.id,
			Number:       inv.Number,
			IssueDate:    inv.IssueDate,
			SellerName:   inv.Seller.Name,
			BuyerName:    inv.Buyer.Name,
			TotalInclTax: stored.totals.GrossTotal,
			Currency:     inv.Currency,
			Status:       status,
			Direction:    stored.direction,
		})
	}

	total := len(matches)
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}

	return &SearchResult{
		Results:    matches[start:end],
		TotalCount: total,
		Page:       f.Page,
		PageSize:   f.PageSize,
	}, nil
}

// UpdateStatus runs the transition through the invoice's lifecycle
// manager, so illegal moves and missing reasons are refused exactly
// as the regulator's graph demands
func (m *MemoryConnector) UpdateStatus(ctx context.Context, invoiceID string, status model.InvoiceStatus, opts ...lifecycle.TransitionOption) (*StatusUpdateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.get(invoiceID)
	if err != nil {
		return nil, err
	}
	if _, err := stored.manager.Transition(status, opts...); err != nil {
		return nil, &ValidationError{
			Message: "lifecycle transition refused",
			Errors:  []string{err.Error()},
		}
	}
	return &StatusUpdateResponse{
		InvoiceID: stored.id,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// LookupDirectory resolves a seeded directory entry
func (m *MemoryConnector) LookupDirectory(ctx context.Context, siren string) (*DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.directory[siren]
	if !ok {
		return nil, &NotFoundError{Resource: "directory entry", ID: siren}
	}
	return &entry, nil
}

// SubmitEReportingTransaction accepts transaction or aggregate data
func (m *MemoryConnector) SubmitEReportingTransaction(ctx context.Context, sub *ereporting.Submission) (*EReportingResponse, error) {
	if sub == nil {
		return nil, &ValidationError{Message: "no submission given"}
	}
	if sub.Payment != nil {
		return nil, &ValidationError{Message: "payment data goes through SubmitEReportingPayment"}
	}
	if sub.Transaction == nil && sub.Aggregate == nil {
		return nil, &ValidationError{Message: "submission carries no transaction or aggregate data"}
	}
	return m.acceptEReporting(sub.ID), nil
}

// SubmitEReportingPayment accepts payment data
func (m *MemoryConnector) SubmitEReportingPayment(ctx context.Context, sub *ereporting.Submission) (*EReportingResponse, error) {
	if sub == nil {
		return nil, &ValidationError{Message: "no submission given"}
	}
	if sub.Payment == nil {
		return nil, &ValidationError{Message: "submission carries no payment data"}
	}
	return m.acceptEReporting(sub.ID), nil
}

func (m *MemoryConnector) acceptEReporting(submissionID string) *EReportingResponse {
	if submissionID == "" {
		submissionID = uuid.NewString()
	}
	resp := &EReportingResponse{
		SubmissionID: submissionID,
		Status:       EReportingAccepted,
		SubmittedAt:  time.Now().UTC(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ereporting[submissionID] = resp
	return resp
}

// GetEReportingStatus returns the state of a prior submission
func (m *MemoryConnector) GetEReportingStatus(ctx context.Context, submissionID string) (*EReportingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.ereporting[submissionID]
	if !ok {
		return nil, &NotFoundError{Resource: "e-reporting submission", ID: submissionID}
	}
	return resp, nil
}

// AddDirectoryEntry seeds the simulated central directory
func (m *MemoryConnector) AddDirectoryEntry(entry DirectoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directory[entry.Siren] = entry
}

// AddReceivedInvoice seeds an inbound invoice, as if another platform
// had routed it to us, and returns its identifier
func (m *MemoryConnector) AddReceivedInvoice(inv *model.Invoice, xmlBytes []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(inv, xmlBytes, nil, DirectionReceived).id
}
