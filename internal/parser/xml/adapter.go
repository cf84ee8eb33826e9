// Package xml parses received invoice documents back into the
// canonical model. Adapters are namespace-tolerant: they match on
// local element names, so documents using unusual prefixes still
// parse.
package xml

import (
	"bytes"
	"context"
	"io"

	"github.com/rezonia/facturx-fr/internal/model"
)

// Adapter parses one document format into the canonical invoice
type Adapter interface {
	// Parse reads a document and reconstructs the invoice
	Parse(ctx context.Context, r io.Reader) (*model.Invoice, error)

	// CanParse returns true if the adapter can handle this content
	CanParse(content []byte) bool

	// Format returns the format the adapter handles
	Format() model.Format
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry with all adapters.
// Order matters: the PDF sniff must run before the XML adapters.
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewFacturXAdapter(), // %PDF header - unique
			NewCIIAdapter(),     // CrossIndustryInvoice root
			NewUBLAdapter(),     // Invoice / CreditNote root
		},
	}
}

// Detect identifies the document format from its content
func (r *Registry) Detect(content []byte) (Adapter, error) {
	for _, a := range r.adapters {
		if a.CanParse(content) {
			return a, nil
		}
	}
	return nil, model.NewParseError(model.FormatUnknown, "root", "unknown document format, no matching adapter found", nil)
}

// Parse parses content using the appropriate adapter
func (r *Registry) Parse(ctx context.Context, content []byte) (*model.Invoice, error) {
	adapter, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(ctx, bytes.NewReader(content))
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// Add at the beginning so custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}

// ForFormat returns the adapter for a specific format
func (r *Registry) ForFormat(format model.Format) Adapter {
	for _, a := range r.adapters {
		if a.Format() == format {
			return a
		}
	}
	return nil
}
