package generator

import (
	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/pdf"
)

// Embedder attaches the XML rendition to a PDF container
type Embedder interface {
	Embed(pdfData, xml []byte) ([]byte, error)
}

// FacturXGenerator orchestrates the hybrid format: it renders the CII
// rendition and embeds it into a caller-supplied PDF. The PDF is the
// human-readable face of the document and cannot be synthesized from
// the invoice data, so generation without one always fails.
type FacturXGenerator struct {
	cii      *CIIGenerator
	embedder Embedder
}

// FacturXOption configures the orchestrator
type FacturXOption func(*FacturXGenerator)

// WithEmbedder replaces the PDF attachment backend
func WithEmbedder(e Embedder) FacturXOption {
	return func(g *FacturXGenerator) { g.embedder = e }
}

// NewFacturXGenerator creates the hybrid orchestrator with the default
// PDF backend
func NewFacturXGenerator(opts ...FacturXOption) *FacturXGenerator {
	g := &FacturXGenerator{
		cii:      NewCIIGenerator(),
		embedder: pdf.NewEmbedder(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Format returns the format this generator produces
func (g *FacturXGenerator) Format() model.Format {
	return model.FormatFacturX
}

// Generate always fails: the hybrid needs the visual PDF. Use
// GenerateWithPDF.
func (g *FacturXGenerator) Generate(inv *model.Invoice, profile model.Profile) ([]byte, error) {
	return nil, model.NewGenerationError(model.FormatFacturX, "pdf",
		"the hybrid format requires the visual PDF, call GenerateWithPDF", nil)
}

// GenerateWithPDF renders the CII XML at the given profile and embeds
// it into pdfData. Nothing is emitted unless both steps succeed.
func (g *FacturXGenerator) GenerateWithPDF(inv *model.Invoice, profile model.Profile, pdfData []byte) (*Result, error) {
	if len(pdfData) == 0 {
		return nil, model.NewGenerationError(model.FormatFacturX, "pdf", "pdf bytes are required", nil)
	}
	if !pdf.IsPDF(pdfData) {
		return nil, model.NewGenerationError(model.FormatFacturX, "pdf", "data does not start with a PDF header", nil)
	}
	xml, err := g.cii.Generate(inv, profile)
	if err != nil {
		return nil, err
	}
	out, err := g.embedder.Embed(pdfData, xml)
	if err != nil {
		return nil, model.NewGenerationError(model.FormatFacturX, "pdf", "embedding the XML failed", err)
	}
	return &Result{XML: xml, PDF: out, Profile: profile}, nil
}
