package xml

import (
	"bytes"
	"context"
	"io"

	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/pdf"
)

// FacturXAdapter handles hybrid documents: it pulls the embedded XML
// rendition out of the PDF container and hands it to the CII adapter
type FacturXAdapter struct {
	embedder *pdf.Embedder
	cii      *CIIAdapter
}

// NewFacturXAdapter creates a new Factur-X adapter
func NewFacturXAdapter() *FacturXAdapter {
	return &FacturXAdapter{
		embedder: pdf.NewEmbedder(),
		cii:      NewCIIAdapter(),
	}
}

// Format returns the format the adapter handles
func (a *FacturXAdapter) Format() model.Format {
	return model.FormatFacturX
}

// CanParse checks if content is a PDF container
func (a *FacturXAdapter) CanParse(content []byte) bool {
	return pdf.IsPDF(content)
}

// Parse extracts the embedded XML rendition and parses it as CII
func (a *FacturXAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(model.FormatFacturX, "content", "failed to read content", err)
	}
	xml, err := a.embedder.ExtractXML(content)
	if err != nil {
		return nil, model.NewParseError(model.FormatFacturX, "attachment", "no usable XML rendition in the PDF", err)
	}
	if !a.cii.CanParse(xml) {
		return nil, model.NewParseError(model.FormatFacturX, "attachment", "embedded rendition is not a CII document", nil)
	}
	return a.cii.Parse(ctx, bytes.NewReader(xml))
}
