package facturxlib

import (
	"context"
	"io"

	"github.com/rezonia/facturx-fr/internal/generator"
	"github.com/rezonia/facturx-fr/internal/model"
	parser "github.com/rezonia/facturx-fr/internal/parser/xml"
	"github.com/rezonia/facturx-fr/internal/pdf"
	"github.com/rezonia/facturx-fr/internal/signature"
	"github.com/rezonia/facturx-fr/internal/signature/trust"
	xmlsig "github.com/rezonia/facturx-fr/internal/signature/xml"
	"github.com/rezonia/facturx-fr/internal/tax"
	"github.com/rezonia/facturx-fr/internal/validator"
)

// Re-export document processing result types
type (
	TaxResult       = tax.Result
	TaxSummary      = tax.Summary
	FacturXResult   = generator.Result
	SignatureResult = signature.Result
	SignerInfo      = signature.SignerInfo
)

// Engine bundles the generators, the validator and the parsers behind a
// single entry point. A zero-configuration Engine handles every format
// the module knows about.
type Engine struct {
	generators *generator.Registry
	peppol     *generator.UBLGenerator
	facturx    *generator.FacturXGenerator
	validator  *validator.Validator
	parsers    *parser.Registry
	embedder   *pdf.Embedder
}

// New creates an Engine with all formats registered
func New() *Engine {
	return &Engine{
		generators: generator.NewRegistry(),
		peppol:     generator.NewUBLGenerator(generator.WithPeppol()),
		facturx:    generator.NewFacturXGenerator(),
		validator:  validator.New(),
		parsers:    parser.NewRegistry(),
		embedder:   pdf.NewEmbedder(),
	}
}

// GenerateCII renders the invoice as a UN/CEFACT Cross Industry Invoice
func (e *Engine) GenerateCII(inv *Invoice, profile Profile) ([]byte, error) {
	return e.generators.Generate(inv, model.FormatCII, profile)
}

// GenerateUBL renders the invoice as an OASIS UBL 2.1 document. Credit
// notes come out under the CreditNote root element.
func (e *Engine) GenerateUBL(inv *Invoice, profile Profile) ([]byte, error) {
	return e.generators.Generate(inv, model.FormatUBL, profile)
}

// GeneratePeppol renders the invoice as UBL stamped with the Peppol
// BIS Billing 3.0 customization, for routing over the Peppol network
func (e *Engine) GeneratePeppol(inv *Invoice) ([]byte, error) {
	return e.peppol.Generate(inv, model.ProfileEN16931)
}

// GenerateFacturX embeds the CII rendition of the invoice into the
// given PDF, producing a Factur-X hybrid
func (e *Engine) GenerateFacturX(inv *Invoice, profile Profile, pdfData []byte) (*FacturXResult, error) {
	return e.facturx.GenerateWithPDF(inv, profile, pdfData)
}

// Validate checks a document against the structural and business rules
// for its detected format and profile. A Factur-X PDF is unwrapped to
// its XML rendition first. Findings describe rule violations; a nil
// error with zero findings means the document is valid.
func (e *Engine) Validate(data []byte) ([]string, error) {
	if pdf.IsPDF(data) {
		xml, err := e.embedder.ExtractXML(data)
		if err != nil {
			return nil, &model.ParseError{Format: model.FormatFacturX, Message: "no XML rendition in PDF", Cause: err}
		}
		data = xml
	}
	return e.validator.ValidateXML(data, model.FormatUnknown, "")
}

// DetectFormat identifies the document rendition without parsing it
func (e *Engine) DetectFormat(data []byte) Format {
	if pdf.IsPDF(data) {
		return model.FormatFacturX
	}
	return validator.DetectFormat(data)
}

// Parse reads a document in any supported format and returns the
// canonical invoice. Factur-X PDFs are unwrapped first.
func (e *Engine) Parse(ctx context.Context, r io.Reader) (*Invoice, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.ParseError{Message: "failed to read input", Cause: err}
	}

	if pdf.IsPDF(data) {
		data, err = e.embedder.ExtractXML(data)
		if err != nil {
			return nil, &model.ParseError{Format: model.FormatFacturX, Message: "no XML rendition in PDF", Cause: err}
		}
	}

	return e.parsers.Parse(ctx, data)
}

// ParseBatch parses multiple documents concurrently. Results keep the
// order of the inputs; the first error encountered is returned after
// all inputs have been processed.
func (e *Engine) ParseBatch(ctx context.Context, inputs []io.Reader) ([]*Invoice, error) {
	results := make([]*Invoice, len(inputs))
	errCh := make(chan error, len(inputs))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			inv, err := e.Parse(ctx, r)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = inv
			errCh <- nil
		}(i, input)
	}

	// Wait for all goroutines
	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}

// ExtractXML pulls the embedded XML rendition out of a Factur-X PDF
func (e *Engine) ExtractXML(pdfData []byte) ([]byte, error) {
	return e.embedder.ExtractXML(pdfData)
}

// Totals computes the VAT breakdown and document totals of an invoice
func (e *Engine) Totals(inv *Invoice) *TaxResult {
	return tax.Compute(inv)
}

// VerifySignature checks the XMLDSig signature of a document against
// the given PEM trust anchors. Revocation checking is soft-fail: an
// unreachable OCSP responder downgrades to a warning instead of
// invalidating the signature.
func VerifySignature(ctx context.Context, data, anchorsPEM []byte) (*SignatureResult, error) {
	store := trust.NewEmptyStore(trust.WithSoftFail())
	if len(anchorsPEM) > 0 {
		if err := store.AddCertificatesFromPEM(anchorsPEM); err != nil {
			return nil, err
		}
	}

	registry := signature.NewRegistry()
	registry.Register(xmlsig.NewVerifier(store))

	return registry.Verify(ctx, data)
}
