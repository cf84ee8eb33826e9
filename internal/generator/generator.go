// Package generator renders the canonical invoice model into the three
// regulated document formats: UN/CEFACT CII XML, UBL 2.1 XML and the
// Factur-X hybrid (PDF/A-3 with embedded CII). All monetary values in
// the output come from the tax engine; generators never do arithmetic
// of their own.
package generator

import (
	"github.com/rezonia/facturx-fr/internal/model"
)

// Generator renders an invoice into one serialization format
type Generator interface {
	// Generate produces the document bytes for the given profile.
	// It returns a *model.GenerationError when a field required by the
	// format or profile is missing; no partial output is ever returned.
	Generate(inv *model.Invoice, profile model.Profile) ([]byte, error)

	// Format returns the format this generator produces
	Format() model.Format
}

// Result is the output of the Factur-X orchestrator: the CII XML, the
// PDF carrying it as an attachment, and the profile both were built at.
type Result struct {
	XML     []byte
	PDF     []byte
	Profile model.Profile
}

// Registry holds all registered generators
type Registry struct {
	generators []Generator
}

// NewRegistry creates a registry with the standard generators
func NewRegistry() *Registry {
	return &Registry{
		generators: []Generator{
			NewCIIGenerator(),
			NewUBLGenerator(),
			NewFacturXGenerator(),
		},
	}
}

// Get returns the generator for a format, or nil if none is registered
func (r *Registry) Get(format model.Format) Generator {
	for _, g := range r.generators {
		if g.Format() == format {
			return g
		}
	}
	return nil
}

// Generate renders the invoice in the requested format
func (r *Registry) Generate(inv *model.Invoice, format model.Format, profile model.Profile) ([]byte, error) {
	g := r.Get(format)
	if g == nil {
		return nil, model.NewGenerationError(format, "format", "no generator registered for this format", nil)
	}
	return g.Generate(inv, profile)
}

// Register adds a custom generator. It takes priority over a standard
// generator for the same format.
func (r *Registry) Register(g Generator) {
	r.generators = append([]Generator{g}, r.generators...)
}
