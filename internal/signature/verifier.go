package signature

import "context"

// FormatXML identifies the XMLDSig verifier. Invoice formats that are
// plain XML (CII, UBL) and lifecycle messages all fall under it.
const FormatXML = "xml"

// Verifier defines the interface for signature verification
type Verifier interface {
	// Verify checks the digital signature on the given document
	// and returns a Result with the outcome of each check
	Verify(ctx context.Context, data []byte) (*Result, error)

	// CanVerify returns true if this verifier can handle the given data
	CanVerify(data []byte) bool

	// Format returns the signature format this verifier handles
	Format() string
}

// Registry holds registered verifiers and routes documents to them
type Registry struct {
	verifiers []Verifier
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		verifiers: make([]Verifier, 0),
	}
}

// Register adds a verifier to the registry
func (r *Registry) Register(v Verifier) {
	r.verifiers = append(r.verifiers, v)
}

// Detect finds a verifier that can handle the given data
func (r *Registry) Detect(data []byte) (Verifier, error) {
	for _, v := range r.verifiers {
		if v.CanVerify(data) {
			return v, nil
		}
	}
	return nil, ErrUnsupportedFormat("unknown")
}

// Verify checks the signature using the first verifier that accepts the data
func (r *Registry) Verify(ctx context.Context, data []byte) (*Result, error) {
	verifier, err := r.Detect(data)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, data)
}

// GetVerifier returns the verifier registered for a specific format
func (r *Registry) GetVerifier(format string) Verifier {
	for _, v := range r.verifiers {
		if v.Format() == format {
			return v
		}
	}
	return nil
}

// AvailableFormats returns the formats that can be verified
func (r *Registry) AvailableFormats() []string {
	formats := make([]string, 0, len(r.verifiers))
	for _, v := range r.verifiers {
		formats = append(formats, v.Format())
	}
	return formats
}
