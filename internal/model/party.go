package model

import "regexp"

var (
	sirenPattern = regexp.MustCompile(`^\d{9}$`)
	siretPattern = regexp.MustCompile(`^\d{14}$`)
)

// ValidSiren reports whether s is a well-formed 9-digit SIREN
func ValidSiren(s string) bool {
	return sirenPattern.MatchString(s)
}

// ValidSiret reports whether s is a well-formed 14-digit SIRET
func ValidSiret(s string) bool {
	return siretPattern.MatchString(s)
}

// Address is a postal address
type Address struct {
	Street             string `json:"street,omitempty"`
	AdditionalStreet   string `json:"additional_street,omitempty"`
	City               string `json:"city,omitempty"`
	PostalCode         string `json:"postal_code,omitempty"`
	CountryCode        string `json:"country_code"` // ISO 3166-1 alpha-2
	CountrySubdivision string `json:"country_subdivision,omitempty"`
}

// Validate checks the address invariants
func (a *Address) Validate() error {
	if a.CountryCode == "" {
		a.CountryCode = "FR"
	}
	if len(a.CountryCode) != 2 {
		return NewValidationError("country_code", a.CountryCode, "length", "must be a 2-letter ISO 3166-1 code")
	}
	return nil
}

// Party represents a seller, buyer, payee or payer
type Party struct {
	Name            string   `json:"name"`
	Siren           string   `json:"siren,omitempty"` // 9 digits
	Siret           string   `json:"siret,omitempty"` // 14 digits
	VATNumber       string   `json:"vat_number,omitempty"`
	RegistrationID  string   `json:"registration_id,omitempty"`
	Address         Address  `json:"address"`
	DeliveryAddress *Address `json:"delivery_address,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
}

// NewParty creates a party and checks its invariants
func NewParty(name, siren string) (*Party, error) {
	p := &Party{Name: name, Siren: siren}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the party invariants. Identifier formats are enforced
// here; identifier presence is an invoice-level concern (a foreign buyer
// carries no SIREN).
func (p *Party) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", nil, "required", "party name is required")
	}
	if p.Siren != "" && !ValidSiren(p.Siren) {
		return NewValidationError("siren", p.Siren, "format", "must be exactly 9 digits")
	}
	if p.Siret != "" && !ValidSiret(p.Siret) {
		return NewValidationError("siret", p.Siret, "format", "must be exactly 14 digits")
	}
	if p.Siren != "" && p.Siret != "" && p.Siret[:9] != p.Siren {
		return NewValidationError("siret", p.Siret, "coherence", "SIRET must start with the SIREN")
	}
	if err := p.Address.Validate(); err != nil {
		return err
	}
	if p.DeliveryAddress != nil {
		if err := p.DeliveryAddress.Validate(); err != nil {
			return err
		}
	}
	return nil
}
