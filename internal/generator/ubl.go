package generator

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/facturx-fr/internal/decimal"
	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/tax"
)

// EN16931 and PEPPOL BIS Billing 3.0 identifiers
const (
	UBLCustomizationEN16931 = "urn:cen.eu:en16931:2017"
	UBLCustomizationPeppol  = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	UBLProfilePeppol        = "urn:fdc:peppol.eu:2017:poacc:billing:3.0"

	// SIREN scheme in the Electronic Address Scheme code list
	peppolEndpointScheme = "0009"
)

// UBLGenerator renders Universal Business Language 2.1 XML. Credit and
// corrective documents use the CreditNote root with its own element
// vocabulary; everything else uses the Invoice root. UBL has no
// without-lines flavor, so lines are emitted at every profile.
type UBLGenerator struct {
	peppol bool
}

// UBLOption configures the UBL generator
type UBLOption func(*UBLGenerator)

// WithPeppol targets the PEPPOL BIS Billing 3.0 network flavor: the
// poacc customization and profile identifiers plus party endpoint IDs
// carrying the SIREN
func WithPeppol() UBLOption {
	return func(g *UBLGenerator) { g.peppol = true }
}

// NewUBLGenerator creates a new UBL generator
func NewUBLGenerator(opts ...UBLOption) *UBLGenerator {
	g := &UBLGenerator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Format returns the format this generator produces
func (g *UBLGenerator) Format() model.Format {
	return model.FormatUBL
}

// Generate renders the invoice as UBL 2.1 XML
func (g *UBLGenerator) Generate(inv *model.Invoice, profile model.Profile) ([]byte, error) {
	if !profile.Valid() {
		return nil, model.NewGenerationError(model.FormatUBL, "profile", "unknown profile: "+string(profile), nil)
	}
	if err := inv.Validate(); err != nil {
		return nil, model.NewGenerationError(model.FormatUBL, "invoice", "invoice fails its invariants", err)
	}
	totals := tax.Compute(inv)
	creditNote := inv.TypeCode.IsCreditNote()

	doc := newDocument()
	var root *etree.Element
	if creditNote {
		root = doc.CreateElement("CreditNote")
		root.CreateAttr("xmlns", NamespaceUBLCreditNote)
	} else {
		root = doc.CreateElement("Invoice")
		root.CreateAttr("xmlns", NamespaceUBLInvoice)
	}
	root.CreateAttr("xmlns:cac", NamespaceCAC)
	root.CreateAttr("xmlns:cbc", NamespaceCBC)

	if g.peppol {
		textElement(root, "cbc:CustomizationID", UBLCustomizationPeppol)
		textElement(root, "cbc:ProfileID", UBLProfilePeppol)
	} else {
		textElement(root, "cbc:CustomizationID", UBLCustomizationEN16931)
	}

	textElement(root, "cbc:ID", inv.Number)
	textElement(root, "cbc:IssueDate", formatDateISO(inv.IssueDate))
	if !creditNote && inv.DueDate != nil {
		textElement(root, "cbc:DueDate", formatDateISO(*inv.DueDate))
	}
	if creditNote {
		textElement(root, "cbc:CreditNoteTypeCode", strconv.Itoa(int(inv.TypeCode)))
	} else {
		textElement(root, "cbc:InvoiceTypeCode", strconv.Itoa(int(inv.TypeCode)))
	}

	// Operation category note, tagged with the AAI subject code
	textElement(root, "cbc:Note", "#AAI#"+inv.OperationCategory.FrenchLabel())
	if inv.VATOnDebits {
		textElement(root, "cbc:Note", "TVA sur les débits")
	}
	if inv.Note != "" {
		textElement(root, "cbc:Note", inv.Note)
	}

	textElement(root, "cbc:DocumentCurrencyCode", string(inv.Currency))
	if inv.BuyerAccountingReference != "" {
		textElement(root, "cbc:AccountingCost", inv.BuyerAccountingReference)
	}
	if inv.PurchaseOrderReference != "" {
		textElement(root, "cbc:BuyerReference", inv.PurchaseOrderReference)
	}

	if inv.PeriodStart != nil && inv.PeriodEnd != nil {
		period := root.CreateElement("cac:InvoicePeriod")
		textElement(period, "cbc:StartDate", formatDateISO(*inv.PeriodStart))
		textElement(period, "cbc:EndDate", formatDateISO(*inv.PeriodEnd))
	}
	if inv.PurchaseOrderReference != "" {
		order := root.CreateElement("cac:OrderReference")
		textElement(order, "cbc:ID", inv.PurchaseOrderReference)
	}
	if inv.PrecedingInvoiceReference != "" {
		billing := root.CreateElement("cac:BillingReference")
		ref := billing.CreateElement("cac:InvoiceDocumentReference")
		textElement(ref, "cbc:ID", inv.PrecedingInvoiceReference)
	}
	if inv.ContractReference != "" {
		contract := root.CreateElement("cac:ContractDocumentReference")
		textElement(contract, "cbc:ID", inv.ContractReference)
	}

	supplier := root.CreateElement("cac:AccountingSupplierParty")
	g.writeParty(supplier, &inv.Seller)
	customer := root.CreateElement("cac:AccountingCustomerParty")
	g.writeParty(customer, &inv.Buyer)
	if inv.Payee != nil {
		g.writePayee(root, inv.Payee)
	}

	if inv.Buyer.DeliveryAddress != nil {
		delivery := root.CreateElement("cac:Delivery")
		location := delivery.CreateElement("cac:DeliveryLocation")
		g.writeAddress(location, "cac:Address", inv.Buyer.DeliveryAddress)
	}

	if inv.PaymentMeans != nil {
		g.writePaymentMeans(root, inv.PaymentMeans)
	}
	if inv.PaymentTerms != nil && inv.PaymentTerms.Description != "" {
		terms := root.CreateElement("cac:PaymentTerms")
		textElement(terms, "cbc:Note", inv.PaymentTerms.Description)
	}

	g.writeTaxTotal(root, inv, totals)
	g.writeMonetaryTotal(root, inv, totals)

	for i := range inv.Lines {
		g.writeLine(root, &inv.Lines[i], inv.Currency, creditNote)
	}

	return serialize(doc)
}

// writeParty emits a cac:Party wrapped in the supplier or customer
// aggregate already created by the caller
func (g *UBLGenerator) writeParty(parent *etree.Element, p *model.Party) {
	party := parent.CreateElement("cac:Party")
	if g.peppol && p.Siren != "" {
		endpoint := textElement(party, "cbc:EndpointID", p.Siren)
		endpoint.CreateAttr("schemeID", peppolEndpointScheme)
	}
	name := party.CreateElement("cac:PartyName")
	textElement(name, "cbc:Name", p.Name)
	g.writeAddress(party, "cac:PostalAddress", &p.Address)
	if p.VATNumber != "" {
		scheme := party.CreateElement("cac:PartyTaxScheme")
		textElement(scheme, "cbc:CompanyID", p.VATNumber)
		ts := scheme.CreateElement("cac:TaxScheme")
		textElement(ts, "cbc:ID", "VAT")
	}
	legal := party.CreateElement("cac:PartyLegalEntity")
	textElement(legal, "cbc:RegistrationName", p.Name)
	if p.Siren != "" {
		id := textElement(legal, "cbc:CompanyID", p.Siren)
		id.CreateAttr("schemeID", "0002")
	}
	if p.Email != "" || p.Phone != "" {
		contact := party.CreateElement("cac:Contact")
		if p.Phone != "" {
			textElement(contact, "cbc:Telephone", p.Phone)
		}
		if p.Email != "" {
			textElement(contact, "cbc:ElectronicMail", p.Email)
		}
	}
}

func (g *UBLGenerator) writePayee(root *etree.Element, p *model.Party) {
	payee := root.CreateElement("cac:PayeeParty")
	name := payee.CreateElement("cac:PartyName")
	textElement(name, "cbc:Name", p.Name)
	if p.Siren != "" {
		legal := payee.CreateElement("cac:PartyLegalEntity")
		textElement(legal, "cbc:RegistrationName", p.Name)
		id := textElement(legal, "cbc:CompanyID", p.Siren)
		id.CreateAttr("schemeID", "0002")
	}
}

func (g *UBLGenerator) writeAddress(parent *etree.Element, tag string, a *model.Address) {
	addr := parent.CreateElement(tag)
	if a.Street != "" {
		textElement(addr, "cbc:StreetName", a.Street)
	}
	if a.AdditionalStreet != "" {
		textElement(addr, "cbc:AdditionalStreetName", a.AdditionalStreet)
	}
	if a.City != "" {
		textElement(addr, "cbc:CityName", a.City)
	}
	if a.PostalCode != "" {
		textElement(addr, "cbc:PostalZone", a.PostalCode)
	}
	if a.CountrySubdivision != "" {
		textElement(addr, "cbc:CountrySubentity", a.CountrySubdivision)
	}
	country := addr.CreateElement("cac:Country")
	textElement(country, "cbc:IdentificationCode", a.CountryCode)
}

func (g *UBLGenerator) writePaymentMeans(root *etree.Element, m *model.PaymentMeans) {
	means := root.CreateElement("cac:PaymentMeans")
	textElement(means, "cbc:PaymentMeansCode", string(m.Code))
	if m.Reference != "" {
		textElement(means, "cbc:PaymentID", m.Reference)
	}
	if m.Account != nil {
		account := means.CreateElement("cac:PayeeFinancialAccount")
		textElement(account, "cbc:ID", m.Account.IBAN)
		if m.Account.BIC != "" {
			branch := account.CreateElement("cac:FinancialInstitutionBranch")
			textElement(branch, "cbc:ID", m.Account.BIC)
		}
	}
}

func (g *UBLGenerator) writeTaxTotal(root *etree.Element, inv *model.Invoice, totals *tax.Result) {
	currency := string(inv.Currency)
	taxTotal := root.CreateElement("cac:TaxTotal")
	currencyAmount(taxTotal, "cbc:TaxAmount", totals.TaxTotal, currency)
	for i := range totals.Summaries {
		s := &totals.Summaries[i]
		sub := taxTotal.CreateElement("cac:TaxSubtotal")
		currencyAmount(sub, "cbc:TaxableAmount", s.TaxableBase, currency)
		currencyAmount(sub, "cbc:TaxAmount", s.TaxAmount, currency)
		cat := sub.CreateElement("cac:TaxCategory")
		textElement(cat, "cbc:ID", string(s.Category))
		textElement(cat, "cbc:Percent", formatRate(s.Rate))
		if s.ExemptionReasonCode != "" {
			textElement(cat, "cbc:TaxExemptionReasonCode", s.ExemptionReasonCode)
		}
		if s.ExemptionReason != "" {
			textElement(cat, "cbc:TaxExemptionReason", s.ExemptionReason)
		}
		scheme := cat.CreateElement("cac:TaxScheme")
		textElement(scheme, "cbc:ID", "VAT")
	}
}

func (g *UBLGenerator) writeMonetaryTotal(root *etree.Element, inv *model.Invoice, totals *tax.Result) {
	currency := string(inv.Currency)
	total := root.CreateElement("cac:LegalMonetaryTotal")
	currencyAmount(total, "cbc:LineExtensionAmount", totals.NetTotal, currency)
	currencyAmount(total, "cbc:TaxExclusiveAmount", totals.NetTotal, currency)
	currencyAmount(total, "cbc:TaxInclusiveAmount", totals.GrossTotal, currency)
	if !inv.PrepaidAmount.IsZero() {
		currencyAmount(total, "cbc:PrepaidAmount", inv.PrepaidAmount, currency)
	}
	currencyAmount(total, "cbc:PayableAmount", totals.AmountDue, currency)
}

func (g *UBLGenerator) writeLine(root *etree.Element, line *model.InvoiceLine, currency model.Currency, creditNote bool) {
	lineTag, qtyTag := "cac:InvoiceLine", "cbc:InvoicedQuantity"
	if creditNote {
		lineTag, qtyTag = "cac:CreditNoteLine", "cbc:CreditedQuantity"
	}
	el := root.CreateElement(lineTag)
	textElement(el, "cbc:ID", strconv.Itoa(line.Number))
	qty := textElement(el, qtyTag, line.Quantity.String())
	qty.CreateAttr("unitCode", string(line.Unit))
	currencyAmount(el, "cbc:LineExtensionAmount", money.RoundMoney(line.NetAmount()), string(currency))

	if line.PeriodStart != nil && line.PeriodEnd != nil {
		period := el.CreateElement("cac:InvoicePeriod")
		textElement(period, "cbc:StartDate", formatDateISO(*line.PeriodStart))
		textElement(period, "cbc:EndDate", formatDateISO(*line.PeriodEnd))
	}

	item := el.CreateElement("cac:Item")
	textElement(item, "cbc:Name", line.Description)
	if line.BuyerReference != "" {
		id := item.CreateElement("cac:BuyersItemIdentification")
		textElement(id, "cbc:ID", line.BuyerReference)
	}
	if line.ItemReference != "" {
		id := item.CreateElement("cac:SellersItemIdentification")
		textElement(id, "cbc:ID", line.ItemReference)
	}
	cat := item.CreateElement("cac:ClassifiedTaxCategory")
	textElement(cat, "cbc:ID", string(line.VATCategory))
	textElement(cat, "cbc:Percent", formatRate(line.VATRate))
	scheme := cat.CreateElement("cac:TaxScheme")
	textElement(scheme, "cbc:ID", "VAT")

	price := el.CreateElement("cac:Price")
	currencyAmount(price, "cbc:PriceAmount", line.UnitPrice, string(currency))
}

// currencyAmount creates a 2-decimal amount element with a currencyID
// attribute, as UBL requires on every monetary value
func currencyAmount(parent *etree.Element, tag string, v decimal.Decimal, currency string) *etree.Element {
	e := amountElement(parent, tag, v)
	e.CreateAttr("currencyID", currency)
	return e
}
