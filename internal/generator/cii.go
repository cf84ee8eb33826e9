package generator

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/tax"
)

// CIIGenerator renders UN/CEFACT Cross Industry Invoice (D16B) XML,
// the rendition embedded in Factur-X documents. Structure is banded by
// profile: minimum and basicwl stop at document totals, basic and above
// carry line items, extended adds sub-line decomposition.
type CIIGenerator struct{}

// NewCIIGenerator creates a new CII generator
func NewCIIGenerator() *CIIGenerator {
	return &CIIGenerator{}
}

// Format returns the format this generator produces
func (g *CIIGenerator) Format() model.Format {
	return model.FormatCII
}

// Generate renders the invoice as CII XML at the given profile
func (g *CIIGenerator) Generate(inv *model.Invoice, profile model.Profile) ([]byte, error) {
	if !profile.Valid() {
		return nil, model.NewGenerationError(model.FormatCII, "profile", "unknown profile: "+string(profile), nil)
	}
	if err := inv.Validate(); err != nil {
		return nil, model.NewGenerationError(model.FormatCII, "invoice", "invoice fails its invariants", err)
	}
	totals := tax.Compute(inv)

	doc := newDocument()
	root := doc.CreateElement("rsm:CrossIndustryInvoice")
	root.CreateAttr("xmlns:rsm", NamespaceRSM)
	root.CreateAttr("xmlns:ram", NamespaceRAM)
	root.CreateAttr("xmlns:qdt", NamespaceQDT)
	root.CreateAttr("xmlns:udt", NamespaceUDT)

	g.writeContext(root, profile)
	g.writeDocument(root, inv)

	tx := root.CreateElement("rsm:SupplyChainTradeTransaction")
	if profile.IncludesLines() {
		for i := range inv.Lines {
			g.writeLine(tx, &inv.Lines[i], profile)
		}
	}
	g.writeAgreement(tx, inv)
	g.writeDelivery(tx, inv)
	g.writeSettlement(tx, inv, totals, profile)

	return serialize(doc)
}

// writeContext emits the guideline identifier that binds the document
// to its conformance level
func (g *CIIGenerator) writeContext(root *etree.Element, profile model.Profile) {
	ctx := root.CreateElement("rsm:ExchangedDocumentContext")
	param := ctx.CreateElement("ram:GuidelineSpecifiedDocumentContextParameter")
	textElement(param, "ram:ID", profile.SpecificationID())
}

func (g *CIIGenerator) writeDocument(root *etree.Element, inv *model.Invoice) {
	doc := root.CreateElement("rsm:ExchangedDocument")
	textElement(doc, "ram:ID", inv.Number)
	textElement(doc, "ram:TypeCode", strconv.Itoa(int(inv.TypeCode)))
	dateTime102(doc, "ram:IssueDateTime", inv.IssueDate)

	// The operation category travels as a note with subject code AAI,
	// using the French regulatory label
	note := doc.CreateElement("ram:IncludedNote")
	textElement(note, "ram:Content", inv.OperationCategory.FrenchLabel())
	textElement(note, "ram:SubjectCode", "AAI")

	if inv.VATOnDebits {
		n := doc.CreateElement("ram:IncludedNote")
		textElement(n, "ram:Content", "TVA sur les débits")
	}
	if inv.Note != "" {
		n := doc.CreateElement("ram:IncludedNote")
		textElement(n, "ram:Content", inv.Note)
	}
}

// writeLine emits one IncludedSupplyChainTradeLineItem. Sub-lines are
// only rendered at the extended profile.
func (g *CIIGenerator) writeLine(parent *etree.Element, line *model.InvoiceLine, profile model.Profile) {
	item := parent.CreateElement("ram:IncludedSupplyChainTradeLineItem")

	lineDoc := item.CreateElement("ram:AssociatedDocumentLineDocument")
	textElement(lineDoc, "ram:LineID", strconv.Itoa(line.Number))

	product := item.CreateElement("ram:SpecifiedTradeProduct")
	if line.ItemReference != "" {
		textElement(product, "ram:SellerAssignedID", line.ItemReference)
	}
	if line.BuyerReference != "" {
		textElement(product, "ram:BuyerAssignedID", line.BuyerReference)
	}
	textElement(product, "ram:Name", line.Description)

	agreement := item.CreateElement("ram:SpecifiedLineTradeAgreement")
	price := agreement.CreateElement("ram:NetPriceProductTradePrice")
	amountElement(price, "ram:ChargeAmount", line.UnitPrice)

	delivery := item.CreateElement("ram:SpecifiedLineTradeDelivery")
	qty := textElement(delivery, "ram:BilledQuantity", line.Quantity.String())
	qty.CreateAttr("unitCode", string(line.Unit))

	settlement := item.CreateElement("ram:SpecifiedLineTradeSettlement")
	lineTax := settlement.CreateElement("ram:ApplicableTradeTax")
	textElement(lineTax, "ram:TypeCode", "VAT")
	textElement(lineTax, "ram:CategoryCode", string(line.VATCategory))
	textElement(lineTax, "ram:RateApplicablePercent", formatRate(line.VATRate))
	if line.PeriodStart != nil && line.PeriodEnd != nil {
		period := settlement.CreateElement("ram:BillingSpecifiedPeriod")
		dateTime102(period, "ram:StartDateTime", *line.PeriodStart)
		dateTime102(period, "ram:EndDateTime", *line.PeriodEnd)
	}
	if line.DiscountAmount.IsPositive() {
		g.writeLineAllowanceCharge(settlement, line.DiscountAmount, false)
	}
	if line.ChargeAmount.IsPositive() {
		g.writeLineAllowanceCharge(settlement, line.ChargeAmount, true)
	}
	summation := settlement.CreateElement("ram:SpecifiedTradeSettlementLineMonetarySummation")
	amountElement(summation, "ram:LineTotalAmount", line.NetAmount())

	if profile == model.ProfileExtended {
		for i := range line.SubLines {
			g.writeLine(item, &line.SubLines[i], profile)
		}
	}
}

func (g *CIIGenerator) writeLineAllowanceCharge(parent *etree.Element, amount decimal.Decimal, isCharge bool) {
	ac := parent.CreateElement("ram:SpecifiedTradeAllowanceCharge")
	ind := ac.CreateElement("ram:ChargeIndicator")
	textElement(ind, "udt:Indicator", strconv.FormatBool(isCharge))
	amountElement(ac, "ram:ActualAmount", amount)
}

func (g *CIIGenerator) writeAgreement(parent *etree.Element, inv *model.Invoice) {
	agreement := parent.CreateElement("ram:ApplicableHeaderTradeAgreement")
	g.writeParty(agreement, "ram:SellerTradeParty", &inv.Seller)
	g.writeParty(agreement, "ram:BuyerTradeParty", &inv.Buyer)
	if inv.PurchaseOrderReference != "" {
		ref := agreement.CreateElement("ram:BuyerOrderReferencedDocument")
		textElement(ref, "ram:IssuerAssignedID", inv.PurchaseOrderReference)
	}
	if inv.ContractReference != "" {
		ref := agreement.CreateElement("ram:ContractReferencedDocument")
		textElement(ref, "ram:IssuerAssignedID", inv.ContractReference)
	}
}

// writeParty emits a trade party with its legal registration (SIREN,
// scheme 0002) and VAT registration (scheme VA)
func (g *CIIGenerator) writeParty(parent *etree.Element, tag string, p *model.Party) {
	party := parent.CreateElement(tag)
	textElement(party, "ram:Name", p.Name)
	if p.Siren != "" {
		org := party.CreateElement("ram:SpecifiedLegalOrganization")
		id := textElement(org, "ram:ID", p.Siren)
		id.CreateAttr("schemeID", "0002")
	}
	g.writeAddress(party, "ram:PostalTradeAddress", &p.Address)
	if p.Email != "" {
		comm := party.CreateElement("ram:URIUniversalCommunication")
		id := textElement(comm, "ram:URIID", p.Email)
		id.CreateAttr("schemeID", "EM")
	}
	if p.VATNumber != "" {
		reg := party.CreateElement("ram:SpecifiedTaxRegistration")
		id := textElement(reg, "ram:ID", p.VATNumber)
		id.CreateAttr("schemeID", "VA")
	}
}

// writeAddress emits a postal address in the schema element order
func (g *CIIGenerator) writeAddress(parent *etree.Element, tag string, a *model.Address) {
	addr := parent.CreateElement(tag)
	if a.PostalCode != "" {
		textElement(addr, "ram:PostcodeCode", a.PostalCode)
	}
	if a.Street != "" {
		textElement(addr, "ram:LineOne", a.Street)
	}
	if a.AdditionalStreet != "" {
		textElement(addr, "ram:LineTwo", a.AdditionalStreet)
	}
	if a.City != "" {
		textElement(addr, "ram:CityName", a.City)
	}
	textElement(addr, "ram:CountryID", a.CountryCode)
	if a.CountrySubdivision != "" {
		textElement(addr, "ram:CountrySubDivisionName", a.CountrySubdivision)
	}
}

func (g *CIIGenerator) writeDelivery(parent *etree.Element, inv *model.Invoice) {
	delivery := parent.CreateElement("ram:ApplicableHeaderTradeDelivery")
	if inv.Buyer.DeliveryAddress != nil {
		shipTo := delivery.CreateElement("ram:ShipToTradeParty")
		g.writeAddress(shipTo, "ram:PostalTradeAddress", inv.Buyer.DeliveryAddress)
	}
}

func (g *CIIGenerator) writeSettlement(parent *etree.Element, inv *model.Invoice, totals *tax.Result, profile model.Profile) {
	settlement := parent.CreateElement("ram:ApplicableHeaderTradeSettlement")

	if inv.PaymentMeans != nil && inv.PaymentMeans.Reference != "" {
		textElement(settlement, "ram:PaymentReference", inv.PaymentMeans.Reference)
	}
	textElement(settlement, "ram:InvoiceCurrencyCode", string(inv.Currency))

	if inv.Payee != nil {
		g.writeParty(settlement, "ram:PayeeTradeParty", inv.Payee)
	}

	// Payment details and the per-rate tax breakdown start at basicwl;
	// the minimum profile carries totals only
	detailed := profile != model.ProfileMinimum

	if detailed && inv.PaymentMeans != nil {
		means := settlement.CreateElement("ram:SpecifiedTradeSettlementPaymentMeans")
		textElement(means, "ram:TypeCode", string(inv.PaymentMeans.Code))
		if inv.PaymentMeans.Account != nil {
			account := means.CreateElement("ram:PayeePartyCreditorFinancialAccount")
			textElement(account, "ram:IBANID", inv.PaymentMeans.Account.IBAN)
			if inv.PaymentMeans.Account.BIC != "" {
				inst := means.CreateElement("ram:PayeeSpecifiedCreditorFinancialInstitution")
				textElement(inst, "ram:BICID", inv.PaymentMeans.Account.BIC)
			}
		}
	}

	if detailed {
		for i := range totals.Summaries {
			g.writeTradeTax(settlement, &totals.Summaries[i], inv.VATOnDebits)
		}
	}

	if inv.PeriodStart != nil && inv.PeriodEnd != nil {
		period := settlement.CreateElement("ram:BillingSpecifiedPeriod")
		dateTime102(period, "ram:StartDateTime", *inv.PeriodStart)
		dateTime102(period, "ram:EndDateTime", *inv.PeriodEnd)
	}

	if detailed && (inv.PaymentTerms != nil || inv.DueDate != nil) {
		terms := settlement.CreateElement("ram:SpecifiedTradePaymentTerms")
		if inv.PaymentTerms != nil && inv.PaymentTerms.Description != "" {
			textElement(terms, "ram:Description", inv.PaymentTerms.Description)
		}
		if inv.DueDate != nil {
			dateTime102(terms, "ram:DueDateDateTime", *inv.DueDate)
		}
	}

	g.writeMonetarySummation(settlement, inv, totals, profile)

	if inv.PrecedingInvoiceReference != "" {
		ref := settlement.CreateElement("ram:InvoiceReferencedDocument")
		textElement(ref, "ram:IssuerAssignedID", inv.PrecedingInvoiceReference)
	}
	if inv.BuyerAccountingReference != "" {
		acct := settlement.CreateElement("ram:ReceivableSpecifiedTradeAccountingAccount")
		textElement(acct, "ram:ID", inv.BuyerAccountingReference)
	}
}

// writeTradeTax emits one header-level ApplicableTradeTax per tax summary
func (g *CIIGenerator) writeTradeTax(parent *etree.Element, s *tax.Summary, vatOnDebits bool) {
	t := parent.CreateElement("ram:ApplicableTradeTax")
	amountElement(t, "ram:CalculatedAmount", s.TaxAmount)
	textElement(t, "ram:TypeCode", "VAT")
	if s.ExemptionReason != "" {
		textElement(t, "ram:ExemptionReason", s.ExemptionReason)
	}
	amountElement(t, "ram:BasisAmount", s.TaxableBase)
	textElement(t, "ram:CategoryCode", string(s.Category))
	if s.ExemptionReasonCode != "" {
		textElement(t, "ram:ExemptionReasonCode", s.ExemptionReasonCode)
	}
	if vatOnDebits {
		// Code 5 marks the date of invoice as the VAT due date
		textElement(t, "ram:DueDateTypeCode", "5")
	}
	textElement(t, "ram:RateApplicablePercent", formatRate(s.Rate))
}

func (g *CIIGenerator) writeMonetarySummation(parent *etree.Element, inv *model.Invoice, totals *tax.Result, profile model.Profile) {
	sum := parent.CreateElement("ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	if profile != model.ProfileMinimum {
		amountElement(sum, "ram:LineTotalAmount", totals.NetTotal)
	}
	amountElement(sum, "ram:TaxBasisTotalAmount", totals.NetTotal)
	taxTotal := amountElement(sum, "ram:TaxTotalAmount", totals.TaxTotal)
	taxTotal.CreateAttr("currencyID", string(inv.Currency))
	amountElement(sum, "ram:GrandTotalAmount", totals.GrossTotal)
	if !inv.PrepaidAmount.IsZero() {
		amountElement(sum, "ram:TotalPrepaidAmount", inv.PrepaidAmount)
	}
	amountElement(sum, "ram:DuePayableAmount", totals.AmountDue)
}
