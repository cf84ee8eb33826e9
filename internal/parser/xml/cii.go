package xml

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/rezonia/facturx-fr/internal/model"
)

// CIIAdapter parses UN/CEFACT Cross Industry Invoice XML
type CIIAdapter struct{}

// NewCIIAdapter creates a new CII adapter
func NewCIIAdapter() *CIIAdapter {
	return &CIIAdapter{}
}

// Format returns the format the adapter handles
func (a *CIIAdapter) Format() model.Format {
	return model.FormatCII
}

// CanParse checks if content is a CII document
func (a *CIIAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("CrossIndustryInvoice"))
}

// Parse reads CII XML and reconstructs the invoice
func (a *CIIAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, model.NewParseError(model.FormatCII, "document", "content is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "CrossIndustryInvoice" {
		return nil, model.NewParseError(model.FormatCII, "root", "root element is not CrossIndustryInvoice", nil)
	}

	inv := &model.Invoice{Currency: model.CurrencyEUR}

	if err := a.readDocument(child(root, "ExchangedDocument"), inv); err != nil {
		return nil, err
	}

	tx := child(root, "SupplyChainTradeTransaction")
	if tx == nil {
		return nil, model.NewParseError(model.FormatCII, "transaction", "SupplyChainTradeTransaction is missing", nil)
	}

	for _, item := range children(tx, "IncludedSupplyChainTradeLineItem") {
		inv.Lines = append(inv.Lines, a.readLine(item))
	}

	a.readAgreement(child(tx, "ApplicableHeaderTradeAgreement"), inv)
	a.readDelivery(child(tx, "ApplicableHeaderTradeDelivery"), inv)
	a.readSettlement(child(tx, "ApplicableHeaderTradeSettlement"), inv)

	return inv, nil
}

func (a *CIIAdapter) readDocument(doc *etree.Element, inv *model.Invoice) error {
	if doc == nil {
		return model.NewParseError(model.FormatCII, "exchanged_document", "ExchangedDocument is missing", nil)
	}
	inv.Number = childText(doc, "ID")
	if code, err := strconv.Atoi(childText(doc, "TypeCode")); err == nil {
		inv.TypeCode = model.InvoiceTypeCode(code)
	}
	issued := childText(doc, "IssueDateTime", "DateTimeString")
	if issued == "" {
		return model.NewParseError(model.FormatCII, "issue_date", "IssueDateTime is missing", nil)
	}
	t, err := parseDate102(issued)
	if err != nil {
		return model.NewParseError(model.FormatCII, "issue_date", "IssueDateTime is not a 102-format date", err)
	}
	inv.IssueDate = t

	for _, note := range children(doc, "IncludedNote") {
		content := childText(note, "Content")
		switch {
		case childText(note, "SubjectCode") == "AAI":
			inv.OperationCategory = categoryFromLabel(content)
		case content == vatOnDebitsNote:
			inv.VATOnDebits = true
		case inv.Note == "":
			inv.Note = content
		}
	}
	return nil
}

func (a *CIIAdapter) readLine(item *etree.Element) model.InvoiceLine {
	line := model.InvoiceLine{
		Unit:        model.UnitPiece,
		VATCategory: model.VATStandard,
	}

	if n, err := strconv.Atoi(childText(item, "AssociatedDocumentLineDocument", "LineID")); err == nil {
		line.Number = n
	}

	product := child(item, "SpecifiedTradeProduct")
	line.ItemReference = childText(product, "SellerAssignedID")
	line.BuyerReference = childText(product, "BuyerAssignedID")
	line.Description = childText(product, "Name")

	line.UnitPrice = parseAmount(childText(item,
		"SpecifiedLineTradeAgreement", "NetPriceProductTradePrice", "ChargeAmount"))

	qty := descend(item, "SpecifiedLineTradeDelivery", "BilledQuantity")
	if qty != nil {
		line.Quantity = parseAmount(trimmed(qty))
		if unit := attrValue(qty, "unitCode"); unit != "" {
			line.Unit = model.UnitOfMeasure(unit)
		}
	}

	settlement := child(item, "SpecifiedLineTradeSettlement")
	if lineTax := child(settlement, "ApplicableTradeTax"); lineTax != nil {
		if cat := childText(lineTax, "CategoryCode"); cat != "" {
			line.VATCategory = model.VATCategory(cat)
		}
		line.VATRate = parseAmount(childText(lineTax, "RateApplicablePercent"))
	}
	if period := child(settlement, "BillingSpecifiedPeriod"); period != nil {
		if t, err := parseDate102(childText(period, "StartDateTime", "DateTimeString")); err == nil {
			line.PeriodStart = &t
		}
		if t, err := parseDate102(childText(period, "EndDateTime", "DateTimeString")); err == nil {
			line.PeriodEnd = &t
		}
	}
	for _, ac := range children(settlement, "SpecifiedTradeAllowanceCharge") {
		amount := parseAmount(childText(ac, "ActualAmount"))
		if childText(ac, "ChargeIndicator", "Indicator") == "true" {
			line.ChargeAmount = amount
		} else {
			line.DiscountAmount = amount
		}
	}

	// Sub-line decomposition, present at the extended profile
	for _, sub := range children(item, "IncludedSupplyChainTradeLineItem") {
		line.SubLines = append(line.SubLines, a.readLine(sub))
	}

	return line
}

func (a *CIIAdapter) readAgreement(agreement *etree.Element, inv *model.Invoice) {
	if agreement == nil {
		return
	}
	if seller := child(agreement, "SellerTradeParty"); seller != nil {
		inv.Seller = a.readParty(seller)
	}
	if buyer := child(agreement, "BuyerTradeParty"); buyer != nil {
		inv.Buyer = a.readParty(buyer)
	}
	inv.PurchaseOrderReference = childText(agreement, "BuyerOrderReferencedDocument", "IssuerAssignedID")
	inv.ContractReference = childText(agreement, "ContractReferencedDocument", "IssuerAssignedID")
}

func (a *CIIAdapter) readParty(el *etree.Element) model.Party {
	p := model.Party{Name: childText(el, "Name")}

	if org := descend(el, "SpecifiedLegalOrganization", "ID"); org != nil {
		if attrValue(org, "schemeID") == "0002" {
			p.Siren = trimmed(org)
		} else {
			p.RegistrationID = trimmed(org)
		}
	}
	if addr := child(el, "PostalTradeAddress"); addr != nil {
		p.Address = a.readAddress(addr)
	}
	if uri := descend(el, "URIUniversalCommunication", "URIID"); uri != nil && attrValue(uri, "schemeID") == "EM" {
		p.Email = trimmed(uri)
	}
	if reg := descend(el, "SpecifiedTaxRegistration", "ID"); reg != nil && attrValue(reg, "schemeID") == "VA" {
		p.VATNumber = trimmed(reg)
	}
	return p
}

func (a *CIIAdapter) readAddress(el *etree.Element) model.Address {
	return model.Address{
		PostalCode:         childText(el, "PostcodeCode"),
		Street:             childText(el, "LineOne"),
		AdditionalStreet:   childText(el, "LineTwo"),
		City:               childText(el, "CityName"),
		CountryCode:        childText(el, "CountryID"),
		CountrySubdivision: childText(el, "CountrySubDivisionName"),
	}
}

func (a *CIIAdapter) readDelivery(delivery *etree.Element, inv *model.Invoice) {
	if addr := descend(delivery, "ShipToTradeParty", "PostalTradeAddress"); addr != nil {
		parsed := a.readAddress(addr)
		inv.Buyer.DeliveryAddress = &parsed
	}
}

func (a *CIIAdapter) readSettlement(settlement *etree.Element, inv *model.Invoice) {
	if settlement == nil {
		return
	}

	if currency := childText(settlement, "InvoiceCurrencyCode"); currency != "" {
		inv.Currency = model.Currency(currency)
	}
	if payee := child(settlement, "PayeeTradeParty"); payee != nil {
		p := a.readParty(payee)
		inv.Payee = &p
	}

	a.readPaymentMeans(settlement, inv)

	// Header tax groups carry the exemption reasons the lines omit
	reasons := make(map[exemptionKey][2]string)
	for _, t := range children(settlement, "ApplicableTradeTax") {
		if childText(t, "DueDateTypeCode") == "5" {
			inv.VATOnDebits = true
		}
		reason := childText(t, "ExemptionReason")
		code := childText(t, "ExemptionReasonCode")
		if reason == "" && code == "" {
			continue
		}
		key := exemptionKey{
			category: model.VATCategory(childText(t, "CategoryCode")),
			rate:     parseAmount(childText(t, "RateApplicablePercent")).StringFixed(2),
		}
		reasons[key] = [2]string{reason, code}
	}
	backfillExemptions(inv.Lines, reasons)

	if period := child(settlement, "BillingSpecifiedPeriod"); period != nil {
		if t, err := parseDate102(childText(period, "StartDateTime", "DateTimeString")); err == nil {
			inv.PeriodStart = &t
		}
		if t, err := parseDate102(childText(period, "EndDateTime", "DateTimeString")); err == nil {
			inv.PeriodEnd = &t
		}
	}

	if terms := child(settlement, "SpecifiedTradePaymentTerms"); terms != nil {
		if desc := childText(terms, "Description"); desc != "" {
			inv.PaymentTerms = &model.PaymentTerms{Description: desc}
		}
		if t, err := parseDate102(childText(terms, "DueDateDateTime", "DateTimeString")); err == nil {
			inv.DueDate = &t
		}
	}

	if sum := child(settlement, "SpecifiedTradeSettlementHeaderMonetarySummation"); sum != nil {
		inv.PrepaidAmount = parseAmount(childText(sum, "TotalPrepaidAmount"))
	}

	inv.PrecedingInvoiceReference = childText(settlement, "InvoiceReferencedDocument", "IssuerAssignedID")
	inv.BuyerAccountingReference = childText(settlement, "ReceivableSpecifiedTradeAccountingAccount", "ID")
}

func (a *CIIAdapter) readPaymentMeans(settlement *etree.Element, inv *model.Invoice) {
	reference := childText(settlement, "PaymentReference")
	means := child(settlement, "SpecifiedTradeSettlementPaymentMeans")
	if means == nil && reference == "" {
		return
	}

	pm := &model.PaymentMeans{Reference: reference}
	if means != nil {
		pm.Code = model.PaymentMeansCode(childText(means, "TypeCode"))
		if iban := childText(means, "PayeePartyCreditorFinancialAccount", "IBANID"); iban != "" {
			pm.Account = &model.BankAccount{
				IBAN: iban,
				BIC:  childText(means, "PayeeSpecifiedCreditorFinancialInstitution", "BICID"),
			}
		}
	}
	inv.PaymentMeans = pm
}
