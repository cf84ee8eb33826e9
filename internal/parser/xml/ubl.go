package xml

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/facturx-fr/internal/model"
)

// UBLAdapter parses Universal Business Language 2.1 XML, covering both
// the Invoice root and the CreditNote root used by credit and
// corrective documents
type UBLAdapter struct{}

// NewUBLAdapter creates a new UBL adapter
func NewUBLAdapter() *UBLAdapter {
	return &UBLAdapter{}
}

// Format returns the format the adapter handles
func (a *UBLAdapter) Format() model.Format {
	return model.FormatUBL
}

// CanParse checks if content is a UBL document
func (a *UBLAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("oasis:names:specification:ubl"))
}

// Parse reads UBL XML and reconstructs the invoice
func (a *UBLAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, model.NewParseError(model.FormatUBL, "document", "content is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil || (root.Tag != "Invoice" && root.Tag != "CreditNote") {
		return nil, model.NewParseError(model.FormatUBL, "root", "root element is neither Invoice nor CreditNote", nil)
	}
	creditNote := root.Tag == "CreditNote"

	inv := &model.Invoice{Currency: model.CurrencyEUR}
	inv.Number = childText(root, "ID")

	issued := childText(root, "IssueDate")
	if issued == "" {
		return nil, model.NewParseError(model.FormatUBL, "issue_date", "IssueDate is missing", nil)
	}
	t, err := parseDateISO(issued)
	if err != nil {
		return nil, model.NewParseError(model.FormatUBL, "issue_date", "IssueDate is not an ISO date", err)
	}
	inv.IssueDate = t

	if due, err := parseDateISO(childText(root, "DueDate")); err == nil {
		inv.DueDate = &due
	}

	typeCode := childText(root, "InvoiceTypeCode")
	if typeCode == "" {
		typeCode = childText(root, "CreditNoteTypeCode")
	}
	if code, err := strconv.Atoi(typeCode); err == nil {
		inv.TypeCode = model.InvoiceTypeCode(code)
	}

	for _, note := range children(root, "Note") {
		content := trimmed(note)
		switch {
		case strings.HasPrefix(content, "#AAI#"):
			inv.OperationCategory = categoryFromLabel(strings.TrimPrefix(content, "#AAI#"))
		case content == vatOnDebitsNote:
			inv.VATOnDebits = true
		case inv.Note == "":
			inv.Note = content
		}
	}

	if currency := childText(root, "DocumentCurrencyCode"); currency != "" {
		inv.Currency = model.Currency(currency)
	}
	inv.BuyerAccountingReference = childText(root, "AccountingCost")
	inv.PurchaseOrderReference = childText(root, "BuyerReference")
	if inv.PurchaseOrderReference == "" {
		inv.PurchaseOrderReference = childText(root, "OrderReference", "ID")
	}

	if period := child(root, "InvoicePeriod"); period != nil {
		if t, err := parseDateISO(childText(period, "StartDate")); err == nil {
			inv.PeriodStart = &t
		}
		if t, err := parseDateISO(childText(period, "EndDate")); err == nil {
			inv.PeriodEnd = &t
		}
	}
	inv.PrecedingInvoiceReference = childText(root, "BillingReference", "InvoiceDocumentReference", "ID")
	inv.ContractReference = childText(root, "ContractDocumentReference", "ID")

	if supplier := descend(root, "AccountingSupplierParty", "Party"); supplier != nil {
		inv.Seller = a.readParty(supplier)
	}
	if customer := descend(root, "AccountingCustomerParty", "Party"); customer != nil {
		inv.Buyer = a.readParty(customer)
	}
	if payee := child(root, "PayeeParty"); payee != nil {
		p := a.readParty(payee)
		inv.Payee = &p
	}

	if addr := descend(root, "Delivery", "DeliveryLocation", "Address"); addr != nil {
		parsed := a.readAddress(addr)
		inv.Buyer.DeliveryAddress = &parsed
	}

	a.readPaymentMeans(root, inv)
	if desc := childText(root, "PaymentTerms", "Note"); desc != "" {
		inv.PaymentTerms = &model.PaymentTerms{Description: desc}
	}

	reasons := a.readExemptions(root)

	if total := child(root, "LegalMonetaryTotal"); total != nil {
		inv.PrepaidAmount = parseAmount(childText(total, "PrepaidAmount"))
	}

	lineTag := "InvoiceLine"
	if creditNote {
		lineTag = "CreditNoteLine"
	}
	for _, el := range children(root, lineTag) {
		inv.Lines = append(inv.Lines, a.readLine(el, creditNote))
	}
	backfillExemptions(inv.Lines, reasons)

	return inv, nil
}

func (a *UBLAdapter) readParty(el *etree.Element) model.Party {
	p := model.Party{Name: childText(el, "PartyName", "Name")}
	if p.Name == "" {
		p.Name = childText(el, "PartyLegalEntity", "RegistrationName")
	}
	if id := descend(el, "PartyLegalEntity", "CompanyID"); id != nil {
		if attrValue(id, "schemeID") == "0002" {
			p.Siren = trimmed(id)
		} else {
			p.RegistrationID = trimmed(id)
		}
	}
	if addr := child(el, "PostalAddress"); addr != nil {
		p.Address = a.readAddress(addr)
	}
	p.VATNumber = childText(el, "PartyTaxScheme", "CompanyID")
	if contact := child(el, "Contact"); contact != nil {
		p.Phone = childText(contact, "Telephone")
		p.Email = childText(contact, "ElectronicMail")
	}
	return p
}

func (a *UBLAdapter) readAddress(el *etree.Element) model.Address {
	return model.Address{
		Street:             childText(el, "StreetName"),
		AdditionalStreet:   childText(el, "AdditionalStreetName"),
		City:               childText(el, "CityName"),
		PostalCode:         childText(el, "PostalZone"),
		CountrySubdivision: childText(el, "CountrySubentity"),
		CountryCode:        childText(el, "Country", "IdentificationCode"),
	}
}

func (a *UBLAdapter) readPaymentMeans(root *etree.Element, inv *model.Invoice) {
	means := child(root, "PaymentMeans")
	if means == nil {
		return
	}
	pm := &model.PaymentMeans{
		Code:      model.PaymentMeansCode(childText(means, "PaymentMeansCode")),
		Reference: childText(means, "PaymentID"),
	}
	if iban := childText(means, "PayeeFinancialAccount", "ID"); iban != "" {
		pm.Account = &model.BankAccount{
			IBAN: iban,
			BIC:  childText(means, "PayeeFinancialAccount", "FinancialInstitutionBranch", "ID"),
		}
	}
	inv.PaymentMeans = pm
}

// readExemptions collects exemption reasons from the tax subtotals so
// they can be copied back onto the matching lines
func (a *UBLAdapter) readExemptions(root *etree.Element) map[exemptionKey][2]string {
	reasons := make(map[exemptionKey][2]string)
	for _, sub := range children(child(root, "TaxTotal"), "TaxSubtotal") {
		cat := child(sub, "TaxCategory")
		if cat == nil {
			continue
		}
		reason := childText(cat, "TaxExemptionReason")
		code := childText(cat, "TaxExemptionReasonCode")
		if reason == "" && code == "" {
			continue
		}
		key := exemptionKey{
			category: model.VATCategory(childText(cat, "ID")),
			rate:     parseAmount(childText(cat, "Percent")).StringFixed(2),
		}
		reasons[key] = [2]string{reason, code}
	}
	return reasons
}

func (a *UBLAdapter) readLine(el *etree.Element, creditNote bool) model.InvoiceLine {
	line := model.InvoiceLine{
		Unit:        model.UnitPiece,
		VATCategory: model.VATStandard,
	}

	if n, err := strconv.Atoi(childText(el, "ID")); err == nil {
		line.Number = n
	}

	qtyTag := "InvoicedQuantity"
	if creditNote {
		qtyTag = "CreditedQuantity"
	}
	if qty := child(el, qtyTag); qty != nil {
		line.Quantity = parseAmount(trimmed(qty))
		if unit := attrValue(qty, "unitCode"); unit != "" {
			line.Unit = model.UnitOfMeasure(unit)
		}
	}

	if period := child(el, "InvoicePeriod"); period != nil {
		if t, err := parseDateISO(childText(period, "StartDate")); err == nil {
			line.PeriodStart = &t
		}
		if t, err := parseDateISO(childText(period, "EndDate")); err == nil {
			line.PeriodEnd = &t
		}
	}

	if item := child(el, "Item"); item != nil {
		line.Description = childText(item, "Name")
		line.BuyerReference = childText(item, "BuyersItemIdentification", "ID")
		line.ItemReference = childText(item, "SellersItemIdentification", "ID")
		if cat := child(item, "ClassifiedTaxCategory"); cat != nil {
			if id := childText(cat, "ID"); id != "" {
				line.VATCategory = model.VATCategory(id)
			}
			line.VATRate = parseAmount(childText(cat, "Percent"))
		}
	}

	line.UnitPrice = parseAmount(childText(el, "Price", "PriceAmount"))

	return line
}
