package generator

import (
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/facturx-fr/internal/decimal"
)

// XML namespaces for the two structural formats
const (
	NamespaceRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	NamespaceRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	NamespaceQDT = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"
	NamespaceUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"

	NamespaceUBLInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceUBLCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NamespaceCAC           = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC           = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// newDocument creates an XML document with the standard declaration
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

// serialize indents and writes the document
func serialize(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	return doc.WriteToBytes()
}

// textElement creates a child element carrying text content
func textElement(parent *etree.Element, tag, value string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(value)
	return e
}

// amountElement creates a child element carrying a 2-decimal amount
func amountElement(parent *etree.Element, tag string, v decimal.Decimal) *etree.Element {
	return textElement(parent, tag, money.FormatAmount(v))
}

// formatDate102 renders a date in the UN/EDIFACT 102 format (CCYYMMDD)
func formatDate102(t time.Time) string {
	return t.Format("20060102")
}

// formatDateISO renders a date as an ISO 8601 calendar date
func formatDateISO(t time.Time) string {
	return t.Format("2006-01-02")
}

// dateTime102 creates <tag><udt:DateTimeString format="102">CCYYMMDD</...>
func dateTime102(parent *etree.Element, tag string, t time.Time) {
	e := parent.CreateElement(tag)
	s := textElement(e, "udt:DateTimeString", formatDate102(t))
	s.CreateAttr("format", "102")
}

// formatRate renders a VAT rate percentage with two decimals
func formatRate(rate decimal.Decimal) string {
	return rate.StringFixed(2)
}
