package validator

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/rezonia/facturx-fr/internal/model"
)

// elementRule is one cardinality requirement checked against the
// document tree
type elementRule struct {
	path string // etree path, absolute from the document
	min  int
	max  int // 0 means unbounded
	desc string
}

// orderRule fixes the canonical child sequence of one aggregate
type orderRule struct {
	aggregate string
	sequence  []string
}

// manifest is the structural requirement table for one format: root
// identity, per-profile cardinality rules, and the canonical child
// order of aggregates whose order the schema fixes
type manifest struct {
	format    model.Format
	rootTags  []string
	rootSpace string
	rules     func(profile model.Profile) []elementRule
	orders    []orderRule
}

func (m *manifest) matchesRoot(root *etree.Element) bool {
	for _, tag := range m.rootTags {
		if root.Tag == tag {
			return true
		}
	}
	return false
}

// check runs the cardinality and order tables, appending findings
func (m *manifest) check(doc *etree.Document, profile model.Profile) []string {
	var findings []string

	for _, rule := range m.rules(profile) {
		count := len(doc.FindElements(rule.path))
		if count < rule.min {
			findings = append(findings, fmt.Sprintf(
				"missing required element: %s (%s)", rule.path, rule.desc))
		}
		if rule.max > 0 && count > rule.max {
			findings = append(findings, fmt.Sprintf(
				"element %s appears %d times, at most %d allowed (%s)",
				rule.path, count, rule.max, rule.desc))
		}
	}

	for _, order := range m.orders {
		rank := make(map[string]int, len(order.sequence))
		for i, tag := range order.sequence {
			rank[tag] = i
		}
		for _, el := range doc.FindElements(order.aggregate) {
			last := -1
			for _, child := range el.ChildElements() {
				r, known := rank[child.Tag]
				if !known {
					continue
				}
				if r < last {
					findings = append(findings, fmt.Sprintf(
						"element %s out of order inside %s", child.Tag, order.aggregate))
					break
				}
				last = r
			}
		}
	}

	return findings
}

func ciiManifest() *manifest {
	return &manifest{
		format:    model.FormatCII,
		rootTags:  []string{"CrossIndustryInvoice"},
		rootSpace: "rsm",
		rules:     ciiRules,
		orders: []orderRule{
			{aggregate: "//rsm:SupplyChainTradeTransaction", sequence: []string{
				"IncludedSupplyChainTradeLineItem",
				"ApplicableHeaderTradeAgreement",
				"ApplicableHeaderTradeDelivery",
				"ApplicableHeaderTradeSettlement",
			}},
			{aggregate: "//rsm:ExchangedDocument", sequence: []string{
				"ID", "TypeCode", "IssueDateTime", "IncludedNote",
			}},
			{aggregate: "//ram:PostalTradeAddress", sequence: []string{
				"PostcodeCode", "LineOne", "LineTwo", "CityName",
				"CountryID", "CountrySubDivisionName",
			}},
			{aggregate: "//ram:ApplicableHeaderTradeSettlement/ram:ApplicableTradeTax", sequence: []string{
				"CalculatedAmount", "TypeCode", "ExemptionReason",
				"BasisAmount", "CategoryCode", "ExemptionReasonCode",
				"DueDateTypeCode", "RateApplicablePercent",
			}},
			{aggregate: "//ram:SpecifiedTradeSettlementHeaderMonetarySummation", sequence: []string{
				"LineTotalAmount", "TaxBasisTotalAmount", "TaxTotalAmount",
				"GrandTotalAmount", "TotalPrepaidAmount", "DuePayableAmount",
			}},
		},
	}
}

func ciiRules(profile model.Profile) []elementRule {
	rules := []elementRule{
		{path: "//rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID", min: 1, max: 1, desc: "guideline identifier"},
		{path: "//rsm:ExchangedDocument/ram:ID", min: 1, max: 1, desc: "invoice number"},
		{path: "//rsm:ExchangedDocument/ram:TypeCode", min: 1, max: 1, desc: "document type code"},
		{path: "//rsm:ExchangedDocument/ram:IssueDateTime/udt:DateTimeString", min: 1, max: 1, desc: "issue date"},
		{path: "//rsm:SupplyChainTradeTransaction", min: 1, max: 1, desc: "trade transaction"},
		{path: "//ram:ApplicableHeaderTradeAgreement/ram:SellerTradeParty/ram:Name", min: 1, max: 1, desc: "seller name"},
		{path: "//ram:ApplicableHeaderTradeAgreement/ram:BuyerTradeParty/ram:Name", min: 1, max: 1, desc: "buyer name"},
		{path: "//ram:ApplicableHeaderTradeDelivery", min: 1, max: 1, desc: "header delivery"},
		{path: "//ram:ApplicableHeaderTradeSettlement/ram:InvoiceCurrencyCode", min: 1, max: 1, desc: "invoice currency"},
		{path: "//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:TaxBasisTotalAmount", min: 1, max: 1, desc: "tax basis total"},
		{path: "//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:GrandTotalAmount", min: 1, max: 1, desc: "grand total"},
		{path: "//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:DuePayableAmount", min: 1, max: 1, desc: "amount due"},
	}
	if profile.IncludesLines() {
		rules = append(rules,
			elementRule{path: "//rsm:SupplyChainTradeTransaction/ram:IncludedSupplyChainTradeLineItem", min: 1, desc: "at least one line item"},
			elementRule{path: "//ram:SpecifiedTradeSettlementHeaderMonetarySummation/ram:LineTotalAmount", min: 1, max: 1, desc: "line total"},
		)
	}
	if profile != model.ProfileMinimum {
		rules = append(rules,
			elementRule{path: "//ram:ApplicableHeaderTradeSettlement/ram:ApplicableTradeTax", min: 1, desc: "tax breakdown"},
		)
	}
	return rules
}

func ublManifest() *manifest {
	return &manifest{
		format:   model.FormatUBL,
		rootTags: []string{"Invoice", "CreditNote"},
		rules:    ublRules,
		orders: []orderRule{
			{aggregate: "//cac:TaxSubtotal", sequence: []string{
				"TaxableAmount", "TaxAmount", "TaxCategory",
			}},
			{aggregate: "//cac:LegalMonetaryTotal", sequence: []string{
				"LineExtensionAmount", "TaxExclusiveAmount", "TaxInclusiveAmount",
				"AllowanceTotalAmount", "ChargeTotalAmount", "PrepaidAmount",
				"PayableRoundingAmount", "PayableAmount",
			}},
		},
	}
}

// ublRules ignores the profile: UBL has no without-lines flavor
func ublRules(model.Profile) []elementRule {
	return []elementRule{
		{path: "/*/cbc:CustomizationID", min: 1, max: 1, desc: "customization identifier"},
		{path: "/*/cbc:ID", min: 1, max: 1, desc: "invoice number"},
		{path: "/*/cbc:IssueDate", min: 1, max: 1, desc: "issue date"},
		{path: "/*/cbc:DocumentCurrencyCode", min: 1, max: 1, desc: "document currency"},
		{path: "//cac:AccountingSupplierParty", min: 1, max: 1, desc: "supplier party"},
		{path: "//cac:AccountingCustomerParty", min: 1, max: 1, desc: "customer party"},
		{path: "//cac:TaxTotal", min: 1, max: 2, desc: "tax total"},
		{path: "//cac:LegalMonetaryTotal", min: 1, max: 1, desc: "monetary total"},
		{path: "//cac:LegalMonetaryTotal/cbc:PayableAmount", min: 1, max: 1, desc: "amount due"},
	}
}
