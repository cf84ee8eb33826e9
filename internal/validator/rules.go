package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/facturx-fr/internal/decimal"
	"github.com/rezonia/facturx-fr/internal/model"
)

var (
	sirenShape    = regexp.MustCompile(`^\d{9}$`)
	currencyShape = regexp.MustCompile(`^[A-Z]{3}$`)
)

// taxBreakdown is one per-category/rate entry read from the document
type taxBreakdown struct {
	category string
	rate     decimal.Decimal
	base     decimal.Decimal
	amount   decimal.Decimal
	location string
}

// lineTax is the VAT classification of one line item
type lineTax struct {
	category string
	rate     decimal.Decimal
	location string
}

// valueAt pairs a raw value with the location it was read from
type valueAt struct {
	value    string
	location string
}

// documentFacts is the format-neutral content the business rules run
// against. Extractors fill it from either rendition.
type documentFacts struct {
	typeCode  string
	currency  valueAt
	issueDate string
	dueDate   string

	hasLines bool
	lineNets []decimal.Decimal

	lineTotal *decimal.Decimal
	taxBasis  *decimal.Decimal
	taxTotal  *decimal.Decimal
	grand     *decimal.Decimal
	prepaid   decimal.Decimal
	due       *decimal.Decimal

	breakdowns []taxBreakdown
	lineTaxes  []lineTax
	sirens     []valueAt

	hasCategoryNote bool
	hasPrecedingRef bool
}

// ValidateBusinessRules runs the rule-coded business stage. Every
// finding reads "[RULE-ID] text (location: xpath)". The format is
// detected from the document; an unknown root is an error return.
func (v *Validator) ValidateBusinessRules(data []byte) ([]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("document is not well-formed XML: %w", err)
	}
	format := DetectFormat(data)

	var facts *documentFacts
	switch format {
	case model.FormatCII:
		facts = extractCIIFacts(doc)
	case model.FormatUBL:
		facts = extractUBLFacts(doc)
	default:
		return nil, fmt.Errorf("cannot run business rules on unrecognized document")
	}

	return runRules(facts), nil
}

func runRules(f *documentFacts) []string {
	var findings []string
	add := func(rule, text, location string) {
		findings = append(findings, fmt.Sprintf("[%s] %s (location: %s)", rule, text, location))
	}

	// Arithmetic coherence
	if f.hasLines && f.lineTotal != nil {
		sum := money.Sum(f.lineNets)
		if !sum.Equal(*f.lineTotal) {
			add("BR-CO-10", fmt.Sprintf("sum of line net amounts %s does not equal the declared line total %s",
				sum.StringFixed(2), f.lineTotal.StringFixed(2)), "//ram:LineTotalAmount")
		}
	}
	if f.taxBasis != nil && f.taxTotal != nil && f.grand != nil {
		if !f.taxBasis.Add(*f.taxTotal).Equal(*f.grand) {
			add("BR-CO-13", fmt.Sprintf("net %s plus tax %s does not equal gross %s",
				f.taxBasis.StringFixed(2), f.taxTotal.StringFixed(2), f.grand.StringFixed(2)),
				"//ram:GrandTotalAmount")
		}
	}
	if f.grand != nil && f.due != nil {
		if !f.grand.Sub(f.prepaid).Equal(*f.due) {
			add("BR-CO-15", fmt.Sprintf("gross %s minus prepaid %s does not equal the amount due %s",
				f.grand.StringFixed(2), f.prepaid.StringFixed(2), f.due.StringFixed(2)),
				"//ram:DuePayableAmount")
		}
	}
	if f.taxTotal != nil && len(f.breakdowns) > 0 {
		sum := decimal.Zero
		for _, b := range f.breakdowns {
			sum = sum.Add(b.amount)
		}
		if !sum.Equal(*f.taxTotal) {
			add("BR-CO-14", fmt.Sprintf("sum of category tax amounts %s does not equal the tax total %s",
				sum.StringFixed(2), f.taxTotal.StringFixed(2)), "//ram:TaxTotalAmount")
		}
	}

	// Breakdown consistency: unique (category, rate), computed amounts
	seen := map[string]bool{}
	for _, b := range f.breakdowns {
		key := b.category + "|" + b.rate.StringFixed(4)
		if seen[key] {
			add("BR-FR-05", fmt.Sprintf("duplicate tax breakdown for category %s rate %s",
				b.category, b.rate.StringFixed(2)), b.location)
			continue
		}
		seen[key] = true

		cat := model.VATCategory(b.category)
		if cat.ZeroTax() {
			if !b.amount.IsZero() {
				add("BR-CO-17", fmt.Sprintf("category %s must carry a zero tax amount, found %s",
					b.category, b.amount.StringFixed(2)), b.location)
			}
			continue
		}
		expected := money.CalculateVAT(b.base, b.rate)
		if !expected.Equal(b.amount) {
			add("BR-CO-17", fmt.Sprintf("tax amount %s for category %s rate %s does not match the computed %s",
				b.amount.StringFixed(2), b.category, b.rate.StringFixed(2), expected.StringFixed(2)), b.location)
		}
	}

	// Reverse charge coherence
	for _, lt := range f.lineTaxes {
		if lt.category == string(model.VATReverseCharge) && !lt.rate.IsZero() {
			add("BR-AE-05", fmt.Sprintf("reverse charge line carries rate %s, must be zero",
				lt.rate.StringFixed(2)), lt.location)
		}
	}
	for _, b := range f.breakdowns {
		if b.category == string(model.VATReverseCharge) && !b.rate.IsZero() {
			add("BR-AE-05", fmt.Sprintf("reverse charge breakdown carries rate %s, must be zero",
				b.rate.StringFixed(2)), b.location)
		}
	}

	// French reform requirements
	for _, s := range f.sirens {
		if !sirenShape.MatchString(s.value) {
			add("BR-FR-01", fmt.Sprintf("legal registration %q is not a 9-digit SIREN", s.value), s.location)
		}
	}
	if !f.hasCategoryNote {
		add("BR-FR-02", "operation category note with subject code AAI is mandatory", "//ram:IncludedNote")
	}
	if (f.typeCode == "381" || f.typeCode == "384") && !f.hasPrecedingRef {
		add("BR-FR-03", "credit and corrective documents must reference the preceding invoice", "//ram:InvoiceReferencedDocument")
	}

	// Shapes and ordering
	if f.currency.value != "" && !currencyShape.MatchString(f.currency.value) {
		add("BR-05", fmt.Sprintf("currency code %q is not a 3-letter ISO code", f.currency.value), f.currency.location)
	}
	if f.issueDate != "" && f.dueDate != "" && f.dueDate < f.issueDate {
		add("BR-FR-04", fmt.Sprintf("due date %s precedes the issue date %s", f.dueDate, f.issueDate), "//ram:DueDateDateTime")
	}

	return findings
}

func parseAmount(el *etree.Element) *decimal.Decimal {
	if el == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(el.Text()))
	if err != nil {
		return nil
	}
	return &d
}

func amountOrZero(el *etree.Element) decimal.Decimal {
	if d := parseAmount(el); d != nil {
		return *d
	}
	return decimal.Zero
}

func extractCIIFacts(doc *etree.Document) *documentFacts {
	f := &documentFacts{}

	if el := doc.FindElement("//rsm:ExchangedDocument/ram:TypeCode"); el != nil {
		f.typeCode = strings.TrimSpace(el.Text())
	}
	if el := doc.FindElement("//ram:InvoiceCurrencyCode"); el != nil {
		f.currency = valueAt{strings.TrimSpace(el.Text()), "//ram:InvoiceCurrencyCode"}
	}
	if el := doc.FindElement("//rsm:ExchangedDocument/ram:IssueDateTime/udt:DateTimeString"); el != nil {
		f.issueDate = strings.TrimSpace(el.Text())
	}
	if el := doc.FindElement("//ram:SpecifiedTradePaymentTerms/ram:DueDateDateTime/udt:DateTimeString"); el != nil {
		f.dueDate = strings.TrimSpace(el.Text())
	}

	// Only direct children of the transaction: sub-lines of the
	// extended profile must not be double counted
	lines := doc.FindElements("//rsm:SupplyChainTradeTransaction/ram:IncludedSupplyChainTradeLineItem")
	f.hasLines = len(lines) > 0
	for i, line := range lines {
		loc := fmt.Sprintf("//ram:IncludedSupplyChainTradeLineItem[%d]", i+1)
		if el := line.FindElement("ram:SpecifiedLineTradeSettlement/ram:SpecifiedTradeSettlementLineMonetarySummation/ram:LineTotalAmount"); el != nil {
			f.lineNets = append(f.lineNets, amountOrZero(el))
		}
		if taxEl := line.FindElement("ram:SpecifiedLineTradeSettlement/ram:ApplicableTradeTax"); taxEl != nil {
			lt := lineTax{location: loc}
			if el := taxEl.FindElement("ram:CategoryCode"); el != nil {
				lt.category = strings.TrimSpace(el.Text())
			}
			if el := taxEl.FindElement("ram:RateApplicablePercent"); el != nil {
				lt.rate = amountOrZero(el)
			}
			f.lineTaxes = append(f.lineTaxes, lt)
		}
	}

	sum := doc.FindElement("//ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	if sum != nil {
		f.lineTotal = parseAmount(sum.FindElement("ram:LineTotalAmount"))
		f.taxBasis = parseAmount(sum.FindElement("ram:TaxBasisTotalAmount"))
		f.taxTotal = parseAmount(sum.FindElement("ram:TaxTotalAmount"))
		f.grand = parseAmount(sum.FindElement("ram:GrandTotalAmount"))
		f.prepaid = amountOrZero(sum.FindElement("ram:TotalPrepaidAmount"))
		f.due = parseAmount(sum.FindElement("ram:DuePayableAmount"))
	}

	for i, el := range doc.FindElements("//ram:ApplicableHeaderTradeSettlement/ram:ApplicableTradeTax") {
		b := taxBreakdown{location: fmt.Sprintf("//ram:ApplicableTradeTax[%d]", i+1)}
		if c := el.FindElement("ram:CategoryCode"); c != nil {
			b.category = strings.TrimSpace(c.Text())
		}
		b.rate = amountOrZero(el.FindElement("ram:RateApplicablePercent"))
		b.base = amountOrZero(el.FindElement("ram:BasisAmount"))
		b.amount = amountOrZero(el.FindElement("ram:CalculatedAmount"))
		f.breakdowns = append(f.breakdowns, b)
	}

	for i, el := range doc.FindElements("//ram:SpecifiedLegalOrganization/ram:ID") {
		if el.SelectAttrValue("schemeID", "") == "0002" {
			f.sirens = append(f.sirens, valueAt{
				strings.TrimSpace(el.Text()),
				fmt.Sprintf("//ram:SpecifiedLegalOrganization[%d]/ram:ID", i+1),
			})
		}
	}

	for _, note := range doc.FindElements("//rsm:ExchangedDocument/ram:IncludedNote") {
		if sc := note.FindElement("ram:SubjectCode"); sc != nil && strings.TrimSpace(sc.Text()) == "AAI" {
			f.hasCategoryNote = true
		}
	}
	f.hasPrecedingRef = doc.FindElement("//ram:InvoiceReferencedDocument/ram:IssuerAssignedID") != nil

	return f
}

func extractUBLFacts(doc *etree.Document) *documentFacts {
	f := &documentFacts{}
	root := doc.Root()

	if el := root.FindElement("cbc:InvoiceTypeCode"); el != nil {
		f.typeCode = strings.TrimSpace(el.Text())
	} else if el := root.FindElement("cbc:CreditNoteTypeCode"); el != nil {
		f.typeCode = strings.TrimSpace(el.Text())
	}
	if el := root.FindElement("cbc:DocumentCurrencyCode"); el != nil {
		f.currency = valueAt{strings.TrimSpace(el.Text()), "//cbc:DocumentCurrencyCode"}
	}
	if el := root.FindElement("cbc:IssueDate"); el != nil {
		f.issueDate = strings.TrimSpace(el.Text())
	}
	if el := root.FindElement("cbc:DueDate"); el != nil {
		f.dueDate = strings.TrimSpace(el.Text())
	}

	lines := root.FindElements("cac:InvoiceLine")
	lines = append(lines, root.FindElements("cac:CreditNoteLine")...)
	f.hasLines = len(lines) > 0
	for i, line := range lines {
		loc := fmt.Sprintf("//cac:%s[%d]", line.Tag, i+1)
		if el := line.FindElement("cbc:LineExtensionAmount"); el != nil {
			f.lineNets = append(f.lineNets, amountOrZero(el))
		}
		if cat := line.FindElement("cac:Item/cac:ClassifiedTaxCategory"); cat != nil {
			lt := lineTax{location: loc}
			if el := cat.FindElement("cbc:ID"); el != nil {
				lt.category = strings.TrimSpace(el.Text())
			}
			lt.rate = amountOrZero(cat.FindElement("cbc:Percent"))
			f.lineTaxes = append(f.lineTaxes, lt)
		}
	}

	if total := root.FindElement("cac:LegalMonetaryTotal"); total != nil {
		f.lineTotal = parseAmount(total.FindElement("cbc:LineExtensionAmount"))
		f.taxBasis = parseAmount(total.FindElement("cbc:TaxExclusiveAmount"))
		f.grand = parseAmount(total.FindElement("cbc:TaxInclusiveAmount"))
		f.prepaid = amountOrZero(total.FindElement("cbc:PrepaidAmount"))
		f.due = parseAmount(total.FindElement("cbc:PayableAmount"))
	}
	if taxTotal := root.FindElement("cac:TaxTotal"); taxTotal != nil {
		f.taxTotal = parseAmount(taxTotal.FindElement("cbc:TaxAmount"))
		for i, sub := range taxTotal.FindElements("cac:TaxSubtotal") {
			b := taxBreakdown{location: fmt.Sprintf("//cac:TaxSubtotal[%d]", i+1)}
			if cat := sub.FindElement("cac:TaxCategory"); cat != nil {
				if el := cat.FindElement("cbc:ID"); el != nil {
					b.category = strings.TrimSpace(el.Text())
				}
				b.rate = amountOrZero(cat.FindElement("cbc:Percent"))
			}
			b.base = amountOrZero(sub.FindElement("cbc:TaxableAmount"))
			b.amount = amountOrZero(sub.FindElement("cbc:TaxAmount"))
			f.breakdowns = append(f.breakdowns, b)
		}
	}

	for i, el := range doc.FindElements("//cac:PartyLegalEntity/cbc:CompanyID") {
		if el.SelectAttrValue("schemeID", "") == "0002" {
			f.sirens = append(f.sirens, valueAt{
				strings.TrimSpace(el.Text()),
				fmt.Sprintf("//cac:PartyLegalEntity[%d]/cbc:CompanyID", i+1),
			})
		}
	}

	for _, note := range root.FindElements("cbc:Note") {
		if strings.HasPrefix(strings.TrimSpace(note.Text()), "#AAI#") {
			f.hasCategoryNote = true
		}
	}
	f.hasPrecedingRef = root.FindElement("cac:BillingReference/cac:InvoiceDocumentReference/cbc:ID") != nil

	return f
}
