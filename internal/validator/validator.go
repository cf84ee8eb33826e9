// Package validator checks invoice documents in two ordered stages:
// structural conformance against per-profile requirement tables, then
// business rules over the document's monetary and regulatory content.
// Business rules only run on structurally clean documents, so rule
// checks can assume the elements they read exist.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/facturx-fr/internal/model"
)

var (
	date102Pattern = regexp.MustCompile(`^\d{8}$`)
	dateISOPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	amountPattern  = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
)

// Validator runs the two validation stages
type Validator struct {
	manifests map[model.Format]*manifest
}

// New creates a validator with the standard CII and UBL manifests
func New() *Validator {
	return &Validator{
		manifests: map[model.Format]*manifest{
			model.FormatCII: ciiManifest(),
			model.FormatUBL: ublManifest(),
		},
	}
}

// DetectFormat identifies the rendition from the root element. It
// returns FormatUnknown for anything it does not recognize.
func DetectFormat(data []byte) model.Format {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return model.FormatUnknown
	}
	root := doc.Root()
	if root == nil {
		return model.FormatUnknown
	}
	switch root.Tag {
	case "CrossIndustryInvoice":
		return model.FormatCII
	case "Invoice", "CreditNote":
		return model.FormatUBL
	}
	return model.FormatUnknown
}

// detectProfile reads the conformance level out of the document itself:
// the CII guideline URN, or en16931 for UBL, which is not profile-banded
func detectProfile(doc *etree.Document, format model.Format) model.Profile {
	if format == model.FormatCII {
		if el := doc.FindElement("//ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"); el != nil {
			if p, ok := model.ProfileFromSpecificationID(strings.TrimSpace(el.Text())); ok {
				return p
			}
		}
	}
	return model.ProfileEN16931
}

// ValidateXML runs both stages with short-circuiting: business rules
// are only evaluated when the structural stage finds nothing. Pass
// model.FormatUnknown or an empty profile to autodetect either from
// the document.
func (v *Validator) ValidateXML(data []byte, format model.Format, profile model.Profile) ([]string, error) {
	findings, err := v.ValidateStructure(data, format, profile)
	if err != nil {
		return nil, err
	}
	if len(findings) > 0 {
		return findings, nil
	}
	return v.ValidateBusinessRules(data)
}

// ValidateStructure runs the structural stage. The returned slice is
// empty for a conforming document; the error return is reserved for
// misuse (a format or profile this validator does not know).
func (v *Validator) ValidateStructure(data []byte, format model.Format, profile model.Profile) ([]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		// An unparseable document yields exactly one finding
		return []string{fmt.Sprintf("document is not well-formed XML: %v", err)}, nil
	}
	root := doc.Root()
	if root == nil {
		return []string{"document has no root element"}, nil
	}

	if format == model.FormatUnknown || format == "" {
		format = DetectFormat(data)
		if format == model.FormatUnknown {
			return []string{fmt.Sprintf("unrecognized root element <%s>", root.Tag)}, nil
		}
	}
	m, ok := v.manifests[format]
	if !ok {
		return nil, fmt.Errorf("no structural manifest for format %q", format)
	}
	if profile == "" {
		profile = detectProfile(doc, format)
	}
	if !profile.Valid() {
		return nil, fmt.Errorf("unknown profile %q", profile)
	}

	var findings []string
	if !m.matchesRoot(root) {
		findings = append(findings, fmt.Sprintf(
			"root element <%s> does not belong to format %s", root.Tag, format))
		return findings, nil
	}
	if m.rootSpace != "" && root.Space != m.rootSpace {
		findings = append(findings, fmt.Sprintf(
			"root element prefix %q, expected %q", root.Space, m.rootSpace))
	}

	findings = append(findings, m.check(doc, profile)...)
	findings = append(findings, v.checkFormatSpecifics(doc, format)...)
	findings = append(findings, checkLexicalShapes(doc, format)...)
	return findings, nil
}

// checkFormatSpecifics covers requirements a single-path cardinality
// table cannot express
func (v *Validator) checkFormatSpecifics(doc *etree.Document, format model.Format) []string {
	var findings []string
	if format == model.FormatUBL {
		root := doc.Root()
		lines := len(root.FindElements("cac:InvoiceLine")) + len(root.FindElements("cac:CreditNoteLine"))
		if lines == 0 {
			findings = append(findings, "missing required element: line items (cac:InvoiceLine or cac:CreditNoteLine)")
		}
		types := len(root.FindElements("cbc:InvoiceTypeCode")) + len(root.FindElements("cbc:CreditNoteTypeCode"))
		if types == 0 {
			findings = append(findings, "missing required element: document type code")
		}
		if root.Tag == "CreditNote" && len(root.FindElements("cbc:InvoiceTypeCode")) > 0 {
			findings = append(findings, "CreditNote root must use cbc:CreditNoteTypeCode")
		}
	}
	return findings
}

// checkLexicalShapes verifies date and amount lexical forms everywhere
// they appear
func checkLexicalShapes(doc *etree.Document, format model.Format) []string {
	var findings []string

	if format == model.FormatCII {
		for _, el := range doc.FindElements("//udt:DateTimeString") {
			if el.SelectAttrValue("format", "") != "102" {
				findings = append(findings, fmt.Sprintf(
					"date %q must declare format=\"102\"", el.Text()))
				continue
			}
			if !date102Pattern.MatchString(strings.TrimSpace(el.Text())) {
				findings = append(findings, fmt.Sprintf(
					"date %q does not match the CCYYMMDD shape", el.Text()))
			}
		}
	} else {
		for _, tag := range []string{"//cbc:IssueDate", "//cbc:DueDate", "//cbc:StartDate", "//cbc:EndDate"} {
			for _, el := range doc.FindElements(tag) {
				if !dateISOPattern.MatchString(strings.TrimSpace(el.Text())) {
					findings = append(findings, fmt.Sprintf(
						"date %q does not match the YYYY-MM-DD shape", el.Text()))
				}
			}
		}
	}

	for _, el := range doc.FindElements("//*") {
		if !strings.HasSuffix(el.Tag, "Amount") {
			continue
		}
		if len(el.ChildElements()) > 0 {
			continue
		}
		if !amountPattern.MatchString(strings.TrimSpace(el.Text())) {
			findings = append(findings, fmt.Sprintf(
				"amount %q in <%s> is not a plain decimal with at most 2 places", el.Text(), el.Tag))
		}
	}

	return findings
}
