package xml

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/model"
)

// child returns the first child element with the given local name,
// whatever its namespace prefix
func child(parent *etree.Element, name string) *etree.Element {
	if parent == nil {
		return nil
	}
	for _, el := range parent.ChildElements() {
		if el.Tag == name {
			return el
		}
	}
	return nil
}

// children returns all child elements with the given local name
func children(parent *etree.Element, name string) []*etree.Element {
	if parent == nil {
		return nil
	}
	var out []*etree.Element
	for _, el := range parent.ChildElements() {
		if el.Tag == name {
			out = append(out, el)
		}
	}
	return out
}

// descend walks a path of local names and returns the element at the
// end, or nil when any step is missing
func descend(parent *etree.Element, names ...string) *etree.Element {
	el := parent
	for _, name := range names {
		el = child(el, name)
		if el == nil {
			return nil
		}
	}
	return el
}

// childText returns the trimmed text at the end of a path of local
// names, or the empty string
func childText(parent *etree.Element, names ...string) string {
	el := descend(parent, names...)
	if el == nil {
		return ""
	}
	return trimmed(el)
}

func trimmed(el *etree.Element) string {
	if el == nil {
		return ""
	}
	// etree keeps surrounding indentation as text
	return strings.TrimSpace(el.Text())
}

// attrValue returns an attribute by local name, ignoring its prefix
func attrValue(el *etree.Element, name string) string {
	if el == nil {
		return ""
	}
	for _, a := range el.Attr {
		if a.Key == name {
			return a.Value
		}
	}
	return ""
}

// parseAmount parses a decimal, returning zero for empty or bad input
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDate102 parses a UN/EDIFACT 102 date (CCYYMMDD)
func parseDate102(s string) (time.Time, error) {
	return time.Parse("20060102", s)
}

// parseDateISO parses an ISO 8601 calendar date
func parseDateISO(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// categoryFromLabel reverses the French operation category label
// carried in the AAI note
func categoryFromLabel(label string) model.OperationCategory {
	switch label {
	case model.OperationDelivery.FrenchLabel():
		return model.OperationDelivery
	case model.OperationService.FrenchLabel():
		return model.OperationService
	case model.OperationMixed.FrenchLabel():
		return model.OperationMixed
	}
	return ""
}

// vatOnDebitsNote is the note content marking the VAT-on-debits option
const vatOnDebitsNote = "TVA sur les débits"

// exemptionKey groups tax information by category and rate
type exemptionKey struct {
	category model.VATCategory
	rate     string
}

// backfillExemptions copies header-level exemption reasons onto the
// lines they aggregate. Line-level tax elements carry only category
// and rate; the reasons travel once per tax group.
func backfillExemptions(lines []model.InvoiceLine, reasons map[exemptionKey][2]string) {
	for i := range lines {
		l := &lines[i]
		if l.VATExemptionReason != "" || l.VATExemptionReasonCode != "" {
			continue
		}
		key := exemptionKey{category: l.VATCategory, rate: l.VATRate.StringFixed(2)}
		if r, ok := reasons[key]; ok {
			l.VATExemptionReason = r[0]
			l.VATExemptionReasonCode = r[1]
		}
		backfillExemptions(l.SubLines, reasons)
	}
}
