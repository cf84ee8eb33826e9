// Package tax computes invoice totals and per-rate tax aggregates.
//
// Everything here is pure: Compute reads the invoice, allocates a fresh
// Result and never mutates its input, so it is safe to call repeatedly
// and from concurrent goroutines. Totals are never stored on the
// invoice; callers recompute them whenever they are consulted, which
// makes drift from line data structurally impossible.
package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/facturx-fr/internal/decimal"
	"github.com/rezonia/facturx-fr/internal/model"
)

// Summary aggregates the lines sharing one (category, rate) pair
type Summary struct {
	Category            model.VATCategory `json:"category"`
	Rate                decimal.Decimal   `json:"rate"`
	TaxableBase         decimal.Decimal   `json:"taxable_base"`
	TaxAmount           decimal.Decimal   `json:"tax_amount"`
	ExemptionReason     string            `json:"exemption_reason,omitempty"`
	ExemptionReasonCode string            `json:"exemption_reason_code,omitempty"`
}

// Result carries every derived total of one invoice
type Result struct {
	NetTotal   decimal.Decimal `json:"net_total"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	GrossTotal decimal.Decimal `json:"gross_total"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	Summaries  []Summary       `json:"tax_summaries"`
}

type group struct {
	category   model.VATCategory
	rate       decimal.Decimal
	base       decimal.Decimal
	reason     string
	reasonCode string
}

// Compute derives totals and tax summaries from the invoice lines.
//
// Lines are grouped by (rate, category). Each group sums the exact line
// net amounts and rounds the base once, at the end of the sum; the tax
// is then rounded half-up to cents. Rounding per line would accumulate
// drift, so it never happens. Categories that carry no seller-side tax
// (reverse charge in particular) contribute zero tax whatever their
// nominal rate field says.
func Compute(inv *model.Invoice) *Result {
	groups := make(map[string]*group)
	order := make([]string, 0, len(inv.Lines))

	for i := range inv.Lines {
		line := &inv.Lines[i]
		key := string(line.VATCategory) + "|" + line.VATRate.StringFixed(4)
		g, ok := groups[key]
		if !ok {
			g = &group{category: line.VATCategory, rate: line.VATRate, base: money.Zero}
			groups[key] = g
			order = append(order, key)
		}
		g.base = g.base.Add(line.NetAmount())
		if g.reason == "" {
			g.reason = line.VATExemptionReason
		}
		if g.reasonCode == "" {
			g.reasonCode = line.VATExemptionReasonCode
		}
	}

	summaries := make([]Summary, 0, len(order))
	net := money.Zero
	taxTotal := money.Zero

	for _, key := range order {
		g := groups[key]
		base := money.RoundMoney(g.base)

		var tax decimal.Decimal
		if g.category.ZeroTax() {
			tax = money.Zero
		} else {
			tax = money.CalculateVAT(base, g.rate)
		}

		summaries = append(summaries, Summary{
			Category:            g.category,
			Rate:                g.rate,
			TaxableBase:         base,
			TaxAmount:           tax,
			ExemptionReason:     g.reason,
			ExemptionReasonCode: g.reasonCode,
		})
		net = net.Add(base)
		taxTotal = taxTotal.Add(tax)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Category != summaries[j].Category {
			return summaries[i].Category < summaries[j].Category
		}
		return summaries[i].Rate.LessThan(summaries[j].Rate)
	})

	gross := net.Add(taxTotal)
	return &Result{
		NetTotal:   net,
		TaxTotal:   taxTotal,
		GrossTotal: gross,
		AmountDue:  gross.Sub(inv.PrepaidAmount),
		Summaries:  summaries,
	}
}
