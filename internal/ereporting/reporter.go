package ereporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/tax"
)

// Reporter builds and validates e-reporting records for one seller.
// The VAT regime fixes the transmission calendar.
type Reporter struct {
	sellerSiren string
	regime      model.VATRegime
}

// NewReporter creates a reporter bound to a seller SIREN and regime
func NewReporter(sellerSiren string, regime model.VATRegime) (*Reporter, error) {
	if !model.ValidSiren(sellerSiren) {
		return nil, NewEReportingError("seller_siren", "must be exactly 9 digits")
	}
	if !regime.Valid() {
		return nil, NewEReportingError("vat_regime", "unknown VAT regime")
	}
	return &Reporter{sellerSiren: sellerSiren, regime: regime}, nil
}

// SellerSiren returns the SIREN this reporter declares for
func (r *Reporter) SellerSiren() string {
	return r.sellerSiren
}

// Regime returns the bound VAT regime
func (r *Reporter) Regime() model.VATRegime {
	return r.regime
}

// TransactionFromInvoice derives a transaction record from an invoice.
// The record copies everything it needs and keeps no reference to the
// invoice. International types require a country code other than FR.
func (r *Reporter) TransactionFromInvoice(inv *model.Invoice, t model.TransactionType, countryCode string) (*Transaction, error) {
	if inv == nil {
		return nil, NewEReportingError("invoice", "no invoice given")
	}
	if !t.Valid() {
		return nil, NewEReportingError("transaction_type", "unknown transaction type")
	}
	if inv.Seller.Siren == "" {
		return nil, NewEReportingError("seller_siren", "the invoice seller carries no SIREN")
	}
	if t.International() {
		if countryCode == "" {
			return nil, NewEReportingError("country_code", "international transactions require a country code")
		}
		if countryCode == "FR" {
			return nil, NewEReportingError("country_code", "international transactions cannot use FR")
		}
	}

	res := tax.Compute(inv)

	tx := &Transaction{
		ID:                uuid.NewString(),
		SellerSiren:       inv.Seller.Siren,
		Type:              t,
		InvoiceNumber:     inv.Number,
		OperationCategory: inv.OperationCategory,
		TotalExclTax:      res.NetTotal,
		VATAmount:         res.TaxTotal,
		VATOnDebits:       inv.VATOnDebits,
		CountryCode:       countryCode,
		Currency:          inv.Currency,
	}
	issued := inv.IssueDate
	tx.InvoiceDate = &issued
	if inv.PeriodStart != nil {
		start := *inv.PeriodStart
		tx.PeriodStart = &start
	}
	if inv.PeriodEnd != nil {
		end := *inv.PeriodEnd
		tx.PeriodEnd = &end
	}

	// The dominant rate is the one backing the largest taxable base.
	// Invoices taxed only under zero-tax categories report as exempt.
	var dominant *tax.Summary
	for i := range res.Summaries {
		s := &res.Summaries[i]
		if s.Category.ZeroTax() {
			continue
		}
		if dominant == nil || s.TaxableBase.GreaterThan(dominant.TaxableBase) {
			dominant = s
		}
	}
	if dominant != nil {
		rate := dominant.Rate
		tx.VATRate = &rate
	} else {
		tx.Exempt = true
	}
	return tx, nil
}

// ValidateTransaction checks required fields and returns the findings
func (r *Reporter) ValidateTransaction(tx *Transaction) []string {
	var findings []string
	if !model.ValidSiren(tx.SellerSiren) {
		findings = append(findings, "seller SIREN must be exactly 9 digits")
	} else if tx.SellerSiren != r.sellerSiren {
		findings = append(findings, fmt.Sprintf("seller SIREN %s does not match reporter SIREN %s", tx.SellerSiren, r.sellerSiren))
	}
	if !tx.Type.Valid() {
		findings = append(findings, "unknown transaction type")
	}
	if !tx.OperationCategory.Valid() {
		findings = append(findings, "unknown operation category")
	}
	if tx.InvoiceDate == nil && (tx.PeriodStart == nil || tx.PeriodEnd == nil) {
		findings = append(findings, "an invoice date or a full reporting period is required")
	}
	if tx.PeriodStart != nil && tx.PeriodEnd != nil && tx.PeriodEnd.Before(*tx.PeriodStart) {
		findings = append(findings, "the reporting period ends before it starts")
	}
	if tx.VATRate == nil && !tx.Exempt {
		findings = append(findings, "a VAT rate or the exemption flag is required")
	}
	if tx.VATRate != nil && tx.VATRate.IsNegative() {
		findings = append(findings, "the VAT rate cannot be negative")
	}
	if tx.Type.International() {
		if tx.CountryCode == "" {
			findings = append(findings, "international transactions require a country code")
		} else if tx.CountryCode == "FR" {
			findings = append(findings, "international transactions cannot use the country code FR")
		}
	}
	if tx.Currency != "" && !tx.Currency.Valid() {
		findings = append(findings, "unknown currency code")
	}
	return findings
}

// ValidatePayment checks required fields and returns the findings
func (r *Reporter) ValidatePayment(p *Payment) []string {
	var findings []string
	if !model.ValidSiren(p.SellerSiren) {
		findings = append(findings, "seller SIREN must be exactly 9 digits")
	} else if p.SellerSiren != r.sellerSiren {
		findings = append(findings, fmt.Sprintf("seller SIREN %s does not match reporter SIREN %s", p.SellerSiren, r.sellerSiren))
	}
	if p.CashingDate.IsZero() {
		findings = append(findings, "a cashing date is required")
	}
	if !p.CashedAmount.IsPositive() {
		findings = append(findings, "the cashed amount must be strictly positive")
	}
	if p.InvoiceReference == "" {
		findings = append(findings, "the reference of the cashed invoice is required")
	}
	if p.Currency != "" && !p.Currency.Valid() {
		findings = append(findings, "unknown currency code")
	}
	return findings
}

// ValidateAggregate checks required fields and returns the findings
func (r *Reporter) ValidateAggregate(agg *Aggregate) []string {
	var findings []string
	if !model.ValidSiren(agg.SellerSiren) {
		findings = append(findings, "seller SIREN must be exactly 9 digits")
	} else if agg.SellerSiren != r.sellerSiren {
		findings = append(findings, fmt.Sprintf("seller SIREN %s does not match reporter SIREN %s", agg.SellerSiren, r.sellerSiren))
	}
	if agg.PeriodStart.IsZero() || agg.PeriodEnd.IsZero() {
		findings = append(findings, "a full aggregation period is required")
	} else if agg.PeriodEnd.Before(agg.PeriodStart) {
		findings = append(findings, "the aggregation period ends before it starts")
	}
	if !agg.OperationCategory.Valid() {
		findings = append(findings, "unknown operation category")
	}
	if len(agg.Breakdowns) == 0 {
		findings = append(findings, "at least one tax breakdown is required")
	}
	for i, b := range agg.Breakdowns {
		if b.Rate == nil && !b.Exempt {
			findings = append(findings, fmt.Sprintf("breakdown %d needs a VAT rate or the exemption flag", i+1))
		}
		if b.Rate != nil && b.Rate.IsNegative() {
			findings = append(findings, fmt.Sprintf("breakdown %d carries a negative VAT rate", i+1))
		}
	}
	return findings
}

// PrepareTransaction validates a transaction and wraps it into an
// individual-mode submission. The input is copied, not retained.
func (r *Reporter) PrepareTransaction(tx *Transaction) (*Submission, error) {
	record := *tx
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Currency == "" {
		record.Currency = model.CurrencyEUR
	}
	if findings := r.ValidateTransaction(&record); len(findings) > 0 {
		return nil, NewValidationError("transaction fails validation", findings)
	}
	return &Submission{
		ID:          uuid.NewString(),
		Mode:        model.TransmissionIndividual,
		Transaction: &record,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// PrepareAggregate validates an aggregate and wraps it into an
// aggregated-mode submission. An all-zero aggregate is an empty
// declaration and is refused outright.
func (r *Reporter) PrepareAggregate(agg *Aggregate) (*Submission, error) {
	record := *agg
	record.Breakdowns = append([]TaxBreakdown(nil), agg.Breakdowns...)
	if len(record.Breakdowns) > 0 && record.TotalExclTax().IsZero() && record.TotalVAT().IsZero() {
		return nil, NewEmptyDeclarationError("nothing to declare: empty declarations are no longer transmitted")
	}
	if findings := r.ValidateAggregate(&record); len(findings) > 0 {
		return nil, NewValidationError("aggregate fails validation", findings)
	}
	return &Submission{
		ID:        uuid.NewString(),
		Mode:      model.TransmissionAggregated,
		Aggregate: &record,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// PreparePayment validates a payment and wraps it into an
// individual-mode submission
func (r *Reporter) PreparePayment(p *Payment) (*Submission, error) {
	record := *p
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Currency == "" {
		record.Currency = model.CurrencyEUR
	}
	if findings := r.ValidatePayment(&record); len(findings) > 0 {
		return nil, NewValidationError("payment fails validation", findings)
	}
	return &Submission{
		ID:        uuid.NewString(),
		Mode:      model.TransmissionIndividual,
		Payment:   &record,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AggregateTransactions groups transactions into per-rate breakdowns
// over the given period. All transactions must carry the reporter's
// SIREN; an empty list is an empty declaration.
func (r *Reporter) AggregateTransactions(txs []*Transaction, periodStart, periodEnd time.Time) (*Aggregate, error) {
	if len(txs) == 0 {
		return nil, NewEmptyDeclarationError("no transactions to aggregate: empty declarations are no longer transmitted")
	}
	for _, tx := range txs {
		if tx.SellerSiren != r.sellerSiren {
			return nil, NewValidationError("aggregation refused", []string{
				fmt.Sprintf("all transactions must share the reporter SIREN %s, found %s", r.sellerSiren, tx.SellerSiren),
			})
		}
	}

	type key struct {
		rate   string
		exempt bool
	}
	groups := make(map[key]*TaxBreakdown)
	var order []key
	vatOnDebits := false
	for _, tx := range txs {
		k := key{exempt: tx.Exempt}
		if tx.VATRate != nil {
			k.rate = tx.VATRate.String()
		}
		b, ok := groups[k]
		if !ok {
			b = &TaxBreakdown{Exempt: tx.Exempt}
			if tx.VATRate != nil {
				rate := *tx.VATRate
				b.Rate = &rate
			}
			groups[k] = b
			order = append(order, k)
		}
		b.TaxableAmount = b.TaxableAmount.Add(tx.TotalExclTax)
		b.TaxAmount = b.TaxAmount.Add(tx.VATAmount)
		if tx.VATOnDebits {
			vatOnDebits = true
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := groups[order[i]], groups[order[j]]
		switch {
		case a.Rate == nil:
			return false
		case b.Rate == nil:
			return true
		default:
			return a.Rate.LessThan(*b.Rate)
		}
	})
	breakdowns := make([]TaxBreakdown, 0, len(order))
	for _, k := range order {
		breakdowns = append(breakdowns, *groups[k])
	}

	return &Aggregate{
		SellerSiren:       r.sellerSiren,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		OperationCategory: txs[0].OperationCategory,
		Breakdowns:        breakdowns,
		VATOnDebits:       vatOnDebits,
	}, nil
}

// ScheduleFor returns the transmission calendar a regime imposes.
// Real-regime sellers report transactions every ten days, the others
// monthly; payment data goes monthly except under the franchise,
// which owes none.
func ScheduleFor(regime model.VATRegime) Schedule {
	s := Schedule{Regime: regime}
	switch regime {
	case model.RegimeNormalMonthly, model.RegimeNormalQuarterly:
		s.TransactionFrequency = FrequencyDecadal
		s.PaymentFrequency = FrequencyMonthly
	case model.RegimeSimplified:
		s.TransactionFrequency = FrequencyMonthly
		s.PaymentFrequency = FrequencyMonthly
	case model.RegimeFranchise:
		s.TransactionFrequency = FrequencyMonthly
		s.PaymentFrequency = FrequencyNone
	}
	return s
}

// Schedule returns the calendar for the reporter's own regime
func (r *Reporter) Schedule() Schedule {
	return ScheduleFor(r.regime)
}

// NextTransactionDeadline returns the first transmission deadline
// strictly after the given date. Décadaire reporting falls due on the
// 10th, the 20th and the last day of each month; monthly reporting on
// the last day of the following month.
func NextTransactionDeadline(regime model.VATRegime, after time.Time) time.Time {
	if ScheduleFor(regime).TransactionFrequency == FrequencyDecadal {
		return nextDecadalDeadline(after)
	}
	return endOfFollowingMonth(after)
}

// NextTransactionDeadline applies the reporter's own regime
func (r *Reporter) NextTransactionDeadline(after time.Time) time.Time {
	return NextTransactionDeadline(r.regime, after)
}

// NextPaymentDeadline returns the first payment-data deadline strictly
// after the given date. The second return is false when the regime
// owes no payment data at all.
func NextPaymentDeadline(regime model.VATRegime, after time.Time) (time.Time, bool) {
	if ScheduleFor(regime).PaymentFrequency == FrequencyNone {
		return time.Time{}, false
	}
	return endOfFollowingMonth(after), true
}

// NextPaymentDeadline applies the reporter's own regime
func (r *Reporter) NextPaymentDeadline(after time.Time) (time.Time, bool) {
	return NextPaymentDeadline(r.regime, after)
}

func nextDecadalDeadline(after time.Time) time.Time {
	y, m, d := after.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	candidates := []time.Time{
		time.Date(y, m, 10, 0, 0, 0, 0, time.UTC),
		time.Date(y, m, 20, 0, 0, 0, 0, time.UTC),
		time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC),
		time.Date(y, m+1, 10, 0, 0, 0, 0, time.UTC),
	}
	for _, c := range candidates {
		if c.After(day) {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// endOfFollowingMonth exploits day-zero normalization: day 0 of month
// m+2 is the last day of month m+1
func endOfFollowingMonth(after time.Time) time.Time {
	y, m, _ := after.Date()
	return time.Date(y, m+2, 0, 0, 0, 0, 0, time.UTC)
}
