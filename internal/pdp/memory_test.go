package pdp_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/pdp"
)

func party(t *testing.T, name, siren string) model.Party {
	t.Helper()
	p, err := model.NewParty(name, siren)
	require.NoError(t, err)
	return *p
}

func sampleInvoice(t *testing.T, number string, issued time.Time) *model.Invoice {
	t.Helper()
	line, err := model.NewInvoiceLine("Montures optiques",
		decimal.RequireFromString("10"), decimal.RequireFromString("85.00"))
	require.NoError(t, err)

	inv, err := model.NewInvoice(number, issued,
		party(t, "OptiPaulo SARL", "123456789"),
		party(t, "LunettesPlus SA", "987654321"),
		[]model.InvoiceLine{*line}, model.OperationDelivery)
	require.NoError(t, err)
	return inv
}

func submitSample(t *testing.T, conn *pdp.MemoryConnector, number string, issued time.Time) string {
	t.Helper()
	resp, err := conn.Submit(context.Background(), sampleInvoice(t, number, issued), nil, nil)
	require.NoError(t, err)
	return resp.InvoiceID
}

func advance(t *testing.T, conn *pdp.MemoryConnector, id string, statuses ...model.InvoiceStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := conn.UpdateStatus(context.Background(), id, s)
		require.NoError(t, err)
	}
}

func TestMemoryConnector_Submit(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	issued := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	resp, err := conn.Submit(context.Background(), sampleInvoice(t, "FA-2026-001", issued), []byte("<xml/>"), nil)
	require.NoError(t, err)
	assert.Equal(t, "MEM-000001", resp.InvoiceID)
	assert.Equal(t, model.StatusDeposited, resp.Status)
	assert.False(t, resp.SubmittedAt.IsZero())

	resp2, err := conn.Submit(context.Background(), sampleInvoice(t, "FA-2026-002", issued), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "MEM-000002", resp2.InvoiceID)
}

func TestMemoryConnector_SubmitRejectsInvalid(t *testing.T) {
	conn := pdp.NewMemoryConnector()

	_, err := conn.Submit(context.Background(), nil, nil, nil)
	assert.True(t, pdp.IsValidation(err))

	_, err = conn.Submit(context.Background(), &model.Invoice{}, nil, nil)
	require.True(t, pdp.IsValidation(err))
	var verr *pdp.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Errors)
}

func TestMemoryConnector_StatusAndLifecycle(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	id := submitSample(t, conn, "FA-2026-001", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC))

	status, err := conn.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeposited, status)

	lc, err := conn.GetLifecycle(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, lc.InvoiceID)
	assert.Equal(t, model.StatusDeposited, lc.CurrentStatus)
	require.Len(t, lc.Events, 1)
	assert.Equal(t, lifecycle.ProducerPlatform, lc.Events[0].Producer)

	_, err = conn.GetStatus(context.Background(), "MEM-999999")
	assert.True(t, pdp.IsNotFound(err))
	_, err = conn.GetLifecycle(context.Background(), "MEM-999999")
	assert.True(t, pdp.IsNotFound(err))
}

func TestMemoryConnector_GetInvoice(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	issued := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	resp, err := conn.Submit(context.Background(), sampleInvoice(t, "FA-2026-001", issued), []byte("<rsm:doc/>"), nil)
	require.NoError(t, err)

	data, err := conn.GetInvoice(context.Background(), resp.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, []byte("<rsm:doc/>"), data)

	// No XML supplied at submit time still yields a document
	resp2, err := conn.Submit(context.Background(), sampleInvoice(t, "FA-2026-002", issued), nil, nil)
	require.NoError(t, err)
	data, err = conn.GetInvoice(context.Background(), resp2.InvoiceID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = conn.GetInvoice(context.Background(), "MEM-999999")
	assert.True(t, pdp.IsNotFound(err))
}

func TestMemoryConnector_SearchInvoices(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	id1 := submitSample(t, conn, "FA-2026-001", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	id2 := submitSample(t, conn, "FA-2026-002", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC))
	id3 := submitSample(t, conn, "FA-2026-003", time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC))
	advance(t, conn, id2, model.StatusEmitted)

	t.Run("no filters returns everything in order", func(t *testing.T) {
		res, err := conn.SearchInvoices(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalCount)
		require.Len(t, res.Results, 3)
		assert.Equal(t, id1, res.Results[0].InvoiceID)
		assert.Equal(t, "FA-2026-001", res.Results[0].Number)
		assert.Equal(t, pdp.DirectionSent, res.Results[0].Direction)
		assert.True(t, res.Results[0].TotalInclTax.Equal(decimal.RequireFromString("1020.00")))
	})

	t.Run("filter by status", func(t *testing.T) {
		emitted := model.StatusEmitted
		res, err := conn.SearchInvoices(context.Background(), &pdp.SearchFilters{Status: &emitted})
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
		assert.Equal(t, id2, res.Results[0].InvoiceID)
	})

	t.Run("filter by date range", func(t *testing.T) {
		from := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
		res, err := conn.SearchInvoices(context.Background(), &pdp.SearchFilters{DateFrom: &from, DateTo: &to})
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
		assert.Equal(t, id2, res.Results[0].InvoiceID)
	})

	t.Run("filter by seller siren", func(t *testing.T) {
		res, err := conn.SearchInvoices(context.Background(), &pdp.SearchFilters{SellerSiren: "123456789"})
		require.NoError(t, err)
		assert.Len(t, res.Results, 3)

		res, err = conn.SearchInvoices(context.Background(), &pdp.SearchFilters{SellerSiren: "000000000"})
		require.NoError(t, err)
		assert.Empty(t, res.Results)
	})

	t.Run("pagination", func(t *testing.T) {
		res, err := conn.SearchInvoices(context.Background(), &pdp.SearchFilters{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalCount)
		require.Len(t, res.Results, 2)
		assert.Equal(t, id1, res.Results[0].InvoiceID)

		res, err = conn.SearchInvoices(context.Background(), &pdp.SearchFilters{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
		assert.Equal(t, id3, res.Results[0].InvoiceID)

		res, err = conn.SearchInvoices(context.Background(), &pdp.SearchFilters{Page: 3, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, res.Results)
	})
}

func TestMemoryConnector_UpdateStatus(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	id := submitSample(t, conn, "FA-2026-001", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC))

	resp, err := conn.UpdateStatus(context.Background(), id, model.StatusEmitted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEmitted, resp.Status)

	advance(t, conn, id,
		model.StatusReceived, model.StatusMadeAvailable, model.StatusTakenInCharge)

	// Refusal needs a reason
	_, err = conn.UpdateStatus(context.Background(), id, model.StatusRefused)
	require.True(t, pdp.IsValidation(err))
	status, err := conn.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTakenInCharge, status)

	resp, err = conn.UpdateStatus(context.Background(), id, model.StatusRefused,
		lifecycle.WithReason("Prestation non conforme au devis", "NON_CONFORME"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefused, resp.Status)

	lc, err := conn.GetLifecycle(context.Background(), id)
	require.NoError(t, err)
	last := lc.Events[len(lc.Events)-1]
	assert.Equal(t, "Prestation non conforme au devis", last.Reason)
	assert.Equal(t, "NON_CONFORME", last.ReasonCode)

	// Refused is terminal
	_, err = conn.UpdateStatus(context.Background(), id, model.StatusPaymentSent)
	assert.True(t, pdp.IsValidation(err))

	_, err = conn.UpdateStatus(context.Background(), "MEM-999999", model.StatusEmitted)
	assert.True(t, pdp.IsNotFound(err))
}

func TestMemoryConnector_Directory(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	registered := time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)
	conn.AddDirectoryEntry(pdp.DirectoryEntry{
		Siren:             "123456789",
		CompanyName:       "OptiPaulo SARL",
		PlatformID:        "PDP-0042",
		PlatformName:      "Plateforme Horizon",
		ElectronicAddress: "123456789@horizon.example",
		RegistrationDate:  &registered,
	})

	entry, err := conn.LookupDirectory(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Equal(t, "OptiPaulo SARL", entry.CompanyName)
	assert.Equal(t, "PDP-0042", entry.PlatformID)

	_, err = conn.LookupDirectory(context.Background(), "987654321")
	require.True(t, pdp.IsNotFound(err))
	var nerr *pdp.NotFoundError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "987654321", nerr.ID)
}

func TestMemoryConnector_ReceivedInvoices(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	submitSample(t, conn, "FA-2026-001", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC))

	inbound := sampleInvoice(t, "FA-2026-777", time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC))
	id := conn.AddReceivedInvoice(inbound, []byte("<inbound/>"))
	require.NotEmpty(t, id)

	res, err := conn.SearchInvoices(context.Background(), &pdp.SearchFilters{Direction: pdp.DirectionReceived})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "FA-2026-777", res.Results[0].Number)
	assert.Equal(t, pdp.DirectionReceived, res.Results[0].Direction)

	status, err := conn.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeposited, status)
}

func TestMemoryConnector_EReporting(t *testing.T) {
	conn := pdp.NewMemoryConnector()
	reporter, err := ereporting.NewReporter("123456789", model.RegimeNormalMonthly)
	require.NoError(t, err)

	tx := ereporting.NewTransaction("123456789", model.TransactionB2CDomestic, model.OperationDelivery)
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	tx.InvoiceDate = &date
	tx.TotalExclTax = decimal.RequireFromString("100.00")
	tx.VATAmount = decimal.RequireFromString("20.00")
	rate := decimal.RequireFromString("20.0")
	tx.VATRate = &rate

	sub, err := reporter.PrepareTransaction(tx)
	require.NoError(t, err)

	resp, err := conn.SubmitEReportingTransaction(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resp.SubmissionID)
	assert.Equal(t, pdp.EReportingAccepted, resp.Status)

	fetched, err := conn.GetEReportingStatus(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, pdp.EReportingAccepted, fetched.Status)

	_, err = conn.GetEReportingStatus(context.Background(), "unknown")
	assert.True(t, pdp.IsNotFound(err))

	pay, err := reporter.PreparePayment(ereporting.NewPayment(
		"123456789", date, decimal.RequireFromString("120.00"), "FA-2026-001"))
	require.NoError(t, err)

	// Payments have their own entry point
	_, err = conn.SubmitEReportingTransaction(context.Background(), pay)
	assert.True(t, pdp.IsValidation(err))

	resp, err = conn.SubmitEReportingPayment(context.Background(), pay)
	require.NoError(t, err)
	assert.Equal(t, pdp.EReportingAccepted, resp.Status)

	_, err = conn.SubmitEReportingPayment(context.Background(), sub)
	assert.True(t, pdp.IsValidation(err))
}
