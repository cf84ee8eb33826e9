package server_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/server"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	return server.NewServer(&server.Config{
		Address:      ":8080",
		Environment:  "test",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		Debug:        false,
	})
}

func testInvoice(t *testing.T) *model.Invoice {
	t.Helper()
	seller, err := model.NewParty("OptiPaulo SARL", "123456789")
	require.NoError(t, err)
	buyer, err := model.NewParty("LunettesPlus SA", "987654321")
	require.NoError(t, err)
	line, err := model.NewInvoiceLine("Montures optiques",
		decimal.NewFromInt(10), decimal.RequireFromString("85.00"))
	require.NoError(t, err)
	inv, err := model.NewInvoice("FA-2026-042",
		time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		*seller, *buyer, []model.InvoiceLine{*line}, model.OperationDelivery)
	require.NoError(t, err)
	return inv
}

func postJSON(t *testing.T, srv *server.Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func postRaw(t *testing.T, srv *server.Server, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/xml")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestGenerateCII(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/cii", server.GenerateRequest{
		Invoice: testInvoice(t),
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "CrossIndustryInvoice")
	assert.Contains(t, w.Body.String(), "FA-2026-042")
	assert.Contains(t, w.Body.String(), "urn:cen.eu:en16931:2017")
}

func TestGenerateCII_Profile(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/cii", server.GenerateRequest{
		Invoice: testInvoice(t),
		Profile: "basic",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "urn:factur-x.eu:1p0:basic")
}

func TestGenerateCII_UnknownProfile(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/cii", server.GenerateRequest{
		Invoice: testInvoice(t),
		Profile: "gold",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown profile")
}

func TestGenerateCII_MissingInvoice(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/cii", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateCII_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/cii",
		strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateUBL(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/ubl", server.GenerateRequest{
		Invoice: testInvoice(t),
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "<Invoice")
	assert.Contains(t, w.Body.String(), "FA-2026-042")
	assert.NotContains(t, w.Body.String(), "peppol.eu")
}

func TestGenerateUBL_Peppol(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/ubl", server.GenerateRequest{
		Invoice: testInvoice(t),
		Peppol:  true,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "urn:fdc:peppol.eu:2017:poacc:billing:3.0")
}

func TestGenerateFacturX_MissingPDF(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/generate/facturx", map[string]any{
		"invoice": testInvoice(t),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateFacturX_BadPDF(t *testing.T) {
	srv := newTestServer(t)

	// The header passes the sniff test but the container is truncated,
	// so embedding must fail.
	w := postJSON(t, srv, "/api/v1/generate/facturx", server.FacturXRequest{
		Invoice: testInvoice(t),
		PDF:     []byte("%PDF-1.7\ntruncated"),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGenerateFacturX_Multipart(t *testing.T) {
	srv := newTestServer(t)

	invoiceJSON, err := json.Marshal(testInvoice(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("pdf", "facture.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7\ntruncated"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("invoice", string(invoiceJSON)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/facturx", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	// The multipart wiring succeeds and the stub PDF fails at embedding
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGenerateFacturX_MultipartMissingInvoice(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("pdf", "facture.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/facturx", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invoice")
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	generated := postJSON(t, srv, "/api/v1/generate/cii", server.GenerateRequest{
		Invoice: testInvoice(t),
	})
	require.Equal(t, http.StatusOK, generated.Code)

	w := postRaw(t, srv, "/api/v1/validate", generated.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Valid, "findings: %v", response.Findings)
	assert.Equal(t, "cii", response.Format)
	assert.Empty(t, response.Findings)
}

func TestValidateEndpoint_UnknownRoot(t *testing.T) {
	srv := newTestServer(t)

	w := postRaw(t, srv, "/api/v1/validate", []byte(`<?xml version="1.0"?><Facture/>`))
	require.Equal(t, http.StatusOK, w.Code)

	var response server.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Valid)
	assert.Equal(t, "unknown", response.Format)
	assert.NotEmpty(t, response.Findings)
}

func TestValidateEndpoint_EmptyBody(t *testing.T) {
	srv := newTestServer(t)

	w := postRaw(t, srv, "/api/v1/validate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseEndpoint(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/generate/cii", "/api/v1/generate/ubl"} {
		generated := postJSON(t, srv, path, server.GenerateRequest{
			Invoice: testInvoice(t),
		})
		require.Equal(t, http.StatusOK, generated.Code)

		w := postRaw(t, srv, "/api/v1/parse", generated.Body.Bytes())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var response server.ParseResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.Invoice)
		assert.Equal(t, "FA-2026-042", response.Invoice.Number)
		assert.Equal(t, "123456789", response.Invoice.Seller.Siren)
	}
}

func TestParseEndpoint_Unrecognized(t *testing.T) {
	srv := newTestServer(t)

	w := postRaw(t, srv, "/api/v1/parse", []byte(`<?xml version="1.0"?><Facture/>`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestVerifyEndpoint_UnsupportedFormat(t *testing.T) {
	srv := newTestServer(t)

	w := postRaw(t, srv, "/api/v1/verify", []byte("%PDF-1.7\nnot xml"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported")
}

func TestVerifyEndpoint_NoSignature(t *testing.T) {
	srv := newTestServer(t)

	generated := postJSON(t, srv, "/api/v1/generate/cii", server.GenerateRequest{
		Invoice: testInvoice(t),
	})
	require.Equal(t, http.StatusOK, generated.Code)

	w := postRaw(t, srv, "/api/v1/verify", generated.Body.Bytes())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "signature")
}

func TestEReportingTransaction(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/ereporting/transaction", server.EReportingTransactionRequest{
		Invoice:         testInvoice(t),
		TransactionType: "b2c_domestic",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.EReportingTransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Valid, "findings: %v", response.Findings)
	require.NotNil(t, response.Transaction)
	assert.Equal(t, "123456789", response.Transaction.SellerSiren)
	assert.Equal(t, "FA-2026-042", response.Transaction.InvoiceNumber)
}

func TestEReportingTransaction_IntraEU(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/ereporting/transaction", server.EReportingTransactionRequest{
		Invoice:         testInvoice(t),
		TransactionType: "b2b_intra_eu",
		CountryCode:     "DE",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.EReportingTransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Transaction)
	assert.Equal(t, "DE", response.Transaction.CountryCode)
}

func TestEReportingTransaction_MissingCountry(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/ereporting/transaction", server.EReportingTransactionRequest{
		Invoice:         testInvoice(t),
		TransactionType: "b2b_intra_eu",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "country")
}

func TestEReportingTransaction_BadType(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/ereporting/transaction", map[string]any{
		"invoice":          testInvoice(t),
		"transaction_type": "b2x_galactic",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEReportingTransaction_BadSiren(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/api/v1/ereporting/transaction", map[string]any{
		"invoice":          testInvoice(t),
		"transaction_type": "b2c_domestic",
		"seller_siren":     "12AB56789",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLifecycleStatuses(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lifecycle/statuses", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Statuses []server.StatusInfo `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Statuses, len(model.AllStatuses))

	first := response.Statuses[0]
	assert.Equal(t, 200, first.Code)
	assert.Equal(t, "Déposée", first.Label)
	assert.Equal(t, "mandatory", first.Category)
	assert.False(t, first.Terminal)
	assert.ElementsMatch(t, []int{201, 209}, first.Transitions)

	var refused server.StatusInfo
	for _, st := range response.Statuses {
		if st.Code == 210 {
			refused = st
		}
	}
	assert.True(t, refused.Terminal)
	assert.True(t, refused.ReasonRequired)
	assert.Empty(t, refused.Transitions)
}

func TestLifecycleTransitions(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lifecycle/transitions/204", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response server.TransitionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 204, response.Code)
	assert.Equal(t, "Prise en charge", response.Label)
	assert.False(t, response.Terminal)

	codes := make([]int, 0, len(response.Transitions))
	for _, tr := range response.Transitions {
		codes = append(codes, tr.Code)
	}
	assert.ElementsMatch(t, []int{205, 206, 207, 208, 210}, codes)
}

func TestLifecycleTransitions_Unknown(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lifecycle/transitions/999", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLifecycleTransitions_NotNumeric(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lifecycle/transitions/approved", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FACTURX_ADDRESS", ":9090")
	t.Setenv("FACTURX_DEBUG", "true")
	t.Setenv("FACTURX_READ_TIMEOUT", "5s")

	cfg, err := server.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
}

func BenchmarkHealthEndpoint(b *testing.B) {
	srv := server.NewServer(&server.Config{Address: ":8080"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
	}
}

func BenchmarkGenerateCII(b *testing.B) {
	srv := server.NewServer(&server.Config{Address: ":8080"})

	seller, _ := model.NewParty("OptiPaulo SARL", "123456789")
	buyer, _ := model.NewParty("LunettesPlus SA", "987654321")
	line, _ := model.NewInvoiceLine("Montures optiques",
		decimal.NewFromInt(10), decimal.RequireFromString("85.00"))
	inv, _ := model.NewInvoice("FA-2026-042",
		time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		*seller, *buyer, []model.InvoiceLine{*line}, model.OperationDelivery)
	body, _ := json.Marshal(server.GenerateRequest{Invoice: inv})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/cii", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
	}
}
