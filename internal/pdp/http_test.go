package pdp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestConnector(t *testing.T, handler http.HandlerFunc) *pdp.HTTPConnector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return pdp.NewHTTPConnector(pdp.Sandbox, "test-key", pdp.WithBaseURL(srv.URL))
}

func sampleSubmission(t *testing.T, id string) *ereporting.Submission {
	t.Helper()
	tx := ereporting.NewTransaction("123456789", model.TransactionB2CDomestic, model.OperationDelivery)
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	tx.InvoiceDate = &date
	tx.TotalExclTax = decimal.RequireFromString("100.00")
	tx.VATAmount = decimal.RequireFromString("20.00")
	rate := decimal.RequireFromString("20.0")
	tx.VATRate = &rate
	return &ereporting.Submission{
		ID:          id,
		Mode:        model.TransmissionIndividual,
		Transaction: tx,
		CreatedAt:   time.Now().UTC(),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestEnvironment(t *testing.T) {
	assert.Equal(t, "https://sandbox.api.pdp-france.fr", pdp.Sandbox.BaseURL())
	assert.Equal(t, "https://api.pdp-france.fr", pdp.Production.BaseURL())
	assert.Equal(t, "sandbox", pdp.Sandbox.String())
	assert.Equal(t, "production", pdp.Production.String())
	assert.Panics(t, func() { _ = pdp.Environment(42).BaseURL() })
}

func TestHTTPConnector_Submit(t *testing.T) {
	issued := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/invoices", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Invoice struct {
				Number string `json:"number"`
			} `json:"invoice"`
			XML []byte `json:"xml"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "FA-2026-001", req.Invoice.Number)
		assert.Equal(t, []byte("<rsm:doc/>"), req.XML)

		writeJSON(t, w, http.StatusCreated, pdp.SubmissionResponse{
			InvoiceID:   "PDP-001",
			Status:      model.StatusDeposited,
			SubmittedAt: issued,
		})
	})

	resp, err := conn.Submit(context.Background(), sampleInvoice(t, "FA-2026-001", issued), []byte("<rsm:doc/>"), nil)
	require.NoError(t, err)
	assert.Equal(t, "PDP-001", resp.InvoiceID)
	assert.Equal(t, model.StatusDeposited, resp.Status)

	_, err = conn.Submit(context.Background(), nil, nil, nil)
	assert.True(t, pdp.IsValidation(err))
}

func TestHTTPConnector_BearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-API-Key"))
		writeJSON(t, w, http.StatusOK, pdp.SearchResult{Page: 1, PageSize: 50})
	}))
	defer srv.Close()

	conn := pdp.NewHTTPConnector(pdp.Sandbox, "",
		pdp.WithBaseURL(srv.URL), pdp.WithBearerToken("secret"))
	_, err := conn.SearchInvoices(context.Background(), nil)
	require.NoError(t, err)
}

func TestHTTPConnector_GetStatus(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/invoices/PDP-001/status", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"invoice_id": "PDP-001",
			"status":     204,
		})
	})

	status, err := conn.GetStatus(context.Background(), "PDP-001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTakenInCharge, status)
}

func TestHTTPConnector_GetLifecycle(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/invoices/PDP-001/lifecycle", r.URL.Path)
		writeJSON(t, w, http.StatusOK, pdp.LifecycleResponse{
			InvoiceID:     "PDP-001",
			CurrentStatus: model.StatusApproved,
			Events: []lifecycle.Event{
				{Status: model.StatusDeposited, Producer: lifecycle.ProducerPlatform},
				{Status: model.StatusApproved, Producer: lifecycle.ProducerBuyer},
			},
		})
	})

	lc, err := conn.GetLifecycle(context.Background(), "PDP-001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, lc.CurrentStatus)
	require.Len(t, lc.Events, 2)
	assert.Equal(t, lifecycle.ProducerBuyer, lc.Events[1].Producer)
}

func TestHTTPConnector_GetInvoice(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/invoices/PDP-001/document", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte("<rsm:CrossIndustryInvoice/>"))
	})

	data, err := conn.GetInvoice(context.Background(), "PDP-001")
	require.NoError(t, err)
	assert.Equal(t, []byte("<rsm:CrossIndustryInvoice/>"), data)
}

func TestHTTPConnector_SearchInvoices(t *testing.T) {
	emitted := model.StatusEmitted
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/invoices", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "201", q.Get("status"))
		assert.Equal(t, "2026-09-01", q.Get("date_from"))
		assert.Equal(t, "123456789", q.Get("seller_siren"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("page_size"))

		writeJSON(t, w, http.StatusOK, pdp.SearchResult{
			Results: []pdp.InvoiceSummary{{
				InvoiceID:    "PDP-001",
				Number:       "FA-2026-001",
				TotalInclTax: decimal.RequireFromString("1020.00"),
				Status:       model.StatusEmitted,
				Direction:    pdp.DirectionSent,
			}},
			TotalCount: 31,
			Page:       2,
			PageSize:   25,
		})
	})

	res, err := conn.SearchInvoices(context.Background(), &pdp.SearchFilters{
		Status:      &emitted,
		DateFrom:    &from,
		SellerSiren: "123456789",
		Page:        2,
		PageSize:    25,
	})
	require.NoError(t, err)
	assert.Equal(t, 31, res.TotalCount)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].TotalInclTax.Equal(decimal.RequireFromString("1020.00")))
}

func TestHTTPConnector_UpdateStatus(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/invoices/PDP-001/status", r.URL.Path)

		var req struct {
			Status     int    `json:"status"`
			Reason     string `json:"reason"`
			ReasonCode string `json:"reason_code"`
			Amount     string `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 206, req.Status)
		assert.Equal(t, "Remise partielle", req.Reason)
		assert.Equal(t, "PARTIEL", req.ReasonCode)
		assert.Equal(t, "850", req.Amount)

		writeJSON(t, w, http.StatusOK, pdp.StatusUpdateResponse{
			InvoiceID: "PDP-001",
			Status:    model.StatusPartiallyApproved,
			UpdatedAt: time.Now().UTC(),
		})
	})

	resp, err := conn.UpdateStatus(context.Background(), "PDP-001", model.StatusPartiallyApproved,
		lifecycle.WithReason("Remise partielle", "PARTIEL"),
		lifecycle.WithAmount(decimal.RequireFromString("850")))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartiallyApproved, resp.Status)
}

func TestHTTPConnector_LookupDirectory(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/directory/123456789", r.URL.Path)
		writeJSON(t, w, http.StatusOK, pdp.DirectoryEntry{
			Siren:       "123456789",
			CompanyName: "OptiPaulo SARL",
			PlatformID:  "PDP-0042",
		})
	})

	entry, err := conn.LookupDirectory(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Equal(t, "OptiPaulo SARL", entry.CompanyName)
}

func TestHTTPConnector_EReporting(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/ereporting/transactions":
			assert.Equal(t, http.MethodPost, r.Method)
			var req struct {
				ID   string `json:"submission_id"`
				Mode string `json:"transmission_mode"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "SUB-1", req.ID)
			assert.Equal(t, "individual", req.Mode)
			writeJSON(t, w, http.StatusAccepted, pdp.EReportingResponse{
				SubmissionID: "SUB-1",
				Status:       pdp.EReportingPending,
			})
		case "/api/v1/ereporting/submissions/SUB-1":
			writeJSON(t, w, http.StatusOK, pdp.EReportingResponse{
				SubmissionID: "SUB-1",
				Status:       pdp.EReportingAccepted,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sub := sampleSubmission(t, "SUB-1")
	resp, err := conn.SubmitEReportingTransaction(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, pdp.EReportingPending, resp.Status)

	fetched, err := conn.GetEReportingStatus(context.Background(), "SUB-1")
	require.NoError(t, err)
	assert.Equal(t, pdp.EReportingAccepted, fetched.Status)

	_, err = conn.SubmitEReportingTransaction(context.Background(), nil)
	assert.True(t, pdp.IsValidation(err))
}

func TestHTTPConnector_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 is an auth error",
			status: http.StatusUnauthorized,
			body:   `{"message":"invalid API key"}`,
			check: func(t *testing.T, err error) {
				require.True(t, pdp.IsAuth(err))
				assert.Contains(t, err.Error(), "invalid API key")
			},
		},
		{
			name:   "403 is an auth error",
			status: http.StatusForbidden,
			body:   `{"message":"not allowed for this SIREN"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, pdp.IsAuth(err))
			},
		},
		{
			name:   "422 carries the refusal reasons",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"invoice rejected","errors":["BT-31 missing","total mismatch"]}`,
			check: func(t *testing.T, err error) {
				var verr *pdp.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "invoice rejected", verr.Message)
				assert.Equal(t, []string{"BT-31 missing", "total mismatch"}, verr.Errors)
			},
		},
		{
			name:   "400 is a validation error",
			status: http.StatusBadRequest,
			body:   `{"message":"malformed request"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, pdp.IsValidation(err))
			},
		},
		{
			name:   "404 names the missing resource",
			status: http.StatusNotFound,
			body:   `{"message":"no such invoice"}`,
			check: func(t *testing.T, err error) {
				var nerr *pdp.NotFoundError
				require.ErrorAs(t, err, &nerr)
				assert.Equal(t, "invoice", nerr.Resource)
				assert.Equal(t, "PDP-404", nerr.ID)
			},
		},
		{
			name:   "500 is a connection error",
			status: http.StatusInternalServerError,
			body:   `boom`,
			check: func(t *testing.T, err error) {
				require.True(t, pdp.IsConn(err))
				assert.Contains(t, err.Error(), "500")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := conn.GetStatus(context.Background(), "PDP-404")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestHTTPConnector_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	conn := pdp.NewHTTPConnector(pdp.Sandbox, "test-key", pdp.WithBaseURL(srv.URL))
	_, err := conn.GetStatus(context.Background(), "PDP-001")
	require.True(t, pdp.IsConn(err))

	var cerr *pdp.ConnError
	require.ErrorAs(t, err, &cerr)
	assert.Error(t, cerr.Unwrap())
}

func TestHTTPConnector_MalformedResponse(t *testing.T) {
	conn := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	})

	_, err := conn.GetLifecycle(context.Background(), "PDP-001")
	assert.True(t, pdp.IsConn(err))
}
