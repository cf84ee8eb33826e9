package pdp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
)

// Environment selects a platform endpoint set
type Environment int

const (
	Sandbox Environment = iota
	Production
)

// BaseURL returns the API root for the environment
func (e Environment) BaseURL() string {
	switch e {
	case Production:
		return "https://api.pdp-france.fr"
	case Sandbox:
		return "https://sandbox.api.pdp-france.fr"
	}
	panic("invalid environment")
}

func (e Environment) String() string {
	switch e {
	case Production:
		return "production"
	case Sandbox:
		return "sandbox"
	}
	return "unknown"
}

// HTTPConnector talks to a platform's REST API. Authentication uses
// the API key header, or a bearer token when one is set.
type HTTPConnector struct {
	baseURL    string
	apiKey     string
	bearer     string
	httpClient *http.Client
	log        *log.Entry
}

var _ Connector = (*HTTPConnector)(nil)

// HTTPOption configures the connector
type HTTPOption func(*HTTPConnector)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) HTTPOption {
	return func(c *HTTPConnector) {
		c.httpClient = httpClient
	}
}

// WithBaseURL overrides the environment's API root, for self-hosted
// platforms and tests
func WithBaseURL(baseURL string) HTTPOption {
	return func(c *HTTPConnector) {
		c.baseURL = baseURL
	}
}

// WithBearerToken switches authentication to a bearer token
func WithBearerToken(token string) HTTPOption {
	return func(c *HTTPConnector) {
		c.bearer = token
	}
}

// WithTimeout sets the request timeout on the default HTTP client
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPConnector) {
		c.httpClient.Timeout = d
	}
}

// NewHTTPConnector creates a connector against the given environment
func NewHTTPConnector(env Environment, apiKey string, opts ...HTTPOption) *HTTPConnector {
	c := &HTTPConnector{
		baseURL: env.BaseURL(),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.WithField("component", "pdp"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type apiRequest struct {
	method   string
	path     string
	query    url.Values
	body     interface{}
	resource string
	id       string
}

type submitRequest struct {
	Invoice *model.Invoice `json:"invoice"`
	XML     []byte         `json:"xml,omitempty"`
	PDF     []byte         `json:"pdf,omitempty"`
}

type statusResponse struct {
	InvoiceID string              `json:"invoice_id"`
	Status    model.InvoiceStatus `json:"status"`
}

type statusUpdateRequest struct {
	Status     model.InvoiceStatus `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	ReasonCode string              `json:"reason_code,omitempty"`
	Amount     *decimal.Decimal    `json:"amount,omitempty"`
}

// Submit deposits an invoice on the platform
func (c *HTTPConnector) Submit(ctx context.Context, inv *model.Invoice, xmlBytes, pdfBytes []byte) (*SubmissionResponse, error) {
	if inv == nil {
		return nil, &ValidationError{Message: "no invoice given"}
	}
	var out SubmissionResponse
	err := c.call(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "/api/v1/invoices",
		body:     submitRequest{Invoice: inv, XML: xmlBytes, PDF: pdfBytes},
		resource: "invoice",
		id:       inv.Number,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStatus returns the current status of an invoice
func (c *HTTPConnector) GetStatus(ctx context.Context, invoiceID string) (model.InvoiceStatus, error) {
	var out statusResponse
	err := c.call(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/api/v1/invoices/" + url.PathEscape(invoiceID) + "/status",
		resource: "invoice",
		id:       invoiceID,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Status, nil
}

// GetLifecycle returns the full status history of an invoice
func (c *HTTPConnector) GetLifecycle(ctx context.Context, invoiceID string) (*LifecycleResponse, error) {
	var out LifecycleResponse
	err := c.call(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/api/v1/invoices/" + url.PathEscape(invoiceID) + "/lifecycle",
		resource: "invoice",
		id:       invoiceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInvoice returns the invoice XML as the platform stores it
func (c *HTTPConnector) GetInvoice(ctx context.Context, invoiceID string) ([]byte, error) {
	return c.callRaw(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/api/v1/invoices/" + url.PathEscape(invoiceID) + "/document",
		resource: "invoice",
		id:       invoiceID,
	})
}

// SearchInvoices returns the page of invoices matching the filters
func (c *HTTPConnector) SearchInvoices(ctx context.Context, filters *SearchFilters) (*SearchResult, error) {
	f := filters.withDefaults()

	query := url.Values{}
	if f.Status != nil {
		query.Set("status", strconv.Itoa(int(*f.Status)))
	}
	if f.DateFrom != nil {
		query.Set("date_from", f.DateFrom.Format("2006-01-02"))
	}
	if f.DateTo != nil {
		query.Set("date_to", f.DateTo.Format("2006-01-02"))
	}
	if f.SellerSiren != "" {
		query.Set("seller_siren", f.SellerSiren)
	}
	if f.BuyerSiren != "" {
		query.Set("buyer_siren", f.BuyerSiren)
	}
	if f.Direction != "" {
		query.Set("direction", string(f.Direction))
	}
	query.Set("page", strconv.Itoa(f.Page))
	query.Set("page_size", strconv.Itoa(f.PageSize))

	var out SearchResult
	err := c.call(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/api/v1/invoices",
		query:  query,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus asks the platform to move an invoice through its
// lifecycle
func (c *HTTPConnector) UpdateStatus(ctx context.Context, invoiceID string, status model.InvoiceStatus, opts ...lifecycle.TransitionOption) (*StatusUpdateResponse, error) {
	ev := lifecycle.Event{Status: status}
	for _, opt := range opts {
		opt(&ev)
	}

	var out StatusUpdateResponse
	err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/api/v1/invoices/" + url.PathEscape(invoiceID) + "/status",
		body: statusUpdateRequest{
			Status:     status,
			Reason:     ev.Reason,
			ReasonCode: ev.ReasonCode,
			Amount:     ev.Amount,
		},
		resource: "invoice",
		id:       invoiceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupDirectory resolves a SIREN in the central directory
func (c *HTTPConnector) LookupDirectory(ctx context.Context, siren string) (*DirectoryEntry, error) {
	var out DirectoryEntry
	err := c.call(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/api/v1/directory/" + url.PathEscape(siren),
		resource: "directory entry",
		id:       siren,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitEReportingTransaction sends transaction or aggregate data
func (c *HTTPConnector) SubmitEReportingTransaction(ctx context.Context, sub *ereporting.Submission) (*EReportingResponse, error) {
	return c.submitEReporting(ctx, "/api/v1/ereporting/transactions", sub)
}

// SubmitEReportingPayment sends payment data
func (c *HTTPConnector) SubmitEReportingPayment(ctx context.Context, sub *ereporting.Submission) (*EReportingResponse, error) {
	return c.submitEReporting(ctx, "/api/v1/ereporting/payments", sub)
}

func (c *HTTPConnector) submitEReporting(ctx context.Context, path string, sub *ereporting.Submission) (*EReportingResponse, error) {
	if sub == nil {
		return nil, &ValidationError{Message: "no submission given"}
	}
	var out EReportingResponse
	err := c.call(ctx, apiRequest{
		method:   http.MethodPost,
		path:     path,
		body:     sub,
		resource: "e-reporting submission",
		id:       sub.ID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEReportingStatus returns the processing state of a submission
func (c *HTTPConnector) GetEReportingStatus(ctx context.Context, submissionID string) (*EReportingResponse, error) {
	var out EReportingResponse
	err := c.call(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/api/v1/ereporting/submissions/" + url.PathEscape(submissionID),
		resource: "e-reporting submission",
		id:       submissionID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPConnector) call(ctx context.Context, r apiRequest, out interface{}) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp, r)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ConnError{Message: "decoding platform response", Cause: err}
		}
	}
	return nil
}

func (c *HTTPConnector) callRaw(ctx context.Context, r apiRequest) ([]byte, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.apiError(resp, r)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnError{Message: "reading platform response", Cause: err}
	}
	return data, nil
}

func (c *HTTPConnector) send(ctx context.Context, r apiRequest) (*http.Response, error) {
	var reader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, &ConnError{Message: "encoding request body", Cause: err}
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, reader)
	if err != nil {
		return nil, &ConnError{Message: "building request", Cause: err}
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	} else {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	c.log.WithFields(log.Fields{"method": r.method, "path": r.path}).Debug("calling platform")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnError{Message: "sending request", Cause: err}
	}
	return resp, nil
}

type apiErrorPayload struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// apiError maps a platform refusal onto the four-way taxonomy
func (c *HTTPConnector) apiError(resp *http.Response, r apiRequest) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var payload apiErrorPayload
	_ = json.Unmarshal(body, &payload)
	if payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Message: payload.Message}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{Message: payload.Message, Errors: payload.Errors}
	case http.StatusNotFound:
		resource := r.resource
		if resource == "" {
			resource = "resource"
		}
		return &NotFoundError{Resource: resource, ID: r.id}
	default:
		return &ConnError{Message: "platform returned status " + strconv.Itoa(resp.StatusCode)}
	}
}
