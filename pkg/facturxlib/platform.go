package facturxlib

import (
	"github.com/rezonia/facturx-fr/internal/pdp"
)

// Re-export platform connector types. A Connector talks to a
// plateforme de dématérialisation partenaire (PDP), the accredited
// operator that carries invoices between trading parties.
type (
	Connector            = pdp.Connector
	MemoryConnector      = pdp.MemoryConnector
	HTTPConnector        = pdp.HTTPConnector
	PlatformEnvironment  = pdp.Environment
	HTTPOption           = pdp.HTTPOption
	Direction            = pdp.Direction
	EReportingStatus     = pdp.EReportingStatus
	SubmissionResponse   = pdp.SubmissionResponse
	LifecycleResponse    = pdp.LifecycleResponse
	StatusUpdateResponse = pdp.StatusUpdateResponse
	SearchFilters        = pdp.SearchFilters
	InvoiceSummary       = pdp.InvoiceSummary
	SearchResult         = pdp.SearchResult
	EReportingResponse   = pdp.EReportingResponse
	DirectoryEntry       = pdp.DirectoryEntry
)

// Re-export platform environments and enum values
const (
	Sandbox    = pdp.Sandbox
	Production = pdp.Production

	DirectionSent     = pdp.DirectionSent
	DirectionReceived = pdp.DirectionReceived

	EReportingAccepted = pdp.EReportingAccepted
	EReportingRejected = pdp.EReportingRejected
	EReportingPending  = pdp.EReportingPending
)

// Re-export platform error types. ValidationError keeps the model
// meaning; the platform rejection carries its own name.
type (
	AuthError               = pdp.AuthError
	PlatformValidationError = pdp.ValidationError
	NotFoundError           = pdp.NotFoundError
	ConnError               = pdp.ConnError
)

// Re-export error predicates and connector options
var (
	IsAuth       = pdp.IsAuth
	IsValidation = pdp.IsValidation
	IsNotFound   = pdp.IsNotFound
	IsConn       = pdp.IsConn

	WithHTTPClient  = pdp.WithHTTPClient
	WithBaseURL     = pdp.WithBaseURL
	WithBearerToken = pdp.WithBearerToken
	WithTimeout     = pdp.WithTimeout
)

// NewMemoryConnector creates an in-memory platform for tests and
// local development
func NewMemoryConnector() *MemoryConnector {
	return pdp.NewMemoryConnector()
}

// NewHTTPConnector creates a client for a remote platform API
func NewHTTPConnector(env PlatformEnvironment, apiKey string, opts ...HTTPOption) *HTTPConnector {
	return pdp.NewHTTPConnector(env, apiKey, opts...)
}
