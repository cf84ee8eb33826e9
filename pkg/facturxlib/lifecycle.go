package facturxlib

import (
	"github.com/rezonia/facturx-fr/internal/lifecycle"
)

// Re-export lifecycle types
type (
	Lifecycle        = lifecycle.Manager
	LifecycleEvent   = lifecycle.Event
	TransitionOption = lifecycle.TransitionOption
	TransitionError  = lifecycle.TransitionError
	Producer         = lifecycle.Producer
	StatusCategory   = lifecycle.Category
	CDARMessage      = lifecycle.Message
	CDARParty        = lifecycle.Party
)

// Re-export status producers and categories
const (
	ProducerPlatform = lifecycle.ProducerPlatform
	ProducerBuyer    = lifecycle.ProducerBuyer
	ProducerSeller   = lifecycle.ProducerSeller

	CategoryMandatory   = lifecycle.CategoryMandatory
	CategoryRecommended = lifecycle.CategoryRecommended
)

// Re-export CDAR party role codes
const (
	RoleBuyer          = lifecycle.RoleBuyer
	RoleSeller         = lifecycle.RoleSeller
	RoleBuyerPlatform  = lifecycle.RoleBuyerPlatform
	RoleSellerPlatform = lifecycle.RoleSellerPlatform
	RoleTaxAuthority   = lifecycle.RoleTaxAuthority
)

// Re-export transition options
var (
	WithReason    = lifecycle.WithReason
	WithTimestamp = lifecycle.WithTimestamp
	WithProducer  = lifecycle.WithProducer
	WithAmount    = lifecycle.WithAmount
)

// NewLifecycle starts tracking an invoice at the deposited status
func NewLifecycle(invoiceRef string, opts ...TransitionOption) *Lifecycle {
	return lifecycle.NewManager(invoiceRef, opts...)
}

// ResumeLifecycle rebuilds a tracker from a stored event history,
// replaying each transition against the status graph
func ResumeLifecycle(invoiceRef string, events []LifecycleEvent) (*Lifecycle, error) {
	return lifecycle.Resume(invoiceRef, events)
}

// StatusTransitions returns the statuses reachable from s
func StatusTransitions(s InvoiceStatus) []InvoiceStatus {
	return lifecycle.Transitions(s)
}

// CanTransition reports whether the status graph allows from to reach
// to in one step
func CanTransition(from, to InvoiceStatus) bool {
	return lifecycle.CanTransition(from, to)
}

// IsTerminalStatus reports whether s ends the lifecycle
func IsTerminalStatus(s InvoiceStatus) bool {
	return lifecycle.IsTerminal(s)
}

// IsMandatoryStatus reports whether every platform must support s
func IsMandatoryStatus(s InvoiceStatus) bool {
	return lifecycle.IsMandatory(s)
}

// StatusProducer returns the actor that normally emits s
func StatusProducer(s InvoiceStatus) Producer {
	return lifecycle.DefaultProducer(s)
}

// StatusRequiresReason reports whether a reason must accompany s
func StatusRequiresReason(s InvoiceStatus) bool {
	return lifecycle.RequiresReason(s)
}

// NewCDARMessage creates a status acknowledgement ready to be
// generated or sent
func NewCDARMessage(status InvoiceStatus, invoiceRef string, sender CDARParty) *CDARMessage {
	return lifecycle.NewMessage(status, invoiceRef, sender)
}

// GenerateCDAR renders the message as a CDAR XML document
func GenerateCDAR(msg *CDARMessage) ([]byte, error) {
	return lifecycle.GenerateCDAR(msg)
}

// ParseCDAR reads a CDAR XML document back into a message
func ParseCDAR(data []byte) (*CDARMessage, error) {
	return lifecycle.ParseCDAR(data)
}
