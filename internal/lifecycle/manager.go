// Package lifecycle implements the regulator status graph invoices
// move through between deposit and collection, and the acknowledgement
// messages that carry status changes between platforms.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/model"
)

// Producer identifies which actor emits a status by default
type Producer string

const (
	ProducerPlatform Producer = "platform"
	ProducerBuyer    Producer = "buyer"
	ProducerSeller   Producer = "seller"
)

// Category splits statuses into the mandatory core every platform must
// implement and the recommended extras
type Category string

const (
	CategoryMandatory   Category = "mandatory"
	CategoryRecommended Category = "recommended"
)

// statusInfo is the per-status metadata: its category, the actor that
// normally produces it, whether a reason must accompany it, and the
// statuses reachable from it
type statusInfo struct {
	category       Category
	producer       Producer
	reasonRequired bool
	next           []model.InvoiceStatus
}

var graph = map[model.InvoiceStatus]statusInfo{
	model.StatusDeposited: {CategoryMandatory, ProducerPlatform, false,
		[]model.InvoiceStatus{model.StatusEmitted, model.StatusRejectedEmission}},
	model.StatusEmitted: {CategoryRecommended, ProducerPlatform, false,
		[]model.InvoiceStatus{model.StatusReceived, model.StatusRejectedReception}},
	model.StatusReceived: {CategoryRecommended, ProducerPlatform, false,
		[]model.InvoiceStatus{model.StatusMadeAvailable, model.StatusRejectedReception}},
	model.StatusMadeAvailable: {CategoryRecommended, ProducerPlatform, false,
		[]model.InvoiceStatus{model.StatusTakenInCharge, model.StatusRejectedReception}},
	model.StatusTakenInCharge: {CategoryRecommended, ProducerBuyer, false,
		[]model.InvoiceStatus{model.StatusApproved, model.StatusPartiallyApproved,
			model.StatusRefused, model.StatusDisputed, model.StatusSuspended}},
	model.StatusApproved: {CategoryRecommended, ProducerBuyer, false,
		[]model.InvoiceStatus{model.StatusPaymentSent, model.StatusCollected}},
	model.StatusPartiallyApproved: {CategoryRecommended, ProducerBuyer, false,
		[]model.InvoiceStatus{model.StatusPaymentSent, model.StatusRefused, model.StatusDisputed}},
	model.StatusDisputed: {CategoryRecommended, ProducerBuyer, false,
		[]model.InvoiceStatus{model.StatusApproved, model.StatusRefused, model.StatusSuspended}},
	model.StatusSuspended: {CategoryRecommended, ProducerBuyer, false,
		[]model.InvoiceStatus{model.StatusCompleted}},
	model.StatusRejectedEmission: {CategoryMandatory, ProducerPlatform, false, nil},
	model.StatusRefused:          {CategoryMandatory, ProducerBuyer, true, nil},
	model.StatusPaymentSent: {CategoryRecommended, ProducerBuyer, false,
		[]model.InvoiceStatus{model.StatusCollected}},
	model.StatusRejectedReception: {CategoryMandatory, ProducerPlatform, false, nil},
	model.StatusCollected:         {CategoryMandatory, ProducerSeller, false, nil},
	model.StatusCompleted: {CategoryRecommended, ProducerSeller, false,
		[]model.InvoiceStatus{model.StatusTakenInCharge}},
}

// Transitions returns the statuses reachable from s
func Transitions(s model.InvoiceStatus) []model.InvoiceStatus {
	info, ok := graph[s]
	if !ok {
		return nil
	}
	out := make([]model.InvoiceStatus, len(info.next))
	copy(out, info.next)
	return out
}

// CanTransition reports whether the graph has an edge from one status
// to another
func CanTransition(from, to model.InvoiceStatus) bool {
	for _, next := range graph[from].next {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions
func IsTerminal(s model.InvoiceStatus) bool {
	info, ok := graph[s]
	return ok && len(info.next) == 0
}

// IsMandatory reports whether every platform must support s
func IsMandatory(s model.InvoiceStatus) bool {
	return graph[s].category == CategoryMandatory
}

// DefaultProducer returns the actor that normally emits s
func DefaultProducer(s model.InvoiceStatus) Producer {
	return graph[s].producer
}

// RequiresReason reports whether a transition into s must carry a
// reason. Only the refusal does.
func RequiresReason(s model.InvoiceStatus) bool {
	return graph[s].reasonRequired
}

// TransitionError reports an attempted move the graph does not allow,
// or one missing required information
type TransitionError struct {
	From    model.InvoiceStatus
	To      model.InvoiceStatus
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition %d (%s) -> %d (%s): %s",
		e.From, e.From.Label(), e.To, e.To.Label(), e.Message)
}

// Event is one recorded status change
type Event struct {
	Status     model.InvoiceStatus `json:"status"`
	Timestamp  time.Time           `json:"timestamp"`
	Producer   Producer            `json:"producer"`
	Reason     string              `json:"reason,omitempty"`
	ReasonCode string              `json:"reason_code,omitempty"`
	Amount     *decimal.Decimal    `json:"amount,omitempty"`
}

// TransitionOption configures a status change
type TransitionOption func(*Event)

// WithReason attaches a reason and its code to the event
func WithReason(reason, code string) TransitionOption {
	return func(e *Event) {
		e.Reason = reason
		e.ReasonCode = code
	}
}

// WithTimestamp overrides the event time (UTC now by default)
func WithTimestamp(t time.Time) TransitionOption {
	return func(e *Event) { e.Timestamp = t }
}

// WithProducer overrides the producing actor
func WithProducer(p Producer) TransitionOption {
	return func(e *Event) { e.Producer = p }
}

// WithAmount attaches an amount, used with partial approvals and
// payment statuses
func WithAmount(amount decimal.Decimal) TransitionOption {
	return func(e *Event) { e.Amount = &amount }
}

// Manager tracks the lifecycle of one invoice reference. It is not
// safe for concurrent mutation; callers serialize per invoice.
type Manager struct {
	invoiceRef string
	current    model.InvoiceStatus
	history    []Event
}

// NewManager starts a lifecycle at deposited, recording the initial
// event
func NewManager(invoiceRef string, opts ...TransitionOption) *Manager {
	ev := Event{
		Status:    model.StatusDeposited,
		Timestamp: time.Now().UTC(),
		Producer:  ProducerPlatform,
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return &Manager{
		invoiceRef: invoiceRef,
		current:    model.StatusDeposited,
		history:    []Event{ev},
	}
}

// Resume rebuilds a manager from a recorded event history, verifying
// that the chain starts at deposited and only follows graph edges
func Resume(invoiceRef string, events []Event) (*Manager, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("cannot resume from an empty history")
	}
	if events[0].Status != model.StatusDeposited {
		return nil, &TransitionError{
			From: events[0].Status, To: events[0].Status,
			Message: "history must start at deposited",
		}
	}
	for i := 1; i < len(events); i++ {
		if !CanTransition(events[i-1].Status, events[i].Status) {
			return nil, &TransitionError{
				From: events[i-1].Status, To: events[i].Status,
				Message: "no such edge in the status graph",
			}
		}
	}
	history := make([]Event, len(events))
	copy(history, events)
	return &Manager{
		invoiceRef: invoiceRef,
		current:    history[len(history)-1].Status,
		history:    history,
	}, nil
}

// InvoiceRef returns the tracked invoice reference
func (m *Manager) InvoiceRef() string {
	return m.invoiceRef
}

// Status returns the current status
func (m *Manager) Status() model.InvoiceStatus {
	return m.current
}

// IsTerminal reports whether the lifecycle is finished
func (m *Manager) IsTerminal() bool {
	return IsTerminal(m.current)
}

// CanTransition reports whether target is reachable from the current
// status
func (m *Manager) CanTransition(target model.InvoiceStatus) bool {
	return CanTransition(m.current, target)
}

// Transition moves to target and records the event. On failure nothing
// changes: no event is appended and the status stays.
func (m *Manager) Transition(target model.InvoiceStatus, opts ...TransitionOption) (*Event, error) {
	if !target.Valid() {
		return nil, &TransitionError{From: m.current, To: target, Message: "unknown status code"}
	}
	if !CanTransition(m.current, target) {
		return nil, &TransitionError{From: m.current, To: target, Message: "no such edge in the status graph"}
	}
	ev := Event{
		Status:    target,
		Timestamp: time.Now().UTC(),
		Producer:  DefaultProducer(target),
	}
	for _, opt := range opts {
		opt(&ev)
	}
	if RequiresReason(target) && ev.Reason == "" {
		return nil, &TransitionError{From: m.current, To: target, Message: "a reason is required for this status"}
	}
	m.history = append(m.history, ev)
	m.current = target
	return &ev, nil
}

// History returns a copy of the ordered event log
func (m *Manager) History() []Event {
	out := make([]Event, len(m.history))
	copy(out, m.history)
	return out
}

// MandatoryEvents returns the history filtered to the statuses every
// platform must report
func (m *Manager) MandatoryEvents() []Event {
	var out []Event
	for _, ev := range m.history {
		if IsMandatory(ev.Status) {
			out = append(out, ev)
		}
	}
	return out
}
