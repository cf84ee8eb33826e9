package lifecycle_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name string
		from model.InvoiceStatus
		want []model.InvoiceStatus
	}{
		{
			name: "deposited splits into emitted or rejected",
			from: model.StatusDeposited,
			want: []model.InvoiceStatus{model.StatusEmitted, model.StatusRejectedEmission},
		},
		{
			name: "taken in charge fans out to buyer decisions",
			from: model.StatusTakenInCharge,
			want: []model.InvoiceStatus{
				model.StatusApproved, model.StatusPartiallyApproved,
				model.StatusRefused, model.StatusDisputed, model.StatusSuspended,
			},
		},
		{
			name: "completed loops back to taken in charge",
			from: model.StatusCompleted,
			want: []model.InvoiceStatus{model.StatusTakenInCharge},
		},
		{
			name: "collected is terminal",
			from: model.StatusCollected,
			want: nil,
		},
		{
			name: "refused is terminal",
			from: model.StatusRefused,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lifecycle.Transitions(tt.from)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from model.InvoiceStatus
		to   model.InvoiceStatus
		want bool
	}{
		{"deposited to emitted", model.StatusDeposited, model.StatusEmitted, true},
		{"deposited to rejected at emission", model.StatusDeposited, model.StatusRejectedEmission, true},
		{"deposited straight to approved", model.StatusDeposited, model.StatusApproved, false},
		{"received to made available", model.StatusReceived, model.StatusMadeAvailable, true},
		{"disputed back to approved", model.StatusDisputed, model.StatusApproved, true},
		{"suspended to completed", model.StatusSuspended, model.StatusCompleted, true},
		{"approved back to taken in charge", model.StatusApproved, model.StatusTakenInCharge, false},
		{"out of a terminal status", model.StatusCollected, model.StatusTakenInCharge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lifecycle.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminals := map[model.InvoiceStatus]bool{
		model.StatusRejectedEmission:  true,
		model.StatusRefused:           true,
		model.StatusRejectedReception: true,
		model.StatusCollected:         true,
	}
	for _, s := range model.AllStatuses {
		assert.Equal(t, terminals[s], lifecycle.IsTerminal(s), "status %d", s)
	}
}

func TestIsMandatory(t *testing.T) {
	mandatory := map[model.InvoiceStatus]bool{
		model.StatusDeposited:         true,
		model.StatusRejectedEmission:  true,
		model.StatusRefused:           true,
		model.StatusRejectedReception: true,
		model.StatusCollected:         true,
	}
	for _, s := range model.AllStatuses {
		assert.Equal(t, mandatory[s], lifecycle.IsMandatory(s), "status %d", s)
	}
}

func TestDefaultProducer(t *testing.T) {
	tests := []struct {
		status model.InvoiceStatus
		want   lifecycle.Producer
	}{
		{model.StatusDeposited, lifecycle.ProducerPlatform},
		{model.StatusEmitted, lifecycle.ProducerPlatform},
		{model.StatusRejectedReception, lifecycle.ProducerPlatform},
		{model.StatusTakenInCharge, lifecycle.ProducerBuyer},
		{model.StatusRefused, lifecycle.ProducerBuyer},
		{model.StatusPaymentSent, lifecycle.ProducerBuyer},
		{model.StatusCollected, lifecycle.ProducerSeller},
		{model.StatusCompleted, lifecycle.ProducerSeller},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lifecycle.DefaultProducer(tt.status), "status %d", tt.status)
	}
}

func TestRequiresReason(t *testing.T) {
	for _, s := range model.AllStatuses {
		want := s == model.StatusRefused
		assert.Equal(t, want, lifecycle.RequiresReason(s), "status %d", s)
	}
}

func TestNewManager(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0042")

	assert.Equal(t, "FA-2026-0042", m.InvoiceRef())
	assert.Equal(t, model.StatusDeposited, m.Status())
	assert.False(t, m.IsTerminal())

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusDeposited, history[0].Status)
	assert.Equal(t, lifecycle.ProducerPlatform, history[0].Producer)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestManager_ApprovalFlow(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0042")

	path := []model.InvoiceStatus{
		model.StatusEmitted,
		model.StatusReceived,
		model.StatusMadeAvailable,
		model.StatusTakenInCharge,
		model.StatusApproved,
		model.StatusPaymentSent,
		model.StatusCollected,
	}
	for _, target := range path {
		ev, err := m.Transition(target)
		require.NoError(t, err, "transition to %d", target)
		assert.Equal(t, target, ev.Status)
	}

	assert.Equal(t, model.StatusCollected, m.Status())
	assert.True(t, m.IsTerminal())
	assert.Len(t, m.History(), 8)
}

func TestManager_RefusalRequiresReason(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0107")
	for _, target := range []model.InvoiceStatus{
		model.StatusEmitted, model.StatusReceived,
		model.StatusMadeAvailable, model.StatusTakenInCharge,
	} {
		_, err := m.Transition(target)
		require.NoError(t, err)
	}

	// Without a reason the refusal is rejected and nothing moves.
	_, err := m.Transition(model.StatusRefused)
	require.Error(t, err)
	var terr *lifecycle.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, model.StatusTakenInCharge, terr.From)
	assert.Equal(t, model.StatusRefused, terr.To)
	assert.Equal(t, model.StatusTakenInCharge, m.Status())
	assert.Len(t, m.History(), 5)

	ev, err := m.Transition(model.StatusRefused,
		lifecycle.WithReason("Prestation non conforme au devis", "NON_CONFORME"))
	require.NoError(t, err)
	assert.Equal(t, "Prestation non conforme au devis", ev.Reason)
	assert.Equal(t, "NON_CONFORME", ev.ReasonCode)
	assert.Equal(t, lifecycle.ProducerBuyer, ev.Producer)
	assert.Equal(t, model.StatusRefused, m.Status())
	assert.True(t, m.IsTerminal())
}

func TestManager_InvalidTransitions(t *testing.T) {
	t.Run("skipping statuses", func(t *testing.T) {
		m := lifecycle.NewManager("FA-2026-0001")
		_, err := m.Transition(model.StatusApproved)
		var terr *lifecycle.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, model.StatusDeposited, m.Status())
	})

	t.Run("unknown status code", func(t *testing.T) {
		m := lifecycle.NewManager("FA-2026-0001")
		_, err := m.Transition(model.InvoiceStatus(999))
		var terr *lifecycle.TransitionError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("out of a terminal status", func(t *testing.T) {
		m := lifecycle.NewManager("FA-2026-0001")
		_, err := m.Transition(model.StatusRejectedEmission)
		require.NoError(t, err)
		require.True(t, m.IsTerminal())

		_, err = m.Transition(model.StatusEmitted)
		require.Error(t, err)
		assert.Equal(t, model.StatusRejectedEmission, m.Status())
	})
}

func TestManager_PartialApprovalWithAmount(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0055")
	for _, target := range []model.InvoiceStatus{
		model.StatusEmitted, model.StatusReceived,
		model.StatusMadeAvailable, model.StatusTakenInCharge,
	} {
		_, err := m.Transition(target)
		require.NoError(t, err)
	}

	approved := decimal.NewFromFloat(850.00)
	ev, err := m.Transition(model.StatusPartiallyApproved, lifecycle.WithAmount(approved))
	require.NoError(t, err)
	require.NotNil(t, ev.Amount)
	assert.True(t, ev.Amount.Equal(approved))

	// A partial approval can still settle through payment.
	_, err = m.Transition(model.StatusPaymentSent)
	require.NoError(t, err)
	_, err = m.Transition(model.StatusCollected)
	require.NoError(t, err)
	assert.True(t, m.IsTerminal())
}

func TestManager_DisputeLoop(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0099")
	for _, target := range []model.InvoiceStatus{
		model.StatusEmitted, model.StatusReceived,
		model.StatusMadeAvailable, model.StatusTakenInCharge,
		model.StatusDisputed,
	} {
		_, err := m.Transition(target)
		require.NoError(t, err)
	}

	// The dispute resolves into approval and the flow continues.
	_, err := m.Transition(model.StatusApproved)
	require.NoError(t, err)
	_, err = m.Transition(model.StatusPaymentSent)
	require.NoError(t, err)
	_, err = m.Transition(model.StatusCollected)
	require.NoError(t, err)
	assert.True(t, m.IsTerminal())
}

func TestManager_SuspensionRoundTrip(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0110")
	for _, target := range []model.InvoiceStatus{
		model.StatusEmitted, model.StatusReceived,
		model.StatusMadeAvailable, model.StatusTakenInCharge,
		model.StatusSuspended, model.StatusCompleted, model.StatusTakenInCharge,
		model.StatusApproved,
	} {
		_, err := m.Transition(target)
		require.NoError(t, err, "transition to %d", target)
	}
	assert.Equal(t, model.StatusApproved, m.Status())
}

func TestManager_HistoryIsACopy(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0001")
	_, err := m.Transition(model.StatusEmitted)
	require.NoError(t, err)

	history := m.History()
	history[0].Status = model.StatusRefused

	fresh := m.History()
	assert.Equal(t, model.StatusDeposited, fresh[0].Status)
}

func TestManager_MandatoryEvents(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0042")
	for _, target := range []model.InvoiceStatus{
		model.StatusEmitted, model.StatusReceived,
		model.StatusMadeAvailable, model.StatusTakenInCharge,
		model.StatusApproved, model.StatusPaymentSent, model.StatusCollected,
	} {
		_, err := m.Transition(target)
		require.NoError(t, err)
	}

	events := m.MandatoryEvents()
	require.Len(t, events, 2)
	assert.Equal(t, model.StatusDeposited, events[0].Status)
	assert.Equal(t, model.StatusCollected, events[1].Status)
}

func TestResume(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid history", func(t *testing.T) {
		events := []lifecycle.Event{
			{Status: model.StatusDeposited, Timestamp: now, Producer: lifecycle.ProducerPlatform},
			{Status: model.StatusEmitted, Timestamp: now.Add(time.Minute), Producer: lifecycle.ProducerPlatform},
			{Status: model.StatusReceived, Timestamp: now.Add(2 * time.Minute), Producer: lifecycle.ProducerPlatform},
		}
		m, err := lifecycle.Resume("FA-2026-0042", events)
		require.NoError(t, err)
		assert.Equal(t, model.StatusReceived, m.Status())
		assert.Len(t, m.History(), 3)

		_, err = m.Transition(model.StatusMadeAvailable)
		require.NoError(t, err)
	})

	t.Run("empty history", func(t *testing.T) {
		_, err := lifecycle.Resume("FA-2026-0042", nil)
		require.Error(t, err)
	})

	t.Run("history not starting at deposited", func(t *testing.T) {
		events := []lifecycle.Event{
			{Status: model.StatusEmitted, Timestamp: now},
		}
		_, err := lifecycle.Resume("FA-2026-0042", events)
		var terr *lifecycle.TransitionError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("history with a broken edge", func(t *testing.T) {
		events := []lifecycle.Event{
			{Status: model.StatusDeposited, Timestamp: now},
			{Status: model.StatusApproved, Timestamp: now.Add(time.Minute)},
		}
		_, err := lifecycle.Resume("FA-2026-0042", events)
		var terr *lifecycle.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, model.StatusDeposited, terr.From)
		assert.Equal(t, model.StatusApproved, terr.To)
	})
}

func TestTransitionError_Message(t *testing.T) {
	m := lifecycle.NewManager("FA-2026-0001")
	_, err := m.Transition(model.StatusCollected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Déposée")
	assert.Contains(t, err.Error(), "Encaissée")
}
