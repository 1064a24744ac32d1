package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayEvent_Validate(t *testing.T) {
	base := func() GatewayEvent {
		return GatewayEvent{
			OccurredAt:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Type:        GatewayEventTransaction,
			ExternalID:  "ext-1",
			Kind:        string(TransactionKindPayment),
			Status:      string(TransactionStatusCompleted),
			Currency:    "USD",
			AmountMinor: 1000,
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *GatewayEvent)
		wantErr bool
	}{
		{"valid transaction", func(*GatewayEvent) {}, false},
		{"valid payout", func(e *GatewayEvent) {
			e.Type = GatewayEventPayout
			e.Kind = ""
			e.PartnerID = "partner-1"
		}, false},
		{"missing external id", func(e *GatewayEvent) { e.ExternalID = "" }, true},
		{"negative amount", func(e *GatewayEvent) { e.AmountMinor = -5 }, true},
		{"missing timestamp", func(e *GatewayEvent) { e.OccurredAt = time.Time{} }, true},
		{"unknown type", func(e *GatewayEvent) { e.Type = "dispute" }, true},
		{"unknown transaction kind", func(e *GatewayEvent) { e.Kind = "VOID" }, true},
		{"payout without partner", func(e *GatewayEvent) {
			e.Type = GatewayEventPayout
			e.PartnerID = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := base()
			tt.mutate(&event)
			err := event.Validate()
			if tt.wantErr {
				assert.True(t, IsDomainError(err, ErrorCodeEventInvalid), "unexpected error: %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGatewayEvent_Conversions(t *testing.T) {
	occurred := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	event := GatewayEvent{
		OccurredAt:  occurred,
		ClientID:    stringPtr("client-1"),
		Type:        GatewayEventTransaction,
		ExternalID:  "ext-1",
		Kind:        string(TransactionKindRefund),
		Status:      string(TransactionStatusPending),
		Currency:    "USD",
		AmountMinor: 2500,
	}

	txn := event.ToTransaction("merchant-1")
	require.NotNil(t, txn.ExternalSourceID)
	assert.Equal(t, "ext-1", *txn.ExternalSourceID)
	assert.Equal(t, "merchant-1", txn.MerchantID)
	assert.Equal(t, TransactionKindRefund, txn.Kind)
	assert.Equal(t, TransactionStatusPending, txn.Status)
	assert.Equal(t, int64(2500), txn.SubtotalMinor)
	assert.Equal(t, occurred, txn.TransactionDate)
	assert.NoError(t, txn.Validate())

	payoutEvent := GatewayEvent{
		OccurredAt:  occurred,
		Type:        GatewayEventPayout,
		ExternalID:  "po-1",
		Status:      string(PayoutStatusCompleted),
		PartnerID:   "partner-1",
		Metadata:    map[string]string{PayoutMetadataAgreementID: "agreement-1"},
		AmountMinor: 900,
	}
	payout := payoutEvent.ToPayout("merchant-1")
	assert.Equal(t, "agreement-1", payout.AgreementID())
	assert.Equal(t, occurred, payout.EffectiveDate())
	assert.NoError(t, payout.Validate())
}
