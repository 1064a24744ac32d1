package fixtures

import (
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// TransactionEvent builds a completed payment event dated 2024-03-15
func TransactionEvent(externalID string, amountMinor int64) domain.GatewayEvent {
	return domain.GatewayEvent{
		OccurredAt:  Date(2024, time.March, 15),
		Type:        domain.GatewayEventTransaction,
		ExternalID:  externalID,
		Kind:        string(domain.TransactionKindPayment),
		Status:      string(domain.TransactionStatusCompleted),
		Currency:    "USD",
		AmountMinor: amountMinor,
	}
}

// RefundEvent builds a completed refund event reversing originalExternalID
func RefundEvent(externalID, originalExternalID string, amountMinor int64) domain.GatewayEvent {
	e := TransactionEvent(externalID, amountMinor)
	e.Kind = string(domain.TransactionKindRefund)
	e.OriginalExternalID = originalExternalID
	return e
}

// PayoutEvent builds a completed payout event to partner-1
func PayoutEvent(externalID string, amountMinor int64) domain.GatewayEvent {
	completed := Date(2024, time.March, 20)
	return domain.GatewayEvent{
		OccurredAt:  completed,
		CompletedAt: &completed,
		Type:        domain.GatewayEventPayout,
		ExternalID:  externalID,
		Status:      string(domain.PayoutStatusCompleted),
		Currency:    "USD",
		PartnerID:   "partner-1",
		AmountMinor: amountMinor,
	}
}
