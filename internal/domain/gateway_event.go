package domain

import (
	"time"
)

// WebhookEndpoint maps the opaque endpoint id carried in a webhook URL to the
// merchant it belongs to and the secret used to sign its deliveries.
type WebhookEndpoint struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	SecretPath string    `json:"secret_path"`
	IsActive   bool      `json:"is_active"`
}

// SyncCursor is the polling position of a merchant in the gateway event feed
type SyncCursor struct {
	LastSyncedAt time.Time `json:"last_synced_at"`
	MerchantID   string    `json:"merchant_id"`
	Cursor       string    `json:"cursor"`
}

// GatewayEventType identifies the object a gateway event describes
type GatewayEventType string

const (
	GatewayEventTransaction GatewayEventType = "transaction"
	GatewayEventPayout      GatewayEventType = "payout"
)

// GatewayEvent is a normalized event from the payment gateway, delivered either by
// webhook or by polling. ExternalID is the gateway's id for the object and is the
// idempotency key on our side.
type GatewayEvent struct {
	OccurredAt         time.Time         `json:"occurred_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	ClientID           *string           `json:"client_id,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	Type               GatewayEventType  `json:"type"`
	ExternalID         string            `json:"external_id"`
	OriginalExternalID string            `json:"original_external_id,omitempty"`
	Kind               string            `json:"kind,omitempty"`
	Status             string            `json:"status"`
	Currency           string            `json:"currency"`
	PartnerID          string            `json:"partner_id,omitempty"`
	AmountMinor        int64             `json:"amount_minor"`
}

// Validate checks the fields required to ingest the event
func (e *GatewayEvent) Validate() error {
	if e.ExternalID == "" {
		return ErrEventInvalid.WithDetail("field", "external_id")
	}
	if e.AmountMinor < 0 {
		return ErrEventInvalid.WithDetail("amount_minor", e.AmountMinor)
	}
	if e.OccurredAt.IsZero() {
		return ErrEventInvalid.WithDetail("field", "occurred_at")
	}
	switch e.Type {
	case GatewayEventTransaction:
		if !TransactionKind(e.Kind).IsValid() {
			return ErrEventInvalid.WithDetail("kind", e.Kind)
		}
		if !TransactionStatus(e.Status).IsValid() {
			return ErrEventInvalid.WithDetail("status", e.Status)
		}
	case GatewayEventPayout:
		if e.PartnerID == "" {
			return ErrEventInvalid.WithDetail("field", "partner_id")
		}
		if !PayoutStatus(e.Status).IsValid() {
			return ErrEventInvalid.WithDetail("status", e.Status)
		}
	default:
		return ErrEventInvalid.WithDetail("type", string(e.Type))
	}
	return nil
}

// ToTransaction converts a transaction event into a new transaction for the merchant.
// The original transaction reference is resolved by the caller.
func (e *GatewayEvent) ToTransaction(merchantID string) *Transaction {
	externalID := e.ExternalID
	return &Transaction{
		TransactionDate:  e.OccurredAt.UTC(),
		ClientID:         e.ClientID,
		ExternalSourceID: &externalID,
		MerchantID:       merchantID,
		Kind:             TransactionKind(e.Kind),
		Status:           TransactionStatus(e.Status),
		Currency:         e.Currency,
		SubtotalMinor:    e.AmountMinor,
	}
}

// ToPayout converts a payout event into a payout for the merchant
func (e *GatewayEvent) ToPayout(merchantID string) *Payout {
	externalID := e.ExternalID
	return &Payout{
		ScheduledDate:    e.OccurredAt.UTC(),
		CompletedAt:      e.CompletedAt,
		ExternalSourceID: &externalID,
		Metadata:         e.Metadata,
		MerchantID:       merchantID,
		PartnerID:        e.PartnerID,
		Currency:         e.Currency,
		Status:           PayoutStatus(e.Status),
		AmountMinor:      e.AmountMinor,
	}
}

// EventPage is one page of the gateway event feed
type EventPage struct {
	Events     []GatewayEvent `json:"events"`
	NextCursor string         `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}
