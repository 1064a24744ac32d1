package domain

import (
	"time"
)

// TransactionKind represents the direction of money movement
type TransactionKind string

const (
	TransactionKindPayment    TransactionKind = "PAYMENT"
	TransactionKindRefund     TransactionKind = "REFUND"
	TransactionKindChargeback TransactionKind = "CHARGEBACK"
)

// IsValid returns true for known transaction kinds
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindPayment, TransactionKindRefund, TransactionKindChargeback:
		return true
	}
	return false
}

// IsReversal returns true for kinds that give money back (refunds and chargebacks)
func (k TransactionKind) IsReversal() bool {
	return k == TransactionKindRefund || k == TransactionKindChargeback
}

// TransactionStatus represents the transaction lifecycle state
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// IsValid returns true for known transaction statuses
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// RemovesSplit returns true for statuses under which a transaction no longer represents revenue
func (s TransactionStatus) RemovesSplit() bool {
	return s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// allowedTransitions lists the status changes the split lifecycle accepts.
// A completed transaction can still be cancelled or fail (e.g. a late gateway reversal).
var allowedTransitions = map[TransactionStatus]map[TransactionStatus]bool{
	TransactionStatusPending: {
		TransactionStatusCompleted: true,
		TransactionStatusFailed:    true,
		TransactionStatusCancelled: true,
	},
	TransactionStatusCompleted: {
		TransactionStatusFailed:    true,
		TransactionStatusCancelled: true,
	},
}

// Transaction represents a merchant transaction subject to revenue sharing.
// SubtotalMinor is tax excluded and always stored non-negative; Kind carries the direction.
type Transaction struct {
	TransactionDate       time.Time         `json:"transaction_date"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	ClientID              *string           `json:"client_id"`
	ExternalSourceID      *string           `json:"external_source_id"`
	OriginalTransactionID *string           `json:"original_transaction_id"`
	ID                    string            `json:"id"`
	MerchantID            string            `json:"merchant_id"`
	Kind                  TransactionKind   `json:"kind"`
	Status                TransactionStatus `json:"status"`
	Currency              string            `json:"currency"`
	SubtotalMinor         int64             `json:"subtotal_minor"`
}

// CanTransitionTo returns true if the lifecycle accepts moving to the given status.
// Staying in the same status is always accepted and treated as a no-op by callers.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	if t.Status == next {
		return true
	}
	return allowedTransitions[t.Status][next]
}

// IsCompleted returns true if the transaction represents realized revenue
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// HasOriginal returns true if a reversal references the transaction it reverses
func (t *Transaction) HasOriginal() bool {
	return t.OriginalTransactionID != nil && *t.OriginalTransactionID != ""
}

// Validate checks the fields every persisted transaction needs
func (t *Transaction) Validate() error {
	if t.MerchantID == "" {
		return ErrValidationMissingField.WithDetail("field", "merchant_id")
	}
	if !t.Kind.IsValid() {
		return ErrValidationFailed.WithDetail("kind", string(t.Kind))
	}
	if !t.Status.IsValid() {
		return ErrValidationFailed.WithDetail("status", string(t.Status))
	}
	if t.SubtotalMinor < 0 {
		return ErrValidationAmountInvalid.WithDetail("subtotal_minor", t.SubtotalMinor)
	}
	if t.TransactionDate.IsZero() {
		return ErrValidationMissingField.WithDetail("field", "transaction_date")
	}
	return nil
}
