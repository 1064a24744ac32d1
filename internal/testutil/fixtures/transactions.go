package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// TransactionBuilder provides fluent API for building test transactions.
type TransactionBuilder struct {
	transaction *domain.Transaction
}

// NewTransaction creates a completed USD 100.00 payment for merchant-1 on 2024-03-15.
func NewTransaction() *TransactionBuilder {
	date := Date(2024, time.March, 15)
	return &TransactionBuilder{
		transaction: &domain.Transaction{
			TransactionDate: date,
			CreatedAt:       date,
			UpdatedAt:       date,
			ID:              uuid.NewString(),
			MerchantID:      "merchant-1",
			Kind:            domain.TransactionKindPayment,
			Status:          domain.TransactionStatusCompleted,
			Currency:        "USD",
			SubtotalMinor:   10000,
		},
	}
}

func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.transaction.ID = id
	return b
}

func (b *TransactionBuilder) WithMerchantID(merchantID string) *TransactionBuilder {
	b.transaction.MerchantID = merchantID
	return b
}

func (b *TransactionBuilder) WithClientID(clientID string) *TransactionBuilder {
	b.transaction.ClientID = &clientID
	return b
}

func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.transaction.TransactionDate = date
	return b
}

func (b *TransactionBuilder) WithSubtotal(minor int64) *TransactionBuilder {
	b.transaction.SubtotalMinor = minor
	return b
}

func (b *TransactionBuilder) WithKind(kind domain.TransactionKind) *TransactionBuilder {
	b.transaction.Kind = kind
	return b
}

func (b *TransactionBuilder) WithStatus(status domain.TransactionStatus) *TransactionBuilder {
	b.transaction.Status = status
	return b
}

func (b *TransactionBuilder) WithExternalID(externalID string) *TransactionBuilder {
	b.transaction.ExternalSourceID = &externalID
	return b
}

// AsRefundOf makes the transaction a refund of original
func (b *TransactionBuilder) AsRefundOf(originalID string) *TransactionBuilder {
	b.transaction.Kind = domain.TransactionKindRefund
	b.transaction.OriginalTransactionID = &originalID
	return b
}

func (b *TransactionBuilder) Build() *domain.Transaction {
	return b.transaction
}
