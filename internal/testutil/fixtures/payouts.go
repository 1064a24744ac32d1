package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// PayoutBuilder provides fluent API for building test payouts.
type PayoutBuilder struct {
	payout *domain.Payout
}

// NewPayout creates a completed, untagged USD 50.00 payout from merchant-1 to partner-1
// completed on 2024-03-20.
func NewPayout() *PayoutBuilder {
	date := Date(2024, time.March, 20)
	return &PayoutBuilder{
		payout: &domain.Payout{
			ScheduledDate: date,
			CompletedAt:   TimePtr(date),
			ID:            uuid.NewString(),
			MerchantID:    "merchant-1",
			PartnerID:     "partner-1",
			Currency:      "USD",
			Status:        domain.PayoutStatusCompleted,
			AmountMinor:   5000,
		},
	}
}

func (b *PayoutBuilder) WithAmount(minor int64) *PayoutBuilder {
	b.payout.AmountMinor = minor
	return b
}

func (b *PayoutBuilder) WithStatus(status domain.PayoutStatus) *PayoutBuilder {
	b.payout.Status = status
	return b
}

func (b *PayoutBuilder) WithCompletedAt(completedAt *time.Time) *PayoutBuilder {
	b.payout.CompletedAt = completedAt
	return b
}

func (b *PayoutBuilder) WithScheduledDate(date time.Time) *PayoutBuilder {
	b.payout.ScheduledDate = date
	return b
}

// ForAgreement tags the payout with an agreement id
func (b *PayoutBuilder) ForAgreement(agreementID string) *PayoutBuilder {
	b.payout.Metadata = map[string]string{domain.PayoutMetadataAgreementID: agreementID}
	return b
}

func (b *PayoutBuilder) WithExternalID(externalID string) *PayoutBuilder {
	b.payout.ExternalSourceID = &externalID
	return b
}

func (b *PayoutBuilder) Build() *domain.Payout {
	return b.payout
}
