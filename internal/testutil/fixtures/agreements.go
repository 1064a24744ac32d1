package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/shopspring/decimal"
)

// AgreementBuilder provides fluent API for building test agreements.
type AgreementBuilder struct {
	agreement *domain.Agreement
}

// NewAgreement creates an active, global 10% percentage agreement effective from 2024-01-01.
func NewAgreement() *AgreementBuilder {
	created := Date(2024, time.January, 1)
	return &AgreementBuilder{
		agreement: &domain.Agreement{
			EffectiveFrom:  created,
			CreatedAt:      created,
			UpdatedAt:      created,
			PercentageRate: decimal.RequireFromString("0.10"),
			ID:             uuid.NewString(),
			MerchantID:     "merchant-1",
			PartnerID:      "partner-1",
			Type:           domain.AgreementTypePercentage,
			Currency:       "USD",
			IsActive:       true,
		},
	}
}

func (b *AgreementBuilder) WithID(id string) *AgreementBuilder {
	b.agreement.ID = id
	return b
}

func (b *AgreementBuilder) WithMerchantID(merchantID string) *AgreementBuilder {
	b.agreement.MerchantID = merchantID
	return b
}

func (b *AgreementBuilder) WithPartnerID(partnerID string) *AgreementBuilder {
	b.agreement.PartnerID = partnerID
	return b
}

func (b *AgreementBuilder) WithClientID(clientID string) *AgreementBuilder {
	b.agreement.ClientID = &clientID
	return b
}

func (b *AgreementBuilder) WithRate(rate string) *AgreementBuilder {
	b.agreement.PercentageRate = decimal.RequireFromString(rate)
	return b
}

// WithMinimumGuarantee turns the agreement into a MINIMUM_GUARANTEE agreement with the floor
func (b *AgreementBuilder) WithMinimumGuarantee(minor int64) *AgreementBuilder {
	b.agreement.Type = domain.AgreementTypeMinimumGuarantee
	b.agreement.MinimumGuaranteeMinor = &minor
	return b
}

func (b *AgreementBuilder) WithType(t domain.AgreementType) *AgreementBuilder {
	b.agreement.Type = t
	return b
}

func (b *AgreementBuilder) WithPriority(priority int) *AgreementBuilder {
	b.agreement.Priority = priority
	return b
}

func (b *AgreementBuilder) WithEffective(from time.Time, to *time.Time) *AgreementBuilder {
	b.agreement.EffectiveFrom = from
	b.agreement.EffectiveTo = to
	return b
}

func (b *AgreementBuilder) WithCreatedAt(createdAt time.Time) *AgreementBuilder {
	b.agreement.CreatedAt = createdAt
	return b
}

func (b *AgreementBuilder) Inactive() *AgreementBuilder {
	b.agreement.IsActive = false
	return b
}

func (b *AgreementBuilder) Build() *domain.Agreement {
	return b.agreement
}
