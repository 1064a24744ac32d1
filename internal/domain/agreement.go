package domain

import (
	"sort"
	"time"

	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// AgreementType represents how an agreement splits revenue
type AgreementType string

const (
	AgreementTypePercentage       AgreementType = "PERCENTAGE"
	AgreementTypeMinimumGuarantee AgreementType = "MINIMUM_GUARANTEE"
	AgreementTypeHybrid           AgreementType = "HYBRID"
)

// IsValid returns true for the agreement types the split calculator understands
func (t AgreementType) IsValid() bool {
	switch t {
	case AgreementTypePercentage, AgreementTypeMinimumGuarantee, AgreementTypeHybrid:
		return true
	}
	return false
}

// HasGuaranteeFloor returns true if settlement enforces a minimum guarantee for this type
func (t AgreementType) HasGuaranteeFloor() bool {
	return t == AgreementTypeMinimumGuarantee || t == AgreementTypeHybrid
}

// Agreement is the contractual rule defining how a merchant splits revenue with a partner.
// A nil ClientID makes the agreement global for the merchant.
type Agreement struct {
	EffectiveFrom         time.Time       `json:"effective_from"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	EffectiveTo           *time.Time      `json:"effective_to"`
	ClientID              *string         `json:"client_id"`
	MinimumGuaranteeMinor *int64          `json:"minimum_guarantee_minor"`
	PercentageRate        decimal.Decimal `json:"percentage_rate"`
	ID                    string          `json:"id"`
	MerchantID            string          `json:"merchant_id"`
	PartnerID             string          `json:"partner_id"`
	Type                  AgreementType   `json:"type"`
	Currency              string          `json:"currency"`
	Priority              int             `json:"priority"`
	IsActive              bool            `json:"is_active"`
}

// IsClientSpecific returns true if the agreement is scoped to a single client
func (a *Agreement) IsClientSpecific() bool {
	return a.ClientID != nil && *a.ClientID != ""
}

// IsEffectiveOn returns true if the date falls inside the agreement's window.
// Both ends are inclusive and compared by calendar day in UTC; a nil end is open-ended.
func (a *Agreement) IsEffectiveOn(date time.Time) bool {
	day := timeutil.StartOfDay(date)
	if day.Before(timeutil.StartOfDay(a.EffectiveFrom)) {
		return false
	}
	if a.EffectiveTo != nil && day.After(timeutil.StartOfDay(*a.EffectiveTo)) {
		return false
	}
	return true
}

// GuaranteeMinor returns the configured minimum guarantee, or zero if none
func (a *Agreement) GuaranteeMinor() int64 {
	if a.MinimumGuaranteeMinor == nil {
		return 0
	}
	return *a.MinimumGuaranteeMinor
}

// HasGuarantee returns true if settlement must enforce a floor for this agreement
func (a *Agreement) HasGuarantee() bool {
	return a.Type.HasGuaranteeFloor() && a.MinimumGuaranteeMinor != nil && *a.MinimumGuaranteeMinor > 0
}

// Validate checks the agreement configuration used by the split calculator
func (a *Agreement) Validate() error {
	if !a.Type.IsValid() {
		return ErrAgreementInvalidConfig.
			WithDetail("agreement_id", a.ID).
			WithDetail("type", string(a.Type))
	}
	if a.PercentageRate.IsNegative() || a.PercentageRate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrAgreementInvalidConfig.
			WithDetail("agreement_id", a.ID).
			WithDetail("percentage_rate", a.PercentageRate.String())
	}
	if a.MinimumGuaranteeMinor != nil && *a.MinimumGuaranteeMinor < 0 {
		return ErrAgreementInvalidConfig.
			WithDetail("agreement_id", a.ID).
			WithDetail("minimum_guarantee_minor", *a.MinimumGuaranteeMinor)
	}
	return nil
}

// appliesTo reports whether the agreement is eligible for the given merchant, date and client
func (a *Agreement) appliesTo(merchantID string, date time.Time, clientID *string) bool {
	if a.MerchantID != merchantID || !a.IsActive || !a.IsEffectiveOn(date) {
		return false
	}
	if !a.IsClientSpecific() {
		return true
	}
	return clientID != nil && *clientID == *a.ClientID
}

// RankAgreements orders agreements from most to least preferred:
// client-specific before global, then higher priority, then most recently created.
// The ID is the last tie-break so the order is total.
func RankAgreements(agreements []*Agreement) {
	sort.SliceStable(agreements, func(i, j int) bool {
		a, b := agreements[i], agreements[j]
		if a.IsClientSpecific() != b.IsClientSpecific() {
			return a.IsClientSpecific()
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// SelectAgreement filters the candidates down to the eligible pool and returns the
// top-ranked one, or nil when nothing applies. The input slice is not reordered.
func SelectAgreement(candidates []*Agreement, merchantID string, date time.Time, clientID *string) *Agreement {
	pool := make([]*Agreement, 0, len(candidates))
	for _, a := range candidates {
		if a != nil && a.appliesTo(merchantID, date, clientID) {
			pool = append(pool, a)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	RankAgreements(pool)
	return pool[0]
}
