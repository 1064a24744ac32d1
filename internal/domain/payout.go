package domain

import (
	"time"
)

// PayoutStatus represents the payout lifecycle state
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusCompleted  PayoutStatus = "COMPLETED"
	PayoutStatusFailed     PayoutStatus = "FAILED"
	PayoutStatusCancelled  PayoutStatus = "CANCELLED"
)

// IsValid returns true for known payout statuses
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}

// PayoutMetadataAgreementID is the metadata key linking a payout to an agreement
const PayoutMetadataAgreementID = "agreement_id"

// Payout is money paid from a merchant to a partner. Only completed payouts
// count against the partner's earned share.
type Payout struct {
	ScheduledDate    time.Time         `json:"scheduled_date"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at"`
	ExternalSourceID *string           `json:"external_source_id"`
	Metadata         map[string]string `json:"metadata"`
	ID               string            `json:"id"`
	MerchantID       string            `json:"merchant_id"`
	PartnerID        string            `json:"partner_id"`
	Currency         string            `json:"currency"`
	Status           PayoutStatus      `json:"status"`
	AmountMinor      int64             `json:"amount_minor"`
}

// AgreementID returns the agreement the payout is tagged with, or "" if untagged
func (p *Payout) AgreementID() string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[PayoutMetadataAgreementID]
}

// EffectiveDate is the date a payout counts for: completion when known, otherwise the schedule
func (p *Payout) EffectiveDate() time.Time {
	if p.CompletedAt != nil {
		return *p.CompletedAt
	}
	return p.ScheduledDate
}

// Validate checks the fields every persisted payout needs
func (p *Payout) Validate() error {
	if p.MerchantID == "" {
		return ErrValidationMissingField.WithDetail("field", "merchant_id")
	}
	if p.PartnerID == "" {
		return ErrValidationMissingField.WithDetail("field", "partner_id")
	}
	if !p.Status.IsValid() {
		return ErrValidationFailed.WithDetail("status", string(p.Status))
	}
	if p.AmountMinor < 0 {
		return ErrValidationAmountInvalid.WithDetail("amount_minor", p.AmountMinor)
	}
	return nil
}

// SumPaid totals the completed payouts whose effective date falls in [from, to).
//
// With an agreement filter, payouts tagged with that agreement are counted. When none of
// the month's payouts carry that agreement's tag, untagged payouts are counted instead, so
// payouts the merchant never tagged still land against the agreement. Payouts tagged with
// other agreements never count.
func SumPaid(payouts []*Payout, from, to time.Time, agreementID string) int64 {
	var tagged, untagged int64
	var matched bool
	for _, p := range payouts {
		if p == nil || p.Status != PayoutStatusCompleted {
			continue
		}
		date := p.EffectiveDate()
		if date.Before(from) || !date.Before(to) {
			continue
		}
		tag := p.AgreementID()
		switch {
		case agreementID == "":
			untagged += p.AmountMinor
		case tag == agreementID:
			matched = true
			tagged += p.AmountMinor
		case tag == "":
			untagged += p.AmountMinor
		}
	}

	if agreementID == "" {
		return untagged
	}
	if matched {
		return tagged
	}
	return untagged
}
