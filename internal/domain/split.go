package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationMethod labels how a split link's shares were computed
type CalculationMethod string

const (
	CalculationMethodPercentage       CalculationMethod = "percentage"
	CalculationMethodMinimumGuarantee CalculationMethod = "minimum_guarantee_deferred"
	CalculationMethodHybrid           CalculationMethod = "hybrid_deferred"
)

// SplitLink is the persisted partner/merchant share of one transaction under one agreement.
// (TransactionID, AgreementID) is unique. Shares are absolute values; a reversal is
// identified by its transaction kind, not by a negative share.
type SplitLink struct {
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	ID                 string            `json:"id"`
	TransactionID      string            `json:"transaction_id"`
	AgreementID        string            `json:"agreement_id"`
	CalculationMethod  CalculationMethod `json:"calculation_method"`
	PartnerShareMinor  int64             `json:"partner_share_minor"`
	MerchantShareMinor int64             `json:"merchant_share_minor"`
}

// SplitResult is the output of the split calculator
type SplitResult struct {
	Method             CalculationMethod `json:"method"`
	PartnerShareMinor  int64             `json:"partner_share_minor"`
	MerchantShareMinor int64             `json:"merchant_share_minor"`
}

// Total returns the sum of both shares
func (r SplitResult) Total() int64 {
	return r.PartnerShareMinor + r.MerchantShareMinor
}

// EffectiveSubtotal returns the signed subtotal: negative for reversals, positive for payments
func EffectiveSubtotal(subtotalMinor int64, kind TransactionKind) int64 {
	if kind.IsReversal() {
		return -subtotalMinor
	}
	return subtotalMinor
}

// CalculateSplit computes the transaction-level partner and merchant shares.
//
// All agreement types use the percentage rate at transaction level; minimum guarantees
// are only enforced by monthly settlement. The partner share is rounded half to even,
// which is symmetric in sign, and the merchant share takes the remainder so that
// partner + merchant always equals |effective subtotal|.
func CalculateSplit(agreement *Agreement, subtotalMinor int64, kind TransactionKind) (SplitResult, error) {
	if agreement == nil {
		return SplitResult{}, ErrValidationMissingField.WithDetail("field", "agreement")
	}
	if err := agreement.Validate(); err != nil {
		return SplitResult{}, err
	}
	if subtotalMinor < 0 {
		return SplitResult{}, ErrValidationAmountInvalid.WithDetail("subtotal_minor", subtotalMinor)
	}
	if !kind.IsValid() {
		return SplitResult{}, ErrValidationFailed.WithDetail("kind", string(kind))
	}

	var method CalculationMethod
	switch agreement.Type {
	case AgreementTypePercentage:
		method = CalculationMethodPercentage
	case AgreementTypeMinimumGuarantee:
		method = CalculationMethodMinimumGuarantee
	case AgreementTypeHybrid:
		method = CalculationMethodHybrid
	default:
		return SplitResult{}, ErrAgreementInvalidConfig.WithDetail("type", string(agreement.Type))
	}

	effective := EffectiveSubtotal(subtotalMinor, kind)
	partner := decimal.NewFromInt(effective).Mul(agreement.PercentageRate).RoundBank(0).IntPart()
	merchant := effective - partner

	return SplitResult{
		Method:             method,
		PartnerShareMinor:  absInt64(partner),
		MerchantShareMinor: absInt64(merchant),
	}, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
