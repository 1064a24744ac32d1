package domain

import (
	"time"

	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// SettlementOutcome describes what a settlement run did for an agreement-month
type SettlementOutcome string

const (
	// SettlementOutcomeNoAdjustment means the guarantee was met or the agreement has none
	SettlementOutcomeNoAdjustment SettlementOutcome = "NO_ADJUSTMENT"
	// SettlementOutcomeAdjusted means a true-up was distributed across the month's links
	SettlementOutcomeAdjusted SettlementOutcome = "ADJUSTED"
	// SettlementOutcomeAlreadyApplied means the month was settled before; nothing was written
	SettlementOutcomeAlreadyApplied SettlementOutcome = "ALREADY_APPLIED"
	// SettlementOutcomeUndistributable means a guarantee is owed but there is no revenue to attribute it to
	SettlementOutcomeUndistributable SettlementOutcome = "UNDISTRIBUTABLE"
)

// Settlement is the persisted marker of an applied settlement for one agreement-month.
// Its existence makes the period terminal until it is explicitly reverted.
type Settlement struct {
	SettledAt              time.Time `json:"settled_at"`
	ID                     string    `json:"id"`
	AgreementID            string    `json:"agreement_id"`
	Year                   int       `json:"year"`
	Month                  int       `json:"month"`
	RawPartnerShareMinor   int64     `json:"raw_partner_share_minor"`
	RawMerchantShareMinor  int64     `json:"raw_merchant_share_minor"`
	MinimumGuaranteeMinor  int64     `json:"minimum_guarantee_minor"`
	AdjustmentMinor        int64     `json:"adjustment_minor"`
	FinalPartnerShareMinor int64     `json:"final_partner_share_minor"`
	TransactionCount       int       `json:"transaction_count"`
}

// SettlementAdjustment is the share of a month's true-up attributed to one split link.
// The link's raw shares are never rewritten; readers add the adjustment to the partner
// share and subtract it from the merchant share.
type SettlementAdjustment struct {
	SettlementID    string `json:"settlement_id"`
	SplitLinkID     string `json:"split_link_id"`
	AdjustmentMinor int64  `json:"adjustment_minor"`
}

// SettlementRow is one split link eligible for settlement, with the date of its transaction
type SettlementRow struct {
	TransactionDate    time.Time `json:"transaction_date"`
	SplitLinkID        string    `json:"split_link_id"`
	TransactionID      string    `json:"transaction_id"`
	PartnerShareMinor  int64     `json:"partner_share_minor"`
	MerchantShareMinor int64     `json:"merchant_share_minor"`
}

// SettlementResult summarizes a settlement computation for an agreement-month
type SettlementResult struct {
	SettledAt              *time.Time             `json:"settled_at,omitempty"`
	AgreementID            string                 `json:"agreement_id"`
	Outcome                SettlementOutcome      `json:"outcome"`
	Adjustments            []SettlementAdjustment `json:"adjustments,omitempty"`
	Year                   int                    `json:"year"`
	Month                  int                    `json:"month"`
	RawPartnerShareMinor   int64                  `json:"raw_partner_share_minor"`
	RawMerchantShareMinor  int64                  `json:"raw_merchant_share_minor"`
	MinimumGuaranteeMinor  int64                  `json:"minimum_guarantee_minor"`
	AdjustmentMinor        int64                  `json:"adjustment_minor"`
	FinalPartnerShareMinor int64                  `json:"final_partner_share_minor"`
	TransactionCount       int                    `json:"transaction_count"`
}

// ToSettlement converts a computed result into the marker that gets persisted
func (r *SettlementResult) ToSettlement(id string, settledAt time.Time) *Settlement {
	return &Settlement{
		SettledAt:              settledAt,
		ID:                     id,
		AgreementID:            r.AgreementID,
		Year:                   r.Year,
		Month:                  r.Month,
		RawPartnerShareMinor:   r.RawPartnerShareMinor,
		RawMerchantShareMinor:  r.RawMerchantShareMinor,
		MinimumGuaranteeMinor:  r.MinimumGuaranteeMinor,
		AdjustmentMinor:        r.AdjustmentMinor,
		FinalPartnerShareMinor: r.FinalPartnerShareMinor,
		TransactionCount:       r.TransactionCount,
	}
}

// ResultFromSettlement rebuilds a result from a stored marker
func ResultFromSettlement(s *Settlement, outcome SettlementOutcome) *SettlementResult {
	settledAt := s.SettledAt
	return &SettlementResult{
		SettledAt:              &settledAt,
		AgreementID:            s.AgreementID,
		Outcome:                outcome,
		Year:                   s.Year,
		Month:                  s.Month,
		RawPartnerShareMinor:   s.RawPartnerShareMinor,
		RawMerchantShareMinor:  s.RawMerchantShareMinor,
		MinimumGuaranteeMinor:  s.MinimumGuaranteeMinor,
		AdjustmentMinor:        s.AdjustmentMinor,
		FinalPartnerShareMinor: s.FinalPartnerShareMinor,
		TransactionCount:       s.TransactionCount,
	}
}

// ValidatePeriod checks that year and month identify a calendar month
func ValidatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return ErrSettlementPeriodInvalid.WithDetail("month", month)
	}
	if year < 1970 || year > 9999 {
		return ErrSettlementPeriodInvalid.WithDetail("year", year)
	}
	return nil
}

// MonthRange returns the half-open UTC interval [start, end) covering the month
func MonthRange(year, month int) (time.Time, time.Time) {
	return timeutil.MonthBounds(year, time.Month(month))
}

// ComputeSettlement aggregates the month's rows for an agreement and, when a guarantee
// floor is not met, distributes the shortfall across the rows. It performs no I/O.
func ComputeSettlement(agreement *Agreement, rows []SettlementRow, year, month int) *SettlementResult {
	result := &SettlementResult{
		AgreementID:      agreement.ID,
		Outcome:          SettlementOutcomeNoAdjustment,
		Year:             year,
		Month:            month,
		TransactionCount: len(rows),
	}

	for _, row := range rows {
		result.RawPartnerShareMinor += row.PartnerShareMinor
		result.RawMerchantShareMinor += row.MerchantShareMinor
	}
	result.FinalPartnerShareMinor = result.RawPartnerShareMinor

	if !agreement.HasGuarantee() {
		return result
	}

	guarantee := agreement.GuaranteeMinor()
	result.MinimumGuaranteeMinor = guarantee
	if result.RawPartnerShareMinor >= guarantee {
		return result
	}

	result.AdjustmentMinor = guarantee - result.RawPartnerShareMinor
	result.FinalPartnerShareMinor = guarantee

	if result.RawPartnerShareMinor == 0 {
		result.Outcome = SettlementOutcomeUndistributable
		return result
	}

	result.Adjustments = DistributeAdjustment(rows, result.AdjustmentMinor)
	result.Outcome = SettlementOutcomeAdjusted
	return result
}

// DistributeAdjustment splits an adjustment across rows proportionally to each row's
// partner share: row = round_half_even(adjustment * share / total). Whatever rounding
// leaves over (positive or negative) goes to the row with the largest partner share,
// earliest transaction first on ties, so the pieces always sum to the adjustment.
// Rows without a partner share receive nothing. The total partner share must be positive.
func DistributeAdjustment(rows []SettlementRow, adjustmentMinor int64) []SettlementAdjustment {
	var total int64
	for _, row := range rows {
		total += row.PartnerShareMinor
	}
	if total <= 0 || adjustmentMinor == 0 {
		return nil
	}

	adjustments := make([]SettlementAdjustment, 0, len(rows))
	amount := decimal.NewFromInt(adjustmentMinor)
	denominator := decimal.NewFromInt(total)

	var distributed int64
	largest := -1
	var largestRow SettlementRow
	for _, row := range rows {
		if row.PartnerShareMinor <= 0 {
			continue
		}
		share := amount.Mul(decimal.NewFromInt(row.PartnerShareMinor)).Div(denominator).RoundBank(0).IntPart()
		distributed += share
		adjustments = append(adjustments, SettlementAdjustment{
			SplitLinkID:     row.SplitLinkID,
			AdjustmentMinor: share,
		})
		if largest < 0 || isLargerRow(row, largestRow) {
			largest = len(adjustments) - 1
			largestRow = row
		}
	}

	if residual := adjustmentMinor - distributed; residual != 0 && largest >= 0 {
		adjustments[largest].AdjustmentMinor += residual
	}
	return adjustments
}

func isLargerRow(candidate, current SettlementRow) bool {
	if candidate.PartnerShareMinor != current.PartnerShareMinor {
		return candidate.PartnerShareMinor > current.PartnerShareMinor
	}
	if !candidate.TransactionDate.Equal(current.TransactionDate) {
		return candidate.TransactionDate.Before(current.TransactionDate)
	}
	return candidate.SplitLinkID < current.SplitLinkID
}
