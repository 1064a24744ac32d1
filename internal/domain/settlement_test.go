package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settlementRows(shares ...int64) []SettlementRow {
	rows := make([]SettlementRow, len(shares))
	for i, share := range shares {
		rows[i] = SettlementRow{
			TransactionDate:    day(2025, time.March, i+1),
			SplitLinkID:        fmt.Sprintf("link-%d", i+1),
			TransactionID:      fmt.Sprintf("txn-%d", i+1),
			PartnerShareMinor:  share,
			MerchantShareMinor: share * 4,
		}
	}
	return rows
}

func adjustmentsByLink(adjustments []SettlementAdjustment) map[string]int64 {
	out := make(map[string]int64, len(adjustments))
	for _, adj := range adjustments {
		out[adj.SplitLinkID] = adj.AdjustmentMinor
	}
	return out
}

func guaranteed(guarantee int64) *Agreement {
	return newAgreement("agreement-1", func(a *Agreement) {
		a.Type = AgreementTypeMinimumGuarantee
		a.MinimumGuaranteeMinor = int64Ptr(guarantee)
	})
}

// TestComputeSettlement tests the outcomes of a month's settlement
func TestComputeSettlement(t *testing.T) {
	tests := []struct {
		name               string
		agreement          *Agreement
		rows               []SettlementRow
		expectedOutcome    SettlementOutcome
		expectedRaw        int64
		expectedAdjustment int64
		expectedFinal      int64
	}{
		{
			name:            "percentage agreement never adjusts",
			agreement:       newAgreement("agreement-1", nil),
			rows:            settlementRows(100, 200),
			expectedOutcome: SettlementOutcomeNoAdjustment,
			expectedRaw:     300,
			expectedFinal:   300,
		},
		{
			name:            "guarantee met",
			agreement:       guaranteed(25000),
			rows:            settlementRows(10000, 15000),
			expectedOutcome: SettlementOutcomeNoAdjustment,
			expectedRaw:     25000,
			expectedFinal:   25000,
		},
		{
			name:               "guarantee shortfall is distributed",
			agreement:          guaranteed(50000),
			rows:               settlementRows(10000, 15000, 5000),
			expectedOutcome:    SettlementOutcomeAdjusted,
			expectedRaw:        30000,
			expectedAdjustment: 20000,
			expectedFinal:      50000,
		},
		{
			name:               "guarantee with no revenue is undistributable",
			agreement:          guaranteed(50000),
			rows:               nil,
			expectedOutcome:    SettlementOutcomeUndistributable,
			expectedAdjustment: 50000,
			expectedFinal:      50000,
		},
		{
			name: "hybrid without guarantee amount behaves like percentage",
			agreement: newAgreement("agreement-1", func(a *Agreement) {
				a.Type = AgreementTypeHybrid
			}),
			rows:            settlementRows(10),
			expectedOutcome: SettlementOutcomeNoAdjustment,
			expectedRaw:     10,
			expectedFinal:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeSettlement(tt.agreement, tt.rows, 2025, 3)

			assert.Equal(t, tt.expectedOutcome, result.Outcome)
			assert.Equal(t, tt.expectedRaw, result.RawPartnerShareMinor)
			assert.Equal(t, tt.expectedAdjustment, result.AdjustmentMinor)
			assert.Equal(t, tt.expectedFinal, result.FinalPartnerShareMinor)
			assert.Equal(t, len(tt.rows), result.TransactionCount)

			if result.Outcome == SettlementOutcomeAdjusted {
				var sum int64
				for _, adj := range result.Adjustments {
					sum += adj.AdjustmentMinor
				}
				assert.Equal(t, result.AdjustmentMinor, sum)
			} else {
				assert.Empty(t, result.Adjustments)
			}
		})
	}
}

// TestDistributeAdjustment_ProportionalScenario tests the documented three-row example
func TestDistributeAdjustment_ProportionalScenario(t *testing.T) {
	adjustments := DistributeAdjustment(settlementRows(10000, 15000, 5000), 20000)

	byLink := adjustmentsByLink(adjustments)
	assert.Equal(t, int64(6667), byLink["link-1"])
	assert.Equal(t, int64(10000), byLink["link-2"])
	assert.Equal(t, int64(3333), byLink["link-3"])
}

// TestDistributeAdjustment_Residual tests that rounding leftovers land on the largest row
func TestDistributeAdjustment_Residual(t *testing.T) {
	tests := []struct {
		name       string
		shares     []int64
		adjustment int64
		expected   map[string]int64
	}{
		{
			name:       "three equal rows absorb one extra unit on the earliest",
			shares:     []int64{100, 100, 100},
			adjustment: 100,
			expected:   map[string]int64{"link-1": 34, "link-2": 33, "link-3": 33},
		},
		{
			name:       "largest row takes residual",
			shares:     []int64{1, 1, 5},
			adjustment: 10,
			expected:   map[string]int64{"link-1": 1, "link-2": 1, "link-3": 8},
		},
		{
			name:       "single row takes everything",
			shares:     []int64{42},
			adjustment: 999,
			expected:   map[string]int64{"link-1": 999},
		},
		{
			name:       "rows without partner share receive nothing",
			shares:     []int64{0, 300},
			adjustment: 700,
			expected:   map[string]int64{"link-2": 700},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adjustments := DistributeAdjustment(settlementRows(tt.shares...), tt.adjustment)
			require.Len(t, adjustments, len(tt.expected))
			assert.Equal(t, tt.expected, adjustmentsByLink(adjustments))
		})
	}
}

// TestDistributeAdjustment_SumsExactly tests conservation across many shapes
func TestDistributeAdjustment_SumsExactly(t *testing.T) {
	shapes := [][]int64{
		{1, 2, 3, 4, 5, 6, 7},
		{333, 333, 334},
		{1, 99999},
		{7, 7, 7, 7, 7, 7},
		{12345, 678, 9, 10111},
	}
	adjustments := []int64{1, 2, 17, 1000, 99999, 123457}

	for _, shape := range shapes {
		for _, adjustment := range adjustments {
			distributed := DistributeAdjustment(settlementRows(shape...), adjustment)
			var sum int64
			for _, adj := range distributed {
				sum += adj.AdjustmentMinor
			}
			assert.Equal(t, adjustment, sum, "shape=%v adjustment=%d", shape, adjustment)
		}
	}
}

func TestDistributeAdjustment_Degenerate(t *testing.T) {
	assert.Nil(t, DistributeAdjustment(nil, 100))
	assert.Nil(t, DistributeAdjustment(settlementRows(0, 0), 100))
	assert.Nil(t, DistributeAdjustment(settlementRows(10), 0))
}

func TestValidatePeriod(t *testing.T) {
	assert.NoError(t, ValidatePeriod(2025, 1))
	assert.NoError(t, ValidatePeriod(2025, 12))
	assert.True(t, IsDomainError(ValidatePeriod(2025, 0), ErrorCodeSettlementPeriodInvalid))
	assert.True(t, IsDomainError(ValidatePeriod(2025, 13), ErrorCodeSettlementPeriodInvalid))
	assert.True(t, IsDomainError(ValidatePeriod(1900, 5), ErrorCodeSettlementPeriodInvalid))
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, 2)
	assert.Equal(t, day(2024, time.February, 1), start)
	assert.Equal(t, day(2024, time.March, 1), end)
}

func TestSettlementResult_RoundTrip(t *testing.T) {
	result := ComputeSettlement(guaranteed(50000), settlementRows(10000, 15000, 5000), 2025, 3)
	settledAt := day(2025, time.April, 1)

	marker := result.ToSettlement("settlement-1", settledAt)
	restored := ResultFromSettlement(marker, SettlementOutcomeAlreadyApplied)

	assert.Equal(t, SettlementOutcomeAlreadyApplied, restored.Outcome)
	assert.Equal(t, result.AdjustmentMinor, restored.AdjustmentMinor)
	assert.Equal(t, result.FinalPartnerShareMinor, restored.FinalPartnerShareMinor)
	require.NotNil(t, restored.SettledAt)
	assert.Equal(t, settledAt, *restored.SettledAt)
}
