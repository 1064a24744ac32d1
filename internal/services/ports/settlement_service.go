package ports

import (
	"context"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	domainports "github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

// BatchSettlementResult summarizes settling every agreement active in a month
type BatchSettlementResult struct {
	Results        []*domain.SettlementResult `json:"results"`
	Errors         []ItemError                `json:"errors,omitempty"`
	Year           int                        `json:"year"`
	Month          int                        `json:"month"`
	Adjusted       int                        `json:"adjusted"`
	NoAdjustment   int                        `json:"no_adjustment"`
	AlreadyApplied int                        `json:"already_applied"`
	Undistributed  int                        `json:"undistributable"`
}

// SettlementService defines the monthly minimum-guarantee settlement operations
type SettlementService interface {
	// SettleMonth settles one agreement-month. Settling an applied month returns
	// the stored result with outcome ALREADY_APPLIED and writes nothing.
	SettleMonth(ctx context.Context, agreementID string, year, month int) (*domain.SettlementResult, error)

	// SettleAllAgreements settles every agreement active in the month independently
	SettleAllAgreements(ctx context.Context, year, month int) (*BatchSettlementResult, error)

	// RevertMonth removes an applied settlement so the month can be settled again
	RevertMonth(ctx context.Context, agreementID string, year, month int) error
}

// SettlementRebuilder keeps applied months consistent with their split links. Both
// methods run inside the caller's database transaction, so a split change and the
// rebuilt settlement commit together.
type SettlementRebuilder interface {
	// ReopenMonth deletes an applied marker and its adjustments; false when none existed
	ReopenMonth(ctx context.Context, tx domainports.DBTX, agreementID string, year, month int) (bool, error)

	// ResettleMonth settles the month again from its current links
	ResettleMonth(ctx context.Context, tx domainports.DBTX, agreementID string, year, month int) (*domain.SettlementResult, error)
}
