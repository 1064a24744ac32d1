package ports

import (
	"context"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// SettlementRepository defines the interface for settlement marker persistence
type SettlementRepository interface {
	// GetByPeriod returns the marker for an agreement-month, or ErrSettlementNotFound
	GetByPeriod(ctx context.Context, db DBTX, agreementID string, year, month int) (*domain.Settlement, error)

	// Create inserts the marker and its per-link adjustments. If a marker for the same
	// agreement-month already exists nothing is written and created is false.
	Create(ctx context.Context, tx DBTX, settlement *domain.Settlement, adjustments []domain.SettlementAdjustment) (created bool, err error)

	// Delete removes the marker for an agreement-month together with its adjustments
	Delete(ctx context.Context, tx DBTX, agreementID string, year, month int) (bool, error)

	// ListAdjustments returns the per-link adjustments of a settlement
	ListAdjustments(ctx context.Context, db DBTX, settlementID string) ([]domain.SettlementAdjustment, error)
}
