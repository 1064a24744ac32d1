package ports

import (
	"context"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// AgreementRepository defines the interface for agreement persistence
type AgreementRepository interface {
	// Create inserts a new agreement
	Create(ctx context.Context, tx DBTX, agreement *domain.Agreement) error

	// GetByID retrieves an agreement by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Agreement, error)

	// ListCandidates returns the merchant's active agreements effective on the date that are
	// either global or scoped to the client. With a nil client only global agreements are returned.
	ListCandidates(ctx context.Context, db DBTX, merchantID string, date time.Time, clientID *string) ([]*domain.Agreement, error)

	// ListActiveInPeriod returns agreements active on at least one day of [start, end)
	ListActiveInPeriod(ctx context.Context, db DBTX, start, end time.Time) ([]*domain.Agreement, error)

	// ListByMerchantAndPartner returns all agreements between a merchant and a partner
	ListByMerchantAndPartner(ctx context.Context, db DBTX, merchantID, partnerID string) ([]*domain.Agreement, error)
}
