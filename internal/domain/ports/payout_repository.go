package ports

import (
	"context"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// PayoutRepository defines the interface for payout persistence
type PayoutRepository interface {
	// UpsertByExternalID inserts the payout or updates the stored one with the same
	// (merchant_id, external_source_id). created reports whether a new row was inserted.
	UpsertByExternalID(ctx context.Context, tx DBTX, payout *domain.Payout) (stored *domain.Payout, created bool, err error)

	// ListCompleted returns the COMPLETED payouts from merchant to partner whose completion
	// date (scheduled date when completion is missing) falls in [start, end)
	ListCompleted(ctx context.Context, db DBTX, merchantID, partnerID string, start, end time.Time) ([]*domain.Payout, error)
}
