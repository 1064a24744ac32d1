package ports

import (
	"context"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// WebhookEndpointRepository defines the interface for webhook endpoint lookups
type WebhookEndpointRepository interface {
	// GetByID retrieves an endpoint by the id carried in its URL
	GetByID(ctx context.Context, db DBTX, id string) (*domain.WebhookEndpoint, error)

	// ListActiveMerchantIDs returns the merchants with at least one active endpoint
	ListActiveMerchantIDs(ctx context.Context, db DBTX) ([]string, error)
}

// SyncCursorRepository defines the interface for per-merchant polling positions
type SyncCursorRepository interface {
	// Get returns the merchant's cursor, or nil when the merchant has never synced
	Get(ctx context.Context, db DBTX, merchantID string) (*domain.SyncCursor, error)

	// Save stores the merchant's cursor
	Save(ctx context.Context, tx DBTX, cursor *domain.SyncCursor) error
}
