package ports

import (
	"context"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// Create inserts a transaction. When a transaction with the same
	// (merchant_id, external_source_id) exists nothing is written and the
	// stored row is returned with created=false.
	Create(ctx context.Context, tx DBTX, transaction *domain.Transaction) (stored *domain.Transaction, created bool, err error)

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Transaction, error)

	// GetByExternalSourceID retrieves a merchant's transaction by the gateway's id for it
	GetByExternalSourceID(ctx context.Context, db DBTX, merchantID, externalSourceID string) (*domain.Transaction, error)

	// UpdateStatus updates the status of a transaction
	UpdateStatus(ctx context.Context, tx DBTX, id string, status domain.TransactionStatus) error

	// ListByMerchantAndDateRange lists a merchant's transactions with start <= date < end, oldest first
	ListByMerchantAndDateRange(ctx context.Context, db DBTX, merchantID string, start, end time.Time) ([]*domain.Transaction, error)
}
