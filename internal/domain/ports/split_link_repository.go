package ports

import (
	"context"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// EarnedFilter selects the split links that count toward a partner's earnings in a period
type EarnedFilter struct {
	Start       time.Time
	End         time.Time
	AgreementID *string
	MerchantID  string
	PartnerID   string
}

// SplitLinkRepository defines the interface for split link persistence
type SplitLinkRepository interface {
	// Upsert inserts the link or, when one exists for (transaction_id, agreement_id),
	// overwrites its shares. The stored link is returned.
	Upsert(ctx context.Context, tx DBTX, link *domain.SplitLink) (*domain.SplitLink, error)

	// DeleteByTransaction removes every link of a transaction and returns the number removed
	DeleteByTransaction(ctx context.Context, tx DBTX, transactionID string) (int64, error)

	// DeleteByTransactionExceptAgreement removes the transaction's links under any other agreement
	DeleteByTransactionExceptAgreement(ctx context.Context, tx DBTX, transactionID, agreementID string) (int64, error)

	// ListByTransaction returns the links of a transaction
	ListByTransaction(ctx context.Context, db DBTX, transactionID string) ([]*domain.SplitLink, error)

	// ListSettlementRows returns the agreement's links whose transaction is a COMPLETED PAYMENT
	// dated in [start, end). With forUpdate the rows are locked until the transaction ends.
	ListSettlementRows(ctx context.Context, tx DBTX, agreementID string, start, end time.Time, forUpdate bool) ([]domain.SettlementRow, error)

	// SumEarned returns the raw partner share and the settlement adjustments for the filter
	SumEarned(ctx context.Context, db DBTX, filter EarnedFilter) (rawPartnerMinor, adjustmentMinor int64, err error)
}
