package ports

import (
	"context"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// RecordSplitRequest carries the transaction facts the split recorder needs
type RecordSplitRequest struct {
	TransactionDate       time.Time
	ClientID              *string
	OriginalTransactionID *string // Reversals reuse the agreement of the transaction they reverse
	TransactionID         string
	MerchantID            string
	Currency              string
	Kind                  domain.TransactionKind
	SubtotalMinor         int64
}

// NewRecordSplitRequest builds the recorder input from a stored transaction
func NewRecordSplitRequest(txn *domain.Transaction) *RecordSplitRequest {
	return &RecordSplitRequest{
		TransactionDate:       txn.TransactionDate,
		ClientID:              txn.ClientID,
		OriginalTransactionID: txn.OriginalTransactionID,
		TransactionID:         txn.ID,
		MerchantID:            txn.MerchantID,
		Currency:              txn.Currency,
		Kind:                  txn.Kind,
		SubtotalMinor:         txn.SubtotalMinor,
	}
}

// SplitRecord is the persisted split of one transaction
type SplitRecord struct {
	Link      *domain.SplitLink
	Agreement *domain.Agreement
	Resettled []*domain.SettlementResult // Settled months rebuilt because the split changed
}

// ItemError describes the failure of one item in a batch operation
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// RecalculationResult summarizes a bulk recalculation run
type RecalculationResult struct {
	MerchantID string      `json:"merchant_id"`
	Errors     []ItemError `json:"errors,omitempty"`
	Processed  int         `json:"processed"`
	Recorded   int         `json:"recorded"`
	Skipped    int         `json:"skipped"`
	Resettled  int         `json:"resettled"`
}

// RevenueShareService defines the business operations that tie transactions to agreements
type RevenueShareService interface {
	// MatchAgreement returns the single applicable agreement, or nil when none applies
	MatchAgreement(ctx context.Context, merchantID string, date time.Time, clientID *string) (*domain.Agreement, error)

	// RecordSplit resolves the agreement, computes the split and persists it.
	// Returns nil with no error when no agreement applies.
	RecordSplit(ctx context.Context, req *RecordSplitRequest) (*SplitRecord, error)

	// OnTransactionStatusChanged persists a status change and applies its split effect
	OnTransactionStatusChanged(ctx context.Context, transactionID string, status domain.TransactionStatus) error

	// BulkRecalculate rebuilds the splits of a merchant's transactions dated in [start, end)
	BulkRecalculate(ctx context.Context, merchantID string, start, end time.Time) (*RecalculationResult, error)
}
