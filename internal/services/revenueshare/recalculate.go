package revenueshare

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
)

// BulkRecalculate rebuilds the split links of a merchant's transactions dated in [start, end),
// typically after an agreement was corrected. Completed transactions are re-split; everything
// else, and refunds that do not name the payment they reverse, end up with no links.
//
// A failing row is recorded in the result and the run moves on. Cancellation stops the run
// between rows and returns the partial result together with the context error.
func (s *Service) BulkRecalculate(ctx context.Context, merchantID string, start, end time.Time) (*serviceports.RecalculationResult, error) {
	if merchantID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	}
	if !start.Before(end) {
		return nil, domain.ErrValidationFailed.
			WithDetail("start", start.Format(time.RFC3339)).
			WithDetail("end", end.Format(time.RFC3339))
	}

	listCtx, cancel := s.timeouts.ReportQueryContext(ctx)
	transactions, err := s.transactions.ListByMerchantAndDateRange(listCtx, nil, merchantID, start, end)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	s.logger.Info("Starting bulk recalculation",
		ports.String("merchant_id", merchantID),
		ports.String("start", start.Format(time.RFC3339)),
		ports.String("end", end.Format(time.RFC3339)),
		ports.Int("transactions", len(transactions)),
	)

	result := &serviceports.RecalculationResult{MerchantID: merchantID}
	for _, txn := range transactions {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Bulk recalculation interrupted",
				ports.String("merchant_id", merchantID),
				ports.Int("processed", result.Processed),
				ports.Err(err),
			)
			return result, err
		}

		recorded, resettled, err := s.recalculateOne(ctx, txn)
		if err != nil {
			result.Errors = append(result.Errors, serviceports.ItemError{ID: txn.ID, Error: err.Error()})
			observability.RecordRecalculationRow("failed")
			s.logger.Warn("Failed to recalculate transaction",
				ports.String("transaction_id", txn.ID),
				ports.Err(err),
			)
			continue
		}

		result.Processed++
		result.Resettled += resettled
		if recorded {
			result.Recorded++
			observability.RecordRecalculationRow("processed")
		} else {
			result.Skipped++
			observability.RecordRecalculationRow("skipped")
		}
	}

	s.logger.Info("Bulk recalculation finished",
		ports.String("merchant_id", merchantID),
		ports.Int("processed", result.Processed),
		ports.Int("recorded", result.Recorded),
		ports.Int("skipped", result.Skipped),
		ports.Int("resettled", result.Resettled),
		ports.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// recalculateOne reports whether a split link exists for the transaction afterwards and
// how many settled months the change rebuilt
func (s *Service) recalculateOne(ctx context.Context, txn *domain.Transaction) (bool, int, error) {
	if !isRecalculable(txn) {
		change, err := s.replaceLinks(ctx, txn, nil)
		if err != nil {
			return false, 0, fmt.Errorf("remove split links: %w", err)
		}
		return false, len(change.resettled), nil
	}

	// RecordSplit replaces links under other agreements and clears them when nothing matches
	record, err := s.RecordSplit(ctx, serviceports.NewRecordSplitRequest(txn))
	if err != nil {
		return false, 0, err
	}
	if record == nil {
		return false, 0, nil
	}
	return true, len(record.Resettled), nil
}

func isRecalculable(txn *domain.Transaction) bool {
	if !txn.IsCompleted() {
		return false
	}
	return txn.Kind != domain.TransactionKindRefund || txn.HasOriginal()
}
