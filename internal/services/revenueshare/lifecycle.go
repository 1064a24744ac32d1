package revenueshare

import (
	"context"
	"fmt"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
)

// OnTransactionStatusChanged moves a transaction to a new status and applies the split effect.
//
// The status write is committed on its own; the split effect runs afterwards and its
// failures are logged, never returned, so a split problem cannot undo a status change
// the gateway already made. A repeated status is a no-op.
func (s *Service) OnTransactionStatusChanged(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	if transactionID == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "transaction_id")
	}
	if !status.IsValid() {
		return domain.ErrValidationFailed.WithDetail("status", string(status))
	}

	ctx, cancel := s.timeouts.ComplexQueryContext(ctx)
	defer cancel()

	txn, err := s.transactions.GetByID(ctx, nil, transactionID)
	if err != nil {
		return err
	}

	if txn.Status == status {
		s.logger.Debug("Transaction status unchanged",
			ports.String("transaction_id", transactionID),
			ports.String("status", string(status)),
		)
		return nil
	}

	if !txn.CanTransitionTo(status) {
		return domain.ErrTxnInvalidState.
			WithDetail("transaction_id", transactionID).
			WithDetail("from", string(txn.Status)).
			WithDetail("to", string(status))
	}

	if err := s.transactions.UpdateStatus(ctx, nil, transactionID, status); err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}

	s.logger.Info("Transaction status changed",
		ports.String("transaction_id", transactionID),
		ports.String("from", string(txn.Status)),
		ports.String("to", string(status)),
	)

	txn.Status = status
	s.applySplitEffect(ctx, txn)
	return nil
}

// applySplitEffect brings a transaction's split links in line with its status
func (s *Service) applySplitEffect(ctx context.Context, txn *domain.Transaction) {
	switch {
	case txn.Status.RemovesSplit():
		change, err := s.replaceLinks(ctx, txn, nil)
		if err != nil {
			s.logger.Error("Failed to remove split links",
				ports.String("transaction_id", txn.ID),
				ports.Err(err),
			)
			return
		}
		if change.removed > 0 {
			s.logger.Info("Split links removed",
				ports.String("transaction_id", txn.ID),
				ports.String("status", string(txn.Status)),
				ports.Int64("removed", change.removed),
				ports.Int("resettled_months", len(change.resettled)),
			)
		}

	case txn.IsCompleted():
		links, err := s.links.ListByTransaction(ctx, nil, txn.ID)
		if err != nil {
			s.logger.Error("Failed to load split links",
				ports.String("transaction_id", txn.ID),
				ports.Err(err),
			)
			return
		}
		if len(links) > 0 {
			return
		}
		if _, err := s.RecordSplit(ctx, serviceports.NewRecordSplitRequest(txn)); err != nil {
			s.logger.Error("Failed to record split for completed transaction",
				ports.String("transaction_id", txn.ID),
				ports.Err(err),
			)
		}
	}
}
