package revenueshare

import (
	"context"
	"fmt"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
)

const methodNone = "none"

// RecordSplit resolves the transaction's agreement, computes the split and stores it.
//
// A transaction has at most one split link: links under other agreements are removed
// in the same database transaction that upserts the current one, and a transaction
// that no longer matches any agreement loses its links. Settled months touched by the
// change are settled again in that transaction and listed in the record.
func (s *Service) RecordSplit(ctx context.Context, req *serviceports.RecordSplitRequest) (*serviceports.SplitRecord, error) {
	if err := validateRecordSplitRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.timeouts.ComplexQueryContext(ctx)
	defer cancel()

	agreement, err := s.resolveAgreement(ctx, req)
	if err != nil {
		observability.RecordSplit(methodNone, "failed", string(req.Kind), req.Currency, 0)
		return nil, err
	}

	target := &domain.Transaction{ID: req.TransactionID, Kind: req.Kind, TransactionDate: req.TransactionDate}

	if agreement == nil {
		change, err := s.replaceLinks(ctx, target, nil)
		if err != nil {
			return nil, fmt.Errorf("remove stale split links: %w", err)
		}
		s.logger.Info("No agreement applies to transaction",
			ports.String("transaction_id", req.TransactionID),
			ports.String("merchant_id", req.MerchantID),
			ports.Int64("removed_links", change.removed),
			ports.Int("resettled_months", len(change.resettled)),
		)
		observability.RecordSplit(methodNone, "no_agreement", string(req.Kind), req.Currency, 0)
		return nil, nil
	}

	split, err := domain.CalculateSplit(agreement, req.SubtotalMinor, req.Kind)
	if err != nil {
		s.logger.Error("Agreement cannot split transaction",
			ports.String("transaction_id", req.TransactionID),
			ports.String("agreement_id", agreement.ID),
			ports.Err(err),
		)
		observability.RecordSplit(string(agreement.Type), "failed", string(req.Kind), req.Currency, 0)
		return nil, err
	}

	change, err := s.replaceLinks(ctx, target, &domain.SplitLink{
		TransactionID:      req.TransactionID,
		AgreementID:        agreement.ID,
		CalculationMethod:  split.Method,
		PartnerShareMinor:  split.PartnerShareMinor,
		MerchantShareMinor: split.MerchantShareMinor,
	})
	if err != nil {
		observability.RecordSplit(string(split.Method), "failed", string(req.Kind), req.Currency, 0)
		return nil, err
	}

	s.logger.Info("Split recorded",
		ports.String("transaction_id", req.TransactionID),
		ports.String("agreement_id", agreement.ID),
		ports.String("method", string(split.Method)),
		ports.Int64("partner_share_minor", split.PartnerShareMinor),
		ports.Int64("merchant_share_minor", split.MerchantShareMinor),
	)
	observability.RecordSplit(string(split.Method), "recorded", string(req.Kind), req.Currency, split.PartnerShareMinor)

	return &serviceports.SplitRecord{Link: change.stored, Agreement: agreement, Resettled: change.resettled}, nil
}

// resolveAgreement reuses the reversed payment's agreement when the reversal names its
// original and that original was split. Otherwise the matcher decides by date and client.
func (s *Service) resolveAgreement(ctx context.Context, req *serviceports.RecordSplitRequest) (*domain.Agreement, error) {
	if req.Kind.IsReversal() && req.OriginalTransactionID != nil && *req.OriginalTransactionID != "" {
		links, err := s.links.ListByTransaction(ctx, nil, *req.OriginalTransactionID)
		if err != nil {
			return nil, fmt.Errorf("list links of original transaction: %w", err)
		}
		if len(links) > 0 {
			agreement, err := s.agreements.GetByID(ctx, nil, links[0].AgreementID)
			if err != nil {
				return nil, fmt.Errorf("load agreement of original transaction: %w", err)
			}
			return agreement, nil
		}
		s.logger.Debug("Original transaction has no split, matching reversal by date",
			ports.String("transaction_id", req.TransactionID),
			ports.String("original_transaction_id", *req.OriginalTransactionID),
		)
	}

	return s.matchAgreement(ctx, nil, req.MerchantID, req.TransactionDate, req.ClientID)
}

func validateRecordSplitRequest(req *serviceports.RecordSplitRequest) error {
	switch {
	case req == nil:
		return domain.ErrValidationMissingField.WithDetail("field", "request")
	case req.TransactionID == "":
		return domain.ErrValidationMissingField.WithDetail("field", "transaction_id")
	case req.MerchantID == "":
		return domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	case req.TransactionDate.IsZero():
		return domain.ErrValidationMissingField.WithDetail("field", "transaction_date")
	case !req.Kind.IsValid():
		return domain.ErrValidationFailed.WithDetail("kind", string(req.Kind))
	case req.SubtotalMinor < 0:
		return domain.ErrValidationAmountInvalid.WithDetail("subtotal_minor", req.SubtotalMinor)
	}
	return nil
}
