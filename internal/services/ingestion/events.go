package ingestion

import (
	"context"
	"fmt"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
)

type eventOutcome string

const (
	outcomeCreated   eventOutcome = "created"
	outcomeUpdated   eventOutcome = "updated"
	outcomeDuplicate eventOutcome = "duplicate"
	outcomeFailed    eventOutcome = "failed"
)

// IngestEvents stores a merchant's gateway events in order.
//
// Transactions and payouts are keyed by the gateway's id, so replaying a batch changes
// nothing. A failing event is collected and the batch continues; cancellation stops the
// batch between events and returns the partial result with the context error.
func (s *Service) IngestEvents(ctx context.Context, merchantID, source string, events []domain.GatewayEvent) (*serviceports.IngestResult, error) {
	if merchantID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	}

	result := &serviceports.IngestResult{Received: len(events)}
	for i := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		event := &events[i]
		outcome, err := s.ingestEvent(ctx, merchantID, event)
		if err != nil {
			outcome = outcomeFailed
			result.Errors = append(result.Errors, serviceports.ItemError{ID: event.ExternalID, Error: err.Error()})
			s.logger.Warn("Failed to ingest gateway event",
				ports.String("merchant_id", merchantID),
				ports.String("source", source),
				ports.String("external_id", event.ExternalID),
				ports.String("type", string(event.Type)),
				ports.Err(err),
			)
		}
		observability.RecordIngestedEvent(source, string(event.Type), string(outcome))

		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeUpdated:
			result.Updated++
		case outcomeDuplicate:
			result.Duplicates++
		case outcomeFailed:
			result.Failed++
		}
	}

	s.logger.Info("Gateway events ingested",
		ports.String("merchant_id", merchantID),
		ports.String("source", source),
		ports.Int("received", result.Received),
		ports.Int("created", result.Created),
		ports.Int("updated", result.Updated),
		ports.Int("duplicates", result.Duplicates),
		ports.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) ingestEvent(ctx context.Context, merchantID string, event *domain.GatewayEvent) (eventOutcome, error) {
	if err := event.Validate(); err != nil {
		return outcomeFailed, err
	}

	switch event.Type {
	case domain.GatewayEventTransaction:
		return s.ingestTransaction(ctx, merchantID, event)
	case domain.GatewayEventPayout:
		return s.ingestPayout(ctx, merchantID, event)
	}
	return outcomeFailed, domain.ErrEventInvalid.WithDetail("type", string(event.Type))
}

// ingestTransaction inserts a new transaction or moves a known one to the event's status.
// Split failures are logged by the revenue share service and never fail the write.
func (s *Service) ingestTransaction(ctx context.Context, merchantID string, event *domain.GatewayEvent) (eventOutcome, error) {
	ctx, cancel := s.timeouts.ComplexQueryContext(ctx)
	defer cancel()

	txn := event.ToTransaction(merchantID)
	if txn.Kind.IsReversal() && event.OriginalExternalID != "" {
		originalID, err := s.resolveOriginal(ctx, merchantID, event)
		if err != nil {
			return outcomeFailed, err
		}
		txn.OriginalTransactionID = originalID
	}

	stored, created, err := s.transactions.Create(ctx, nil, txn)
	if err != nil {
		return outcomeFailed, fmt.Errorf("store transaction: %w", err)
	}

	if created {
		if stored.IsCompleted() {
			if _, err := s.revenueShare.RecordSplit(ctx, serviceports.NewRecordSplitRequest(stored)); err != nil {
				s.logger.Error("Failed to record split for ingested transaction",
					ports.String("transaction_id", stored.ID),
					ports.String("external_id", event.ExternalID),
					ports.Err(err),
				)
			}
		}
		return outcomeCreated, nil
	}

	if stored.Status == txn.Status {
		return outcomeDuplicate, nil
	}

	err = s.revenueShare.OnTransactionStatusChanged(ctx, stored.ID, txn.Status)
	if domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState) {
		// Events can arrive out of order; an older status never overrides a newer one
		s.logger.Warn("Ignoring out of order transaction status",
			ports.String("transaction_id", stored.ID),
			ports.String("stored_status", string(stored.Status)),
			ports.String("event_status", string(txn.Status)),
		)
		return outcomeDuplicate, nil
	}
	if err != nil {
		return outcomeFailed, fmt.Errorf("apply status change: %w", err)
	}
	return outcomeUpdated, nil
}

// resolveOriginal maps the reversed payment's gateway id to our id. A reversal whose
// original was never ingested is stored without the reference.
func (s *Service) resolveOriginal(ctx context.Context, merchantID string, event *domain.GatewayEvent) (*string, error) {
	original, err := s.transactions.GetByExternalSourceID(ctx, nil, merchantID, event.OriginalExternalID)
	if domain.IsNotFoundError(err) {
		s.logger.Warn("Original transaction of reversal not found",
			ports.String("merchant_id", merchantID),
			ports.String("external_id", event.ExternalID),
			ports.String("original_external_id", event.OriginalExternalID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve original transaction: %w", err)
	}
	id := original.ID
	return &id, nil
}

func (s *Service) ingestPayout(ctx context.Context, merchantID string, event *domain.GatewayEvent) (eventOutcome, error) {
	ctx, cancel := s.timeouts.SimpleQueryContext(ctx)
	defer cancel()

	payout := event.ToPayout(merchantID)
	if err := payout.Validate(); err != nil {
		return outcomeFailed, err
	}

	_, created, err := s.payouts.UpsertByExternalID(ctx, nil, payout)
	if err != nil {
		return outcomeFailed, fmt.Errorf("store payout: %w", err)
	}
	if created {
		return outcomeCreated, nil
	}
	return outcomeUpdated, nil
}
