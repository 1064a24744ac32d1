package revenueshare

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

// MatchAgreement returns the agreement that governs a merchant's transaction on the date.
// The repository narrows the pool to active, effective, global-or-client agreements; the
// ranking itself is domain.SelectAgreement. No agreement is not an error.
func (s *Service) MatchAgreement(ctx context.Context, merchantID string, date time.Time, clientID *string) (*domain.Agreement, error) {
	if merchantID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	}
	if date.IsZero() {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "date")
	}

	ctx, cancel := s.timeouts.SimpleQueryContext(ctx)
	defer cancel()

	return s.matchAgreement(ctx, nil, merchantID, date, clientID)
}

func (s *Service) matchAgreement(ctx context.Context, db ports.DBTX, merchantID string, date time.Time, clientID *string) (*domain.Agreement, error) {
	if clientID != nil && *clientID == "" {
		clientID = nil
	}

	candidates, err := s.agreements.ListCandidates(ctx, db, merchantID, date, clientID)
	if err != nil {
		return nil, fmt.Errorf("list candidate agreements: %w", err)
	}

	agreement := domain.SelectAgreement(candidates, merchantID, date, clientID)
	if agreement != nil && len(candidates) > 1 {
		s.logger.Debug("Resolved agreement among several candidates",
			ports.String("merchant_id", merchantID),
			ports.String("agreement_id", agreement.ID),
			ports.Int("candidates", len(candidates)),
		)
	}
	return agreement, nil
}
