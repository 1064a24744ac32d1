package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

// Service implements serviceports.SettlementService
type Service struct {
	db          ports.DBPort
	timeouts    ports.QueryTimeouts
	agreements  ports.AgreementRepository
	links       ports.SplitLinkRepository
	settlements ports.SettlementRepository
	logger      ports.Logger
	now         func() time.Time
}

var (
	_ serviceports.SettlementService   = (*Service)(nil)
	_ serviceports.SettlementRebuilder = (*Service)(nil)
)

// NewService creates a new settlement service
func NewService(
	db ports.DBPort,
	timeouts ports.QueryTimeouts,
	agreements ports.AgreementRepository,
	links ports.SplitLinkRepository,
	settlements ports.SettlementRepository,
	logger ports.Logger,
) *Service {
	return &Service{
		db:          db,
		timeouts:    timeouts,
		agreements:  agreements,
		links:       links,
		settlements: settlements,
		logger:      logger,
		now:         timeutil.Now,
	}
}

// SettleMonth enforces an agreement's minimum guarantee for one month.
//
// Everything happens in one database transaction: the month's eligible link rows are
// locked, an existing marker short-circuits to ALREADY_APPLIED, and otherwise the marker
// and its per-link adjustments are written together. The unique marker decides between
// concurrent runs; the loser reports ALREADY_APPLIED with the winner's figures.
// A guarantee owed against a month with no partner revenue is reported as
// UNDISTRIBUTABLE and nothing is written, so the month can settle once revenue exists.
func (s *Service) SettleMonth(ctx context.Context, agreementID string, year, month int) (*domain.SettlementResult, error) {
	if agreementID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "agreement_id")
	}
	if err := domain.ValidatePeriod(year, month); err != nil {
		return nil, err
	}

	startTime := time.Now()
	result, err := s.settleMonth(ctx, agreementID, year, month)
	elapsed := time.Since(startTime)
	if err != nil {
		observability.RecordSettlement("FAILED", 0, elapsed.Seconds())
		s.logger.Error("Settlement failed",
			ports.String("agreement_id", agreementID),
			ports.Int("year", year),
			ports.Int("month", month),
			ports.Err(err),
		)
		return nil, err
	}

	observability.RecordSettlement(string(result.Outcome), result.AdjustmentMinor, elapsed.Seconds())

	fields := []ports.Field{
		ports.String("agreement_id", agreementID),
		ports.Int("year", year),
		ports.Int("month", month),
		ports.String("outcome", string(result.Outcome)),
		ports.Int64("raw_partner_share_minor", result.RawPartnerShareMinor),
		ports.Int64("adjustment_minor", result.AdjustmentMinor),
		ports.Int("transactions", result.TransactionCount),
		ports.Duration("elapsed", elapsed),
	}
	if result.Outcome == domain.SettlementOutcomeUndistributable {
		s.logger.Warn("Minimum guarantee owed with no revenue to distribute", fields...)
	} else {
		s.logger.Info("Settlement processed", fields...)
	}
	return result, nil
}

func (s *Service) settleMonth(ctx context.Context, agreementID string, year, month int) (*domain.SettlementResult, error) {
	ctx, cancel := s.timeouts.ComplexQueryContext(ctx)
	defer cancel()

	agreement, err := s.agreements.GetByID(ctx, nil, agreementID)
	if err != nil {
		return nil, err
	}

	var result *domain.SettlementResult
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		result, err = s.settleInTx(ctx, tx, agreement, year, month)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settleInTx locks the month's rows and writes the marker unless one exists
func (s *Service) settleInTx(ctx context.Context, tx ports.DBTX, agreement *domain.Agreement, year, month int) (*domain.SettlementResult, error) {
	start, end := domain.MonthRange(year, month)

	rows, err := s.links.ListSettlementRows(ctx, tx, agreement.ID, start, end, true)
	if err != nil {
		return nil, fmt.Errorf("lock settlement rows: %w", err)
	}

	applied, err := s.appliedResult(ctx, tx, agreement.ID, year, month)
	if err != nil || applied != nil {
		return applied, err
	}

	computed := domain.ComputeSettlement(agreement, rows, year, month)
	if computed.Outcome == domain.SettlementOutcomeUndistributable {
		return computed, nil
	}

	settledAt := s.now().UTC()
	marker := computed.ToSettlement("", settledAt)
	created, err := s.settlements.Create(ctx, tx, marker, computed.Adjustments)
	if err != nil {
		return nil, fmt.Errorf("persist settlement: %w", err)
	}
	if !created {
		applied, err := s.appliedResult(ctx, tx, agreement.ID, year, month)
		if err != nil {
			return nil, err
		}
		if applied == nil {
			return nil, fmt.Errorf("settlement marker conflict for agreement %s %04d-%02d", agreement.ID, year, month)
		}
		return applied, nil
	}

	for i := range computed.Adjustments {
		computed.Adjustments[i].SettlementID = marker.ID
	}
	computed.SettledAt = &settledAt
	return computed, nil
}

// ReopenMonth deletes an applied marker and its adjustments inside the caller's transaction
func (s *Service) ReopenMonth(ctx context.Context, tx ports.DBTX, agreementID string, year, month int) (bool, error) {
	deleted, err := s.settlements.Delete(ctx, tx, agreementID, year, month)
	if err != nil {
		return false, fmt.Errorf("reopen settlement: %w", err)
	}
	return deleted, nil
}

// ResettleMonth settles a reopened month again from its current split links, inside the
// caller's transaction. An UNDISTRIBUTABLE outcome leaves the month open.
func (s *Service) ResettleMonth(ctx context.Context, tx ports.DBTX, agreementID string, year, month int) (*domain.SettlementResult, error) {
	agreement, err := s.agreements.GetByID(ctx, tx, agreementID)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	result, err := s.settleInTx(ctx, tx, agreement, year, month)
	if err != nil {
		observability.RecordSettlement("FAILED", 0, time.Since(startTime).Seconds())
		return nil, err
	}
	observability.RecordSettlement(string(result.Outcome), result.AdjustmentMinor, time.Since(startTime).Seconds())

	s.logger.Info("Settled month rebuilt after its split links changed",
		ports.String("agreement_id", agreementID),
		ports.Int("year", year),
		ports.Int("month", month),
		ports.String("outcome", string(result.Outcome)),
		ports.Int64("raw_partner_share_minor", result.RawPartnerShareMinor),
		ports.Int64("adjustment_minor", result.AdjustmentMinor),
	)
	return result, nil
}

// appliedResult returns the stored result of an applied month, or nil when the month is open
func (s *Service) appliedResult(ctx context.Context, tx ports.DBTX, agreementID string, year, month int) (*domain.SettlementResult, error) {
	existing, err := s.settlements.GetByPeriod(ctx, tx, agreementID, year, month)
	if domain.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settlement marker: %w", err)
	}

	result := domain.ResultFromSettlement(existing, domain.SettlementOutcomeAlreadyApplied)
	adjustments, err := s.settlements.ListAdjustments(ctx, tx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("load settlement adjustments: %w", err)
	}
	result.Adjustments = adjustments
	return result, nil
}

// SettleAllAgreements settles every agreement active on at least one day of the month.
// Each agreement settles in its own database transaction; a failure is collected and
// the batch continues. Cancellation stops the batch between agreements.
func (s *Service) SettleAllAgreements(ctx context.Context, year, month int) (*serviceports.BatchSettlementResult, error) {
	if err := domain.ValidatePeriod(year, month); err != nil {
		return nil, err
	}

	start, end := domain.MonthRange(year, month)
	listCtx, cancel := s.timeouts.ReportQueryContext(ctx)
	agreements, err := s.agreements.ListActiveInPeriod(listCtx, nil, start, end)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list agreements active in period: %w", err)
	}

	s.logger.Info("Starting batch settlement",
		ports.Int("year", year),
		ports.Int("month", month),
		ports.Int("agreements", len(agreements)),
	)

	batch := &serviceports.BatchSettlementResult{Year: year, Month: month}
	for _, agreement := range agreements {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Batch settlement interrupted",
				ports.Int("settled", len(batch.Results)),
				ports.Err(err),
			)
			return batch, err
		}

		result, err := s.SettleMonth(ctx, agreement.ID, year, month)
		if err != nil {
			batch.Errors = append(batch.Errors, serviceports.ItemError{ID: agreement.ID, Error: err.Error()})
			continue
		}

		batch.Results = append(batch.Results, result)
		switch result.Outcome {
		case domain.SettlementOutcomeAdjusted:
			batch.Adjusted++
		case domain.SettlementOutcomeNoAdjustment:
			batch.NoAdjustment++
		case domain.SettlementOutcomeAlreadyApplied:
			batch.AlreadyApplied++
		case domain.SettlementOutcomeUndistributable:
			batch.Undistributed++
			undistributable := domain.ErrGuaranteeUndistributable.
				WithDetail("minimum_guarantee_minor", result.MinimumGuaranteeMinor)
			batch.Errors = append(batch.Errors, serviceports.ItemError{ID: agreement.ID, Error: undistributable.Error()})
		}
	}

	s.logger.Info("Batch settlement finished",
		ports.Int("year", year),
		ports.Int("month", month),
		ports.Int("adjusted", batch.Adjusted),
		ports.Int("no_adjustment", batch.NoAdjustment),
		ports.Int("already_applied", batch.AlreadyApplied),
		ports.Int("undistributable", batch.Undistributed),
		ports.Int("errors", len(batch.Errors)),
	)
	return batch, nil
}

// RevertMonth deletes an applied settlement and its adjustments so that the month can be
// settled again, e.g. after late transactions arrived or an agreement was corrected
func (s *Service) RevertMonth(ctx context.Context, agreementID string, year, month int) error {
	if agreementID == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "agreement_id")
	}
	if err := domain.ValidatePeriod(year, month); err != nil {
		return err
	}

	ctx, cancel := s.timeouts.SimpleQueryContext(ctx)
	defer cancel()

	deleted, err := s.settlements.Delete(ctx, nil, agreementID, year, month)
	if err != nil {
		return fmt.Errorf("delete settlement: %w", err)
	}
	if !deleted {
		return domain.ErrSettlementNotFound.
			WithDetail("agreement_id", agreementID).
			WithDetail("period", fmt.Sprintf("%04d-%02d", year, month))
	}

	s.logger.Info("Settlement reverted",
		ports.String("agreement_id", agreementID),
		ports.Int("year", year),
		ports.Int("month", month),
	)
	return nil
}
