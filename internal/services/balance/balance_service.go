package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

// maxHistoryMonths bounds a single BalanceHistory request
const maxHistoryMonths = 36

// Service implements serviceports.BalanceService
type Service struct {
	db       ports.DBPort
	timeouts ports.QueryTimeouts
	links    ports.SplitLinkRepository
	payouts  ports.PayoutRepository
	logger   ports.Logger
}

var _ serviceports.BalanceService = (*Service)(nil)

// NewService creates a new balance service
func NewService(
	db ports.DBPort,
	timeouts ports.QueryTimeouts,
	links ports.SplitLinkRepository,
	payouts ports.PayoutRepository,
	logger ports.Logger,
) *Service {
	return &Service{
		db:       db,
		timeouts: timeouts,
		links:    links,
		payouts:  payouts,
		logger:   logger,
	}
}

// OutstandingBalance computes earned minus paid for one merchant-partner month.
// Earnings and payouts are read in one read-only transaction so they describe the same snapshot.
func (s *Service) OutstandingBalance(ctx context.Context, query *serviceports.BalanceQuery) (*serviceports.BalanceResult, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	ctx, cancel := s.timeouts.ComplexQueryContext(ctx)
	defer cancel()

	return s.balanceFor(ctx, query, query.Year, query.Month)
}

// BalanceHistory returns the balances of the query month and the months-1 months before it,
// newest first. Each month is computed on its own; nothing carries over between months.
func (s *Service) BalanceHistory(ctx context.Context, query *serviceports.BalanceQuery, months int) ([]*serviceports.BalanceResult, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	if months < 1 || months > maxHistoryMonths {
		return nil, domain.ErrValidationFailed.WithDetail("months", months)
	}

	ctx, cancel := s.timeouts.ReportQueryContext(ctx)
	defer cancel()

	history := make([]*serviceports.BalanceResult, 0, months)
	for i := 0; i < months; i++ {
		year, month := timeutil.AddMonths(query.Year, time.Month(query.Month), -i)
		result, err := s.balanceFor(ctx, query, year, int(month))
		if err != nil {
			return nil, fmt.Errorf("balance for %04d-%02d: %w", year, int(month), err)
		}
		history = append(history, result)
	}
	return history, nil
}

func (s *Service) balanceFor(ctx context.Context, query *serviceports.BalanceQuery, year, month int) (*serviceports.BalanceResult, error) {
	start, end := domain.MonthRange(year, month)

	var agreementID string
	if query.AgreementID != nil {
		agreementID = *query.AgreementID
	}

	result := &serviceports.BalanceResult{
		AgreementID: query.AgreementID,
		MerchantID:  query.MerchantID,
		PartnerID:   query.PartnerID,
		Year:        year,
		Month:       month,
	}

	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		raw, adjustments, err := s.links.SumEarned(ctx, tx, ports.EarnedFilter{
			Start:       start,
			End:         end,
			AgreementID: query.AgreementID,
			MerchantID:  query.MerchantID,
			PartnerID:   query.PartnerID,
		})
		if err != nil {
			return fmt.Errorf("sum earned: %w", err)
		}

		payouts, err := s.payouts.ListCompleted(ctx, tx, query.MerchantID, query.PartnerID, start, end)
		if err != nil {
			return fmt.Errorf("list completed payouts: %w", err)
		}

		result.RawEarnedMinor = raw
		result.AdjustmentMinor = adjustments
		result.EarnedMinor = raw + adjustments
		result.PaidMinor = domain.SumPaid(payouts, start, end, agreementID)
		result.OutstandingMinor = result.EarnedMinor - result.PaidMinor
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to compute outstanding balance",
			ports.String("merchant_id", query.MerchantID),
			ports.String("partner_id", query.PartnerID),
			ports.Int("year", year),
			ports.Int("month", month),
			ports.Err(err),
		)
		return nil, err
	}

	s.logger.Debug("Outstanding balance computed",
		ports.String("merchant_id", query.MerchantID),
		ports.String("partner_id", query.PartnerID),
		ports.Int("year", year),
		ports.Int("month", month),
		ports.Int64("earned_minor", result.EarnedMinor),
		ports.Int64("paid_minor", result.PaidMinor),
		ports.Int64("outstanding_minor", result.OutstandingMinor),
	)
	return result, nil
}

func validateQuery(query *serviceports.BalanceQuery) error {
	switch {
	case query == nil:
		return domain.ErrValidationMissingField.WithDetail("field", "query")
	case query.MerchantID == "":
		return domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	case query.PartnerID == "":
		return domain.ErrValidationMissingField.WithDetail("field", "partner_id")
	case query.AgreementID != nil && *query.AgreementID == "":
		return domain.ErrValidationFailed.WithDetail("agreement_id", "")
	}
	return domain.ValidatePeriod(query.Year, query.Month)
}
