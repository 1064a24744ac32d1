package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/services/ports"
)

// MockSettlementService is a testify mock of ports.SettlementService
type MockSettlementService struct {
	mock.Mock
}

var _ ports.SettlementService = (*MockSettlementService)(nil)

func (m *MockSettlementService) SettleMonth(ctx context.Context, agreementID string, year, month int) (*domain.SettlementResult, error) {
	args := m.Called(ctx, agreementID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

func (m *MockSettlementService) SettleAllAgreements(ctx context.Context, year, month int) (*ports.BatchSettlementResult, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.BatchSettlementResult), args.Error(1)
}

func (m *MockSettlementService) RevertMonth(ctx context.Context, agreementID string, year, month int) error {
	args := m.Called(ctx, agreementID, year, month)
	return args.Error(0)
}

// MockIngestionService is a testify mock of ports.IngestionService
type MockIngestionService struct {
	mock.Mock
}

var _ ports.IngestionService = (*MockIngestionService)(nil)

func (m *MockIngestionService) IngestEvents(ctx context.Context, merchantID, source string, events []domain.GatewayEvent) (*ports.IngestResult, error) {
	args := m.Called(ctx, merchantID, source, events)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.IngestResult), args.Error(1)
}

func (m *MockIngestionService) SyncMerchant(ctx context.Context, merchantID string) (*ports.SyncResult, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SyncResult), args.Error(1)
}

func (m *MockIngestionService) SyncAll(ctx context.Context) (*ports.SyncAllResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SyncAllResult), args.Error(1)
}

// MockRevenueShareService is a testify mock of ports.RevenueShareService
type MockRevenueShareService struct {
	mock.Mock
}

var _ ports.RevenueShareService = (*MockRevenueShareService)(nil)

func (m *MockRevenueShareService) MatchAgreement(ctx context.Context, merchantID string, date time.Time, clientID *string) (*domain.Agreement, error) {
	args := m.Called(ctx, merchantID, date, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agreement), args.Error(1)
}

func (m *MockRevenueShareService) RecordSplit(ctx context.Context, req *ports.RecordSplitRequest) (*ports.SplitRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SplitRecord), args.Error(1)
}

func (m *MockRevenueShareService) OnTransactionStatusChanged(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	args := m.Called(ctx, transactionID, status)
	return args.Error(0)
}

func (m *MockRevenueShareService) BulkRecalculate(ctx context.Context, merchantID string, start, end time.Time) (*ports.RecalculationResult, error) {
	args := m.Called(ctx, merchantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RecalculationResult), args.Error(1)
}

// MockBalanceService is a testify mock of ports.BalanceService
type MockBalanceService struct {
	mock.Mock
}

var _ ports.BalanceService = (*MockBalanceService)(nil)

func (m *MockBalanceService) OutstandingBalance(ctx context.Context, query *ports.BalanceQuery) (*ports.BalanceResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.BalanceResult), args.Error(1)
}

func (m *MockBalanceService) BalanceHistory(ctx context.Context, query *ports.BalanceQuery, months int) ([]*ports.BalanceResult, error) {
	args := m.Called(ctx, query, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ports.BalanceResult), args.Error(1)
}
