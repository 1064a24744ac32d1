package revenueshare

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/internal/services/settlement"
	"github.com/kevin07696/revenue-share-service/internal/testutil/fixtures"
	"github.com/kevin07696/revenue-share-service/internal/testutil/mocks"
	testmocks "github.com/kevin07696/revenue-share-service/test/mocks"
)

type testEnv struct {
	store   *mocks.Store
	db      *mocks.MockDB
	logger  *testmocks.MockLogger
	settler *settlement.Service
	svc     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mocks.NewStore()
	db := mocks.NewMockDB()
	logger := testmocks.NewMockLogger()
	settler := settlement.NewService(db, db, store.Agreements(), store.SplitLinks(), store.Settlements(), logger)
	svc := NewService(db, db, store.Agreements(), store.Transactions(), store.SplitLinks(), settler, logger)
	return &testEnv{store: store, db: db, logger: logger, settler: settler, svc: svc}
}

func (e *testEnv) addAgreement(t *testing.T, a *domain.Agreement) *domain.Agreement {
	t.Helper()
	require.NoError(t, e.store.Agreements().Create(context.Background(), nil, a))
	return a
}

func (e *testEnv) addTransaction(t *testing.T, txn *domain.Transaction) *domain.Transaction {
	t.Helper()
	stored, created, err := e.store.Transactions().Create(context.Background(), nil, txn)
	require.NoError(t, err)
	require.True(t, created)
	return stored
}

func (e *testEnv) linksOf(t *testing.T, transactionID string) []*domain.SplitLink {
	t.Helper()
	links, err := e.store.SplitLinks().ListByTransaction(context.Background(), nil, transactionID)
	require.NoError(t, err)
	return links
}

func TestMatchAgreement(t *testing.T) {
	march := fixtures.Date(2024, time.March, 15)

	tests := []struct {
		name       string
		agreements []*domain.Agreement
		clientID   *string
		wantID     string
	}{
		{
			name: "client specific beats global with higher priority",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("global").WithPriority(10).Build(),
				fixtures.NewAgreement().WithID("client").WithClientID("client-1").Build(),
			},
			clientID: fixtures.StringPtr("client-1"),
			wantID:   "client",
		},
		{
			name: "higher priority wins among globals",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("low").WithPriority(1).Build(),
				fixtures.NewAgreement().WithID("high").WithPriority(5).Build(),
			},
			wantID: "high",
		},
		{
			name: "most recently created wins on equal priority",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("older").WithCreatedAt(fixtures.Date(2024, time.January, 1)).Build(),
				fixtures.NewAgreement().WithID("newer").WithCreatedAt(fixtures.Date(2024, time.February, 1)).Build(),
			},
			wantID: "newer",
		},
		{
			name: "other client's agreement is ignored",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("global").Build(),
				fixtures.NewAgreement().WithID("other").WithClientID("client-2").Build(),
			},
			clientID: fixtures.StringPtr("client-1"),
			wantID:   "global",
		},
		{
			name: "empty client id only sees global agreements",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("client").WithClientID("client-1").Build(),
			},
			clientID: fixtures.StringPtr(""),
		},
		{
			name: "inactive agreement never matches",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("inactive").Inactive().Build(),
			},
		},
		{
			name: "expired agreement never matches",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("expired").
					WithEffective(fixtures.Date(2023, time.January, 1), fixtures.TimePtr(fixtures.Date(2024, time.March, 14))).
					Build(),
			},
		},
		{
			name: "end date is inclusive",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("ends-today").
					WithEffective(fixtures.Date(2024, time.January, 1), fixtures.TimePtr(march)).
					Build(),
			},
			wantID: "ends-today",
		},
		{
			name: "other merchant's agreement never matches",
			agreements: []*domain.Agreement{
				fixtures.NewAgreement().WithID("elsewhere").WithMerchantID("merchant-2").Build(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			for _, a := range tt.agreements {
				env.addAgreement(t, a)
			}

			got, err := env.svc.MatchAgreement(context.Background(), "merchant-1", march, tt.clientID)
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatchAgreement_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.MatchAgreement(context.Background(), "", time.Now(), nil)
	assert.True(t, domain.IsValidationError(err))

	_, err = env.svc.MatchAgreement(context.Background(), "merchant-1", time.Time{}, nil)
	assert.True(t, domain.IsValidationError(err))
}

func TestRecordSplit_Shares(t *testing.T) {
	tests := []struct {
		name         string
		rate         string
		kind         domain.TransactionKind
		subtotal     int64
		wantPartner  int64
		wantMerchant int64
	}{
		{name: "ten percent of a payment", rate: "0.10", kind: domain.TransactionKindPayment, subtotal: 10000, wantPartner: 1000, wantMerchant: 9000},
		{name: "half rounds to even down", rate: "0.10", kind: domain.TransactionKindPayment, subtotal: 1005, wantPartner: 100, wantMerchant: 905},
		{name: "half rounds to even up", rate: "0.10", kind: domain.TransactionKindPayment, subtotal: 1015, wantPartner: 102, wantMerchant: 913},
		{name: "chargeback stores absolute shares", rate: "0.25", kind: domain.TransactionKindChargeback, subtotal: 4000, wantPartner: 1000, wantMerchant: 3000},
		{name: "zero subtotal", rate: "0.10", kind: domain.TransactionKindPayment, subtotal: 0, wantPartner: 0, wantMerchant: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			agreement := env.addAgreement(t, fixtures.NewAgreement().WithRate(tt.rate).Build())
			txn := env.addTransaction(t, fixtures.NewTransaction().WithKind(tt.kind).WithSubtotal(tt.subtotal).Build())

			record, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(txn))
			require.NoError(t, err)
			require.NotNil(t, record)

			assert.Equal(t, agreement.ID, record.Agreement.ID)
			assert.Equal(t, domain.CalculationMethodPercentage, record.Link.CalculationMethod)
			assert.Equal(t, tt.wantPartner, record.Link.PartnerShareMinor)
			assert.Equal(t, tt.wantMerchant, record.Link.MerchantShareMinor)
			assert.Equal(t, tt.subtotal, record.Link.PartnerShareMinor+record.Link.MerchantShareMinor)
		})
	}
}

func TestRecordSplit_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addAgreement(t, fixtures.NewAgreement().Build())
	txn := env.addTransaction(t, fixtures.NewTransaction().Build())
	req := serviceports.NewRecordSplitRequest(txn)

	first, err := env.svc.RecordSplit(context.Background(), req)
	require.NoError(t, err)
	second, err := env.svc.RecordSplit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Link.ID, second.Link.ID)
	assert.Len(t, env.linksOf(t, txn.ID), 1)
}

func TestRecordSplit_NoAgreementClearsLinks(t *testing.T) {
	env := newTestEnv(t)
	txn := env.addTransaction(t, fixtures.NewTransaction().Build())
	_, err := env.store.SplitLinks().Upsert(context.Background(), nil, &domain.SplitLink{
		TransactionID: txn.ID,
		AgreementID:   "retired",
	})
	require.NoError(t, err)

	record, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(txn))
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, env.linksOf(t, txn.ID))
}

func TestRecordSplit_ReplacesLinkUnderOtherAgreement(t *testing.T) {
	env := newTestEnv(t)
	txn := env.addTransaction(t, fixtures.NewTransaction().Build())
	_, err := env.store.SplitLinks().Upsert(context.Background(), nil, &domain.SplitLink{
		TransactionID:     txn.ID,
		AgreementID:       "old-agreement",
		PartnerShareMinor: 5000,
	})
	require.NoError(t, err)
	current := env.addAgreement(t, fixtures.NewAgreement().WithRate("0.20").Build())

	_, err = env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(txn))
	require.NoError(t, err)

	links := env.linksOf(t, txn.ID)
	require.Len(t, links, 1)
	assert.Equal(t, current.ID, links[0].AgreementID)
	assert.Equal(t, int64(2000), links[0].PartnerShareMinor)
}

func TestRecordSplit_ReversalUsesOriginalAgreement(t *testing.T) {
	env := newTestEnv(t)
	q1 := env.addAgreement(t, fixtures.NewAgreement().WithRate("0.10").
		WithEffective(fixtures.Date(2024, time.January, 1), fixtures.TimePtr(fixtures.Date(2024, time.March, 31))).
		Build())
	env.addAgreement(t, fixtures.NewAgreement().WithRate("0.30").
		WithEffective(fixtures.Date(2024, time.April, 1), nil).
		Build())

	original := env.addTransaction(t, fixtures.NewTransaction().Build())
	_, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(original))
	require.NoError(t, err)

	refund := env.addTransaction(t, fixtures.NewTransaction().
		AsRefundOf(original.ID).
		WithDate(fixtures.Date(2024, time.April, 5)).
		WithSubtotal(5000).
		Build())

	record, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(refund))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, q1.ID, record.Agreement.ID)
	assert.Equal(t, int64(500), record.Link.PartnerShareMinor)
	assert.Equal(t, int64(4500), record.Link.MerchantShareMinor)
}

func TestRecordSplit_ReversalFallsBackToMatcher(t *testing.T) {
	env := newTestEnv(t)
	agreement := env.addAgreement(t, fixtures.NewAgreement().Build())
	refund := env.addTransaction(t, fixtures.NewTransaction().AsRefundOf("never-split").WithSubtotal(3000).Build())

	record, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(refund))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, agreement.ID, record.Agreement.ID)
	assert.Equal(t, int64(300), record.Link.PartnerShareMinor)
}

func TestRecordSplit_MisconfiguredAgreement(t *testing.T) {
	env := newTestEnv(t)
	env.addAgreement(t, fixtures.NewAgreement().WithRate("1.5").Build())
	txn := env.addTransaction(t, fixtures.NewTransaction().Build())

	record, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(txn))
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Empty(t, env.linksOf(t, txn.ID))
	assert.Len(t, env.logger.Errors(), 1)
}

func TestRecordSplit_Validation(t *testing.T) {
	valid := func() *serviceports.RecordSplitRequest {
		return serviceports.NewRecordSplitRequest(fixtures.NewTransaction().Build())
	}

	tests := []struct {
		name   string
		mutate func(req *serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest
	}{
		{name: "nil request", mutate: func(*serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest { return nil }},
		{name: "missing transaction id", mutate: func(r *serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest {
			r.TransactionID = ""
			return r
		}},
		{name: "missing merchant id", mutate: func(r *serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest {
			r.MerchantID = ""
			return r
		}},
		{name: "missing date", mutate: func(r *serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest {
			r.TransactionDate = time.Time{}
			return r
		}},
		{name: "unknown kind", mutate: func(r *serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest {
			r.Kind = "TRANSFER"
			return r
		}},
		{name: "negative subtotal", mutate: func(r *serviceports.RecordSplitRequest) *serviceports.RecordSplitRequest {
			r.SubtotalMinor = -1
			return r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.svc.RecordSplit(context.Background(), tt.mutate(valid()))
			assert.True(t, domain.IsValidationError(err))
			assert.Zero(t, env.db.TransactionCount())
		})
	}
}

func TestOnTransactionStatusChanged(t *testing.T) {
	t.Run("completing a pending transaction records its split", func(t *testing.T) {
		env := newTestEnv(t)
		env.addAgreement(t, fixtures.NewAgreement().Build())
		txn := env.addTransaction(t, fixtures.NewTransaction().WithStatus(domain.TransactionStatusPending).Build())

		require.NoError(t, env.svc.OnTransactionStatusChanged(context.Background(), txn.ID, domain.TransactionStatusCompleted))

		stored, err := env.store.Transactions().GetByID(context.Background(), nil, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCompleted, stored.Status)
		assert.Len(t, env.linksOf(t, txn.ID), 1)
	})

	t.Run("cancelling a completed transaction removes its split", func(t *testing.T) {
		env := newTestEnv(t)
		env.addAgreement(t, fixtures.NewAgreement().Build())
		txn := env.addTransaction(t, fixtures.NewTransaction().Build())
		_, err := env.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(txn))
		require.NoError(t, err)

		require.NoError(t, env.svc.OnTransactionStatusChanged(context.Background(), txn.ID, domain.TransactionStatusCancelled))
		assert.Empty(t, env.linksOf(t, txn.ID))
	})

	t.Run("failing a pending transaction leaves no split", func(t *testing.T) {
		env := newTestEnv(t)
		env.addAgreement(t, fixtures.NewAgreement().Build())
		txn := env.addTransaction(t, fixtures.NewTransaction().WithStatus(domain.TransactionStatusPending).Build())

		require.NoError(t, env.svc.OnTransactionStatusChanged(context.Background(), txn.ID, domain.TransactionStatusFailed))
		assert.Empty(t, env.linksOf(t, txn.ID))
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		txn := env.addTransaction(t, fixtures.NewTransaction().Build())

		require.NoError(t, env.svc.OnTransactionStatusChanged(context.Background(), txn.ID, domain.TransactionStatusCompleted))
		assert.Zero(t, env.store.Calls("Transactions.UpdateStatus"))
	})

	t.Run("terminal status cannot be left", func(t *testing.T) {
		env := newTestEnv(t)
		txn := env.addTransaction(t, fixtures.NewTransaction().WithStatus(domain.TransactionStatusFailed).Build())

		err := env.svc.OnTransactionStatusChanged(context.Background(), txn.ID, domain.TransactionStatusCompleted)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState))
		assert.Zero(t, env.store.Calls("Transactions.UpdateStatus"))
	})

	t.Run("unknown transaction is not found", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.svc.OnTransactionStatusChanged(context.Background(), "missing", domain.TransactionStatusCompleted)
		assert.True(t, domain.IsNotFoundError(err))
	})

	t.Run("split failure is logged and the status change kept", func(t *testing.T) {
		env := newTestEnv(t)
		txn := env.addTransaction(t, fixtures.NewTransaction().WithStatus(domain.TransactionStatusPending).Build())
		env.store.FailOn("Agreements.ListCandidates", errors.New("connection reset"))

		require.NoError(t, env.svc.OnTransactionStatusChanged(context.Background(), txn.ID, domain.TransactionStatusCompleted))

		stored, err := env.store.Transactions().GetByID(context.Background(), nil, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCompleted, stored.Status)
		assert.NotEmpty(t, env.logger.Errors())
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.svc.OnTransactionStatusChanged(context.Background(), "txn", "SETTLED")
		assert.True(t, domain.IsValidationError(err))
	})
}

func TestBulkRecalculate(t *testing.T) {
	env := newTestEnv(t)
	env.addAgreement(t, fixtures.NewAgreement().WithRate("0.20").Build())
	env.addAgreement(t, fixtures.NewAgreement().WithClientID("broken").WithRate("2").Build())

	completed := env.addTransaction(t, fixtures.NewTransaction().WithDate(fixtures.Date(2024, time.March, 1)).Build())
	pending := env.addTransaction(t, fixtures.NewTransaction().
		WithDate(fixtures.Date(2024, time.March, 2)).
		WithStatus(domain.TransactionStatusPending).
		Build())
	orphanRefund := env.addTransaction(t, fixtures.NewTransaction().
		WithDate(fixtures.Date(2024, time.March, 3)).
		WithKind(domain.TransactionKindRefund).
		Build())
	broken := env.addTransaction(t, fixtures.NewTransaction().
		WithDate(fixtures.Date(2024, time.March, 4)).
		WithClientID("broken").
		Build())
	outOfRange := env.addTransaction(t, fixtures.NewTransaction().WithDate(fixtures.Date(2024, time.April, 1)).Build())

	// Stale links from an earlier agreement version
	for _, id := range []string{completed.ID, orphanRefund.ID} {
		_, err := env.store.SplitLinks().Upsert(context.Background(), nil, &domain.SplitLink{
			TransactionID:     id,
			AgreementID:       "stale",
			PartnerShareMinor: 1,
		})
		require.NoError(t, err)
	}

	start, end := domain.MonthRange(2024, 3)
	result, err := env.svc.BulkRecalculate(context.Background(), "merchant-1", start, end)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Recorded)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, broken.ID, result.Errors[0].ID)

	links := env.linksOf(t, completed.ID)
	require.Len(t, links, 1)
	assert.NotEqual(t, "stale", links[0].AgreementID)
	assert.Equal(t, int64(2000), links[0].PartnerShareMinor)

	assert.Empty(t, env.linksOf(t, pending.ID))
	assert.Empty(t, env.linksOf(t, orphanRefund.ID))
	assert.Empty(t, env.linksOf(t, outOfRange.ID))
}

func TestBulkRecalculate_Validation(t *testing.T) {
	env := newTestEnv(t)
	start, end := domain.MonthRange(2024, 3)

	_, err := env.svc.BulkRecalculate(context.Background(), "", start, end)
	assert.True(t, domain.IsValidationError(err))

	_, err = env.svc.BulkRecalculate(context.Background(), "merchant-1", end, start)
	assert.True(t, domain.IsValidationError(err))
}

func TestBulkRecalculate_StopsOnCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.addAgreement(t, fixtures.NewAgreement().Build())
	env.addTransaction(t, fixtures.NewTransaction().Build())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start, end := domain.MonthRange(2024, 3)
	result, err := env.svc.BulkRecalculate(ctx, "merchant-1", start, end)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Processed)
	assert.Empty(t, env.store.AllLinks())
}

// settledGuaranteeMonth records three March payments worth 10000, 15000 and 5000 to the
// partner under a 50000 guarantee and settles the month, leaving a 20000 adjustment
func (e *testEnv) settledGuaranteeMonth(t *testing.T) (*domain.Agreement, []*domain.Transaction) {
	t.Helper()
	agreement := e.addAgreement(t, fixtures.NewAgreement().WithMinimumGuarantee(50000).Build())

	var txns []*domain.Transaction
	for i, subtotal := range []int64{100000, 150000, 50000} {
		txn := e.addTransaction(t, fixtures.NewTransaction().
			WithDate(fixtures.Date(2024, time.March, i+1)).
			WithSubtotal(subtotal).
			Build())
		_, err := e.svc.RecordSplit(context.Background(), serviceports.NewRecordSplitRequest(txn))
		require.NoError(t, err)
		txns = append(txns, txn)
	}

	result, err := e.settler.SettleMonth(context.Background(), agreement.ID, 2024, 3)
	require.NoError(t, err)
	require.Equal(t, domain.SettlementOutcomeAdjusted, result.Outcome)
	require.Equal(t, int64(20000), result.AdjustmentMinor)
	return agreement, txns
}

// earnedInMarch returns the partner's raw and adjusted March earnings
func (e *testEnv) earnedInMarch(t *testing.T) (int64, int64) {
	t.Helper()
	start, end := domain.MonthRange(2024, 3)
	raw, adjustments, err := e.store.SplitLinks().SumEarned(context.Background(), nil, ports.EarnedFilter{
		Start: start, End: end, MerchantID: "merchant-1", PartnerID: "partner-1",
	})
	require.NoError(t, err)
	return raw, adjustments
}

func TestOnTransactionStatusChanged_CancelInSettledMonthKeepsGuarantee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agreement, txns := env.settledGuaranteeMonth(t)

	require.NoError(t, env.svc.OnTransactionStatusChanged(ctx, txns[2].ID, domain.TransactionStatusCancelled))
	assert.Empty(t, env.linksOf(t, txns[2].ID))

	raw, adjustments := env.earnedInMarch(t)
	assert.Equal(t, int64(25000), raw)
	assert.Equal(t, int64(25000), adjustments)
	assert.Equal(t, int64(50000), raw+adjustments)

	marker, err := env.store.Settlements().GetByPeriod(ctx, nil, agreement.ID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), marker.RawPartnerShareMinor)
	assert.Equal(t, int64(25000), marker.AdjustmentMinor)
	assert.Equal(t, int64(50000), marker.FinalPartnerShareMinor)
	assert.Equal(t, 2, marker.TransactionCount)

	again, err := env.settler.SettleMonth(ctx, agreement.ID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementOutcomeAlreadyApplied, again.Outcome)
	assert.Equal(t, int64(25000), again.AdjustmentMinor)
	assert.Len(t, again.Adjustments, 2)

	var rebuilt bool
	for _, call := range env.logger.Warnings() {
		if call.Message == "Split change rebuilt a settled month" {
			rebuilt = true
			assert.Equal(t, agreement.ID, call.Field("agreement_id"))
		}
	}
	assert.True(t, rebuilt)
}

func TestRecordSplit_LatePaymentInSettledMonthShrinksAdjustment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agreement, _ := env.settledGuaranteeMonth(t)

	late := env.addTransaction(t, fixtures.NewTransaction().
		WithDate(fixtures.Date(2024, time.March, 28)).
		WithSubtotal(120000).
		Build())
	record, err := env.svc.RecordSplit(ctx, serviceports.NewRecordSplitRequest(late))
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Len(t, record.Resettled, 1)
	assert.Equal(t, domain.SettlementOutcomeAdjusted, record.Resettled[0].Outcome)
	assert.Equal(t, int64(42000), record.Resettled[0].RawPartnerShareMinor)
	assert.Equal(t, int64(8000), record.Resettled[0].AdjustmentMinor)

	raw, adjustments := env.earnedInMarch(t)
	assert.Equal(t, int64(50000), raw+adjustments)

	marker, err := env.store.Settlements().GetByPeriod(ctx, nil, agreement.ID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, marker.TransactionCount)
}

func TestRecordSplit_UnchangedLinkLeavesSettlementAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agreement, txns := env.settledGuaranteeMonth(t)

	before, err := env.store.Settlements().GetByPeriod(ctx, nil, agreement.ID, 2024, 3)
	require.NoError(t, err)
	reopens := env.store.Calls("Settlements.Delete")

	record, err := env.svc.RecordSplit(ctx, serviceports.NewRecordSplitRequest(txns[0]))
	require.NoError(t, err)
	assert.Empty(t, record.Resettled)

	after, err := env.store.Settlements().GetByPeriod(ctx, nil, agreement.ID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, reopens, env.store.Calls("Settlements.Delete"))
}

func TestBulkRecalculate_MovingSettledLinksReopensMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	original, _ := env.settledGuaranteeMonth(t)

	// A corrected agreement that outranks the settled one takes every March payment
	env.addAgreement(t, fixtures.NewAgreement().WithRate("0.20").WithPriority(10).Build())

	start, end := domain.MonthRange(2024, 3)
	result, err := env.svc.BulkRecalculate(ctx, "merchant-1", start, end)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.Recorded)
	// Each moved link rebuilds the month from the links still under the old agreement
	assert.Equal(t, 3, result.Resettled)

	// With no revenue left the guarantee cannot be distributed, so the month stays open
	_, err = env.store.Settlements().GetByPeriod(ctx, nil, original.ID, 2024, 3)
	assert.True(t, domain.IsNotFoundError(err))
	assert.Empty(t, env.store.AllAdjustments())

	raw, adjustments := env.earnedInMarch(t)
	assert.Equal(t, int64(60000), raw)
	assert.Zero(t, adjustments)
}

func TestOnTransactionStatusChanged_KeepsSettledLinkWhenReopenFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, txns := env.settledGuaranteeMonth(t)

	env.store.FailOn("Settlements.Delete", errors.New("connection reset"))
	require.NoError(t, env.svc.OnTransactionStatusChanged(ctx, txns[1].ID, domain.TransactionStatusFailed))

	// The status change stands; the link and the applied settlement are untouched
	stored, err := env.store.Transactions().GetByID(ctx, nil, txns[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
	assert.Len(t, env.linksOf(t, txns[1].ID), 1)
	assert.Len(t, env.store.AllAdjustments(), 3)
	assert.NotEmpty(t, env.logger.Errors())
}

func TestSplitLinkStore_RefusesToDropAdjustedLink(t *testing.T) {
	env := newTestEnv(t)
	_, txns := env.settledGuaranteeMonth(t)

	_, err := env.store.SplitLinks().DeleteByTransaction(context.Background(), nil, txns[0].ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSettlementLinkSettled))
	assert.Len(t, env.linksOf(t, txns[0].ID), 1)
}
