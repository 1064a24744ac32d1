package balance

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/internal/testutil/mocks"
)

func get(h *Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.GetBalance(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetBalance_Month(t *testing.T) {
	svc := new(mocks.MockBalanceService)
	defer svc.AssertExpectations(t)
	svc.On("OutstandingBalance", mock.Anything, mock.MatchedBy(func(q *ports.BalanceQuery) bool {
		return q.MerchantID == "merchant-1" && q.PartnerID == "partner-1" &&
			q.Year == 2024 && q.Month == 3 && q.AgreementID == nil
	})).Return(&ports.BalanceResult{MerchantID: "merchant-1", PartnerID: "partner-1", Year: 2024, Month: 3, EarnedMinor: 5000, PaidMinor: 1500, OutstandingMinor: 3500}, nil)

	rec := get(NewHandler(svc, zap.NewNop()), "/api/v1/balances?merchant_id=merchant-1&partner_id=partner-1&year=2024&month=3")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outstanding_minor":3500`)
}

func TestGetBalance_HistoryWithAgreement(t *testing.T) {
	svc := new(mocks.MockBalanceService)
	defer svc.AssertExpectations(t)
	svc.On("BalanceHistory", mock.Anything, mock.MatchedBy(func(q *ports.BalanceQuery) bool {
		return q.AgreementID != nil && *q.AgreementID == "agreement-1"
	}), 6).Return([]*ports.BalanceResult{{Year: 2024, Month: 3}, {Year: 2024, Month: 2}}, nil)

	rec := get(NewHandler(svc, zap.NewNop()), "/api/v1/balances?merchant_id=m&partner_id=p&year=2024&month=3&agreement_id=agreement-1&months=6")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balances":[`)
}

func TestGetBalance_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(svc *mocks.MockBalanceService)
	}{
		{name: "missing year", target: "/api/v1/balances?merchant_id=m&partner_id=p&month=3"},
		{name: "non-numeric month", target: "/api/v1/balances?merchant_id=m&partner_id=p&year=2024&month=march"},
		{name: "non-numeric months", target: "/api/v1/balances?merchant_id=m&partner_id=p&year=2024&month=3&months=all"},
		{
			name:   "service validation",
			target: "/api/v1/balances?partner_id=p&year=2024&month=3",
			setup: func(svc *mocks.MockBalanceService) {
				svc.On("OutstandingBalance", mock.Anything, mock.Anything).
					Return(nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockBalanceService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			rec := get(NewHandler(svc, zap.NewNop()), tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}
