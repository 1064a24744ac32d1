package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "missing field", err: domain.ErrValidationMissingField, want: http.StatusBadRequest},
		{name: "bad period", err: domain.ErrSettlementPeriodInvalid.WithDetail("month", 13), want: http.StatusBadRequest},
		{name: "wrapped not found", err: fmt.Errorf("settle: %w", domain.ErrAgreementNotFound), want: http.StatusNotFound},
		{name: "misconfigured agreement", err: domain.ErrAgreementInvalidConfig, want: http.StatusUnprocessableEntity},
		{name: "undistributable", err: domain.ErrGuaranteeUndistributable, want: http.StatusUnprocessableEntity},
		{name: "bad signature", err: domain.ErrWebhookSignatureInvalid, want: http.StatusUnauthorized},
		{name: "settled link", err: domain.ErrSplitLinkSettled, want: http.StatusConflict},
		{name: "database", err: domain.ErrDatabaseError, want: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErr_DomainErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Err(rec, domain.ErrSettlementNotFound.WithDetail("agreement_id", "agreement-1"), zap.NewNop())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "SETTLEMENT_NOT_FOUND", body.Code)
	assert.Equal(t, "agreement-1", body.Details["agreement_id"])
}

func TestErr_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Err(rec, errors.New("pq: password authentication failed"), zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}
