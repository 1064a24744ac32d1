package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDomainErrors_Messages tests that every structured error renders its code and message
func TestDomainErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		code     ErrorCode
		contains string
	}{
		{"agreement_not_found", ErrAgreementNotFound, ErrorCodeAgreementNotFound, "agreement not found"},
		{"agreement_invalid_config", ErrAgreementInvalidConfig, ErrorCodeAgreementInvalidConfig, "misconfigured"},
		{"txn_not_found", ErrTxnNotFound, ErrorCodeTxnNotFound, "transaction not found"},
		{"txn_invalid_state", ErrTxnInvalidState, ErrorCodeTxnInvalidState, "invalid state"},
		{"settlement_not_found", ErrSettlementNotFound, ErrorCodeSettlementNotFound, "settlement not found"},
		{"guarantee_undistributable", ErrGuaranteeUndistributable, ErrorCodeSettlementUndistributable, "no revenue"},
		{"webhook_signature_invalid", ErrWebhookSignatureInvalid, ErrorCodeWebhookSignatureInvalid, "signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			if !strings.Contains(tt.err.Error(), string(tt.code)) {
				t.Errorf("error message %q does not contain code %q", tt.err.Error(), tt.code)
			}
			if !strings.Contains(strings.ToLower(tt.err.Error()), tt.contains) {
				t.Errorf("error message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

// TestWrapError_Unwrap tests that wrapped causes stay reachable through errors.Is
func TestWrapError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrorCodeDatabaseError, "upsert split link", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection reset")

	wrapped := fmt.Errorf("record split: %w", err)
	assert.True(t, IsDomainError(wrapped, ErrorCodeDatabaseError))
	assert.Equal(t, ErrorCodeDatabaseError, GetErrorCode(wrapped))
}

// TestWithDetail_DoesNotMutateSentinel tests that details are attached to a copy
func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	detailed := ErrTxnNotFound.WithDetail("transaction_id", "txn-1")

	assert.Equal(t, "txn-1", detailed.Details["transaction_id"])
	assert.NotContains(t, ErrTxnNotFound.Details, "transaction_id")
	assert.True(t, IsDomainError(detailed, ErrorCodeTxnNotFound))
}

// TestErrorPredicates tests the classification helpers
func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		config     bool
		validation bool
	}{
		{"agreement not found", ErrAgreementNotFound, true, false, false},
		{"transaction not found", ErrTxnNotFound, true, false, false},
		{"endpoint not found", ErrWebhookEndpointNotFound, true, false, false},
		{"invalid config", ErrAgreementInvalidConfig, false, true, false},
		{"invalid period", ErrSettlementPeriodInvalid, false, false, true},
		{"invalid amount", ErrValidationAmountInvalid, false, false, true},
		{"plain error", errors.New("boom"), false, false, false},
		{"nil error", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.config, IsConfigurationError(tt.err))
			assert.Equal(t, tt.validation, IsValidationError(tt.err))
		})
	}
}
