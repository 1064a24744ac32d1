package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Agreement Errors (AGREEMENT_*)
	ErrorCodeAgreementNotFound      ErrorCode = "AGREEMENT_NOT_FOUND"
	ErrorCodeAgreementInvalidConfig ErrorCode = "AGREEMENT_INVALID_CONFIG"

	// Transaction Errors (TXN_*)
	ErrorCodeTxnNotFound     ErrorCode = "TXN_NOT_FOUND"
	ErrorCodeTxnInvalidState ErrorCode = "TXN_INVALID_STATE"

	// Settlement Errors (SETTLEMENT_*)
	ErrorCodeSettlementNotFound        ErrorCode = "SETTLEMENT_NOT_FOUND"
	ErrorCodeSettlementUndistributable ErrorCode = "SETTLEMENT_UNDISTRIBUTABLE"
	ErrorCodeSettlementPeriodInvalid   ErrorCode = "SETTLEMENT_PERIOD_INVALID"
	ErrorCodeSettlementLinkSettled     ErrorCode = "SETTLEMENT_LINK_SETTLED"

	// Ingestion Errors (INGEST_*)
	ErrorCodeWebhookEndpointNotFound ErrorCode = "INGEST_ENDPOINT_NOT_FOUND"
	ErrorCodeWebhookSignatureInvalid ErrorCode = "INGEST_SIGNATURE_INVALID"
	ErrorCodeEventInvalid            ErrorCode = "INGEST_EVENT_INVALID"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error carrying an extra detail field.
// Package-level sentinel errors are shared, so they are never mutated in place.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Err: e.Err, Details: details, Code: e.Code, Message: e.Message}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAgreementNotFound ||
		code == ErrorCodeTxnNotFound ||
		code == ErrorCodeSettlementNotFound ||
		code == ErrorCodeWebhookEndpointNotFound
}

// IsConfigurationError checks if an error was caused by a misconfigured agreement.
// These abort processing of the single transaction they occur on.
func IsConfigurationError(err error) bool {
	return GetErrorCode(err) == ErrorCodeAgreementInvalidConfig
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField ||
		code == ErrorCodeSettlementPeriodInvalid ||
		code == ErrorCodeEventInvalid
}

var (
	ErrAgreementNotFound      = NewDomainError(ErrorCodeAgreementNotFound, "agreement not found")
	ErrAgreementInvalidConfig = NewDomainError(ErrorCodeAgreementInvalidConfig, "agreement is misconfigured")

	ErrTxnNotFound     = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")
	ErrTxnInvalidState = NewDomainError(ErrorCodeTxnInvalidState, "transaction is in invalid state for this operation")

	ErrSettlementNotFound       = NewDomainError(ErrorCodeSettlementNotFound, "settlement not found")
	ErrGuaranteeUndistributable = NewDomainError(ErrorCodeSettlementUndistributable, "minimum guarantee owed with no revenue to distribute against")
	ErrSettlementPeriodInvalid  = NewDomainError(ErrorCodeSettlementPeriodInvalid, "invalid settlement period")
	ErrSplitLinkSettled         = NewDomainError(ErrorCodeSettlementLinkSettled, "split link carries a settlement adjustment; reopen the month first")

	ErrWebhookEndpointNotFound = NewDomainError(ErrorCodeWebhookEndpointNotFound, "webhook endpoint not found")
	ErrWebhookSignatureInvalid = NewDomainError(ErrorCodeWebhookSignatureInvalid, "webhook signature invalid")
	ErrEventInvalid            = NewDomainError(ErrorCodeEventInvalid, "gateway event invalid")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
