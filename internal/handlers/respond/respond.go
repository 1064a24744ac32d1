// Package respond writes the JSON envelopes shared by the HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// ErrorBody is the error envelope returned by every endpoint
type ErrorBody struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Error writes a plain error message
func Error(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	JSON(w, status, ErrorBody{Error: message}, logger)
}

// Err maps err to a status and writes it. Internal errors are not echoed to the caller.
func Err(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := StatusFor(err)

	var domainErr *domain.DomainError
	if status == http.StatusInternalServerError || !errors.As(err, &domainErr) {
		logger.Error("Request failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal server error", logger)
		return
	}

	JSON(w, status, ErrorBody{
		Error:   domainErr.Message,
		Code:    string(domainErr.Code),
		Details: domainErr.Details,
	}, logger)
}

// StatusFor maps domain error classes to HTTP statuses
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsConfigurationError(err),
		domain.IsDomainError(err, domain.ErrorCodeSettlementUndistributable),
		domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState):
		return http.StatusUnprocessableEntity
	case domain.IsDomainError(err, domain.ErrorCodeWebhookSignatureInvalid):
		return http.StatusUnauthorized
	case domain.IsDomainError(err, domain.ErrorCodeSettlementLinkSettled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
