package balance

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/handlers/respond"
	"github.com/kevin07696/revenue-share-service/internal/services/ports"
)

// Handler serves outstanding balance reports
type Handler struct {
	balances ports.BalanceService
	logger   *zap.Logger
}

// NewHandler creates the balance handler
func NewHandler(balances ports.BalanceService, logger *zap.Logger) *Handler {
	return &Handler{balances: balances, logger: logger}
}

// GetBalance handles GET /api/v1/balances.
// Query: merchant_id, partner_id, year, month, optional agreement_id and months.
// With months > 1 the response is the history ending at the given month, newest first.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	year, err := strconv.Atoi(params.Get("year"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "year must be an integer", h.logger)
		return
	}
	month, err := strconv.Atoi(params.Get("month"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "month must be an integer", h.logger)
		return
	}

	query := &ports.BalanceQuery{
		MerchantID: params.Get("merchant_id"),
		PartnerID:  params.Get("partner_id"),
		Year:       year,
		Month:      month,
	}
	if params.Has("agreement_id") {
		agreementID := params.Get("agreement_id")
		query.AgreementID = &agreementID
	}

	if raw := params.Get("months"); raw != "" {
		months, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "months must be an integer", h.logger)
			return
		}
		history, err := h.balances.BalanceHistory(r.Context(), query, months)
		if err != nil {
			respond.Err(w, err, h.logger)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]interface{}{"balances": history}, h.logger)
		return
	}

	result, err := h.balances.OutstandingBalance(r.Context(), query)
	if err != nil {
		respond.Err(w, err, h.logger)
		return
	}
	respond.JSON(w, http.StatusOK, result, h.logger)
}
