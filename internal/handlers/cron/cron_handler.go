package cron

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/handlers/respond"
	"github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/resilience"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

// SecretHeader carries the shared secret of the scheduler
const SecretHeader = "X-Cron-Secret"

const dateLayout = "2006-01-02"

// Handler serves the scheduler-triggered batch endpoints
type Handler struct {
	settlements  ports.SettlementService
	ingestion    ports.IngestionService
	revenueShare ports.RevenueShareService
	timeouts     *resilience.TimeoutConfig
	logger       *zap.Logger
	cronSecret   string
	now          func() time.Time
}

// NewHandler creates the cron handler
func NewHandler(
	settlements ports.SettlementService,
	ingestion ports.IngestionService,
	revenueShare ports.RevenueShareService,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
	cronSecret string,
) *Handler {
	return &Handler{
		settlements:  settlements,
		ingestion:    ingestion,
		revenueShare: revenueShare,
		timeouts:     timeouts,
		logger:       logger,
		cronSecret:   cronSecret,
		now:          timeutil.Now,
	}
}

// SettleMonthRequest is the body of POST /cron/settle-month. Year and month default
// to the previous calendar month; without an agreement every active agreement is settled.
type SettleMonthRequest struct {
	AgreementID *string `json:"agreement_id"`
	Year        *int    `json:"year"`
	Month       *int    `json:"month"`
}

// RevertMonthRequest is the body of POST /cron/revert-settlement
type RevertMonthRequest struct {
	AgreementID string `json:"agreement_id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
}

// SyncRequest is the body of POST /cron/sync-transactions
type SyncRequest struct {
	MerchantID *string `json:"merchant_id"` // Optional: defaults to every merchant with an active endpoint
}

// RecalculateRequest is the body of POST /cron/recalculate. Both dates are inclusive.
type RecalculateRequest struct {
	MerchantID string `json:"merchant_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// RunResponse wraps the result of a cron run
type RunResponse struct {
	Success     bool        `json:"success"`
	ProcessedAt string      `json:"processed_at"`
	Result      interface{} `json:"result"`
}

// Authenticate rejects requests without the scheduler secret
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authenticateRequest(r) {
			h.logger.Warn("Unauthorized cron request",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			respond.Error(w, http.StatusUnauthorized, "unauthorized", h.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	provided := r.Header.Get(SecretHeader)
	if provided == "" {
		provided = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(h.cronSecret)) == 1
}

// SettleMonth handles POST /cron/settle-month
func (h *Handler) SettleMonth(w http.ResponseWriter, r *http.Request) {
	var req SettleMonthRequest
	if err := decodeOptional(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	year, month, err := h.resolvePeriod(req.Year, req.Month)
	if err != nil {
		respond.Err(w, err, h.logger)
		return
	}

	ctx, cancel := h.timeouts.CronContext(r.Context())
	defer cancel()

	if req.AgreementID != nil {
		result, err := h.settlements.SettleMonth(ctx, *req.AgreementID, year, month)
		if err != nil {
			respond.Err(w, err, h.logger)
			return
		}
		h.respondRun(w, true, result)
		return
	}

	h.logger.Info("Settlement cron job triggered", zap.Int("year", year), zap.Int("month", month))

	result, err := h.settlements.SettleAllAgreements(ctx, year, month)
	if err != nil {
		respond.Err(w, err, h.logger)
		return
	}

	h.logger.Info("Settlement run completed",
		zap.Int("agreements", len(result.Results)),
		zap.Int("adjusted", result.Adjusted),
		zap.Int("already_applied", result.AlreadyApplied),
		zap.Int("errors", len(result.Errors)),
	)
	h.respondRun(w, len(result.Errors) == 0, result)
}

// RevertMonth handles POST /cron/revert-settlement
func (h *Handler) RevertMonth(w http.ResponseWriter, r *http.Request) {
	var req RevertMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	ctx, cancel := h.timeouts.CronContext(r.Context())
	defer cancel()

	if err := h.settlements.RevertMonth(ctx, req.AgreementID, req.Year, req.Month); err != nil {
		respond.Err(w, err, h.logger)
		return
	}

	h.logger.Info("Settlement reverted",
		zap.String("agreement_id", req.AgreementID),
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
	)
	h.respondRun(w, true, req)
}

// SyncTransactions handles POST /cron/sync-transactions
func (h *Handler) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := decodeOptional(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	ctx, cancel := h.timeouts.CronContext(r.Context())
	defer cancel()

	if req.MerchantID != nil {
		result, err := h.ingestion.SyncMerchant(ctx, *req.MerchantID)
		if err != nil {
			respond.Err(w, err, h.logger)
			return
		}
		h.respondRun(w, result.Ingest == nil || result.Ingest.Failed == 0, result)
		return
	}

	result, err := h.ingestion.SyncAll(ctx)
	if err != nil {
		respond.Err(w, err, h.logger)
		return
	}

	h.logger.Info("Sync run completed",
		zap.Int("merchants", result.Merchants),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	h.respondRun(w, result.Failed == 0, result)
}

// Recalculate handles POST /cron/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	start, err := timeutil.ParseDate(dateLayout, req.StartDate)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid start_date format: %v", err), h.logger)
		return
	}
	lastDay, err := timeutil.ParseDate(dateLayout, req.EndDate)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid end_date format: %v", err), h.logger)
		return
	}
	end := lastDay.AddDate(0, 0, 1)

	ctx, cancel := h.timeouts.CronContext(r.Context())
	defer cancel()

	result, err := h.revenueShare.BulkRecalculate(ctx, req.MerchantID, start, end)
	if err != nil {
		respond.Err(w, err, h.logger)
		return
	}

	h.logger.Info("Recalculation completed",
		zap.String("merchant_id", req.MerchantID),
		zap.Int("processed", result.Processed),
		zap.Int("recorded", result.Recorded),
		zap.Int("errors", len(result.Errors)),
	)
	h.respondRun(w, len(result.Errors) == 0, result)
}

// HealthCheck handles GET /cron/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	}, h.logger)
}

func (h *Handler) resolvePeriod(year, month *int) (int, int, error) {
	if year == nil && month == nil {
		y, m := timeutil.PreviousMonth(h.now())
		return y, int(m), nil
	}
	if year == nil || month == nil {
		return 0, 0, domain.ErrSettlementPeriodInvalid.WithDetail("reason", "year and month must be given together")
	}
	if err := domain.ValidatePeriod(*year, *month); err != nil {
		return 0, 0, err
	}
	return *year, *month, nil
}

// respondRun answers 200 on full success and 206 when some items failed
func (h *Handler) respondRun(w http.ResponseWriter, success bool, result interface{}) {
	status := http.StatusOK
	if !success {
		status = http.StatusPartialContent
	}
	respond.JSON(w, status, RunResponse{
		Success:     success,
		ProcessedAt: h.now().Format(time.RFC3339),
		Result:      result,
	}, h.logger)
}

// decodeOptional decodes a body when one was sent
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
