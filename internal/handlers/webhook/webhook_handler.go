package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/adapters/gateway"
	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	"github.com/kevin07696/revenue-share-service/internal/handlers/respond"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
	"github.com/kevin07696/revenue-share-service/pkg/resilience"
)

// EndpointIDParam names the route parameter carrying the endpoint id
const EndpointIDParam = "endpointID"

const defaultMaxBodyBytes = 5 << 20

// Delivery is the body the gateway posts
type Delivery struct {
	Events []domain.GatewayEvent `json:"events"`
}

// Handler receives gateway event deliveries. Each merchant registers its own endpoint id,
// so one lookup resolves both the merchant and the secret that signs its deliveries.
type Handler struct {
	endpoints    ports.WebhookEndpointRepository
	secrets      adapterports.SecretManagerAdapter
	ingestion    serviceports.IngestionService
	timeouts     *resilience.TimeoutConfig
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewHandler creates the webhook handler
func NewHandler(
	endpoints ports.WebhookEndpointRepository,
	secrets adapterports.SecretManagerAdapter,
	ingestion serviceports.IngestionService,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		endpoints:    endpoints,
		secrets:      secrets,
		ingestion:    ingestion,
		timeouts:     timeouts,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// HandleGatewayEvents handles POST /webhooks/gateway/{endpointID}
func (h *Handler) HandleGatewayEvents(w http.ResponseWriter, r *http.Request) {
	endpointID := chi.URLParam(r, EndpointIDParam)

	ctx, cancel := h.timeouts.WebhookContext(r.Context())
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, "too_large", http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.reject(w, "bad_request", http.StatusBadRequest, "failed to read request body")
		return
	}

	endpoint, err := h.endpoints.GetByID(ctx, nil, endpointID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.reject(w, "not_found", http.StatusNotFound, "unknown webhook endpoint")
			return
		}
		observability.RecordWebhookRequest("error")
		respond.Err(w, err, h.logger)
		return
	}
	if !endpoint.IsActive {
		h.logger.Warn("Delivery to inactive webhook endpoint", zap.String("endpoint_id", endpointID))
		h.reject(w, "not_found", http.StatusNotFound, "unknown webhook endpoint")
		return
	}

	valid, err := h.verifySignature(ctx, endpoint, body, r.Header.Get(gateway.SignatureHeader))
	if err != nil {
		h.logger.Error("Failed to load webhook signing key",
			zap.String("endpoint_id", endpoint.ID),
			zap.String("secret_path", endpoint.SecretPath),
			zap.Error(err),
		)
		observability.RecordWebhookRequest("error")
		respond.Error(w, http.StatusInternalServerError, "internal server error", h.logger)
		return
	}
	if !valid {
		h.logger.Warn("Webhook signature rejected",
			zap.String("endpoint_id", endpoint.ID),
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.reject(w, "invalid_signature", http.StatusUnauthorized, "invalid signature")
		return
	}

	var delivery Delivery
	if err := json.Unmarshal(body, &delivery); err != nil {
		h.reject(w, "bad_request", http.StatusBadRequest, "invalid delivery payload")
		return
	}

	result, err := h.ingestion.IngestEvents(ctx, endpoint.MerchantID, serviceports.SourceWebhook, delivery.Events)
	if err != nil {
		observability.RecordWebhookRequest("error")
		respond.Err(w, err, h.logger)
		return
	}

	observability.RecordWebhookRequest("accepted")
	respond.JSON(w, http.StatusOK, result, h.logger)
}

// verifySignature checks the current signing key first, then the previous version
// so deliveries signed just before a rotation still verify.
func (h *Handler) verifySignature(ctx context.Context, endpoint *domain.WebhookEndpoint, body []byte, signature string) (bool, error) {
	if signature == "" {
		return false, nil
	}

	current, err := h.secrets.GetSecret(ctx, endpoint.SecretPath)
	if err != nil {
		return false, err
	}
	if gateway.ValidateSignature(current.Value, body, signature) {
		return true, nil
	}

	previous, err := h.secrets.GetSecretVersion(ctx, endpoint.SecretPath, adapterports.PreviousVersion)
	if err != nil {
		h.logger.Debug("No previous signing key to fall back to",
			zap.String("endpoint_id", endpoint.ID),
			zap.Error(err),
		)
		return false, nil
	}
	if gateway.ValidateSignature(previous.Value, body, signature) {
		h.logger.Info("Webhook verified with previous signing key",
			zap.String("endpoint_id", endpoint.ID),
			zap.String("version", previous.Version),
		)
		return true, nil
	}
	return false, nil
}

func (h *Handler) reject(w http.ResponseWriter, result string, status int, message string) {
	observability.RecordWebhookRequest(result)
	respond.Error(w, status, message, h.logger)
}
