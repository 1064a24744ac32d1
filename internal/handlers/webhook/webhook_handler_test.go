package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/adapters/gateway"
	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/internal/testutil/mocks"
	"github.com/kevin07696/revenue-share-service/pkg/resilience"
)

const (
	secretPath    = "revenue-share/webhooks/endpoint-1"
	currentKey    = "whsec_current"
	previousKey   = "whsec_previous"
	deliveryBody  = `{"events":[{"type":"transaction","external_id":"ch_1","kind":"PAYMENT","status":"COMPLETED","currency":"USD","amount_minor":1000,"occurred_at":"2024-03-15T10:00:00Z"}]}`
	routePattern  = "/webhooks/gateway/{" + EndpointIDParam + "}"
	activeTarget  = "/webhooks/gateway/endpoint-1"
	inactiveRoute = "/webhooks/gateway/endpoint-off"
)

type webhookTestEnv struct {
	store     *mocks.Store
	secrets   *mocks.MockSecretManager
	ingestion *mocks.MockIngestionService
	handler   *Handler
	router    http.Handler
}

func newWebhookTestEnv(t *testing.T) *webhookTestEnv {
	t.Helper()
	ctx := context.Background()
	store := mocks.NewStore()
	require.NoError(t, store.WebhookEndpoints().Create(ctx, nil, &domain.WebhookEndpoint{
		ID: "endpoint-1", MerchantID: "merchant-1", SecretPath: secretPath, IsActive: true,
	}))
	require.NoError(t, store.WebhookEndpoints().Create(ctx, nil, &domain.WebhookEndpoint{
		ID: "endpoint-off", MerchantID: "merchant-2", SecretPath: "revenue-share/webhooks/endpoint-off", IsActive: false,
	}))

	env := &webhookTestEnv{
		store:     store,
		secrets:   new(mocks.MockSecretManager),
		ingestion: new(mocks.MockIngestionService),
	}
	env.handler = NewHandler(store.WebhookEndpoints(), env.secrets, env.ingestion, resilience.TestTimeoutConfig(), zap.NewNop())

	r := chi.NewRouter()
	r.Post(routePattern, env.handler.HandleGatewayEvents)
	env.router = r

	t.Cleanup(func() {
		env.secrets.AssertExpectations(t)
		env.ingestion.AssertExpectations(t)
	})
	return env
}

func (e *webhookTestEnv) deliver(target, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if signature != "" {
		req.Header.Set(gateway.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func secret(value, version string) *adapterports.Secret {
	return &adapterports.Secret{Value: value, Version: version}
}

func TestHandleGatewayEvents_Accepted(t *testing.T) {
	env := newWebhookTestEnv(t)
	env.secrets.On("GetSecret", mock.Anything, secretPath).Return(secret(currentKey, "v2"), nil)
	env.ingestion.On("IngestEvents", mock.Anything, "merchant-1", serviceports.SourceWebhook,
		mock.MatchedBy(func(events []domain.GatewayEvent) bool {
			return len(events) == 1 &&
				events[0].ExternalID == "ch_1" &&
				events[0].AmountMinor == 1000 &&
				events[0].OccurredAt.Equal(time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
		}),
	).Return(&serviceports.IngestResult{Received: 1, Created: 1}, nil)

	rec := env.deliver(activeTarget, deliveryBody, "sha256="+gateway.CalculateSignature(currentKey, []byte(deliveryBody)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":1,"created":1,"updated":0,"duplicates":0,"failed":0}`, rec.Body.String())
}

func TestHandleGatewayEvents_PreviousKeyDuringRotation(t *testing.T) {
	env := newWebhookTestEnv(t)
	env.secrets.On("GetSecret", mock.Anything, secretPath).Return(secret(currentKey, "v2"), nil)
	env.secrets.On("GetSecretVersion", mock.Anything, secretPath, adapterports.PreviousVersion).Return(secret(previousKey, "v1"), nil)
	env.ingestion.On("IngestEvents", mock.Anything, "merchant-1", serviceports.SourceWebhook, mock.Anything).
		Return(&serviceports.IngestResult{Received: 1, Duplicates: 1}, nil)

	rec := env.deliver(activeTarget, deliveryBody, gateway.CalculateSignature(previousKey, []byte(deliveryBody)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGatewayEvents_Rejections(t *testing.T) {
	validSignature := gateway.CalculateSignature(currentKey, []byte(deliveryBody))

	tests := []struct {
		name      string
		target    string
		body      string
		signature string
		setup     func(env *webhookTestEnv)
		want      int
	}{
		{
			name:      "unknown endpoint",
			target:    "/webhooks/gateway/endpoint-404",
			body:      deliveryBody,
			signature: validSignature,
			want:      http.StatusNotFound,
		},
		{
			name:      "inactive endpoint",
			target:    inactiveRoute,
			body:      deliveryBody,
			signature: validSignature,
			want:      http.StatusNotFound,
		},
		{
			name:   "missing signature",
			target: activeTarget,
			body:   deliveryBody,
			want:   http.StatusUnauthorized,
		},
		{
			name:      "signature from another key",
			target:    activeTarget,
			body:      deliveryBody,
			signature: gateway.CalculateSignature("whsec_attacker", []byte(deliveryBody)),
			setup: func(env *webhookTestEnv) {
				env.secrets.On("GetSecret", mock.Anything, secretPath).Return(secret(currentKey, "v2"), nil)
				env.secrets.On("GetSecretVersion", mock.Anything, secretPath, adapterports.PreviousVersion).Return(secret(previousKey, "v1"), nil)
			},
			want: http.StatusUnauthorized,
		},
		{
			name:      "no previous version to fall back to",
			target:    activeTarget,
			body:      deliveryBody,
			signature: gateway.CalculateSignature(previousKey, []byte(deliveryBody)),
			setup: func(env *webhookTestEnv) {
				env.secrets.On("GetSecret", mock.Anything, secretPath).Return(secret(currentKey, "v1"), nil)
				env.secrets.On("GetSecretVersion", mock.Anything, secretPath, adapterports.PreviousVersion).Return(nil, errors.New("no previous version"))
			},
			want: http.StatusUnauthorized,
		},
		{
			name:      "signing key unavailable",
			target:    activeTarget,
			body:      deliveryBody,
			signature: validSignature,
			setup: func(env *webhookTestEnv) {
				env.secrets.On("GetSecret", mock.Anything, secretPath).Return(nil, errors.New("secrets backend down"))
			},
			want: http.StatusInternalServerError,
		},
		{
			name:      "malformed payload",
			target:    activeTarget,
			body:      `{"events":`,
			signature: gateway.CalculateSignature(currentKey, []byte(`{"events":`)),
			setup: func(env *webhookTestEnv) {
				env.secrets.On("GetSecret", mock.Anything, secretPath).Return(secret(currentKey, "v2"), nil)
			},
			want: http.StatusBadRequest,
		},
		{
			name:      "ingestion rejects the merchant",
			target:    activeTarget,
			body:      deliveryBody,
			signature: validSignature,
			setup: func(env *webhookTestEnv) {
				env.secrets.On("GetSecret", mock.Anything, secretPath).Return(secret(currentKey, "v2"), nil)
				env.ingestion.On("IngestEvents", mock.Anything, "merchant-1", serviceports.SourceWebhook, mock.Anything).
					Return(nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id"))
			},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newWebhookTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}
			rec := env.deliver(tt.target, tt.body, tt.signature)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleGatewayEvents_EndpointLookupFailure(t *testing.T) {
	env := newWebhookTestEnv(t)
	env.store.FailOn("WebhookEndpoints.GetByID", errors.New("connection refused"))

	rec := env.deliver(activeTarget, deliveryBody, gateway.CalculateSignature(currentKey, []byte(deliveryBody)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleGatewayEvents_BodyTooLarge(t *testing.T) {
	env := newWebhookTestEnv(t)
	env.handler.maxBodyBytes = 16

	body := bytes.Repeat([]byte("x"), 64)
	rec := env.deliver(activeTarget, string(body), gateway.CalculateSignature(currentKey, body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
