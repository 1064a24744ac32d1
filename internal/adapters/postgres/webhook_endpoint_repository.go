package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

// WebhookEndpointRepository implements ports.WebhookEndpointRepository using pgx
type WebhookEndpointRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookEndpointRepository creates a new webhook endpoint repository
func NewWebhookEndpointRepository(db ports.DBPort) *WebhookEndpointRepository {
	return &WebhookEndpointRepository{pool: db.GetDB()}
}

// GetByID retrieves an endpoint by the id carried in its URL
func (r *WebhookEndpointRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.WebhookEndpoint, error) {
	var e domain.WebhookEndpoint
	err := querier(r.pool, db).QueryRow(ctx, `
		SELECT id, merchant_id, secret_path, is_active, created_at
		FROM webhook_endpoints
		WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.MerchantID, &e.SecretPath, &e.IsActive, &e.CreatedAt)
	if isNoRows(err) {
		return nil, domain.ErrWebhookEndpointNotFound.WithDetail("endpoint_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook endpoint: %w", err)
	}
	return &e, nil
}

// Create registers an endpoint for a merchant
func (r *WebhookEndpointRepository) Create(ctx context.Context, tx ports.DBTX, endpoint *domain.WebhookEndpoint) error {
	if endpoint.ID == "" || endpoint.MerchantID == "" || endpoint.SecretPath == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "id, merchant_id and secret_path")
	}
	if endpoint.CreatedAt.IsZero() {
		endpoint.CreatedAt = timeutil.Now()
	}
	_, err := querier(r.pool, tx).Exec(ctx, `
		INSERT INTO webhook_endpoints (id, merchant_id, secret_path, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		endpoint.ID, endpoint.MerchantID, endpoint.SecretPath, endpoint.IsActive, endpoint.CreatedAt)
	if err != nil {
		return fmt.Errorf("create webhook endpoint: %w", err)
	}
	return nil
}

// ListActiveMerchantIDs returns the merchants with at least one active endpoint
func (r *WebhookEndpointRepository) ListActiveMerchantIDs(ctx context.Context, db ports.DBTX) ([]string, error) {
	rows, err := querier(r.pool, db).Query(ctx, `
		SELECT DISTINCT merchant_id FROM webhook_endpoints WHERE is_active ORDER BY merchant_id`)
	if err != nil {
		return nil, fmt.Errorf("list active merchants: %w", err)
	}
	defer rows.Close()

	var merchantIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merchant id: %w", err)
		}
		merchantIDs = append(merchantIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active merchants: %w", err)
	}
	return merchantIDs, nil
}

// SyncCursorRepository implements ports.SyncCursorRepository using pgx
type SyncCursorRepository struct {
	pool *pgxpool.Pool
}

// NewSyncCursorRepository creates a new sync cursor repository
func NewSyncCursorRepository(db ports.DBPort) *SyncCursorRepository {
	return &SyncCursorRepository{pool: db.GetDB()}
}

// Get returns the merchant's cursor, or nil when the merchant has never synced
func (r *SyncCursorRepository) Get(ctx context.Context, db ports.DBTX, merchantID string) (*domain.SyncCursor, error) {
	var c domain.SyncCursor
	err := querier(r.pool, db).QueryRow(ctx, `
		SELECT merchant_id, cursor, last_synced_at FROM sync_cursors WHERE merchant_id = $1`,
		merchantID,
	).Scan(&c.MerchantID, &c.Cursor, &c.LastSyncedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync cursor: %w", err)
	}
	return &c, nil
}

// Save stores the merchant's cursor
func (r *SyncCursorRepository) Save(ctx context.Context, tx ports.DBTX, cursor *domain.SyncCursor) error {
	if cursor.LastSyncedAt.IsZero() {
		cursor.LastSyncedAt = timeutil.Now()
	}
	_, err := querier(r.pool, tx).Exec(ctx, `
		INSERT INTO sync_cursors (merchant_id, cursor, last_synced_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (merchant_id) DO UPDATE SET
			cursor         = EXCLUDED.cursor,
			last_synced_at = EXCLUDED.last_synced_at`,
		cursor.MerchantID, cursor.Cursor, cursor.LastSyncedAt.UTC())
	if err != nil {
		return fmt.Errorf("save sync cursor: %w", err)
	}
	return nil
}
