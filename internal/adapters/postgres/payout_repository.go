package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

const payoutColumns = `id::text, merchant_id, partner_id, amount_minor, currency, status, scheduled_date,
	completed_at, external_source_id, metadata, created_at, updated_at`

// PayoutRepository implements ports.PayoutRepository using pgx
type PayoutRepository struct {
	pool *pgxpool.Pool
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db ports.DBPort) *PayoutRepository {
	return &PayoutRepository{pool: db.GetDB()}
}

// UpsertByExternalID inserts the payout or refreshes the stored one with the same
// (merchant_id, external_source_id)
func (r *PayoutRepository) UpsertByExternalID(ctx context.Context, tx ports.DBTX, payout *domain.Payout) (*domain.Payout, bool, error) {
	if err := payout.Validate(); err != nil {
		return nil, false, err
	}

	// Convert metadata map to JSON bytes
	metadataBytes := []byte("{}")
	if payout.Metadata != nil {
		var err error
		metadataBytes, err = json.Marshal(payout.Metadata)
		if err != nil {
			return nil, false, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	var inserted bool
	stored, err := scanPayout(querier(r.pool, tx).QueryRow(ctx, `
		INSERT INTO payouts (id, merchant_id, partner_id, amount_minor, currency, status,
			scheduled_date, completed_at, external_source_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (merchant_id, external_source_id) DO UPDATE SET
			amount_minor = EXCLUDED.amount_minor,
			status       = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			metadata     = EXCLUDED.metadata,
			updated_at   = NOW()
		RETURNING `+payoutColumns+`, (xmax = 0)`,
		newID(payout.ID),
		payout.MerchantID,
		payout.PartnerID,
		payout.AmountMinor,
		payout.Currency,
		string(payout.Status),
		payout.ScheduledDate.UTC(),
		payout.CompletedAt,
		payout.ExternalSourceID,
		metadataBytes,
	), &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert payout: %w", err)
	}
	return stored, inserted, nil
}

// ListCompleted returns the COMPLETED payouts from merchant to partner effective in [start, end)
func (r *PayoutRepository) ListCompleted(ctx context.Context, db ports.DBTX, merchantID, partnerID string, start, end time.Time) ([]*domain.Payout, error) {
	rows, err := querier(r.pool, db).Query(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE merchant_id = $1
		  AND partner_id = $2
		  AND status = 'COMPLETED'
		  AND COALESCE(completed_at, scheduled_date) >= $3
		  AND COALESCE(completed_at, scheduled_date) < $4
		ORDER BY COALESCE(completed_at, scheduled_date)`,
		merchantID, partnerID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list completed payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*domain.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list completed payouts: %w", err)
	}
	return payouts, nil
}

func scanPayout(row scanner, extra ...interface{}) (*domain.Payout, error) {
	var (
		p        domain.Payout
		status   string
		metadata []byte
	)
	dest := []interface{}{
		&p.ID,
		&p.MerchantID,
		&p.PartnerID,
		&p.AmountMinor,
		&p.Currency,
		&status,
		&p.ScheduledDate,
		&p.CompletedAt,
		&p.ExternalSourceID,
		&metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.Status = domain.PayoutStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &p, nil
}
