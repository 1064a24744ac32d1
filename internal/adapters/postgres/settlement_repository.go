package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

const settlementColumns = `id::text, agreement_id::text, year, month, raw_partner_share_minor,
	raw_merchant_share_minor, minimum_guarantee_minor, adjustment_minor, final_partner_share_minor,
	transaction_count, settled_at`

// SettlementRepository implements ports.SettlementRepository using pgx
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db ports.DBPort) *SettlementRepository {
	return &SettlementRepository{pool: db.GetDB()}
}

// GetByPeriod returns the marker for an agreement-month
func (r *SettlementRepository) GetByPeriod(ctx context.Context, db ports.DBTX, agreementID string, year, month int) (*domain.Settlement, error) {
	var s domain.Settlement
	err := querier(r.pool, db).QueryRow(ctx, `
		SELECT `+settlementColumns+`
		FROM agreement_settlements
		WHERE agreement_id = $1 AND year = $2 AND month = $3`,
		agreementID, year, month,
	).Scan(
		&s.ID,
		&s.AgreementID,
		&s.Year,
		&s.Month,
		&s.RawPartnerShareMinor,
		&s.RawMerchantShareMinor,
		&s.MinimumGuaranteeMinor,
		&s.AdjustmentMinor,
		&s.FinalPartnerShareMinor,
		&s.TransactionCount,
		&s.SettledAt,
	)
	if isNoRows(err) {
		return nil, domain.ErrSettlementNotFound.
			WithDetail("agreement_id", agreementID).
			WithDetail("period", fmt.Sprintf("%04d-%02d", year, month))
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement by period: %w", err)
	}
	return &s, nil
}

// Create inserts the marker and its per-link adjustments. The unique (agreement, year, month)
// constraint decides between concurrent runs; the loser gets created=false and writes nothing.
func (r *SettlementRepository) Create(ctx context.Context, tx ports.DBTX, settlement *domain.Settlement, adjustments []domain.SettlementAdjustment) (bool, error) {
	settlement.ID = newID(settlement.ID)
	q := querier(r.pool, tx)

	tag, err := q.Exec(ctx, `
		INSERT INTO agreement_settlements (id, agreement_id, year, month, raw_partner_share_minor,
			raw_merchant_share_minor, minimum_guarantee_minor, adjustment_minor,
			final_partner_share_minor, transaction_count, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (agreement_id, year, month) DO NOTHING`,
		settlement.ID,
		settlement.AgreementID,
		settlement.Year,
		settlement.Month,
		settlement.RawPartnerShareMinor,
		settlement.RawMerchantShareMinor,
		settlement.MinimumGuaranteeMinor,
		settlement.AdjustmentMinor,
		settlement.FinalPartnerShareMinor,
		settlement.TransactionCount,
		settlement.SettledAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("create settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if len(adjustments) == 0 {
		return true, nil
	}

	linkIDs := make([]string, len(adjustments))
	amounts := make([]int64, len(adjustments))
	for i, adj := range adjustments {
		linkIDs[i] = adj.SplitLinkID
		amounts[i] = adj.AdjustmentMinor
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO settlement_adjustments (settlement_id, split_link_id, adjustment_minor)
		SELECT $1, u.link_id, u.amount
		FROM unnest($2::uuid[], $3::bigint[]) AS u(link_id, amount)`,
		settlement.ID, linkIDs, amounts,
	); err != nil {
		return false, fmt.Errorf("create settlement adjustments: %w", err)
	}
	return true, nil
}

// Delete removes the marker for an agreement-month; its adjustments cascade
func (r *SettlementRepository) Delete(ctx context.Context, tx ports.DBTX, agreementID string, year, month int) (bool, error) {
	tag, err := querier(r.pool, tx).Exec(ctx, `
		DELETE FROM agreement_settlements WHERE agreement_id = $1 AND year = $2 AND month = $3`,
		agreementID, year, month)
	if err != nil {
		return false, fmt.Errorf("delete settlement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAdjustments returns the per-link adjustments of a settlement
func (r *SettlementRepository) ListAdjustments(ctx context.Context, db ports.DBTX, settlementID string) ([]domain.SettlementAdjustment, error) {
	rows, err := querier(r.pool, db).Query(ctx, `
		SELECT settlement_id::text, split_link_id::text, adjustment_minor
		FROM settlement_adjustments
		WHERE settlement_id = $1
		ORDER BY split_link_id`,
		settlementID)
	if err != nil {
		return nil, fmt.Errorf("list settlement adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []domain.SettlementAdjustment
	for rows.Next() {
		var adj domain.SettlementAdjustment
		if err := rows.Scan(&adj.SettlementID, &adj.SplitLinkID, &adj.AdjustmentMinor); err != nil {
			return nil, fmt.Errorf("scan settlement adjustment: %w", err)
		}
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settlement adjustments: %w", err)
	}
	return adjustments, nil
}
