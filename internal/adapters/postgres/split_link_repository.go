package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

const splitLinkColumns = `id::text, transaction_id::text, agreement_id::text, partner_share_minor,
	merchant_share_minor, calculation_method, created_at, updated_at`

// SplitLinkRepository implements ports.SplitLinkRepository using pgx
type SplitLinkRepository struct {
	pool *pgxpool.Pool
}

// NewSplitLinkRepository creates a new split link repository
func NewSplitLinkRepository(db ports.DBPort) *SplitLinkRepository {
	return &SplitLinkRepository{pool: db.GetDB()}
}

// Upsert inserts the link or overwrites the shares of the existing (transaction, agreement) link
func (r *SplitLinkRepository) Upsert(ctx context.Context, tx ports.DBTX, link *domain.SplitLink) (*domain.SplitLink, error) {
	row := querier(r.pool, tx).QueryRow(ctx, `
		INSERT INTO transaction_agreement_links (id, transaction_id, agreement_id, partner_share_minor,
			merchant_share_minor, calculation_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (transaction_id, agreement_id) DO UPDATE SET
			partner_share_minor  = EXCLUDED.partner_share_minor,
			merchant_share_minor = EXCLUDED.merchant_share_minor,
			calculation_method   = EXCLUDED.calculation_method,
			updated_at           = NOW()
		RETURNING `+splitLinkColumns,
		newID(link.ID),
		link.TransactionID,
		link.AgreementID,
		link.PartnerShareMinor,
		link.MerchantShareMinor,
		string(link.CalculationMethod),
	)

	stored, err := scanSplitLink(row)
	if err != nil {
		return nil, fmt.Errorf("upsert split link: %w", err)
	}
	return stored, nil
}

// DeleteByTransaction removes every link of a transaction. Links that still carry a
// settlement adjustment are protected by the schema and yield ErrSplitLinkSettled.
func (r *SplitLinkRepository) DeleteByTransaction(ctx context.Context, tx ports.DBTX, transactionID string) (int64, error) {
	tag, err := querier(r.pool, tx).Exec(ctx, `
		DELETE FROM transaction_agreement_links WHERE transaction_id = $1`, transactionID)
	if isForeignKeyViolation(err) {
		return 0, domain.ErrSplitLinkSettled.WithDetail("transaction_id", transactionID)
	}
	if err != nil {
		return 0, fmt.Errorf("delete split links: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByTransactionExceptAgreement removes the transaction's links under any other agreement
func (r *SplitLinkRepository) DeleteByTransactionExceptAgreement(ctx context.Context, tx ports.DBTX, transactionID, agreementID string) (int64, error) {
	tag, err := querier(r.pool, tx).Exec(ctx, `
		DELETE FROM transaction_agreement_links
		WHERE transaction_id = $1 AND agreement_id <> $2`,
		transactionID, agreementID)
	if isForeignKeyViolation(err) {
		return 0, domain.ErrSplitLinkSettled.WithDetail("transaction_id", transactionID)
	}
	if err != nil {
		return 0, fmt.Errorf("delete stale split links: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByTransaction returns the links of a transaction
func (r *SplitLinkRepository) ListByTransaction(ctx context.Context, db ports.DBTX, transactionID string) ([]*domain.SplitLink, error) {
	rows, err := querier(r.pool, db).Query(ctx, `
		SELECT `+splitLinkColumns+`
		FROM transaction_agreement_links
		WHERE transaction_id = $1
		ORDER BY created_at`,
		transactionID)
	if err != nil {
		return nil, fmt.Errorf("list split links: %w", err)
	}
	defer rows.Close()

	var links []*domain.SplitLink
	for rows.Next() {
		link, err := scanSplitLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan split link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list split links: %w", err)
	}
	return links, nil
}

// ListSettlementRows returns the agreement's links whose transaction is a COMPLETED
// PAYMENT dated in [start, end), oldest first
func (r *SplitLinkRepository) ListSettlementRows(ctx context.Context, tx ports.DBTX, agreementID string, start, end time.Time, forUpdate bool) ([]domain.SettlementRow, error) {
	query := `
		SELECT l.id::text, l.transaction_id::text, t.transaction_date, l.partner_share_minor, l.merchant_share_minor
		FROM transaction_agreement_links l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE l.agreement_id = $1
		  AND t.status = 'COMPLETED'
		  AND t.kind = 'PAYMENT'
		  AND t.transaction_date >= $2
		  AND t.transaction_date < $3
		ORDER BY t.transaction_date, l.id`
	if forUpdate {
		query += ` FOR UPDATE OF l`
	}

	rows, err := querier(r.pool, tx).Query(ctx, query, agreementID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list settlement rows: %w", err)
	}
	defer rows.Close()

	var result []domain.SettlementRow
	for rows.Next() {
		var row domain.SettlementRow
		if err := rows.Scan(
			&row.SplitLinkID,
			&row.TransactionID,
			&row.TransactionDate,
			&row.PartnerShareMinor,
			&row.MerchantShareMinor,
		); err != nil {
			return nil, fmt.Errorf("scan settlement row: %w", err)
		}
		row.TransactionDate = row.TransactionDate.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settlement rows: %w", err)
	}
	return result, nil
}

// SumEarned returns the raw partner share and the settlement adjustments of the links
// that count toward a partner's earnings for the filter
func (r *SplitLinkRepository) SumEarned(ctx context.Context, db ports.DBTX, filter ports.EarnedFilter) (int64, int64, error) {
	var raw, adjustments int64
	err := querier(r.pool, db).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(l.partner_share_minor), 0)::bigint,
			COALESCE(SUM(adj.amount), 0)::bigint
		FROM transaction_agreement_links l
		JOIN transactions t ON t.id = l.transaction_id
		JOIN agreements a ON a.id = l.agreement_id
		LEFT JOIN LATERAL (
			SELECT SUM(sa.adjustment_minor) AS amount
			FROM settlement_adjustments sa
			WHERE sa.split_link_id = l.id
		) adj ON TRUE
		WHERE t.status = 'COMPLETED'
		  AND t.kind = 'PAYMENT'
		  AND t.transaction_date >= $1
		  AND t.transaction_date < $2
		  AND a.merchant_id = $3
		  AND a.partner_id = $4
		  AND ($5::text IS NULL OR l.agreement_id::text = $5::text)`,
		filter.Start.UTC(),
		filter.End.UTC(),
		filter.MerchantID,
		filter.PartnerID,
		filter.AgreementID,
	).Scan(&raw, &adjustments)
	if err != nil {
		return 0, 0, fmt.Errorf("sum earned partner share: %w", err)
	}
	return raw, adjustments, nil
}

func scanSplitLink(row scanner) (*domain.SplitLink, error) {
	var (
		link   domain.SplitLink
		method string
	)
	if err := row.Scan(
		&link.ID,
		&link.TransactionID,
		&link.AgreementID,
		&link.PartnerShareMinor,
		&link.MerchantShareMinor,
		&method,
		&link.CreatedAt,
		&link.UpdatedAt,
	); err != nil {
		return nil, err
	}
	link.CalculationMethod = domain.CalculationMethod(method)
	return &link, nil
}
