package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

const agreementColumns = `id::text, merchant_id, partner_id, client_id, type, percentage_rate,
	minimum_guarantee_minor, currency, priority, is_active, effective_from, effective_to,
	created_at, updated_at`

// AgreementRepository implements ports.AgreementRepository using pgx
type AgreementRepository struct {
	pool *pgxpool.Pool
}

// NewAgreementRepository creates a new agreement repository
func NewAgreementRepository(db ports.DBPort) *AgreementRepository {
	return &AgreementRepository{pool: db.GetDB()}
}

// Create inserts a new agreement
func (r *AgreementRepository) Create(ctx context.Context, tx ports.DBTX, agreement *domain.Agreement) error {
	if err := agreement.Validate(); err != nil {
		return err
	}

	agreement.ID = newID(agreement.ID)
	now := timeutil.Now()
	if agreement.CreatedAt.IsZero() {
		agreement.CreatedAt = now
	}
	agreement.UpdatedAt = now

	_, err := querier(r.pool, tx).Exec(ctx, `
		INSERT INTO agreements (id, merchant_id, partner_id, client_id, type, percentage_rate,
			minimum_guarantee_minor, currency, priority, is_active, effective_from, effective_to,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11::date, $12::date, $13, $14)`,
		agreement.ID,
		agreement.MerchantID,
		agreement.PartnerID,
		agreement.ClientID,
		string(agreement.Type),
		agreement.PercentageRate.String(),
		agreement.MinimumGuaranteeMinor,
		agreement.Currency,
		agreement.Priority,
		agreement.IsActive,
		timeutil.StartOfDay(agreement.EffectiveFrom),
		agreement.EffectiveTo,
		agreement.CreatedAt,
		agreement.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create agreement: %w", err)
	}
	return nil
}

// GetByID retrieves an agreement by its ID
func (r *AgreementRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Agreement, error) {
	if !isUUID(id) {
		return nil, domain.ErrAgreementNotFound.WithDetail("agreement_id", id)
	}

	row := querier(r.pool, db).QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id)
	agreement, err := scanAgreement(row)
	if isNoRows(err) {
		return nil, domain.ErrAgreementNotFound.WithDetail("agreement_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agreement by id: %w", err)
	}
	return agreement, nil
}

// ListCandidates returns the merchant's active agreements effective on the date that are
// global or scoped to the client
func (r *AgreementRepository) ListCandidates(ctx context.Context, db ports.DBTX, merchantID string, date time.Time, clientID *string) ([]*domain.Agreement, error) {
	return r.list(ctx, db, "list candidate agreements", `
		SELECT `+agreementColumns+`
		FROM agreements
		WHERE merchant_id = $1
		  AND is_active
		  AND effective_from <= $2::date
		  AND (effective_to IS NULL OR effective_to >= $2::date)
		  AND (client_id IS NULL OR client_id = $3)`,
		merchantID, timeutil.StartOfDay(date), clientID)
}

// ListActiveInPeriod returns agreements active on at least one day of [start, end)
func (r *AgreementRepository) ListActiveInPeriod(ctx context.Context, db ports.DBTX, start, end time.Time) ([]*domain.Agreement, error) {
	return r.list(ctx, db, "list agreements active in period", `
		SELECT `+agreementColumns+`
		FROM agreements
		WHERE is_active
		  AND effective_from < $2::date
		  AND (effective_to IS NULL OR effective_to >= $1::date)
		ORDER BY merchant_id, id`,
		timeutil.StartOfDay(start), timeutil.StartOfDay(end))
}

// ListByMerchantAndPartner returns all agreements between a merchant and a partner
func (r *AgreementRepository) ListByMerchantAndPartner(ctx context.Context, db ports.DBTX, merchantID, partnerID string) ([]*domain.Agreement, error) {
	return r.list(ctx, db, "list agreements by merchant and partner", `
		SELECT `+agreementColumns+`
		FROM agreements
		WHERE merchant_id = $1 AND partner_id = $2
		ORDER BY effective_from`,
		merchantID, partnerID)
}

func (r *AgreementRepository) list(ctx context.Context, db ports.DBTX, op, query string, args ...interface{}) ([]*domain.Agreement, error) {
	rows, err := querier(r.pool, db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var agreements []*domain.Agreement
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		agreements = append(agreements, agreement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return agreements, nil
}

func scanAgreement(row scanner) (*domain.Agreement, error) {
	var (
		a       domain.Agreement
		agrType string
		rate    pgtype.Numeric
	)
	err := row.Scan(
		&a.ID,
		&a.MerchantID,
		&a.PartnerID,
		&a.ClientID,
		&agrType,
		&rate,
		&a.MinimumGuaranteeMinor,
		&a.Currency,
		&a.Priority,
		&a.IsActive,
		&a.EffectiveFrom,
		&a.EffectiveTo,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AgreementType(agrType)
	a.PercentageRate, err = pgNumericToDecimal(rate)
	if err != nil {
		return nil, fmt.Errorf("convert percentage rate: %w", err)
	}
	return &a, nil
}
