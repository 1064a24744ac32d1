package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

const transactionColumns = `id::text, merchant_id, client_id, kind, status, subtotal_minor, currency,
	transaction_date, external_source_id, original_transaction_id::text, created_at, updated_at`

// TransactionRepository implements ports.TransactionRepository using pgx
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{pool: db.GetDB()}
}

// Create inserts a transaction, leaving an existing row with the same
// (merchant_id, external_source_id) untouched
func (r *TransactionRepository) Create(ctx context.Context, tx ports.DBTX, transaction *domain.Transaction) (*domain.Transaction, bool, error) {
	if err := transaction.Validate(); err != nil {
		return nil, false, err
	}

	transaction.ID = newID(transaction.ID)
	now := timeutil.Now()

	q := querier(r.pool, tx)
	row := q.QueryRow(ctx, `
		INSERT INTO transactions (id, merchant_id, client_id, kind, status, subtotal_minor, currency,
			transaction_date, external_source_id, original_transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (merchant_id, external_source_id) DO NOTHING
		RETURNING `+transactionColumns,
		transaction.ID,
		transaction.MerchantID,
		transaction.ClientID,
		string(transaction.Kind),
		string(transaction.Status),
		transaction.SubtotalMinor,
		transaction.Currency,
		transaction.TransactionDate.UTC(),
		transaction.ExternalSourceID,
		transaction.OriginalTransactionID,
		now,
	)

	stored, err := scanTransaction(row)
	if err == nil {
		return stored, true, nil
	}
	if !isNoRows(err) || transaction.ExternalSourceID == nil {
		return nil, false, fmt.Errorf("create transaction: %w", err)
	}

	// Conflict: the gateway already delivered this transaction
	existing, err := r.GetByExternalSourceID(ctx, q, transaction.MerchantID, *transaction.ExternalSourceID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing transaction: %w", err)
	}
	return existing, false, nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Transaction, error) {
	if !isUUID(id) {
		return nil, domain.ErrTxnNotFound.WithDetail("transaction_id", id)
	}

	row := querier(r.pool, db).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if isNoRows(err) {
		return nil, domain.ErrTxnNotFound.WithDetail("transaction_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return txn, nil
}

// GetByExternalSourceID retrieves a merchant's transaction by the gateway's id for it
func (r *TransactionRepository) GetByExternalSourceID(ctx context.Context, db ports.DBTX, merchantID, externalSourceID string) (*domain.Transaction, error) {
	row := querier(r.pool, db).QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE merchant_id = $1 AND external_source_id = $2`,
		merchantID, externalSourceID)

	txn, err := scanTransaction(row)
	if isNoRows(err) {
		return nil, domain.ErrTxnNotFound.WithDetail("external_source_id", externalSourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by external source id: %w", err)
	}
	return txn, nil
}

// UpdateStatus updates the status of a transaction
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string, status domain.TransactionStatus) error {
	if !isUUID(id) {
		return domain.ErrTxnNotFound.WithDetail("transaction_id", id)
	}

	tag, err := querier(r.pool, tx).Exec(ctx, `
		UPDATE transactions SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), timeutil.Now())
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTxnNotFound.WithDetail("transaction_id", id)
	}
	return nil
}

// ListByMerchantAndDateRange lists a merchant's transactions with start <= date < end, oldest first
func (r *TransactionRepository) ListByMerchantAndDateRange(ctx context.Context, db ports.DBTX, merchantID string, start, end time.Time) ([]*domain.Transaction, error) {
	rows, err := querier(r.pool, db).Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE merchant_id = $1 AND transaction_date >= $2 AND transaction_date < $3
		ORDER BY transaction_date, id`,
		merchantID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list transactions by date range: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions by date range: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		t      domain.Transaction
		kind   string
		status string
	)
	err := row.Scan(
		&t.ID,
		&t.MerchantID,
		&t.ClientID,
		&kind,
		&status,
		&t.SubtotalMinor,
		&t.Currency,
		&t.TransactionDate,
		&t.ExternalSourceID,
		&t.OriginalTransactionID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	t.TransactionDate = t.TransactionDate.UTC()
	return &t, nil
}
