// Package mocks provides shared in-memory fakes of the persistence ports for service tests.
package mocks

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

// MockDB implements ports.DBPort and ports.QueryTimeouts without a database.
// Callbacks receive a nil transaction, which every fake repository accepts.
// Writes made before a callback fails are not rolled back.
type MockDB struct {
	TxErr error // Returned by WithTransaction without calling fn when set

	mu            sync.Mutex
	transactions  int
	readOnlyCalls int
}

var (
	_ ports.DBPort        = (*MockDB)(nil)
	_ ports.QueryTimeouts = (*MockDB)(nil)
)

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{}
}

// GetDB returns nil; fakes never touch a pool
func (m *MockDB) GetDB() *pgxpool.Pool {
	return nil
}

// WithTransaction calls fn with a nil transaction
func (m *MockDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.mu.Lock()
	m.transactions++
	m.mu.Unlock()

	if m.TxErr != nil {
		return m.TxErr
	}
	return fn(ctx, nil)
}

// WithReadOnlyTransaction calls fn with a nil transaction
func (m *MockDB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.mu.Lock()
	m.readOnlyCalls++
	m.mu.Unlock()

	if m.TxErr != nil {
		return m.TxErr
	}
	return fn(ctx, nil)
}

// TransactionCount returns how many write transactions were opened
func (m *MockDB) TransactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions
}

// SimpleQueryContext returns a cancelable child of parent
func (m *MockDB) SimpleQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}

// ComplexQueryContext returns a cancelable child of parent
func (m *MockDB) ComplexQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}

// ReportQueryContext returns a cancelable child of parent
func (m *MockDB) ReportQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}
