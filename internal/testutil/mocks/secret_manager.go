package mocks

import (
	"context"

	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/stretchr/testify/mock"
)

// MockSecretManager provides a testify mock of ports.SecretManagerAdapter
type MockSecretManager struct {
	mock.Mock
}

var _ adapterports.SecretManagerAdapter = (*MockSecretManager)(nil)

func (m *MockSecretManager) GetSecret(ctx context.Context, path string) (*adapterports.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapterports.Secret), args.Error(1)
}

func (m *MockSecretManager) GetSecretVersion(ctx context.Context, path string, version string) (*adapterports.Secret, error) {
	args := m.Called(ctx, path, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapterports.Secret), args.Error(1)
}
