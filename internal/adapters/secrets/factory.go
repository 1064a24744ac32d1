package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// Backend names accepted by New
const (
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
)

// Config selects and configures a secret backend
type Config struct {
	Backend   string
	LocalPath string
	AWS       *AWSSecretsManagerConfig
	Vault     *VaultConfig
}

// New builds the SecretManagerAdapter for the configured backend
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		logger.Warn("Using local filesystem secrets; do not use in production",
			zap.String("path", cfg.LocalPath))
		return NewLocalSecretManager(cfg.LocalPath, logger), nil
	case BackendAWS:
		if cfg.AWS == nil {
			return nil, fmt.Errorf("aws secrets backend selected without aws config")
		}
		return NewAWSSecretsManagerAdapter(ctx, cfg.AWS, logger)
	case BackendVault:
		if cfg.Vault == nil {
			return nil, fmt.Errorf("vault secrets backend selected without vault config")
		}
		return NewVaultAdapter(ctx, cfg.Vault, logger)
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
}
