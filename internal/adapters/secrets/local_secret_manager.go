package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"go.uber.org/zap"
)

const localCurrentVersion = "current"

// localSecretManager implements SecretManagerAdapter using local filesystem.
// Versions live next to the secret as "<path>.<version>", so the previous
// signing key of "webhooks/ep-1" is the file "webhooks/ep-1.previous".
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a new local filesystem secret manager
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret retrieves a secret from the local filesystem
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	return m.read(secretPath, localCurrentVersion)
}

// GetSecretVersion reads "<path>.<version>"
func (m *localSecretManager) GetSecretVersion(ctx context.Context, secretPath string, version string) (*ports.Secret, error) {
	if version == "" || version == localCurrentVersion {
		return m.GetSecret(ctx, secretPath)
	}
	if strings.ContainsAny(version, `/\`) {
		return nil, fmt.Errorf("invalid secret version %q", version)
	}
	return m.read(secretPath+"."+version, version)
}

func (m *localSecretManager) read(secretPath, version string) (*ports.Secret, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Reading secret from filesystem", zap.String("path", secretPath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	// Support both plain text and JSON format
	var secretData struct {
		Value     string            `json:"value"`
		Tags      map[string]string `json:"tags"`
		CreatedAt string            `json:"created_at"`
	}
	if err := json.Unmarshal(data, &secretData); err == nil && secretData.Value != "" {
		return &ports.Secret{
			Value:     secretData.Value,
			Version:   version,
			Metadata:  secretData.Tags,
			CreatedAt: secretData.CreatedAt,
		}, nil
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return nil, fmt.Errorf("secret %s is empty", secretPath)
	}
	return &ports.Secret{Value: value, Version: version}, nil
}

// resolve keeps lookups inside the base directory
func (m *localSecretManager) resolve(secretPath string) (string, error) {
	if !filepath.IsLocal(secretPath) {
		return "", fmt.Errorf("secret path %q escapes the secrets directory", secretPath)
	}
	return filepath.Join(m.basePath, secretPath), nil
}
