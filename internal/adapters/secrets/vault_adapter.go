package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for HashiCorp Vault adapter
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token", "approle", "kubernetes"
	AuthMethod string

	Token string

	RoleID   string
	SecretID string

	// Kubernetes service account token path and role
	K8sTokenPath string
	K8sRole      string

	// Vault namespace (Vault Enterprise)
	Namespace string

	// KV secrets engine mount path (default: "secret")
	MountPath string

	// KV version: "v1" or "v2" (default: "v2")
	KVVersion string

	CacheTTL    time.Duration
	EnableCache bool

	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for Vault adapter
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:      address,
		AuthMethod:   "token",
		K8sTokenPath: "/var/run/secrets/kubernetes.io/serviceaccount/token",
		MountPath:    "secret",
		KVVersion:    "v2",
		CacheTTL:     5 * time.Minute,
		EnableCache:  true,
	}
}

// vaultAdapter implements the SecretManagerAdapter port for HashiCorp Vault KV
type vaultAdapter struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &vaultAdapter{
		client: client,
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

// authenticateVault handles authentication with Vault
func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		return login(ctx, client, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})

	case "kubernetes":
		if cfg.K8sTokenPath == "" || cfg.K8sRole == "" {
			return fmt.Errorf("k8s_token_path and k8s_role are required for Kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("failed to read k8s token: %w", err)
		}
		return login(ctx, client, "auth/kubernetes/login", map[string]interface{}{
			"jwt":  string(jwt),
			"role": cfg.K8sRole,
		})

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func login(ctx context.Context, client *vault.Client, path string, data map[string]interface{}) error {
	resp, err := client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%s failed: %w", path, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("%s returned no auth info", path)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret retrieves the latest version of a secret.
// Path format: "revenue-share/webhooks/{endpoint_id}" under the KV mount
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	startTime := time.Now()
	var (
		kv  *vault.KVSecret
		err error
	)
	if a.config.KVVersion == "v1" {
		kv, err = a.client.KVv1(a.config.MountPath).Get(ctx, path)
	} else {
		kv, err = a.client.KVv2(a.config.MountPath).Get(ctx, path)
	}
	if err != nil {
		return nil, a.readError(path, err)
	}

	secret, err := toSecret(kv)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", path, err)
	}

	a.logger.Debug("Secret retrieved",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	a.cache.set(path, secret)
	return secret, nil
}

// GetSecretVersion retrieves a numbered version of a secret (KV v2 only).
// ports.PreviousVersion resolves to the version before the latest.
func (a *vaultAdapter) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	if a.config.KVVersion == "v1" {
		return nil, fmt.Errorf("GetSecretVersion requires KV v2")
	}

	key := versionKey(path, version)
	if cached := a.cache.get(key); cached != nil {
		return cached, nil
	}

	var number int
	if version == ports.PreviousVersion {
		current, err := a.GetSecret(ctx, path)
		if err != nil {
			return nil, err
		}
		latest, err := strconv.Atoi(current.Version)
		if err != nil {
			return nil, fmt.Errorf("secret %s has non-numeric version %q", path, current.Version)
		}
		if latest <= 1 {
			return nil, ErrSecretNotFound
		}
		number = latest - 1
	} else {
		n, err := strconv.Atoi(version)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid Vault version %q", version)
		}
		number = n
	}

	kv, err := a.client.KVv2(a.config.MountPath).GetVersion(ctx, path, number)
	if err != nil {
		return nil, a.readError(path, err)
	}

	secret, err := toSecret(kv)
	if err != nil {
		return nil, fmt.Errorf("secret %s version %d: %w", path, number, err)
	}

	a.cache.set(key, secret)
	return secret, nil
}

func (a *vaultAdapter) readError(path string, err error) error {
	if errors.Is(err, vault.ErrSecretNotFound) {
		return ErrSecretNotFound
	}
	a.logger.Error("Failed to retrieve secret from Vault",
		zap.String("path", path),
		zap.Error(err),
	)
	return fmt.Errorf("failed to read secret from Vault: %w", err)
}

// toSecret takes the "value" key, or the only string field when there is no "value" key.
// Every other string field is carried as metadata.
func toSecret(kv *vault.KVSecret) (*ports.Secret, error) {
	if kv == nil || kv.Data == nil {
		return nil, ErrSecretNotFound
	}

	secret := &ports.Secret{Version: "1", Metadata: make(map[string]string)}
	if kv.VersionMetadata != nil {
		secret.Version = strconv.Itoa(kv.VersionMetadata.Version)
		secret.CreatedAt = kv.VersionMetadata.CreatedTime.Format(time.RFC3339)
	}

	var strings []string
	for k, v := range kv.Data {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if k == "value" {
			secret.Value = str
			continue
		}
		secret.Metadata[k] = str
		strings = append(strings, str)
	}

	if secret.Value == "" && len(strings) == 1 {
		secret.Value = strings[0]
	}
	if secret.Value == "" {
		return nil, fmt.Errorf("secret value is empty or not found")
	}
	return secret, nil
}
