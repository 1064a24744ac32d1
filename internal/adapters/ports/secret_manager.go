package ports

import (
	"context"
)

// PreviousVersion asks GetSecretVersion for the version preceding the current one.
// Each backend maps it to its own notion of a prior version.
const PreviousVersion = "previous"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., webhook signing key)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for retrieving secrets from a secret management service.
// Backends: AWS Secrets Manager, HashiCorp Vault, local filesystem (development).
// Implementations cache secrets with a TTL and must be safe for concurrent use.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - AWS: "revenue-share/webhooks/{endpoint_id}" or full ARN
	//   - Vault: "revenue-share/webhooks/{endpoint_id}" under the KV mount
	//   - Local: file path relative to the base directory
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// GetSecretVersion retrieves a specific version of a secret.
	// Used during signing key rotation to verify against the previous version.
	GetSecretVersion(ctx context.Context, path string, version string) (*Secret, error)
}
