package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	secretsmanagertypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"go.uber.org/zap"
)

const (
	awsStageCurrent  = "AWSCURRENT"
	awsStagePrevious = "AWSPREVIOUS"
)

// AWSSecretsManagerConfig contains configuration for AWS Secrets Manager adapter
type AWSSecretsManagerConfig struct {
	// AWS Region (e.g., "us-east-1")
	Region string

	// Optional: AWS profile name (for local development)
	Profile string

	// Optional: Custom endpoint (for LocalStack testing)
	Endpoint string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultAWSSecretsManagerConfig returns default configuration
func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{
		Region:      region,
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// secretsManagerAPI is the subset of the SDK client the adapter calls
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// awsSecretsManagerAdapter implements the SecretManagerAdapter port for AWS Secrets Manager
type awsSecretsManagerAdapter struct {
	client secretsManagerAPI
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSSecretsManagerAdapter creates a new AWS Secrets Manager adapter
func NewAWSSecretsManagerAdapter(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		// Use specific profile (local development)
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager adapter initialized",
		zap.String("region", cfg.Region),
		zap.Bool("cache_enabled", cfg.EnableCache),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	return newAWSSecretsManagerAdapter(secretsmanager.NewFromConfig(awsConfig, clientOptions...), cfg, logger), nil
}

func newAWSSecretsManagerAdapter(client secretsManagerAPI, cfg *AWSSecretsManagerConfig, logger *zap.Logger) *awsSecretsManagerAdapter {
	return &awsSecretsManagerAdapter{
		client: client,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}
}

// GetSecret retrieves the AWSCURRENT version of a secret.
// Path format: "revenue-share/webhooks/{endpoint_id}" or full ARN
func (a *awsSecretsManagerAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	secret, err := a.fetch(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(path),
		VersionStage: aws.String(awsStageCurrent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	a.cache.set(path, secret)
	return secret, nil
}

// GetSecretVersion retrieves a version by id, by staging label, or the AWSPREVIOUS
// stage when asked for ports.PreviousVersion
func (a *awsSecretsManagerAdapter) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	key := versionKey(path, version)
	if cached := a.cache.get(key); cached != nil {
		return cached, nil
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)}
	switch version {
	case ports.PreviousVersion, awsStagePrevious:
		input.VersionStage = aws.String(awsStagePrevious)
	case awsStageCurrent:
		input.VersionStage = aws.String(awsStageCurrent)
	default:
		input.VersionId = aws.String(version)
	}

	secret, err := a.fetch(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s version %s: %w", path, version, err)
	}

	a.cache.set(key, secret)
	return secret, nil
}

func (a *awsSecretsManagerAdapter) fetch(ctx context.Context, input *secretsmanager.GetSecretValueInput) (*ports.Secret, error) {
	path := aws.ToString(input.SecretId)
	startTime := time.Now()

	result, err := a.client.GetSecretValue(ctx, input)
	if err != nil {
		var notFound *secretsmanagertypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrSecretNotFound
		}
		a.logger.Error("Failed to retrieve secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	a.logger.Debug("Secret retrieved",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", path)
	}

	secret := &ports.Secret{
		Value:    aws.ToString(result.SecretString),
		Version:  aws.ToString(result.VersionId),
		Metadata: map[string]string{"arn": aws.ToString(result.ARN)},
	}
	if result.CreatedDate != nil {
		secret.CreatedAt = result.CreatedDate.Format(time.RFC3339)
	}
	if len(result.VersionStages) > 0 {
		secret.Metadata["stage"] = result.VersionStages[0]
	}
	return secret, nil
}
