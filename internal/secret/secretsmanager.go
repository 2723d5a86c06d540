package secret

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// ManagerAPI is the slice of the Secrets Manager client used by the vault
// provider. It exists so tests can substitute a mock implementation.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// VaultProvider fetches secret values from AWS Secrets Manager for
// non-interactive invocations. Secret parameter keys are namespaced under a
// per-environment prefix, e.g. "<project>/<environment>/<key>".
type VaultProvider struct {
	api    ManagerAPI
	prefix string
}

// NewVaultProvider constructs a VaultProvider over a Secrets Manager client.
func NewVaultProvider(api ManagerAPI, prefix string) *VaultProvider {
	return &VaultProvider{api: api, prefix: prefix}
}

// NewVaultProviderFromConfig constructs a VaultProvider backed by the real
// Secrets Manager service client.
func NewVaultProviderFromConfig(cfg aws.Config, prefix string) *VaultProvider {
	return NewVaultProvider(secretsmanager.NewFromConfig(cfg), prefix)
}

// Fetch looks up the secret named "<prefix>/<key>" and returns its string value.
func (p *VaultProvider) Fetch(ctx context.Context, key string) (string, error) {
	secretID := key
	if p.prefix != "" {
		secretID = p.prefix + "/" + key
	}

	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return "", &SecretUnavailableError{Key: key, Err: fmt.Errorf("secret %q not found in vault", secretID)}
		}
		return "", &SecretUnavailableError{Key: key, Err: err}
	}
	if out.SecretString == nil {
		return "", &SecretUnavailableError{Key: key, Err: errors.New("secret has no string value")}
	}
	return aws.ToString(out.SecretString), nil
}
