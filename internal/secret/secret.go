// Package secret acquires values for secret-marked parameters through a
// pluggable provider abstraction. Secret values live only in memory for the
// duration of a deployment and are never written to disk or logs.
package secret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vtejapy/new-cft2/internal/logging"
)

// SecretUnavailableError indicates that a secret value could not be
// retrieved. It is fatal before stack submission.
type SecretUnavailableError struct {
	// Key is the secret parameter name.
	Key string
	// Err is the underlying cause.
	Err error
}

func (e *SecretUnavailableError) Error() string {
	if e == nil {
		return "secret unavailable"
	}
	return fmt.Sprintf("secret %q unavailable: %v", e.Key, e.Err)
}

func (e *SecretUnavailableError) Unwrap() error {
	return e.Err
}

// IsSecretUnavailableError reports whether err is a SecretUnavailableError.
func IsSecretUnavailableError(err error) bool {
	var target *SecretUnavailableError
	return errors.As(err, &target)
}

// Provider fetches a single secret value by key.
type Provider interface {
	// Fetch returns the value for key or a SecretUnavailableError.
	Fetch(ctx context.Context, key string) (string, error)
}

// StaticProvider serves secrets from an in-memory map. It backs automated
// invocations and tests.
type StaticProvider map[string]string

// Fetch returns the mapped value or a SecretUnavailableError.
func (p StaticProvider) Fetch(_ context.Context, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", &SecretUnavailableError{Key: key, Err: errors.New("not present in static provider")}
	}
	return v, nil
}

// Broker resolves every secret-marked parameter through a Provider and
// registers each value with the logging redactor.
type Broker struct {
	provider Provider
	logger   *slog.Logger
}

// NewBroker constructs a Broker over the given provider.
func NewBroker(provider Provider, logger *slog.Logger) *Broker {
	return &Broker{provider: provider, logger: logger}
}

// Resolve fetches values for the given secret keys. The returned map is the
// only place the values exist; callers must not persist it.
func (b *Broker) Resolve(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := b.provider.Fetch(ctx, key)
		if err != nil {
			var unavailable *SecretUnavailableError
			if errors.As(err, &unavailable) {
				return nil, err
			}
			return nil, &SecretUnavailableError{Key: key, Err: err}
		}
		if value == "" {
			return nil, &SecretUnavailableError{Key: key, Err: errors.New("provider returned an empty value")}
		}
		logging.RegisterSecret(value)
		out[key] = value
		b.logger.Debug("secret resolved", "key", key)
	}
	return out, nil
}
