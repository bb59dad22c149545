package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter is the Secrets Manager call used by SecretsClient.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient resolves the Stripe API key and webhook signing secret.
// Secret strings are fetched once per secret ID and cached for the process
// lifetime.
type SecretsClient struct {
	client SecretGetter
	cache  map[string]string
	mu     sync.RWMutex
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWith(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWith(client SecretGetter) *SecretsClient {
	return &SecretsClient{
		client: client,
		cache:  make(map[string]string),
	}
}

// GetSecret returns a secret by name. A name of the form "id#field" reads one
// field of a JSON key/value secret, so both Stripe values can live in a
// single "checkout/stripe" entry. Surrounding whitespace is trimmed because a
// key pasted with a trailing newline fails Stripe authentication.
func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	id, field, hasField := strings.Cut(name, "#")

	raw, err := s.secretString(ctx, id)
	if err != nil {
		return "", err
	}

	value := raw
	if hasField {
		var fields map[string]string
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return "", fmt.Errorf("secret %s is not a JSON object: %w", id, err)
		}
		v, ok := fields[field]
		if !ok {
			return "", fmt.Errorf("secret %s has no field %s", id, field)
		}
		value = v
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("secret %s is empty", name)
	}
	return value, nil
}

func (s *SecretsClient) secretString(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &id})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", id)
	}

	s.mu.Lock()
	s.cache[id] = *out.SecretString
	s.mu.Unlock()

	return *out.SecretString, nil
}
