package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient reads key/value secrets stored as JSON objects. Decoded
// secrets are cached for the process lifetime.
type SecretsClient struct {
	client *secretsmanager.Client

	mu    sync.RWMutex
	cache map[string]map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]map[string]string),
	}
}

func (s *SecretsClient) GetSecretValues(ctx context.Context, name string) (map[string]string, error) {
	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s: binary secrets are not supported", name)
	}
	values := map[string]string{}
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return nil, fmt.Errorf("secret %s: expected a JSON object: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = values
	s.mu.Unlock()
	return values, nil
}
