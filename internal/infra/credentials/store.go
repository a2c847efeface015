package credentials

import (
	"context"
	"strings"
	"sync"

	"progenai/internal/domain"
	"progenai/internal/store"
)

const (
	ProviderStability  = "stability"
	ProviderElevenLabs = "elevenlabs"
)

// Providers lists the services a credential can be stored for.
var Providers = []string{ProviderStability, ProviderElevenLabs}

// Store keeps service credentials as one JSON object under
// store.KeyAPICredentials.
type Store struct {
	kv store.KV
	mu sync.Mutex
}

func NewStore(kv store.KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) StabilityAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderStability)
}

func (s *Store) ElevenLabsAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderElevenLabs)
}

// Token returns the stored credential for provider, or "" when none is set.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	tokens, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(tokens[provider]), nil
}

// All returns every stored credential keyed by provider.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	return s.load(ctx)
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	if !validProvider(provider) {
		return domain.Validation("credentials", "unknown credential provider "+provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Validation("credentials", provider+" api key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.load(ctx)
	if err != nil {
		return err
	}
	tokens[provider] = token
	return store.SetJSON(ctx, s.kv, store.KeyAPICredentials, tokens)
}

// Seed stores each non-empty default whose provider has no stored value.
func (s *Store) Seed(ctx context.Context, defaults map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.load(ctx)
	if err != nil {
		return err
	}
	changed := false
	for provider, token := range defaults {
		token = strings.TrimSpace(token)
		if !validProvider(provider) || token == "" || strings.TrimSpace(tokens[provider]) != "" {
			continue
		}
		tokens[provider] = token
		changed = true
	}
	if !changed {
		return nil
	}
	return store.SetJSON(ctx, s.kv, store.KeyAPICredentials, tokens)
}

func (s *Store) load(ctx context.Context) (map[string]string, error) {
	tokens := map[string]string{}
	if _, err := store.GetJSON(ctx, s.kv, store.KeyAPICredentials, &tokens); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = map[string]string{}
	}
	return tokens, nil
}

func validProvider(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}
