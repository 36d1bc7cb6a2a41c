package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// jwksTTL is how long a fetched key set is served from cache.
const jwksTTL = 1 * time.Hour

// KeySource fetches and caches the JWKS for the configured identity
// provider. All requests share one cached key set per URL.
type KeySource struct {
	mu      sync.RWMutex
	url     string
	keys    jwk.Set
	expires time.Time
	client  *http.Client
}

// NewKeySource creates a key source for the given JWKS URL.
func NewKeySource(jwksURL string) *KeySource {
	return &KeySource{
		url:    jwksURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Keys returns the cached key set, refreshing it when the TTL has lapsed.
func (s *KeySource) Keys(ctx context.Context) (jwk.Set, error) {
	s.mu.RLock()
	if s.keys != nil && time.Now().Before(s.expires) {
		keys := s.keys
		s.mu.RUnlock()
		return keys, nil
	}
	s.mu.RUnlock()

	keys, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}

	s.mu.Lock()
	s.keys = keys
	s.expires = time.Now().Add(jwksTTL)
	s.mu.Unlock()
	return keys, nil
}

func (s *KeySource) fetch(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}
	return keys, nil
}
