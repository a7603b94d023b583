package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

var ErrKeyNotFound = errors.New("signing key not found")

// KeyCache holds the provider's RSA signing keys by kid.
// Keys are refetched when older than the TTL or when a kid is unknown.
type KeyCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

type KeyCacheOption func(*KeyCache)

func WithHTTPClient(c *http.Client) KeyCacheOption {
	return func(k *KeyCache) { k.client = c }
}

func WithClock(now func() time.Time) KeyCacheOption {
	return func(k *KeyCache) { k.now = now }
}

func NewKeyCache(url string, ttl time.Duration, opts ...KeyCacheOption) *KeyCache {
	k := &KeyCache{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
		keys:   map[string]*rsa.PublicKey{},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Key returns the public key for kid, refreshing at most once per call.
func (k *KeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	key, ok := k.keys[kid]
	stale := k.fetchedAt.IsZero() || k.now().Sub(k.fetchedAt) > k.ttl
	k.mu.RUnlock()

	if ok && !stale {
		return key, nil
	}
	if err := k.Refresh(ctx); err != nil {
		if ok {
			// Keep serving a known key while the provider is unreachable.
			return key, nil
		}
		return nil, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
}

// Refresh replaces the cached keys with the provider's current set.
func (k *KeyCache) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build jwks request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch jwks: unexpected status %d", resp.StatusCode)
	}

	set, err := jwk.ParseReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok || key.KeyType() != jwa.RSA || key.KeyID() == "" {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			continue
		}
		var raw interface{}
		if err := key.Raw(&raw); err != nil {
			return fmt.Errorf("failed to materialise jwk %s: %w", key.KeyID(), err)
		}
		pub, ok := raw.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[key.KeyID()] = pub
	}

	k.mu.Lock()
	k.keys = keys
	k.fetchedAt = k.now()
	k.mu.Unlock()
	return nil
}
