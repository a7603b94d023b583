package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jwksServer struct {
	*httptest.Server
	hits atomic.Int32
	keys atomic.Value // []jwk.Key
	fail atomic.Bool
}

func newJWKSServer(t *testing.T, keys ...jwk.Key) *jwksServer {
	s := &jwksServer{}
	s.keys.Store(keys)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		if s.fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		set := jwk.NewSet()
		for _, key := range s.keys.Load().([]jwk.Key) {
			_ = set.AddKey(key)
		}
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(s.Close)
	return s
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func toJWK(t *testing.T, kid string, raw interface{}) jwk.Key {
	t.Helper()
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))
	return key
}

func TestKeyCacheFetchesOnceWithinTTL(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, toJWK(t, "k1", &key.PublicKey))
	cache := NewKeyCache(srv.URL, time.Hour, WithHTTPClient(srv.Client()))

	for i := 0; i < 3; i++ {
		pub, err := cache.Key(context.Background(), "k1")
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, pub.N)
		assert.Equal(t, key.PublicKey.E, pub.E)
	}
	assert.EqualValues(t, 1, srv.hits.Load())
}

func TestKeyCacheRefreshesAfterTTL(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, toJWK(t, "k1", &key.PublicKey))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewKeyCache(srv.URL, time.Minute, WithHTTPClient(srv.Client()), WithClock(func() time.Time { return now }))

	_, err := cache.Key(context.Background(), "k1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, srv.hits.Load())
}

func TestKeyCacheRefreshesOnUnknownKid(t *testing.T) {
	first, second := newRSAKey(t), newRSAKey(t)
	srv := newJWKSServer(t, toJWK(t, "k1", &first.PublicKey))
	cache := NewKeyCache(srv.URL, time.Hour, WithHTTPClient(srv.Client()))

	_, err := cache.Key(context.Background(), "k1")
	require.NoError(t, err)

	srv.keys.Store([]jwk.Key{toJWK(t, "k1", &first.PublicKey), toJWK(t, "k2", &second.PublicKey)})
	pub, err := cache.Key(context.Background(), "k2")
	require.NoError(t, err)
	assert.Equal(t, second.PublicKey.N, pub.N)
	assert.EqualValues(t, 2, srv.hits.Load())

	_, err = cache.Key(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeyCacheServesStaleKeyWhenProviderFails(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, toJWK(t, "k1", &key.PublicKey))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewKeyCache(srv.URL, time.Minute, WithHTTPClient(srv.Client()), WithClock(func() time.Time { return now }))

	_, err := cache.Key(context.Background(), "k1")
	require.NoError(t, err)

	srv.fail.Store(true)
	now = now.Add(time.Hour)
	_, err = cache.Key(context.Background(), "k1")
	assert.NoError(t, err)

	_, err = cache.Key(context.Background(), "k2")
	assert.Error(t, err)
}

func TestKeyCacheSkipsNonSigningKeys(t *testing.T) {
	key := newRSAKey(t)
	enc := toJWK(t, "enc", &key.PublicKey)
	require.NoError(t, enc.Set(jwk.KeyUsageKey, "enc"))
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	sig := toJWK(t, "sig", &key.PublicKey)
	srv := newJWKSServer(t, enc, toJWK(t, "ec", &ecKey.PublicKey), sig)
	cache := NewKeyCache(srv.URL, time.Hour, WithHTTPClient(srv.Client()))

	_, err = cache.Key(context.Background(), "enc")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = cache.Key(context.Background(), "ec")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	pub, err := cache.Key(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)
}
