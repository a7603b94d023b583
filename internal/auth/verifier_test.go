package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWKSVerifier(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, toJWK(t, "k1", &key.PublicKey))
	v := NewJWKSVerifier(NewKeyCache(srv.URL, time.Hour, WithHTTPClient(srv.Client())), "delivops-api", "https://idp.example.com/", nil)

	sign := func(kid string, claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = kid
		raw, err := tok.SignedString(key)
		require.NoError(t, err)
		return raw
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":   "auth0|42",
			"aud":   "delivops-api",
			"iss":   "https://idp.example.com/",
			"exp":   time.Now().Add(time.Hour).Unix(),
			"roles": []string{"Admin Codex"},
		}
	}

	id, err := v.Verify(context.Background(), sign("k1", valid()))
	require.NoError(t, err)
	assert.Equal(t, "auth0|42", id.Sub)
	assert.True(t, id.Roles.Has("ADMIN"))

	wrongAud := valid()
	wrongAud["aud"] = "other"
	expired := valid()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noSub := valid()
	delete(noSub, "sub")

	for name, raw := range map[string]string{
		"audience":    sign("k1", wrongAud),
		"expired":     sign("k1", expired),
		"unknown kid": sign("k9", valid()),
		"no subject":  sign("k1", noSub),
		"garbage":     "not.a.token",
	} {
		_, err := v.Verify(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestJWKSVerifierRejectsHMAC(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, toJWK(t, "k1", &key.PublicKey))
	v := NewJWKSVerifier(NewKeyCache(srv.URL, time.Hour, WithHTTPClient(srv.Client())), "", "", []string{"RS256"})

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()})
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier("s3cret")

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "driver|1", "role": "CHAUFFEUR"})
	raw, err := tok.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "driver|1", id.Sub)
	assert.True(t, id.Roles.Has("CHAUFFEUR"))

	forged, err := tok.SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
