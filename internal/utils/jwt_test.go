package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyJWT(t *testing.T) {
	valid := jwt.MapClaims{"sub": "42", "jti": "abc", "exp": time.Now().Add(time.Hour).Unix()}
	expired := jwt.MapClaims{"sub": "42", "exp": time.Now().Add(-time.Hour).Unix()}

	var tests = []struct {
		name    string
		token   string
		alg     string
		secret  string
		wantErr bool
	}{
		{"valid", signHS(t, jwt.SigningMethodHS256, "s3cret", valid), "HS256", "s3cret", false},
		{"wrong secret", signHS(t, jwt.SigningMethodHS256, "other", valid), "HS256", "s3cret", true},
		{"algorithm mismatch", signHS(t, jwt.SigningMethodHS512, "s3cret", valid), "HS256", "s3cret", true},
		{"expired", signHS(t, jwt.SigningMethodHS256, "s3cret", expired), "HS256", "s3cret", true},
		{"garbage", "not.a.token", "HS256", "s3cret", true},
		{"missing", "", "HS256", "s3cret", true},
		{"unsupported algorithm", signHS(t, jwt.SigningMethodHS256, "s3cret", valid), "XX1", "s3cret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := VerifyJWT(tt.token, tt.alg, tt.secret)
			if tt.wantErr {
				var authErr *AuthError
				assert.True(t, errors.As(err, &authErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "42", claims["sub"])
			assert.Equal(t, "abc", TokenID(claims))
		})
	}
}

func TestVerifyJWTWithRSAKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	public := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "7"}).SignedString(key)
	require.NoError(t, err)

	claims, err := VerifyJWT(token, "RS256", public)
	require.NoError(t, err)
	assert.Equal(t, "7", claims["sub"])
	assert.Equal(t, "", TokenID(claims))

	_, err = VerifyJWT(token, "RS256", "not a pem")
	assert.ErrorContains(t, err, "invalid verification key")
}

func TestIsValidIdentifier(t *testing.T) {
	for _, ok := range []string{"orders", "_tmp", "sp_Monthly$Report", "a1"} {
		assert.True(t, IsValidIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1st", "a b", "a;drop", "a-b", "é"} {
		assert.False(t, IsValidIdentifier(bad), bad)
	}
}
