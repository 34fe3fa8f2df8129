package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded token payload. Anonymous requests carry
// AnonymousClaims.
type Claims = jwt.MapClaims

// AnonymousClaims returns the principal used when verification is off.
func AnonymousClaims() Claims {
	return Claims{"user": "anonymous"}
}

// AuthError reports a missing, malformed or rejected bearer token.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// VerifyJWT parses and validates a JWT string signed with algorithm. For HMAC
// algorithms secret is the shared key; for RSA, RSA-PSS, ECDSA and EdDSA it is
// the PEM encoded public key.
func VerifyJWT(tokenStr, algorithm, secret string) (Claims, error) {
	if tokenStr == "" {
		return nil, &AuthError{Reason: "missing bearer token"}
	}

	key, err := verificationKey(algorithm, secret)
	if err != nil {
		return nil, &AuthError{Reason: "invalid verification key", Err: err}
	}

	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{algorithm}))
	if err != nil {
		return nil, &AuthError{Reason: "invalid JWT token", Err: err}
	}
	if !token.Valid {
		return nil, &AuthError{Reason: "invalid JWT token", Err: jwt.ErrSignatureInvalid}
	}
	return claims, nil
}

// TokenID returns the jti claim, empty when absent.
func TokenID(claims Claims) string {
	jti, _ := claims["jti"].(string)
	return jti
}

func verificationKey(algorithm, secret string) (interface{}, error) {
	switch {
	case strings.HasPrefix(algorithm, "HS"):
		if secret == "" {
			return nil, errors.New("empty secret")
		}
		return []byte(secret), nil
	case strings.HasPrefix(algorithm, "RS"), strings.HasPrefix(algorithm, "PS"):
		return jwt.ParseRSAPublicKeyFromPEM([]byte(secret))
	case strings.HasPrefix(algorithm, "ES"):
		return jwt.ParseECPublicKeyFromPEM([]byte(secret))
	case algorithm == "EdDSA":
		return jwt.ParseEdPublicKeyFromPEM([]byte(secret))
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
	}
}
