// ABOUTME: JWT API key verification for authenticating admin API requests
// ABOUTME: Uses HS256 signing with configurable secret and a role claim

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Roles carried in the "role" claim of an API key.
const (
	RoleServiceRole = "service_role" // full read/write access
	RoleAnon        = "anon"         // read-only access
)

// TokenVerifier defines the interface for API key verification
type TokenVerifier interface {
	Verify(tokenString string) (role string, err error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token and extracts the role from the "role" claim
func (v *JWTVerifier) Verify(tokenString string) (role string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	roleClaim, ok := claims["role"].(string)
	if !ok || roleClaim == "" {
		return "", fmt.Errorf("%w: role", ErrMissingClaim)
	}

	switch roleClaim {
	case RoleServiceRole, RoleAnon:
		return roleClaim, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidToken, roleClaim)
	}
}

// Generate creates a new API key for the given role. A zero expiresIn produces
// a key without expiration.
func (v *JWTVerifier) Generate(role string, expiresIn time.Duration) (string, error) {
	if role != RoleServiceRole && role != RoleAnon {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"role": role,
		"iat":  now.Unix(),
	}
	if expiresIn > 0 {
		claims["exp"] = now.Add(expiresIn).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
