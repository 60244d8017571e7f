// Package oauth implements the OAuth2 authorization-code grant against the
// Controller Runtime's own resources (auth/v1alpha1 User/Client/AuthCode),
// grounded on auth/token.go's TokenService (here re-keyed off
// auth/v1alpha1.User instead of the teacher's auth.User). It verifies only
// the HS256 tokens its own TokenService issues, not tokens from an external
// identity provider.
package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
)

// Claims is the JWT payload issued for a resource owner.
type Claims struct {
	UserName string `json:"user_name"`
	ClientID string `json:"client_id,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 access tokens, grounded on
// auth/token.go's TokenService.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewTokenService constructs a TokenService signing with secret.
func NewTokenService(secret string, expiration time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiration: expiration, issuer: "forge/oauth"}
}

// IssueToken generates a signed access token for user, scoped to clientID
// and scopes.
func (s *TokenService) IssueToken(user *v1alpha1.User, clientID string, scopes []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)
	claims := Claims{
		UserName: user.GetMetadata().Name,
		ClientID: clientID,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   user.GetMetadata().Name,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, expiresAt, err
}

// ValidateToken parses and verifies a previously issued access token.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("oauth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("oauth: %w", ErrInvalidToken)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// generateOpaqueCode returns a URL-safe random string, used for
// authorization codes where a random opaque value (not a JWT) is the right
// shape.
func generateOpaqueCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
