package auth

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/wellora/wellness-api/internal/models"
)

// Verifier verifies bearer JWTs against the identity provider's key set.
type Verifier struct {
	keys   *KeySource
	issuer string
}

// NewVerifier creates a verifier for tokens issued by issuer.
func NewVerifier(keys *KeySource, issuer string) *Verifier {
	return &Verifier{
		keys:   keys,
		issuer: issuer,
	}
}

// Verify checks signature, validity window, and issuer, then extracts the
// claims the request layer needs.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("get verification keys: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("parse/verify token: %w", err)
	}

	iss, ok := token.Get("iss")
	if !ok {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	if issStr, ok := iss.(string); !ok || issStr != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %v", v.issuer, iss)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: v.issuer,
	}
	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}
	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}
	claims.Exp = token.Expiration().Unix()
	claims.Iat = token.IssuedAt().Unix()
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	return claims, nil
}
