package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"entregas/pkg/domain"
)

// Claims are the JWT claims carried by bearer credentials issued by the
// identity service. The subject is the caller's email; role is a single
// unprefixed role name.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer credentials and derives principals.
type TokenVerifier struct {
	signingKey []byte
}

func NewTokenVerifier(signingKey string) *TokenVerifier {
	return &TokenVerifier{signingKey: []byte(signingKey)}
}

// Verify parses and validates a raw credential, returning the derived
// principal. Signature and expiry are checked against the configured key. A
// missing role claim defaults to USER; the authority is normalized with the
// ROLE_ prefix.
func (v *TokenVerifier) Verify(tokenString string) (domain.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		return domain.Principal{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, jwt.ErrTokenInvalidClaims
	}

	role := claims.Role
	if role == "" {
		role = "USER"
	}

	return domain.Principal{
		Subject:     claims.Subject,
		Authorities: []string{domain.NormalizeAuthority(role)},
	}, nil
}
