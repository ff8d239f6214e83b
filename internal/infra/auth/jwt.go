package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zegrana/finance-core-go/internal/domain"
)

// JWTIssuer implements port.TokenIssuer with HS256 access tokens.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTIssuer creates an issuer with the signing secret and access TTL.
func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs an access token for the user.
func (i *JWTIssuer) Issue(userID, email string) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return token, expiresAt.Unix(), nil
}

// Verify parses and validates an access token, returning the user id it was
// issued for.
func (i *JWTIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &domain.ErrUnauthorized{Message: "unexpected signing method"}
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", &domain.ErrUnauthorized{Message: "invalid token claims"}
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", &domain.ErrUnauthorized{Message: "invalid token claims"}
	}
	return sub, nil
}
