// Package auth implements the external credential collaborators: a bcrypt
// password hasher and a JWT token issuer. The core never touches credential
// material directly.
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/zegrana/finance-core-go/internal/domain"
)

// BcryptHasher implements port.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher. A cost of 0 falls back to the bcrypt
// default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash derives a bcrypt hash from the plaintext password.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Compare checks plain against hash, returning ErrUnauthorized on mismatch.
func (h *BcryptHasher) Compare(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	return nil
}
