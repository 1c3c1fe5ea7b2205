package security

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 10

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's range.
// Zero or negative selects DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	cost = max(cost, bcrypt.MinCost)
	cost = min(cost, bcrypt.MaxCost)
	return &Hasher{Cost: cost}
}

// HashPassword produces a bcrypt hash suitable for storage.
func (h *Hasher) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches hash. A malformed hash never matches.
func (h *Hasher) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
