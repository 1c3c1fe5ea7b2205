package service

import (
	"medconsult/backend/internal/apperr"
	"medconsult/backend/internal/security"
	userdomain "medconsult/backend/internal/user/domain"
)

// dummyPassword is hashed once at construction; login with an unknown email
// compares against it so the bcrypt cost is paid either way.
const dummyPassword = "medconsult-dummy-password"

// CredentialVerifier hashes and checks passwords and account state.
type CredentialVerifier struct {
	hasher    *security.Hasher
	dummyHash string
}

// NewCredentialVerifier returns a verifier using hasher. It fails only if bcrypt fails.
func NewCredentialVerifier(hasher *security.Hasher) (*CredentialVerifier, error) {
	dummy, err := hasher.HashPassword(dummyPassword)
	if err != nil {
		return nil, err
	}
	return &CredentialVerifier{hasher: hasher, dummyHash: dummy}, nil
}

// HashPassword returns the bcrypt hash of password.
func (v *CredentialVerifier) HashPassword(password string) (string, error) {
	return v.hasher.HashPassword(password)
}

// VerifyPassword reports whether password matches hash.
func (v *CredentialVerifier) VerifyPassword(password, hash string) bool {
	return v.hasher.VerifyPassword(password, hash)
}

// VerifyUnknown runs a comparison against the dummy hash and always reports false.
func (v *CredentialVerifier) VerifyUnknown(password string) bool {
	_ = v.hasher.VerifyPassword(password, v.dummyHash)
	return false
}

// AssertActive fails with AccountDeactivated when the user is inactive.
func AssertActive(u *userdomain.User) error {
	if u == nil || !u.IsActive {
		return apperr.New(apperr.KindAccountDeactivated)
	}
	return nil
}
