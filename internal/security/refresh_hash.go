package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the hex SHA-256 of a raw refresh token. Sessions are keyed
// by this value; the raw token is never stored.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual reports in constant time whether providedToken hashes to storedHash.
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRefreshToken(providedToken)), []byte(storedHash)) == 1
}
