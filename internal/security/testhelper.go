package security

import "time"

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// NewTestTokenProvider returns a TokenProvider with fixed test secrets, a 15m access TTL
// and a 24h refresh TTL. For unit tests only.
func NewTestTokenProvider(opts ...TokenOption) *TokenProvider {
	p, err := NewTokenProvider(testAccessSecret, testRefreshSecret, "test-issuer", 15*time.Minute, 24*time.Hour, opts...)
	if err != nil {
		panic(err)
	}
	return p
}
