package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad signature, or is of the wrong kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is otherwise valid but past its exp claim.
	// Verify* still returns the decoded payload alongside it.
	ErrTokenExpired = errors.New("token expired")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPayload is the identity embedded in both access and refresh tokens.
type TokenPayload struct {
	ID    string
	Email string
	Role  string
}

// Claims holds JWT claims shared by access and refresh tokens. Type pins a token to its kind.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
}

// TokenProvider issues and validates HS256 access and refresh tokens. Each kind has its own
// secret and TTL so neither verifier accepts the other's tokens.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption configures a TokenProvider.
type TokenOption func(*TokenProvider)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) TokenOption {
	return func(p *TokenProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewTokenProvider returns a TokenProvider. Secrets must be non-empty and distinct.
func NewTokenProvider(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) (*TokenProvider, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("security: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("security: token TTLs must be positive")
	}
	p := &TokenProvider{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// SignAccess issues a short-lived access token for payload.
func (p *TokenProvider) SignAccess(payload TokenPayload) (token string, expiresAt time.Time, err error) {
	return p.sign(payload, tokenTypeAccess, p.accessSecret, p.accessTTL)
}

// SignRefresh issues a long-lived refresh token for payload. Every call yields a distinct token.
func (p *TokenProvider) SignRefresh(payload TokenPayload) (token string, expiresAt time.Time, err error) {
	return p.sign(payload, tokenTypeRefresh, p.refreshSecret, p.refreshTTL)
}

// VerifyAccess validates an access token and returns its payload.
func (p *TokenProvider) VerifyAccess(token string) (TokenPayload, error) {
	return p.verify(token, tokenTypeAccess, p.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its payload. On ErrTokenExpired the
// signature has been checked and the payload is still returned.
func (p *TokenProvider) VerifyRefresh(token string) (TokenPayload, error) {
	return p.verify(token, tokenTypeRefresh, p.refreshSecret)
}

func (p *TokenProvider) sign(payload TokenPayload, typ string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   payload.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: payload.Email,
		Role:  payload.Role,
		Type:  typ,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (p *TokenProvider) verify(tokenString, typ string, secret []byte) (TokenPayload, error) {
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }
	methods := jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, keyFunc,
		methods,
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	expired := false
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, ErrInvalidToken
		}
		// Re-parse without claim checks so an expired token is only reported
		// as such when its signature is good.
		claims = &Claims{}
		if _, err := jwt.ParseWithClaims(tokenString, claims, keyFunc, methods, jwt.WithoutClaimsValidation()); err != nil {
			return TokenPayload{}, ErrInvalidToken
		}
		if claims.Issuer != p.issuer {
			return TokenPayload{}, ErrInvalidToken
		}
		expired = true
	}
	if claims.Type != typ || claims.Subject == "" {
		return TokenPayload{}, ErrInvalidToken
	}
	payload := TokenPayload{ID: claims.Subject, Email: claims.Email, Role: claims.Role}
	if expired {
		return payload, ErrTokenExpired
	}
	return payload, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
