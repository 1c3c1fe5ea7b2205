package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var alice = TokenPayload{ID: "user-1", Email: "alice@x.com", Role: "PATIENT"}

func TestTokenProvider_SignAndVerify(t *testing.T) {
	p := NewTestTokenProvider()

	access, accessExp, err := p.SignAccess(alice)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	refresh, refreshExp, err := p.SignRefresh(alice)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	if !refreshExp.After(accessExp) {
		t.Errorf("refresh expiry %v should be after access expiry %v", refreshExp, accessExp)
	}

	got, err := p.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if got != alice {
		t.Errorf("access payload = %+v, want %+v", got, alice)
	}
	got, err = p.VerifyRefresh(refresh)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if got != alice {
		t.Errorf("refresh payload = %+v, want %+v", got, alice)
	}
}

func TestTokenProvider_Separation(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := NewTestTokenProvider(WithClock(clock.Now))

	access, _, _ := p.SignAccess(alice)
	refresh, _, _ := p.SignRefresh(alice)

	if _, err := p.VerifyRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyRefresh(access) = %v, want ErrInvalidToken", err)
	}
	if _, err := p.VerifyAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccess(refresh) = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_DistinctTokensSameInstant(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := NewTestTokenProvider(WithClock(clock.Now))
	a, _, _ := p.SignRefresh(alice)
	b, _, _ := p.SignRefresh(alice)
	if a == b {
		t.Error("two refresh tokens minted at the same instant must differ")
	}
}

func TestTokenProvider_Expired(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := NewTestTokenProvider(WithClock(clock.Now))
	access, _, _ := p.SignAccess(alice)
	refresh, _, _ := p.SignRefresh(alice)

	clock.Advance(25 * time.Hour)

	if _, err := p.VerifyAccess(access); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyAccess after expiry = %v, want ErrTokenExpired", err)
	}
	got, err := p.VerifyRefresh(refresh)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("VerifyRefresh after expiry = %v, want ErrTokenExpired", err)
	}
	if got != alice {
		t.Errorf("expired payload = %+v, want %+v", got, alice)
	}
}

func TestTokenProvider_Invalid(t *testing.T) {
	p := NewTestTokenProvider()
	other, err := NewTokenProvider("another-access-secret-0123456789ab", "another-refresh-secret-0123456789ab", "test-issuer", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	foreign, _, _ := other.SignRefresh(alice)
	otherIssuer, err := NewTokenProvider(testAccessSecret, testRefreshSecret, "someone-else", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	wrongIss, _, _ := otherIssuer.SignRefresh(alice)
	valid, _, _ := p.SignRefresh(alice)
	vp, fp := strings.Split(valid, "."), strings.Split(foreign, ".")
	tampered := vp[0] + "." + fp[1] + "." + vp[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"foreign secret", foreign},
		{"wrong issuer", wrongIss},
		{"tampered payload", tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.VerifyRefresh(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("VerifyRefresh = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenProvider_ExpiredForeignSignature(t *testing.T) {
	clock := &testClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := NewTestTokenProvider(WithClock(clock.Now))
	other, _ := NewTokenProvider("another-access-secret-0123456789ab", "another-refresh-secret-0123456789ab", "test-issuer", time.Minute, time.Hour, WithClock(clock.Now))
	foreign, _, _ := other.SignRefresh(alice)
	clock.Advance(48 * time.Hour)
	if _, err := p.VerifyRefresh(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token with bad signature = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenProvider_Validation(t *testing.T) {
	if _, err := NewTokenProvider("", "b", "iss", time.Minute, time.Hour); err == nil {
		t.Error("empty access secret should fail")
	}
	if _, err := NewTokenProvider("same", "same", "iss", time.Minute, time.Hour); err == nil {
		t.Error("equal secrets should fail")
	}
	if _, err := NewTokenProvider("a", "b", "iss", 0, time.Hour); err == nil {
		t.Error("zero TTL should fail")
	}
}
