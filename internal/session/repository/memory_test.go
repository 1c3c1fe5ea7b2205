package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medconsult/backend/internal/session/domain"
)

var _ Repository = (*MemoryRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newSession(id, userID, hash string) *domain.Session {
	return &domain.Session{ID: id, UserID: userID, RefreshTokenHash: hash, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0}
}

func TestMemoryRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	if err := r.Create(ctx, newSession("s1", "u1", "h1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := r.GetByTokenHash(ctx, "h1")
	if err != nil || got == nil || got.ID != "s1" {
		t.Fatalf("GetByTokenHash = %+v, %v", got, err)
	}
	missing, err := r.GetByTokenHash(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByTokenHash(missing) = %v, %v; want nil, nil", missing, err)
	}
	if err := r.Create(ctx, newSession("s2", "u1", "h1")); !errors.Is(err, ErrDuplicateHash) {
		t.Errorf("duplicate hash Create = %v, want ErrDuplicateHash", err)
	}
}

func TestMemoryRepository_RevokeIsConditional(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_ = r.Create(ctx, newSession("s1", "u1", "h1"))

	ok, err := r.Revoke(ctx, "s1", domain.RevokeReasonLogout, t0)
	if err != nil || !ok {
		t.Fatalf("first Revoke = %v, %v; want true", ok, err)
	}
	ok, err = r.Revoke(ctx, "s1", domain.RevokeReasonLogout, t0.Add(time.Minute))
	if err != nil || ok {
		t.Fatalf("second Revoke = %v, %v; want false", ok, err)
	}
	s, _ := r.GetByTokenHash(ctx, "h1")
	if s.RevokedAt == nil || !s.RevokedAt.Equal(t0) {
		t.Errorf("RevokedAt = %v, want first revocation time", s.RevokedAt)
	}
	if s.RevokedReason != domain.RevokeReasonLogout {
		t.Errorf("RevokedReason = %q", s.RevokedReason)
	}
	ok, err = r.Revoke(ctx, "ghost", domain.RevokeReasonLogout, t0)
	if err != nil || ok {
		t.Errorf("Revoke(missing) = %v, %v", ok, err)
	}
}

func TestMemoryRepository_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_ = r.Create(ctx, newSession("s1", "u1", "h1"))
	_ = r.Create(ctx, newSession("s2", "u1", "h2"))
	_ = r.Create(ctx, newSession("s3", "u2", "h3"))
	_, _ = r.Revoke(ctx, "s2", domain.RevokeReasonLogout, t0)

	n, err := r.RevokeAllForUser(ctx, "u1", domain.RevokeReasonReuseDetected, t0)
	if err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if n != 1 {
		t.Errorf("revoked %d sessions, want 1", n)
	}
	other, _ := r.GetByTokenHash(ctx, "h3")
	if other.RevokedAt != nil {
		t.Error("another user's session must stay active")
	}
	s2, _ := r.GetByTokenHash(ctx, "h2")
	if s2.RevokedReason != domain.RevokeReasonLogout {
		t.Error("already revoked sessions keep their original reason")
	}
}

func TestMemoryRepository_Rotate(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_ = r.Create(ctx, newSession("s1", "u1", "h1"))

	if err := r.Rotate(ctx, "s1", newSession("s2", "u1", "h2"), t0); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	old, _ := r.GetByTokenHash(ctx, "h1")
	if old.RevokedAt == nil || old.RevokedReason != domain.RevokeReasonRotation || old.ReplacedBy != "s2" {
		t.Errorf("old session after rotate = %+v", old)
	}
	next, _ := r.GetByTokenHash(ctx, "h2")
	if next == nil || next.RevokedAt != nil {
		t.Errorf("new session after rotate = %+v", next)
	}

	err := r.Rotate(ctx, "s1", newSession("s3", "u1", "h3"), t0)
	if !errors.Is(err, ErrAlreadyRevoked) {
		t.Errorf("rotating a revoked session = %v, want ErrAlreadyRevoked", err)
	}
	if s3, _ := r.GetByTokenHash(ctx, "h3"); s3 != nil {
		t.Error("failed rotate must not insert the new session")
	}
}

func TestMemoryRepository_RotateRace(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_ = r.Create(ctx, newSession("s0", "u1", "h0"))

	const racers = 16
	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Rotate(ctx, "s0", newSession(fmt.Sprintf("n%d", i), "u1", fmt.Sprintf("hn%d", i)), t0)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyRevoked):
				losses.Add(1)
			default:
				t.Errorf("Rotate: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 || losses.Load() != racers-1 {
		t.Errorf("wins=%d losses=%d, want exactly one winner", wins.Load(), losses.Load())
	}
}

func TestMemoryRepository_ListActiveByUser(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	a := newSession("a", "u1", "ha")
	b := newSession("b", "u1", "hb")
	b.CreatedAt = t0.Add(time.Minute)
	expired := newSession("c", "u1", "hc")
	expired.ExpiresAt = t0.Add(-time.Minute)
	revoked := newSession("d", "u1", "hd")
	for _, s := range []*domain.Session{a, b, expired, revoked} {
		_ = r.Create(ctx, s)
	}
	_, _ = r.Revoke(ctx, "d", domain.RevokeReasonLogout, t0)

	list, err := r.ListActiveByUser(ctx, "u1", t0)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		ids := make([]string, len(list))
		for i, s := range list {
			ids[i] = s.ID
		}
		t.Errorf("active sessions = %v, want [b a]", ids)
	}
}
