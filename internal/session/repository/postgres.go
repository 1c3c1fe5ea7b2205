package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medconsult/backend/internal/session/domain"
)

const uniqueViolation = "23505"

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, revoked_at, revoked_reason,
	replaced_by, user_agent, ip_address, created_at`

// PostgresRepository stores sessions in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts an active session.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	return mapInsertErr(insertTx(ctx, r.pool, s))
}

// GetByTokenHash returns the session for hash, or nil if not found.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, hash)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// Revoke conditionally revokes one session.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, reason domain.RevokeReason, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, id, at, string(reason))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllForUser revokes every unrevoked session of the user.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, reason domain.RevokeReason, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2, revoked_reason = $3
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, at, string(reason))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Rotate inserts next, then conditionally revokes oldID pointing replaced_by at it. The
// insert comes first so the replaced_by foreign key resolves. A conditional update that
// matches no row means a concurrent refresh won; the transaction rolls back the insert.
func (r *PostgresRepository) Rotate(ctx context.Context, oldID string, next *domain.Session, at time.Time) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertTx(ctx, tx, next); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE sessions SET revoked_at = $2, revoked_reason = $3, replaced_by = $4
			WHERE id = $1 AND revoked_at IS NULL
		`, oldID, at, string(domain.RevokeReasonRotation), next.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAlreadyRevoked
		}
		return nil
	})
	return mapInsertErr(err)
}

// ListActiveByUser returns the user's live sessions, newest first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTx(ctx context.Context, db execer, s *domain.Session) error {
	_, err := db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, nullIfEmpty(s.UserAgent), nullIfEmpty(s.IPAddress), s.CreatedAt)
	return err
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var reason, replacedBy, userAgent, ip *string
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.RevokedAt, &reason,
		&replacedBy, &userAgent, &ip, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.RevokedReason = domain.RevokeReason(deref(reason))
	s.ReplacedBy = deref(replacedBy)
	s.UserAgent = deref(userAgent)
	s.IPAddress = deref(ip)
	return &s, nil
}

func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateHash
	}
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
