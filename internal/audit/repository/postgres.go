package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"medconsult/backend/internal/audit/domain"
)

// PostgresRepository stores audit logs in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an audit log repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, nullIfEmpty(a.UserID), a.Action, a.Resource, a.IP, nullIfEmpty(a.Metadata), a.CreatedAt)
	return err
}

// List returns audit logs newest first. An empty userID lists every user.
func (r *PostgresRepository) List(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, resource, ip, metadata, created_at
		FROM audit_logs
		WHERE ($1::text IS NULL OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, nullIfEmpty(userID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var uid, meta *string
		if err := rows.Scan(&a.ID, &uid, &a.Action, &a.Resource, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		if uid != nil {
			a.UserID = *uid
		}
		if meta != nil {
			a.Metadata = *meta
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
